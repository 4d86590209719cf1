package scanner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ballotscan/internal/scanner/protocol"
)

// drainFrames collects every body the outbound pump writes until the
// writer side closes.
func drainFrames(t *testing.T, reader *protocol.FrameReader, out chan<- []byte) {
	t.Helper()
	for {
		body, err := reader.ReadFrame()
		if err != nil {
			close(out)
			return
		}
		out <- body
	}
}

func TestEjectDocumentAlwaysDisablesFeederAfterward(t *testing.T) {
	client, _, _, outFrames := newTestClient(t)

	frames := make(chan []byte, 16)
	go drainFrames(t, outFrames, frames)

	require.NoError(t, client.EjectDocument(protocol.EjectToFront))

	want := [][]byte{
		{'N'},      // eject pause disabled, since this isn't a to-rear eject
		{'#', '1'}, // feeder enabled so the eject motion can run
		{'3'},      // eject to front
		{'#', '0'}, // feeder unconditionally disabled again
	}
	for _, w := range want {
		select {
		case got := <-frames:
			assert.Equal(t, w, got)
		case <-time.After(time.Second):
			t.Fatalf("expected frame %v, got none", w)
		}
	}
}

func TestEjectToRearEnablesInputPaperPause(t *testing.T) {
	client, _, _, outFrames := newTestClient(t)

	frames := make(chan []byte, 16)
	go drainFrames(t, outFrames, frames)

	require.NoError(t, client.EjectDocument(protocol.EjectToRear))

	first := <-frames
	assert.Equal(t, []byte{'M'}, first) // eject pause enabled while input paper is present
}

func TestEjectToFrontAndRescanUsesEscrowTag(t *testing.T) {
	client, _, _, outFrames := newTestClient(t)

	frames := make(chan []byte, 16)
	go drainFrames(t, outFrames, frames)

	require.NoError(t, client.EjectDocument(protocol.EjectToFrontAndRescan))

	<-frames // eject pause
	<-frames // feeder enable
	motion := <-frames
	assert.Equal(t, []byte{'['}, motion)
}

func TestEnableScanCommandsEndsWithFeederEnable(t *testing.T) {
	client, inW, _, outFrames := newTestClient(t)

	frames := make(chan []byte, 32)
	go drainFrames(t, outFrames, frames)

	// The threshold steps each block on a SetThresholdResponse; answer both
	// as soon as they're sent.
	go func() {
		_, _ = inW.Write(frameBody([]byte("XT 4B")))
		_, _ = inW.Write(frameBody([]byte("XB 4B")))
	}()

	err := client.EnableScanCommands(75, protocol.DoubleFeedDetectionDisabled, 8.5)
	require.NoError(t, err)

	const wantFrameCount = 16
	var last []byte
	for i := 0; i < wantFrameCount; i++ {
		select {
		case f := <-frames:
			last = f
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for frame %d/%d", i+1, wantFrameCount)
		}
	}
	assert.Equal(t, []byte{'#', '1'}, last)
}

func TestConnectSequence(t *testing.T) {
	client, inW, _, outFrames := newTestClient(t)

	frames := make(chan []byte, 16)
	go drainFrames(t, outFrames, frames)

	go func() { _, _ = inW.Write(frameBody([]byte("Dready"))) }()

	require.NoError(t, client.Connect())

	getTestString := <-frames
	assert.Equal(t, []byte{'D'}, getTestString)

	disableFeeder := <-frames
	assert.Equal(t, []byte{'#', '0'}, disableFeeder)

	crcToggle := <-frames
	assert.Equal(t, []byte{0x1b, 'K'}, crcToggle)
}
