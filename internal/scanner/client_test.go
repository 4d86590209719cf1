package scanner

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ballotscan/internal/scanner/protocol"
)

// frameBody wraps a body the same way a wire frame would look coming off
// an endpoint, minus the trailing CRC that incoming frames never carry.
func frameBody(body []byte) []byte {
	out := make([]byte, 0, len(body)+2)
	out = append(out, protocol.STX)
	out = append(out, body...)
	out = append(out, protocol.ETX)
	return out
}

func newTestClient(t *testing.T) (*Client, io.Writer, io.Writer, *protocol.FrameReader) {
	t.Helper()

	outR, outW := io.Pipe()
	inR, inW := io.Pipe()
	imgR, imgW := io.Pipe()

	transport := NewTransport(Endpoints{Out: outW, InPrimary: inR, InImage: imgR})
	transport.Start()
	t.Cleanup(transport.Stop)
	// Cleanups run last-in first-out: close the streams first so the
	// transport's blocked reads return and Stop can join its workers.
	t.Cleanup(func() {
		_ = inW.Close()
		_ = imgW.Close()
		_ = outR.Close()
	})

	return NewClient(transport), inW, imgW, protocol.NewFrameReader(outR)
}

func TestPendingImageDataIsNotDroppedByAnInterveningRequest(t *testing.T) {
	client, inW, imgW, outFrames := newTestClient(t)

	// The image endpoint delivers a chunk before anyone asks for it.
	go func() { _, _ = imgW.Write(frameBody([]byte{0x00, 0x01, 0x02})) }()

	// Drain whatever the client writes out so the OUT pump never blocks.
	go func() {
		for {
			if _, err := outFrames.ReadFrame(); err != nil {
				return
			}
		}
	}()

	done := make(chan struct{})
	var resp any
	var callErr error
	go func() {
		resp, callErr = client.Call(protocol.GetTestStringRequest{}, matchTestString, time.Now().Add(time.Second))
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	_, _ = inW.Write(frameBody([]byte("Dhello")))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Call never returned")
	}

	require.NoError(t, callErr)
	assert.Equal(t, protocol.TestStringResponse{Text: "hello"}, resp)

	unsolicited := client.DrainUnsolicited()
	require.Len(t, unsolicited, 1)
	img, ok := unsolicited[0].(protocol.ImageData)
	require.True(t, ok)
	assert.Equal(t, []byte{0x00, 0x01, 0x02}, img.Bytes)
}

func TestDropStaleSolicitedLeavesUnsolicitedAlone(t *testing.T) {
	client, _, _, outFrames := newTestClient(t)

	// An image chunk already waiting in the unhandled queue.
	client.pushUnhandled(protocol.ImageData{Bytes: []byte{0x09}})
	go func() {
		for {
			if _, err := outFrames.ReadFrame(); err != nil {
				return
			}
		}
	}()

	time.Sleep(5 * time.Millisecond)

	// Simulate a stale solicited leftover sitting in the unhandled queue
	// from an earlier aborted call.
	client.pushUnhandled(protocol.AckResponse{})
	client.dropStaleSolicited()

	unsolicited := client.DrainUnsolicited()
	require.Len(t, unsolicited, 1)
	_, ok := unsolicited[0].(protocol.ImageData)
	assert.True(t, ok)
}
