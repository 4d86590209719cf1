package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetThresholdToANewValueRequestWireFormat(t *testing.T) {
	req := SetThresholdToANewValueRequest{Side: SideTop, NewThreshold: 75}
	got := ToBytes(req)
	want := []byte{STX, 0x1b, '%', 'T', 0x4B, ETX, CRC8([]byte{0x1b, '%', 'T', 0x4B})}
	assert.Equal(t, want, got)
}

func TestParseFirmwareVersionResponse(t *testing.T) {
	// P1 scenario. The literal spec example renders with a stray space;
	// the byte-consistent 9-character payload that actually yields the
	// documented fields is "90722028X".
	body := []byte("V90722028X")
	incoming, err := Parse(body)
	require.NoError(t, err)

	resp, ok := incoming.(FirmwareVersionResponse)
	require.True(t, ok)
	assert.Equal(t, Version{ProductID: "9072", Major: "20", Minor: "28", CpldVersion: "X"}, resp.Version)
}

func TestParseSetThresholdResponse(t *testing.T) {
	// P2 scenario.
	body := []byte("XT 4B")
	incoming, err := Parse(body)
	require.NoError(t, err)

	resp, ok := incoming.(SetThresholdResponse)
	require.True(t, ok)
	assert.Equal(t, SideTop, resp.Side)
	assert.Equal(t, ClampedPercentage(75), resp.Threshold)
}

func TestParseEventAcceptsBothCoverTagFamilies(t *testing.T) {
	documented, err := Parse([]byte("#0C"))
	require.NoError(t, err)
	fieldObserved, err := Parse([]byte("#34"))
	require.NoError(t, err)

	assert.Equal(t, EventCoverOpen, documented)
	assert.Equal(t, EventCoverOpen, fieldObserved)
}

func TestUnknownTagRoundTripsAsUnknown(t *testing.T) {
	incoming, err := Parse([]byte("??"))
	require.NoError(t, err)
	unknown, ok := incoming.(Unknown)
	require.True(t, ok)
	assert.Equal(t, []byte("??"), unknown.Bytes)
}

func TestClampedPercentageValidation(t *testing.T) {
	_, err := NewClampedPercentage(150)
	assert.ErrorIs(t, err, ErrValidateRequest)

	v, err := NewClampedPercentage(50)
	require.NoError(t, err)
	assert.Equal(t, ClampedPercentage(50), v)
}
