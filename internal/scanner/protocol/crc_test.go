package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC8KnownVector(t *testing.T) {
	assert.Equal(t, byte(0x94), CRC8([]byte("123456789")))
}

func TestCRC8ChangesOnSingleByteFlip(t *testing.T) {
	body := []byte("SetThresholdToANewValueRequest")
	base := CRC8(body)

	flipped := make([]byte, len(body))
	copy(flipped, body)
	flipped[3] ^= 0x01

	assert.NotEqual(t, base, CRC8(flipped))
}

func TestCommandToBytes(t *testing.T) {
	got := NewCommand([]byte("V")).ToBytes()
	want := []byte{STX, 'V', ETX, CRC8([]byte("V"))}
	assert.Equal(t, want, got)
}
