package protocol

import (
	"bufio"
	"fmt"
	"io"
)

// FrameReader pulls STX...ETX frames off a byte stream, discarding bytes
// seen before the first STX of each frame (resynchronizing after a
// corrupted read). It never interprets CRC: incoming frames carry none.
type FrameReader struct {
	r *bufio.Reader
}

// NewFrameReader wraps r for frame-at-a-time reading.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReader(r)}
}

// ReadFrame returns the next frame's body (the bytes strictly between STX
// and ETX).
func (f *FrameReader) ReadFrame() ([]byte, error) {
	if _, err := f.r.ReadBytes(STX); err != nil {
		return nil, fmt.Errorf("scanner: read frame start: %w", err)
	}
	body, err := f.r.ReadBytes(ETX)
	if err != nil {
		return nil, fmt.Errorf("scanner: read frame end: %w", err)
	}
	return body[:len(body)-1], nil
}
