package ballotcard

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"ballotscan/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/draw"
)

// whiteOutQrRegion composites a solid white patch over a sub-rectangle of
// src. This is the S2 fixture: a page whose QR code region has been blown
// out, so its QR code cannot be decoded and its page metadata has to be
// inferred from the other page's QR code.
func whiteOutQrRegion(src *BallotImage, region image.Rectangle) *BallotImage {
	canvas := image.NewGray(image.Rect(0, 0, src.Width, src.Height))
	copy(canvas.Pix, src.Pixels)
	draw.Draw(canvas, region, &image.Uniform{C: color.Gray{Y: 255}}, image.Point{}, draw.Over)

	out := make([]byte, len(src.Pixels))
	copy(out, canvas.Pix)
	return &BallotImage{Pixels: out, Width: src.Width, Height: src.Height, Threshold: src.Threshold}
}

func TestWhiteOutQrRegionFixtureBlanksOnlyTheTargetRegion(t *testing.T) {
	src := &BallotImage{Pixels: make([]byte, 20*20), Width: 20, Height: 20, Threshold: 128}
	for i := range src.Pixels {
		src.Pixels[i] = 10
	}

	fixture := whiteOutQrRegion(src, image.Rect(5, 5, 15, 15))

	assert.Equal(t, byte(255), fixture.At(7, 7))
	assert.Equal(t, byte(10), fixture.At(0, 0))
	assert.Equal(t, byte(10), fixture.At(19, 19))
}

func TestImageDebugSinkWritesADownscaledPNG(t *testing.T) {
	img := &BallotImage{Pixels: make([]byte, 800*600), Width: 800, Height: 600, Threshold: 128}
	for i := range img.Pixels {
		img.Pixels[i] = byte(i % 256)
	}

	sink := NewImageDebugSink(img)
	sink.Rect("border-top", geometry.Rect{X: 10, Y: 10, Width: 50, Height: 5})
	sink.Segment("border-left", geometry.NewSegment(geometry.Point2D{X: 10, Y: 10}, geometry.Point2D{X: 10, Y: 590}))
	sink.Point("corner-tl", geometry.Point2D{X: 10, Y: 10})

	var buf bytes.Buffer
	require.NoError(t, sink.WritePNG(&buf))

	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, debugThumbnailWidth, decoded.Bounds().Dx())
}

func TestImageDebugSinkWritesFullSizeWhenAlreadyNarrow(t *testing.T) {
	img := &BallotImage{Pixels: make([]byte, 100*80), Width: 100, Height: 80, Threshold: 128}

	sink := NewImageDebugSink(img)
	var buf bytes.Buffer
	require.NoError(t, sink.WritePNG(&buf))

	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 100, decoded.Bounds().Dx())
}
