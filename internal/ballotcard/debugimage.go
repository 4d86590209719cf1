package ballotcard

import (
	"image"
	"image/color"
	"image/png"
	"io"

	"ballotscan/pkg/geometry"

	"golang.org/x/image/draw"
)

// debugThumbnailWidth bounds the width of a debug PNG even when the
// underlying page image is full scanner resolution.
const debugThumbnailWidth = 600

// ImageDebugSink renders the border fits C3/C4 discover onto a copy of the
// page image and flushes the annotated canvas as a PNG. It's the concrete
// collaborator NoopDebugSink stands in for in callers that don't want
// visual diagnostics.
type ImageDebugSink struct {
	canvas *image.RGBA
}

// NewImageDebugSink copies img into an RGBA canvas ready for annotation.
func NewImageDebugSink(img *BallotImage) *ImageDebugSink {
	canvas := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			canvas.Set(x, y, color.Gray{Y: img.At(x, y)})
		}
	}
	return &ImageDebugSink{canvas: canvas}
}

func (s *ImageDebugSink) Rect(label string, r geometry.Rect) {
	strokeRect(s.canvas, r, colorFor(label))
}

func (s *ImageDebugSink) Segment(label string, seg geometry.Segment) {
	strokeSegment(s.canvas, seg, colorFor(label))
}

func (s *ImageDebugSink) Point(label string, p geometry.Point2D) {
	strokeRect(s.canvas, geometry.Rect{X: int(p.X) - 1, Y: int(p.Y) - 1, Width: 3, Height: 3}, colorFor(label))
}

// WritePNG downscales the annotated canvas to debugThumbnailWidth with a
// bilinear interpolator and encodes it as a PNG. Quality-interpolated
// scaling is the one thing the standard image/draw package doesn't offer,
// which is why this writer reaches for golang.org/x/image/draw instead.
func (s *ImageDebugSink) WritePNG(w io.Writer) error {
	bounds := s.canvas.Bounds()
	width := bounds.Dx()
	if width <= debugThumbnailWidth {
		return png.Encode(w, s.canvas)
	}
	height := bounds.Dy() * debugThumbnailWidth / width
	thumb := image.NewRGBA(image.Rect(0, 0, debugThumbnailWidth, height))
	draw.ApproxBiLinear.Scale(thumb, thumb.Bounds(), s.canvas, bounds, draw.Over, nil)
	return png.Encode(w, thumb)
}

func fillRect(canvas *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(canvas, r, &image.Uniform{C: c}, image.Point{}, draw.Over)
}

func strokeRect(canvas *image.RGBA, r geometry.Rect, c color.Color) {
	fillRect(canvas, image.Rect(r.X, r.Y, r.Right(), r.Y+1), c)
	fillRect(canvas, image.Rect(r.X, r.Bottom()-1, r.Right(), r.Bottom()), c)
	fillRect(canvas, image.Rect(r.X, r.Y, r.X+1, r.Bottom()), c)
	fillRect(canvas, image.Rect(r.Right()-1, r.Y, r.Right(), r.Bottom()), c)
}

func strokeSegment(canvas *image.RGBA, seg geometry.Segment, c color.Color) {
	steps := int(seg.Length())
	if steps < 1 {
		steps = 1
	}
	vec := seg.Vector()
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := int(seg.Start.X + vec.X*t)
		y := int(seg.Start.Y + vec.Y*t)
		fillRect(canvas, image.Rect(x, y, x+1, y+1), c)
	}
}

// colorFor derives a stable, visually distinct color from a debug label so
// repeated calls for the same border (e.g. "border-top" across pages) are
// easy to tell apart in a rendered thumbnail without a color palette table.
func colorFor(label string) color.Color {
	var h uint32
	for i := 0; i < len(label); i++ {
		h = h*31 + uint32(label[i])
	}
	return color.RGBA{R: uint8(h), G: uint8(h >> 8), B: uint8(h >> 16), A: 255}
}
