package ballotcard

import "ballotscan/pkg/geometry"

const (
	interiorPresentMarkScore    = 0.7
	interiorPresentPaddingScore = 0.7
	endpointPresentMarkScore    = 0.33
	endpointPresentPaddingScore = 0.5
)

// DetectOrientation reports Portrait when the top border observed at least
// as many marks as the bottom border, PortraitReversed otherwise.
func DetectOrientation(topObserved, bottomObserved int) Orientation {
	if topObserved >= bottomObserved {
		return Portrait
	}
	return PortraitReversed
}

// Normalize rotates img and grid 180 degrees when orientation is
// PortraitReversed, returning newly allocated rotated copies and leaving
// the inputs untouched. For Portrait
// it returns its inputs unchanged.
func Normalize(img *BallotImage, grid *Complete, orientation Orientation) (*BallotImage, *Complete) {
	if orientation == Portrait {
		return img, grid
	}
	return rotateImage180(img), rotateGrid180(grid, img.Width, img.Height)
}

func rotateImage180(img *BallotImage) *BallotImage {
	out := &BallotImage{
		Pixels:    make([]byte, len(img.Pixels)),
		Width:     img.Width,
		Height:    img.Height,
		Threshold: img.Threshold,
	}
	n := len(img.Pixels)
	for i, v := range img.Pixels {
		out.Pixels[n-1-i] = v
	}
	return out
}

// rotateGrid180 mirrors every rectangle and corner about the canvas center
// (minus one pixel, to keep integer rectangles in bounds), swaps top with
// bottom and left with right, and reverses each list so that ascending
// order along the border's axis is preserved post-flip.
func rotateGrid180(grid *Complete, width, height int) *Complete {
	mirrorPoint := func(p geometry.Point2D) geometry.Point2D {
		return geometry.Point2D{X: float64(width-1) - p.X, Y: float64(height-1) - p.Y}
	}
	mirrorRect := func(r geometry.Rect) geometry.Rect {
		return geometry.Rect{
			X:      width - r.Right(),
			Y:      height - r.Bottom(),
			Width:  r.Width,
			Height: r.Height,
		}
	}
	mirrorMark := func(m CandidateTimingMark) CandidateTimingMark {
		return CandidateTimingMark{Rect: mirrorRect(m.Rect), Score: m.Score, Provenance: m.Provenance}
	}
	mirrorMarks := func(marks []CandidateTimingMark) []CandidateTimingMark {
		out := make([]CandidateTimingMark, len(marks))
		for i, m := range marks {
			out[len(marks)-1-i] = mirrorMark(m)
		}
		return out
	}

	newTop := mirrorMarks(grid.BottomMarks)
	newBottom := mirrorMarks(grid.TopMarks)
	newLeft := mirrorMarks(grid.RightMarks)
	newRight := mirrorMarks(grid.LeftMarks)

	newCorners := [4]geometry.Point2D{
		mirrorPoint(grid.Corners[cornerBR]),
		mirrorPoint(grid.Corners[cornerBL]),
		mirrorPoint(grid.Corners[cornerTR]),
		mirrorPoint(grid.Corners[cornerTL]),
	}
	newCornerMarks := [4]CandidateTimingMark{
		mirrorMark(grid.CornerMarks[cornerBR]),
		mirrorMark(grid.CornerMarks[cornerBL]),
		mirrorMark(grid.CornerMarks[cornerTR]),
		mirrorMark(grid.CornerMarks[cornerTL]),
	}

	return &Complete{
		Geometry:    grid.Geometry,
		Corners:     newCorners,
		CornerMarks: newCornerMarks,
		TopMarks:    newTop,
		BottomMarks: newBottom,
		LeftMarks:   newLeft,
		RightMarks:  newRight,
	}
}

// DecodeTimingMarkMetadata reads the bottom row's present/absent pattern
// into bits. A mark counts as present when its scores clear the interior
// threshold, except the two corner-adjacent endpoints which use the
// relaxed threshold (see original_source's find_actual_bottom_marks).
// The corner-adjacent endpoints anchor every other bit's position, so
// decoding fails outright when either of them isn't present.
func DecodeTimingMarkMetadata(bottom []CandidateTimingMark) (BallotPageMetadata, error) {
	if len(bottom) == 0 {
		return BallotPageMetadata{}, newError(ErrInvalidCardMetadata)
	}

	bits := make([]bool, len(bottom))
	for i, m := range bottom {
		markThresh, padThresh := interiorPresentMarkScore, interiorPresentPaddingScore
		if i == 0 || i == len(bottom)-1 {
			markThresh, padThresh = endpointPresentMarkScore, endpointPresentPaddingScore
		}
		bits[i] = float64(m.Score.MarkScore) >= markThresh && float64(m.Score.PaddingScore) >= padThresh
	}

	if !bits[0] || !bits[len(bits)-1] {
		return BallotPageMetadata{}, newError(ErrInvalidCardMetadata)
	}

	return BallotPageMetadata{Kind: TimingMarkMetadata, Bits: bits}, nil
}
