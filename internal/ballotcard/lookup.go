package ballotcard

import (
	"math"

	"ballotscan/pkg/geometry"
)

// PointForLocation is C6: it interpolates a fractional (column, row) grid
// coordinate into an image-space point, correcting for the fact that the
// left/right edge timing marks are commonly cropped.
func PointForLocation(grid *Complete, column, row float64) (geometry.Point2D, bool) {
	if column < 0 || column > float64(grid.Geometry.GridWidth-1) {
		return geometry.Point2D{}, false
	}
	if row < 0 || row > float64(grid.Geometry.GridHeight-1) {
		return geometry.Point2D{}, false
	}

	r0 := int(math.Floor(row))
	r1 := int(math.Ceil(row))
	t := row - float64(r0)

	if r1 >= len(grid.LeftMarks) {
		r1 = len(grid.LeftMarks) - 1
	}

	leftR0 := correctedRect(grid.LeftMarks[r0].Rect, grid.Geometry.TimingMarkWidth, true)
	leftR1 := correctedRect(grid.LeftMarks[r1].Rect, grid.Geometry.TimingMarkWidth, true)
	rightR0 := correctedRect(grid.RightMarks[r0].Rect, grid.Geometry.TimingMarkWidth, false)
	rightR1 := correctedRect(grid.RightMarks[r1].Rect, grid.Geometry.TimingMarkWidth, false)

	leftCenter := blendCenters(leftR0, leftR1, t)
	rightCenter := blendCenters(rightR0, rightR1, t)

	seg := geometry.NewSegment(leftCenter, rightCenter)
	fraction := column / float64(grid.Geometry.GridWidth-1)
	vec := seg.Vector()
	return geometry.Point2D{
		X: leftCenter.X + vec.X*fraction,
		Y: leftCenter.Y + vec.Y*fraction,
	}, true
}

// correctedRect aligns the inner edge of a possibly-cropped left/right
// timing-mark rectangle to the nominal mark width, so a cropped rectangle
// doesn't pull the interpolated point toward the paper edge.
func correctedRect(r geometry.Rect, nominalWidth float64, isLeft bool) geometry.Rect {
	width := int(nominalWidth)
	if isLeft {
		// Keep the right edge fixed, extend/shrink from the left.
		return geometry.Rect{X: r.Right() - width, Y: r.Y, Width: width, Height: r.Height}
	}
	// Keep the left edge fixed, extend/shrink to the right.
	return geometry.Rect{X: r.X, Y: r.Y, Width: width, Height: r.Height}
}

func blendCenters(a, b geometry.Rect, t float64) geometry.Point2D {
	ca, cb := a.Center(), b.Center()
	return geometry.Point2D{
		X: ca.X + (cb.X-ca.X)*t,
		Y: ca.Y + (cb.Y-ca.Y)*t,
	}
}
