package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentAngleAndLength(t *testing.T) {
	s := NewSegment(Point2D{X: 0, Y: 0}, Point2D{X: 10, Y: 0})
	assert.InDelta(t, 10.0, s.Length(), 1e-9)
	assert.InDelta(t, 0.0, s.Angle(), 1e-9)

	vertical := NewSegment(Point2D{X: 0, Y: 0}, Point2D{X: 0, Y: 10})
	assert.InDelta(t, math.Pi/2, vertical.Angle(), 1e-9)
}

func TestSegmentWithLengthPreservesDirection(t *testing.T) {
	s := NewSegment(Point2D{X: 0, Y: 0}, Point2D{X: 3, Y: 4})
	stretched := s.WithLength(10)
	assert.InDelta(t, 10.0, stretched.Length(), 1e-9)
	assert.InDelta(t, s.Angle(), stretched.Angle(), 1e-9)
	assert.Equal(t, s.Start, stretched.Start)
}

func TestSegmentIntersectionBounded(t *testing.T) {
	a := NewSegment(Point2D{X: 0, Y: 0}, Point2D{X: 10, Y: 10})
	b := NewSegment(Point2D{X: 0, Y: 10}, Point2D{X: 10, Y: 0})

	p, ok := a.IntersectionPoint(b, Segments)
	require.True(t, ok)
	assert.InDelta(t, 5.0, p.X, 1e-9)
	assert.InDelta(t, 5.0, p.Y, 1e-9)

	// Not parallel to a: the lines meet at (-20, -20), outside both segments.
	c := NewSegment(Point2D{X: 20, Y: 0}, Point2D{X: 30, Y: 5})
	_, ok = a.IntersectionPoint(c, Segments)
	assert.False(t, ok)

	_, ok = a.IntersectionPoint(c, Unbounded)
	assert.True(t, ok)
}

func TestAngleDiffNormalizesToHalfOpenRange(t *testing.T) {
	assert.InDelta(t, 0.0, AngleDiff(0, 0), 1e-9)
	assert.InDelta(t, math.Pi/4, AngleDiff(math.Pi, 3*math.Pi/4), 1e-9)
	// wrap-around case: -π and π should be treated as adjacent
	d := AngleDiff(-math.Pi+0.01, math.Pi-0.01)
	assert.InDelta(t, 0.02, d, 1e-6)
}

func TestFindInlineSubsetsGroupsCollinearCenters(t *testing.T) {
	rects := []Rect{
		{X: 0, Y: 0, Width: 4, Height: 4},
		{X: 10, Y: 0, Width: 4, Height: 4},
		{X: 20, Y: 0, Width: 4, Height: 4},
		{X: 30, Y: 50, Width: 4, Height: 4}, // breaks the run, starts a new one
		{X: 40, Y: 50, Width: 4, Height: 4},
	}

	subsets := FindInlineSubsets(rects, 0, 0.09) // ~5 degrees
	require.Len(t, subsets, 2)
	assert.Equal(t, []int{0, 1, 2}, subsets[0].Indices)
	assert.Equal(t, []int{3, 4}, subsets[1].Indices)
}

func TestRectIntersectAndUnion(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 5, Y: 5, Width: 10, Height: 10}

	inter, ok := a.Intersect(b)
	require.True(t, ok)
	assert.Equal(t, Rect{X: 5, Y: 5, Width: 5, Height: 5}, inter)

	union := a.Union(b)
	assert.Equal(t, Rect{X: 0, Y: 0, Width: 15, Height: 15}, union)

	c := Rect{X: 100, Y: 100, Width: 1, Height: 1}
	_, ok = a.Intersect(c)
	assert.False(t, ok)
}

func TestPointInPolygon(t *testing.T) {
	square := Quadrilateral{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10},
	}
	assert.True(t, PointInPolygon(Point2D{X: 5, Y: 5}, square.Points()))
	assert.False(t, PointInPolygon(Point2D{X: 50, Y: 50}, square.Points()))
}
