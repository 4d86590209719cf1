// Package geometry provides the basic geometric primitives shared by the
// timing-mark grid reconstruction pipeline: points, rectangles, segments,
// and affine transforms.
package geometry

import "math"

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPoint2D creates a new Point2D.
func NewPoint2D(x, y float64) Point2D {
	return Point2D{X: x, Y: y}
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Add returns the sum of two points.
func (p Point2D) Add(other Point2D) Point2D {
	return Point2D{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns the difference of two points.
func (p Point2D) Sub(other Point2D) Point2D {
	return Point2D{X: p.X - other.X, Y: p.Y - other.Y}
}

// Scale returns the point scaled by a factor.
func (p Point2D) Scale(factor float64) Point2D {
	return Point2D{X: p.X * factor, Y: p.Y * factor}
}

// PointInt represents a 2D point with integer pixel coordinates.
type PointInt struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ToFloat converts to Point2D.
func (p PointInt) ToFloat() Point2D {
	return Point2D{X: float64(p.X), Y: float64(p.Y)}
}

// Rect is an axis-aligned integer rectangle with inclusive left/top and
// exclusive right/bottom edges, matching pixel-region semantics.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewRect creates a new Rect.
func NewRect(x, y, width, height int) Rect {
	return Rect{X: x, Y: y, Width: width, Height: height}
}

// Right returns the exclusive right edge.
func (r Rect) Right() int { return r.X + r.Width }

// Bottom returns the exclusive bottom edge.
func (r Rect) Bottom() int { return r.Y + r.Height }

// Center returns the center point of the rectangle.
func (r Rect) Center() Point2D {
	return Point2D{X: float64(r.X) + float64(r.Width)/2, Y: float64(r.Y) + float64(r.Height)/2}
}

// Contains returns true if the point lies within the rectangle's
// half-open bounds.
func (r Rect) Contains(p PointInt) bool {
	return p.X >= r.X && p.X < r.Right() && p.Y >= r.Y && p.Y < r.Bottom()
}

// Intersect returns the overlapping region of two rectangles, or false if
// they do not overlap.
func (r Rect) Intersect(other Rect) (Rect, bool) {
	x0 := max(r.X, other.X)
	y0 := max(r.Y, other.Y)
	x1 := min(r.Right(), other.Right())
	y1 := min(r.Bottom(), other.Bottom())
	if x1 <= x0 || y1 <= y0 {
		return Rect{}, false
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}, true
}

// Union returns the smallest rectangle containing both rectangles.
func (r Rect) Union(other Rect) Rect {
	x0 := min(r.X, other.X)
	y0 := min(r.Y, other.Y)
	x1 := max(r.Right(), other.Right())
	y1 := max(r.Bottom(), other.Bottom())
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Size holds a width and a height in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Segment is an ordered pair of real points, the unit the border finder
// and grid interpolation both work in once candidate rectangles have been
// reduced to their centers.
type Segment struct {
	Start Point2D
	End   Point2D
}

// NewSegment creates a segment between two points.
func NewSegment(start, end Point2D) Segment {
	return Segment{Start: start, End: end}
}

// Vector returns the end-minus-start vector.
func (s Segment) Vector() Point2D {
	return s.End.Sub(s.Start)
}

// Length returns the Euclidean length of the segment.
func (s Segment) Length() float64 {
	return s.Start.Distance(s.End)
}

// Angle returns the segment's direction in radians, in image coordinates
// (Y grows downward), via atan2(dy, dx).
func (s Segment) Angle() float64 {
	v := s.Vector()
	return math.Atan2(v.Y, v.X)
}

// WithLength returns a new segment sharing this one's start point and
// direction but with the given magnitude.
func (s Segment) WithLength(length float64) Segment {
	v := s.Vector()
	n := math.Hypot(v.X, v.Y)
	if n < 1e-12 {
		return Segment{Start: s.Start, End: s.Start}
	}
	scale := length / n
	return Segment{
		Start: s.Start,
		End:   Point2D{X: s.Start.X + v.X*scale, Y: s.Start.Y + v.Y*scale},
	}
}

// IntersectionBound selects whether Segment.IntersectionPoint treats its
// operands as bounded segments or as infinite lines.
type IntersectionBound int

const (
	// Segments requires the intersection to fall within both segments.
	Segments IntersectionBound = iota
	// Unbounded treats both segments as infinite lines.
	Unbounded
)

// IntersectionPoint returns the intersection of this segment with other,
// using the standard cross-product line formula. Under Segments bound,
// returns false if the intersection falls outside either segment's span.
func (s Segment) IntersectionPoint(other Segment, bound IntersectionBound) (Point2D, bool) {
	x1, y1 := s.Start.X, s.Start.Y
	x2, y2 := s.End.X, s.End.Y
	x3, y3 := other.Start.X, other.Start.Y
	x4, y4 := other.End.X, other.End.Y

	denom := (x1-x2)*(y3-y4) - (y1-y2)*(x3-x4)
	if math.Abs(denom) < 1e-10 {
		return Point2D{}, false
	}

	tNum := (x1-x3)*(y3-y4) - (y1-y3)*(x3-x4)
	uNum := (x1-x3)*(y1-y2) - (y1-y3)*(x1-x2)
	t := tNum / denom
	u := uNum / denom

	if bound == Segments && (t < 0 || t > 1 || u < 0 || u > 1) {
		return Point2D{}, false
	}

	return Point2D{X: x1 + t*(x2-x1), Y: y1 + t*(y2-y1)}, true
}

// AffineTransform represents a 2x3 affine transformation matrix.
// [a b tx]
// [c d ty]
type AffineTransform struct {
	A, B, TX float64
	C, D, TY float64
}

// Identity returns the identity transform.
func Identity() AffineTransform {
	return AffineTransform{A: 1, D: 1}
}

// Translation returns a translation transform.
func Translation(tx, ty float64) AffineTransform {
	return AffineTransform{A: 1, D: 1, TX: tx, TY: ty}
}

// Rotation returns a rotation transform around the origin.
func Rotation(radians float64) AffineTransform {
	cos := math.Cos(radians)
	sin := math.Sin(radians)
	return AffineTransform{A: cos, B: -sin, C: sin, D: cos}
}

// Apply applies the transform to a point.
func (t AffineTransform) Apply(p Point2D) Point2D {
	return Point2D{
		X: t.A*p.X + t.B*p.Y + t.TX,
		Y: t.C*p.X + t.D*p.Y + t.TY,
	}
}

// Inverse returns the inverse transform, if it exists.
func (t AffineTransform) Inverse() (AffineTransform, bool) {
	det := t.A*t.D - t.B*t.C
	if math.Abs(det) < 1e-10 {
		return AffineTransform{}, false
	}
	invDet := 1.0 / det
	return AffineTransform{
		A:  t.D * invDet,
		B:  -t.B * invDet,
		TX: (t.B*t.TY - t.D*t.TX) * invDet,
		C:  -t.C * invDet,
		D:  t.A * invDet,
		TY: (t.C*t.TX - t.A*t.TY) * invDet,
	}, true
}

// Centroid computes the centroid (average position) of a set of points.
func Centroid(points []Point2D) Point2D {
	if len(points) == 0 {
		return Point2D{}
	}
	var sumX, sumY float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
	}
	n := float64(len(points))
	return Point2D{X: sumX / n, Y: sumY / n}
}

// AngleDiff returns the smallest signed angular difference a-b, normalized
// to (-π, π].
func AngleDiff(a, b float64) float64 {
	d := math.Mod(a-b, 2*math.Pi)
	if d <= -math.Pi {
		d += 2 * math.Pi
	} else if d > math.Pi {
		d -= 2 * math.Pi
	}
	return d
}

// InlineSubset is one maximal run of rectangles discovered by
// FindInlineSubsets, in the order they were matched.
type InlineSubset struct {
	Indices []int
	Rects   []Rect
}

// FindInlineSubsets scans rects (assumed already sorted along the axis
// implied by targetAngle) and greedily groups consecutive centers whose
// pairwise angle is within maxError of targetAngle, emitting each maximal
// run. It is the fast path used by border discovery before falling back to
// a RANSAC-style search: a single linear pass, no combinatorial search.
func FindInlineSubsets(rects []Rect, targetAngle, maxError float64) []InlineSubset {
	var subsets []InlineSubset
	if len(rects) == 0 {
		return subsets
	}

	current := InlineSubset{Indices: []int{0}, Rects: []Rect{rects[0]}}
	for i := 1; i < len(rects); i++ {
		prevCenter := rects[i-1].Center()
		center := rects[i].Center()
		seg := NewSegment(prevCenter, center)
		if seg.Length() < 1e-9 {
			continue
		}
		diff := AngleDiff(seg.Angle(), targetAngle)
		if math.Abs(diff) <= maxError {
			current.Indices = append(current.Indices, i)
			current.Rects = append(current.Rects, rects[i])
			continue
		}
		if len(current.Rects) > 1 {
			subsets = append(subsets, current)
		}
		current = InlineSubset{Indices: []int{i}, Rects: []Rect{rects[i]}}
	}
	if len(current.Rects) > 1 {
		subsets = append(subsets, current)
	}
	return subsets
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
