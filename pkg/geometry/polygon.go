package geometry

// Quadrilateral is four corner points in order (not required to be
// axis-aligned), used to bound a write-in area derived from four
// interpolated grid positions.
type Quadrilateral [4]Point2D

// Points returns the corners as a slice, suitable for PointInPolygon.
func (q Quadrilateral) Points() []Point2D {
	return q[:]
}

// PointInPolygon tests if a point is inside a polygon using ray casting.
func PointInPolygon(p Point2D, polygon []Point2D) bool {
	if len(polygon) < 3 {
		return false
	}

	inside := false
	n := len(polygon)

	for i := 0; i < n; i++ {
		j := (i + 1) % n
		pi, pj := polygon[i], polygon[j]

		if ((pi.Y > p.Y) != (pj.Y > p.Y)) &&
			(p.X < (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y)+pi.X) {
			inside = !inside
		}
	}

	return inside
}
