package ballotcard

import (
	"math"
	"math/rand"
	"sort"

	"ballotscan/pkg/geometry"

	"gonum.org/v1/gonum/stat"
)

const (
	inlineAngleToleranceRadians = 5.0 * math.Pi / 180.0
	ransacIterations             = 500
	ransacPerpTolerancePixels    = 4.0
	outlierSigmaMultiple         = 4.0
)

// FindPartialBorders is C3: it splits candidates into the four border
// half-plane pools, fits a line through each with the inline fast path or
// the RANSAC slow path, filters interior size outliers, and intersects the
// fitted lines to recover the four corners.
func FindPartialBorders(geom Geometry, candidates []CandidateTimingMark, debug DebugSink) (*Partial, error) {
	if len(candidates) == 0 {
		return nil, missingTimingMarks("no candidate timing marks")
	}

	halfW := float64(geom.CanvasWidth) / 2
	halfH := float64(geom.CanvasHeight) / 2

	// Every pool entry carries its position in candidates, the single arena
	// this partial's border lists are drawn from. A candidate near a corner
	// lands in both a horizontal pool and a vertical pool by construction,
	// so when the fits on both sides keep it, the two border lists end up
	// referencing the same arena slot -- that shared index, not a distance
	// comparison between two independently-fitted copies, is what lets
	// assignSharedCornerMarks recognize a corner mark.
	var topPool, bottomPool, leftPool, rightPool []indexedMark
	for i, c := range candidates {
		center := c.Center()
		im := indexedMark{idx: i, mark: c}
		if center.Y < halfH {
			topPool = append(topPool, im)
		} else {
			bottomPool = append(bottomPool, im)
		}
		if center.X < halfW {
			leftPool = append(leftPool, im)
		} else {
			rightPool = append(rightPool, im)
		}
	}

	topLine, topFit, err := fitBorder(topPool, Top, geom)
	if err != nil {
		return nil, err
	}
	bottomLine, bottomFit, err := fitBorder(bottomPool, Bottom, geom)
	if err != nil {
		return nil, err
	}
	leftLine, leftFit, err := fitBorder(leftPool, Left, geom)
	if err != nil {
		return nil, err
	}
	rightLine, rightFit, err := fitBorder(rightPool, Right, geom)
	if err != nil {
		return nil, err
	}

	topFit = filterInteriorOutliers(topFit, true)
	bottomFit = filterInteriorOutliers(bottomFit, true)
	leftFit = filterInteriorOutliers(leftFit, false)
	rightFit = filterInteriorOutliers(rightFit, false)

	debug.Segment("border-top", topLine)
	debug.Segment("border-bottom", bottomLine)
	debug.Segment("border-left", leftLine)
	debug.Segment("border-right", rightLine)

	tl, ok := topLine.IntersectionPoint(leftLine, geometry.Unbounded)
	if !ok {
		return nil, missingTimingMarks("top and left borders do not intersect")
	}
	tr, ok := topLine.IntersectionPoint(rightLine, geometry.Unbounded)
	if !ok {
		return nil, missingTimingMarks("top and right borders do not intersect")
	}
	bl, ok := bottomLine.IntersectionPoint(leftLine, geometry.Unbounded)
	if !ok {
		return nil, missingTimingMarks("bottom and left borders do not intersect")
	}
	br, ok := bottomLine.IntersectionPoint(rightLine, geometry.Unbounded)
	if !ok {
		return nil, missingTimingMarks("bottom and right borders do not intersect")
	}

	topIdx, topMarks := splitIndexed(topFit)
	bottomIdx, bottomMarks := splitIndexed(bottomFit)
	leftIdx, leftMarks := splitIndexed(leftFit)
	rightIdx, rightMarks := splitIndexed(rightFit)

	partial := &Partial{
		Arena:       candidates,
		Corners:     [4]geometry.Point2D{tl, tr, bl, br},
		TopIdx:      topIdx,
		BottomIdx:   bottomIdx,
		LeftIdx:     leftIdx,
		RightIdx:    rightIdx,
		TopMarks:    topMarks,
		BottomMarks: bottomMarks,
		LeftMarks:   leftMarks,
		RightMarks:  rightMarks,
	}
	assignSharedCornerMarks(partial)
	return partial, nil
}

// indexedMark pairs a candidate with its position in the arena it came
// from, so that border-local operations like sorting and RANSAC sampling
// can run on the value while still letting callers recover which arena
// slot it was.
type indexedMark struct {
	idx  int
	mark CandidateTimingMark
}

func splitIndexed(marks []indexedMark) ([]int, []CandidateTimingMark) {
	idx := make([]int, len(marks))
	out := make([]CandidateTimingMark, len(marks))
	for i, m := range marks {
		idx[i] = m.idx
		out[i] = m.mark
	}
	return idx, out
}

// fitBorder runs the fast inline-subset search, falling back to RANSAC,
// and returns the fitted line plus the member marks sorted along the
// border's primary axis.
func fitBorder(pool []indexedMark, side BorderSide, geom Geometry) (geometry.Segment, []indexedMark, error) {
	if len(pool) == 0 {
		return geometry.Segment{}, nil, missingTimingMarks(side.String() + " border pool is empty")
	}

	horizontal := side == Top || side == Bottom
	targetAngle := 0.0
	if !horizontal {
		targetAngle = math.Pi / 2
	}

	sorted := make([]indexedMark, len(pool))
	copy(sorted, pool)
	sort.Slice(sorted, func(i, j int) bool {
		if horizontal {
			return sorted[i].mark.Center().X < sorted[j].mark.Center().X
		}
		return sorted[i].mark.Center().Y < sorted[j].mark.Center().Y
	})

	rects := make([]geometry.Rect, len(sorted))
	for i, m := range sorted {
		rects[i] = m.mark.Rect
	}

	subsets := geometry.FindInlineSubsets(rects, targetAngle, inlineAngleToleranceRadians)
	if best := pickBestSubset(subsets, sorted, side, geom); best != nil {
		line := fitLineThroughMarks(unwrapMarks(best), horizontal)
		return line, best, nil
	}

	return fitBorderRANSAC(sorted, horizontal)
}

func unwrapMarks(marks []indexedMark) []CandidateTimingMark {
	out := make([]CandidateTimingMark, len(marks))
	for i, m := range marks {
		out[i] = m.mark
	}
	return out
}

// pickBestSubset applies the border-specific tie-break rules from the
// fast-path search: top/bottom favor the largest count with ties broken by
// extreme position, left/right favor the count closest to the expected
// grid height with ties broken by extreme position.
func pickBestSubset(subsets []geometry.InlineSubset, marks []indexedMark, side BorderSide, geom Geometry) []indexedMark {
	if len(subsets) == 0 {
		return nil
	}

	toMarks := func(s geometry.InlineSubset) []indexedMark {
		out := make([]indexedMark, len(s.Indices))
		for i, idx := range s.Indices {
			out[i] = marks[idx]
		}
		return out
	}

	var best []indexedMark
	var bestKey float64
	for _, s := range subsets {
		candidate := toMarks(s)
		unwrapped := unwrapMarks(candidate)
		var key float64
		switch side {
		case Top:
			key = float64(len(candidate)) - averagePosition(unwrapped, true)/1e6
		case Bottom:
			key = float64(len(candidate)) + averagePosition(unwrapped, true)/1e6
		case Left:
			key = -math.Abs(float64(len(candidate)-geom.GridHeight)) - averagePosition(unwrapped, false)/1e6
		case Right:
			key = -math.Abs(float64(len(candidate)-geom.GridHeight)) + averagePosition(unwrapped, false)/1e6
		}
		if best == nil || key > bestKey {
			best = candidate
			bestKey = key
		}
	}
	return best
}

func averagePosition(marks []CandidateTimingMark, vertical bool) float64 {
	if len(marks) == 0 {
		return 0
	}
	var sum float64
	for _, m := range marks {
		c := m.Center()
		if vertical {
			sum += c.Y
		} else {
			sum += c.X
		}
	}
	return sum / float64(len(marks))
}

// fitLineThroughMarks fits a simple least-squares line through the mark
// centers and returns it as a segment spanning the marks' extent.
func fitLineThroughMarks(marks []CandidateTimingMark, horizontal bool) geometry.Segment {
	pts := make([]geometry.Point2D, len(marks))
	for i, m := range marks {
		pts[i] = m.Center()
	}
	return leastSquaresLine(pts, horizontal)
}

// fitBorderRANSAC is the slow-path fallback: sample pairs of candidates,
// extend the segment across the canvas, and keep the sample with the
// largest perpendicular-distance inlier set.
func fitBorderRANSAC(pool []indexedMark, horizontal bool) (geometry.Segment, []indexedMark, error) {
	n := len(pool)
	if n < 2 {
		return geometry.Segment{}, nil, missingTimingMarks("not enough candidates for RANSAC border fit")
	}

	var bestInliers []indexedMark
	var bestLine geometry.Segment

	for iter := 0; iter < ransacIterations; iter++ {
		i, j := rand.Intn(n), rand.Intn(n)
		if i == j {
			continue
		}
		a, b := pool[i].mark.Center(), pool[j].mark.Center()
		if a.Distance(b) < 1e-6 {
			continue
		}
		line := geometry.NewSegment(a, b)

		var inliers []indexedMark
		for _, c := range pool {
			if perpendicularDistance(line, c.mark.Center()) <= ransacPerpTolerancePixels {
				inliers = append(inliers, c)
			}
		}
		if len(inliers) > len(bestInliers) {
			bestInliers = inliers
			bestLine = line
		}
	}

	if len(bestInliers) < 2 {
		return geometry.Segment{}, nil, missingTimingMarks("RANSAC border fit found too few inliers")
	}

	sort.Slice(bestInliers, func(i, j int) bool {
		if horizontal {
			return bestInliers[i].mark.Center().X < bestInliers[j].mark.Center().X
		}
		return bestInliers[i].mark.Center().Y < bestInliers[j].mark.Center().Y
	})

	refined := fitLineThroughMarks(unwrapMarks(bestInliers), horizontal)
	_ = bestLine
	return refined, bestInliers, nil
}

func perpendicularDistance(line geometry.Segment, p geometry.Point2D) float64 {
	v := line.Vector()
	length := math.Hypot(v.X, v.Y)
	if length < 1e-9 {
		return line.Start.Distance(p)
	}
	// |cross(v, p-start)| / |v|
	w := p.Sub(line.Start)
	cross := v.X*w.Y - v.Y*w.X
	return math.Abs(cross) / length
}

// leastSquaresLine fits a line to points and returns it as a segment
// spanning exactly the points' min/max along the primary axis; corner
// finding intersects these segments as unbounded lines.
func leastSquaresLine(pts []geometry.Point2D, horizontal bool) geometry.Segment {
	if len(pts) == 1 {
		if horizontal {
			return geometry.NewSegment(pts[0], geometry.Point2D{X: pts[0].X + 1, Y: pts[0].Y})
		}
		return geometry.NewSegment(pts[0], geometry.Point2D{X: pts[0].X, Y: pts[0].Y + 1})
	}

	// Parameterize along the primary axis so near-vertical / near-horizontal
	// fits are both well-conditioned.
	var sumU, sumV, sumUU, sumUV float64
	n := float64(len(pts))
	for _, p := range pts {
		u, v := p.X, p.Y
		if !horizontal {
			u, v = p.Y, p.X
		}
		sumU += u
		sumV += v
		sumUU += u * u
		sumUV += u * v
	}
	meanU, meanV := sumU/n, sumV/n
	denom := sumUU - n*meanU*meanU
	var slope float64
	if math.Abs(denom) > 1e-9 {
		slope = (sumUV - n*meanU*meanV) / denom
	}
	intercept := meanV - slope*meanU

	uMin, uMax := pts[0].X, pts[0].X
	if !horizontal {
		uMin, uMax = pts[0].Y, pts[0].Y
	}
	for _, p := range pts {
		u := p.X
		if !horizontal {
			u = p.Y
		}
		if u < uMin {
			uMin = u
		}
		if u > uMax {
			uMax = u
		}
	}

	mk := func(u float64) geometry.Point2D {
		v := slope*u + intercept
		if horizontal {
			return geometry.Point2D{X: u, Y: v}
		}
		return geometry.Point2D{X: v, Y: u}
	}

	return geometry.NewSegment(mk(uMin), mk(uMax))
}

// filterInteriorOutliers drops size outliers from a border's marks using a
// population mean/stddev gate at +/-4 sigma. With keepEnds (top/bottom),
// only the interior marks are gated and the untouched extremes are
// re-attached; without it (left/right), every mark is gated.
func filterInteriorOutliers(marks []indexedMark, keepEnds bool) []indexedMark {
	if keepEnds && len(marks) <= 2 {
		return marks
	}

	interior := marks
	if keepEnds {
		interior = marks[1 : len(marks)-1]
	}
	widths := make([]float64, len(interior))
	heights := make([]float64, len(interior))
	for i, m := range interior {
		widths[i] = float64(m.mark.Rect.Width)
		heights[i] = float64(m.mark.Rect.Height)
	}

	wMean, wStd := stat.MeanStdDev(widths, nil)
	hMean, hStd := stat.MeanStdDev(heights, nil)
	if n := float64(len(interior)); n > 1 {
		// MeanStdDev is the sample estimate; rescale to the population one.
		wStd *= math.Sqrt((n - 1) / n)
		hStd *= math.Sqrt((n - 1) / n)
	}

	filtered := make([]indexedMark, 0, len(marks))
	if keepEnds {
		filtered = append(filtered, marks[0])
	}
	for _, m := range interior {
		w, h := float64(m.mark.Rect.Width), float64(m.mark.Rect.Height)
		if math.Abs(w-wMean) > outlierSigmaMultiple*wStd && wStd > 0 {
			continue
		}
		if math.Abs(h-hMean) > outlierSigmaMultiple*hStd && hStd > 0 {
			continue
		}
		filtered = append(filtered, m)
	}
	if keepEnds {
		filtered = append(filtered, marks[len(marks)-1])
	}
	return filtered
}

// assignSharedCornerMarks records, for each corner, the arena mark shared
// by both adjacent borders. A corner is shared when the extreme mark on
// each border resolves to the same arena index -- the same candidate the
// top (or bottom) fit and the left (or right) fit both kept -- not when
// two independently-fitted copies merely sit close together.
func assignSharedCornerMarks(p *Partial) {
	pairs := []cornerPair{
		newCornerPair(cornerTL, p.TopIdx, false, p.LeftIdx, false),
		newCornerPair(cornerTR, p.TopIdx, true, p.RightIdx, false),
		newCornerPair(cornerBL, p.BottomIdx, false, p.LeftIdx, true),
		newCornerPair(cornerBR, p.BottomIdx, true, p.RightIdx, true),
	}
	for _, pr := range pairs {
		if !pr.aOK || !pr.bOK || pr.aIdx != pr.bIdx {
			continue
		}
		shared := p.Arena[pr.aIdx]
		p.CornerMarks[pr.corner] = &shared
	}
}

type cornerPair struct {
	corner     int
	aIdx, bIdx int
	aOK, bOK   bool
}

func newCornerPair(corner int, aIdx []int, aLast bool, bIdx []int, bLast bool) cornerPair {
	a, aOK := idxAt(aIdx, aLast)
	b, bOK := idxAt(bIdx, bLast)
	return cornerPair{corner: corner, aIdx: a, bIdx: b, aOK: aOK, bOK: bOK}
}

func idxAt(idx []int, last bool) (int, bool) {
	if len(idx) == 0 {
		return 0, false
	}
	if last {
		return idx[len(idx)-1], true
	}
	return idx[0], true
}
