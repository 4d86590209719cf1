package ballotcard

import (
	"fmt"
	"math"
	"sort"

	"ballotscan/pkg/geometry"
)

// CompletionOptions are the caller-supplied tunables for C4.
type CompletionOptions struct {
	AllowedInsetFraction float64
	InferTimingMarks     bool
	Debug                DebugSink
}

const (
	minCoverageFraction   = 0.25
	stretchToleranceFactor = 1.2
	maxRotationDegrees     = 2.0
	maxCornerSkewDegrees   = 1.0
	minCornerMarkScore     = 0.8
	minCornerPaddingScore  = 0.5
)

// CompleteGrid is C4: it fills in missing timing marks along each border of
// a Partial, validates the result, and returns a corner-closed Complete
// grid ready for orientation and lookup.
func CompleteGrid(img *BallotImage, geom Geometry, partial *Partial, opts CompletionOptions) (*Complete, error) {
	if err := validateEdgeInset(geom, partial, opts.AllowedInsetFraction); err != nil {
		return nil, err
	}

	minVertical := int(math.Ceil(minCoverageFraction * float64(geom.GridHeight)))
	if len(partial.LeftMarks) < minVertical || len(partial.RightMarks) < minVertical {
		return nil, &InterpretError{Kind_: ErrMissingTimingMarks, Reason: "too few vertical timing marks"}
	}

	medianHorizontal := medianSpacing(partial.TopMarks, partial.BottomMarks, true)
	medianVertical := medianSpacing(partial.LeftMarks, partial.RightMarks, false)

	top, topInferred := completeBorder(img, geom, partial.TopMarks, partial.Corners[cornerTL], partial.Corners[cornerTR], geom.GridWidth, medianHorizontal, opts.InferTimingMarks)
	bottom, bottomInferred := completeBorder(img, geom, partial.BottomMarks, partial.Corners[cornerBL], partial.Corners[cornerBR], geom.GridWidth, medianHorizontal, opts.InferTimingMarks)
	left, leftInferred := completeBorder(img, geom, partial.LeftMarks, partial.Corners[cornerTL], partial.Corners[cornerBL], geom.GridHeight, medianVertical, opts.InferTimingMarks)
	right, rightInferred := completeBorder(img, geom, partial.RightMarks, partial.Corners[cornerTR], partial.Corners[cornerBR], geom.GridHeight, medianVertical, opts.InferTimingMarks)

	if len(top) != len(bottom) {
		return nil, missingTimingMarks("mismatched inferred timing marks: top/bottom")
	}
	if len(left) != len(right) {
		return nil, missingTimingMarks("mismatched inferred timing marks: left/right")
	}

	if err := checkVerticalStretch(left, medianVertical); err != nil {
		return nil, err
	}
	if err := checkVerticalStretch(right, medianVertical); err != nil {
		return nil, err
	}

	corners, err := resolveCorners(partial, top, bottom, left, right)
	if err != nil {
		return nil, err
	}

	if topInferred || bottomInferred || leftInferred || rightInferred {
		if err := checkRotationAndSkew(corners); err != nil {
			return nil, err
		}
	}

	complete := &Complete{
		Geometry:    geom,
		Corners:     corners,
		CornerMarks: [4]CandidateTimingMark{top[0], top[len(top)-1], bottom[0], bottom[len(bottom)-1]},
		TopMarks:    top,
		BottomMarks: bottom,
		LeftMarks:   left,
		RightMarks:  right,
	}
	return complete, nil
}

func validateEdgeInset(geom Geometry, p *Partial, allowedFraction float64) error {
	maxInsetW := allowedFraction * float64(geom.CanvasWidth)
	maxInsetH := allowedFraction * float64(geom.CanvasHeight)

	minTop := minY(p.TopMarks)
	maxBottom := maxY(p.BottomMarks, float64(geom.CanvasHeight))
	minLeft := minX(p.LeftMarks)
	maxRight := maxX(p.RightMarks, float64(geom.CanvasWidth))

	if minTop > maxInsetW {
		return newError(ErrBorderInsetNotFound)
	}
	if float64(geom.CanvasHeight)-maxBottom > maxInsetW {
		return newError(ErrBorderInsetNotFound)
	}
	if minLeft > maxInsetH {
		return newError(ErrBorderInsetNotFound)
	}
	if float64(geom.CanvasWidth)-maxRight > maxInsetH {
		return newError(ErrBorderInsetNotFound)
	}
	return nil
}

func minY(marks []CandidateTimingMark) float64 {
	v := math.Inf(1)
	for _, m := range marks {
		if c := m.Center().Y; c < v {
			v = c
		}
	}
	return v
}

func maxY(marks []CandidateTimingMark, fallback float64) float64 {
	v := math.Inf(-1)
	for _, m := range marks {
		if c := m.Center().Y; c > v {
			v = c
		}
	}
	if math.IsInf(v, -1) {
		return fallback
	}
	return v
}

func minX(marks []CandidateTimingMark) float64 {
	v := math.Inf(1)
	for _, m := range marks {
		if c := m.Center().X; c < v {
			v = c
		}
	}
	return v
}

func maxX(marks []CandidateTimingMark, fallback float64) float64 {
	v := math.Inf(-1)
	for _, m := range marks {
		if c := m.Center().X; c > v {
			v = c
		}
	}
	if math.IsInf(v, -1) {
		return fallback
	}
	return v
}

// medianSpacing computes the median of the between-mark center distances
// across two opposing borders, used as the authoritative step size for
// inference along that axis.
func medianSpacing(a, b []CandidateTimingMark, horizontal bool) float64 {
	var dists []float64
	addSpacings := func(marks []CandidateTimingMark) {
		for i := 1; i < len(marks); i++ {
			dists = append(dists, marks[i].Center().Distance(marks[i-1].Center()))
		}
	}
	addSpacings(a)
	addSpacings(b)
	if len(dists) == 0 {
		return 1
	}
	sort.Float64s(dists)
	n := len(dists)
	if n%2 == 1 {
		return dists[n/2]
	}
	return (dists[n/2-1] + dists[n/2]) / 2
}

// completeBorder walks a cursor from startCorner to endCorner in steps of
// medianSpacing, adopting an existing mark when one is close enough to the
// cursor or synthesizing one otherwise, until exactly expectedCount marks
// have been emitted.
func completeBorder(img *BallotImage, geom Geometry, observed []CandidateTimingMark, startCorner, endCorner geometry.Point2D, expectedCount int, medianSpacing_ float64, infer bool) ([]CandidateTimingMark, bool) {
	if !infer {
		return observed, false
	}

	step := geometry.NewSegment(startCorner, endCorner)
	length := step.Length()
	if length < 1e-9 || medianSpacing_ < 1e-9 {
		return observed, false
	}
	stepVec := step.Vector().Scale(medianSpacing_ / length)

	remaining := make([]CandidateTimingMark, len(observed))
	copy(remaining, observed)

	cursor := startCorner
	result := make([]CandidateTimingMark, 0, expectedCount)
	inferredAny := false

	for len(result) < expectedCount {
		idx, dist := nearestMark(remaining, cursor)
		if idx >= 0 && dist <= medianSpacing_/2 {
			mark := remaining[idx]
			result = append(result, mark)
			cursor = mark.Center().Add(stepVec)
			remaining = append(remaining[:idx], remaining[idx+1:]...)
			continue
		}

		synthesized := geometry.Rect{
			X:      int(cursor.X - geom.TimingMarkWidth/2),
			Y:      int(cursor.Y - geom.TimingMarkHeight/2),
			Width:  int(geom.TimingMarkWidth),
			Height: int(geom.TimingMarkHeight),
		}
		score := scoreTimingMarkGeometryMatch(img, synthesized, geom.TimingMarkWidth, geom.TimingMarkHeight)
		result = append(result, CandidateTimingMark{Rect: synthesized, Score: score, Provenance: Inferred})
		inferredAny = true
		cursor = cursor.Add(stepVec)
	}

	return result, inferredAny
}

func nearestMark(marks []CandidateTimingMark, cursor geometry.Point2D) (int, float64) {
	best := -1
	bestDist := math.Inf(1)
	for i, m := range marks {
		d := m.Center().Distance(cursor)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best, bestDist
}

func checkVerticalStretch(marks []CandidateTimingMark, medianVertical float64) error {
	for i := 1; i < len(marks); i++ {
		d := marks[i].Center().Distance(marks[i-1].Center())
		if d > medianVertical*stretchToleranceFactor {
			return &InterpretError{Kind_: ErrMissingTimingMarks, Reason: fmt.Sprintf("high stretch at index %d", i)}
		}
	}
	return nil
}

func resolveCorners(partial *Partial, top, bottom, left, right []CandidateTimingMark) ([4]geometry.Point2D, error) {
	corners := partial.Corners

	check := func(idx int, observedMark *CandidateTimingMark, fallback CandidateTimingMark) error {
		if observedMark != nil {
			return nil
		}
		if fallback.Score.MarkScore >= minCornerMarkScore && fallback.Score.PaddingScore >= minCornerPaddingScore {
			return nil
		}
		return newError(ErrCouldNotComputeLayout)
	}

	if err := check(cornerTL, partial.CornerMarks[cornerTL], top[0]); err != nil {
		return corners, missingCorners()
	}
	if err := check(cornerTR, partial.CornerMarks[cornerTR], top[len(top)-1]); err != nil {
		return corners, missingCorners()
	}
	if err := check(cornerBL, partial.CornerMarks[cornerBL], bottom[0]); err != nil {
		return corners, missingCorners()
	}
	if err := check(cornerBR, partial.CornerMarks[cornerBR], bottom[len(bottom)-1]); err != nil {
		return corners, missingCorners()
	}

	return corners, nil
}

func missingCorners() error {
	return &InterpretError{Kind_: ErrMissingTimingMarks, Reason: "missing corners"}
}

func checkRotationAndSkew(corners [4]geometry.Point2D) error {
	tl, tr, bl, br := corners[cornerTL], corners[cornerTR], corners[cornerBL], corners[cornerBR]

	topAngle := geometry.NewSegment(tl, tr).Angle()
	bottomAngle := geometry.NewSegment(bl, br).Angle()
	leftAngle := geometry.NewSegment(tl, bl).Angle()
	rightAngle := geometry.NewSegment(tr, br).Angle()

	maxRot := maxRotationDegrees * math.Pi / 180
	if math.Abs(geometry.AngleDiff(topAngle, 0)) > maxRot || math.Abs(geometry.AngleDiff(bottomAngle, 0)) > maxRot {
		return &InterpretError{Kind_: ErrMissingTimingMarks, Reason: "excess horizontal rotation"}
	}
	if math.Abs(geometry.AngleDiff(leftAngle, math.Pi/2)) > maxRot || math.Abs(geometry.AngleDiff(rightAngle, math.Pi/2)) > maxRot {
		return &InterpretError{Kind_: ErrMissingTimingMarks, Reason: "excess vertical rotation"}
	}

	maxSkew := maxCornerSkewDegrees * math.Pi / 180
	skews := []float64{
		math.Abs(geometry.AngleDiff(leftAngle-topAngle, math.Pi/2)),
		math.Abs(geometry.AngleDiff(rightAngle-topAngle, math.Pi/2)),
		math.Abs(geometry.AngleDiff(leftAngle-bottomAngle, math.Pi/2)),
		math.Abs(geometry.AngleDiff(rightAngle-bottomAngle, math.Pi/2)),
	}
	for _, s := range skews {
		if s > maxSkew {
			return &InterpretError{Kind_: ErrMissingTimingMarks, Reason: "excess corner skew"}
		}
	}
	return nil
}
