package ballotcard

import (
	"sync"
)

// StreakOptions tunes the vertical-streak pre-check.
type StreakOptions struct {
	Enabled                     bool
	MaxCumulativeStreakWidth    int
	RetryStreakWidthThreshold   int
}

// InterpretOptions bundles the tunables C9 threads through to its
// sub-stages.
type InterpretOptions struct {
	Completion         CompletionOptions
	Streak             StreakOptions
	MinimumDetectedScale float64
	BubbleTemplate     *BubbleTemplate
	QrDecoder          QrDecoder
}

// QrDecoder is the external collaborator that reads a normalized page
// image and returns ballot metadata encoded in a QR code. It is out of
// scope for this package; callers that don't have one can pass nil and
// every page falls back to the timing-mark metadata decoder.
type QrDecoder interface {
	DecodeQr(img *BallotImage) (BallotPageMetadata, bool)
}

// pageResult is the output of running C2 through C5 on a single page.
type pageResult struct {
	side  PageSide
	page  InterpretedPage
	err   error
}

// InterpretCard is C9: it orchestrates the full front/back sheet pipeline.
func InterpretCard(front, back *BallotImage, geom Geometry, election Election, opts InterpretOptions) (*InterpretedBallotCard, error) {
	if opts.Streak.Enabled {
		if err := checkStreaks(front, "side A", opts.Streak.MaxCumulativeStreakWidth); err != nil {
			return nil, err
		}
		if err := checkStreaks(back, "side B", opts.Streak.MaxCumulativeStreakWidth); err != nil {
			return nil, err
		}
	}

	results := runPagesInParallel(front, back, geom, opts)

	if results[0].err != nil || results[1].err != nil {
		if opts.Streak.Enabled {
			lowerErr := retryStreakCheck(front, back, opts.Streak.RetryStreakWidthThreshold)
			if lowerErr != nil {
				return nil, lowerErr
			}
		}
		if results[0].err != nil {
			return nil, results[0].err
		}
		return nil, results[1].err
	}

	frontPage, backPage := results[0].page, results[1].page

	if opts.QrDecoder != nil {
		frontMeta, frontOK := opts.QrDecoder.DecodeQr(frontPage.Normalized)
		backMeta, backOK := opts.QrDecoder.DecodeQr(backPage.Normalized)
		switch {
		case frontOK && backOK:
			frontPage.Metadata, backPage.Metadata = frontMeta, backMeta
		case frontOK && !backOK:
			frontPage.Metadata = frontMeta
			backPage.Metadata = inferConsecutivePage(frontMeta, 1)
		case backOK && !frontOK:
			backPage.Metadata = backMeta
			frontPage.Metadata = inferConsecutivePage(backMeta, -1)
		}
	}

	if frontPage.Metadata.Kind == QrCodeMetadata && isEvenPage(frontPage.Metadata.PageNumber) {
		frontPage, backPage = backPage, frontPage
	}

	layout, ok := election.GridLayouts[ballotStyleOf(frontPage.Metadata)]
	if !ok {
		return nil, newError(ErrMissingGridLayout)
	}

	scorePage(&frontPage, layout.FrontPositions, opts.BubbleTemplate)
	scorePage(&backPage, layout.BackPositions, opts.BubbleTemplate)

	if err := validateConsistency(frontPage, backPage); err != nil {
		return nil, err
	}

	return &InterpretedBallotCard{Front: frontPage, Back: backPage}, nil
}

func runPagesInParallel(front, back *BallotImage, geom Geometry, opts InterpretOptions) [2]pageResult {
	var results [2]pageResult
	var wg sync.WaitGroup
	wg.Add(2)

	run := func(i int, side PageSide, img *BallotImage) {
		defer wg.Done()
		page, err := interpretOnePage(img, geom, opts)
		results[i] = pageResult{side: side, page: page, err: err}
	}

	go run(0, SideFront, front)
	go run(1, SideBack, back)
	wg.Wait()
	return results
}

func interpretOnePage(img *BallotImage, geom Geometry, opts InterpretOptions) (InterpretedPage, error) {
	candidates, err := DetectCandidates(geom, img)
	if err != nil {
		return InterpretedPage{}, err
	}

	partial, err := FindPartialBorders(geom, candidates, pickDebugSink(opts.Completion.Debug))
	if err != nil {
		return InterpretedPage{}, err
	}

	if opts.MinimumDetectedScale > 0 {
		if err := checkScale(partial, opts.MinimumDetectedScale); err != nil {
			return InterpretedPage{}, err
		}
	}

	complete, err := CompleteGrid(img, geom, partial, opts.Completion)
	if err != nil {
		return InterpretedPage{}, err
	}

	orientation := DetectOrientation(observedCount(partial.TopMarks), observedCount(partial.BottomMarks))
	normalizedImg, normalizedGrid := Normalize(img, complete, orientation)

	metadata, err := DecodeTimingMarkMetadata(normalizedGrid.BottomMarks)
	if err != nil {
		return InterpretedPage{}, err
	}

	return InterpretedPage{
		Grid:        *normalizedGrid,
		Metadata:    metadata,
		Normalized:  normalizedImg,
		Orientation: orientation,
	}, nil
}

func pickDebugSink(d DebugSink) DebugSink {
	if d == nil {
		return NoopDebugSink{}
	}
	return d
}

func observedCount(marks []CandidateTimingMark) int {
	n := 0
	for _, m := range marks {
		if m.Provenance == Observed {
			n++
		}
	}
	return n
}

func checkScale(partial *Partial, minimumScale float64) error {
	// A degenerate (near-zero-length) border implies the detected scale is
	// far below any plausible minimum.
	spacing := 0.0
	if len(partial.TopMarks) > 1 {
		spacing = partial.TopMarks[0].Center().Distance(partial.TopMarks[len(partial.TopMarks)-1].Center()) / float64(len(partial.TopMarks)-1)
	}
	if spacing < minimumScale {
		return newError(ErrInvalidScale)
	}
	return nil
}

func scorePage(page *InterpretedPage, positions []GridPosition, template *BubbleTemplate) {
	marks := make([]ScoredBubbleMark, 0, len(positions))
	var writeIns []ScoredPositionArea

	type bubbleJob struct {
		idx      int
		position GridPosition
	}

	var jobs []bubbleJob
	for _, pos := range positions {
		if pos.Kind == GridPositionBubble {
			jobs = append(jobs, bubbleJob{position: pos})
		} else if pos.Kind == GridPositionWriteIn {
			if scored, ok := ScoreWriteInArea(page.Normalized, &page.Grid, pos); ok {
				writeIns = append(writeIns, scored)
			}
		}
	}

	results := make([]*ScoredBubbleMark, len(jobs))
	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job bubbleJob) {
			defer wg.Done()
			if template == nil {
				return
			}
			center, ok := PointForLocation(&page.Grid, job.position.Column, job.position.Row)
			if !ok {
				return
			}
			if scored, ok := ScoreBubbleMark(page.Normalized, job.position, center, template); ok {
				results[i] = &scored
			}
		}(i, job)
	}
	wg.Wait()

	for _, r := range results {
		if r != nil {
			marks = append(marks, *r)
		}
	}

	page.Marks = marks
	page.WriteIns = writeIns
}

func inferConsecutivePage(known BallotPageMetadata, delta int) BallotPageMetadata {
	return BallotPageMetadata{
		Kind:          QrCodeMetadata,
		PrecinctID:    known.PrecinctID,
		BallotStyleID: known.BallotStyleID,
		PageNumber:    known.PageNumber + delta,
	}
}

func isEvenPage(n int) bool {
	return n%2 == 0
}

func ballotStyleOf(meta BallotPageMetadata) string {
	return meta.BallotStyleID
}

func validateConsistency(front, back InterpretedPage) error {
	if front.Metadata.Kind == QrCodeMetadata && back.Metadata.Kind == QrCodeMetadata {
		if front.Metadata.PrecinctID != back.Metadata.PrecinctID {
			return newError(ErrMismatchedPrecincts)
		}
		if front.Metadata.BallotStyleID != back.Metadata.BallotStyleID {
			return newError(ErrMismatchedBallotStyles)
		}
		if back.Metadata.PageNumber != front.Metadata.PageNumber+1 {
			return newError(ErrNonConsecutivePageNumbers)
		}
	}
	if front.Grid.Geometry != back.Grid.Geometry {
		return newError(ErrMismatchedBallotCardGeometries)
	}
	return nil
}

// checkStreaks implements the streak pre-check: sum dark-pixel counts per
// column over the whole image height, collect every column that is dark
// over its full height, and fail if their count (the cumulative streak
// width) exceeds the threshold.
func checkStreaks(img *BallotImage, label string, maxCumulativeWidth int) error {
	xs := findStreakColumns(img, img.Height) // full column is dark
	if len(xs) == 0 {
		return nil
	}
	if len(xs) > maxCumulativeWidth {
		return verticalStreaks(label, xs)
	}
	return nil
}

func retryStreakCheck(front, back *BallotImage, retryThreshold int) error {
	if xs := findStreakColumns(front, front.Height); len(xs) > retryThreshold {
		return verticalStreaks("side A", xs)
	}
	if xs := findStreakColumns(back, back.Height); len(xs) > retryThreshold {
		return verticalStreaks("side B", xs)
	}
	return nil
}

// findStreakColumns returns the x-coordinates of columns that are dark for
// their entire height -- the "vertical streak" signature of a dirty
// scanner glass.
func findStreakColumns(img *BallotImage, requiredHeight int) []int {
	var xs []int
	for x := 0; x < img.Width; x++ {
		darkRun := 0
		for y := 0; y < img.Height; y++ {
			if img.IsDark(x, y) {
				darkRun++
			}
		}
		if darkRun >= requiredHeight {
			xs = append(xs, x)
		}
	}
	return xs
}
