package ballotcard

import "ballotscan/pkg/geometry"

// DefaultMaximumSearchDistance is D in the offset search below, matching
// the reference implementation's default.
const DefaultMaximumSearchDistance = 7

// BubbleTemplate is a small thresholded reference image for one bubble
// shape (already binarized: true means dark).
type BubbleTemplate struct {
	Width, Height int
	Dark          []bool // row-major, len == Width*Height
}

func (t *BubbleTemplate) at(x, y int) bool {
	return t.Dark[y*t.Width+x]
}

// ScoreBubbleMark is C7. It searches a small neighborhood around
// expectedCenter for the offset that best matches template, then reports
// both the match score (used to localize the bubble) and the fill score
// (used to decide whether it was marked).
//
// The match/fill convention below is the one the reference implementation
// settled on: match score is the fraction of pixels that agree (read as
// white) when the thresholded crop is XORed with the template; fill score
// is computed at the best match position as the fraction of the template's
// dark pixels that are also dark in the crop, using the reversed diff
// operand order from the match-score computation.
func ScoreBubbleMark(img *BallotImage, position GridPosition, expectedCenter geometry.Point2D, template *BubbleTemplate) (ScoredBubbleMark, bool) {
	w, h := template.Width, template.Height
	cx, cy := int(expectedCenter.X+0.5), int(expectedCenter.Y+0.5)
	left, top := cx-w/2, cy-h/2

	expectedRect := geometry.Rect{X: left, Y: top, Width: w, Height: h}

	var (
		found      bool
		bestX, bestY int
		bestMatch    float64
	)

	for dy := -DefaultMaximumSearchDistance; dy < DefaultMaximumSearchDistance; dy++ {
		for dx := -DefaultMaximumSearchDistance; dx < DefaultMaximumSearchDistance; dx++ {
			x, y := left+dx, top+dy
			if x < 0 || y < 0 {
				continue
			}
			if x+w > img.Width || y+h > img.Height {
				continue
			}

			match := xorWhiteFraction(img, x, y, template)
			if !found || match > bestMatch {
				found = true
				bestMatch = match
				bestX, bestY = x, y
			}
		}
	}

	if !found {
		return ScoredBubbleMark{}, false
	}

	fill := darkAgreementFraction(img, bestX, bestY, template)
	matchedRect := geometry.Rect{X: bestX, Y: bestY, Width: w, Height: h}

	return ScoredBubbleMark{
		Position:     position,
		ExpectedRect: expectedRect,
		MatchedRect:  matchedRect,
		MatchScore:   Score(bestMatch),
		FillScore:    Score(fill),
	}, true
}

// xorWhiteFraction computes, over the crop at (x,y), the fraction of
// pixels where the thresholded source and the template agree (both dark or
// both light) -- i.e. the fraction that reads white after XOR, since XOR
// of two equal bits is 0 (rendered white under this package's dark=1
// convention).
func xorWhiteFraction(img *BallotImage, x, y int, tpl *BubbleTemplate) float64 {
	var agree int
	for ty := 0; ty < tpl.Height; ty++ {
		for tx := 0; tx < tpl.Width; tx++ {
			srcDark := img.IsDark(x+tx, y+ty)
			tplDark := tpl.at(tx, ty)
			if srcDark == tplDark {
				agree++
			}
		}
	}
	total := tpl.Width * tpl.Height
	if total == 0 {
		return 0
	}
	return float64(agree) / float64(total)
}

// darkAgreementFraction computes, at the best-match crop, the fraction of
// the template's dark pixels that are also dark in the source -- the fill
// ratio used to decide whether the voter marked the bubble. Operand order
// is reversed relative to xorWhiteFraction: here the template drives which
// pixels are counted.
func darkAgreementFraction(img *BallotImage, x, y int, tpl *BubbleTemplate) float64 {
	var templateDark, bothDark int
	for ty := 0; ty < tpl.Height; ty++ {
		for tx := 0; tx < tpl.Width; tx++ {
			if !tpl.at(tx, ty) {
				continue
			}
			templateDark++
			if img.IsDark(x+tx, y+ty) {
				bothDark++
			}
		}
	}
	if templateDark == 0 {
		return 0
	}
	return float64(bothDark) / float64(templateDark)
}

// ScoreWriteInArea is C8: it interpolates the four corners of a write-in
// area's grid-unit rectangle into image space, then scores the fraction of
// dark pixels inside the resulting quadrilateral.
func ScoreWriteInArea(img *BallotImage, grid *Complete, position GridPosition) (ScoredPositionArea, bool) {
	x0, y0 := position.AreaX, position.AreaY
	x1, y1 := position.AreaX+position.AreaW, position.AreaY+position.AreaH

	tl, ok := PointForLocation(grid, x0, y0)
	if !ok {
		return ScoredPositionArea{}, false
	}
	tr, ok := PointForLocation(grid, x1, y0)
	if !ok {
		return ScoredPositionArea{}, false
	}
	br, ok := PointForLocation(grid, x1, y1)
	if !ok {
		return ScoredPositionArea{}, false
	}
	bl, ok := PointForLocation(grid, x0, y1)
	if !ok {
		return ScoredPositionArea{}, false
	}

	quad := geometry.Quadrilateral{tl, tr, br, bl}
	score := countPixelsInShape(img, quad)

	return ScoredPositionArea{Position: position, Shape: quad, Score: Score(score)}, true
}

// countPixelsInShape scans the quadrilateral's bounding box and returns the
// fraction of pixels inside the shape that are dark.
func countPixelsInShape(img *BallotImage, quad geometry.Quadrilateral) float64 {
	minX, minY := quad[0].X, quad[0].Y
	maxX, maxY := quad[0].X, quad[0].Y
	for _, p := range quad {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	points := quad.Points()
	var dark, total int
	for y := int(minY); y <= int(maxY); y++ {
		for x := int(minX); x <= int(maxX); x++ {
			if !img.InBounds(x, y) {
				continue
			}
			if !geometry.PointInPolygon(geometry.Point2D{X: float64(x), Y: float64(y)}, points) {
				continue
			}
			total++
			if img.IsDark(x, y) {
				dark++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(dark) / float64(total)
}
