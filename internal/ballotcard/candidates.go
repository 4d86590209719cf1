package ballotcard

import (
	"image"
	"image/color"

	"ballotscan/pkg/geometry"

	"gocv.io/x/gocv"
)

// borderExpand is the white border added before contour extraction so a
// timing mark flush with the page edge still forms a closed contour.
const borderExpand = 1

// DetectCandidates is C2: it finds every rectangle in img that could
// plausibly be a timing mark, by contour-extracting the thresholded
// inverse image and filtering by expected size.
func DetectCandidates(geom Geometry, img *BallotImage) ([]CandidateTimingMark, error) {
	mat, err := toGrayMat(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	bordered := gocv.NewMat()
	defer bordered.Close()
	gocv.CopyMakeBorder(mat, &bordered, borderExpand, borderExpand, borderExpand, borderExpand,
		gocv.BorderConstant, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(bordered, &binary, float32(img.Threshold), 255, gocv.ThresholdBinary)

	hierarchy := gocv.NewMat()
	defer hierarchy.Close()
	contours := gocv.FindContoursWithParams(binary, &hierarchy, gocv.RetrievalCComp, gocv.ChainApproxSimple)
	defer contours.Close()

	expectedW := geom.TimingMarkWidth
	expectedH := geom.TimingMarkHeight

	var candidates []CandidateTimingMark
	for i := 0; i < contours.Size(); i++ {
		// In RETR_CCOMP, a contour with a parent is a hole: exactly the
		// "inner" contours a dark timing mark punches into the white
		// background.
		parent := int(hierarchy.GetVeciAt(0, i)[3])
		if parent < 0 {
			continue
		}

		bound := gocv.BoundingRect(contours.At(i))
		r := geometry.Rect{
			X:      bound.Min.X - borderExpand,
			Y:      bound.Min.Y - borderExpand,
			Width:  bound.Dx(),
			Height: bound.Dy(),
		}

		if !rectCouldBeTimingMark(r, geom, expectedW, expectedH) {
			continue
		}

		score := scoreTimingMarkGeometryMatch(img, r, expectedW, expectedH)
		candidates = append(candidates, CandidateTimingMark{
			Rect:       r,
			Score:      score,
			Provenance: Observed,
		})
	}

	return candidates, nil
}

// rectCouldBeTimingMark implements the two-tier size gate: a generous
// [0.2x,1.8x] window near any image edge (corner marks are frequently
// clipped) and a tighter [0.5x,1.8x] window elsewhere.
func rectCouldBeTimingMark(r geometry.Rect, geom Geometry, expectedW, expectedH float64) bool {
	nearEdge := float64(r.X) < expectedW ||
		float64(r.Y) < expectedH ||
		float64(geom.CanvasWidth-r.Right()) < expectedW ||
		float64(geom.CanvasHeight-r.Bottom()) < expectedH

	minFactor, maxFactor := 0.5, 1.8
	if nearEdge {
		minFactor = 0.2
	}

	w, h := float64(r.Width), float64(r.Height)
	return w >= minFactor*expectedW && w <= maxFactor*expectedW &&
		h >= minFactor*expectedH && h <= maxFactor*expectedH
}

// scoreTimingMarkGeometryMatch is shared by C2 (observed candidates) and
// C4 (synthesized inferred marks). The expected rectangle uses the
// geometry's nominal size, not the candidate's observed size, so clipping
// near an edge can't artificially inflate the score.
func scoreTimingMarkGeometryMatch(img *BallotImage, r geometry.Rect, expectedW, expectedH float64) TimingMarkScore {
	center := r.Center()
	expected := geometry.Rect{
		X:      int(center.X - expectedW/2),
		Y:      int(center.Y - expectedH/2),
		Width:  int(expectedW),
		Height: int(expectedH),
	}

	pad := int(expectedH)
	search := geometry.Rect{
		X:      expected.X - pad,
		Y:      expected.Y - pad,
		Width:  expected.Width + 2*pad,
		Height: expected.Height + 2*pad,
	}

	var markDark, paddingLight int
	for y := search.Y; y < search.Bottom(); y++ {
		for x := search.X; x < search.Right(); x++ {
			if !img.InBounds(x, y) {
				continue
			}
			inExpected := x >= expected.X && x < expected.Right() && y >= expected.Y && y < expected.Bottom()
			if inExpected {
				if img.IsDark(x, y) {
					markDark++
				}
			} else if !img.IsDark(x, y) {
				paddingLight++
			}
		}
	}

	expectedArea := expected.Width * expected.Height
	searchArea := search.Width * search.Height
	paddingArea := searchArea - expectedArea

	var markScore, paddingScore float64
	if expectedArea > 0 {
		markScore = float64(markDark) / float64(expectedArea)
	}
	if paddingArea > 0 {
		paddingScore = float64(paddingLight) / float64(paddingArea)
	}

	return TimingMarkScore{MarkScore: Score(markScore), PaddingScore: Score(paddingScore)}
}

func toGrayMat(img *BallotImage) (gocv.Mat, error) {
	gray := image.NewGray(image.Rect(0, 0, img.Width, img.Height))
	copy(gray.Pix, img.Pixels)
	mat, err := gocv.ImageToMatGray(gray)
	if err != nil {
		return gocv.Mat{}, err
	}
	return mat, nil
}
