// Package ballotcard reconstructs the timing-mark grid printed around the
// perimeter of a scanned ballot page and scores bubbles and write-in areas
// against an election's grid layout.
package ballotcard

import "ballotscan/pkg/geometry"

// Geometry describes the physical/pixel layout of a ballot page: its canvas
// size, the logical timing-mark grid dimensions, and the nominal timing-mark
// size in pixels.
type Geometry struct {
	CanvasWidth, CanvasHeight   int
	GridWidth, GridHeight       int
	TimingMarkWidth             float64
	TimingMarkHeight            float64
}

// Provenance records whether a timing mark was actually observed in the
// image or synthesized during grid completion.
type Provenance int

const (
	Observed Provenance = iota
	Inferred
)

// Score is a unit-interval value in [0,1], rendered as a percentage for
// debug output.
type Score float64

func (s Score) String() string {
	return percentString(float64(s))
}

func percentString(v float64) string {
	const digits = "0123456789"
	hundredths := int(v*10000 + 0.5)
	whole := hundredths / 100
	frac := hundredths % 100
	buf := []byte{digits[whole/100%10], digits[whole/10%10], digits[whole%10], '.', digits[frac/10], digits[frac%10], '%'}
	// trim a leading zero pair if whole < 100
	i := 0
	for i < 2 && buf[i] == '0' {
		i++
	}
	return string(buf[i:])
}

// TimingMarkScore carries the two unit-interval measurements C2 computes
// for every candidate rectangle.
type TimingMarkScore struct {
	MarkScore    Score
	PaddingScore Score
}

// CandidateTimingMark is a detected or synthesized timing mark: a
// rectangle, its scores, and whether it was observed in the source image or
// inferred during grid completion.
type CandidateTimingMark struct {
	Rect       geometry.Rect
	Score      TimingMarkScore
	Provenance Provenance
}

// Center returns the mark's rectangle center.
func (m CandidateTimingMark) Center() geometry.Point2D {
	return m.Rect.Center()
}

// BorderSide names one of the four perimeter borders of the grid.
type BorderSide int

const (
	Top BorderSide = iota
	Bottom
	Left
	Right
)

func (s BorderSide) String() string {
	switch s {
	case Top:
		return "top"
	case Bottom:
		return "bottom"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// Partial is a best-effort, possibly incomplete snapshot of the four
// borders found directly in the image, before gap-filling.
//
// Arena is the single canonical store of every candidate mark that went
// into the four borders; TopIdx/BottomIdx/LeftIdx/RightIdx are arena
// indices, not copies, so that a mark shared between two borders (a
// corner mark, seen by both the horizontal and the vertical border fit)
// can be recognized by identity -- the same arena index appearing in both
// lists -- rather than by comparing rectangle positions.
type Partial struct {
	Arena       []CandidateTimingMark
	Corners     [4]geometry.Point2D // indexed by cornerIndex: TL, TR, BL, BR
	CornerMarks [4]*CandidateTimingMark
	TopIdx      []int
	BottomIdx   []int
	LeftIdx     []int
	RightIdx    []int
	TopMarks    []CandidateTimingMark
	BottomMarks []CandidateTimingMark
	LeftMarks   []CandidateTimingMark
	RightMarks  []CandidateTimingMark
}

const (
	cornerTL = iota
	cornerTR
	cornerBL
	cornerBR
)

// Complete is a fully reconstructed timing-mark grid: every border has
// exactly the dimension-matching number of marks and every corner is
// present, either observed or inferred.
type Complete struct {
	Geometry    Geometry
	Corners     [4]geometry.Point2D
	CornerMarks [4]CandidateTimingMark
	TopMarks    []CandidateTimingMark
	BottomMarks []CandidateTimingMark
	LeftMarks   []CandidateTimingMark
	RightMarks  []CandidateTimingMark
}

// MetadataKind distinguishes the two ways a ballot page's metadata may be
// carried.
type MetadataKind int

const (
	TimingMarkMetadata MetadataKind = iota
	QrCodeMetadata
)

// BallotPageMetadata is a tagged union over the two decoders C5 may invoke.
type BallotPageMetadata struct {
	Kind MetadataKind

	// Populated when Kind == TimingMarkMetadata.
	Bits []bool

	// Populated when Kind == QrCodeMetadata.
	PrecinctID   string
	BallotStyleID string
	PageNumber   int
}

// GridPositionKind distinguishes a bubble target from a write-in area in a
// GridLayout.
type GridPositionKind int

const (
	GridPositionBubble GridPositionKind = iota
	GridPositionWriteIn
)

// GridPosition is one scoreable target on the page, expressed in grid
// (column, row) units.
type GridPosition struct {
	Kind GridPositionKind

	// Populated when Kind == GridPositionBubble.
	Column, Row float64
	OptionID    string

	// Populated when Kind == GridPositionWriteIn; a rectangle in grid
	// units (fractional columns/rows).
	AreaX, AreaY, AreaW, AreaH float64
	ContestID                  string
}

// GridLayout is the caller-supplied, already-parsed contract describing
// where every bubble and write-in area sits on one ballot style's pages.
type GridLayout struct {
	BallotStyleID string
	FrontGeometry Geometry
	BackGeometry  Geometry
	FrontPositions []GridPosition
	BackPositions  []GridPosition
}

// Election is the narrow, already-parsed contract the ballot card driver
// needs: a lookup from ballot style to grid layout.
type Election struct {
	GridLayouts map[string]GridLayout
}

// ScoredBubbleMark is the C7 output for one bubble.
type ScoredBubbleMark struct {
	Position    GridPosition
	ExpectedRect geometry.Rect
	MatchedRect  geometry.Rect
	MatchScore   Score
	FillScore    Score
}

// ScoredPositionArea is the C8 output for one write-in area.
type ScoredPositionArea struct {
	Position GridPosition
	Shape    geometry.Quadrilateral
	Score    Score
}

// BallotImage is a decoded grayscale page plus its binarization threshold.
type BallotImage struct {
	Pixels    []byte // row-major, one byte per pixel
	Width     int
	Height    int
	Threshold byte // pixels <= Threshold are dark
}

// At returns the pixel value at (x,y). Callers must keep x,y in bounds.
func (b *BallotImage) At(x, y int) byte {
	return b.Pixels[y*b.Width+x]
}

// IsDark reports whether the pixel at (x,y) is at or below the threshold.
func (b *BallotImage) IsDark(x, y int) bool {
	return b.At(x, y) <= b.Threshold
}

// InBounds reports whether (x,y) is a valid pixel coordinate.
func (b *BallotImage) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.Width && y < b.Height
}

// PageSide distinguishes a sheet's two scanned sides.
type PageSide int

const (
	SideFront PageSide = iota
	SideBack
)

// Orientation is the page orientation detected by C5.
type Orientation int

const (
	Portrait Orientation = iota
	PortraitReversed
)

// InterpretedPage is one fully interpreted side of a sheet.
type InterpretedPage struct {
	Grid       Complete
	Metadata   BallotPageMetadata
	Marks      []ScoredBubbleMark
	WriteIns   []ScoredPositionArea
	Normalized *BallotImage
	Orientation Orientation
}

// InterpretedBallotCard is the C9 output: both sides of a sheet.
type InterpretedBallotCard struct {
	Front InterpretedPage
	Back  InterpretedPage
}
