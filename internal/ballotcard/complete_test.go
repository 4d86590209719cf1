package ballotcard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Regression test for the C4 intra-page symmetry check: a border length
// mismatch is a missing-timing-marks condition, distinct from the C9
// cross-page geometry mismatch that reuses ErrMismatchedBallotCardGeometries
// in validateConsistency.
func TestCompleteGridReportsMissingTimingMarksOnTopBottomLengthMismatch(t *testing.T) {
	geom := Geometry{CanvasWidth: 1000, CanvasHeight: 1000, GridWidth: 5, GridHeight: 4, TimingMarkWidth: 10, TimingMarkHeight: 10}
	partial := &Partial{
		TopMarks:    []CandidateTimingMark{syntheticMark(10, 10, 10, 10), syntheticMark(50, 10, 10, 10), syntheticMark(90, 10, 10, 10)},
		BottomMarks: []CandidateTimingMark{syntheticMark(10, 990, 10, 10), syntheticMark(90, 990, 10, 10)},
		LeftMarks:   []CandidateTimingMark{syntheticMark(10, 10, 10, 10)},
		RightMarks:  []CandidateTimingMark{syntheticMark(990, 10, 10, 10)},
	}
	opts := CompletionOptions{AllowedInsetFraction: 1.0, InferTimingMarks: false}

	_, err := CompleteGrid(nil, geom, partial, opts)

	require.Error(t, err)
	interpretErr, ok := err.(*InterpretError)
	require.True(t, ok)
	assert.Equal(t, ErrMissingTimingMarks, interpretErr.Kind())
	assert.NotEqual(t, ErrMismatchedBallotCardGeometries, interpretErr.Kind())
	assert.Equal(t, "mismatched inferred timing marks: top/bottom", interpretErr.Reason)
}

func TestCompleteGridReportsMissingTimingMarksOnLeftRightLengthMismatch(t *testing.T) {
	geom := Geometry{CanvasWidth: 1000, CanvasHeight: 1000, GridWidth: 2, GridHeight: 5, TimingMarkWidth: 10, TimingMarkHeight: 10}
	partial := &Partial{
		TopMarks:    []CandidateTimingMark{syntheticMark(10, 10, 10, 10)},
		BottomMarks: []CandidateTimingMark{syntheticMark(10, 990, 10, 10)},
		LeftMarks:   []CandidateTimingMark{syntheticMark(10, 10, 10, 10), syntheticMark(10, 500, 10, 10), syntheticMark(10, 990, 10, 10)},
		RightMarks:  []CandidateTimingMark{syntheticMark(990, 10, 10, 10), syntheticMark(990, 990, 10, 10)},
	}
	opts := CompletionOptions{AllowedInsetFraction: 1.0, InferTimingMarks: false}

	_, err := CompleteGrid(nil, geom, partial, opts)

	require.Error(t, err)
	interpretErr, ok := err.(*InterpretError)
	require.True(t, ok)
	assert.Equal(t, ErrMissingTimingMarks, interpretErr.Kind())
	assert.Equal(t, "mismatched inferred timing marks: left/right", interpretErr.Reason)
}

func TestCheckVerticalStretchFlagsAGapAboveTolerance(t *testing.T) {
	marks := []CandidateTimingMark{
		syntheticMark(10, 10, 10, 10),
		syntheticMark(10, 60, 10, 10),
		syntheticMark(10, 200, 10, 10), // far beyond a 50px median * 1.2 tolerance
	}

	err := checkVerticalStretch(marks, 50)

	require.Error(t, err)
	assert.Equal(t, ErrMissingTimingMarks, err.(*InterpretError).Kind())
}

func TestCheckVerticalStretchAcceptsUniformSpacing(t *testing.T) {
	marks := []CandidateTimingMark{
		syntheticMark(10, 10, 10, 10),
		syntheticMark(10, 60, 10, 10),
		syntheticMark(10, 110, 10, 10),
	}

	err := checkVerticalStretch(marks, 50)

	assert.NoError(t, err)
}
