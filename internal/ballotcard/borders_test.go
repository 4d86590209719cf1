package ballotcard

import (
	"testing"

	"ballotscan/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func syntheticMark(x, y, w, h int) CandidateTimingMark {
	return CandidateTimingMark{Rect: geometry.Rect{X: x, Y: y, Width: w, Height: h}}
}

func TestAssignSharedCornerMarksUsesArenaIdentityNotDistance(t *testing.T) {
	arena := []CandidateTimingMark{
		syntheticMark(0, 0, 10, 10),   // 0: the true shared top-left corner
		syntheticMark(100, 0, 10, 10), // 1: top border only
		syntheticMark(0, 100, 10, 10), // 2: left border only
	}
	p := &Partial{
		Arena:       arena,
		TopIdx:      []int{0, 1},
		LeftIdx:     []int{0, 2},
		BottomIdx:   []int{2},
		RightIdx:    []int{1},
		TopMarks:    []CandidateTimingMark{arena[0], arena[1]},
		LeftMarks:   []CandidateTimingMark{arena[0], arena[2]},
		BottomMarks: []CandidateTimingMark{arena[2]},
		RightMarks:  []CandidateTimingMark{arena[1]},
	}

	assignSharedCornerMarks(p)

	require.NotNil(t, p.CornerMarks[cornerTL])
	assert.Equal(t, arena[0], *p.CornerMarks[cornerTL])
	assert.Nil(t, p.CornerMarks[cornerTR])
	assert.Nil(t, p.CornerMarks[cornerBL])
	assert.Nil(t, p.CornerMarks[cornerBR])
}

// A pixel-distance heuristic would have merged these two marks; identity
// sharing must not, since they come from two distinct candidate fits.
func TestAssignSharedCornerMarksRejectsNearbyButDistinctArenaSlots(t *testing.T) {
	arena := []CandidateTimingMark{
		syntheticMark(0, 0, 10, 10),
		syntheticMark(1, 1, 10, 10),
	}
	p := &Partial{
		Arena:     arena,
		TopIdx:    []int{0},
		LeftIdx:   []int{1},
		TopMarks:  []CandidateTimingMark{arena[0]},
		LeftMarks: []CandidateTimingMark{arena[1]},
	}

	assignSharedCornerMarks(p)

	assert.Nil(t, p.CornerMarks[cornerTL])
}

// TestFindPartialBordersGridSizingAndCornerIdentity builds a clean,
// perfectly axis-aligned 5x4 timing-mark perimeter: every border fit takes
// the fast inline-subset path, so the counts and identities below are
// exact. It covers grid sizing (each border list has the right length)
// and corner identity (each corner mark resolves to one shared arena
// index from the two borders that meet there).
func TestFindPartialBordersGridSizingAndCornerIdentity(t *testing.T) {
	geom := Geometry{CanvasWidth: 220, CanvasHeight: 170, GridWidth: 5, GridHeight: 4, TimingMarkWidth: 10, TimingMarkHeight: 10}

	candidates := []CandidateTimingMark{
		syntheticMark(10, 10, 10, 10),  // 0: corner TL
		syntheticMark(60, 10, 10, 10),  // 1
		syntheticMark(110, 10, 10, 10), // 2
		syntheticMark(160, 10, 10, 10), // 3
		syntheticMark(210, 10, 10, 10), // 4: corner TR
		syntheticMark(10, 60, 10, 10),  // 5: left interior
		syntheticMark(210, 60, 10, 10), // 6: right interior
		syntheticMark(10, 110, 10, 10), // 7: left interior
		syntheticMark(210, 110, 10, 10), // 8: right interior
		syntheticMark(10, 160, 10, 10),  // 9: corner BL
		syntheticMark(60, 160, 10, 10),  // 10
		syntheticMark(110, 160, 10, 10), // 11
		syntheticMark(160, 160, 10, 10), // 12
		syntheticMark(210, 160, 10, 10), // 13: corner BR
	}

	partial, err := FindPartialBorders(geom, candidates, NoopDebugSink{})
	require.NoError(t, err)

	assert.Len(t, partial.TopMarks, geom.GridWidth)
	assert.Len(t, partial.BottomMarks, geom.GridWidth)
	assert.Len(t, partial.LeftMarks, geom.GridHeight)
	assert.Len(t, partial.RightMarks, geom.GridHeight)

	for _, corner := range []int{cornerTL, cornerTR, cornerBL, cornerBR} {
		require.NotNilf(t, partial.CornerMarks[corner], "corner %d", corner)
	}
	assert.Equal(t, candidates[0], *partial.CornerMarks[cornerTL])
	assert.Equal(t, candidates[4], *partial.CornerMarks[cornerTR])
	assert.Equal(t, candidates[9], *partial.CornerMarks[cornerBL])
	assert.Equal(t, candidates[13], *partial.CornerMarks[cornerBR])
}
