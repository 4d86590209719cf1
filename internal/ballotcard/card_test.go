package ballotcard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// streakImage builds a BallotImage of the given size whose columns in
// darkColumns are dark (0) for their full height and every other column is
// light (255), the signature checkStreaks looks for.
func streakImage(width, height int, darkColumns ...int) *BallotImage {
	dark := make(map[int]bool, len(darkColumns))
	for _, x := range darkColumns {
		dark[x] = true
	}
	pixels := make([]byte, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := byte(255)
			if dark[x] {
				v = 0
			}
			pixels[y*width+x] = v
		}
	}
	return &BallotImage{Pixels: pixels, Width: width, Height: height, Threshold: 128}
}

func TestCheckStreaksReportsVerticalStreaksDetected(t *testing.T) {
	img := streakImage(5, 10, 2)

	err := checkStreaks(img, "side A", 0)

	require.Error(t, err)
	interpretErr, ok := err.(*InterpretError)
	require.True(t, ok)
	assert.Equal(t, ErrVerticalStreaksDetected, interpretErr.Kind())
	assert.Equal(t, "side A", interpretErr.Label)
	assert.Equal(t, []int{2}, interpretErr.XCoords)
}

func TestCheckStreaksToleratesWidthWithinCumulativeBudget(t *testing.T) {
	img := streakImage(5, 10, 2)

	err := checkStreaks(img, "side A", 1)

	assert.NoError(t, err)
}

func TestCheckStreaksPassesCleanImage(t *testing.T) {
	img := streakImage(5, 10)

	err := checkStreaks(img, "side A", 0)

	assert.NoError(t, err)
}

func TestRetryStreakCheckIdentifiesWhichSideFailed(t *testing.T) {
	front := streakImage(5, 10)
	back := streakImage(5, 10, 1, 2, 3)

	err := retryStreakCheck(front, back, 1)

	require.Error(t, err)
	interpretErr, ok := err.(*InterpretError)
	require.True(t, ok)
	assert.Equal(t, "side B", interpretErr.Label)
	assert.Equal(t, []int{1, 2, 3}, interpretErr.XCoords)
}
