package factors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConviction_Bounds(t *testing.T) {
	cases := []struct {
		confidence float64
		strengths  []float64
		confluence float64
	}{
		{0, nil, 0},
		{1, []float64{1, 1, 1}, 1},
		{0.5, []float64{0.1, 0.9}, 0.5},
		{1.5, []float64{2, -1}, 3}, // garbage in, clamped out
	}
	for _, tc := range cases {
		c := Conviction(tc.confidence, tc.strengths, tc.confluence)
		assert.GreaterOrEqual(t, c, 0.0)
		assert.LessOrEqual(t, c, 1.0)
	}
}

func TestConviction_ConsistencyBonus(t *testing.T) {
	steady := Conviction(0.6, []float64{0.7, 0.7, 0.7}, 0.9)
	erratic := Conviction(0.6, []float64{0.1, 0.9, 0.2}, 0.9)
	assert.Greater(t, steady, erratic, "consistent strengths earn a larger bonus")

	aligned := Conviction(0.6, []float64{0.7, 0.7, 0.7}, 1.0)
	split := Conviction(0.6, []float64{0.7, 0.7, 0.7}, 0.0)
	assert.Greater(t, aligned, split, "directional alignment earns a larger bonus")
}

func TestConviction_RewardsHighConfidenceDisproportionately(t *testing.T) {
	// With a zero bonus, doubling confidence scales conviction by 2^1.1:
	// strictly more than doubling, the convexity reward.
	noBonus := []float64{0, 2} // unit variance kills the consistency term
	low := Conviction(0.2, noBonus, 0)
	high := Conviction(0.4, noBonus, 0)
	assert.Greater(t, high/low, 2.0)
	assert.InDelta(t, 2.143, high/low, 0.01)
}

func TestLevelFor(t *testing.T) {
	cases := []struct {
		score float64
		level ConvictionLevel
	}{
		{0.10, ConvictionVeryLow},
		{0.30, ConvictionVeryLow},
		{0.45, ConvictionLow},
		{0.60, ConvictionModerate},
		{0.75, ConvictionHigh},
		{0.90, ConvictionVeryHigh},
		{0.85, ConvictionVeryHigh},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.level, LevelFor(tc.score), "score %.2f", tc.score)
	}
}
