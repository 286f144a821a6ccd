package factors

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_IdenticalValuesUnchanged(t *testing.T) {
	n := NewNormalizer()
	raw := map[string]float64{Trend: 0.6, Momentum: 0.6, Volume: 0.6, Ribbon: 0.6, Fibonacci: 0.6, Gamma: 0.6}

	out := n.Normalize(raw)
	require.Len(t, out, 6)
	for name, v := range out {
		assert.InDelta(t, 0.6, v, 1e-12, name)
	}
}

func TestNormalize_OutlierClippedToSigmaBoundary(t *testing.T) {
	n := NewNormalizer()
	// Five clustered values and one degenerate 1.0 from a malfunctioning
	// indicator.
	raw := map[string]float64{Trend: 0.5, Momentum: 0.5, Volume: 0.5, Ribbon: 0.5, Fibonacci: 0.5, Gamma: 1.0}

	mean, stddev := meanStddev(raw)
	upper := mean + 2.0*stddev

	out := n.Normalize(raw)
	assert.InDelta(t, upper, out[Gamma], 1e-12, "outlier clipped to the 2σ boundary")
	assert.Less(t, out[Gamma], 1.0)
	for _, name := range []string{Trend, Momentum, Volume, Ribbon, Fibonacci} {
		assert.InDelta(t, 0.5, out[name], 1e-12)
	}
}

func TestNormalize_FloorApplied(t *testing.T) {
	n := NewNormalizer()
	raw := map[string]float64{Trend: 0.0, Momentum: 0.0, Volume: 0.0, Ribbon: 0.0, Fibonacci: 0.0, Gamma: 0.0}

	out := n.Normalize(raw)
	for name, v := range out {
		assert.Equal(t, 0.1, v, name)
	}
}

func TestNormalize_Bounds(t *testing.T) {
	n := NewNormalizer()
	raw := map[string]float64{Trend: -3, Momentum: 5, Volume: 0.4, Ribbon: 0.6, Fibonacci: math.NaN(), Gamma: 0.5}

	out := n.Normalize(raw)
	for name, v := range out {
		assert.GreaterOrEqual(t, v, 0.1, name)
		assert.LessOrEqual(t, v, 1.0, name)
		assert.False(t, math.IsNaN(v), name)
	}
}

func TestNormalize_Empty(t *testing.T) {
	n := NewNormalizer()
	assert.Empty(t, n.Normalize(nil))
}
