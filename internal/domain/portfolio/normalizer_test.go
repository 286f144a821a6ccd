package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAcross_SingleInstrumentUnchanged(t *testing.T) {
	cn := NewCrossNormalizer(DefaultConfig())
	out := cn.NormalizeAcross(map[string]float64{"BTC-USD": 0.83})
	require.Len(t, out, 1)
	// Documented N=1 behavior: the raw value passes through unchanged.
	assert.Equal(t, 0.83, out["BTC-USD"])
}

func TestEvaluate_ZeroInstrumentsNeutralDefault(t *testing.T) {
	cn := NewCrossNormalizer(DefaultConfig())
	result := cn.Evaluate(map[string]float64{})
	assert.Equal(t, 0.5, result.AggregateConfidence)
	assert.Equal(t, RecommendSelective, result.Recommendation)
	assert.Empty(t, result.NormalizedConfidences)
	assert.Empty(t, result.TopInstruments)
}

func TestNormalizeAcross_OutputRange(t *testing.T) {
	cn := NewCrossNormalizer(DefaultConfig())
	out := cn.NormalizeAcross(map[string]float64{
		"A": 0.95, "B": 0.1, "C": 0.5, "D": 0.72, "E": 0.33,
	})
	require.Len(t, out, 5)
	for instrument, v := range out {
		assert.GreaterOrEqual(t, v, 0.1, instrument)
		assert.LessOrEqual(t, v, 0.9, instrument)
	}
	// Ordering is preserved through the monotone squash.
	assert.Greater(t, out["A"], out["B"])
	assert.Greater(t, out["D"], out["C"])
}

func TestNormalizeAcross_StddevFloor(t *testing.T) {
	cn := NewCrossNormalizer(DefaultConfig())
	// Near-identical inputs: without the floor the z-scores would explode.
	out := cn.NormalizeAcross(map[string]float64{"A": 0.600, "B": 0.601, "C": 0.599})
	for _, v := range out {
		assert.InDelta(t, 0.5, v, 0.1)
	}
}

func TestEvaluate_DivergentPair(t *testing.T) {
	cn := NewCrossNormalizer(DefaultConfig())
	result := cn.Evaluate(map[string]float64{"A": 0.9, "B": 0.1})

	// Population variance 0.16: consensus = max(0, 1−4·0.16) = 0.36.
	assert.InDelta(t, 0.36, result.Consensus, 1e-9)
	assert.Less(t, result.Consensus, 0.5)
	assert.NotEqual(t, RecommendMulti, result.Recommendation)
	assert.Contains(t, []Recommendation{RecommendSelective, RecommendSingle}, result.Recommendation)
}

func TestEvaluate_BroadAgreementGoesMulti(t *testing.T) {
	cn := NewCrossNormalizer(DefaultConfig())
	result := cn.Evaluate(map[string]float64{"A": 0.80, "B": 0.82, "C": 0.78})

	assert.Greater(t, result.Consensus, 0.7)
	assert.Greater(t, result.AggregateConfidence, 0.7)
	assert.Equal(t, RecommendMulti, result.Recommendation)
	assert.Equal(t, Distribution{High: 3}, result.Distribution)
}

func TestEvaluate_SingleLeader(t *testing.T) {
	cn := NewCrossNormalizer(DefaultConfig())
	// One high-confidence leader, the rest low; consensus stays above 0.5
	// so the SELECTIVE guard does not fire first.
	result := cn.Evaluate(map[string]float64{"A": 0.75, "B": 0.48, "C": 0.46, "D": 0.47})

	assert.GreaterOrEqual(t, result.Consensus, 0.5)
	assert.Equal(t, 1, result.Distribution.High)
	assert.Equal(t, RecommendSingle, result.Recommendation)
}

func TestEvaluate_AggregateWeightsHighConfidence(t *testing.T) {
	cn := NewCrossNormalizer(DefaultConfig())
	result := cn.Evaluate(map[string]float64{"A": 0.9, "B": 0.1})

	// confidence^1.5 weighting pulls the aggregate well above the plain
	// mean of 0.5.
	assert.Greater(t, result.AggregateConfidence, 0.8)
}

func TestEvaluate_TopInstruments(t *testing.T) {
	cn := NewCrossNormalizer(DefaultConfig())
	confidences := map[string]float64{
		"A": 0.9, "B": 0.8, "C": 0.7, "D": 0.6, "E": 0.5, "F": 0.4, "G": 0.3,
	}
	result := cn.Evaluate(confidences)
	require.Len(t, result.TopInstruments, 5)
	assert.Equal(t, "A", result.TopInstruments[0])
	assert.NotContains(t, result.TopInstruments, "F")
	assert.NotContains(t, result.TopInstruments, "G")
}

func TestAdaptiveMean_TracksRecentWindow(t *testing.T) {
	cn := NewCrossNormalizer(Config{WindowSize: 10, RecentWeight: 0.7, MinStddev: 0.05, ZClip: 2.5})

	// Seed history with modest confidences.
	for i := 0; i < 5; i++ {
		cn.NormalizeAcross(map[string]float64{"A": 0.4, "B": 0.45})
	}

	// A middling value now sits above the adaptive mean: squashed > 0.5.
	out := cn.NormalizeAcross(map[string]float64{"A": 0.5, "B": 0.55})
	assert.Greater(t, out["A"], 0.5)
	assert.Greater(t, out["B"], out["A"])
}
