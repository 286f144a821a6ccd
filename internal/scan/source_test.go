package scan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfall/conviction/internal/domain/factors"
)

type countingSource struct {
	calls int
	err   error
}

func (c *countingSource) Scores(context.Context, string) (map[string]factors.Score, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return map[string]factors.Score{
		factors.Trend: {Name: factors.Trend, Confidence: 0.7, Strength: 0.6, Direction: factors.Bullish},
	}, nil
}

func TestNeutralScores_CoversExternalFactors(t *testing.T) {
	scores := NeutralScores()
	require.Len(t, scores, 5)
	assert.NotContains(t, scores, factors.Gamma, "gamma is computed internally, never sourced")
	for name, s := range scores {
		assert.Equal(t, 0.5, s.Confidence, name)
		assert.Zero(t, s.Strength, name)
		assert.Equal(t, factors.Neutral, s.Direction, name)
	}
}

func TestBreakerSource_PassesThroughHealthyScores(t *testing.T) {
	inner := &countingSource{}
	src := NewBreakerSource("test", inner)

	scores, err := src.Scores(context.Background(), "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, 0.7, scores[factors.Trend].Confidence)
}

func TestBreakerSource_FailureYieldsNeutralDefaults(t *testing.T) {
	inner := &countingSource{err: errors.New("indicator service down")}
	src := NewBreakerSource("test", inner)

	scores, err := src.Scores(context.Background(), "BTC-USD")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "indicator service down")
	assert.Equal(t, NeutralScores(), scores, "degraded calls still return a usable score set")
}

func TestBreakerSource_TripsAfterConsecutiveFailures(t *testing.T) {
	inner := &countingSource{err: errors.New("down")}
	src := NewBreakerSource("test", inner)

	for i := 0; i < 5; i++ {
		_, err := src.Scores(context.Background(), "BTC-USD")
		require.Error(t, err)
	}
	assert.Equal(t, 5, inner.calls)

	// Breaker is now open: calls short-circuit without touching the inner
	// source, still serving neutral defaults.
	scores, err := src.Scores(context.Background(), "BTC-USD")
	require.Error(t, err)
	assert.Equal(t, 5, inner.calls, "open breaker must not call the inner source")
	assert.Equal(t, NeutralScores(), scores)
}

func TestBreakerSource_EmptyResultTreatedAsDegraded(t *testing.T) {
	src := NewBreakerSource("test", NewStaticSource(map[string]map[string]factors.Score{
		"EMPTY": {},
	}))
	scores, err := src.Scores(context.Background(), "EMPTY")
	require.Error(t, err)
	assert.Equal(t, NeutralScores(), scores)
}

func TestStaticSource_UnknownInstrument(t *testing.T) {
	src := NewStaticSource(nil)
	_, err := src.Scores(context.Background(), "UNKNOWN")
	assert.Error(t, err)
}
