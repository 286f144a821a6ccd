package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/quantfall/conviction/internal/domain/factors"
)

// FactorSource produces the five externally computed factor scores (trend,
// momentum, volume, ribbon, fibonacci) for an instrument. The gamma factor
// is computed by this core and never requested from a source.
type FactorSource interface {
	Scores(ctx context.Context, instrument string) (map[string]factors.Score, error)
}

// externalFactors are the factors a FactorSource must cover.
var externalFactors = []string{factors.Trend, factors.Momentum, factors.Volume, factors.Ribbon, factors.Fibonacci}

// NeutralScores is the documented degraded output when a source cannot
// serve: 0.5 confidence, zero strength, neutral direction for each external
// factor.
func NeutralScores() map[string]factors.Score {
	out := make(map[string]factors.Score, len(externalFactors))
	for _, name := range externalFactors {
		out[name] = factors.Score{Name: name, Confidence: 0.5, Strength: 0, Direction: factors.Neutral}
	}
	return out
}

// BreakerSource guards a FactorSource with a circuit breaker. Repeated
// failures trip the breaker and short-circuit subsequent calls straight to
// the neutral defaults until the cool-down elapses, so a dead indicator
// service cannot stall every evaluation cycle.
type BreakerSource struct {
	inner   FactorSource
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerSource wraps a source with a breaker tripping after five
// consecutive failures, retrying after 30 seconds.
func NewBreakerSource(name string, inner FactorSource) *BreakerSource {
	settings := gobreaker.Settings{
		Name:    name,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("source", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("factor source breaker state change")
		},
	}
	return &BreakerSource{inner: inner, breaker: gobreaker.NewCircuitBreaker(settings)}
}

// Scores returns the inner source's scores, or the neutral defaults with an
// error describing the degradation when the call fails or the breaker is
// open. Callers always receive a usable score set.
func (b *BreakerSource) Scores(ctx context.Context, instrument string) (map[string]factors.Score, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.Scores(ctx, instrument)
	})
	if err != nil {
		return NeutralScores(), fmt.Errorf("factor source degraded for %s: %w", instrument, err)
	}
	scores, ok := result.(map[string]factors.Score)
	if !ok || len(scores) == 0 {
		return NeutralScores(), fmt.Errorf("factor source returned no scores for %s", instrument)
	}
	return scores, nil
}

// StaticSource serves fixed scores per instrument, backing fixture-driven
// scans and tests.
type StaticSource struct {
	byInstrument map[string]map[string]factors.Score
}

// NewStaticSource builds a source over a fixed score table.
func NewStaticSource(byInstrument map[string]map[string]factors.Score) *StaticSource {
	return &StaticSource{byInstrument: byInstrument}
}

// Scores returns the configured scores for the instrument, or an error when
// the instrument is unknown so the breaker/neutral-default path engages.
func (s *StaticSource) Scores(_ context.Context, instrument string) (map[string]factors.Score, error) {
	scores, ok := s.byInstrument[instrument]
	if !ok {
		return nil, fmt.Errorf("no factor scores for instrument %s", instrument)
	}
	return scores, nil
}
