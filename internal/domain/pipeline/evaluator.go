package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/quantfall/conviction/internal/domain/factors"
	"github.com/quantfall/conviction/internal/history"
)

// FactorFunc computes one factor's score for an instrument. Factor
// computations are pure functions over already-resolved data; a failing
// factor degrades to its neutral default and never aborts the evaluation.
type FactorFunc func(ctx context.Context) (factors.Score, error)

// Adjustment is one multiplier in the post-aggregation adjustment chain
// (e.g. a Fibonacci-zone or gamma-regime modifier).
type Adjustment struct {
	Name       string  `json:"name"`
	Multiplier float64 `json:"multiplier"`
}

// ConfidenceResult is the per-instrument output of one evaluation cycle.
// Created fresh each cycle and never mutated; the next cycle supersedes it
// and reads it as the "previous" for delta computation.
type ConfidenceResult struct {
	EvaluationID       string                  `json:"evaluation_id"`
	Instrument         string                  `json:"instrument"`
	Timestamp          time.Time               `json:"timestamp"`
	EnhancedConfidence float64                 `json:"enhanced_confidence"`
	ConvictionScore    float64                 `json:"conviction_score"`
	ConvictionLevel    factors.ConvictionLevel `json:"conviction_level"`
	SignalDirection    factors.Direction       `json:"signal_direction"`
	Confluence         float64                 `json:"confluence"`
	Breakdown          factors.Breakdown       `json:"breakdown"`
	Adjustments        []Adjustment            `json:"adjustments,omitempty"`
	ConfidenceDelta    float64                 `json:"confidence_delta"`
	HistoryTrend       history.Trend           `json:"history_trend"`
	Reliability        float64                 `json:"reliability"`
	Reasons            []string                `json:"reasons,omitempty"`
}

// Evaluator runs the per-instrument scoring pipeline: fan out the factor
// computations, normalize, aggregate with the weight vector, score
// confluence and conviction, and record history.
type Evaluator struct {
	normalizer *factors.Normalizer
	aggregator *factors.Aggregator
	store      *history.Store
}

// NewEvaluator wires an evaluator from its parts. The history store is
// injected so independent pipelines (per desk, per test) never share state.
func NewEvaluator(normalizer *factors.Normalizer, aggregator *factors.Aggregator, store *history.Store) *Evaluator {
	if normalizer == nil {
		normalizer = factors.NewNormalizer()
	}
	if aggregator == nil {
		aggregator = factors.NewAggregator()
	}
	if store == nil {
		store = history.NewStore(50)
	}
	return &Evaluator{normalizer: normalizer, aggregator: aggregator, store: store}
}

// Aggregator exposes the weight vector owner for reconfiguration.
func (e *Evaluator) Aggregator() *factors.Aggregator { return e.aggregator }

// Evaluate fans out the factor functions, waits for all of them, and reduces
// the scores into a ConfidenceResult. Factors whose functions fail
// contribute a neutral default and a reason string.
func (e *Evaluator) Evaluate(ctx context.Context, instrument string, funcs map[string]FactorFunc, adjustments []Adjustment) *ConfidenceResult {
	scores := make(map[string]factors.Score, len(funcs))
	reasons := make([]string, 0)

	var mu sync.Mutex
	var wg sync.WaitGroup
	for name, fn := range funcs {
		wg.Add(1)
		go func(name string, fn FactorFunc) {
			defer wg.Done()
			score, err := fn(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				scores[name] = neutralScore(name)
				reasons = append(reasons, fmt.Sprintf("%s factor unavailable (%v), neutral default applied", name, err))
				return
			}
			scores[name] = score.Clamped()
		}(name, fn)
	}
	wg.Wait()

	return e.reduce(instrument, scores, adjustments, reasons)
}

// EvaluateScores reduces pre-computed factor scores, for callers that
// already ran the factor engines themselves.
func (e *Evaluator) EvaluateScores(instrument string, scores map[string]factors.Score, adjustments []Adjustment) *ConfidenceResult {
	clamped := make(map[string]factors.Score, len(scores))
	for name, s := range scores {
		clamped[name] = s.Clamped()
	}
	return e.reduce(instrument, clamped, adjustments, nil)
}

func (e *Evaluator) reduce(instrument string, scores map[string]factors.Score, adjustments []Adjustment, reasons []string) *ConfidenceResult {
	rawConfidences := make(map[string]float64, len(scores))
	strengths := make(map[string]float64, len(scores))
	strengthList := make([]float64, 0, len(scores))
	for name, s := range scores {
		rawConfidences[name] = s.Confidence
		strengths[name] = s.Strength
		strengthList = append(strengthList, s.Strength)
	}

	normalized := e.normalizer.Normalize(rawConfidences)
	enhanced, breakdown := e.aggregator.Aggregate(normalized, strengths)

	directional := factors.DirectionalScores(scores)
	confluence := factors.Confluence(directional)
	direction := factors.DirectionFromScore(factors.MeanDirection(directional))

	adjusted, adjustReasons := ApplyAdjustments(enhanced, adjustments)
	reasons = append(reasons, adjustReasons...)

	conviction := factors.Conviction(adjusted, strengthList, confluence)

	snap := e.store.Observe(instrument, adjusted)

	result := &ConfidenceResult{
		EvaluationID:       uuid.NewString(),
		Instrument:         instrument,
		Timestamp:          time.Now().UTC(),
		EnhancedConfidence: adjusted,
		ConvictionScore:    conviction,
		ConvictionLevel:    factors.LevelFor(conviction),
		SignalDirection:    direction,
		Confluence:         confluence,
		Breakdown:          breakdown,
		Adjustments:        adjustments,
		ConfidenceDelta:    snap.Delta,
		HistoryTrend:       snap.Trend,
		Reliability:        snap.Reliability,
		Reasons:            reasons,
	}

	log.Debug().
		Str("instrument", instrument).
		Float64("enhanced", adjusted).
		Float64("conviction", conviction).
		Str("direction", string(direction)).
		Msg("evaluation complete")

	return result
}

// ApplyAdjustments applies a single multiplicative chain to a base
// confidence: adjusted = clamp01(base · Π multipliers). There is no
// re-division by prior confidence anywhere in the chain, so a zero or
// near-zero base stays well-defined. Non-positive multipliers are skipped
// with a reason.
func ApplyAdjustments(base float64, chain []Adjustment) (float64, []string) {
	adjusted := clamp01(base)
	reasons := make([]string, 0)
	for _, adj := range chain {
		if adj.Multiplier <= 0 {
			reasons = append(reasons, fmt.Sprintf("adjustment %s skipped: non-positive multiplier %.3f", adj.Name, adj.Multiplier))
			continue
		}
		adjusted *= adj.Multiplier
	}
	return clamp01(adjusted), reasons
}

func neutralScore(name string) factors.Score {
	return factors.Score{Name: name, Confidence: 0.5, Strength: 0.0, Direction: factors.Neutral}
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
