package factors

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// Contribution records one factor's share of the enhanced confidence.
type Contribution struct {
	Weight         float64 `json:"weight"`
	Confidence     float64 `json:"confidence"`
	Strength       float64 `json:"strength"`
	Contribution   float64 `json:"contribution"`
	PercentOfTotal float64 `json:"percent_of_total"`
}

// Breakdown is the per-factor attribution of an aggregation.
type Breakdown map[string]Contribution

// Aggregator applies a validated weight vector to normalized factor scores.
// One parameterized aggregator serves every factor set; there are no
// parallel basic/extended code paths. A weight update that violates the
// sum-to-one invariant is rejected and the last valid vector stays in
// effect, so Aggregate never runs with bad weights.
type Aggregator struct {
	mu      sync.RWMutex
	weights Weights
}

// NewAggregator creates an aggregator with the production weights.
func NewAggregator() *Aggregator {
	return &Aggregator{weights: DefaultWeights()}
}

// NewAggregatorWithWeights creates an aggregator with a custom vector,
// falling back to the defaults when the vector is invalid.
func NewAggregatorWithWeights(w Weights) (*Aggregator, error) {
	if err := w.Validate(); err != nil {
		return NewAggregator(), fmt.Errorf("invalid weights, using defaults: %w", err)
	}
	return &Aggregator{weights: w.Clone()}, nil
}

// Weights returns a copy of the vector currently in effect.
func (a *Aggregator) Weights() Weights {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.weights.Clone()
}

// SetWeights swaps in a new vector after re-validating the sum invariant.
// On violation the previous vector is retained and the error surfaced; this
// is a configuration error, reported but never fatal.
func (a *Aggregator) SetWeights(w Weights) error {
	if err := w.Validate(); err != nil {
		log.Warn().Err(err).Msg("weight update rejected, keeping previous vector")
		return fmt.Errorf("weight update rejected: %w", err)
	}
	a.mu.Lock()
	a.weights = w.Clone()
	a.mu.Unlock()
	return nil
}

// Aggregate computes the enhanced confidence Σ normalized[f]·weight[f],
// clamped to [0,1], with a full contribution breakdown. Pure with respect to
// its inputs: identical inputs and weights yield bit-identical output.
// Factors present in the weight vector but absent from the input contribute
// nothing (input deficiency degrades, never aborts).
func (a *Aggregator) Aggregate(normalized map[string]float64, strengths map[string]float64) (float64, Breakdown) {
	a.mu.RLock()
	weights := a.weights
	a.mu.RUnlock()

	// Deterministic iteration order keeps the floating-point sum, and
	// therefore the output, bit-identical across calls with equal inputs.
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Strings(names)

	enhanced := 0.0
	breakdown := make(Breakdown, len(weights))
	for _, name := range names {
		weight := weights[name]
		confidence, ok := normalized[name]
		if !ok {
			continue
		}
		confidence = clamp01(confidence)
		contribution := confidence * weight
		enhanced += contribution
		breakdown[name] = Contribution{
			Weight:       weight,
			Confidence:   confidence,
			Strength:     clamp01(strengths[name]),
			Contribution: contribution,
		}
	}
	enhanced = clamp01(enhanced)

	if enhanced > 0 {
		for name, c := range breakdown {
			c.PercentOfTotal = c.Contribution / enhanced * 100
			breakdown[name] = c
		}
	}
	return enhanced, breakdown
}
