package factors

import (
	"fmt"
	"math"
)

// WeightSumTolerance is the allowed deviation of Σweights from 1.0.
const WeightSumTolerance = 1e-3

// Weights maps factor name to its share of the composite. The production
// vector sums to 1.0; reconfiguration re-validates the invariant and an
// invalid update leaves the previous vector in effect.
type Weights map[string]float64

// DefaultWeights returns the production weight vector.
func DefaultWeights() Weights {
	return Weights{
		Trend:     0.25,
		Momentum:  0.20,
		Volume:    0.20,
		Ribbon:    0.15,
		Fibonacci: 0.10,
		Gamma:     0.10,
	}
}

// Validate checks that every weight is non-negative and the sum is 1.0
// within tolerance. Works for any factor set, not just the production six;
// basic and extended scoring share this one code path.
func (w Weights) Validate() error {
	if len(w) == 0 {
		return fmt.Errorf("empty weight vector")
	}
	sum := 0.0
	for name, weight := range w {
		if weight < 0 {
			return fmt.Errorf("negative weight for %s: %f", name, weight)
		}
		if math.IsNaN(weight) || math.IsInf(weight, 0) {
			return fmt.Errorf("invalid weight for %s: %f", name, weight)
		}
		sum += weight
	}
	if math.Abs(sum-1.0) > WeightSumTolerance {
		return fmt.Errorf("weights sum to %.6f, expected 1.0 ±%.3f", sum, WeightSumTolerance)
	}
	return nil
}

// Clone returns an independent copy so callers cannot mutate a vector that
// is already in effect.
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for name, weight := range w {
		out[name] = weight
	}
	return out
}
