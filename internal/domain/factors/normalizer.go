package factors

import "math"

// Normalizer bounds raw factor confidences so a single malfunctioning
// upstream indicator cannot dominate the weighted sum. Values beyond
// OutlierSigma standard deviations from the cross-factor mean are clipped to
// the sigma boundary (sign of deviation preserved), then everything is
// clamped to [FloorValue, 1].
type Normalizer struct {
	OutlierSigma float64
	FloorValue   float64
}

// NewNormalizer returns a normalizer with the production parameters: 2.0σ
// outlier threshold and a 0.1 floor.
func NewNormalizer() *Normalizer {
	return &Normalizer{OutlierSigma: 2.0, FloorValue: 0.1}
}

// Normalize clips and clamps the raw confidences. The input map is not
// mutated.
func (n *Normalizer) Normalize(raw map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(raw))
	if len(raw) == 0 {
		return out
	}

	mean, stddev := meanStddev(raw)

	for name, value := range raw {
		clipped := value
		if stddev > 0 {
			upper := mean + n.OutlierSigma*stddev
			lower := mean - n.OutlierSigma*stddev
			if clipped > upper {
				clipped = upper
			} else if clipped < lower {
				clipped = lower
			}
		}
		out[name] = n.clampFloor(clipped)
	}
	return out
}

func (n *Normalizer) clampFloor(x float64) float64 {
	if math.IsNaN(x) {
		return n.FloorValue
	}
	if x < n.FloorValue {
		return n.FloorValue
	}
	if x > 1 {
		return 1
	}
	return x
}

func meanStddev(values map[string]float64) (float64, float64) {
	count := float64(len(values))
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / count

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= count
	return mean, math.Sqrt(variance)
}
