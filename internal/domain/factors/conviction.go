package factors

import "math"

// ConvictionLevel is the discrete grade of a conviction score.
type ConvictionLevel string

const (
	ConvictionVeryLow  ConvictionLevel = "very-low"
	ConvictionLow      ConvictionLevel = "low"
	ConvictionModerate ConvictionLevel = "moderate"
	ConvictionHigh     ConvictionLevel = "high"
	ConvictionVeryHigh ConvictionLevel = "very-high"
)

// convexityExponent mildly rewards high-confidence, well-aligned signals
// more than proportionally.
const convexityExponent = 1.1

// Conviction non-linearly combines confidence, strength consistency, and
// directional confluence. Base is the confidence; a consistency bonus of
// 0.2·(strengthConsistency+directionAlignment)/2 is added, then the result
// is raised to the convexity exponent and clamped to [0,1].
func Conviction(confidence float64, strengths []float64, confluence float64) float64 {
	base := clamp01(confidence)

	strengthConsistency := math.Max(0, 1-math.Sqrt(variance(strengths)))
	directionAlignment := clamp01(confluence)
	bonus := 0.2 * (strengthConsistency + directionAlignment) / 2

	return clamp01(math.Pow(base+bonus, convexityExponent))
}

// LevelFor maps a conviction score to its discrete grade.
func LevelFor(conviction float64) ConvictionLevel {
	switch {
	case conviction >= 0.85:
		return ConvictionVeryHigh
	case conviction >= 0.70:
		return ConvictionHigh
	case conviction >= 0.55:
		return ConvictionModerate
	case conviction >= 0.40:
		return ConvictionLow
	default:
		return ConvictionVeryLow
	}
}

func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	total := 0.0
	for _, v := range values {
		d := v - mean
		total += d * d
	}
	return total / float64(len(values))
}
