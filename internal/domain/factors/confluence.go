package factors

import "math"

// Confluence measures directional agreement among factors. Each direction
// maps to [0,1] (bullish 1, bearish 0, neutral 0.5); confluence is
// max(0, 1 − 2·meanAbsDeviation) of those scores around their mean. Perfect
// agreement yields exactly 1, a three/three bullish-bearish split yields 0.
func Confluence(directional map[string]float64) float64 {
	if len(directional) == 0 {
		return 0
	}

	sum := 0.0
	for _, score := range directional {
		sum += clamp01(score)
	}
	mean := sum / float64(len(directional))

	deviation := 0.0
	for _, score := range directional {
		deviation += math.Abs(clamp01(score) - mean)
	}
	meanAbsDev := deviation / float64(len(directional))

	return math.Max(0, 1-2*meanAbsDev)
}

// DirectionalScores converts a factor-score set into the [0,1] directional
// map Confluence consumes.
func DirectionalScores(scores map[string]Score) map[string]float64 {
	out := make(map[string]float64, len(scores))
	for name, s := range scores {
		out[name] = s.Direction.DirectionalScore()
	}
	return out
}

// MeanDirection is the average directional score, used to pick the composite
// signal direction.
func MeanDirection(directional map[string]float64) float64 {
	if len(directional) == 0 {
		return 0.5
	}
	sum := 0.0
	for _, score := range directional {
		sum += clamp01(score)
	}
	return sum / float64(len(directional))
}
