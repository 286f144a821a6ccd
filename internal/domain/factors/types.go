package factors

// Direction is the qualitative read of a single factor.
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
	Neutral Direction = "neutral"
)

// DirectionalScore maps a qualitative direction onto [0,1] for confluence
// math: bullish 1, bearish 0, neutral 0.5.
func (d Direction) DirectionalScore() float64 {
	switch d {
	case Bullish:
		return 1.0
	case Bearish:
		return 0.0
	default:
		return 0.5
	}
}

// DirectionFromScore inverts DirectionalScore with a neutral band around 0.5.
func DirectionFromScore(score float64) Direction {
	switch {
	case score > 0.6:
		return Bullish
	case score < 0.4:
		return Bearish
	default:
		return Neutral
	}
}

// Factor names. The six production factors; external collaborators produce
// all but gamma, which this core computes itself.
const (
	Trend     = "trend"
	Momentum  = "momentum"
	Volume    = "volume"
	Ribbon    = "ribbon"
	Fibonacci = "fibonacci"
	Gamma     = "gamma"
)

// Names lists the production factors in canonical order.
func Names() []string {
	return []string{Trend, Momentum, Volume, Ribbon, Fibonacci, Gamma}
}

// Score is one factor's contribution for one instrument for one cycle.
type Score struct {
	Name       string    `json:"name"`
	Confidence float64   `json:"confidence"` // [0,1]
	Strength   float64   `json:"strength"`   // [0,1]
	Direction  Direction `json:"direction"`
}

// Clamped returns a copy with confidence and strength clamped to [0,1].
// Every value crossing a component boundary is clamped before use.
func (s Score) Clamped() Score {
	s.Confidence = clamp01(s.Confidence)
	s.Strength = clamp01(s.Strength)
	if s.Direction == "" {
		s.Direction = Neutral
	}
	return s
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
