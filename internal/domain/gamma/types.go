package gamma

// RiskLevel classifies overall pinning risk for an instrument.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
	RiskExtreme  RiskLevel = "EXTREME"
)

// SignificanceTier ranks a flip level by the exposure swing around it.
type SignificanceTier string

const (
	TierMajor    SignificanceTier = "major"
	TierModerate SignificanceTier = "moderate"
	TierMinor    SignificanceTier = "minor"
)

// FlipStrategy names the detection strategy that produced a flip candidate.
type FlipStrategy string

const (
	StrategyZeroCrossing FlipStrategy = "zero_crossing"
	StrategyMaxChange    FlipStrategy = "max_rate_of_change"
	StrategyOIWeighted   FlipStrategy = "oi_weighted"
)

// FlipLevel is a price at which net dealer gamma exposure changes sign.
// Recomputed from scratch every evaluation; never carried across snapshots.
type FlipLevel struct {
	Price                 float64          `json:"price"`
	Confidence            float64          `json:"confidence"`
	GammaChangeMagnitude  float64          `json:"gamma_change_magnitude"`
	ProximityToSpot       float64          `json:"proximity_to_spot"` // fraction of spot, always >= 0
	Significance          SignificanceTier `json:"significance"`
	TriggerVolumeEstimate float64          `json:"trigger_volume_estimate"`
	Strategy              FlipStrategy     `json:"strategy"`
}

// PinType classifies which side of the chain anchors a pin.
type PinType string

const (
	CallPin  PinType = "call-pin"
	PutPin   PinType = "put-pin"
	DualPin  PinType = "dual-pin"
	GammaPin PinType = "gamma-pin"
)

// PinLevel is a strike likely to attract price into expiry.
type PinLevel struct {
	Strike                float64 `json:"strike"`
	PinType               PinType `json:"pin_type"`
	Strength              float64 `json:"strength"`  // share of nearby OI at this strike
	Magnetism             float64 `json:"magnetism"` // strength decayed by distance from spot
	OpenInterest          int64   `json:"open_interest"`
	GammaExposureAtStrike float64 `json:"gamma_exposure_at_strike"`
	DistanceFromPrice     float64 `json:"distance_from_price"` // fraction of spot
}

// PinningAssessment is the pinning-risk output for one snapshot.
type PinningAssessment struct {
	Level               RiskLevel  `json:"level"`
	Score               float64    `json:"score"`
	TimeWeight          float64    `json:"time_weight"`
	StrengthWeight      float64    `json:"strength_weight"`
	ConcentrationWeight float64    `json:"concentration_weight"`
	Pins                []PinLevel `json:"pins"`
}

// Timeframe buckets an acceleration zone by trigger distance.
type Timeframe string

const (
	TimeframeImmediate Timeframe = "immediate"   // < 2% away
	TimeframeShortTerm Timeframe = "short_term"  // < 5% away
	TimeframeMedium    Timeframe = "medium_term" // beyond 5%
)

// Zone is a strike region where dealer hedging can accelerate a move.
type Zone struct {
	Strike        float64   `json:"strike"`
	AboveSpot     bool      `json:"above_spot"`
	Strength      float64   `json:"strength"`
	TriggerVolume float64   `json:"trigger_volume"`
	Timeframe     Timeframe `json:"timeframe"`
}

// DealerPositioning summarizes assumed dealer book posture for zone scoring.
type DealerPositioning struct {
	ShortGamma bool    `json:"short_gamma"`
	Strength   float64 `json:"strength"` // [0,1]
}

// Analysis is the complete per-snapshot gamma output.
type Analysis struct {
	Instrument     string            `json:"instrument"`
	Spot           float64           `json:"spot"`
	NetExposure    float64           `json:"net_exposure"`
	Flip           *FlipLevel        `json:"flip,omitempty"`
	SecondaryFlips []FlipLevel       `json:"secondary_flips,omitempty"`
	Pinning        PinningAssessment `json:"pinning"`
	Zones          []Zone            `json:"zones,omitempty"`
	Reasons        []string          `json:"reasons,omitempty"`
}

// Config holds the tunable surface of the calculator. Zero values are
// replaced by DefaultConfig at construction.
type Config struct {
	GridSpanPct        float64 `yaml:"grid_span_pct" default:"0.20" validate:"gt=0,lte=0.5"`
	GridStepPct        float64 `yaml:"grid_step_pct" default:"0.005" validate:"gt=0,lte=0.05"`
	PinRangePct        float64 `yaml:"pin_range_pct" default:"0.05" validate:"gt=0,lte=0.25"`
	AccelRangePct      float64 `yaml:"accel_range_pct" default:"0.10" validate:"gt=0,lte=0.5"`
	AccelStrengthFloor float64 `yaml:"accel_strength_floor" default:"0.3" validate:"gte=0,lte=1"`
	MinUsableStrikes   int     `yaml:"min_usable_strikes" default:"3" validate:"gte=1"`
}

// DefaultConfig returns the production calculator parameters.
func DefaultConfig() Config {
	return Config{
		GridSpanPct:        0.20,
		GridStepPct:        0.005,
		PinRangePct:        0.05,
		AccelRangePct:      0.10,
		AccelStrengthFloor: 0.3,
		MinUsableStrikes:   3,
	}
}

// Calculator evaluates net dealer gamma exposure for option-chain snapshots.
type Calculator struct {
	cfg Config
}

// NewCalculator creates a calculator, falling back to defaults for unset
// config fields.
func NewCalculator(cfg Config) *Calculator {
	def := DefaultConfig()
	if cfg.GridSpanPct <= 0 {
		cfg.GridSpanPct = def.GridSpanPct
	}
	if cfg.GridStepPct <= 0 {
		cfg.GridStepPct = def.GridStepPct
	}
	if cfg.PinRangePct <= 0 {
		cfg.PinRangePct = def.PinRangePct
	}
	if cfg.AccelRangePct <= 0 {
		cfg.AccelRangePct = def.AccelRangePct
	}
	if cfg.AccelStrengthFloor <= 0 {
		cfg.AccelStrengthFloor = def.AccelStrengthFloor
	}
	if cfg.MinUsableStrikes <= 0 {
		cfg.MinUsableStrikes = def.MinUsableStrikes
	}
	return &Calculator{cfg: cfg}
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
