package gamma

import (
	"math"
	"sort"

	"github.com/quantfall/conviction/internal/domain/options"
)

const maxPinLevels = 5

// PinningRisk scores the likelihood that price gravitates toward a
// high-open-interest strike near expiry. Strikes within PinRangePct of spot
// are considered; overall risk blends time-to-expiry, the dominance of the
// heaviest strike, and local OI concentration at 0.4/0.3/0.3.
func (c *Calculator) PinningRisk(snap *options.ChainSnapshot, price float64) PinningAssessment {
	neutral := PinningAssessment{Level: RiskLow}
	if price <= 0 || snap.UsableStrikes() < c.cfg.MinUsableStrikes {
		return neutral
	}

	all := snap.OpenInterestByStrike()
	nearby := make([]options.StrikeOpenInterest, 0, len(all))
	totalOI := int64(0)
	for _, s := range all {
		if math.Abs(s.Strike-price)/price <= c.cfg.PinRangePct {
			nearby = append(nearby, s)
			totalOI += s.TotalOI
		}
	}
	if len(nearby) == 0 || totalOI == 0 {
		return neutral
	}

	sort.Slice(nearby, func(i, j int) bool { return nearby[i].TotalOI > nearby[j].TotalOI })
	top := nearby[0]

	// Pinning strengthens monotonically as expiry approaches: full weight at
	// zero DTE, decayed with a 5-day half-life-ish constant.
	dte := snap.DaysToNearestExpiry()
	timeWeight := math.Exp(-dte / 5.0)

	strengthWeight := float64(top.TotalOI) / float64(totalOI)
	concentrationWeight := localConcentration(nearby, top)

	score := 0.4*timeWeight + 0.3*strengthWeight + 0.3*concentrationWeight

	level := RiskLow
	switch {
	case score >= 0.75:
		level = RiskExtreme
	case score >= 0.55:
		level = RiskHigh
	case score >= 0.35:
		level = RiskModerate
	}

	pins := make([]PinLevel, 0, maxPinLevels)
	for i, s := range nearby {
		if i >= maxPinLevels {
			break
		}
		pins = append(pins, c.buildPin(snap, s, price, totalOI))
	}

	return PinningAssessment{
		Level:               level,
		Score:               score,
		TimeWeight:          timeWeight,
		StrengthWeight:      strengthWeight,
		ConcentrationWeight: concentrationWeight,
		Pins:                pins,
	}
}

// localConcentration measures how much of the OI within 2% of the top strike
// sits at the top strike itself. A lone heavy strike concentrates hedging
// flow far more than the same OI spread over neighbors.
func localConcentration(nearby []options.StrikeOpenInterest, top options.StrikeOpenInterest) float64 {
	localOI := int64(0)
	for _, s := range nearby {
		if math.Abs(s.Strike-top.Strike)/top.Strike <= 0.02 {
			localOI += s.TotalOI
		}
	}
	if localOI == 0 {
		return 0
	}
	return float64(top.TotalOI) / float64(localOI)
}

func (c *Calculator) buildPin(snap *options.ChainSnapshot, s options.StrikeOpenInterest, price float64, totalOI int64) PinLevel {
	dist := math.Abs(s.Strike-price) / price
	strength := float64(s.TotalOI) / float64(totalOI)

	callShare := float64(s.CallOI) / float64(s.TotalOI)
	avgGamma := s.GammaOI / float64(s.TotalOI)

	pinType := DualPin
	switch {
	case callShare >= 0.65:
		pinType = CallPin
	case callShare <= 0.35:
		pinType = PutPin
	case avgGamma >= 0.05:
		// Balanced OI but outsized gamma per contract: hedging, not open
		// interest, is the magnet.
		pinType = GammaPin
	}

	return PinLevel{
		Strike:                s.Strike,
		PinType:               pinType,
		Strength:              strength,
		Magnetism:             strength * math.Exp(-8*dist),
		OpenInterest:          s.TotalOI,
		GammaExposureAtStrike: c.NetExposure(snap, s.Strike),
		DistanceFromPrice:     dist,
	}
}
