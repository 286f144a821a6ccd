package gamma

import (
	"math"
	"sort"

	"github.com/quantfall/conviction/internal/domain/options"
)

const maxAccelerationZones = 5

// AccelerationZones finds strikes where dealer hedging can amplify a move:
// call strikes above spot and put strikes below, within AccelRangePct. Zone
// strength combines gamma mass, proximity decay, and dealer positioning;
// only zones above AccelStrengthFloor survive, top five returned.
func (c *Calculator) AccelerationZones(snap *options.ChainSnapshot, price float64, positioning DealerPositioning) []Zone {
	if price <= 0 || snap.UsableStrikes() < c.cfg.MinUsableStrikes || positioning.Strength <= 0 {
		return nil
	}

	type candidate struct {
		strike    float64
		aboveSpot bool
		gammaMass float64
		oi        int64
		dist      float64
	}

	candidates := make([]candidate, 0)
	collect := func(contracts []options.Contract, above bool) {
		byStrike := make(map[float64]*candidate)
		for _, contract := range contracts {
			if !contract.Usable() {
				continue
			}
			dist := math.Abs(contract.Strike-price) / price
			if dist > c.cfg.AccelRangePct {
				continue
			}
			if above && contract.Strike <= price {
				continue
			}
			if !above && contract.Strike >= price {
				continue
			}
			entry, ok := byStrike[contract.Strike]
			if !ok {
				entry = &candidate{strike: contract.Strike, aboveSpot: above, dist: dist}
				byStrike[contract.Strike] = entry
			}
			entry.gammaMass += math.Abs(contract.Gamma) * float64(contract.OpenInterest)
			entry.oi += contract.OpenInterest
		}
		for _, entry := range byStrike {
			candidates = append(candidates, *entry)
		}
	}
	collect(snap.Calls, true)
	collect(snap.Puts, false)

	if len(candidates) == 0 {
		return nil
	}

	maxMass := 0.0
	for _, cand := range candidates {
		if cand.gammaMass > maxMass {
			maxMass = cand.gammaMass
		}
	}
	if maxMass == 0 {
		return nil
	}

	zones := make([]Zone, 0, len(candidates))
	for _, cand := range candidates {
		strength := (cand.gammaMass / maxMass) * math.Exp(-15*cand.dist) * clamp01(positioning.Strength)
		if strength < c.cfg.AccelStrengthFloor {
			continue
		}
		zones = append(zones, Zone{
			Strike:        cand.strike,
			AboveSpot:     cand.aboveSpot,
			Strength:      strength,
			TriggerVolume: float64(cand.oi) * (0.25 + 5*cand.dist),
			Timeframe:     timeframeFor(cand.dist),
		})
	}

	sort.Slice(zones, func(i, j int) bool { return zones[i].Strength > zones[j].Strength })
	if len(zones) > maxAccelerationZones {
		zones = zones[:maxAccelerationZones]
	}
	return zones
}

func timeframeFor(dist float64) Timeframe {
	switch {
	case dist < 0.02:
		return TimeframeImmediate
	case dist < 0.05:
		return TimeframeShortTerm
	default:
		return TimeframeMedium
	}
}
