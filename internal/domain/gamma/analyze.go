package gamma

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/quantfall/conviction/internal/domain/factors"
	"github.com/quantfall/conviction/internal/domain/options"
)

// Analyze runs the full gamma evaluation for one snapshot: net exposure,
// flip levels, pinning risk, and acceleration zones. A chain with fewer than
// MinUsableStrikes usable strikes yields the documented neutral result (zero
// exposure, no flip, LOW pinning) with a recorded reason; gamma is one of
// six factors and degrades rather than failing the evaluation.
func (c *Calculator) Analyze(ctx context.Context, snap *options.ChainSnapshot, positioning DealerPositioning) (*Analysis, error) {
	analysis := &Analysis{
		Instrument: snap.Instrument,
		Spot:       snap.UnderlyingPrice,
		Pinning:    PinningAssessment{Level: RiskLow},
	}

	usable := snap.UsableStrikes()
	if usable < c.cfg.MinUsableStrikes {
		analysis.Reasons = append(analysis.Reasons,
			fmt.Sprintf("insufficient option chain depth: %d usable strikes (need %d), neutral gamma assumed", usable, c.cfg.MinUsableStrikes))
		return analysis, nil
	}
	if snap.UnderlyingPrice <= 0 {
		analysis.Reasons = append(analysis.Reasons, "non-positive underlying price, neutral gamma assumed")
		return analysis, nil
	}

	price := snap.UnderlyingPrice
	analysis.NetExposure = c.NetExposure(snap, price)

	flip, secondary, err := c.FindFlipLevel(ctx, snap, price)
	if err != nil {
		return nil, fmt.Errorf("flip scan for %s: %w", snap.Instrument, err)
	}
	analysis.Flip = flip
	analysis.SecondaryFlips = secondary
	if flip == nil {
		analysis.Reasons = append(analysis.Reasons, "no gamma flip within ±20% of spot")
	}

	analysis.Pinning = c.PinningRisk(snap, price)
	analysis.Zones = c.AccelerationZones(snap, price, positioning)

	log.Debug().
		Str("instrument", snap.Instrument).
		Float64("net_exposure", analysis.NetExposure).
		Bool("flip_found", flip != nil).
		Str("pinning", string(analysis.Pinning.Level)).
		Int("zones", len(analysis.Zones)).
		Msg("gamma analysis complete")

	return analysis, nil
}

// FactorScore derives the gamma factor from an analysis. Direction follows
// spot relative to the primary flip: above the flip dealers are long gamma
// and dips get bought (bullish), below they are short and moves accelerate
// lower (bearish); with no flip in range the read is neutral. Confidence
// blends exposure magnitude with flip proximity and is damped when pinning
// risk is EXTREME, since a pinned tape fights any directional signal.
func (a *Analysis) FactorScore() factors.Score {
	score := factors.Score{
		Name:      factors.Gamma,
		Direction: factors.Neutral,
	}

	magnitude := math.Abs(a.NetExposure)
	exposureConfidence := magnitude / (magnitude + 1.0)

	if a.Flip != nil {
		if a.Spot > a.Flip.Price {
			score.Direction = factors.Bullish
		} else {
			score.Direction = factors.Bearish
		}
		flipConfidence := math.Max(0, 1-a.Flip.ProximityToSpot/0.20)
		score.Confidence = 0.6*exposureConfidence + 0.4*flipConfidence
	} else {
		score.Confidence = 0.5 * exposureConfidence
	}

	if a.Pinning.Level == RiskExtreme {
		score.Confidence *= 0.7
	}

	score.Strength = magnitude / (magnitude + 0.5)
	return score.Clamped()
}
