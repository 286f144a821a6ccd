package gamma

import (
	"context"
	"math"
	"sort"

	"github.com/quantfall/conviction/internal/domain/options"
)

// FindFlipLevel scans net exposure over a ±GridSpanPct price grid and
// reconciles three detection strategies into a primary flip level plus any
// secondaries. Returns (nil, nil, nil) when exposure holds one sign across
// the whole grid. The grid loop is the only nontrivial inner loop in the
// core, so it observes ctx cancellation.
func (c *Calculator) FindFlipLevel(ctx context.Context, snap *options.ChainSnapshot, price float64) (*FlipLevel, []FlipLevel, error) {
	if price <= 0 || snap.UsableStrikes() < c.cfg.MinUsableStrikes {
		return nil, nil, nil
	}

	grid, exposures, err := c.exposureGrid(ctx, snap, price)
	if err != nil {
		return nil, nil, err
	}

	candidates := make([]FlipLevel, 0, 3)
	if zc := c.zeroCrossingCandidate(grid, exposures, price); zc != nil {
		candidates = append(candidates, *zc)
	}
	if mc := c.maxChangeCandidate(grid, exposures, price); mc != nil {
		candidates = append(candidates, *mc)
	}
	if oc := c.oiWeightedCandidate(snap, grid, exposures, price); oc != nil {
		candidates = append(candidates, *oc)
	}
	if len(candidates) == 0 {
		return nil, nil, nil
	}

	// Closest to spot wins; the rest become secondary levels.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ProximityToSpot < candidates[j].ProximityToSpot
	})
	primary := candidates[0]
	return &primary, candidates[1:], nil
}

// exposureGrid samples NetExposure from (1−span)·price to (1+span)·price at
// step·price increments.
func (c *Calculator) exposureGrid(ctx context.Context, snap *options.ChainSnapshot, price float64) ([]float64, []float64, error) {
	span := c.cfg.GridSpanPct
	step := c.cfg.GridStepPct
	points := int(2*span/step) + 1

	grid := make([]float64, 0, points)
	exposures := make([]float64, 0, points)
	for i := 0; i < points; i++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		p := price * (1 - span + float64(i)*step)
		grid = append(grid, p)
		exposures = append(exposures, c.NetExposure(snap, p))
	}
	return grid, exposures, nil
}

// zeroCrossingCandidate finds the first sign change nearest to spot and
// linearly interpolates the exact crossing between the bracketing samples.
// Exposure is treated as locally linear between 0.5%-spaced points, which
// makes a single interpolation pass sufficient; no bisection refinement.
func (c *Calculator) zeroCrossingCandidate(grid, exposures []float64, price float64) *FlipLevel {
	best := (*FlipLevel)(nil)
	for i := 0; i+1 < len(grid); i++ {
		g1, g2 := exposures[i], exposures[i+1]
		if g1 == 0 && g2 == 0 {
			continue
		}
		if g1*g2 > 0 {
			continue
		}
		p1, p2 := grid[i], grid[i+1]
		root := p1
		if g2 != g1 {
			root = p1 + (-g1)/(g2-g1)*(p2-p1)
		}
		change := math.Abs(g2 - g1)
		cand := c.buildFlip(root, change, price, StrategyZeroCrossing, 0.8)
		if best == nil || cand.ProximityToSpot < best.ProximityToSpot {
			best = &cand
		}
	}
	return best
}

// maxChangeCandidate picks the midpoint of the grid interval with the
// steepest exposure change. Only meaningful when a sign change exists
// somewhere in range; otherwise the steepest interval is noise.
func (c *Calculator) maxChangeCandidate(grid, exposures []float64, price float64) *FlipLevel {
	if !hasSignChange(exposures) {
		return nil
	}
	bestIdx := -1
	bestChange := 0.0
	for i := 0; i+1 < len(exposures); i++ {
		change := math.Abs(exposures[i+1] - exposures[i])
		if change > bestChange {
			bestChange = change
			bestIdx = i
		}
	}
	if bestIdx < 0 || bestChange == 0 {
		return nil
	}
	mid := (grid[bestIdx] + grid[bestIdx+1]) / 2
	cand := c.buildFlip(mid, bestChange, price, StrategyMaxChange, 0.6)
	return &cand
}

// oiWeightedCandidate anchors the flip estimate on open-interest mass: the
// OI-weighted centroid of strikes within the grid span. Heavy strikes are
// where hedging flows actually pivot, so the centroid is a useful cross-check
// on the sampled-curve strategies.
func (c *Calculator) oiWeightedCandidate(snap *options.ChainSnapshot, grid, exposures []float64, price float64) *FlipLevel {
	if !hasSignChange(exposures) {
		return nil
	}
	lo := price * (1 - c.cfg.GridSpanPct)
	hi := price * (1 + c.cfg.GridSpanPct)

	weighted := 0.0
	totalOI := 0.0
	for _, s := range snap.OpenInterestByStrike() {
		if s.Strike < lo || s.Strike > hi {
			continue
		}
		weighted += s.Strike * float64(s.TotalOI)
		totalOI += float64(s.TotalOI)
	}
	if totalOI == 0 {
		return nil
	}
	centroid := weighted / totalOI
	change := changeNear(grid, exposures, centroid)
	cand := c.buildFlip(centroid, change, price, StrategyOIWeighted, 0.5)
	return &cand
}

func (c *Calculator) buildFlip(level, changeMagnitude, price float64, strategy FlipStrategy, baseConfidence float64) FlipLevel {
	proximity := math.Abs(level-price) / price

	// Confidence blends the strategy prior with how close the level sits to
	// spot; a flip 20% away is informational, one 1% away is actionable.
	confidence := clamp01(baseConfidence * (1 - proximity/(2*c.cfg.GridSpanPct)))

	tier := TierMinor
	switch {
	case changeMagnitude >= 0.5:
		tier = TierMajor
	case changeMagnitude >= 0.1:
		tier = TierModerate
	}

	// Rough contracts-to-traverse estimate: the further the level, the more
	// flow is needed to push price through it.
	trigger := changeMagnitude * exposureScale * (0.25 + 5*proximity)

	return FlipLevel{
		Price:                 level,
		Confidence:            confidence,
		GammaChangeMagnitude:  changeMagnitude,
		ProximityToSpot:       proximity,
		Significance:          tier,
		TriggerVolumeEstimate: trigger,
		Strategy:              strategy,
	}
}

func hasSignChange(exposures []float64) bool {
	for i := 0; i+1 < len(exposures); i++ {
		if exposures[i]*exposures[i+1] < 0 {
			return true
		}
		if exposures[i] == 0 && exposures[i+1] != 0 {
			return true
		}
	}
	return false
}

// changeNear returns the exposure change across the grid interval containing
// the given price, or zero when the price falls outside the grid.
func changeNear(grid, exposures []float64, price float64) float64 {
	for i := 0; i+1 < len(grid); i++ {
		if price >= grid[i] && price <= grid[i+1] {
			return math.Abs(exposures[i+1] - exposures[i])
		}
	}
	return 0
}
