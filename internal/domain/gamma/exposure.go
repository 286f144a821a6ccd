package gamma

import (
	"math"

	"github.com/quantfall/conviction/internal/domain/options"
)

// exposureScale keeps net exposure in a human-readable range. The raw sum is
// gamma × contracts × log-OI, which for liquid chains lands in the millions.
const exposureScale = 1e6

// NetExposure computes net dealer gamma exposure at the given underlying
// price. Dealers are assumed short calls and long puts: call gamma counts
// against them (negative), put gamma for them (positive). Each contract is
// weighted by proximity of its strike to price and by log open interest, then
// the sum is normalized by price so instruments of different notional compare.
func (c *Calculator) NetExposure(snap *options.ChainSnapshot, price float64) float64 {
	if price <= 0 {
		return 0
	}
	total := 0.0
	for _, call := range snap.Calls {
		if !call.Usable() {
			continue
		}
		oi := float64(call.OpenInterest)
		total += -call.Gamma * oi * proximityWeight(call.Strike/price) * math.Log(oi+1)
	}
	for _, put := range snap.Puts {
		if !put.Usable() {
			continue
		}
		oi := float64(put.OpenInterest)
		total += put.Gamma * oi * proximityWeight(put.Strike/price) * math.Log(oi+1)
	}
	return total / (price * exposureScale)
}

// proximityWeight decays exponentially with distance from the money so
// near-the-money strikes dominate, matching where gamma concentrates.
func proximityWeight(moneyness float64) float64 {
	return math.Exp(-2.0 * math.Abs(moneyness-1.0))
}
