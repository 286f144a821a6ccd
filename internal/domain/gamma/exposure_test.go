package gamma

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quantfall/conviction/internal/domain/options"
)

// symmetricSnapshot builds a chain whose net exposure is positive below spot
// (puts dominate) and negative above (calls dominate), crossing zero at the
// midpoint between the two strikes.
func symmetricSnapshot(spot float64, now time.Time) *options.ChainSnapshot {
	expiry := now.Add(7 * 24 * time.Hour)
	return &options.ChainSnapshot{
		Instrument:      "SPY",
		UnderlyingPrice: spot,
		Timestamp:       now,
		Calls: []options.Contract{
			{Type: options.Call, Strike: spot * 1.10, Expiry: expiry, OpenInterest: 5000, Gamma: 0.05},
		},
		Puts: []options.Contract{
			{Type: options.Put, Strike: spot * 0.90, Expiry: expiry, OpenInterest: 5000, Gamma: 0.05},
		},
	}
}

func TestNetExposure_SignBySide(t *testing.T) {
	now := time.Now()
	calc := NewCalculator(DefaultConfig())
	snap := symmetricSnapshot(100, now)

	// Below spot the put strike is nearer: dealers long puts, positive.
	assert.Positive(t, calc.NetExposure(snap, 92))
	// Above spot the call strike is nearer: dealers short calls, negative.
	assert.Negative(t, calc.NetExposure(snap, 108))
}

func TestNetExposure_ProximityDominance(t *testing.T) {
	now := time.Now()
	expiry := now.Add(7 * 24 * time.Hour)
	calc := NewCalculator(DefaultConfig())

	nearOnly := &options.ChainSnapshot{
		Instrument: "A", UnderlyingPrice: 100, Timestamp: now,
		Calls: []options.Contract{{Type: options.Call, Strike: 101, Expiry: expiry, OpenInterest: 1000, Gamma: 0.05}},
	}
	farOnly := &options.ChainSnapshot{
		Instrument: "B", UnderlyingPrice: 100, Timestamp: now,
		Calls: []options.Contract{{Type: options.Call, Strike: 118, Expiry: expiry, OpenInterest: 1000, Gamma: 0.05}},
	}

	near := calc.NetExposure(nearOnly, 100)
	far := calc.NetExposure(farOnly, 100)
	// Same OI and gamma, but the near-the-money strike must weigh far more.
	assert.Greater(t, -near, -far*2)
}

func TestNetExposure_Degenerate(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	empty := &options.ChainSnapshot{Instrument: "EMPTY", UnderlyingPrice: 100, Timestamp: time.Now()}

	assert.Zero(t, calc.NetExposure(empty, 100))
	assert.Zero(t, calc.NetExposure(symmetricSnapshot(100, time.Now()), 0))
	assert.Zero(t, calc.NetExposure(symmetricSnapshot(100, time.Now()), -5))
}

func TestProximityWeight(t *testing.T) {
	assert.InDelta(t, 1.0, proximityWeight(1.0), 1e-12)
	assert.InDelta(t, proximityWeight(0.9), proximityWeight(1.1), 1e-12)
	assert.Less(t, proximityWeight(1.2), proximityWeight(1.05))
}
