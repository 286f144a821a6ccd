package gamma

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfall/conviction/internal/domain/options"
)

// pinSnapshot concentrates open interest at one strike near spot.
func pinSnapshot(now time.Time, dte time.Duration) *options.ChainSnapshot {
	expiry := now.Add(dte)
	return &options.ChainSnapshot{
		Instrument: "SPY", UnderlyingPrice: 500, Timestamp: now,
		Calls: []options.Contract{
			{Type: options.Call, Strike: 500, Expiry: expiry, OpenInterest: 20000, Gamma: 0.06},
			{Type: options.Call, Strike: 510, Expiry: expiry, OpenInterest: 500, Gamma: 0.03},
		},
		Puts: []options.Contract{
			{Type: options.Put, Strike: 500, Expiry: expiry, OpenInterest: 18000, Gamma: 0.06},
			{Type: options.Put, Strike: 490, Expiry: expiry, OpenInterest: 600, Gamma: 0.03},
		},
	}
}

func TestPinningRisk_ExpiryDayConcentration(t *testing.T) {
	now := time.Now()
	calc := NewCalculator(DefaultConfig())

	assessment := calc.PinningRisk(pinSnapshot(now, 6*time.Hour), 500)
	// Same-day expiry with ~95% of nearby OI on one strike: top tier risk.
	assert.Contains(t, []RiskLevel{RiskHigh, RiskExtreme}, assessment.Level)
	assert.Greater(t, assessment.Score, 0.55)
	assert.Greater(t, assessment.TimeWeight, 0.9)

	require.NotEmpty(t, assessment.Pins)
	top := assessment.Pins[0]
	assert.Equal(t, 500.0, top.Strike)
	assert.Greater(t, top.Strength, 0.9)
	assert.Greater(t, top.Magnetism, 0.9) // at-the-money, no distance decay
	assert.InDelta(t, 0.0, top.DistanceFromPrice, 1e-9)
}

func TestPinningRisk_FarExpiryWeakens(t *testing.T) {
	now := time.Now()
	calc := NewCalculator(DefaultConfig())

	near := calc.PinningRisk(pinSnapshot(now, 6*time.Hour), 500)
	far := calc.PinningRisk(pinSnapshot(now, 45*24*time.Hour), 500)

	// Pinning strengthens monotonically as expiry approaches.
	assert.Greater(t, near.Score, far.Score)
	assert.Greater(t, near.TimeWeight, far.TimeWeight)
}

func TestPinningRisk_InsufficientDepth(t *testing.T) {
	now := time.Now()
	calc := NewCalculator(DefaultConfig())
	thin := &options.ChainSnapshot{
		Instrument: "THIN", UnderlyingPrice: 100, Timestamp: now,
		Calls: []options.Contract{{Type: options.Call, Strike: 100, Expiry: now.Add(time.Hour), OpenInterest: 50, Gamma: 0.05}},
	}

	assessment := calc.PinningRisk(thin, 100)
	assert.Equal(t, RiskLow, assessment.Level)
	assert.Zero(t, assessment.Score)
	assert.Empty(t, assessment.Pins)
}

func TestPinningRisk_IgnoresFarStrikes(t *testing.T) {
	now := time.Now()
	expiry := now.Add(24 * time.Hour)
	calc := NewCalculator(DefaultConfig())
	snap := &options.ChainSnapshot{
		Instrument: "FAR", UnderlyingPrice: 100, Timestamp: now,
		Calls: []options.Contract{
			{Type: options.Call, Strike: 100, Expiry: expiry, OpenInterest: 100, Gamma: 0.05},
			{Type: options.Call, Strike: 101, Expiry: expiry, OpenInterest: 100, Gamma: 0.05},
			// Massive OI but 20% away: outside the 5% pin range.
			{Type: options.Call, Strike: 120, Expiry: expiry, OpenInterest: 100000, Gamma: 0.05},
		},
	}

	assessment := calc.PinningRisk(snap, 100)
	for _, pin := range assessment.Pins {
		assert.LessOrEqual(t, pin.DistanceFromPrice, calc.cfg.PinRangePct)
	}
}

func TestPinTypes(t *testing.T) {
	now := time.Now()
	expiry := now.Add(24 * time.Hour)
	calc := NewCalculator(DefaultConfig())
	snap := &options.ChainSnapshot{
		Instrument: "TYPES", UnderlyingPrice: 100, Timestamp: now,
		Calls: []options.Contract{
			{Type: options.Call, Strike: 101, Expiry: expiry, OpenInterest: 9000, Gamma: 0.01}, // call heavy
			{Type: options.Call, Strike: 99, Expiry: expiry, OpenInterest: 1000, Gamma: 0.01},
			{Type: options.Call, Strike: 100, Expiry: expiry, OpenInterest: 4000, Gamma: 0.09}, // balanced, high gamma
		},
		Puts: []options.Contract{
			{Type: options.Put, Strike: 99, Expiry: expiry, OpenInterest: 9000, Gamma: 0.01}, // put heavy
			{Type: options.Put, Strike: 101, Expiry: expiry, OpenInterest: 1000, Gamma: 0.01},
			{Type: options.Put, Strike: 100, Expiry: expiry, OpenInterest: 4000, Gamma: 0.09},
		},
	}

	assessment := calc.PinningRisk(snap, 100)
	byStrike := make(map[float64]PinType)
	for _, pin := range assessment.Pins {
		byStrike[pin.Strike] = pin.PinType
	}
	assert.Equal(t, CallPin, byStrike[101])
	assert.Equal(t, PutPin, byStrike[99])
	assert.Equal(t, GammaPin, byStrike[100])
}
