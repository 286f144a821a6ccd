package scan

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quantfall/conviction/internal/domain/factors"
	"github.com/quantfall/conviction/internal/domain/options"
)

// Fixture is an offline scan input: factor scores and an option chain per
// instrument. Used by the CLI and by integration tests in place of live
// collaborators.
type Fixture struct {
	Instruments map[string]InstrumentFixture `yaml:"instruments"`
}

// InstrumentFixture holds one instrument's externally produced factor scores
// and its chain snapshot.
type InstrumentFixture struct {
	Factors map[string]FactorFixture `yaml:"factors"`
	Chain   ChainFixture             `yaml:"chain"`
}

// FactorFixture mirrors factors.Score in fixture form.
type FactorFixture struct {
	Confidence float64 `yaml:"confidence"`
	Strength   float64 `yaml:"strength"`
	Direction  string  `yaml:"direction"`
}

// ChainFixture mirrors options.ChainSnapshot in fixture form.
type ChainFixture struct {
	UnderlyingPrice float64           `yaml:"underlying_price"`
	Timestamp       time.Time         `yaml:"timestamp"`
	Calls           []ContractFixture `yaml:"calls"`
	Puts            []ContractFixture `yaml:"puts"`
}

// ContractFixture mirrors options.Contract in fixture form.
type ContractFixture struct {
	Strike            float64   `yaml:"strike"`
	Expiry            time.Time `yaml:"expiry"`
	OpenInterest      int64     `yaml:"open_interest"`
	Volume            int64     `yaml:"volume"`
	ImpliedVolatility float64   `yaml:"implied_volatility"`
	Delta             float64   `yaml:"delta"`
	Gamma             float64   `yaml:"gamma"`
	Theta             float64   `yaml:"theta"`
	Vega              float64   `yaml:"vega"`
}

// LoadFixture parses a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	fixture := &Fixture{}
	if err := yaml.Unmarshal(raw, fixture); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if len(fixture.Instruments) == 0 {
		return nil, fmt.Errorf("fixture %s contains no instruments", path)
	}
	return fixture, nil
}

// Source builds a StaticSource from the fixture's factor scores.
func (f *Fixture) Source() *StaticSource {
	table := make(map[string]map[string]factors.Score, len(f.Instruments))
	for instrument, fx := range f.Instruments {
		scores := make(map[string]factors.Score, len(fx.Factors))
		for name, ff := range fx.Factors {
			scores[name] = factors.Score{
				Name:       name,
				Confidence: ff.Confidence,
				Strength:   ff.Strength,
				Direction:  factors.Direction(ff.Direction),
			}.Clamped()
		}
		table[instrument] = scores
	}
	return NewStaticSource(table)
}

// Snapshots builds the option-chain snapshots keyed by instrument. A fixture
// timestamp of zero defaults to now so relative expiries stay meaningful.
func (f *Fixture) Snapshots() map[string]*options.ChainSnapshot {
	out := make(map[string]*options.ChainSnapshot, len(f.Instruments))
	for instrument, fx := range f.Instruments {
		ts := fx.Chain.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		out[instrument] = &options.ChainSnapshot{
			Instrument:      instrument,
			UnderlyingPrice: fx.Chain.UnderlyingPrice,
			Timestamp:       ts,
			Calls:           contractsFrom(fx.Chain.Calls, options.Call),
			Puts:            contractsFrom(fx.Chain.Puts, options.Put),
		}
	}
	return out
}

func contractsFrom(fixtures []ContractFixture, side options.ContractType) []options.Contract {
	out := make([]options.Contract, 0, len(fixtures))
	for _, cf := range fixtures {
		out = append(out, options.Contract{
			Type:              side,
			Strike:            cf.Strike,
			Expiry:            cf.Expiry,
			OpenInterest:      cf.OpenInterest,
			Volume:            cf.Volume,
			ImpliedVolatility: cf.ImpliedVolatility,
			Delta:             cf.Delta,
			Gamma:             cf.Gamma,
			Theta:             cf.Theta,
			Vega:              cf.Vega,
		})
	}
	return out
}
