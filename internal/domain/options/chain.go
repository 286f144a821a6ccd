package options

import (
	"sort"
	"time"
)

// ContractType identifies the side of an option contract.
type ContractType string

const (
	Call ContractType = "call"
	Put  ContractType = "put"
)

// Contract is a single option contract captured from a chain snapshot.
// Immutable once captured; snapshots are replaced, never mutated.
type Contract struct {
	Type              ContractType `json:"type"`
	Strike            float64      `json:"strike"`
	Expiry            time.Time    `json:"expiry"`
	OpenInterest      int64        `json:"open_interest"`
	Volume            int64        `json:"volume"`
	ImpliedVolatility float64      `json:"implied_volatility"`
	Delta             float64      `json:"delta"`
	Gamma             float64      `json:"gamma"`
	Theta             float64      `json:"theta"`
	Vega              float64      `json:"vega"`
}

// Usable reports whether the contract carries enough data to contribute to
// exposure math. Zero-OI contracts add nothing and zero strikes are feed noise.
func (c Contract) Usable() bool {
	return c.Strike > 0 && c.OpenInterest > 0
}

// ChainSnapshot is the full call/put chain for one instrument at one instant.
// One snapshot per instrument per evaluation cycle; each cycle produces a new
// snapshot rather than updating the previous one.
type ChainSnapshot struct {
	Instrument      string     `json:"instrument"`
	Calls           []Contract `json:"calls"`
	Puts            []Contract `json:"puts"`
	UnderlyingPrice float64    `json:"underlying_price"`
	Timestamp       time.Time  `json:"timestamp"`
}

// UsableStrikes counts distinct strikes with open interest across both sides.
func (s *ChainSnapshot) UsableStrikes() int {
	seen := make(map[float64]struct{})
	for _, c := range s.Calls {
		if c.Usable() {
			seen[c.Strike] = struct{}{}
		}
	}
	for _, p := range s.Puts {
		if p.Usable() {
			seen[p.Strike] = struct{}{}
		}
	}
	return len(seen)
}

// StrikeOpenInterest aggregates open interest by strike.
type StrikeOpenInterest struct {
	Strike  float64
	CallOI  int64
	PutOI   int64
	TotalOI int64
	// GammaOI is Σ|gamma|·OI at the strike, both sides.
	GammaOI float64
}

// OpenInterestByStrike groups usable contracts by strike, sorted ascending.
func (s *ChainSnapshot) OpenInterestByStrike() []StrikeOpenInterest {
	byStrike := make(map[float64]*StrikeOpenInterest)
	add := func(c Contract) {
		if !c.Usable() {
			return
		}
		entry, ok := byStrike[c.Strike]
		if !ok {
			entry = &StrikeOpenInterest{Strike: c.Strike}
			byStrike[c.Strike] = entry
		}
		if c.Type == Call {
			entry.CallOI += c.OpenInterest
		} else {
			entry.PutOI += c.OpenInterest
		}
		entry.TotalOI += c.OpenInterest
		entry.GammaOI += abs(c.Gamma) * float64(c.OpenInterest)
	}
	for _, c := range s.Calls {
		add(c)
	}
	for _, p := range s.Puts {
		add(p)
	}

	out := make([]StrikeOpenInterest, 0, len(byStrike))
	for _, entry := range byStrike {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Strike < out[j].Strike })
	return out
}

// NearestExpiry returns the soonest expiry at or after the snapshot timestamp
// among usable contracts, and whether one exists.
func (s *ChainSnapshot) NearestExpiry() (time.Time, bool) {
	var nearest time.Time
	found := false
	consider := func(c Contract) {
		if !c.Usable() || c.Expiry.Before(s.Timestamp) {
			return
		}
		if !found || c.Expiry.Before(nearest) {
			nearest = c.Expiry
			found = true
		}
	}
	for _, c := range s.Calls {
		consider(c)
	}
	for _, p := range s.Puts {
		consider(p)
	}
	return nearest, found
}

// DaysToNearestExpiry returns fractional days until the nearest expiry, or
// zero when the chain has no future expiries.
func (s *ChainSnapshot) DaysToNearestExpiry() float64 {
	nearest, ok := s.NearestExpiry()
	if !ok {
		return 0
	}
	return nearest.Sub(s.Timestamp).Hours() / 24.0
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
