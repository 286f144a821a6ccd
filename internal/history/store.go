package history

import (
	"math"
	"sync"
)

// Trend classifies the recent drift of an instrument's confidence.
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

// trendEpsilon is the half-to-half mean shift below which the trend reads
// stable.
const trendEpsilon = 0.02

// Snapshot is the derived view of one instrument's confidence history after
// an observation.
type Snapshot struct {
	Instrument        string  `json:"instrument"`
	Count             int     `json:"count"`
	AverageConfidence float64 `json:"average_confidence"`
	Trend             Trend   `json:"trend"`
	Reliability       float64 `json:"reliability"` // falls as confidence variance rises
	Delta             float64 `json:"delta"`       // vs the immediately preceding observation
	HasPrevious       bool    `json:"has_previous"`
}

// Store keeps bounded per-instrument confidence history. It is an explicit
// keyed store injected into the pipeline, not module-level state, so
// independent pipelines never share history. Writes for one instrument are
// serialized by a per-record mutex; different instruments never contend.
type Store struct {
	mu      sync.RWMutex
	limit   int
	records map[string]*record
}

type record struct {
	mu          sync.Mutex
	confidences []float64
}

// NewStore creates a store evicting oldest entries beyond limit per
// instrument.
func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = 50
	}
	return &Store{limit: limit, records: make(map[string]*record)}
}

// Observe appends a confidence for an instrument and returns the updated
// snapshot, including the delta against the immediately preceding
// observation. The append and the delta read happen under the same
// per-instrument lock.
func (s *Store) Observe(instrument string, confidence float64) Snapshot {
	rec := s.record(instrument)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	snap := Snapshot{Instrument: instrument}
	if n := len(rec.confidences); n > 0 {
		snap.Delta = confidence - rec.confidences[n-1]
		snap.HasPrevious = true
	}

	rec.confidences = append(rec.confidences, confidence)
	if len(rec.confidences) > s.limit {
		rec.confidences = rec.confidences[len(rec.confidences)-s.limit:]
	}

	fill(&snap, rec.confidences)
	return snap
}

// Get returns the current snapshot for an instrument without recording a new
// observation.
func (s *Store) Get(instrument string) (Snapshot, bool) {
	s.mu.RLock()
	rec, ok := s.records[instrument]
	s.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.confidences) == 0 {
		return Snapshot{}, false
	}
	snap := Snapshot{Instrument: instrument}
	fill(&snap, rec.confidences)
	return snap, true
}

func (s *Store) record(instrument string) *record {
	s.mu.RLock()
	rec, ok := s.records[instrument]
	s.mu.RUnlock()
	if ok {
		return rec
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok = s.records[instrument]; ok {
		return rec
	}
	rec = &record{}
	s.records[instrument] = rec
	return rec
}

func fill(snap *Snapshot, confidences []float64) {
	snap.Count = len(confidences)
	snap.AverageConfidence = mean(confidences)
	snap.Trend = classifyTrend(confidences)
	snap.Reliability = reliability(confidences)
}

// classifyTrend compares the mean of the newer half of the window against
// the older half. Fewer than four observations read stable.
func classifyTrend(confidences []float64) Trend {
	n := len(confidences)
	if n < 4 {
		return TrendStable
	}
	mid := n / 2
	older := mean(confidences[:mid])
	newer := mean(confidences[mid:])
	switch {
	case newer-older > trendEpsilon:
		return TrendRising
	case older-newer > trendEpsilon:
		return TrendFalling
	default:
		return TrendStable
	}
}

// reliability is derived from historical confidence variance alone: a steady
// signal is trustworthy, an erratic one is not.
func reliability(confidences []float64) float64 {
	if len(confidences) < 2 {
		return 0.5
	}
	stddev := math.Sqrt(variance(confidences))
	r := 1 - 2*stddev
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	total := 0.0
	for _, v := range values {
		d := v - m
		total += d * d
	}
	return total / float64(len(values))
}
