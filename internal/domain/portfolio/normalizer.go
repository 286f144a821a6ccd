package portfolio

import (
	"math"
	"sort"
	"sync"
)

// Recommendation is the portfolio-level trading posture.
type Recommendation string

const (
	// RecommendMulti: broad agreement at high confidence, trade several
	// instruments.
	RecommendMulti Recommendation = "MULTI"
	// RecommendSelective: pick spots, the board disagrees.
	RecommendSelective Recommendation = "SELECTIVE"
	// RecommendSingle: one clear leader, concentrate.
	RecommendSingle Recommendation = "SINGLE"
)

// Distribution buckets raw instrument confidences.
type Distribution struct {
	High   int `json:"high"`   // > 0.7
	Medium int `json:"medium"` // 0.5 – 0.7
	Low    int `json:"low"`    // < 0.5
}

// Result is the cross-instrument aggregate handed to consumers.
type Result struct {
	AggregateConfidence   float64            `json:"aggregate_confidence"`
	NormalizedConfidences map[string]float64 `json:"normalized_confidences"`
	TopInstruments        []string           `json:"top_instruments"` // top 5 by normalized confidence
	Distribution          Distribution       `json:"distribution"`
	Consensus             float64            `json:"consensus"`
	Recommendation        Recommendation     `json:"recommendation"`
}

// Config tunes the cross-instrument normalization.
type Config struct {
	WindowSize   int     `yaml:"window_size" default:"50" validate:"gte=2,lte=1000"`
	RecentWeight float64 `yaml:"recent_weight" default:"0.7" validate:"gte=0,lte=1"`
	MinStddev    float64 `yaml:"min_stddev" default:"0.05" validate:"gt=0"`
	ZClip        float64 `yaml:"z_clip" default:"2.5" validate:"gt=0"`
}

// DefaultConfig returns the production normalization parameters.
func DefaultConfig() Config {
	return Config{WindowSize: 50, RecentWeight: 0.7, MinStddev: 0.05, ZClip: 2.5}
}

// CrossNormalizer rescales per-instrument confidences so instruments are
// comparable across a watch-list. It keeps a bounded recent window and a
// global baseline of every confidence it has seen; the adaptive mean blends
// the two so the scale tracks current conditions without forgetting the
// long-run base rate.
type CrossNormalizer struct {
	mu  sync.Mutex
	cfg Config

	window      []float64
	globalSum   float64
	globalCount float64
}

// NewCrossNormalizer creates a normalizer, filling unset config fields from
// the defaults.
func NewCrossNormalizer(cfg Config) *CrossNormalizer {
	def := DefaultConfig()
	if cfg.WindowSize < 2 {
		cfg.WindowSize = def.WindowSize
	}
	if cfg.RecentWeight <= 0 || cfg.RecentWeight > 1 {
		cfg.RecentWeight = def.RecentWeight
	}
	if cfg.MinStddev <= 0 {
		cfg.MinStddev = def.MinStddev
	}
	if cfg.ZClip <= 0 {
		cfg.ZClip = def.ZClip
	}
	return &CrossNormalizer{cfg: cfg}
}

// NormalizeAcross rescales the given confidences. With one instrument the
// raw value is returned unchanged; with zero instruments the result is empty
// (the aggregate view substitutes the neutral 0.5). Otherwise each value is
// z-scored against the adaptive mean, clipped to ±ZClip sigma, squashed
// through a logistic, and clamped to [0.1, 0.9] — the extremes are reserved
// for true outliers.
func (cn *CrossNormalizer) NormalizeAcross(confidences map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(confidences))
	if len(confidences) == 0 {
		return out
	}
	if len(confidences) == 1 {
		for instrument, c := range confidences {
			out[instrument] = clamp01(c)
		}
		cn.ingest(confidences)
		return out
	}

	cn.mu.Lock()
	adaptiveMean := cn.adaptiveMeanLocked(confidences)
	cn.ingestLocked(confidences)
	cn.mu.Unlock()

	// Degenerate near-identical inputs would blow up the z-scores; the
	// stddev floor keeps the denominator sane.
	stddev := math.Max(populationStddev(confidences), cn.cfg.MinStddev)

	for instrument, c := range confidences {
		z := (clamp01(c) - adaptiveMean) / stddev
		if z > cn.cfg.ZClip {
			z = cn.cfg.ZClip
		} else if z < -cn.cfg.ZClip {
			z = -cn.cfg.ZClip
		}
		squashed := 1 / (1 + math.Exp(-z))
		out[instrument] = clampRange(squashed, 0.1, 0.9)
	}
	return out
}

// Evaluate runs the full cross-instrument aggregation: normalization,
// confidence-weighted aggregate, consensus, distribution, and the mode
// recommendation.
func (cn *CrossNormalizer) Evaluate(confidences map[string]float64) Result {
	normalized := cn.NormalizeAcross(confidences)

	result := Result{
		NormalizedConfidences: normalized,
		TopInstruments:        topByScore(normalized, 5),
		Distribution:          distribute(confidences),
	}

	if len(confidences) == 0 {
		// Defensive default: nothing to aggregate reads as pure neutrality.
		result.AggregateConfidence = 0.5
		result.Recommendation = RecommendSelective
		return result
	}

	result.AggregateConfidence = weightedAggregate(confidences)
	result.Consensus = math.Max(0, 1-4*populationVariance(confidences))
	result.Recommendation = recommend(result.Consensus, result.AggregateConfidence, result.Distribution)
	return result
}

// weightedAggregate averages confidences weighted by confidence^1.5, so
// high-confidence instruments dominate more than proportionally.
func weightedAggregate(confidences map[string]float64) float64 {
	num, den := 0.0, 0.0
	for _, c := range confidences {
		c = clamp01(c)
		w := math.Pow(c, 1.5)
		num += c * w
		den += w
	}
	if den == 0 {
		return 0.5
	}
	return num / den
}

// recommend is the portfolio decision table.
func recommend(consensus, aggregate float64, dist Distribution) Recommendation {
	switch {
	case consensus > 0.7 && aggregate > 0.7:
		return RecommendMulti
	case consensus < 0.5 && dist.High >= 1:
		return RecommendSelective
	case dist.High == 1 && dist.Medium <= 2:
		return RecommendSingle
	default:
		return RecommendSelective
	}
}

func distribute(confidences map[string]float64) Distribution {
	var dist Distribution
	for _, c := range confidences {
		switch {
		case c > 0.7:
			dist.High++
		case c >= 0.5:
			dist.Medium++
		default:
			dist.Low++
		}
	}
	return dist
}

func topByScore(scores map[string]float64, n int) []string {
	type pair struct {
		instrument string
		score      float64
	}
	pairs := make([]pair, 0, len(scores))
	for instrument, score := range scores {
		pairs = append(pairs, pair{instrument, score})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].score != pairs[j].score {
			return pairs[i].score > pairs[j].score
		}
		return pairs[i].instrument < pairs[j].instrument
	})
	if len(pairs) > n {
		pairs = pairs[:n]
	}
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.instrument
	}
	return out
}

// adaptiveMeanLocked blends the recent-window mean with the global baseline
// at RecentWeight/(1−RecentWeight). Before any history accrues it falls back
// to the mean of the current batch.
func (cn *CrossNormalizer) adaptiveMeanLocked(current map[string]float64) float64 {
	batchMean := mapMean(current)

	recentMean := batchMean
	if len(cn.window) > 0 {
		recentMean = sliceMean(cn.window)
	}
	globalMean := batchMean
	if cn.globalCount > 0 {
		globalMean = cn.globalSum / cn.globalCount
	}
	return cn.cfg.RecentWeight*recentMean + (1-cn.cfg.RecentWeight)*globalMean
}

func (cn *CrossNormalizer) ingest(confidences map[string]float64) {
	cn.mu.Lock()
	cn.ingestLocked(confidences)
	cn.mu.Unlock()
}

func (cn *CrossNormalizer) ingestLocked(confidences map[string]float64) {
	for _, c := range confidences {
		c = clamp01(c)
		cn.window = append(cn.window, c)
		cn.globalSum += c
		cn.globalCount++
	}
	if len(cn.window) > cn.cfg.WindowSize {
		cn.window = cn.window[len(cn.window)-cn.cfg.WindowSize:]
	}
}

func mapMean(values map[string]float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += clamp01(v)
	}
	return sum / float64(len(values))
}

func sliceMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func populationVariance(values map[string]float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mapMean(values)
	total := 0.0
	for _, v := range values {
		d := clamp01(v) - m
		total += d * d
	}
	return total / float64(len(values))
}

func populationStddev(values map[string]float64) float64 {
	return math.Sqrt(populationVariance(values))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func clampRange(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
