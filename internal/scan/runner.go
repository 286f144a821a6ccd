package scan

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quantfall/conviction/internal/config"
	"github.com/quantfall/conviction/internal/domain/factors"
	"github.com/quantfall/conviction/internal/domain/gamma"
	"github.com/quantfall/conviction/internal/domain/options"
	"github.com/quantfall/conviction/internal/domain/pipeline"
	"github.com/quantfall/conviction/internal/domain/portfolio"
	"github.com/quantfall/conviction/internal/history"
	"github.com/quantfall/conviction/internal/metrics"
)

// Report is the output of one watch-list scan.
type Report struct {
	Results       map[string]*pipeline.ConfidenceResult `json:"results"`
	GammaAnalyses map[string]*gamma.Analysis            `json:"gamma_analyses"`
	Portfolio     portfolio.Result                      `json:"portfolio"`
	Duration      time.Duration                         `json:"duration"`
}

// Runner evaluates a watch-list: per-instrument pipelines run concurrently
// on a bounded worker pool, then the cross-instrument normalizer reduces the
// batch. Snapshot acquisition happens outside; the runner only consumes
// already-resolved data.
type Runner struct {
	cfg       *config.Config
	source    FactorSource
	evaluator *pipeline.Evaluator
	cross     *portfolio.CrossNormalizer
	calc      *gamma.Calculator
}

// NewRunner wires a runner from configuration. An invalid weight vector in
// cfg has already been rejected by config validation.
func NewRunner(cfg *config.Config, source FactorSource) (*Runner, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if source == nil {
		return nil, fmt.Errorf("factor source is required")
	}

	normalizer := &factors.Normalizer{
		OutlierSigma: cfg.Normalization.OutlierSigma,
		FloorValue:   cfg.Normalization.FloorValue,
	}
	aggregator, err := factors.NewAggregatorWithWeights(cfg.Weights)
	if err != nil {
		// NewAggregatorWithWeights already fell back to the defaults.
		log.Warn().Err(err).Msg("scan runner using default weights")
	}
	store := history.NewStore(cfg.History.MaxEntries)

	return &Runner{
		cfg:       cfg,
		source:    source,
		evaluator: pipeline.NewEvaluator(normalizer, aggregator, store),
		cross:     portfolio.NewCrossNormalizer(cfg.Portfolio),
		calc:      gamma.NewCalculator(cfg.Gamma),
	}, nil
}

// Evaluator exposes the underlying pipeline, e.g. for weight
// reconfiguration.
func (r *Runner) Evaluator() *pipeline.Evaluator { return r.evaluator }

// Run scans every snapshot in the batch and aggregates across instruments.
func (r *Runner) Run(ctx context.Context, snapshots map[string]*options.ChainSnapshot) (*Report, error) {
	start := time.Now()

	instruments := make([]string, 0, len(snapshots))
	for instrument := range snapshots {
		instruments = append(instruments, instrument)
	}

	report := &Report{
		Results:       make(map[string]*pipeline.ConfidenceResult, len(instruments)),
		GammaAnalyses: make(map[string]*gamma.Analysis, len(instruments)),
	}

	workers := r.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	jobs := make(chan string)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for instrument := range jobs {
				result, analysis := r.evaluateInstrument(ctx, instrument, snapshots[instrument])
				mu.Lock()
				report.Results[instrument] = result
				report.GammaAnalyses[instrument] = analysis
				mu.Unlock()
			}
		}()
	}
	for _, instrument := range instruments {
		select {
		case jobs <- instrument:
		case <-ctx.Done():
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scan interrupted: %w", err)
	}

	confidences := make(map[string]float64, len(report.Results))
	for instrument, result := range report.Results {
		confidences[instrument] = result.EnhancedConfidence
	}
	report.Portfolio = r.cross.Evaluate(confidences)
	report.Duration = time.Since(start)

	metrics.ConsensusGauge.Set(report.Portfolio.Consensus)
	metrics.Recommendations.WithLabelValues(string(report.Portfolio.Recommendation)).Inc()

	log.Info().
		Int("instruments", len(instruments)).
		Float64("aggregate", report.Portfolio.AggregateConfidence).
		Float64("consensus", report.Portfolio.Consensus).
		Str("recommendation", string(report.Portfolio.Recommendation)).
		Dur("duration", report.Duration).
		Msg("scan complete")

	return report, nil
}

func (r *Runner) evaluateInstrument(ctx context.Context, instrument string, snap *options.ChainSnapshot) (*pipeline.ConfidenceResult, *gamma.Analysis) {
	timer := time.Now()
	reasons := make([]string, 0)

	external, err := r.source.Scores(ctx, instrument)
	if err != nil {
		// BreakerSource already substituted neutral defaults; bare sources
		// may return nothing, so backfill here too.
		if len(external) == 0 {
			external = NeutralScores()
		}
		reasons = append(reasons, err.Error())
		for name := range external {
			metrics.FactorFailures.WithLabelValues(name).Inc()
		}
	}

	positioning := r.derivePositioning(snap)
	analysis, err := r.calc.Analyze(ctx, snap, positioning)
	if err != nil {
		analysis = &gamma.Analysis{
			Instrument: instrument,
			Pinning:    gamma.PinningAssessment{Level: gamma.RiskLow},
			Reasons:    []string{fmt.Sprintf("gamma analysis failed: %v", err)},
		}
		metrics.FactorFailures.WithLabelValues(factors.Gamma).Inc()
	}
	reasons = append(reasons, analysis.Reasons...)

	funcs := make(map[string]pipeline.FactorFunc, len(external)+1)
	for name, score := range external {
		score := score
		funcs[name] = func(context.Context) (factors.Score, error) { return score, nil }
	}
	funcs[factors.Gamma] = func(context.Context) (factors.Score, error) {
		return analysis.FactorScore(), nil
	}

	result := r.evaluator.Evaluate(ctx, instrument, funcs, r.buildAdjustments(analysis, external))
	result.Reasons = append(result.Reasons, reasons...)

	metrics.EvaluationsTotal.WithLabelValues(instrument).Inc()
	metrics.EvaluationDuration.Observe(time.Since(timer).Seconds())
	if analysis.Flip != nil {
		metrics.FlipsDetected.Inc()
	}
	metrics.PinningAssessments.WithLabelValues(string(analysis.Pinning.Level)).Inc()

	return result, analysis
}

// derivePositioning infers dealer posture from the sign and magnitude of net
// exposure at spot. Positive exposure means dealer hedging dampens moves;
// negative means it amplifies them.
func (r *Runner) derivePositioning(snap *options.ChainSnapshot) gamma.DealerPositioning {
	net := r.calc.NetExposure(snap, snap.UnderlyingPrice)
	magnitude := math.Abs(net)
	return gamma.DealerPositioning{
		ShortGamma: net < 0,
		Strength:   magnitude / (magnitude + 0.5),
	}
}

// buildAdjustments assembles the multiplicative adjustment chain from
// cross-factor context. Multipliers compose once against the aggregated
// confidence; nothing is divided back out.
func (r *Runner) buildAdjustments(analysis *gamma.Analysis, external map[string]factors.Score) []pipeline.Adjustment {
	chain := make([]pipeline.Adjustment, 0, 2)

	if analysis.Pinning.Level == gamma.RiskExtreme {
		chain = append(chain, pipeline.Adjustment{Name: "gamma-pinning-damp", Multiplier: 0.9})
	}

	gammaScore := analysis.FactorScore()
	if fib, ok := external[factors.Fibonacci]; ok {
		if fib.Direction != factors.Neutral && fib.Direction == gammaScore.Direction {
			chain = append(chain, pipeline.Adjustment{Name: "fibonacci-gamma-zone", Multiplier: 1.05})
		}
	}
	return chain
}
