package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/quantfall/conviction/internal/config"
	"github.com/quantfall/conviction/internal/scan"
)

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run an offline watch-list scan from a fixture file",
		Long: `Loads factor scores and option-chain snapshots from a YAML fixture, runs
the full scoring pipeline across the watch-list in parallel, and prints the
ranked results with the portfolio recommendation.`,
		RunE: runScan,
	}
	cmd.Flags().String("fixtures", "", "Path to YAML fixture file (required)")
	cmd.Flags().String("config", "", "Path to YAML config file (defaults used when omitted)")
	cmd.Flags().String("output", "table", "Output format (table|json)")
	cmd.Flags().Duration("timeout", 30*time.Second, "Scan deadline")
	cmd.Flags().String("metrics-addr", "", "Optional listen address for Prometheus metrics")
	_ = cmd.MarkFlagRequired("fixtures")
	return cmd
}

func runScan(cmd *cobra.Command, _ []string) error {
	fixturePath, _ := cmd.Flags().GetString("fixtures")
	configPath, _ := cmd.Flags().GetString("config")
	output, _ := cmd.Flags().GetString("output")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	fixture, err := scan.LoadFixture(fixturePath)
	if err != nil {
		return err
	}

	if metricsAddr != "" {
		go serveMetrics(metricsAddr)
	}

	source := scan.NewBreakerSource("fixture", fixture.Source())
	runner, err := scan.NewRunner(cfg, source)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	report, err := runner.Run(ctx, fixture.Snapshots())
	if err != nil {
		return err
	}

	if output == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(report)
	return nil
}

func printReport(report *scan.Report) {
	type row struct {
		instrument string
		normalized float64
	}
	rows := make([]row, 0, len(report.Portfolio.NormalizedConfidences))
	for instrument, normalized := range report.Portfolio.NormalizedConfidences {
		rows = append(rows, row{instrument, normalized})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].normalized > rows[j].normalized })

	fmt.Printf("%-12s %-10s %-10s %-10s %-10s %-10s %s\n",
		"INSTRUMENT", "NORM", "CONF", "CONVICTION", "LEVEL", "DIRECTION", "GAMMA FLIP")
	for _, r := range rows {
		result := report.Results[r.instrument]
		if result == nil {
			continue
		}
		flip := "-"
		if analysis := report.GammaAnalyses[r.instrument]; analysis != nil && analysis.Flip != nil {
			flip = fmt.Sprintf("%.2f (%s)", analysis.Flip.Price, analysis.Flip.Significance)
		}
		fmt.Printf("%-12s %-10.3f %-10.3f %-10.3f %-10s %-10s %s\n",
			r.instrument, r.normalized, result.EnhancedConfidence, result.ConvictionScore,
			result.ConvictionLevel, result.SignalDirection, flip)
	}

	p := report.Portfolio
	fmt.Printf("\nAggregate: %.3f  Consensus: %.3f  Recommendation: %s\n",
		p.AggregateConfidence, p.Consensus, p.Recommendation)
	fmt.Printf("Distribution: %d high / %d medium / %d low\n",
		p.Distribution.High, p.Distribution.Medium, p.Distribution.Low)
	if len(p.TopInstruments) > 0 {
		fmt.Printf("Top instruments: %v\n", p.TopInstruments)
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info().Str("addr", addr).Msg("metrics listener started")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("metrics listener stopped")
	}
}
