// Package healthcheck owns one report run end to end: inventory,
// aggregation, ranking, IOPS sampling, summarization, rendering.
package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"vsphere-healthcheck/internal/collector"
	"vsphere-healthcheck/internal/model"
	"vsphere-healthcheck/internal/report"
	"vsphere-healthcheck/internal/rowlog"
)

// Options configure a single run.
type Options struct {
	Target     string // management endpoint, for the report header
	OutputPath string
	RowLogPath string
	Rounds     int
	TopN       int
}

type Runner struct {
	provider collector.Provider
	logger   zerolog.Logger
}

func New(provider collector.Provider, logger zerolog.Logger) *Runner {
	return &Runner{provider: provider, logger: logger}
}

// RunReport produces the full health report: four 24-hour aggregates per
// instance, five top-N rankings, a short IOPS sampling pass, one HTML file.
func (r *Runner) RunReport(ctx context.Context, opts Options) error {
	now := time.Now().UTC()
	window := collector.WindowEnding(now)

	insts, err := r.provider.ListInstances(ctx)
	if err != nil {
		return fmt.Errorf("list instances: %w", err)
	}
	r.logger.Info().Int("instances", len(insts)).
		Time("window_start", window.Start).Time("window_end", window.End).
		Msg("inventory resolved")

	agg, err := collector.NewAggregator(r.provider, r.logger).Aggregate(ctx, insts, window)
	if err != nil {
		return fmt.Errorf("aggregate metrics: %w", err)
	}
	if agg.Incomplete {
		r.logger.Warn().Msg("one or more counters were unavailable, report is incomplete")
	}

	topN := opts.TopN
	if topN <= 0 {
		topN = collector.DefaultTopN
	}
	rankings := buildRankings(agg.Records, topN)

	var summary []model.IopsSummaryRecord
	if len(insts) > 0 && opts.Rounds > 0 {
		summary, err = r.sample(ctx, opts)
		if err != nil {
			return err
		}
	}

	data := report.Data{
		Target:        opts.Target,
		GeneratedAt:   now,
		WindowStart:   window.Start,
		WindowEnd:     window.End,
		InstanceCount: len(insts),
		Incomplete:    agg.Incomplete,
		Rankings:      rankings,
		IopsSummary:   summary,
	}
	if err := report.WriteFile(opts.OutputPath, data); err != nil {
		return err
	}
	r.logger.Info().Str("path", opts.OutputPath).Msg("report written")
	return nil
}

// RunIops is the detailed path: a long sampling run (default 180 rounds,
// about one hour at the realtime interval) followed by an IOPS-only report.
// An empty instance set at the start is fatal; a cancellation mid-run still
// summarizes the rounds completed so far.
func (r *Runner) RunIops(ctx context.Context, opts Options) error {
	summary, err := r.sample(ctx, opts)
	if err != nil {
		if errors.Is(err, collector.ErrNoInstances) {
			return fmt.Errorf("no data collected: %w", err)
		}
		return err
	}

	data := report.Data{
		Target:        opts.Target,
		GeneratedAt:   time.Now().UTC(),
		InstanceCount: len(summary),
		IopsSummary:   summary,
	}
	if err := report.WriteFile(opts.OutputPath, data); err != nil {
		return err
	}
	r.logger.Info().Str("path", opts.OutputPath).Str("row_log", opts.RowLogPath).Msg("iops report written")
	return nil
}

// sample truncates the row log, runs the sampling loop, and summarizes the
// rows read back from disk.
func (r *Runner) sample(ctx context.Context, opts Options) ([]model.IopsSummaryRecord, error) {
	log, err := rowlog.Create(opts.RowLogPath)
	if err != nil {
		return nil, err
	}

	sampler := collector.NewIopsSampler(r.provider, log, r.logger)
	_, err = sampler.Run(ctx, collector.SamplerConfig{Rounds: opts.Rounds})
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		// Keep what completed; the row log is flushed per round.
		r.logger.Warn().Msg("sampling canceled, summarizing completed rounds")
	default:
		return nil, fmt.Errorf("iops sampling: %w", err)
	}

	rows, err := log.ReadAll()
	if err != nil {
		return nil, err
	}
	return collector.SummarizeIops(rows), nil
}

func buildRankings(records []model.AggregatedRecord, topN int) []report.Ranking {
	type spec struct {
		title string
		unit  string
		field collector.Field
	}
	specs := []spec{
		{"Top CPU contention (CPU Ready)", "ms", collector.FieldCPUReady},
		{"Top allocated memory", "MB", collector.FieldMemoryMB},
		{"Top consumed memory", "MB", collector.FieldMemoryConsumed},
		{"Top network throughput", "KB/s", collector.FieldNetwork},
		{"Top disk I/O rate", "IOPS", collector.FieldDiskIOPS},
	}
	out := make([]report.Ranking, 0, len(specs))
	for _, sp := range specs {
		ranked := collector.TopN(records, sp.field, topN)
		out = append(out, report.NewRanking(sp.title, sp.unit, ranked, sp.field))
	}
	return out
}
