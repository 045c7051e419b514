package collector

import (
	"context"
	"errors"
	"math"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"vsphere-healthcheck/internal/model"
)

// Fan-out cap for per-instance historical queries. Aggregation is
// independent per instance, so a small bound keeps the management server
// comfortable without serializing the whole inventory.
const defaultAggregateLimit = 4

// Aggregator reduces the four windowed counter series of each instance to
// one AggregatedRecord.
type Aggregator struct {
	provider Provider
	logger   zerolog.Logger
	limit    int
}

// AggregateResult carries the per-instance records in inventory order plus
// the run-wide incomplete flag.
type AggregateResult struct {
	Records    []model.AggregatedRecord
	Incomplete bool
}

func NewAggregator(provider Provider, logger zerolog.Logger) *Aggregator {
	return &Aggregator{provider: provider, logger: logger, limit: defaultAggregateLimit}
}

// Aggregate builds one record per instance over the shared window. A counter
// that fails or comes back empty is recorded as zero and flips the
// incomplete flag; it never aborts the run.
func (a *Aggregator) Aggregate(ctx context.Context, insts []model.Instance, window Window) (AggregateResult, error) {
	records := make([]model.AggregatedRecord, len(insts))
	var incomplete atomic.Bool

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.limit)
	for i, inst := range insts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, complete := a.aggregateOne(gctx, inst, window)
			records[i] = rec
			if !complete {
				incomplete.Store(true)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return AggregateResult{}, err
	}
	return AggregateResult{Records: records, Incomplete: incomplete.Load()}, nil
}

func (a *Aggregator) aggregateOne(ctx context.Context, inst model.Instance, window Window) (model.AggregatedRecord, bool) {
	rec := model.AggregatedRecord{
		Name:     inst.Name,
		MemoryMB: float64(inst.MemoryMB),
	}
	complete := true

	cpuReady, ok := a.average(ctx, inst, MetricCPUReady, window)
	complete = complete && ok
	rec.CPUReadyMs = round2(cpuReady)

	// mem.usage is a percentage of the allocation; consumed MB is derived.
	memPct, ok := a.average(ctx, inst, MetricMemUsage, window)
	complete = complete && ok
	rec.MemoryConsumedMB = round2(memPct * float64(inst.MemoryMB) / 100)

	netKBps, ok := a.average(ctx, inst, MetricNetUsage, window)
	complete = complete && ok
	rec.NetworkKBps = round2(netKBps)

	// Read and write rates are averaged independently before summing.
	readRate, okRead := a.average(ctx, inst, MetricDiskRead, window)
	writeRate, okWrite := a.average(ctx, inst, MetricDiskWrite, window)
	complete = complete && okRead && okWrite
	rec.DiskIOPS = round2(readRate + writeRate)

	return rec, complete
}

// average fetches one historical series and reduces it to its mean. The
// second return is false when the counter had to fall back to zero.
func (a *Aggregator) average(ctx context.Context, inst model.Instance, metric string, window Window) (float64, bool) {
	samples, err := a.provider.QueryHistoricalCounter(ctx, inst, metric, window.Start, window.End)
	if err != nil {
		evt := a.logger.Warn()
		if errors.Is(err, ErrMetricUnavailable) {
			evt = a.logger.Debug()
		}
		evt.Err(err).Str("vm", inst.Name).Str("metric", metric).Msg("counter unavailable, recording zero")
		return 0, false
	}
	if len(samples) == 0 {
		a.logger.Debug().Str("vm", inst.Name).Str("metric", metric).Msg("empty series, recording zero")
		return 0, false
	}
	sum := 0.0
	for _, s := range samples {
		sum += s.Value
	}
	return sum / float64(len(samples)), true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
