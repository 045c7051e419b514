package vsphere

import (
	"context"
	"fmt"
	"time"

	"github.com/vmware/govmomi/vim25/types"

	"vsphere-healthcheck/internal/collector"
	"vsphere-healthcheck/internal/model"
)

// historicalIntervalID is the 5-minute rollup, the finest historical
// interval vCenter keeps for a trailing 24-hour window.
const historicalIntervalID = 300

// realtimeIntervalFallback matches the refresh rate every known ESXi
// version reports for realtime counters.
const realtimeIntervalFallback = int32(20)

// QueryHistoricalCounter fetches one rollup series for one instance over
// [start, end]. A counter the platform does not keep for that instance
// surfaces as collector.ErrMetricUnavailable.
func (c *Client) QueryHistoricalCounter(ctx context.Context, inst model.Instance, metric string, start, end time.Time) ([]model.MetricSample, error) {
	spec := types.PerfQuerySpec{
		StartTime:  &start,
		EndTime:    &end,
		IntervalId: historicalIntervalID,
	}
	base, err := c.perf.SampleByName(ctx, spec, []string{metric}, []types.ManagedObjectReference{vmRef(inst)})
	if err != nil {
		return nil, fmt.Errorf("query %s for %s: %w", metric, inst.Name, err)
	}
	series, err := c.perf.ToMetricSeries(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("decode %s series for %s: %w", metric, inst.Name, err)
	}

	var out []model.MetricSample
	for _, em := range series {
		for _, s := range em.Value {
			if s.Name != metric || s.Instance != "" {
				// Only the aggregate (blank) instance feeds the averages.
				continue
			}
			for i, v := range s.Value {
				if i >= len(em.SampleInfo) {
					break
				}
				if v < 0 {
					// -1 marks a datapoint the platform could not collect.
					continue
				}
				out = append(out, model.MetricSample{
					Timestamp: em.SampleInfo[i].Timestamp,
					Value:     scaleCounterValue(metric, float64(v)),
				})
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s for %s: %w", metric, inst.Name, collector.ErrMetricUnavailable)
	}
	return out, nil
}

// QueryRealtimeCounter takes one realtime snapshot (MaxSample=1) for the
// whole instance set and reports the provider refresh interval alongside.
func (c *Client) QueryRealtimeCounter(ctx context.Context, insts []model.Instance, metrics []string) (collector.RealtimeResult, error) {
	var res collector.RealtimeResult
	if len(insts) == 0 {
		return res, nil
	}

	interval := realtimeIntervalFallback
	reported := false
	if summary, err := c.perf.ProviderSummary(ctx, vmRef(insts[0])); err == nil && summary.RefreshRate > 0 {
		interval = summary.RefreshRate
		reported = true
	}

	names := make(map[string]string, len(insts))
	refs := make([]types.ManagedObjectReference, 0, len(insts))
	for _, inst := range insts {
		names[inst.Ref] = inst.Name
		refs = append(refs, vmRef(inst))
	}

	spec := types.PerfQuerySpec{
		MaxSample:  1,
		IntervalId: interval,
	}
	base, err := c.perf.SampleByName(ctx, spec, metrics, refs)
	if err != nil {
		return res, fmt.Errorf("realtime query: %w", err)
	}
	series, err := c.perf.ToMetricSeries(ctx, base)
	if err != nil {
		return res, fmt.Errorf("decode realtime series: %w", err)
	}

	for _, em := range series {
		var ts time.Time
		if n := len(em.SampleInfo); n > 0 {
			ts = em.SampleInfo[n-1].Timestamp
		}
		for _, s := range em.Value {
			if s.Instance == "" || len(s.Value) == 0 {
				// Per-device instances only; the blank aggregate would
				// double-count every disk.
				continue
			}
			v := s.Value[len(s.Value)-1]
			if v < 0 {
				v = 0
			}
			res.Samples = append(res.Samples, collector.RealtimeSample{
				VM:        names[em.Entity.Value],
				Metric:    s.Name,
				Instance:  s.Instance,
				Timestamp: ts,
				Value:     float64(v),
			})
		}
	}
	if reported {
		res.Interval = time.Duration(interval) * time.Second
	}
	return res, nil
}

// mem.usage.average arrives in hundredths of a percent.
func scaleCounterValue(metric string, v float64) float64 {
	if metric == collector.MetricMemUsage {
		return v / 100
	}
	return v
}
