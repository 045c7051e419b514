package collector

import (
	"context"
	"fmt"
	"time"

	"vsphere-healthcheck/internal/model"
)

// fakeProvider scripts the management API for tests. Historical series are
// keyed by (vm, metric); realtime results are consumed one per call.
type fakeProvider struct {
	instances []model.Instance
	listErr   error

	series    map[string]map[string][]model.MetricSample
	seriesErr map[string]map[string]error

	realtime     []RealtimeResult
	realtimeErr  error
	realtimeCall int

	clusters map[string]string
	disks    []model.DiskDescriptor
}

func (f *fakeProvider) ListInstances(ctx context.Context) ([]model.Instance, error) {
	return f.instances, f.listErr
}

func (f *fakeProvider) QueryHistoricalCounter(ctx context.Context, inst model.Instance, metric string, start, end time.Time) ([]model.MetricSample, error) {
	if errs, ok := f.seriesErr[inst.Name]; ok {
		if err, ok := errs[metric]; ok {
			return nil, err
		}
	}
	if byMetric, ok := f.series[inst.Name]; ok {
		if samples, ok := byMetric[metric]; ok {
			return samples, nil
		}
	}
	return nil, fmt.Errorf("%s for %s: %w", metric, inst.Name, ErrMetricUnavailable)
}

func (f *fakeProvider) QueryRealtimeCounter(ctx context.Context, insts []model.Instance, metrics []string) (RealtimeResult, error) {
	if f.realtimeErr != nil {
		return RealtimeResult{}, f.realtimeErr
	}
	if f.realtimeCall >= len(f.realtime) {
		return RealtimeResult{}, nil
	}
	res := f.realtime[f.realtimeCall]
	f.realtimeCall++
	return res, nil
}

func (f *fakeProvider) GetCluster(ctx context.Context, inst model.Instance) (string, error) {
	return f.clusters[inst.Name], nil
}

func (f *fakeProvider) ListVirtualDisks(ctx context.Context, insts []model.Instance) ([]model.DiskDescriptor, error) {
	return f.disks, nil
}

func samplesAveraging(avg float64, n int) []model.MetricSample {
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	out := make([]model.MetricSample, n)
	for i := range out {
		out[i] = model.MetricSample{Timestamp: base.Add(time.Duration(i) * 5 * time.Minute), Value: avg}
	}
	return out
}
