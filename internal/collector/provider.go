package collector

import (
	"context"
	"errors"
	"time"

	"vsphere-healthcheck/internal/model"
)

// Counter names requested from the management platform. The disk.* pair is
// the per-VM historical rollup, the virtualDisk.* pair the per-device
// realtime rate used by the IOPS sampler.
const (
	MetricCPUReady   = "cpu.ready.summation"
	MetricMemUsage   = "mem.usage.average"
	MetricNetUsage   = "net.usage.average"
	MetricDiskRead   = "disk.numberReadAveraged.average"
	MetricDiskWrite  = "disk.numberWriteAveraged.average"
	MetricVDiskRead  = "virtualDisk.numberReadAveraged.average"
	MetricVDiskWrite = "virtualDisk.numberWriteAveraged.average"
)

// ErrMetricUnavailable marks a counter the platform does not provide for an
// instance, as opposed to a failed call. Both map to the zero-fallback
// policy in the aggregator.
var ErrMetricUnavailable = errors.New("metric unavailable")

// ErrNoInstances is returned when a sampling run finds nothing to poll.
var ErrNoInstances = errors.New("no powered-on instances")

// RealtimeSample is one realtime counter reading for a device instance.
type RealtimeSample struct {
	VM        string
	Metric    string
	Instance  string // device instance, e.g. "scsi0:0"
	Timestamp time.Time
	Value     float64
}

// RealtimeResult is one realtime snapshot plus the provider-reported
// sampling interval. Interval is zero when the provider does not report one.
type RealtimeResult struct {
	Samples  []RealtimeSample
	Interval time.Duration
}

// Provider is the management-API surface the pipeline consumes.
type Provider interface {
	ListInstances(ctx context.Context) ([]model.Instance, error)
	QueryHistoricalCounter(ctx context.Context, inst model.Instance, metric string, start, end time.Time) ([]model.MetricSample, error)
	QueryRealtimeCounter(ctx context.Context, insts []model.Instance, metrics []string) (RealtimeResult, error)
	GetCluster(ctx context.Context, inst model.Instance) (string, error)
	ListVirtualDisks(ctx context.Context, insts []model.Instance) ([]model.DiskDescriptor, error)
}

// Window is the shared historical query range, captured once at run start so
// every instance is measured over an identical span.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowEnding returns the trailing 24-hour window closing at now.
func WindowEnding(now time.Time) Window {
	return Window{Start: now.Add(-24 * time.Hour), End: now}
}
