package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vsphere-healthcheck/internal/model"
)

func testWindow() Window {
	return WindowEnding(time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))
}

func fullSeries(cpu, memPct, net, read, write float64) map[string][]model.MetricSample {
	return map[string][]model.MetricSample{
		MetricCPUReady:  samplesAveraging(cpu, 4),
		MetricMemUsage:  samplesAveraging(memPct, 4),
		MetricNetUsage:  samplesAveraging(net, 4),
		MetricDiskRead:  samplesAveraging(read, 4),
		MetricDiskWrite: samplesAveraging(write, 4),
	}
}

func TestAggregateDerivesAllFourMetrics(t *testing.T) {
	p := &fakeProvider{
		series: map[string]map[string][]model.MetricSample{
			"web-01": fullSeries(12.5, 50, 830.4, 10, 5.5),
		},
	}
	inst := model.Instance{Name: "web-01", MemoryMB: 4096}

	res, err := NewAggregator(p, zerolog.Nop()).Aggregate(context.Background(), []model.Instance{inst}, testWindow())
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.False(t, res.Incomplete)

	rec := res.Records[0]
	assert.Equal(t, "web-01", rec.Name)
	assert.Equal(t, 12.5, rec.CPUReadyMs)
	assert.Equal(t, 4096.0, rec.MemoryMB)
	assert.Equal(t, 2048.0, rec.MemoryConsumedMB) // 50% of 4096
	assert.Equal(t, 830.4, rec.NetworkKBps)
	assert.Equal(t, 15.5, rec.DiskIOPS) // avg(read) + avg(write)
}

func TestAggregateRoundsToTwoDecimals(t *testing.T) {
	p := &fakeProvider{
		series: map[string]map[string][]model.MetricSample{
			"db-01": fullSeries(3.14159, 33.333, 0.005, 0.111, 0.222),
		},
	}
	inst := model.Instance{Name: "db-01", MemoryMB: 1000}

	res, err := NewAggregator(p, zerolog.Nop()).Aggregate(context.Background(), []model.Instance{inst}, testWindow())
	require.NoError(t, err)

	rec := res.Records[0]
	assert.Equal(t, 3.14, rec.CPUReadyMs)
	assert.Equal(t, 333.33, rec.MemoryConsumedMB)
	assert.Equal(t, 0.01, rec.NetworkKBps)
	assert.Equal(t, 0.33, rec.DiskIOPS)
}

func TestAggregateZeroFallback(t *testing.T) {
	// One counter unavailable, one failing outright: both must record zero
	// and raise the incomplete flag without failing the run.
	p := &fakeProvider{
		series: map[string]map[string][]model.MetricSample{
			"web-01": fullSeries(5, 25, 100, 1, 1),
		},
		seriesErr: map[string]map[string]error{
			"web-01": {
				MetricNetUsage: ErrMetricUnavailable,
				MetricDiskRead: errors.New("query timed out"),
			},
		},
	}
	inst := model.Instance{Name: "web-01", MemoryMB: 2048}

	res, err := NewAggregator(p, zerolog.Nop()).Aggregate(context.Background(), []model.Instance{inst}, testWindow())
	require.NoError(t, err)
	assert.True(t, res.Incomplete)

	rec := res.Records[0]
	assert.Equal(t, 0.0, rec.NetworkKBps)
	assert.Equal(t, 1.0, rec.DiskIOPS) // write average still contributes
	assert.Equal(t, 5.0, rec.CPUReadyMs)
	assert.Equal(t, 512.0, rec.MemoryConsumedMB)
}

func TestAggregateEmptySeriesIsIncomplete(t *testing.T) {
	p := &fakeProvider{
		series: map[string]map[string][]model.MetricSample{
			"web-01": {
				MetricCPUReady:  samplesAveraging(5, 4),
				MetricMemUsage:  {},
				MetricNetUsage:  samplesAveraging(1, 4),
				MetricDiskRead:  samplesAveraging(1, 4),
				MetricDiskWrite: samplesAveraging(1, 4),
			},
		},
	}
	inst := model.Instance{Name: "web-01", MemoryMB: 2048}

	res, err := NewAggregator(p, zerolog.Nop()).Aggregate(context.Background(), []model.Instance{inst}, testWindow())
	require.NoError(t, err)
	assert.True(t, res.Incomplete)
	assert.Equal(t, 0.0, res.Records[0].MemoryConsumedMB)
}

func TestAggregateKeepsInventoryOrder(t *testing.T) {
	p := &fakeProvider{
		series: map[string]map[string][]model.MetricSample{
			"a": fullSeries(1, 1, 1, 1, 1),
			"b": fullSeries(2, 2, 2, 2, 2),
			"c": fullSeries(3, 3, 3, 3, 3),
		},
	}
	insts := []model.Instance{
		{Name: "c", MemoryMB: 100},
		{Name: "a", MemoryMB: 100},
		{Name: "b", MemoryMB: 100},
	}

	res, err := NewAggregator(p, zerolog.Nop()).Aggregate(context.Background(), insts, testWindow())
	require.NoError(t, err)
	require.Len(t, res.Records, 3)
	assert.Equal(t, "c", res.Records[0].Name)
	assert.Equal(t, "a", res.Records[1].Name)
	assert.Equal(t, "b", res.Records[2].Name)
}

// End-to-end ranking scenario: three instances whose CPU-contention series
// average 5.0, 50.0 and 12.5 rank B, C, A.
func TestAggregateThenRankByCPUReady(t *testing.T) {
	p := &fakeProvider{
		series: map[string]map[string][]model.MetricSample{
			"instance_A": fullSeries(5.0, 10, 10, 1, 1),
			"instance_B": fullSeries(50.0, 10, 10, 1, 1),
			"instance_C": fullSeries(12.5, 10, 10, 1, 1),
		},
	}
	insts := []model.Instance{
		{Name: "instance_A", MemoryMB: 1024},
		{Name: "instance_B", MemoryMB: 1024},
		{Name: "instance_C", MemoryMB: 1024},
	}

	res, err := NewAggregator(p, zerolog.Nop()).Aggregate(context.Background(), insts, testWindow())
	require.NoError(t, err)

	ranked := TopN(res.Records, FieldCPUReady, DefaultTopN)
	require.Len(t, ranked, 3)
	assert.Equal(t, "instance_B", ranked[0].Name)
	assert.Equal(t, 50.0, ranked[0].CPUReadyMs)
	assert.Equal(t, "instance_C", ranked[1].Name)
	assert.Equal(t, 12.5, ranked[1].CPUReadyMs)
	assert.Equal(t, "instance_A", ranked[2].Name)
	assert.Equal(t, 5.0, ranked[2].CPUReadyMs)
}
