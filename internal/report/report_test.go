package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vsphere-healthcheck/internal/collector"
	"vsphere-healthcheck/internal/model"
)

func sampleData() Data {
	records := []model.AggregatedRecord{
		{Name: "web-01", CPUReadyMs: 50},
		{Name: "db-01", CPUReadyMs: 25},
	}
	return Data{
		Target:        "vcenter.example.com",
		GeneratedAt:   time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		WindowStart:   time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC),
		WindowEnd:     time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		InstanceCount: 2,
		Rankings: []Ranking{
			NewRanking("Top CPU contention (CPU Ready)", "ms", records, collector.FieldCPUReady),
		},
	}
}

func TestNewRankingScalesBars(t *testing.T) {
	records := []model.AggregatedRecord{
		{Name: "a", DiskIOPS: 200},
		{Name: "b", DiskIOPS: 50},
		{Name: "c", DiskIOPS: 0},
	}
	r := NewRanking("Top disk I/O rate", "IOPS", records, collector.FieldDiskIOPS)

	require.Len(t, r.Bars, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{r.Bars[0].Label, r.Bars[1].Label, r.Bars[2].Label})
	assert.Equal(t, 100.0, r.Bars[0].Percent)
	assert.Equal(t, 25.0, r.Bars[1].Percent)
	assert.Equal(t, 0.0, r.Bars[2].Percent)
}

func TestNewRankingAllZeros(t *testing.T) {
	records := []model.AggregatedRecord{{Name: "a"}, {Name: "b"}}
	r := NewRanking("Top network throughput", "KB/s", records, collector.FieldNetwork)
	for _, b := range r.Bars {
		assert.Equal(t, 0.0, b.Percent)
	}
}

func TestRenderContainsRankedRecords(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleData()))

	html := buf.String()
	assert.Contains(t, html, "vcenter.example.com")
	assert.Contains(t, html, "web-01")
	assert.Contains(t, html, "db-01")
	assert.Contains(t, html, "Top CPU contention (CPU Ready)")
	assert.Contains(t, html, "50.00")
	assert.NotContains(t, html, "counters were unavailable")
}

func TestRenderIncompleteWarning(t *testing.T) {
	data := sampleData()
	data.Incomplete = true

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, data))
	assert.Contains(t, buf.String(), "Some counters were unavailable")
}

func TestRenderIopsSummary(t *testing.T) {
	data := sampleData()
	data.IopsSummary = []model.IopsSummaryRecord{
		{VM: "db-01", Cluster: "prod", Datastore: "gold-ds", ReadTotal: 120, WriteTotal: 30, Total: 150},
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, data))

	html := buf.String()
	assert.Contains(t, html, "Disk I/O sampling summary")
	assert.Contains(t, html, "gold-ds")
	assert.Contains(t, html, "150.00")
}

func TestRenderEscapesNames(t *testing.T) {
	data := sampleData()
	data.Rankings[0].Bars[0].Label = `<script>alert("x")</script>`

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, data))
	assert.NotContains(t, buf.String(), "<script>alert")
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")
	require.NoError(t, WriteFile(path, sampleData()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<!DOCTYPE html>")
}
