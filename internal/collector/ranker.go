package collector

import (
	"sort"

	"vsphere-healthcheck/internal/model"
)

// DefaultTopN is how many records each ranking keeps.
const DefaultTopN = 10

// Field selects which AggregatedRecord column a ranking is built on.
type Field int

const (
	FieldCPUReady Field = iota
	FieldMemoryMB
	FieldMemoryConsumed
	FieldNetwork
	FieldDiskIOPS
)

func (f Field) String() string {
	switch f {
	case FieldCPUReady:
		return "cpuReady"
	case FieldMemoryMB:
		return "memoryMB"
	case FieldMemoryConsumed:
		return "memoryConsumedMB"
	case FieldNetwork:
		return "networkKBps"
	case FieldDiskIOPS:
		return "diskIOPS"
	}
	return "unknown"
}

// Value extracts the ranked column from a record.
func (f Field) Value(r model.AggregatedRecord) float64 {
	switch f {
	case FieldCPUReady:
		return r.CPUReadyMs
	case FieldMemoryMB:
		return r.MemoryMB
	case FieldMemoryConsumed:
		return r.MemoryConsumedMB
	case FieldNetwork:
		return r.NetworkKBps
	case FieldDiskIOPS:
		return r.DiskIOPS
	}
	return 0
}

// TopN returns the n largest records by field, descending. The sort is
// stable, so equal values keep their input order. The input is not modified.
func TopN(records []model.AggregatedRecord, field Field, n int) []model.AggregatedRecord {
	out := make([]model.AggregatedRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return field.Value(out[i]) > field.Value(out[j])
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
