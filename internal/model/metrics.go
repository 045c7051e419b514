package model

import "time"

// MetricSample is a single datapoint for one (instance, counter) pair.
type MetricSample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// AggregatedRecord holds the windowed averages for one virtual machine.
// Values are rounded to two decimals when the record is built; a counter
// that could not be fetched is recorded as zero.
type AggregatedRecord struct {
	Name             string  `json:"name"`
	CPUReadyMs       float64 `json:"cpu_ready_ms"`
	MemoryMB         float64 `json:"memory_mb"`
	MemoryConsumedMB float64 `json:"memory_consumed_mb"`
	NetworkKBps      float64 `json:"network_kbps"`
	DiskIOPS         float64 `json:"disk_iops"`
}
