package model

import "time"

// IopsSampleRow is one realtime disk-rate reading for a single virtual disk,
// appended to the durable row log once per sampling round. Rows are never
// mutated after append.
type IopsSampleRow struct {
	Timestamp time.Time `json:"timestamp"`
	Cluster   string    `json:"cluster"`
	VM        string    `json:"vm"`
	Disk      string    `json:"disk"`
	Datastore string    `json:"datastore"`
	ReadIOPS  float64   `json:"read_iops"`
	WriteIOPS float64   `json:"write_iops"`
}

// IopsSummaryRecord totals all sample rows for one virtual machine. Cluster
// and Datastore are taken from the first row seen for that machine.
type IopsSummaryRecord struct {
	VM         string  `json:"vm"`
	Cluster    string  `json:"cluster"`
	Datastore  string  `json:"datastore"`
	ReadTotal  float64 `json:"read_total"`
	WriteTotal float64 `json:"write_total"`
	Total      float64 `json:"total"`
}
