// Package rowlog is the durable intermediate record set for IOPS sampling:
// a flat CSV file appended to once per round and read back in full by the
// summarizer. One run owns the file; it is truncated at run start.
package rowlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"vsphere-healthcheck/internal/model"
)

var header = []string{"TimeStamp", "Cluster", "VM", "Disk", "Datastore", "ReadIOPS", "WriteIOPS"}

const timeFormat = time.RFC3339

// Log is a single-writer, single-reader CSV row log.
type Log struct {
	path string
}

// Create truncates (or creates) the file at path and writes the header.
func Create(path string) (*Log, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create row log %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write row log header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush row log header: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close row log: %w", err)
	}
	return &Log{path: path}, nil
}

// Open wraps an existing row log for reading.
func Open(path string) *Log {
	return &Log{path: path}
}

func (l *Log) Path() string {
	return l.path
}

// Append writes one batch of rows and syncs them to disk, so completed
// rounds survive an aborted run.
func (l *Log) Append(rows []model.IopsSampleRow) error {
	if len(rows) == 0 {
		return nil
	}
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open row log %s: %w", l.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, row := range rows {
		record := []string{
			row.Timestamp.Format(timeFormat),
			row.Cluster,
			row.VM,
			row.Disk,
			row.Datastore,
			formatRate(row.ReadIOPS),
			formatRate(row.WriteIOPS),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("append row for %s: %w", row.VM, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush row log: %w", err)
	}
	return f.Sync()
}

// ReadAll returns every data row in file order. Short rows and blank
// numeric fields are tolerated: missing values coerce to zero because
// realtime polls can return partial data.
func (l *Log) ReadAll() ([]model.IopsSampleRow, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open row log %s: %w", l.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read row log %s: %w", l.path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	rows := make([]model.IopsSampleRow, 0, len(records)-1)
	for _, record := range records[1:] { // skip header
		row := model.IopsSampleRow{
			Cluster:   field(record, 1),
			VM:        field(record, 2),
			Disk:      field(record, 3),
			Datastore: field(record, 4),
			ReadIOPS:  parseRate(field(record, 5)),
			WriteIOPS: parseRate(field(record, 6)),
		}
		if ts, err := time.Parse(timeFormat, field(record, 0)); err == nil {
			row.Timestamp = ts
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func field(record []string, i int) string {
	if i < len(record) {
		return record[i]
	}
	return ""
}

func formatRate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseRate(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
