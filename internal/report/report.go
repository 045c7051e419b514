// Package report renders the ranked records into a single self-contained
// HTML document: one table plus a proportional bar chart per metric, and
// the IOPS sampling summary when one was collected.
package report

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"time"

	"vsphere-healthcheck/internal/collector"
	"vsphere-healthcheck/internal/model"
)

//go:embed report.gohtml
var templateFS embed.FS

var reportTemplate = template.Must(template.New("report.gohtml").
	Funcs(template.FuncMap{"add1": func(i int) int { return i + 1 }}).
	ParseFS(templateFS, "report.gohtml"))

// Bar is one chart row: a label, its value, and the bar width relative to
// the largest value in the ranking.
type Bar struct {
	Label   string
	Value   float64
	Percent float64
}

// Ranking is one rendered top-N block.
type Ranking struct {
	Title string
	Unit  string
	Bars  []Bar
}

// Data is everything the template consumes.
type Data struct {
	Target        string
	GeneratedAt   time.Time
	WindowStart   time.Time
	WindowEnd     time.Time
	InstanceCount int
	Incomplete    bool
	Rankings      []Ranking
	IopsSummary   []model.IopsSummaryRecord
}

// NewRanking converts ranked records into a chart block. Records are
// expected already sorted and truncated by collector.TopN.
func NewRanking(title, unit string, records []model.AggregatedRecord, field collector.Field) Ranking {
	r := Ranking{Title: title, Unit: unit, Bars: make([]Bar, 0, len(records))}
	max := 0.0
	for _, rec := range records {
		if v := field.Value(rec); v > max {
			max = v
		}
	}
	for _, rec := range records {
		v := field.Value(rec)
		pct := 0.0
		if max > 0 {
			pct = v / max * 100
		}
		r.Bars = append(r.Bars, Bar{Label: rec.Name, Value: v, Percent: pct})
	}
	return r
}

// Render writes the HTML document to w.
func Render(w io.Writer, data Data) error {
	if err := reportTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// WriteFile renders the report to path.
func WriteFile(path string, data Data) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}
	if err := Render(f, data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
