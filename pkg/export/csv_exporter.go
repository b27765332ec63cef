package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset is the tabular form of an availability report.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
	// Totals, when set, is rendered as a final summary row.
	Totals map[string]string
	// Caption is printed under the title by renderers that support it.
	Caption string
	// Widths are relative column weights for fixed-width renderers. Missing entries weigh 1.
	Widths []float64
}

func (d Dataset) record(row map[string]string) []string {
	out := make([]string, len(d.Headers))
	for i, header := range d.Headers {
		out[i] = row[header]
	}
	return out
}

// ContentType returns the MIME type for a supported export format.
func ContentType(format string) string {
	switch format {
	case "pdf":
		return "application/pdf"
	default:
		return "text/csv; charset=utf-8"
	}
}

// CSVExporter renders a Dataset as RFC 4180 CSV with a header line.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)

	records := make([][]string, 0, len(data.Rows)+2)
	records = append(records, data.Headers)
	for _, row := range data.Rows {
		records = append(records, data.record(row))
	}
	if len(data.Totals) > 0 {
		records = append(records, data.record(data.Totals))
	}
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}
