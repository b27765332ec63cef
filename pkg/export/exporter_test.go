package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func availabilityDataset() Dataset {
	return Dataset{
		Headers: []string{"date", "weekday", "start_time", "end_time", "source"},
		Rows: []map[string]string{
			{"date": "2025-07-01", "weekday": "Tuesday", "start_time": "09:00", "end_time": "12:00", "source": "weekly"},
			{"date": "2025-07-02", "weekday": "Wednesday", "start_time": "13:00", "end_time": "17:00", "source": "exception"},
		},
		Caption: "Jane Doe, 2025-07-01 to 2025-07-02",
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(availabilityDataset())
	require.NoError(t, err)
	assert.Equal(t, "date,weekday,start_time,end_time,source\n"+
		"2025-07-01,Tuesday,09:00,12:00,weekly\n"+
		"2025-07-02,Wednesday,13:00,17:00,exception\n", string(out))

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(availabilityDataset(), "Availability")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	empty := availabilityDataset()
	empty.Rows = nil
	out, err = NewPDFExporter().Render(empty, "Availability")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentType("pdf"))
	assert.Equal(t, "text/csv; charset=utf-8", ContentType("csv"))
}

func TestCSVExporterAppendsTotals(t *testing.T) {
	data := availabilityDataset()
	data.Rows = data.Rows[:1]
	data.Totals = map[string]string{"date": "Total", "source": "180"}

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	assert.Equal(t, "date,weekday,start_time,end_time,source\n"+
		"2025-07-01,Tuesday,09:00,12:00,weekly\n"+
		"Total,,,,180\n", string(out))
}

func TestPDFExporterPaginatesLongReports(t *testing.T) {
	data := availabilityDataset()
	for i := 0; i < 120; i++ {
		data.Rows = append(data.Rows, data.Rows[i%2])
	}
	data.Totals = map[string]string{"date": "Total"}

	out, err := NewPDFExporter().Render(data, "Availability")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, bytes.Count(out, []byte("/Type /Page\n")), 2)
}

func TestColumnWidthsHonourWeights(t *testing.T) {
	widths := columnWidths(Dataset{Headers: []string{"a", "b", "c"}, Widths: []float64{1, 2}}, 100)
	assert.InDelta(t, 25.0, widths[0], 0.001)
	assert.InDelta(t, 50.0, widths[1], 0.001)
	assert.InDelta(t, 25.0, widths[2], 0.001)
}
