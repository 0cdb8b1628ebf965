package export

import (
	"bytes"
	"fmt"
	"strings"
)

// Dataset defines tabular export content with positional columns.
type Dataset struct {
	Headers []string
	Rows    [][]string
}

// CSVExporter renders Dataset records into CSV bytes. Every field is wrapped
// in double quotes and embedded quote characters are doubled, so values
// containing commas, quotes or newlines survive a round trip.
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
	writeRecord(buf, data.Headers)
	for _, row := range data.Rows {
		if len(row) != len(data.Headers) {
			return nil, fmt.Errorf("csv row has %d fields, want %d", len(row), len(data.Headers))
		}
		writeRecord(buf, row)
	}
	return buf.Bytes(), nil
}

func writeRecord(buf *bytes.Buffer, fields []string) {
	for i, field := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(field, `"`, `""`))
		buf.WriteByte('"')
	}
	buf.WriteByte('\n')
}
