package export

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/websift/websift/internal/model"
)

// csvFixedColumns lead every CSV row before the extracted field columns.
var csvFixedColumns = []string{"source_url", "scrape_type"}

// CSVWriter outputs results as flattened CSV, one row per record.
// This format is designed for spreadsheets and data pipelines.
//
// The header is the union of field names across all records in first-seen
// order, after the fixed source_url and scrape_type columns. Records
// missing a field get an empty cell; multi-valued fields are joined with
// "; ".
//
// Design decision: We use standard encoding/csv rather than a third-party
// CSV library because:
// 1. It's part of the standard library (no extra dependencies)
// 2. RFC 4180 quoting is all the format needs
// 3. Flattening nested records is our job, not the encoder's
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the result's records in CSV format. A result with no
// records still produces the fixed header row.
func (w *CSVWriter) Write(result *model.CrawlResult) (int, error) {
	columns := fieldColumns(result.Records)

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	header := make([]string, 0, len(csvFixedColumns)+len(columns))
	header = append(header, csvFixedColumns...)
	header = append(header, columns...)
	if err := cw.Write(header); err != nil {
		return 0, err
	}

	row := make([]string, len(header))
	for _, rec := range result.Records {
		row[0] = rec.SourceURL
		row[1] = rec.Type.String()
		for i, name := range columns {
			if value, ok := rec.Field(name); ok {
				row[len(csvFixedColumns)+i] = value.Flatten()
			} else {
				row[len(csvFixedColumns)+i] = ""
			}
		}
		if err := cw.Write(row); err != nil {
			return 0, err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, err
	}

	return w.output.Write(buf.Bytes())
}
