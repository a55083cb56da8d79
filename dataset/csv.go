package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spektr-org/crosstab/schema"
)

// ============================================================================
// CSV — parses rows into Records
// ============================================================================
// The caller reads the CSV from wherever it lives. Columns are matched to the
// schema by key; unmapped columns are ignored and malformed rows skipped.
// ============================================================================

// ParseResult carries parsed records and how many rows were skipped.
type ParseResult struct {
	Records []Record
	Skipped int
}

// ParseCSV parses CSV into Records using sch to classify columns.
// Synthetic count measures are set to 1 on every record.
func ParseCSV(r io.Reader, sch schema.Config) (ParseResult, error) {
	reader := csv.NewReader(r)

	headers, err := reader.Read()
	if err != nil {
		return ParseResult{}, fmt.Errorf("read CSV headers: %w", err)
	}

	type column struct {
		key       string
		dimension bool
		measure   bool
	}

	dims := make(map[string]bool, len(sch.Dimensions))
	for _, d := range sch.Dimensions {
		dims[d.Key] = true
	}
	meas := make(map[string]bool, len(sch.Measures))
	var synthetic []string
	for _, m := range sch.Measures {
		if m.IsSynthetic {
			synthetic = append(synthetic, m.Key)
			continue
		}
		meas[m.Key] = true
	}

	columns := make([]column, len(headers))
	for i, h := range headers {
		key := schema.ColumnKey(h)
		columns[i] = column{key: key, dimension: dims[key], measure: meas[key]}
	}

	var res ParseResult
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("read CSV: %w", err)
		}

		rec := NewRecord()
		for i, val := range row {
			col := columns[i]
			val = strings.TrimSpace(val)
			switch {
			case col.dimension:
				rec.Dimensions[col.key] = val
			case col.measure:
				if f, ok := schema.ParseNumber(val); ok {
					rec.Measures[col.key] = f
				}
			}
		}
		for _, key := range synthetic {
			rec.Measures[key] = 1
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

// ParseCSVAuto parses CSV without a schema: numeric cells become measures and
// everything else dimensions. It also returns the column keys in header order.
func ParseCSVAuto(r io.Reader) ([]Record, []string, error) {
	reader := csv.NewReader(r)

	headers, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read CSV headers: %w", err)
	}
	keys := make([]string, len(headers))
	for i, h := range headers {
		keys[i] = schema.ColumnKey(h)
	}

	var records []Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			return nil, nil, fmt.Errorf("read CSV: %w", err)
		}

		rec := NewRecord()
		for i, val := range row {
			val = strings.TrimSpace(val)
			if f, ok := schema.ParseNumber(val); ok {
				rec.Measures[keys[i]] = f
			} else {
				rec.Dimensions[keys[i]] = val
			}
		}
		records = append(records, rec)
	}
	return records, keys, nil
}
