// Package feeder cycles rows of an external CSV file into a scenario's
// session variables, one row per virtual request, so a load test can
// drive distinct input data across its iterations. Supplemented from
// the teacher's internal/attacker/feeder.go, retyped to the any-valued
// variable maps the rest of the engine uses.
package feeder

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync/atomic"
)

// Feeder yields successive variable bindings, cycling once exhausted.
type Feeder interface {
	Next() map[string]any
}

// CSVFeeder reads an entire CSV file into memory and cycles through its
// rows lock-free via an atomic counter.
type CSVFeeder struct {
	idx     uint64
	records []map[string]any
}

// NewCSVFeeder loads path and validates it has a header row plus at
// least one data row.
func NewCSVFeeder(path string) (*CSVFeeder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening csv file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv data: %w", err)
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("csv file must have a header and at least one row")
	}

	headers := rows[0]
	for _, h := range headers {
		if h == "" {
			return nil, fmt.Errorf("csv header contains empty field")
		}
	}

	records := make([]map[string]any, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(map[string]any, len(headers))
		for i, val := range row {
			if i < len(headers) {
				record[headers[i]] = val
			}
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("csv file contains no data rows")
	}

	return &CSVFeeder{records: records}, nil
}

// Next returns the next record, wrapping back to the start once the
// file is exhausted.
func (f *CSVFeeder) Next() map[string]any {
	i := atomic.AddUint64(&f.idx, 1) - 1
	return f.records[i%uint64(len(f.records))]
}
