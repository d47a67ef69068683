package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// SchemaError reports a required column missing from a raw dataset. It is
// fatal: the merge never runs against a table it cannot address by name.
type SchemaError struct {
	Dataset string
	Column  string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("dataset %q: required column %q missing", e.Dataset, e.Column)
}

// Table is a raw BAAC CSV table held in memory, with columns addressed by
// header name. Malformed rows are skipped and counted, never silently
// dropped.
type Table struct {
	Dataset string
	Rows    [][]string
	Skipped int

	columns map[string]int
	width   int
}

// LoadTable reads a semicolon-separated raw CSV file into a Table.
func LoadTable(path, dataset string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset %q: %w", dataset, err)
	}
	defer f.Close()
	return ReadTable(f, dataset)
}

// ReadTable parses a raw table from r. Rows whose field count does not match
// the header, and rows the CSV parser rejects, are counted in Skipped and
// parsing continues; only an unreadable header or a non-parse I/O error is
// fatal.
func ReadTable(r io.Reader, dataset string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("dataset %q: read header: %w", dataset, err)
	}

	t := &Table{
		Dataset: dataset,
		columns: make(map[string]int, len(header)),
		width:   len(header),
	}
	for i, name := range header {
		// The upstream files occasionally ship with a UTF-8 BOM.
		name = strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF"))
		t.columns[name] = i
	}

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				t.Skipped++
				continue
			}
			return nil, fmt.Errorf("dataset %q: %w", dataset, err)
		}
		if len(row) != t.width {
			t.Skipped++
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Require returns a SchemaError naming the first missing column.
func (t *Table) Require(cols ...string) error {
	for _, c := range cols {
		if _, ok := t.columns[c]; !ok {
			return &SchemaError{Dataset: t.Dataset, Column: c}
		}
	}
	return nil
}

// Has reports whether the table carries the column.
func (t *Table) Has(col string) bool {
	_, ok := t.columns[col]
	return ok
}

// Get returns the value of col in row, or "" when the column is absent.
func (t *Table) Get(row []string, col string) string {
	i, ok := t.columns[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}
