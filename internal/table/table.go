// Package table holds an uploaded CSV as an in-memory grid of strings.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrEmpty = errors.New("csv file is empty")

// Table is a decoded CSV export. The first record is exposed as Header, the
// rest as Rows. Layouts without a header row read every record via Records.
type Table struct {
	Header []string
	Rows   [][]string
}

// New builds a Table from raw CSV records. Header cells are trimmed.
func New(records [][]string) *Table {
	if len(records) == 0 {
		return &Table{}
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	return &Table{Header: header, Rows: records[1:]}
}

// Decode reads CSV bytes in any common charset into a Table.
func Decode(r io.Reader) (*Table, error) {
	utf8r, err := NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	reader := csv.NewReader(utf8r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	if len(records) == 0 {
		return nil, ErrEmpty
	}

	return New(records), nil
}

// Width is the number of columns in the first record.
func (t *Table) Width() int {
	return len(t.Header)
}

// Len is the number of records after the header.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Records returns every record including the first one.
func (t *Table) Records() [][]string {
	if t.Header == nil {
		return nil
	}

	all := make([][]string, 0, len(t.Rows)+1)
	all = append(all, t.Header)

	return append(all, t.Rows...)
}

// Index returns the position of the named header column, or -1.
func (t *Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}

	return -1
}

// HasColumns reports whether every name is a header column.
func (t *Table) HasColumns(names ...string) bool {
	for _, n := range names {
		if t.Index(n) < 0 {
			return false
		}
	}

	return true
}

// Cell returns the trimmed value at idx, and false when the row is too short
// or the cell is blank.
func Cell(row []string, idx int) (string, bool) {
	if idx < 0 || idx >= len(row) {
		return "", false
	}

	v := strings.TrimSpace(row[idx])

	return v, v != ""
}
