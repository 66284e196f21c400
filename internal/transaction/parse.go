package transaction

import "fmt"

// ParseResult is what a bank parser produced from one table.
type ParseResult struct {
	Records []*Record
	Skipped []RowError
}

// RowsProcessed is the number of data rows the parser looked at.
func (p ParseResult) RowsProcessed() int {
	return len(p.Records) + len(p.Skipped)
}

// RowError describes a data row that could not be converted. Row is 1-based
// over data rows.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}
