// Package aggregate runs the single pass from raw bytes to per-key records.
package aggregate

import (
	"fmt"

	"github.com/pkg/errors"

	"xpug.it/stationagg/internal/fixedpoint"
	"xpug.it/stationagg/internal/scan"
	"xpug.it/stationagg/internal/table"
)

// LineError reports the input line a failure happened on.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// IsMalformed reports whether err stems from a record that does not have
// the "key;-?d+.d" shape.
func IsMalformed(err error) bool {
	return errors.Is(err, scan.ErrMalformed) ||
		errors.Is(err, fixedpoint.ErrMalformed) ||
		errors.Is(err, table.ErrEmptyKey)
}

// Run folds every record of data into tbl, stopping at the first error.
func Run(data []byte, tbl *table.Table) error {
	s := scan.New(data)
	for s.Scan() {
		v, err := fixedpoint.Parse(s.Value())
		if err != nil {
			return &LineError{Line: s.Line(), Err: err}
		}
		if err := tbl.Update(s.Key(), v); err != nil {
			return &LineError{Line: s.Line(), Err: err}
		}
	}
	if err := s.Err(); err != nil {
		return &LineError{Line: s.Line(), Err: err}
	}
	return nil
}
