package report

import (
	"errors"
	"fmt"
)

var (
	ErrFileNotFound     = errors.New("report file not found")
	ErrMalformedReport  = errors.New("malformed report")
	ErrInvalidSelection = errors.New("invalid metric selection")
)

// RowError describes a data row that could not be converted into a Row.
// Index is 1-based and counts data rows only (the header is not counted).
type RowError struct {
	Path   string
	Metric MetricKind
	Index  int
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s [%s] row %d: %v", e.Path, e.Metric, e.Index, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
