package loader

import (
	"errors"
	"fmt"
)

// ErrMissingField is wrapped by every DataError.
var ErrMissingField = errors.New("missing required field")

// DataError reports a source record that cannot become a document.
// Record is zero-based; -1 means the problem is in the file header.
type DataError struct {
	Source string
	Record int
	Field  string
}

func (e *DataError) Error() string {
	if e.Record < 0 {
		return fmt.Sprintf("%s: header: %s %q", e.Source, ErrMissingField, e.Field)
	}
	return fmt.Sprintf("%s: record %d: %s %q", e.Source, e.Record, ErrMissingField, e.Field)
}

func (e *DataError) Unwrap() error { return ErrMissingField }
