package usage

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInsufficientData is returned when a dataset is empty or too small for a computation.
	ErrInsufficientData = errors.New("usage: insufficient data")
	// ErrInvalidParameter is returned for out-of-range parameters or malformed record values.
	ErrInvalidParameter = errors.New("usage: invalid parameter")
	// ErrSchema is matched by *SchemaError.
	ErrSchema = errors.New("usage: schema error")
	// ErrUnsupportedFormat is returned when an upload is neither CSV nor XLSX.
	ErrUnsupportedFormat = errors.New("usage: unsupported format")
	// ErrDatasetNotFound is returned when a dataset handle cannot be resolved.
	ErrDatasetNotFound = errors.New("usage: dataset not found")
	// ErrEmptyTenantID is returned when a store call has no tenant scope.
	ErrEmptyTenantID = errors.New("usage: empty tenant id")
)

// SchemaError reports required columns that are missing from an ingested table.
type SchemaError struct {
	Missing []string
	Present []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("usage: missing columns [%s], available columns [%s]",
		strings.Join(e.Missing, ", "), strings.Join(e.Present, ", "))
}

// Is lets errors.Is(err, ErrSchema) match.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
}
