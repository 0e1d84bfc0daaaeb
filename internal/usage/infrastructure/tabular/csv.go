package tabular

import (
	"encoding/csv"
	"fmt"
	"io"

	usage "energy-optimizer/internal/usage/domain"
)

// ParseCSV reads a comma-separated usage table with a header row.
func ParseCSV(r io.Reader) (usage.Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return usage.Dataset{}, fmt.Errorf("%w: reading csv: %v", usage.ErrInvalidParameter, err)
	}
	return DatasetFromRows(rows)
}
