package tabular

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	usage "energy-optimizer/internal/usage/domain"
)

// ParseXLSX reads the first worksheet of an Excel workbook.
func ParseXLSX(r io.Reader) (usage.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return usage.Dataset{}, fmt.Errorf("%w: reading xlsx: %v", usage.ErrInvalidParameter, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return DatasetFromRows(nil)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return usage.Dataset{}, fmt.Errorf("%w: reading sheet %s: %v", usage.ErrInvalidParameter, sheets[0], err)
	}
	return DatasetFromRows(rows)
}
