package tabular

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	usage "energy-optimizer/internal/usage/domain"
)

// Required column names, in the order they are reported when missing.
const (
	ColumnMonth     = "Month"
	ColumnUnits     = "Units_kWh"
	ColumnAvgDaily  = "Avg_Daily_kWh"
	ColumnPeakHours = "Peak_Usage_Hours"
	ColumnCost      = "Cost"
)

// RequiredColumns lists every column a usage table must carry.
var RequiredColumns = []string{ColumnMonth, ColumnUnits, ColumnAvgDaily, ColumnPeakHours, ColumnCost}

// The prediction model was trained on "Avg_Daily_KWh".
var columnAliases = map[string]string{
	"Avg_Daily_KWh": ColumnAvgDaily,
}

// Format is a supported upload format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatFromFilename resolves the format from a file extension.
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q (only .csv and .xlsx are accepted)", usage.ErrUnsupportedFormat, filepath.Base(name))
	}
}

// Parse reads a usage table in the given format.
func Parse(r io.Reader, format Format) (usage.Dataset, error) {
	switch format {
	case FormatCSV:
		return ParseCSV(r)
	case FormatXLSX:
		return ParseXLSX(r)
	default:
		return usage.Dataset{}, fmt.Errorf("%w: %q", usage.ErrUnsupportedFormat, format)
	}
}

// ReadFile parses a CSV or XLSX file from disk.
func ReadFile(path string) (usage.Dataset, error) {
	format, err := FormatFromFilename(path)
	if err != nil {
		return usage.Dataset{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return usage.Dataset{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f, format)
}

// DatasetFromRows converts a header row plus data rows into a dataset.
// Missing columns are reported before any row is inspected.
func DatasetFromRows(rows [][]string) (usage.Dataset, error) {
	var header []string
	if len(rows) > 0 {
		header = rows[0]
	}
	index, err := resolveColumns(header)
	if err != nil {
		return usage.Dataset{}, err
	}

	records := make([]usage.Record, 0, len(rows))
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isBlank(row) {
			continue
		}
		rowNum := i + 1
		rec, err := parseRecord(row, index, rowNum)
		if err != nil {
			return usage.Dataset{}, err
		}
		if err := rec.Validate(); err != nil {
			return usage.Dataset{}, fmt.Errorf("row %d: %w", rowNum, err)
		}
		records = append(records, rec)
	}
	return usage.NewDataset(records)
}

func resolveColumns(header []string) (map[string]int, error) {
	index := make(map[string]int, len(RequiredColumns))
	present := make([]string, 0, len(header))
	for i, raw := range header {
		name := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
		present = append(present, name)
		if canonical, ok := columnAliases[name]; ok {
			name = canonical
		}
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &usage.SchemaError{Missing: missing, Present: present}
	}
	return index, nil
}

func parseRecord(row []string, index map[string]int, rowNum int) (usage.Record, error) {
	cell := func(col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	month, ok := usage.NormalizeMonth(cell(ColumnMonth))
	if !ok {
		return usage.Record{}, fmt.Errorf("%w: row %d: unknown month %q", usage.ErrInvalidParameter, rowNum, cell(ColumnMonth))
	}

	var values [4]float64
	for i, col := range []string{ColumnUnits, ColumnAvgDaily, ColumnPeakHours, ColumnCost} {
		raw := cell(col)
		if raw == "" {
			return usage.Record{}, fmt.Errorf("%w: row %d: %s is empty", usage.ErrInvalidParameter, rowNum, col)
		}
		v, err := parseNumber(raw)
		if err != nil {
			return usage.Record{}, fmt.Errorf("%w: row %d: %s %q is not a number", usage.ErrInvalidParameter, rowNum, col, raw)
		}
		values[i] = v
	}

	return usage.Record{
		Month:          month,
		UnitsKWh:       values[0],
		AvgDailyKWh:    values[1],
		PeakUsageHours: values[2],
		Cost:           values[3],
	}, nil
}

// thousandsGrouped matches "1,234" and "12,345.6"; any other comma is ambiguous.
var thousandsGrouped = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)

func parseNumber(raw string) (float64, error) {
	if strings.Contains(raw, ",") {
		if !thousandsGrouped.MatchString(raw) {
			return 0, fmt.Errorf("ambiguous comma in %q", raw)
		}
		raw = strings.ReplaceAll(raw, ",", "")
	}
	return strconv.ParseFloat(raw, 64)
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
