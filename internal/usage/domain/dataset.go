package usage

import (
	"encoding/json"
	"fmt"
	"math"
)

// MaxPeakHours bounds peak-rate hours per day.
const MaxPeakHours = 24

// Record is one historical observation.
type Record struct {
	Month          string  `json:"month"`
	UnitsKWh       float64 `json:"units_kwh"`
	AvgDailyKWh    float64 `json:"avg_daily_kwh"`
	PeakUsageHours float64 `json:"peak_usage_hours"`
	Cost           float64 `json:"cost"`
}

// Validate checks that every field is finite and in range.
func (r Record) Validate() error {
	if problem := r.problem(); problem != "" {
		return invalidf("%s", problem)
	}
	return nil
}

func (r Record) problem() string {
	if MonthIndex(r.Month) < 0 {
		return fmt.Sprintf("unknown month %q", r.Month)
	}
	fields := []struct {
		name  string
		value float64
	}{
		{"units_kwh", r.UnitsKWh},
		{"avg_daily_kwh", r.AvgDailyKWh},
		{"peak_usage_hours", r.PeakUsageHours},
		{"cost", r.Cost},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Sprintf("%s is not a finite number", f.name)
		}
		if f.value < 0 {
			return fmt.Sprintf("%s must be non-negative, got %v", f.name, f.value)
		}
	}
	if r.PeakUsageHours > MaxPeakHours {
		return fmt.Sprintf("peak_usage_hours %v exceeds %d", r.PeakUsageHours, MaxPeakHours)
	}
	return ""
}

// PeakShare returns the fraction of the day billed at peak rate.
func (r Record) PeakShare() float64 {
	return math.Min(r.PeakUsageHours, MaxPeakHours) / MaxPeakHours
}

// Dataset is an immutable, ordered sequence of records in upload order.
type Dataset struct {
	records []Record
}

// NewDataset validates and copies records into a dataset.
func NewDataset(records []Record) (Dataset, error) {
	copied := make([]Record, len(records))
	for i, rec := range records {
		if problem := rec.problem(); problem != "" {
			return Dataset{}, invalidf("record %d: %s", i+1, problem)
		}
		copied[i] = rec
	}
	ds := Dataset{records: copied}
	if err := ds.checkTotals(); err != nil {
		return Dataset{}, err
	}
	return ds, nil
}

// checkTotals rejects datasets whose aggregates leave the finite range.
func (d Dataset) checkTotals() error {
	var daily float64
	for _, rec := range d.records {
		daily += rec.AvgDailyKWh
	}
	for _, total := range []struct {
		name  string
		value float64
	}{
		{"total units_kwh", d.TotalUnits()},
		{"total avg_daily_kwh", daily},
		{"total cost", d.TotalCost()},
		{"cost per kwh", d.CostPerKWh()},
	} {
		if math.IsInf(total.value, 0) || math.IsNaN(total.value) {
			return invalidf("%s overflows", total.name)
		}
	}
	return nil
}

// Len returns the number of records.
func (d Dataset) Len() int { return len(d.records) }

// IsEmpty reports whether the dataset holds no records.
func (d Dataset) IsEmpty() bool { return len(d.records) == 0 }

// At returns the record at index i.
func (d Dataset) At(i int) Record { return d.records[i] }

// Records returns a copy of the records.
func (d Dataset) Records() []Record {
	out := make([]Record, len(d.records))
	copy(out, d.records)
	return out
}

// TotalUnits sums units_kwh.
func (d Dataset) TotalUnits() float64 {
	var sum float64
	for _, rec := range d.records {
		sum += rec.UnitsKWh
	}
	return sum
}

// TotalCost sums cost.
func (d Dataset) TotalCost() float64 {
	var sum float64
	for _, rec := range d.records {
		sum += rec.Cost
	}
	return sum
}

// CostPerKWh returns total cost over total units, or 0 when nothing was consumed.
func (d Dataset) CostPerKWh() float64 {
	units := d.TotalUnits()
	if units <= 0 {
		return 0
	}
	return d.TotalCost() / units
}

// MarshalJSON encodes the dataset as a record array.
func (d Dataset) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Records())
}

// UnmarshalJSON decodes a record array and validates each record.
func (d *Dataset) UnmarshalJSON(data []byte) error {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	ds, err := NewDataset(records)
	if err != nil {
		return err
	}
	*d = ds
	return nil
}
