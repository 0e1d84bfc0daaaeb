package usage

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMonth(t *testing.T) {
	cases := map[string]string{
		"Jan":       "Jan",
		"jan":       "Jan",
		" JULY ":    "Jul",
		"September": "Sep",
		"sept":      "Sep",
	}
	for input, want := range cases {
		got, ok := NormalizeMonth(input)
		require.True(t, ok, input)
		assert.Equal(t, want, got, input)
	}

	_, ok := NormalizeMonth("Smarch")
	assert.False(t, ok)
	_, ok = NormalizeMonth("")
	assert.False(t, ok)
}

func TestNewDataset_RejectsInvalidRecords(t *testing.T) {
	cases := []struct {
		name string
		rec  Record
	}{
		{"negative units", Record{Month: "Jan", UnitsKWh: -1}},
		{"negative cost", Record{Month: "Jan", UnitsKWh: 1, Cost: -0.01}},
		{"nan avg", Record{Month: "Jan", AvgDailyKWh: math.NaN()}},
		{"peak above 24", Record{Month: "Jan", PeakUsageHours: 25}},
		{"unknown month", Record{Month: "January"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewDataset([]Record{{Month: "Feb", UnitsKWh: 10}, tc.rec})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidParameter))
			assert.Contains(t, err.Error(), "record 2")
		})
	}
}

func TestDataset_IsImmutable(t *testing.T) {
	records := []Record{{Month: "Jan", UnitsKWh: 10, Cost: 5}}
	ds, err := NewDataset(records)
	require.NoError(t, err)

	records[0].UnitsKWh = 999
	assert.Equal(t, 10.0, ds.At(0).UnitsKWh)

	out := ds.Records()
	out[0].UnitsKWh = 999
	assert.Equal(t, 10.0, ds.At(0).UnitsKWh)
}

func TestDataset_Totals(t *testing.T) {
	ds, err := NewDataset([]Record{
		{Month: "Jan", UnitsKWh: 100, Cost: 650},
		{Month: "Feb", UnitsKWh: 300, Cost: 1950},
	})
	require.NoError(t, err)
	assert.Equal(t, 400.0, ds.TotalUnits())
	assert.Equal(t, 2600.0, ds.TotalCost())
	assert.InDelta(t, 6.5, ds.CostPerKWh(), 1e-12)
}

func TestNewDataset_RejectsOverflowingTotals(t *testing.T) {
	_, err := NewDataset([]Record{
		{Month: "Jan", UnitsKWh: math.MaxFloat64, Cost: 1},
		{Month: "Feb", UnitsKWh: math.MaxFloat64, Cost: 1},
	})
	assert.True(t, errors.Is(err, ErrInvalidParameter))
	assert.Contains(t, err.Error(), "total units_kwh")

	_, err = NewDataset([]Record{{Month: "Jan", UnitsKWh: 1e-300, Cost: 1e10}})
	assert.True(t, errors.Is(err, ErrInvalidParameter))
	assert.Contains(t, err.Error(), "cost per kwh")

	_, err = NewDataset([]Record{{Month: "Jan", UnitsKWh: math.MaxFloat64 / 2, Cost: 1}})
	assert.NoError(t, err)
}

func TestDataset_CostPerKWhGuardsZeroUnits(t *testing.T) {
	ds, err := NewDataset([]Record{{Month: "Jan", UnitsKWh: 0, Cost: 12}})
	require.NoError(t, err)
	assert.Equal(t, 0.0, ds.CostPerKWh())
}

func TestSchemaError_MatchesSentinel(t *testing.T) {
	var err error = &SchemaError{Missing: []string{"Cost"}, Present: []string{"Month", "Units_kWh"}}
	assert.True(t, errors.Is(err, ErrSchema))
	assert.False(t, errors.Is(err, ErrInvalidParameter))
	assert.Contains(t, err.Error(), "Cost")

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"Cost"}, schemaErr.Missing)
}

func TestDataset_JSONRoundTripValidates(t *testing.T) {
	ds, err := NewDataset([]Record{{Month: "Mar", UnitsKWh: 200, AvgDailyKWh: 6.5, PeakUsageHours: 6, Cost: 1300}})
	require.NoError(t, err)

	raw, err := json.Marshal(ds)
	require.NoError(t, err)

	var decoded Dataset
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, ds.Records(), decoded.Records())

	err = json.Unmarshal([]byte(`[{"month":"Mar","units_kwh":-5}]`), &decoded)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}
