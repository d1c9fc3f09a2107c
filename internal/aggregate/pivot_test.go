package aggregate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seismetry/seismetry/pkg/types"
)

func TestPivotTotalsByWell(t *testing.T) {
	records := []types.VolumeRecord{
		volume("01", "2020-01", 100, 50, 20, 10),  // total 120
		volume("02", "2020-01", 0, 0, 300, 25),    // total -325
		volume("01", "2020-02", 200, 100, 40, 20), // total 240
	}

	pivot := PivotTotalsByWell(records)
	assert.Equal(t, []types.MonthKey{"2020-01", "2020-02"}, pivot.Months)
	assert.Equal(t, []string{"01", "02"}, pivot.WellIDs)

	v, ok := pivot.Value("2020-01", "01")
	require.True(t, ok)
	assert.Equal(t, 120.0, v)

	v, ok = pivot.Value("2020-01", "02")
	require.True(t, ok)
	assert.Equal(t, -325.0, v)

	// Well 02 has no record in 2020-02: the cell is filled with zero.
	v, ok = pivot.Value("2020-02", "02")
	require.True(t, ok)
	assert.Equal(t, 0.0, v)
}

func TestPivotTotalsByWell_DuplicatesSum(t *testing.T) {
	records := []types.VolumeRecord{
		volume("01", "2020-01", 10, 0, 0, 0),
		volume("01", "2020-01", 5, 0, 0, 0),
	}
	pivot := PivotTotalsByWell(records)
	v, ok := pivot.Value("2020-01", "01")
	require.True(t, ok)
	assert.Equal(t, 15.0, v)
}

func TestPivotTotalsByWell_NoHoles(t *testing.T) {
	// A sparse set of (well, month) pairs still yields a dense matrix.
	records := []types.VolumeRecord{
		volume("01", "2020-01", 1, 0, 0, 0),
		volume("02", "2020-03", 2, 0, 0, 0),
		volume("03", "2020-05", 3, 0, 0, 0),
	}

	pivot := PivotTotalsByWell(records)
	require.Len(t, pivot.Months, 3)
	require.Len(t, pivot.WellIDs, 3)
	for i := range pivot.Months {
		require.Len(t, pivot.Values[i], 3)
		for j := range pivot.WellIDs {
			assert.False(t, math.IsNaN(pivot.Values[i][j]),
				"cell (%s,%s) must not be NaN", pivot.Months[i], pivot.WellIDs[j])
		}
	}
}

func TestPivotTotalsByWell_Column(t *testing.T) {
	records := []types.VolumeRecord{
		volume("01", "2020-01", 10, 0, 0, 0),
		volume("01", "2020-03", 30, 0, 0, 0),
		volume("02", "2020-02", 20, 0, 0, 0),
	}
	pivot := PivotTotalsByWell(records)

	col, ok := pivot.Column("01")
	require.True(t, ok)
	assert.Equal(t, []float64{10, 0, 30}, col)

	_, ok = pivot.Column("99")
	assert.False(t, ok)
}

func TestPivotTotalsByWell_Empty(t *testing.T) {
	pivot := PivotTotalsByWell(nil)
	assert.Empty(t, pivot.Months)
	assert.Empty(t, pivot.WellIDs)
	assert.Empty(t, pivot.Values)
}
