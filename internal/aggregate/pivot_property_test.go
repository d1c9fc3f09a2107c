package aggregate

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/seismetry/seismetry/pkg/types"
)

// genVolumeRecords turns generated (well, month, oil) triples into
// normalized records spanning up to twelve wells and twenty-four months.
func genVolumeRecords(cells []int) []types.VolumeRecord {
	records := make([]types.VolumeRecord, 0, len(cells))
	for _, cell := range cells {
		wellNum := cell % 12
		monthNum := (cell / 12) % 24
		r := types.VolumeRecord{
			HoleName:  fmt.Sprintf("PGKYP-%02d", wellNum),
			WellID:    fmt.Sprintf("%02d", wellNum),
			StartDate: time.Date(2019, time.Month(1+monthNum%12), 1, 0, 0, 0, 0, time.UTC).AddDate(monthNum/12, 0, 0),
			Oil:       float64(cell % 1000),
		}
		r.Month = types.MonthOf(r.StartDate)
		r.DeriveBalances()
		records = append(records, r)
	}
	return records
}

// TestProperty_PivotShape validates that pivoting then zero-filling yields
// a dense matrix with one column per distinct well id and no NaN cells.
func TestProperty_PivotShape(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("pivot has one column per distinct well and no holes", prop.ForAll(
		func(cells []int) bool {
			records := genVolumeRecords(cells)

			distinctWells := make(map[string]struct{})
			distinctMonths := make(map[types.MonthKey]struct{})
			for _, r := range records {
				distinctWells[r.WellID] = struct{}{}
				distinctMonths[r.Month] = struct{}{}
			}

			pivot := PivotTotalsByWell(records)
			if len(pivot.WellIDs) != len(distinctWells) {
				return false
			}
			if len(pivot.Months) != len(distinctMonths) {
				return false
			}
			for i := range pivot.Values {
				if len(pivot.Values[i]) != len(pivot.WellIDs) {
					return false
				}
				for _, v := range pivot.Values[i] {
					if math.IsNaN(v) {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 100000)),
	))

	properties.Property("pivot cells sum to the records' total sum", prop.ForAll(
		func(cells []int) bool {
			records := genVolumeRecords(cells)
			var want float64
			for _, r := range records {
				want += r.Total
			}
			pivot := PivotTotalsByWell(records)
			var got float64
			for i := range pivot.Values {
				for _, v := range pivot.Values[i] {
					got += v
				}
			}
			return math.Abs(got-want) < 1e-6
		},
		gen.SliceOf(gen.IntRange(0, 100000)),
	))

	properties.TestingRun(t)
}

// TestProperty_MonthlyCountsConserveRows validates that grouping events
// by month never loses or double-counts a row.
func TestProperty_MonthlyCountsConserveRows(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("monthly counts sum to the event row count", prop.ForAll(
		func(dayOffsets []int) bool {
			base := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
			events := make([]types.SeismicEvent, len(dayOffsets))
			for i, off := range dayOffsets {
				d := base.AddDate(0, 0, off%1095) // within three years
				events[i] = types.SeismicEvent{Date: d, Month: types.MonthOf(d)}
			}

			counts := CountEventsByMonth(events)
			var total int64
			seen := make(map[types.MonthKey]struct{})
			for _, c := range counts {
				if c.Count < 1 {
					return false
				}
				if _, dup := seen[c.Month]; dup {
					return false
				}
				seen[c.Month] = struct{}{}
				total += c.Count
			}
			return total == int64(len(events))
		},
		gen.SliceOf(gen.IntRange(0, 100000)),
	))

	properties.TestingRun(t)
}
