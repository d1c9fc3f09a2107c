package aggregate

import (
	"math"

	"github.com/seismetry/seismetry/pkg/types"
)

// JoinStats counts the rows each side of a join site discarded. The
// pipeline keeps the silent-drop policy on unmatched rows but always
// reports how many were dropped.
type JoinStats struct {
	LeftDropped  int64 `json:"left_dropped"`
	RightDropped int64 `json:"right_dropped"`
}

// JoinWellsWithTotals inner-joins wells with their lifetime volume sums
// on well id. Wells with no volume history and volume ids with no
// matching well are dropped and counted. The Correlation field of every
// produced summary starts as null (NaN) until the correlation stage
// attaches coefficients.
func JoinWellsWithTotals(wells []types.Well, totals []types.WellTotals) ([]types.WellSummary, JoinStats) {
	byID := make(map[string]types.WellTotals, len(totals))
	for _, t := range totals {
		byID[t.WellID] = t
	}

	var stats JoinStats
	matched := make(map[string]struct{}, len(wells))
	summaries := make([]types.WellSummary, 0, len(wells))
	for _, w := range wells {
		t, ok := byID[w.WellID]
		if !ok {
			stats.LeftDropped++
			continue
		}
		matched[w.WellID] = struct{}{}
		summaries = append(summaries, types.WellSummary{
			WellID:      w.WellID,
			Name:        w.Name,
			Type:        w.Type,
			X:           w.X,
			Y:           w.Y,
			Z:           w.Z,
			VolumeSums:  t.VolumeSums,
			Correlation: math.NaN(),
		})
	}
	for _, t := range totals {
		if _, ok := matched[t.WellID]; !ok {
			stats.RightDropped++
		}
	}
	return summaries, stats
}

// MergedMonthly holds the month-aligned numeric series entering the
// correlation: one column per well plus the event-count series, restricted
// to months present in both the pivot and the event counts.
type MergedMonthly struct {
	Months  []types.MonthKey
	WellIDs []string
	Totals  [][]float64 // Totals[i][j] is WellIDs[j]'s total in Months[i]
	Events  []float64   // event counts aligned with Months
}

// MergeMonthly inner-joins the pivoted volume matrix with the monthly
// event counts on month key. Months on either side without a partner are
// dropped and counted (pivot months on the left, count months on the
// right).
func MergeMonthly(pivot *MonthlyMatrix, counts []types.MonthlyEventCount) (*MergedMonthly, JoinStats) {
	countByMonth := make(map[types.MonthKey]int64, len(counts))
	for _, c := range counts {
		countByMonth[c.Month] = c.Count
	}

	var stats JoinStats
	merged := &MergedMonthly{WellIDs: append([]string(nil), pivot.WellIDs...)}
	for i, month := range pivot.Months {
		count, ok := countByMonth[month]
		if !ok {
			stats.LeftDropped++
			continue
		}
		merged.Months = append(merged.Months, month)
		merged.Totals = append(merged.Totals, append([]float64(nil), pivot.Values[i]...))
		merged.Events = append(merged.Events, float64(count))
	}
	for _, c := range counts {
		if _, ok := pivot.monthIndex[c.Month]; !ok {
			stats.RightDropped++
		}
	}
	return merged, stats
}

// Rows returns the number of aligned months in the merged table.
func (m *MergedMonthly) Rows() int {
	return len(m.Months)
}

// Columns returns the ordered numeric column names: one per well followed
// by the event-count column.
func (m *MergedMonthly) Columns() []string {
	cols := append([]string(nil), m.WellIDs...)
	return append(cols, EventsColumn)
}

// EventsColumn is the name of the event-count column in the merged table
// and in the correlation matrix derived from it.
const EventsColumn = "Events"
