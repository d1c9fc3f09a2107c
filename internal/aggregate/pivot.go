package aggregate

import (
	"sort"

	"github.com/seismetry/seismetry/pkg/types"
)

// MonthlyMatrix is the pivoted month-by-well table of total volumes.
// Rows are the months present in the volume set (ascending), columns the
// distinct well ids (lexicographic). Cells with no record hold 0, so the
// matrix never contains holes; duplicate (well, month) records sum.
type MonthlyMatrix struct {
	Months  []types.MonthKey
	WellIDs []string
	Values  [][]float64 // Values[i][j] is the total for Months[i], WellIDs[j]

	monthIndex map[types.MonthKey]int
	wellIndex  map[string]int
}

// PivotTotalsByWell pivots volume records into a MonthlyMatrix of Total
// values.
func PivotTotalsByWell(records []types.VolumeRecord) *MonthlyMatrix {
	monthSet := make(map[types.MonthKey]struct{})
	wellSet := make(map[string]struct{})
	for _, r := range records {
		monthSet[r.Month] = struct{}{}
		wellSet[r.WellID] = struct{}{}
	}

	m := &MonthlyMatrix{
		Months:     make([]types.MonthKey, 0, len(monthSet)),
		WellIDs:    make([]string, 0, len(wellSet)),
		monthIndex: make(map[types.MonthKey]int, len(monthSet)),
		wellIndex:  make(map[string]int, len(wellSet)),
	}
	for month := range monthSet {
		m.Months = append(m.Months, month)
	}
	for id := range wellSet {
		m.WellIDs = append(m.WellIDs, id)
	}
	sort.Slice(m.Months, func(i, j int) bool { return m.Months[i] < m.Months[j] })
	sort.Strings(m.WellIDs)
	for i, month := range m.Months {
		m.monthIndex[month] = i
	}
	for j, id := range m.WellIDs {
		m.wellIndex[id] = j
	}

	m.Values = make([][]float64, len(m.Months))
	for i := range m.Values {
		m.Values[i] = make([]float64, len(m.WellIDs))
	}
	for _, r := range records {
		m.Values[m.monthIndex[r.Month]][m.wellIndex[r.WellID]] += r.Total
	}
	return m
}

// Value returns the cell for a (month, well) pair.
func (m *MonthlyMatrix) Value(month types.MonthKey, wellID string) (float64, bool) {
	i, okM := m.monthIndex[month]
	j, okW := m.wellIndex[wellID]
	if !okM || !okW {
		return 0, false
	}
	return m.Values[i][j], true
}

// Column returns one well's monthly series in month order.
func (m *MonthlyMatrix) Column(wellID string) ([]float64, bool) {
	j, ok := m.wellIndex[wellID]
	if !ok {
		return nil, false
	}
	col := make([]float64, len(m.Months))
	for i := range m.Months {
		col[i] = m.Values[i][j]
	}
	return col, true
}

// Row returns the row index of a month, if present.
func (m *MonthlyMatrix) Row(month types.MonthKey) (int, bool) {
	i, ok := m.monthIndex[month]
	return i, ok
}
