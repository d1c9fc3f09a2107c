package correlate

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// buildMerged shapes a flat generated series into an n-month table with
// three well columns plus the event counts.
func buildMerged(raw []float64) (totals [][]float64, events []float64, ok bool) {
	const wells = 3
	n := len(raw) / (wells + 1)
	if n < 3 {
		return nil, nil, false
	}
	for i := 0; i < n; i++ {
		row := make([]float64, wells)
		for j := 0; j < wells; j++ {
			row[j] = raw[i*(wells+1)+j]
		}
		totals = append(totals, row)
		events = append(events, math.Floor(raw[i*(wells+1)+wells]/100))
	}
	return totals, events, true
}

// TestProperty_MatrixSymmetryAndDiagonal validates the shape invariants
// of the correlation matrix: exact symmetry, exact unit diagonal before
// nulling, null diagonal after, and all defined coefficients within
// [-1, 1] up to rounding.
func TestProperty_MatrixSymmetryAndDiagonal(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("matrix is symmetric with unit diagonal", prop.ForAll(
		func(raw []float64) bool {
			totals, events, ok := buildMerged(raw)
			if !ok {
				return true // not enough data to form a table
			}
			merged := mergedTable([]string{"01", "02", "03"}, totals, events)

			m, err := Compute(merged)
			if err != nil {
				return false
			}
			k := len(m.Columns)
			for i := 0; i < k; i++ {
				if m.Values[i][i] != 1 {
					return false
				}
				for j := 0; j < k; j++ {
					vij, vji := m.Values[i][j], m.Values[j][i]
					if math.IsNaN(vij) != math.IsNaN(vji) {
						return false
					}
					if !math.IsNaN(vij) && vij != vji {
						return false
					}
					if !math.IsNaN(vij) && math.Abs(vij) > 1+1e-9 {
						return false
					}
				}
			}

			NullPerfect(m)
			for i := 0; i < k; i++ {
				if !math.IsNaN(m.Values[i][i]) {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(40, gen.Float64Range(-1e6, 1e6)),
	))

	properties.TestingRun(t)
}

// TestProperty_MatrixMatchesPairwise validates that every matrix entry
// agrees with the pairwise coefficient of the two underlying series.
func TestProperty_MatrixMatchesPairwise(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("matrix entries match pairwise coefficients", prop.ForAll(
		func(raw []float64) bool {
			totals, events, ok := buildMerged(raw)
			if !ok {
				return true
			}
			merged := mergedTable([]string{"01", "02", "03"}, totals, events)

			m, err := Compute(merged)
			if err != nil {
				return false
			}

			series := make([][]float64, len(m.Columns))
			for j := 0; j < 3; j++ {
				col := make([]float64, len(totals))
				for i := range totals {
					col[i] = totals[i][j]
				}
				series[j] = col
			}
			series[3] = events

			for i := range series {
				for j := range series {
					if i == j {
						continue
					}
					want := Coefficient(series[i], series[j])
					got := m.Values[i][j]
					if math.IsNaN(want) != math.IsNaN(got) {
						return false
					}
					if !math.IsNaN(want) && math.Abs(want-got) > 1e-9 {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOfN(40, gen.Float64Range(-1e6, 1e6)),
	))

	properties.TestingRun(t)
}
