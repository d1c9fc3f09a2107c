// Package correlate computes the Pearson correlation between per-well
// monthly volume series and the monthly event-count series.
package correlate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/seismetry/seismetry/internal/aggregate"
	"github.com/seismetry/seismetry/internal/errors"
)

// Matrix is the pairwise Pearson correlation matrix over the merged
// monthly table's numeric columns (one per well plus the event-count
// column). NaN entries are null: either the underlying series had no
// variance, the observation window was too short, or the coefficient was
// exactly 1 and has been nulled as a self-correlation artifact.
type Matrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
}

// Compute builds the correlation matrix for a merged monthly table. With
// fewer than two aligned months every coefficient is null; the matrix
// shape is still one row and column per numeric column.
func Compute(merged *aggregate.MergedMonthly) (*Matrix, error) {
	cols := merged.Columns()
	k := len(cols)
	n := merged.Rows()

	if len(merged.Events) != n {
		return nil, errors.NewCorrelateError(errors.CodeDimensionMismatch,
			fmt.Sprintf("event series has %d rows, expected %d", len(merged.Events), n))
	}
	for i, row := range merged.Totals {
		if len(row) != len(merged.WellIDs) {
			return nil, errors.NewCorrelateError(errors.CodeDimensionMismatch,
				fmt.Sprintf("month %s has %d well columns, expected %d",
					merged.Months[i], len(row), len(merged.WellIDs)))
		}
	}

	out := &Matrix{Columns: cols, Values: allocSquare(k)}
	if n < 2 {
		fillNaN(out.Values)
		return out, nil
	}

	data := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		for j, v := range merged.Totals[i] {
			data.Set(i, j, v)
		}
		data.Set(i, k-1, merged.Events[i])
	}

	var sym mat.SymDense
	stat.CorrelationMatrix(&sym, data, nil)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			out.Values[i][j] = sym.At(i, j)
		}
	}
	return out, nil
}

// NullPerfect replaces every coefficient exactly equal to 1 with NaN.
// This removes the diagonal self-correlations and any degenerate
// perfectly correlated pair; -1 coefficients are untouched.
func NullPerfect(m *Matrix) {
	for i := range m.Values {
		for j := range m.Values[i] {
			if m.Values[i][j] == 1 {
				m.Values[i][j] = math.NaN()
			}
		}
	}
}

// Coefficient returns the Pearson correlation of two equal-length series.
// It is NaN when either series has no variance or fewer than two points.
func Coefficient(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}

// At returns the coefficient for a pair of named columns.
func (m *Matrix) At(col, row string) (float64, bool) {
	ci, ri := -1, -1
	for i, name := range m.Columns {
		if name == col {
			ci = i
		}
		if name == row {
			ri = i
		}
	}
	if ci < 0 || ri < 0 {
		return 0, false
	}
	return m.Values[ri][ci], true
}

func allocSquare(k int) [][]float64 {
	values := make([][]float64, k)
	for i := range values {
		values[i] = make([]float64, k)
	}
	return values
}

func fillNaN(values [][]float64) {
	for i := range values {
		for j := range values[i] {
			values[i][j] = math.NaN()
		}
	}
}
