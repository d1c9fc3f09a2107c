package correlate

import (
	"fmt"

	"github.com/seismetry/seismetry/internal/aggregate"
	"github.com/seismetry/seismetry/internal/errors"
	"github.com/seismetry/seismetry/pkg/types"
)

// EventsCorrelations extracts the event-count column of the matrix as
// one CorrelationResult per well column, in matrix column order.
func EventsCorrelations(m *Matrix) ([]types.CorrelationResult, error) {
	eventsIdx := -1
	for i, name := range m.Columns {
		if name == aggregate.EventsColumn {
			eventsIdx = i
			break
		}
	}
	if eventsIdx < 0 {
		return nil, errors.NewCorrelateError(errors.CodeDimensionMismatch,
			fmt.Sprintf("matrix has no %q column", aggregate.EventsColumn))
	}

	results := make([]types.CorrelationResult, 0, len(m.Columns)-1)
	for i, name := range m.Columns {
		if i == eventsIdx {
			continue
		}
		results = append(results, types.CorrelationResult{
			WellID:      name,
			Coefficient: m.Values[eventsIdx][i],
		})
	}
	return results, nil
}

// AttachCorrelations left-joins the correlation results onto the well
// summaries by well id. Summaries without a matching result keep a null
// coefficient; the count of results without a matching summary is
// returned for observability.
func AttachCorrelations(summaries []types.WellSummary, results []types.CorrelationResult) ([]types.WellSummary, int64) {
	byID := make(map[string]float64, len(results))
	for _, r := range results {
		byID[r.WellID] = r.Coefficient
	}

	matched := make(map[string]struct{}, len(summaries))
	out := make([]types.WellSummary, len(summaries))
	for i, s := range summaries {
		if coeff, ok := byID[s.WellID]; ok {
			s.Correlation = coeff
			matched[s.WellID] = struct{}{}
		}
		out[i] = s
	}

	var unmatched int64
	for _, r := range results {
		if _, ok := matched[r.WellID]; !ok {
			unmatched++
		}
	}
	return out, unmatched
}
