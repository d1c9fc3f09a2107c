// Package aggregate computes the grouped and pivoted tables that feed the
// correlation stage: monthly event counts, fieldwide and lifetime volume
// sums, and the month-by-well total matrix.
//
// All functions are pure: they never mutate their inputs and their outputs
// are deterministically ordered (months ascending, well ids lexicographic).
package aggregate

import (
	"sort"

	"github.com/seismetry/seismetry/pkg/types"
)

// CountEventsByMonth groups events by calendar month and counts rows.
// Months without events are absent from the result; the counts of the
// returned rows always sum to len(events).
func CountEventsByMonth(events []types.SeismicEvent) []types.MonthlyEventCount {
	counts := make(map[types.MonthKey]int64)
	for _, ev := range events {
		counts[ev.Month]++
	}

	out := make([]types.MonthlyEventCount, 0, len(counts))
	for month, count := range counts {
		out = append(out, types.MonthlyEventCount{Month: month, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// SumVolumesByMonth computes field-wide sums of every volume column per
// month, ignoring per-well identity.
func SumVolumesByMonth(records []types.VolumeRecord) []types.FieldwideVolume {
	groups := make(map[types.MonthKey]*types.FieldwideVolume)
	for _, r := range records {
		g, ok := groups[r.Month]
		if !ok {
			g = &types.FieldwideVolume{Month: r.Month}
			groups[r.Month] = g
		}
		g.Add(r)
	}

	out := make([]types.FieldwideVolume, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// SumVolumesByWell computes lifetime sums of every volume column per well.
func SumVolumesByWell(records []types.VolumeRecord) []types.WellTotals {
	groups := make(map[string]*types.WellTotals)
	for _, r := range records {
		g, ok := groups[r.WellID]
		if !ok {
			g = &types.WellTotals{WellID: r.WellID}
			groups[r.WellID] = g
		}
		g.Add(r)
	}

	out := make([]types.WellTotals, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WellID < out[j].WellID })
	return out
}
