// Package pipeline runs the linear analysis sequence: filter events,
// aggregate monthly series, merge, correlate, and summarize per well.
// A run is a pure function of the three input tables and the magnitude
// threshold; any stage failure aborts the whole run.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/seismetry/seismetry/internal/aggregate"
	"github.com/seismetry/seismetry/internal/correlate"
	"github.com/seismetry/seismetry/internal/dataset"
	"github.com/seismetry/seismetry/pkg/types"
)

// Inputs are the three normalized tables a run consumes.
type Inputs struct {
	Events  []types.SeismicEvent
	Wells   []types.Well
	Volumes []types.VolumeRecord
}

// Options parameterize a run.
type Options struct {
	// MinMagnitude drops events at or below the threshold before
	// aggregation when ApplyMagnitudeFilter is set.
	MinMagnitude         float64
	ApplyMagnitudeFilter bool
}

// Stage names used in duration reporting.
const (
	StageFilter    = "filter"
	StageAggregate = "aggregate"
	StageMerge     = "merge"
	StageCorrelate = "correlate"
	StageSummarize = "summarize"
)

// Diagnostics reports the row counts, drops, and timings of one run.
// Unmatched join rows are dropped without error; the counts here are the
// only trace they leave.
type Diagnostics struct {
	EventRows  int64 `json:"event_rows"`
	WellRows   int64 `json:"well_rows"`
	VolumeRows int64 `json:"volume_rows"`

	// EventsFiltered counts events dropped by the magnitude threshold.
	EventsFiltered int64 `json:"events_filtered"`

	// WellJoin counts drops joining wells with lifetime totals; Monthly
	// Join counts drops aligning pivot months with event-count months.
	WellJoin    aggregate.JoinStats `json:"well_join"`
	MonthlyJoin aggregate.JoinStats `json:"monthly_join"`

	// UnmatchedCorrelations counts matrix columns with no well row.
	UnmatchedCorrelations int64 `json:"unmatched_correlations"`

	// MergedMonths is the correlation window length.
	MergedMonths int `json:"merged_months"`

	StageDurations map[string]time.Duration `json:"stage_durations"`
}

// Result bundles every table a run derives.
type Result struct {
	Options Options

	// FilteredEvents are the events that entered aggregation.
	FilteredEvents []types.SeismicEvent

	Counts    []types.MonthlyEventCount
	Fieldwide []types.FieldwideVolume
	Pivot     *aggregate.MonthlyMatrix
	Merged    *aggregate.MergedMonthly
	Matrix    *correlate.Matrix
	PerWell   []types.CorrelationResult
	Summaries []types.WellSummary

	Diagnostics Diagnostics
}

// Run executes the full pipeline over already-normalized inputs.
func Run(ctx context.Context, in Inputs, opts Options) (*Result, error) {
	res := &Result{
		Options: opts,
		Diagnostics: Diagnostics{
			EventRows:      int64(len(in.Events)),
			WellRows:       int64(len(in.Wells)),
			VolumeRows:     int64(len(in.Volumes)),
			StageDurations: make(map[string]time.Duration),
		},
	}

	events := in.Events
	start := time.Now()
	if opts.ApplyMagnitudeFilter {
		events, res.Diagnostics.EventsFiltered = dataset.FilterByMagnitude(events, opts.MinMagnitude)
	}
	res.FilteredEvents = events
	res.Diagnostics.StageDurations[StageFilter] = time.Since(start)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline: cancelled before aggregation: %w", err)
	}

	start = time.Now()
	res.Counts = aggregate.CountEventsByMonth(events)
	res.Fieldwide = aggregate.SumVolumesByMonth(in.Volumes)
	res.Pivot = aggregate.PivotTotalsByWell(in.Volumes)
	totals := aggregate.SumVolumesByWell(in.Volumes)
	res.Diagnostics.StageDurations[StageAggregate] = time.Since(start)

	start = time.Now()
	var merged *aggregate.MergedMonthly
	merged, res.Diagnostics.MonthlyJoin = aggregate.MergeMonthly(res.Pivot, res.Counts)
	res.Merged = merged
	res.Diagnostics.MergedMonths = merged.Rows()
	res.Diagnostics.StageDurations[StageMerge] = time.Since(start)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline: cancelled before correlation: %w", err)
	}

	start = time.Now()
	matrix, err := correlate.Compute(merged)
	if err != nil {
		return nil, fmt.Errorf("pipeline: correlation failed: %w", err)
	}
	correlate.NullPerfect(matrix)
	res.Matrix = matrix
	res.PerWell, err = correlate.EventsCorrelations(matrix)
	if err != nil {
		return nil, fmt.Errorf("pipeline: correlation extraction failed: %w", err)
	}
	res.Diagnostics.StageDurations[StageCorrelate] = time.Since(start)

	start = time.Now()
	summaries, wellJoin := aggregate.JoinWellsWithTotals(in.Wells, totals)
	res.Diagnostics.WellJoin = wellJoin
	res.Summaries, res.Diagnostics.UnmatchedCorrelations = correlate.AttachCorrelations(summaries, res.PerWell)
	res.Diagnostics.StageDurations[StageSummarize] = time.Since(start)

	d := &res.Diagnostics
	if d.EventsFiltered > 0 {
		log.Printf("pipeline: magnitude filter dropped %d of %d events", d.EventsFiltered, d.EventRows)
	}
	if d.WellJoin.LeftDropped > 0 || d.WellJoin.RightDropped > 0 {
		log.Printf("pipeline: well join dropped %d wells without volumes, %d volume ids without wells",
			d.WellJoin.LeftDropped, d.WellJoin.RightDropped)
	}
	if d.MonthlyJoin.LeftDropped > 0 || d.MonthlyJoin.RightDropped > 0 {
		log.Printf("pipeline: monthly merge dropped %d volume months, %d event months",
			d.MonthlyJoin.LeftDropped, d.MonthlyJoin.RightDropped)
	}
	if d.UnmatchedCorrelations > 0 {
		log.Printf("pipeline: %d correlation columns had no matching well", d.UnmatchedCorrelations)
	}
	log.Printf("pipeline: correlated %d wells over %d aligned months", len(res.Summaries), d.MergedMonths)
	return res, nil
}
