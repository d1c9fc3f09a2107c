// Package observability tracks pipeline run statistics: rows parsed,
// rows silently dropped at join sites, and stage timings.
package observability

import (
	"sync"
	"time"

	"github.com/seismetry/seismetry/internal/pipeline"
	"github.com/seismetry/seismetry/pkg/types"
)

// RunStats accumulates statistics across pipeline runs. Every join keeps
// the silent-drop policy on unmatched rows, so the counters here are the
// only place those rows remain visible.
type RunStats struct {
	mu sync.RWMutex

	runs       int64
	lastRunID  string
	lastRunAt  time.Time
	lastError  string
	datasets   map[types.DatasetKind]DatasetLoad
	lastRun    *pipeline.Diagnostics
	totalDrops DropTotals
}

// DatasetLoad records the most recent successful load of one dataset.
type DatasetLoad struct {
	Kind     types.DatasetKind `json:"kind"`
	Rows     int64             `json:"rows"`
	LoadedAt time.Time         `json:"loaded_at"`
}

// DropTotals sums dropped rows over all runs.
type DropTotals struct {
	EventsFiltered   int64 `json:"events_filtered"`
	WellJoinDrops    int64 `json:"well_join_drops"`
	MonthlyJoinDrops int64 `json:"monthly_join_drops"`
	UnmatchedCorrs   int64 `json:"unmatched_correlations"`
}

// Snapshot is a deep copy of the tracker state for reporting.
type Snapshot struct {
	Runs      int64                 `json:"runs"`
	LastRunID string                `json:"last_run_id,omitempty"`
	LastRunAt *time.Time            `json:"last_run_at,omitempty"`
	LastError string                `json:"last_error,omitempty"`
	Datasets  []DatasetLoad         `json:"datasets"`
	LastRun   *pipeline.Diagnostics `json:"last_run,omitempty"`
	Totals    DropTotals            `json:"totals"`
}

// NewRunStats creates an empty tracker.
func NewRunStats() *RunStats {
	return &RunStats{
		datasets: make(map[types.DatasetKind]DatasetLoad),
	}
}

// RecordLoad records a successful dataset load. Thread-safe.
func (r *RunStats) RecordLoad(kind types.DatasetKind, rows int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.datasets[kind] = DatasetLoad{Kind: kind, Rows: rows, LoadedAt: time.Now()}
}

// RecordRun records a completed pipeline run. Thread-safe.
func (r *RunStats) RecordRun(runID string, diag pipeline.Diagnostics) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs++
	r.lastRunID = runID
	r.lastRunAt = time.Now()
	r.lastError = ""

	cp := copyDiagnostics(diag)
	r.lastRun = &cp

	r.totalDrops.EventsFiltered += diag.EventsFiltered
	r.totalDrops.WellJoinDrops += diag.WellJoin.LeftDropped + diag.WellJoin.RightDropped
	r.totalDrops.MonthlyJoinDrops += diag.MonthlyJoin.LeftDropped + diag.MonthlyJoin.RightDropped
	r.totalDrops.UnmatchedCorrs += diag.UnmatchedCorrelations
}

// RecordError records a failed run. Thread-safe.
func (r *RunStats) RecordError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.lastError = err.Error()
	}
}

// GetSnapshot returns a deep copy of the current state.
func (r *RunStats) GetSnapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{
		Runs:      r.runs,
		LastRunID: r.lastRunID,
		LastError: r.lastError,
		Totals:    r.totalDrops,
		Datasets:  make([]DatasetLoad, 0, len(r.datasets)),
	}
	if !r.lastRunAt.IsZero() {
		at := r.lastRunAt
		snap.LastRunAt = &at
	}
	for _, kind := range types.AllDatasets {
		if load, ok := r.datasets[kind]; ok {
			snap.Datasets = append(snap.Datasets, load)
		}
	}
	if r.lastRun != nil {
		cp := copyDiagnostics(*r.lastRun)
		snap.LastRun = &cp
	}
	return snap
}

// Runs returns the number of completed runs.
func (r *RunStats) Runs() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.runs
}

func copyDiagnostics(diag pipeline.Diagnostics) pipeline.Diagnostics {
	cp := diag
	cp.StageDurations = make(map[string]time.Duration, len(diag.StageDurations))
	for stage, d := range diag.StageDurations {
		cp.StageDurations[stage] = d
	}
	return cp
}
