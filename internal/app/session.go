package app

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seismetry/seismetry/internal/config"
	"github.com/seismetry/seismetry/internal/dataset"
	"github.com/seismetry/seismetry/internal/errors"
	"github.com/seismetry/seismetry/internal/observability"
	"github.com/seismetry/seismetry/internal/pipeline"
	"github.com/seismetry/seismetry/internal/report"
	"github.com/seismetry/seismetry/pkg/types"
)

// Session is the interactive analysis state: the three uploaded
// datasets and the magnitude threshold. Whenever all three datasets are
// present, any change reruns the pipeline and the derived result
// replaces the previous one atomically.
type Session struct {
	prefix       string
	renderCharts bool
	renderer     *report.Renderer
	stats        *observability.RunStats
	notifier     *Notifier

	mu    sync.Mutex // held for the whole load-run-swap cycle
	state sessionState
}

type sessionState struct {
	threshold float64

	parsed parsedInputs
	loaded map[types.DatasetKind]bool

	result    *pipeline.Result
	charts    map[string][]byte
	lastRunID string
	updatedAt time.Time
}

type parsedInputs struct {
	events  []types.SeismicEvent
	wells   []types.Well
	volumes []types.VolumeRecord
}

// SessionStatus is the externally visible session state.
type SessionStatus struct {
	Threshold float64                      `json:"threshold"`
	Datasets  map[types.DatasetKind]int64  `json:"datasets"`
	Missing   []types.DatasetKind          `json:"missing"`
	HasResult bool                         `json:"has_result"`
	LastRunID string                       `json:"last_run_id,omitempty"`
	UpdatedAt *time.Time                   `json:"updated_at,omitempty"`
}

// NewSession creates a session with the configured default threshold.
// The interactive service always applies the magnitude filter.
func NewSession(cfg *config.Config, stats *observability.RunStats, notifier *Notifier) *Session {
	s := &Session{
		prefix:       cfg.Analysis.FacilityPrefix,
		renderCharts: cfg.Report.Charts,
		renderer:     report.NewRenderer(cfg.Report.ChartWorkers),
		stats:        stats,
		notifier:     notifier,
		state: sessionState{
			threshold: cfg.Analysis.MinMagnitude,
			loaded:    make(map[types.DatasetKind]bool),
		},
	}
	return s
}

// SetDataset replaces one dataset from raw CSV bytes. A parse failure
// leaves the previous dataset in place. When all three datasets are
// present the pipeline reruns before SetDataset returns.
func (s *Session) SetDataset(ctx context.Context, kind types.DatasetKind, data []byte) (int64, bool, error) {
	if !kind.Valid() {
		return 0, false, errors.NewValidationError(errors.CodeMissingDataset,
			fmt.Sprintf("unknown dataset %q", kind))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var rows int64
	switch kind {
	case types.DatasetEvents:
		events, err := dataset.LoadEvents(bytes.NewReader(data))
		if err != nil {
			return 0, false, err
		}
		s.state.parsed.events = events
		rows = int64(len(events))
	case types.DatasetWells:
		wells, err := dataset.LoadWells(bytes.NewReader(data), s.prefix)
		if err != nil {
			return 0, false, err
		}
		s.state.parsed.wells = wells
		rows = int64(len(wells))
	case types.DatasetVolumes:
		volumes, err := dataset.LoadVolumes(bytes.NewReader(data))
		if err != nil {
			return 0, false, err
		}
		s.state.parsed.volumes = volumes
		rows = int64(len(volumes))
	}

	s.state.loaded[kind] = true
	s.stats.RecordLoad(kind, rows)
	s.notifier.Publish(Event{Type: EventDatasetLoaded, Dataset: kind, Rows: rows})
	log.Printf("app: session loaded %s (%d rows)", kind, rows)

	ran, err := s.rerunLocked(ctx)
	return rows, ran, err
}

// SetThreshold updates the magnitude threshold and, if all datasets are
// present, reruns the pipeline.
func (s *Session) SetThreshold(ctx context.Context, threshold float64) (bool, error) {
	if threshold < 0 || threshold > 3 {
		return false, errors.NewValidationError(errors.CodeInvalidThreshold,
			fmt.Sprintf("threshold must be between 0 and 3, got %g", threshold))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.threshold = threshold
	s.notifier.Publish(Event{Type: EventThresholdChanged, Threshold: threshold})
	return s.rerunLocked(ctx)
}

// rerunLocked runs the pipeline if all three datasets are present.
// Callers hold the session.
func (s *Session) rerunLocked(ctx context.Context) (bool, error) {
	for _, kind := range types.AllDatasets {
		if !s.state.loaded[kind] {
			return false, nil
		}
	}

	opts := pipeline.Options{
		MinMagnitude:         s.state.threshold,
		ApplyMagnitudeFilter: true,
	}
	in := pipeline.Inputs{
		Events:  s.state.parsed.events,
		Wells:   s.state.parsed.wells,
		Volumes: s.state.parsed.volumes,
	}

	res, err := pipeline.Run(ctx, in, opts)
	if err != nil {
		s.stats.RecordError(err)
		s.notifier.Publish(Event{Type: EventRunFailed, Error: err.Error()})
		return false, err
	}

	var charts map[string][]byte
	if s.renderCharts {
		charts, err = s.renderer.RenderAll(ctx, res)
		if err != nil {
			s.stats.RecordError(err)
			s.notifier.Publish(Event{Type: EventRunFailed, Error: err.Error()})
			return false, err
		}
	}

	runID := uuid.NewString()
	s.state.result = res
	s.state.charts = charts
	s.state.lastRunID = runID
	s.state.updatedAt = time.Now()

	s.stats.RecordRun(runID, res.Diagnostics)
	s.notifier.Publish(Event{Type: EventRunCompleted, RunID: runID, Threshold: s.state.threshold})
	return true, nil
}

// Status returns the current session state.
func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := SessionStatus{
		Threshold: s.state.threshold,
		Datasets:  make(map[types.DatasetKind]int64),
		HasResult: s.state.result != nil,
		LastRunID: s.state.lastRunID,
	}
	for _, kind := range types.AllDatasets {
		if !s.state.loaded[kind] {
			status.Missing = append(status.Missing, kind)
		}
	}
	for kind, loaded := range s.state.loaded {
		if !loaded {
			continue
		}
		switch kind {
		case types.DatasetEvents:
			status.Datasets[kind] = int64(len(s.state.parsed.events))
		case types.DatasetWells:
			status.Datasets[kind] = int64(len(s.state.parsed.wells))
		case types.DatasetVolumes:
			status.Datasets[kind] = int64(len(s.state.parsed.volumes))
		}
	}
	if !s.state.updatedAt.IsZero() {
		at := s.state.updatedAt
		status.UpdatedAt = &at
	}
	return status
}

// Threshold returns the current magnitude threshold.
func (s *Session) Threshold() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.threshold
}

// Result returns the latest pipeline result, or nil before the first
// complete run. The result is never mutated after the swap, so callers
// may read it without further locking.
func (s *Session) Result() *pipeline.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.result
}

// Chart returns one rendered chart page from the latest run.
func (s *Session) Chart(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.state.charts[name]
	return data, ok
}
