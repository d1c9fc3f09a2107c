package dataset

import (
	"time"

	"github.com/seismetry/seismetry/pkg/types"
)

// Stats summarizes one loaded dataset for status displays and run
// manifests. Pointer fields are nil when the dataset is empty.
type Stats struct {
	Kind types.DatasetKind `json:"kind"`
	Rows int64             `json:"rows"`

	// Date range covered by the dataset.
	MinDate *time.Time `json:"min_date,omitempty"`
	MaxDate *time.Time `json:"max_date,omitempty"`

	// Magnitude range (events only).
	MinMagnitude *float64 `json:"min_magnitude,omitempty"`
	MaxMagnitude *float64 `json:"max_magnitude,omitempty"`

	// DistinctWells counts unique well ids (wells and volumes).
	DistinctWells int64 `json:"distinct_wells,omitempty"`

	// DistinctMonths counts unique month keys (events and volumes).
	DistinctMonths int64 `json:"distinct_months,omitempty"`
}

func (s *Stats) observeDate(t time.Time) {
	if s.MinDate == nil || t.Before(*s.MinDate) {
		d := t
		s.MinDate = &d
	}
	if s.MaxDate == nil || t.After(*s.MaxDate) {
		d := t
		s.MaxDate = &d
	}
}

func (s *Stats) observeMagnitude(m float64) {
	if s.MinMagnitude == nil || m < *s.MinMagnitude {
		v := m
		s.MinMagnitude = &v
	}
	if s.MaxMagnitude == nil || m > *s.MaxMagnitude {
		v := m
		s.MaxMagnitude = &v
	}
}

// CollectEventStats computes summary statistics for the event catalogue.
func CollectEventStats(events []types.SeismicEvent) Stats {
	stats := Stats{Kind: types.DatasetEvents, Rows: int64(len(events))}
	months := make(map[types.MonthKey]struct{})
	for _, ev := range events {
		stats.observeDate(ev.Date)
		stats.observeMagnitude(ev.Magnitude)
		if ev.Month != "" {
			months[ev.Month] = struct{}{}
		}
	}
	stats.DistinctMonths = int64(len(months))
	return stats
}

// CollectWellStats computes summary statistics for the well table.
func CollectWellStats(wells []types.Well) Stats {
	stats := Stats{Kind: types.DatasetWells, Rows: int64(len(wells))}
	ids := make(map[string]struct{})
	for _, w := range wells {
		if w.WellID != "" {
			ids[w.WellID] = struct{}{}
		}
	}
	stats.DistinctWells = int64(len(ids))
	return stats
}

// CollectVolumeStats computes summary statistics for the volume table.
func CollectVolumeStats(records []types.VolumeRecord) Stats {
	stats := Stats{Kind: types.DatasetVolumes, Rows: int64(len(records))}
	ids := make(map[string]struct{})
	months := make(map[types.MonthKey]struct{})
	for _, r := range records {
		stats.observeDate(r.StartDate)
		if r.WellID != "" {
			ids[r.WellID] = struct{}{}
		}
		if r.Month != "" {
			months[r.Month] = struct{}{}
		}
	}
	stats.DistinctWells = int64(len(ids))
	stats.DistinctMonths = int64(len(months))
	return stats
}
