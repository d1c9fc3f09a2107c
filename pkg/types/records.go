// Package types provides core data types shared across Seismetry.
package types

import "time"

// SeismicEvent is a single detected event from the microseismic catalogue.
type SeismicEvent struct {
	// Date is the detection timestamp as given in the catalogue.
	Date time.Time `json:"date"`

	// Easting, Northing, and Depth locate the event in metres.
	Easting  float64 `json:"easting"`
	Northing float64 `json:"northing"`
	Depth    float64 `json:"depth"`

	// Magnitude is the moment magnitude of the event.
	Magnitude float64 `json:"magnitude"`

	// Month is the calendar month derived from Date.
	Month MonthKey `json:"month"`
}

// Well is one surveyed well location.
type Well struct {
	// Name is the full facility name, e.g. "PGKYP01".
	Name string `json:"name"`

	// Type tags the well's role (producer, injector, observation, ...).
	// The set is small but not enforced as an enum.
	Type string `json:"type"`

	// X, Y, Z locate the wellhead in metres.
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`

	// WellID is Name with the facility prefix removed. It is the join key
	// against volume records and may be empty if Name is only the prefix.
	WellID string `json:"w_id"`
}

// VolumeRecord is one (well, month) row of measured production and
// injection volumes.
type VolumeRecord struct {
	// HoleName is the raw well reference in "<prefix>-<well_id>" form.
	HoleName string `json:"hole_name"`

	// StartDate is the first day of the reporting month.
	StartDate time.Time `json:"start_date"`

	// Measured volumes. Negative values are unexpected but not rejected.
	Oil            float64 `json:"oil"`
	Water          float64 `json:"water"`
	SteamInjection float64 `json:"steam_injection"`
	WaterInjection float64 `json:"water_injection"`

	// WellID is the part of HoleName after the delimiter.
	WellID string `json:"w_id"`

	// Month is the calendar month derived from StartDate.
	Month MonthKey `json:"month"`

	// Derived balances: Injected = SteamInjection + WaterInjection,
	// Produced = Oil + Water, Total = Produced - Injected.
	Injected float64 `json:"injected"`
	Produced float64 `json:"produced"`
	Total    float64 `json:"total"`
}

// DeriveBalances fills the Injected, Produced, and Total fields from the
// measured volumes.
func (r *VolumeRecord) DeriveBalances() {
	r.Injected = r.SteamInjection + r.WaterInjection
	r.Produced = r.Oil + r.Water
	r.Total = r.Produced - r.Injected
}

// MonthlyEventCount is the number of events detected in one month.
// Months with no events are absent rather than present with a zero count.
type MonthlyEventCount struct {
	Month MonthKey `json:"month"`
	Count int64    `json:"events"`
}

// VolumeSums accumulates the numeric volume columns over a group of
// records. Embedded by the fieldwide and per-well aggregates.
type VolumeSums struct {
	Oil            float64 `json:"oil"`
	Water          float64 `json:"water"`
	SteamInjection float64 `json:"steam_injection"`
	WaterInjection float64 `json:"water_injection"`
	Injected       float64 `json:"injected"`
	Produced       float64 `json:"produced"`
	Total          float64 `json:"total"`
}

// Add accumulates one record into the sums.
func (s *VolumeSums) Add(r VolumeRecord) {
	s.Oil += r.Oil
	s.Water += r.Water
	s.SteamInjection += r.SteamInjection
	s.WaterInjection += r.WaterInjection
	s.Injected += r.Injected
	s.Produced += r.Produced
	s.Total += r.Total
}

// FieldwideVolume is the field-wide sum of all volume columns for one
// month, ignoring per-well identity.
type FieldwideVolume struct {
	Month MonthKey `json:"month"`
	VolumeSums
}

// WellTotals is the lifetime sum of all volume columns for one well.
type WellTotals struct {
	WellID string `json:"w_id"`
	VolumeSums
}

// CorrelationResult is the Pearson coefficient between one well's monthly
// total-volume series and the monthly event-count series. A NaN
// coefficient means null: either the value was exactly 1 (a
// self-correlation artifact) or the series had no variance.
type CorrelationResult struct {
	WellID      string  `json:"w_id"`
	Coefficient float64 `json:"correlation"`
}

// WellSummary is one row of the final per-well table: location and type,
// lifetime volume sums, and the event correlation. Correlation is NaN
// when null (no matching series, or nulled as a self-correlation).
type WellSummary struct {
	WellID string `json:"w_id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	VolumeSums
	Correlation float64 `json:"correlation"`
}
