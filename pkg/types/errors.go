package types

import "errors"

var (
	// ErrInvalidMonthKey is returned when a month key string is not in
	// canonical "YYYY-MM" form.
	ErrInvalidMonthKey = errors.New("invalid month key")

	// ErrUnknownDataset is returned when a dataset kind is not one of
	// events, wells, or volumes.
	ErrUnknownDataset = errors.New("unknown dataset")
)

// DatasetKind names one of the three input datasets.
type DatasetKind string

const (
	DatasetEvents  DatasetKind = "events"
	DatasetWells   DatasetKind = "wells"
	DatasetVolumes DatasetKind = "volumes"
)

// AllDatasets lists the dataset kinds in load order.
var AllDatasets = []DatasetKind{DatasetEvents, DatasetWells, DatasetVolumes}

// Valid reports whether k names a known dataset.
func (k DatasetKind) Valid() bool {
	switch k {
	case DatasetEvents, DatasetWells, DatasetVolumes:
		return true
	}
	return false
}

// FileName returns the canonical input file name for the dataset.
func (k DatasetKind) FileName() string {
	switch k {
	case DatasetEvents:
		return "microseismic.csv"
	case DatasetWells:
		return "well_locations.csv"
	case DatasetVolumes:
		return "well_volumes.csv"
	}
	return ""
}
