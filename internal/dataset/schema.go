// Package dataset loads the three input tables from CSV and derives the
// join keys and volume balances every downstream stage depends on.
package dataset

import (
	"fmt"

	"github.com/seismetry/seismetry/pkg/types"
)

// Column names are the header contract for the three inputs. Every stage
// refers to these constants; a rename is a one-place edit.
const (
	// Event table (microseismic catalogue)
	ColDate      = "Date"
	ColEasting   = "Easting[m]"
	ColNorthing  = "Northing[m]"
	ColDepth     = "Depth_SS[m]"
	ColMagnitude = "Moment Magnitude"

	// Well table (locations)
	ColName = "Name"
	ColType = "Type"
	ColX    = "x"
	ColY    = "y"
	ColZ    = "z"

	// Volume table (monthly production and injection)
	ColHoleName       = "HOLE_NAME"
	ColStartDate      = "START_DATE"
	ColOil            = "OIL"
	ColWater          = "WATER"
	ColSteamInjection = "STEAM_INJECTION"
	ColWaterInjection = "WATER_INJECTION"
)

// DefaultFacilityPrefix is the literal removed from well names to derive
// the short well id used as the join key.
const DefaultFacilityPrefix = "PGKYP"

// HoleNameDelimiter separates the facility prefix from the well id in
// HOLE_NAME values. Exactly one occurrence is required.
const HoleNameDelimiter = "-"

// Schema is the ordered set of required columns for one dataset. Input
// files may carry extra columns; those are ignored.
type Schema struct {
	Kind    types.DatasetKind
	Columns []string
}

var (
	// EventSchema describes microseismic.csv.
	EventSchema = Schema{
		Kind:    types.DatasetEvents,
		Columns: []string{ColDate, ColEasting, ColNorthing, ColDepth, ColMagnitude},
	}

	// WellSchema describes well_locations.csv.
	WellSchema = Schema{
		Kind:    types.DatasetWells,
		Columns: []string{ColName, ColType, ColX, ColY, ColZ},
	}

	// VolumeSchema describes well_volumes.csv.
	VolumeSchema = Schema{
		Kind:    types.DatasetVolumes,
		Columns: []string{ColHoleName, ColStartDate, ColOil, ColWater, ColSteamInjection, ColWaterInjection},
	}
)

// SchemaFor returns the schema for a dataset kind.
func SchemaFor(kind types.DatasetKind) (Schema, error) {
	switch kind {
	case types.DatasetEvents:
		return EventSchema, nil
	case types.DatasetWells:
		return WellSchema, nil
	case types.DatasetVolumes:
		return VolumeSchema, nil
	}
	return Schema{}, fmt.Errorf("dataset: %w: %q", types.ErrUnknownDataset, kind)
}
