package dataset

import (
	"fmt"
	"io"
	"strings"

	"github.com/seismetry/seismetry/internal/errors"
	"github.com/seismetry/seismetry/pkg/types"
)

// NormalizeEvents derives the calendar-month key for each event.
func NormalizeEvents(events []types.SeismicEvent) []types.SeismicEvent {
	for i := range events {
		events[i].Month = types.MonthOf(events[i].Date)
	}
	return events
}

// NormalizeWells derives WellID by removing every occurrence of the
// facility prefix from Name. A name without the prefix passes through
// unchanged; a name equal to the prefix yields an empty id. Neither is
// rejected here: join sites count ids that fail to match.
func NormalizeWells(wells []types.Well, prefix string) []types.Well {
	for i := range wells {
		wells[i].WellID = strings.ReplaceAll(wells[i].Name, prefix, "")
	}
	return wells
}

// NormalizeVolumes splits HOLE_NAME into prefix and well id, derives the
// month key, and computes the volume balances. A HOLE_NAME with zero or
// more than one delimiter is an input-format violation.
func NormalizeVolumes(records []types.VolumeRecord) ([]types.VolumeRecord, error) {
	for i := range records {
		parts := strings.Split(records[i].HoleName, HoleNameDelimiter)
		if len(parts) != 2 {
			return nil, errors.NewParseError(errors.CodeBadHoleName,
				fmt.Sprintf("%s: row %d: HOLE_NAME %q must contain exactly one %q delimiter",
					types.DatasetVolumes, i+1, records[i].HoleName, HoleNameDelimiter)).
				WithDetails(map[string]interface{}{"hole_name": records[i].HoleName})
		}
		records[i].WellID = parts[1]
		records[i].Month = types.MonthOf(records[i].StartDate)
		records[i].DeriveBalances()
	}
	return records, nil
}

// FilterByMagnitude keeps events strictly above the threshold and
// reports how many were dropped.
func FilterByMagnitude(events []types.SeismicEvent, min float64) ([]types.SeismicEvent, int64) {
	kept := events[:0:0]
	var dropped int64
	for _, ev := range events {
		if ev.Magnitude > min {
			kept = append(kept, ev)
		} else {
			dropped++
		}
	}
	return kept, dropped
}

// LoadEvents parses and normalizes the microseismic catalogue.
func LoadEvents(r io.Reader) ([]types.SeismicEvent, error) {
	events, err := ParseEvents(r)
	if err != nil {
		return nil, err
	}
	return NormalizeEvents(events), nil
}

// LoadWells parses and normalizes the well-location table.
func LoadWells(r io.Reader, prefix string) ([]types.Well, error) {
	wells, err := ParseWells(r)
	if err != nil {
		return nil, err
	}
	return NormalizeWells(wells, prefix), nil
}

// LoadVolumes parses and normalizes the monthly volume table.
func LoadVolumes(r io.Reader) ([]types.VolumeRecord, error) {
	records, err := ParseVolumes(r)
	if err != nil {
		return nil, err
	}
	return NormalizeVolumes(records)
}
