package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/seismetry/seismetry/internal/errors"
	"github.com/seismetry/seismetry/pkg/types"
)

// timeLayouts are the timestamp formats accepted in date columns, tried
// in order.
var timeLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// header maps schema columns to their positions in the input file.
type header struct {
	index map[string]int
}

func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	return cr
}

// readHeader consumes the header row and resolves the schema's columns.
// Extra columns are tolerated; a missing required column aborts the load.
func readHeader(cr *csv.Reader, schema Schema) (*header, error) {
	row, err := cr.Read()
	if err == io.EOF {
		return nil, errors.NewParseError(errors.CodeBadHeader,
			fmt.Sprintf("%s: input is empty, expected a header row", schema.Kind))
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCategoryParse, errors.CodeBadHeader,
			fmt.Sprintf("%s: cannot read header row", schema.Kind), err)
	}

	h := &header{index: make(map[string]int, len(row))}
	for i, name := range row {
		if _, dup := h.index[name]; !dup {
			h.index[name] = i
		}
	}

	for _, col := range schema.Columns {
		if _, ok := h.index[col]; !ok {
			return nil, errors.NewParseError(errors.CodeMissingColumn,
				fmt.Sprintf("%s: required column %q not found in header", schema.Kind, col)).
				WithDetails(map[string]interface{}{"column": col, "dataset": string(schema.Kind)})
		}
	}
	return h, nil
}

// cell returns the raw value of a column in a record. The csv reader
// enforces a uniform field count, so the position is always in range for
// records it yields.
func (h *header) cell(record []string, col string) string {
	return record[h.index[col]]
}

func (h *header) float(record []string, col string, rowNum int, kind types.DatasetKind) (float64, error) {
	raw := h.cell(record, col)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.NewParseError(errors.CodeBadField,
			fmt.Sprintf("%s: row %d, column %q: cannot parse %q as a number", kind, rowNum, col, raw))
	}
	return v, nil
}

func (h *header) timestamp(record []string, col string, rowNum int, kind types.DatasetKind) (time.Time, error) {
	raw := h.cell(record, col)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.NewParseError(errors.CodeBadField,
		fmt.Sprintf("%s: row %d, column %q: cannot parse %q as a timestamp", kind, rowNum, col, raw))
}

func wrapRowError(err error, rowNum int, kind types.DatasetKind) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(errors.ErrCategoryParse, errors.CodeMalformedRow,
		fmt.Sprintf("%s: row %d is malformed", kind, rowNum), err)
}

// ParseEvents parses the microseismic catalogue. Derived fields (Month)
// are not filled; see NormalizeEvents.
func ParseEvents(r io.Reader) ([]types.SeismicEvent, error) {
	cr := newCSVReader(r)
	h, err := readHeader(cr, EventSchema)
	if err != nil {
		return nil, err
	}

	var events []types.SeismicEvent
	for rowNum := 1; ; rowNum++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wrapRowError(err, rowNum, types.DatasetEvents)
		}

		var ev types.SeismicEvent
		if ev.Date, err = h.timestamp(record, ColDate, rowNum, types.DatasetEvents); err != nil {
			return nil, err
		}
		if ev.Easting, err = h.float(record, ColEasting, rowNum, types.DatasetEvents); err != nil {
			return nil, err
		}
		if ev.Northing, err = h.float(record, ColNorthing, rowNum, types.DatasetEvents); err != nil {
			return nil, err
		}
		if ev.Depth, err = h.float(record, ColDepth, rowNum, types.DatasetEvents); err != nil {
			return nil, err
		}
		if ev.Magnitude, err = h.float(record, ColMagnitude, rowNum, types.DatasetEvents); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// ParseWells parses the well-location table. WellID is not derived here;
// see NormalizeWells.
func ParseWells(r io.Reader) ([]types.Well, error) {
	cr := newCSVReader(r)
	h, err := readHeader(cr, WellSchema)
	if err != nil {
		return nil, err
	}

	var wells []types.Well
	for rowNum := 1; ; rowNum++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wrapRowError(err, rowNum, types.DatasetWells)
		}

		w := types.Well{
			Name: h.cell(record, ColName),
			Type: h.cell(record, ColType),
		}
		if w.X, err = h.float(record, ColX, rowNum, types.DatasetWells); err != nil {
			return nil, err
		}
		if w.Y, err = h.float(record, ColY, rowNum, types.DatasetWells); err != nil {
			return nil, err
		}
		if w.Z, err = h.float(record, ColZ, rowNum, types.DatasetWells); err != nil {
			return nil, err
		}
		wells = append(wells, w)
	}
	return wells, nil
}

// ParseVolumes parses the monthly volume table. Derived fields (WellID,
// Month, balances) are not filled; see NormalizeVolumes.
func ParseVolumes(r io.Reader) ([]types.VolumeRecord, error) {
	cr := newCSVReader(r)
	h, err := readHeader(cr, VolumeSchema)
	if err != nil {
		return nil, err
	}

	var records []types.VolumeRecord
	for rowNum := 1; ; rowNum++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wrapRowError(err, rowNum, types.DatasetVolumes)
		}

		v := types.VolumeRecord{
			HoleName: h.cell(record, ColHoleName),
		}
		if v.StartDate, err = h.timestamp(record, ColStartDate, rowNum, types.DatasetVolumes); err != nil {
			return nil, err
		}
		if v.Oil, err = h.float(record, ColOil, rowNum, types.DatasetVolumes); err != nil {
			return nil, err
		}
		if v.Water, err = h.float(record, ColWater, rowNum, types.DatasetVolumes); err != nil {
			return nil, err
		}
		if v.SteamInjection, err = h.float(record, ColSteamInjection, rowNum, types.DatasetVolumes); err != nil {
			return nil, err
		}
		if v.WaterInjection, err = h.float(record, ColWaterInjection, rowNum, types.DatasetVolumes); err != nil {
			return nil, err
		}
		records = append(records, v)
	}
	return records, nil
}
