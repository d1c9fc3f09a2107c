// Package report turns a pipeline result into publishable artifacts:
// the wells_final.csv table, the intermediate CSV exports, and the HTML
// chart pages.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/seismetry/seismetry/internal/aggregate"
	"github.com/seismetry/seismetry/internal/correlate"
	"github.com/seismetry/seismetry/internal/errors"
	"github.com/seismetry/seismetry/pkg/types"
)

// WellsFinalHeader is the column contract of wells_final.csv.
var WellsFinalHeader = []string{
	"w_id", "Name", "Type", "x", "y", "z",
	"OIL", "WATER", "STEAM_INJECTION", "WATER_INJECTION",
	"INJECTED", "PRODUCED", "TOTAL", "Correlation",
}

// formatFloat renders a float with enough precision that re-reading the
// CSV reproduces the value. NaN (null) renders as an empty cell.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteWellsFinal writes the final per-well table, header included.
func WriteWellsFinal(w io.Writer, summaries []types.WellSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(WellsFinalHeader); err != nil {
		return errors.NewReportError(errors.CodeExportFailed, "failed to write wells_final header", err)
	}
	for _, s := range summaries {
		row := []string{
			s.WellID, s.Name, s.Type,
			formatFloat(s.X), formatFloat(s.Y), formatFloat(s.Z),
			formatFloat(s.Oil), formatFloat(s.Water),
			formatFloat(s.SteamInjection), formatFloat(s.WaterInjection),
			formatFloat(s.Injected), formatFloat(s.Produced), formatFloat(s.Total),
			formatFloat(s.Correlation),
		}
		if err := cw.Write(row); err != nil {
			return errors.NewReportError(errors.CodeExportFailed, "failed to write wells_final row", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.NewReportError(errors.CodeExportFailed, "failed to flush wells_final", err)
	}
	return nil
}

// ReadWellsFinal parses a wells_final.csv produced by WriteWellsFinal.
// Empty correlation cells come back as NaN.
func ReadWellsFinal(r io.Reader) ([]types.WellSummary, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, errors.NewParseError(errors.CodeBadHeader, "wells_final: cannot read header row")
	}
	if len(header) != len(WellsFinalHeader) {
		return nil, errors.NewParseError(errors.CodeBadHeader,
			fmt.Sprintf("wells_final: expected %d columns, got %d", len(WellsFinalHeader), len(header)))
	}

	var summaries []types.WellSummary
	for rowNum := 1; ; rowNum++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCategoryParse, errors.CodeMalformedRow,
				fmt.Sprintf("wells_final: row %d is malformed", rowNum), err)
		}

		s := types.WellSummary{WellID: record[0], Name: record[1], Type: record[2]}
		floats := []*float64{
			&s.X, &s.Y, &s.Z,
			&s.Oil, &s.Water, &s.SteamInjection, &s.WaterInjection,
			&s.Injected, &s.Produced, &s.Total, &s.Correlation,
		}
		for i, dst := range floats {
			*dst, err = parseCell(record[3+i], rowNum)
			if err != nil {
				return nil, err
			}
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

func parseCell(raw string, rowNum int) (float64, error) {
	if raw == "" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.NewParseError(errors.CodeBadField,
			fmt.Sprintf("wells_final: row %d: cannot parse %q as a number", rowNum, raw))
	}
	return v, nil
}

// WriteMonthlyCounts exports the monthly event counts.
func WriteMonthlyCounts(w io.Writer, counts []types.MonthlyEventCount) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"month", "Events"}); err != nil {
		return errors.NewReportError(errors.CodeExportFailed, "failed to write monthly counts header", err)
	}
	for _, c := range counts {
		if err := cw.Write([]string{c.Month.String(), strconv.FormatInt(c.Count, 10)}); err != nil {
			return errors.NewReportError(errors.CodeExportFailed, "failed to write monthly counts row", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFieldwideVolumes exports the field-wide monthly sums.
func WriteFieldwideVolumes(w io.Writer, volumes []types.FieldwideVolume) error {
	cw := csv.NewWriter(w)
	header := []string{"month", "OIL", "WATER", "STEAM_INJECTION", "WATER_INJECTION", "INJECTED", "PRODUCED", "TOTAL"}
	if err := cw.Write(header); err != nil {
		return errors.NewReportError(errors.CodeExportFailed, "failed to write fieldwide header", err)
	}
	for _, f := range volumes {
		row := []string{
			f.Month.String(),
			formatFloat(f.Oil), formatFloat(f.Water),
			formatFloat(f.SteamInjection), formatFloat(f.WaterInjection),
			formatFloat(f.Injected), formatFloat(f.Produced), formatFloat(f.Total),
		}
		if err := cw.Write(row); err != nil {
			return errors.NewReportError(errors.CodeExportFailed, "failed to write fieldwide row", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMergedMonthly exports the month-aligned correlation input: one
// column per well plus the event-count column.
func WriteMergedMonthly(w io.Writer, merged *aggregate.MergedMonthly) error {
	cw := csv.NewWriter(w)
	header := append([]string{"month"}, merged.Columns()...)
	if err := cw.Write(header); err != nil {
		return errors.NewReportError(errors.CodeExportFailed, "failed to write merged monthly header", err)
	}
	for i, month := range merged.Months {
		row := make([]string, 0, len(header))
		row = append(row, month.String())
		for _, v := range merged.Totals[i] {
			row = append(row, formatFloat(v))
		}
		row = append(row, formatFloat(merged.Events[i]))
		if err := cw.Write(row); err != nil {
			return errors.NewReportError(errors.CodeExportFailed, "failed to write merged monthly row", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCorrelationMatrix exports the nulled correlation matrix. The
// first column holds row names; nulled coefficients are empty cells.
func WriteCorrelationMatrix(w io.Writer, m *correlate.Matrix) error {
	cw := csv.NewWriter(w)
	header := append([]string{""}, m.Columns...)
	if err := cw.Write(header); err != nil {
		return errors.NewReportError(errors.CodeExportFailed, "failed to write matrix header", err)
	}
	for i, name := range m.Columns {
		row := make([]string, 0, len(header))
		row = append(row, name)
		for _, v := range m.Values[i] {
			row = append(row, formatFloat(v))
		}
		if err := cw.Write(row); err != nil {
			return errors.NewReportError(errors.CodeExportFailed, "failed to write matrix row", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// renderCSV runs a writer function into a byte slice.
func renderCSV(write func(io.Writer) error) ([]byte, error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
