package http

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/seismetry/seismetry/internal/app"
	"github.com/seismetry/seismetry/internal/pipeline"
	"github.com/seismetry/seismetry/internal/report"
	"github.com/seismetry/seismetry/pkg/types"
)

// ResultsHandler serves the derived tables of the latest session run
// under /v1/results/. Null correlations become JSON null.
type ResultsHandler struct {
	session *app.Session
}

// NewResultsHandler creates a results handler.
func NewResultsHandler(session *app.Session) *ResultsHandler {
	return &ResultsHandler{session: session}
}

// WellRow is one row of the wells view. Correlation is nil when null.
type WellRow struct {
	WellID         string   `json:"w_id"`
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	X              float64  `json:"x"`
	Y              float64  `json:"y"`
	Z              float64  `json:"z"`
	Oil            float64  `json:"oil"`
	Water          float64  `json:"water"`
	SteamInjection float64  `json:"steam_injection"`
	WaterInjection float64  `json:"water_injection"`
	Injected       float64  `json:"injected"`
	Produced       float64  `json:"produced"`
	Total          float64  `json:"total"`
	Correlation    *float64 `json:"correlation"`
}

// WellsResponse is the /v1/results/wells payload.
type WellsResponse struct {
	Wells     []WellRow `json:"wells"`
	RequestID string    `json:"request_id"`
}

// MonthlyResponse is the /v1/results/monthly payload.
type MonthlyResponse struct {
	Counts    []types.MonthlyEventCount `json:"counts"`
	Fieldwide []types.FieldwideVolume   `json:"fieldwide"`
	RequestID string                    `json:"request_id"`
}

// MatrixResponse is the /v1/results/matrix payload. Nulled coefficients
// are JSON null.
type MatrixResponse struct {
	Columns   []string     `json:"columns"`
	Values    [][]*float64 `json:"values"`
	RequestID string       `json:"request_id"`
}

// ServeHTTP routes the results views.
func (h *ResultsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
		return
	}

	res := h.session.Result()
	if res == nil {
		status := h.session.Status()
		writeError(w, http.StatusConflict,
			fmt.Sprintf("no result yet: waiting for datasets %v", status.Missing), requestID)
		return
	}

	view := strings.TrimPrefix(r.URL.Path, "/v1/results/")
	switch view {
	case "wells":
		writeJSON(w, http.StatusOK, WellsResponse{
			Wells:     wellRows(res),
			RequestID: requestID,
		})

	case "wells.csv":
		var buf bytes.Buffer
		if err := report.WriteWellsFinal(&buf, res.Summaries); err != nil {
			writeDomainError(w, err, requestID)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="wells_final.csv"`)
		w.Write(buf.Bytes())

	case "monthly":
		writeJSON(w, http.StatusOK, MonthlyResponse{
			Counts:    res.Counts,
			Fieldwide: res.Fieldwide,
			RequestID: requestID,
		})

	case "matrix":
		writeJSON(w, http.StatusOK, MatrixResponse{
			Columns:   res.Matrix.Columns,
			Values:    nullableMatrix(res.Matrix.Values),
			RequestID: requestID,
		})

	default:
		writeError(w, http.StatusNotFound,
			fmt.Sprintf("unknown results view %q (want wells, wells.csv, monthly, or matrix)", view), requestID)
	}
}

func wellRows(res *pipeline.Result) []WellRow {
	rows := make([]WellRow, 0, len(res.Summaries))
	for _, s := range res.Summaries {
		rows = append(rows, WellRow{
			WellID:         s.WellID,
			Name:           s.Name,
			Type:           s.Type,
			X:              s.X,
			Y:              s.Y,
			Z:              s.Z,
			Oil:            s.Oil,
			Water:          s.Water,
			SteamInjection: s.SteamInjection,
			WaterInjection: s.WaterInjection,
			Injected:       s.Injected,
			Produced:       s.Produced,
			Total:          s.Total,
			Correlation:    nullableFloat(s.Correlation),
		})
	}
	return rows
}

func nullableMatrix(values [][]float64) [][]*float64 {
	out := make([][]*float64, len(values))
	for i, row := range values {
		out[i] = make([]*float64, len(row))
		for j, v := range row {
			out[i][j] = nullableFloat(v)
		}
	}
	return out
}

// nullableFloat maps NaN (the in-memory null) to a nil pointer so the
// JSON encoder emits null instead of failing.
func nullableFloat(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
