package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/seismetry/seismetry/internal/observability"
	"github.com/seismetry/seismetry/internal/store"
)

// StatsHandler serves GET /v1/stats: run counters, dataset loads, and
// the last run's diagnostics.
type StatsHandler struct {
	stats *observability.RunStats
}

// NewStatsHandler creates a stats handler.
func NewStatsHandler(stats *observability.RunStats) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// ServeHTTP handles the stats request.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
		return
	}

	writeJSON(w, http.StatusOK, h.stats.GetSnapshot())
}

// RunsHandler serves GET /v1/runs: the published runs catalog, newest
// first.
type RunsHandler struct {
	catalog store.Catalog
}

// NewRunsHandler creates a runs handler.
func NewRunsHandler(catalog store.Catalog) *RunsHandler {
	return &RunsHandler{catalog: catalog}
}

// RunEntry is one catalog row in the runs listing.
type RunEntry struct {
	RunID          string  `json:"run_id"`
	MinMagnitude   float64 `json:"min_magnitude"`
	FilterApplied  bool    `json:"filter_applied"`
	EventRows      int64   `json:"event_rows"`
	WellRows       int64   `json:"well_rows"`
	VolumeRows     int64   `json:"volume_rows"`
	SummaryRows    int64   `json:"summary_rows"`
	MergedMonths   int64   `json:"merged_months"`
	ArtifactPrefix string  `json:"artifact_prefix"`
	CreatedAt      string  `json:"created_at"`
}

// RunsResponse is the /v1/runs payload.
type RunsResponse struct {
	Runs      []RunEntry `json:"runs"`
	RequestID string     `json:"request_id"`
}

// ServeHTTP handles the runs listing.
func (h *RunsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
		return
	}
	if h.catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "runs catalog not available", requestID)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	recs, err := h.catalog.ListRuns(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err, requestID)
		return
	}

	resp := RunsResponse{Runs: make([]RunEntry, 0, len(recs)), RequestID: requestID}
	for _, rec := range recs {
		resp.Runs = append(resp.Runs, RunEntry{
			RunID:          rec.RunID,
			MinMagnitude:   rec.MinMagnitude,
			FilterApplied:  rec.FilterApplied,
			EventRows:      rec.EventRows,
			WellRows:       rec.WellRows,
			VolumeRows:     rec.VolumeRows,
			SummaryRows:    rec.SummaryRows,
			MergedMonths:   rec.MergedMonths,
			ArtifactPrefix: rec.ArtifactPrefix,
			CreatedAt:      rec.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
