package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/seismetry/seismetry/internal/app"
	"github.com/seismetry/seismetry/pkg/types"
)

// DatasetHandler handles POST /v1/datasets/{kind} uploads: the request
// body is the raw CSV for one of the three datasets.
type DatasetHandler struct {
	session   *app.Session
	maxUpload int64
}

// NewDatasetHandler creates a dataset upload handler.
func NewDatasetHandler(session *app.Session, maxUpload int64) *DatasetHandler {
	return &DatasetHandler{session: session, maxUpload: maxUpload}
}

// DatasetResponse reports an accepted upload.
type DatasetResponse struct {
	Dataset   types.DatasetKind `json:"dataset"`
	Rows      int64             `json:"rows"`
	Ran       bool              `json:"ran"`
	RequestID string            `json:"request_id"`
}

// ServeHTTP handles the dataset upload request.
func (h *DatasetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
		return
	}

	kind := types.DatasetKind(strings.TrimPrefix(r.URL.Path, "/v1/datasets/"))
	if !kind.Valid() {
		writeError(w, http.StatusNotFound,
			fmt.Sprintf("unknown dataset %q (want events, wells, or volumes)", kind), requestID)
		return
	}

	body := http.MaxBytesReader(w, r.Body, h.maxUpload)
	data, err := io.ReadAll(body)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("upload exceeds %d bytes", h.maxUpload), requestID)
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty request body", requestID)
		return
	}

	rows, ran, err := h.session.SetDataset(r.Context(), kind, data)
	if err != nil {
		writeDomainError(w, err, requestID)
		return
	}

	writeJSON(w, http.StatusOK, DatasetResponse{
		Dataset:   kind,
		Rows:      rows,
		Ran:       ran,
		RequestID: requestID,
	})
}

// ThresholdHandler handles GET and PUT /v1/threshold.
type ThresholdHandler struct {
	session *app.Session
}

// NewThresholdHandler creates a threshold handler.
func NewThresholdHandler(session *app.Session) *ThresholdHandler {
	return &ThresholdHandler{session: session}
}

// ThresholdRequest is the PUT body.
type ThresholdRequest struct {
	Threshold float64 `json:"threshold"`
}

// ThresholdResponse reports the threshold after an update.
type ThresholdResponse struct {
	Threshold float64 `json:"threshold"`
	Ran       bool    `json:"ran"`
	RequestID string  `json:"request_id"`
}

// ServeHTTP handles threshold requests.
func (h *ThresholdHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, ThresholdResponse{
			Threshold: h.session.Threshold(),
			RequestID: requestID,
		})

	case http.MethodPut:
		var req ThresholdRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), requestID)
			return
		}

		ran, err := h.session.SetThreshold(r.Context(), req.Threshold)
		if err != nil {
			writeDomainError(w, err, requestID)
			return
		}

		writeJSON(w, http.StatusOK, ThresholdResponse{
			Threshold: req.Threshold,
			Ran:       ran,
			RequestID: requestID,
		})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
	}
}

// StatusHandler handles GET /v1/status.
type StatusHandler struct {
	session *app.Session
}

// NewStatusHandler creates a status handler.
func NewStatusHandler(session *app.Session) *StatusHandler {
	return &StatusHandler{session: session}
}

// ServeHTTP handles the status request.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
		return
	}

	writeJSON(w, http.StatusOK, h.session.Status())
}
