package http

import (
	"fmt"
	"net/http"

	"github.com/seismetry/seismetry/internal/app"
	"github.com/seismetry/seismetry/internal/observability"
	"github.com/seismetry/seismetry/internal/store"
)

// RouterConfig bundles the dependencies of the HTTP API.
type RouterConfig struct {
	Session  *app.Session
	Notifier *app.Notifier
	Stats    *observability.RunStats

	// Catalog serves the published-runs listing; nil disables /v1/runs.
	Catalog store.Catalog

	// MaxUploadBytes caps dataset upload sizes.
	MaxUploadBytes int64

	// Extra middleware applied in front of the default chain, used for
	// shutdown request tracking.
	Extra []func(http.Handler) http.Handler
}

// NewRouter builds the service mux: the JSON API under /v1/, the chart
// pages under /charts/, the shell page at /, and the health check.
func NewRouter(cfg RouterConfig) http.Handler {
	chain := ChainMiddleware(append(append([]func(http.Handler) http.Handler{},
		cfg.Extra...),
		RecoveryMiddleware,
		RequestIDMiddleware,
		CorrelationIDMiddleware,
	)...)

	mux := http.NewServeMux()
	mux.Handle("/v1/datasets/", chain(NewDatasetHandler(cfg.Session, cfg.MaxUploadBytes)))
	mux.Handle("/v1/threshold", chain(NewThresholdHandler(cfg.Session)))
	mux.Handle("/v1/status", chain(NewStatusHandler(cfg.Session)))
	mux.Handle("/v1/results/", chain(NewResultsHandler(cfg.Session)))
	mux.Handle("/v1/stats", chain(NewStatsHandler(cfg.Stats)))
	mux.Handle("/v1/runs", chain(NewRunsHandler(cfg.Catalog)))
	mux.Handle("/v1/events/stream", chain(NewStreamHandler(cfg.Notifier)))
	mux.Handle("/charts/", chain(NewChartsHandler(cfg.Session)))
	mux.Handle("/", chain(NewIndexHandler()))
	mux.HandleFunc("/health", healthHandler)

	return mux
}

// healthHandler reports liveness.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"healthy","service":"seismetry"}`)
}
