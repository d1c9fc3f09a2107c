package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/seismetry/seismetry/internal/app"
)

// StreamHandler serves GET /v1/events/stream as server-sent events.
// Each session event (dataset loaded, threshold changed, run completed
// or failed) is one SSE message with a JSON body.
type StreamHandler struct {
	notifier *app.Notifier

	// heartbeat keeps idle connections alive through proxies.
	heartbeat time.Duration
}

// NewStreamHandler creates an event stream handler.
func NewStreamHandler(notifier *app.Notifier) *StreamHandler {
	return &StreamHandler{
		notifier:  notifier,
		heartbeat: 15 * time.Second,
	}
}

// ServeHTTP streams session events until the client disconnects.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported", requestID)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := h.notifier.SubscribeAutoID()
	defer h.notifier.Unsubscribe(sub.ID)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case ev, ok := <-sub.Ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()

		case <-ticker.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}
