package http

import (
	"net/http"
	"strings"

	"github.com/seismetry/seismetry/internal/app"
	"github.com/seismetry/seismetry/internal/report"
)

// ChartsHandler serves the rendered chart pages of the latest session
// run under /charts/.
type ChartsHandler struct {
	session *app.Session
}

// NewChartsHandler creates a charts handler.
func NewChartsHandler(session *app.Session) *ChartsHandler {
	return &ChartsHandler{session: session}
}

// ServeHTTP serves one chart page; /charts/ redirects to the index page.
func (h *ChartsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/charts/")
	if name == "" {
		name = report.ChartIndex
	}

	data, ok := h.session.Chart(name)
	if !ok {
		writeError(w, http.StatusNotFound, "chart not available: run the analysis first", requestID)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// IndexHandler serves the interactive shell page at /: upload controls
// for the three datasets, the magnitude slider, and a live event log
// fed by the SSE stream.
type IndexHandler struct{}

// NewIndexHandler creates the shell page handler.
func NewIndexHandler() *IndexHandler {
	return &IndexHandler{}
}

// ServeHTTP serves the shell page.
func (h *IndexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found", GetRequestID(r.Context()))
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexPage))
}

const indexPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Seismetry</title>
<style>
body { font-family: sans-serif; margin: 2em auto; max-width: 48em; }
fieldset { margin-bottom: 1em; }
#log { font-family: monospace; font-size: 0.85em; white-space: pre-wrap;
       border: 1px solid #ccc; padding: 0.5em; height: 12em; overflow-y: scroll; }
</style>
</head>
<body>
<h1>Seismetry</h1>
<fieldset>
<legend>Datasets</legend>
<label>Events <input type="file" id="events"></label>
<label>Wells <input type="file" id="wells"></label>
<label>Volumes <input type="file" id="volumes"></label>
</fieldset>
<fieldset>
<legend>Magnitude threshold</legend>
<input type="range" id="threshold" min="0" max="3" step="0.1" value="1.0">
<span id="threshold-value">1.0</span>
</fieldset>
<p>
<a href="/charts/">Charts</a> &middot;
<a href="/v1/results/wells.csv">wells_final.csv</a> &middot;
<a href="/v1/status">Status</a>
</p>
<div id="log"></div>
<script>
const log = msg => {
  const el = document.getElementById('log');
  el.textContent += msg + '\n';
  el.scrollTop = el.scrollHeight;
};

for (const kind of ['events', 'wells', 'volumes']) {
  document.getElementById(kind).addEventListener('change', async ev => {
    const file = ev.target.files[0];
    if (!file) return;
    const resp = await fetch('/v1/datasets/' + kind, { method: 'POST', body: file });
    const body = await resp.json();
    log(resp.ok ? kind + ': ' + body.rows + ' rows' : kind + ': ' + body.error);
  });
}

const slider = document.getElementById('threshold');
slider.addEventListener('change', async () => {
  document.getElementById('threshold-value').textContent = slider.value;
  const resp = await fetch('/v1/threshold', {
    method: 'PUT',
    headers: { 'Content-Type': 'application/json' },
    body: JSON.stringify({ threshold: parseFloat(slider.value) })
  });
  const body = await resp.json();
  if (!resp.ok) log('threshold: ' + body.error);
});

const stream = new EventSource('/v1/events/stream');
for (const type of ['dataset_loaded', 'threshold_changed', 'run_completed', 'run_failed']) {
  stream.addEventListener(type, ev => log(type + ' ' + ev.data));
}
</script>
</body>
</html>
`
