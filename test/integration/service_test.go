package integration

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apihttp "github.com/seismetry/seismetry/internal/api/http"
	"github.com/seismetry/seismetry/internal/app"
	"github.com/seismetry/seismetry/internal/config"
	"github.com/seismetry/seismetry/internal/observability"
)

func setupService(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Report.Charts = true
	cfg.Resolve()

	stats := observability.NewRunStats()
	notifier := app.NewNotifier(16)
	session := app.NewSession(cfg, stats, notifier)

	server := httptest.NewServer(apihttp.NewRouter(apihttp.RouterConfig{
		Session:        session,
		Notifier:       notifier,
		Stats:          stats,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}))
	t.Cleanup(server.Close)
	return server
}

func postCSV(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "text/csv", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	resp.Body.Close()
	return resp, data
}

func getJSON(t *testing.T, url string, out interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode %s response: %v", url, err)
		}
	}
	return resp
}

// TestServiceFlow walks the interactive session end to end:
// upload three datasets → automatic run → results, charts, and stats.
func TestServiceFlow(t *testing.T) {
	server := setupService(t)

	// Results are unavailable before any data arrives.
	resp, err := http.Get(server.URL + "/v1/results/wells")
	if err != nil {
		t.Fatalf("GET results failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 before datasets, got %d", resp.StatusCode)
	}

	// Upload the three datasets; the last upload triggers the run.
	var dr apihttp.DatasetResponse
	resp, body := postCSV(t, server.URL+"/v1/datasets/events", eventsCSV)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("events upload failed: %d %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &dr); err != nil {
		t.Fatalf("failed to decode upload response: %v", err)
	}
	if dr.Rows != 6 || dr.Ran {
		t.Errorf("expected rows=6 ran=false, got rows=%d ran=%v", dr.Rows, dr.Ran)
	}

	resp, body = postCSV(t, server.URL+"/v1/datasets/wells", wellsCSV)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("wells upload failed: %d %s", resp.StatusCode, body)
	}

	resp, body = postCSV(t, server.URL+"/v1/datasets/volumes", volumesCSV)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("volumes upload failed: %d %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &dr); err != nil {
		t.Fatalf("failed to decode upload response: %v", err)
	}
	if !dr.Ran {
		t.Error("third upload should complete the set and run the analysis")
	}

	// Status reflects the completed run.
	var status app.SessionStatus
	if resp := getJSON(t, server.URL+"/v1/status", &status); resp.StatusCode != http.StatusOK {
		t.Fatalf("status request failed: %d", resp.StatusCode)
	}
	if !status.HasResult || len(status.Missing) != 0 || status.LastRunID == "" {
		t.Errorf("unexpected status after run: %+v", status)
	}

	// The wells view carries per-well totals and correlations.
	var wells apihttp.WellsResponse
	if resp := getJSON(t, server.URL+"/v1/results/wells", &wells); resp.StatusCode != http.StatusOK {
		t.Fatalf("wells request failed: %d", resp.StatusCode)
	}
	if len(wells.Wells) != 2 {
		t.Fatalf("expected 2 wells, got %d", len(wells.Wells))
	}

	// wells_final.csv is downloadable.
	resp, err = http.Get(server.URL + "/v1/results/wells.csv")
	if err != nil {
		t.Fatalf("csv download failed: %v", err)
	}
	csvBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("csv download failed: %d", resp.StatusCode)
	}
	if !strings.HasPrefix(string(csvBody), "w_id,") {
		t.Error("unexpected wells_final.csv header")
	}

	// Chart pages are rendered and served.
	resp, err = http.Get(server.URL + "/charts/")
	if err != nil {
		t.Fatalf("charts request failed: %v", err)
	}
	chartBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected chart index after run, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(chartBody), "<html") {
		t.Error("chart index is not an HTML page")
	}

	// Stats count the run and the three loads.
	var snap observability.Snapshot
	if resp := getJSON(t, server.URL+"/v1/stats", &snap); resp.StatusCode != http.StatusOK {
		t.Fatalf("stats request failed: %d", resp.StatusCode)
	}
	if snap.Runs != 1 || len(snap.Datasets) != 3 {
		t.Errorf("unexpected stats: runs=%d datasets=%d", snap.Runs, len(snap.Datasets))
	}
}

// TestServiceThresholdRerun moves the magnitude slider after a run and
// verifies the analysis reruns over the retained datasets.
func TestServiceThresholdRerun(t *testing.T) {
	server := setupService(t)

	for kind, body := range map[string]string{
		"events": eventsCSV, "wells": wellsCSV, "volumes": volumesCSV,
	} {
		resp, data := postCSV(t, server.URL+"/v1/datasets/"+kind, body)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s upload failed: %d %s", kind, resp.StatusCode, data)
		}
	}

	var before app.SessionStatus
	getJSON(t, server.URL+"/v1/status", &before)

	req, err := http.NewRequest(http.MethodPut, server.URL+"/v1/threshold",
		strings.NewReader(`{"threshold": 2.0}`))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("threshold update failed: %v", err)
	}
	var tr apihttp.ThresholdResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		t.Fatalf("failed to decode threshold response: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !tr.Ran {
		t.Fatalf("expected rerun on threshold change: %d ran=%v", resp.StatusCode, tr.Ran)
	}

	var after app.SessionStatus
	getJSON(t, server.URL+"/v1/status", &after)
	if after.LastRunID == before.LastRunID {
		t.Error("threshold change should produce a new run ID")
	}
}

// TestServiceRejectsBadUpload verifies a malformed dataset is rejected
// and the previous state survives.
func TestServiceRejectsBadUpload(t *testing.T) {
	server := setupService(t)

	resp, _ := postCSV(t, server.URL+"/v1/datasets/events", eventsCSV)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("events upload failed: %d", resp.StatusCode)
	}

	// Missing required columns.
	resp, body := postCSV(t, server.URL+"/v1/datasets/events", "Date,Easting[m]\n2019-01-03,1\n")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed upload, got %d: %s", resp.StatusCode, body)
	}
	var er apihttp.ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if er.Code == "" || er.RequestID == "" {
		t.Errorf("error response should carry code and request_id: %+v", er)
	}

	// The earlier good upload is still loaded.
	var status app.SessionStatus
	getJSON(t, server.URL+"/v1/status", &status)
	if status.Datasets["events"] != 6 {
		t.Errorf("previous events dataset should survive, got %d rows", status.Datasets["events"])
	}
}
