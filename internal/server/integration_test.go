package server

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sceneforge/sceneforge/internal/config"
	"github.com/sceneforge/sceneforge/internal/pipeline"
)

// newTestServer wires a coordinator with no reachable backends and no job
// service, so runs resolve through the heuristic parser and the template
// catalog. The mux is wrapped in httptest.Server.
func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	cfg := config.Default()
	f := false
	cfg.Secondary.Enabled = &f
	cfg.Primary.APIKeyEnv = "SCENEFORGE_TEST_NO_SUCH_KEY"

	srv := New(Config{Addr: ":0"}, pipeline.FromConfig(cfg, nil))
	ts := httptest.NewServer(srv.httpSrv.Handler)
	t.Cleanup(func() {
		ts.Close()
		srv.Shutdown()
	})
	return srv, ts
}

func TestIntegration_HealthEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status=ok, got %v", body["status"])
	}
}

func TestIntegration_PipelineNDJSON(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/v1/pipeline", "application/json",
		strings.NewReader(`{"prompt":"make a chair"}`))
	if err != nil {
		t.Fatalf("POST /v1/pipeline: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/x-ndjson") {
		t.Fatalf("content type = %q", ct)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache" {
		t.Fatalf("cache control = %q", cc)
	}

	var types []string
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for sc.Scan() {
		var ev pipeline.Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("bad NDJSON line %q: %v", sc.Text(), err)
		}
		types = append(types, string(ev.Type))
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(types) == 0 || types[len(types)-1] != "done" {
		t.Fatalf("stream types = %v", types)
	}
	joined := strings.Join(types, ",")
	for _, want := range []string{"parsing_result", "reference_result", "generation_result", "validation_result"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("stream missing %s: %v", want, types)
		}
	}
}

func TestIntegration_PipelineMalformedBody(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/v1/pipeline", "application/json",
		strings.NewReader(`{not json`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("error body not one JSON line: %v", err)
	}
	if body["error"] == "" {
		t.Fatalf("body = %v", body)
	}
}

func TestIntegration_BackgroundRunLifecycle(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/v1/runs", "application/json",
		strings.NewReader(`{"prompt":"make a chair","run_id":"run-it-1"}`))
	if err != nil {
		t.Fatalf("POST /v1/runs: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	var accepted map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if accepted["run_id"] != "run-it-1" {
		t.Fatalf("accepted = %v", accepted)
	}

	// The run settles quickly with no reachable backends; poll the status
	// endpoint briefly.
	deadline := time.Now().Add(5 * time.Second)
	var status RunStatus
	for time.Now().Before(deadline) {
		r2, err := http.Get(ts.URL + "/v1/runs/run-it-1")
		if err != nil {
			t.Fatalf("GET run: %v", err)
		}
		err = json.NewDecoder(r2.Body).Decode(&status)
		r2.Body.Close()
		if err != nil {
			t.Fatalf("decode status: %v", err)
		}
		if status.State != "running" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if status.State != "done" {
		t.Fatalf("status = %+v", status)
	}

	// SSE replay after completion still delivers the full history.
	r3, err := http.Get(ts.URL + "/v1/runs/run-it-1/events")
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer r3.Body.Close()
	if ct := r3.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	sawDone := false
	sc := bufio.NewScanner(r3.Body)
	for sc.Scan() {
		if strings.HasPrefix(sc.Text(), "event: done") {
			sawDone = true
			break
		}
	}
	if !sawDone {
		t.Fatal("SSE stream did not terminate with done")
	}
}

func TestIntegration_RunNotFound(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/runs/nonexistent")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestIntegration_DuplicateRunID(t *testing.T) {
	srv, ts := newTestServer(t)
	_ = srv.registry.Register("taken", &RunState{RunID: "taken", Broadcaster: NewBroadcaster()})

	resp, err := http.Post(ts.URL+"/v1/runs", "application/json",
		strings.NewReader(`{"prompt":"make a chair","run_id":"taken"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestIntegration_CSRFBlocksRemoteOrigin(t *testing.T) {
	_, ts := newTestServer(t)

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/v1/pipeline",
		strings.NewReader(`{"prompt":"make a chair"}`))
	req.Header.Set("Origin", "https://evil.example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestIntegration_InvalidRunID(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/v1/runs", "application/json",
		strings.NewReader(`{"prompt":"x","run_id":"../etc"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
