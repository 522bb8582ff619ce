package jobclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sceneforge/sceneforge/internal/backend"
)

func fastClient(baseURL string, globs []string) *Client {
	c := New(baseURL, globs)
	c.PollInterval = time.Millisecond
	return c
}

func TestCreateJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/jobs" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var spec Spec
		if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
			t.Errorf("decode spec: %v", err)
		}
		if spec.Subject != "dragon" {
			t.Errorf("subject = %q", spec.Subject)
		}
		_, _ = w.Write([]byte(`{"jobId":"job-1"}`))
	}))
	defer srv.Close()

	id, err := New(srv.URL, nil).CreateJob(context.Background(), Spec{Mode: "voxel", Subject: "dragon"})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if id != "job-1" {
		t.Fatalf("id = %q", id)
	}
}

func TestCreateJob_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	id, err := New(srv.URL, nil).CreateJob(context.Background(), Spec{})
	if id != "" {
		t.Fatalf("id = %q, want empty", id)
	}
	var ue *backend.UnavailableError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want UnavailableError", err)
	}
}

func TestPoll_ProgressAndFileArtifact(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		st := Status{ID: "j", Status: "running", Progress: []ProgressEntry{{Msg: "planning"}}}
		if n >= 2 {
			st.Progress = append(st.Progress, ProgressEntry{Msg: "exporting"})
		}
		if n >= 3 {
			st.Status = "completed"
			st.Artifacts = map[string]json.RawMessage{
				"shapee": json.RawMessage(`{"type":"glb","path":"artifacts/out.glb"}`),
			}
		}
		_ = json.NewEncoder(w).Encode(st)
	}))
	defer srv.Close()

	var msgs []string
	res, err := fastClient(srv.URL, nil).Poll(context.Background(), "j", func(m string) { msgs = append(msgs, m) })
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if res.File == nil || res.File.Path != "artifacts/out.glb" {
		t.Fatalf("result = %+v", res)
	}
	// Append-only relay: each entry exactly once.
	want := []string{"planning", "exporting"}
	if len(msgs) != len(want) || msgs[0] != want[0] || msgs[1] != want[1] {
		t.Fatalf("progress = %v", msgs)
	}
}

func TestPoll_LODArtifactPicksHighestResolution(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/jobs/j", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Status{ID: "j", Status: "completed", Artifacts: map[string]json.RawMessage{
			"lods": json.RawMessage(`{
				"lod_64":  {"type":"voxels","path":"artifacts/a_64.json","resolution":64,"voxel_count":10},
				"lod_256": {"type":"voxels","path":"artifacts/a_256.json","resolution":256,"voxel_count":40}
			}`),
		}})
	})
	mux.HandleFunc("/artifacts/a_256.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"palette":["#fff","#000"],"voxels":[{"x":1,"y":2,"z":3,"c":1},{"x":0,"y":0,"z":0,"c":9}]}`))
	})
	mux.HandleFunc("/artifacts/a_64.json", func(w http.ResponseWriter, r *http.Request) {
		t.Error("low-resolution artifact should not be fetched")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	res, err := fastClient(srv.URL, []string{"artifacts/**"}).Poll(context.Background(), "j", nil)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if res.Voxels == nil || len(res.Voxels.Voxels) != 2 {
		t.Fatalf("result = %+v", res)
	}
	// Out-of-range color index is clamped by the sanitizer.
	if res.Voxels.Voxels[1].C != 1 {
		t.Fatalf("voxel = %+v", res.Voxels.Voxels[1])
	}
}

func TestPoll_ArtifactPathOutsideAllowList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Status{ID: "j", Status: "completed", Artifacts: map[string]json.RawMessage{
			"lods": json.RawMessage(`{"lod_64":{"type":"voxels","path":"/etc/passwd","resolution":64}}`),
		}})
	}))
	defer srv.Close()

	_, err := fastClient(srv.URL, []string{"artifacts/**"}).Poll(context.Background(), "j", nil)
	var ae *ArtifactError
	if !errors.As(err, &ae) {
		t.Fatalf("err = %v, want ArtifactError", err)
	}
}

func TestPoll_Failed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Status{ID: "j", Status: "failed", Error: "out of memory"})
	}))
	defer srv.Close()

	_, err := fastClient(srv.URL, nil).Poll(context.Background(), "j", nil)
	var jf *JobFailedError
	if !errors.As(err, &jf) {
		t.Fatalf("err = %v, want JobFailedError", err)
	}
}

func TestPoll_TransientErrorsAreRetried(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			http.Error(w, "hiccup", http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(Status{ID: "j", Status: "completed", Artifacts: map[string]json.RawMessage{
			"shapee": json.RawMessage(`{"type":"glb","path":"artifacts/out.glb"}`),
		}})
	}))
	defer srv.Close()

	res, err := fastClient(srv.URL, nil).Poll(context.Background(), "j", nil)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if res.File == nil {
		t.Fatalf("result = %+v", res)
	}
}

func TestPoll_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Status{ID: "j", Status: "running"})
	}))
	defer srv.Close()

	c := fastClient(srv.URL, nil)
	c.MaxTicks = 5
	_, err := c.Poll(context.Background(), "j", nil)
	var pt *PollTimeoutError
	if !errors.As(err, &pt) {
		t.Fatalf("err = %v, want PollTimeoutError", err)
	}
	if pt.Ticks != 5 {
		t.Fatalf("ticks = %d", pt.Ticks)
	}
}
