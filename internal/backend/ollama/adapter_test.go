package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sceneforge/sceneforge/internal/backend"
)

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req struct {
			Model  string `json:"model"`
			Stream bool   `json:"stream"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("stream must be disabled")
		}
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"hello"}}`))
	}))
	defer srv.Close()

	a := New(srv.URL, "")
	got, err := a.Chat(context.Background(), "sys", "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello" {
		t.Fatalf("content = %q", got)
	}
}

func TestChat_EmptyContentIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":{"content":""}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").Chat(context.Background(), "sys", "hi")
	var me *backend.MalformedOutputError
	if !errors.As(err, &me) {
		t.Fatalf("err = %v, want MalformedOutputError", err)
	}
}

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	if !New(srv.URL, "").Probe(context.Background()) {
		t.Fatal("probe against live server should pass")
	}

	srv.Close()
	if New(srv.URL, "").Probe(context.Background()) {
		t.Fatal("probe against closed server should fail")
	}
}

func TestProbe_TimeoutConfigurable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()
	defer close(release)

	a := New(srv.URL, "")
	if a.ProbeTimeout != defaultProbeTimeout {
		t.Fatalf("default probe timeout = %v", a.ProbeTimeout)
	}
	a.ProbeTimeout = time.Millisecond
	if a.Probe(context.Background()) {
		t.Fatal("probe must fail once the configured timeout elapses")
	}
}
