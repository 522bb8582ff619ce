package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sceneforge/sceneforge/internal/backend"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "llama3.1"

	// defaultProbeTimeout bounds the liveness check so a down daemon does
	// not stall the fallback chain.
	defaultProbeTimeout = 1500 * time.Millisecond
)

type Adapter struct {
	BaseURL      string
	Model        string
	ProbeTimeout time.Duration
	Client       *http.Client
}

func New(baseURL, model string) *Adapter {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	return &Adapter{
		BaseURL:      base,
		Model:        model,
		ProbeTimeout: defaultProbeTimeout,
		// Avoid short client-level timeouts; rely on request context deadlines instead.
		Client: &http.Client{Timeout: 0},
	}
}

func (a *Adapter) Name() string { return "ollama" }

// Probe checks that the local daemon answers its tags endpoint.
func (a *Adapter) Probe(ctx context.Context) bool {
	timeout := a.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := a.Client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (a *Adapter) Chat(ctx context.Context, system, user string) (string, error) {
	body := map[string]any{
		"model":  a.Model,
		"stream": false,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/api/chat", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.Client.Do(req)
	if err != nil {
		return "", &backend.UnavailableError{Name: a.Name(), Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("chat failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		return "", &backend.UnavailableError{Name: a.Name(), Message: msg}
	}

	var out struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &backend.MalformedOutputError{Name: a.Name(), Message: err.Error()}
	}
	if strings.TrimSpace(out.Message.Content) == "" {
		return "", &backend.MalformedOutputError{Name: a.Name(), Message: "response has empty message content"}
	}
	return out.Message.Content, nil
}
