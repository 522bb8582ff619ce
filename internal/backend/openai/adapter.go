package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sceneforge/sceneforge/internal/backend"
)

const (
	defaultBaseURL = "https://api.openai.com"
	defaultModel   = "gpt-4o-mini"
)

type Adapter struct {
	APIKey  string
	BaseURL string
	Model   string
	Client  *http.Client
}

func New(apiKey, baseURL, model string) *Adapter {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	return &Adapter{
		APIKey:  strings.TrimSpace(apiKey),
		BaseURL: base,
		Model:   model,
		// Avoid short client-level timeouts; rely on request context deadlines instead.
		Client: &http.Client{Timeout: 0},
	}
}

func (a *Adapter) Name() string { return "openai" }

// Probe reports whether the adapter is usable at all. Key presence is the
// only check; a dead endpoint surfaces as an UnavailableError on Chat.
func (a *Adapter) Probe(ctx context.Context) bool {
	return a.APIKey != ""
}

func (a *Adapter) Chat(ctx context.Context, system, user string) (string, error) {
	if a.APIKey == "" {
		return "", &backend.ConfigurationError{Message: "openai: API key is not set"}
	}
	body := map[string]any{
		"model":       a.Model,
		"temperature": 0,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/v1/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.APIKey)

	resp, err := a.Client.Do(req)
	if err != nil {
		return "", &backend.UnavailableError{Name: a.Name(), Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("chat.completions failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		return "", &backend.UnavailableError{Name: a.Name(), Message: msg}
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &backend.MalformedOutputError{Name: a.Name(), Message: err.Error()}
	}
	if len(out.Choices) == 0 {
		return "", &backend.MalformedOutputError{Name: a.Name(), Message: "response has no choices"}
	}
	return out.Choices[0].Message.Content, nil
}
