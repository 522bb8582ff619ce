// Package jobclient talks to the external voxel job service: job creation,
// status polling with progress relay, and artifact resolution.
package jobclient

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/zeebo/blake3"

	"github.com/sceneforge/sceneforge/internal/backend"
	"github.com/sceneforge/sceneforge/internal/voxel"
)

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultMaxTicks     = 600
)

// Spec is the job creation payload.
type Spec struct {
	Mode       string `json:"mode,omitempty"`
	Resolution int    `json:"resolution,omitempty"`
	Subject    string `json:"subject,omitempty"`
	Style      string `json:"style,omitempty"`
	Pose       string `json:"pose,omitempty"`
	Seed       int64  `json:"seed,omitempty"`
}

// ProgressEntry is one line of the job's append-only progress log.
type ProgressEntry struct {
	T   string `json:"t,omitempty"`
	Msg string `json:"msg"`
}

// Status is a job manifest snapshot as served by the job service.
type Status struct {
	ID        string                     `json:"id"`
	Status    string                     `json:"status"`
	Progress  []ProgressEntry            `json:"progress"`
	Artifacts map[string]json.RawMessage `json:"artifacts"`
	Error     string                     `json:"error,omitempty"`
}

// FileArtifact is a single-file job artifact reference. Digest is filled in
// after resolution when the file could be fetched; empty otherwise.
type FileArtifact struct {
	Type   string `json:"type"`
	Path   string `json:"path"`
	Digest string `json:"-"`
}

type lodArtifact struct {
	Type       string `json:"type"`
	Path       string `json:"path"`
	Resolution int    `json:"resolution"`
	VoxelCount int    `json:"voxel_count"`
}

// Result is a resolved job outcome: exactly one of File or Voxels is set.
type Result struct {
	File   *FileArtifact
	Voxels *voxel.Scene
}

// JobFailedError reports a job that reached the failed state.
type JobFailedError struct {
	JobID   string
	Message string
}

func (e *JobFailedError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "job failed"
	}
	return fmt.Sprintf("job %s: %s", e.JobID, msg)
}

// PollTimeoutError reports a job that never reached a terminal state within
// the polling ceiling.
type PollTimeoutError struct {
	JobID string
	Ticks int
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("job %s: no terminal status after %d polls", e.JobID, e.Ticks)
}

// ArtifactError reports a completed job whose artifacts could not be
// resolved into a usable result.
type ArtifactError struct {
	JobID   string
	Message string
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("job %s: artifact: %s", e.JobID, e.Message)
}

type Client struct {
	BaseURL    string
	HTTP       *http.Client
	AllowGlobs []string

	PollInterval time.Duration
	MaxTicks     int
}

func New(baseURL string, allowGlobs []string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTP:       &http.Client{Timeout: 0},
		AllowGlobs: allowGlobs,

		PollInterval: defaultPollInterval,
		MaxTicks:     defaultMaxTicks,
	}
}

// CreateJob submits spec to the job service. Any transport or decode
// failure returns an empty ID plus an UnavailableError; callers decide
// whether to fall back locally.
func (c *Client) CreateJob(ctx context.Context, spec Spec) (string, error) {
	b, err := json.Marshal(spec)
	if err != nil {
		return "", &backend.UnavailableError{Name: "jobs", Message: err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/jobs", bytes.NewReader(b))
	if err != nil {
		return "", &backend.UnavailableError{Name: "jobs", Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", &backend.UnavailableError{Name: "jobs", Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("create failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		return "", &backend.UnavailableError{Name: "jobs", Message: msg}
	}

	var out struct {
		JobID string `json:"jobId"`
	}
	if err := json.Unmarshal(raw, &out); err != nil || strings.TrimSpace(out.JobID) == "" {
		return "", &backend.UnavailableError{Name: "jobs", Message: "create response has no jobId"}
	}
	return out.JobID, nil
}

// Poll watches jobID on a fixed cadence until it settles, relaying each
// newly appended progress message through onProgress. Transport errors on a
// tick are transient. The tick ceiling bounds total wait near one minute at
// the default cadence.
func (c *Client) Poll(ctx context.Context, jobID string, onProgress func(msg string)) (Result, error) {
	interval := c.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	maxTicks := c.MaxTicks
	if maxTicks <= 0 {
		maxTicks = defaultMaxTicks
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	seen := 0
	for tick := 0; tick < maxTicks; tick++ {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-ticker.C:
		}

		st, err := c.fetchStatus(ctx, jobID)
		if err != nil {
			// Transient read failure; the job may still be progressing.
			continue
		}

		// The progress log is append-only; re-emit only the tail.
		if len(st.Progress) > seen {
			for _, p := range st.Progress[seen:] {
				if onProgress != nil {
					onProgress(p.Msg)
				}
			}
			seen = len(st.Progress)
		}

		switch st.Status {
		case "failed":
			return Result{}, &JobFailedError{JobID: jobID, Message: st.Error}
		case "completed":
			return c.resolveArtifacts(ctx, jobID, st.Artifacts)
		}
	}
	return Result{}, &PollTimeoutError{JobID: jobID, Ticks: maxTicks}
}

func (c *Client) fetchStatus(ctx context.Context, jobID string) (Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/jobs/"+jobID, nil)
	if err != nil {
		return Status{}, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Status{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Status{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Status{}, fmt.Errorf("status %d", resp.StatusCode)
	}
	var st Status
	if err := json.Unmarshal(raw, &st); err != nil {
		return Status{}, err
	}
	return st, nil
}

// resolveArtifacts turns a completed job's artifact map into a Result. A
// single-file artifact wins; otherwise the highest-resolution entry of a
// multi-LOD voxel set is fetched and sanitized.
func (c *Client) resolveArtifacts(ctx context.Context, jobID string, artifacts map[string]json.RawMessage) (Result, error) {
	var lods map[string]lodArtifact
	for key, raw := range artifacts {
		if key == "lods" {
			if err := json.Unmarshal(raw, &lods); err != nil {
				return Result{}, &ArtifactError{JobID: jobID, Message: "malformed lods entry: " + err.Error()}
			}
			continue
		}
		var fa FileArtifact
		if err := json.Unmarshal(raw, &fa); err != nil {
			continue
		}
		if fa.Type != "" && fa.Path != "" {
			// Fingerprint the file when it is fetchable; a miss is not fatal,
			// the reference alone is still usable.
			if c.pathAllowed(fa.Path) {
				if raw, err := c.fetchArtifact(ctx, fa.Path); err == nil {
					sum := blake3.Sum256(raw)
					fa.Digest = hex.EncodeToString(sum[:])
				}
			}
			return Result{File: &fa}, nil
		}
	}

	var best *lodArtifact
	for _, lod := range lods {
		l := lod
		if best == nil || l.Resolution > best.Resolution {
			best = &l
		}
	}
	if best == nil {
		return Result{}, &ArtifactError{JobID: jobID, Message: "no usable artifact in manifest"}
	}
	if !c.pathAllowed(best.Path) {
		return Result{}, &ArtifactError{JobID: jobID, Message: fmt.Sprintf("path %q not in allow list", best.Path)}
	}

	raw, err := c.fetchArtifact(ctx, best.Path)
	if err != nil {
		return Result{}, &ArtifactError{JobID: jobID, Message: err.Error()}
	}
	var rs voxel.RawScene
	if err := json.Unmarshal(raw, &rs); err != nil {
		return Result{}, &ArtifactError{JobID: jobID, Message: "malformed voxel payload: " + err.Error()}
	}
	sc := voxel.Sanitize(rs)
	return Result{Voxels: &sc}, nil
}

func (c *Client) pathAllowed(path string) bool {
	if len(c.AllowGlobs) == 0 {
		return true
	}
	p := strings.TrimPrefix(path, "/")
	for _, g := range c.AllowGlobs {
		if ok, err := doublestar.Match(g, p); err == nil && ok {
			return true
		}
	}
	return false
}

// ArtifactURL resolves an artifact path against the service base URL.
func (c *Client) ArtifactURL(path string) string {
	return c.BaseURL + "/" + strings.TrimPrefix(path, "/")
}

func (c *Client) fetchArtifact(ctx context.Context, path string) ([]byte, error) {
	url := c.ArtifactURL(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: status %d", path, resp.StatusCode)
	}
	return raw, nil
}
