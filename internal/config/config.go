// Package config loads the coordinator configuration from a YAML or JSON
// file, with strict decoding and layered defaults.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type BackendConfig struct {
	BaseURL           string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIKeyEnv         string `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	Model             string `json:"model,omitempty" yaml:"model,omitempty"`
	ParseTimeoutMS    int    `json:"parse_timeout_ms,omitempty" yaml:"parse_timeout_ms,omitempty"`
	GenerateTimeoutMS int    `json:"generate_timeout_ms,omitempty" yaml:"generate_timeout_ms,omitempty"`
	ProbeTimeoutMS    int    `json:"probe_timeout_ms,omitempty" yaml:"probe_timeout_ms,omitempty"`
	Enabled           *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

type JobsConfig struct {
	BaseURL           string   `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	CreateTimeoutMS   int      `json:"create_timeout_ms,omitempty" yaml:"create_timeout_ms,omitempty"`
	PollIntervalMS    int      `json:"poll_interval_ms,omitempty" yaml:"poll_interval_ms,omitempty"`
	PollMaxTicks      int      `json:"poll_max_ticks,omitempty" yaml:"poll_max_ticks,omitempty"`
	ArtifactAllowGlob []string `json:"artifact_allow_globs,omitempty" yaml:"artifact_allow_globs,omitempty"`
}

type File struct {
	Version int `json:"version" yaml:"version"`

	Server struct {
		Addr string `json:"addr" yaml:"addr"`
	} `json:"server" yaml:"server"`

	Primary   BackendConfig `json:"primary,omitempty" yaml:"primary,omitempty"`
	Secondary BackendConfig `json:"secondary,omitempty" yaml:"secondary,omitempty"`

	Jobs JobsConfig `json:"jobs,omitempty" yaml:"jobs,omitempty"`

	HeartbeatMS int `json:"heartbeat_ms,omitempty" yaml:"heartbeat_ms,omitempty"`
}

// Load reads path and decodes it strictly; unknown keys are an error. A
// ".json" extension selects JSON, anything else is decoded as YAML.
func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := decodeJSONStrict(b, &cfg); err != nil {
			return nil, err
		}
	default:
		if err := decodeYAMLStrict(b, &cfg); err != nil {
			return nil, err
		}
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration usable without any file on disk.
func Default() *File {
	var cfg File
	ApplyDefaults(&cfg)
	return &cfg
}

func decodeJSONStrict(b []byte, cfg *File) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return err
	}
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		if err == nil {
			return fmt.Errorf("json: multiple top-level values are not allowed")
		}
		return err
	}
	return nil
}

func decodeYAMLStrict(b []byte, cfg *File) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return err
	}
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		if err == nil {
			return fmt.Errorf("yaml: multiple documents are not allowed")
		}
		return err
	}
	return nil
}

func ApplyDefaults(cfg *File) {
	if cfg == nil {
		return
	}
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = ":8080"
	}

	applyBackendDefaults(&cfg.Primary, "OPENAI_API_KEY", "gpt-4o-mini", 15000)
	applyBackendDefaults(&cfg.Secondary, "", "llama3.1", 12000)
	if cfg.Secondary.BaseURL == "" {
		cfg.Secondary.BaseURL = "http://localhost:11434"
	}
	if cfg.Secondary.Enabled == nil {
		t := true
		cfg.Secondary.Enabled = &t
	}

	if cfg.Jobs.CreateTimeoutMS <= 0 {
		cfg.Jobs.CreateTimeoutMS = 10000
	}
	if cfg.Jobs.PollIntervalMS <= 0 {
		cfg.Jobs.PollIntervalMS = 100
	}
	if cfg.Jobs.PollMaxTicks <= 0 {
		cfg.Jobs.PollMaxTicks = 600
	}
	if cfg.HeartbeatMS <= 0 {
		cfg.HeartbeatMS = 10000
	}
}

func applyBackendDefaults(b *BackendConfig, apiKeyEnv, model string, generateMS int) {
	if b.APIKeyEnv == "" {
		b.APIKeyEnv = apiKeyEnv
	}
	if strings.TrimSpace(b.Model) == "" {
		b.Model = model
	}
	if b.ParseTimeoutMS <= 0 {
		b.ParseTimeoutMS = 8000
	}
	if b.GenerateTimeoutMS <= 0 {
		b.GenerateTimeoutMS = generateMS
	}
	if b.ProbeTimeoutMS <= 0 {
		b.ProbeTimeoutMS = 1500
	}
}

func Validate(cfg *File) error {
	if cfg.Version != 1 {
		return fmt.Errorf("config: unsupported version %d", cfg.Version)
	}
	if cfg.Jobs.BaseURL != "" {
		if !strings.HasPrefix(cfg.Jobs.BaseURL, "http://") && !strings.HasPrefix(cfg.Jobs.BaseURL, "https://") {
			return fmt.Errorf("config: jobs.base_url must be an http(s) URL, got %q", cfg.Jobs.BaseURL)
		}
	}
	return nil
}

// APIKey resolves the backend's API key from its configured environment
// variable. Empty when the variable is unset.
func (b BackendConfig) APIKey() string {
	if b.APIKeyEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(b.APIKeyEnv))
}

// SecondaryEnabled reports whether the secondary backend should join the
// fallback chains.
func (cfg *File) SecondaryEnabled() bool {
	return cfg.Secondary.Enabled == nil || *cfg.Secondary.Enabled
}
