package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sceneforge/sceneforge/internal/pipeline"
	"github.com/sceneforge/sceneforge/internal/scene"
)

// run executes one pipeline invocation in-process and prints the event
// stream as NDJSON on stdout.
func run(args []string) {
	var prompt string
	var configPath string
	var scenePath string
	var mode string
	var noFallback bool

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--prompt":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--prompt requires a value")
				os.Exit(1)
			}
			prompt = args[i]
		case "--config":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--config requires a value")
				os.Exit(1)
			}
			configPath = args[i]
		case "--scene":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--scene requires a value")
				os.Exit(1)
			}
			scenePath = args[i]
		case "--mode":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--mode requires a value")
				os.Exit(1)
			}
			mode = args[i]
		case "--no-fallback":
			noFallback = true
		default:
			fmt.Fprintf(os.Stderr, "unknown arg: %s\n", args[i])
			os.Exit(1)
		}
	}

	if prompt == "" {
		fmt.Fprintln(os.Stderr, "--prompt is required")
		os.Exit(1)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	req := pipeline.Request{Prompt: prompt, Mode: mode}
	if noFallback {
		f := false
		req.AllowFallback = &f
	}
	if scenePath != "" {
		b, err := os.ReadFile(scenePath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		var raw scene.RawGraph
		if err := json.Unmarshal(b, &raw); err != nil {
			fmt.Fprintf(os.Stderr, "invalid scene file: %v\n", err)
			os.Exit(1)
		}
		req.Scene = &raw
	}

	enc := json.NewEncoder(os.Stdout)
	failed := false
	pipeline.FromConfig(cfg, nil).Run(context.Background(), req, func(ev pipeline.Event) {
		if ev.Type == pipeline.EventError {
			failed = true
		}
		_ = enc.Encode(ev)
	})
	if failed {
		os.Exit(1)
	}
}
