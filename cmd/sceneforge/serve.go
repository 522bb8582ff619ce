package main

import (
	"fmt"
	"os"

	"github.com/sceneforge/sceneforge/internal/config"
	"github.com/sceneforge/sceneforge/internal/pipeline"
	"github.com/sceneforge/sceneforge/internal/server"
)

func serve(args []string) {
	var addr string
	var configPath string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--addr":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--addr requires a value")
				os.Exit(1)
			}
			addr = args[i]
		case "--config":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--config requires a value")
				os.Exit(1)
			}
			configPath = args[i]
		default:
			fmt.Fprintf(os.Stderr, "unknown arg: %s\n", args[i])
			os.Exit(1)
		}
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	srv := server.New(server.Config{
		Addr: cfg.Server.Addr,
	}, pipeline.FromConfig(cfg, nil))

	if err := srv.ListenAndServe(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.File, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
