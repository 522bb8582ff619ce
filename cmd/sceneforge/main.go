package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		serve(os.Args[2:])
	case "run":
		run(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  sceneforge serve [--addr <host:port>] [--config <sceneforge.yaml>]")
	fmt.Fprintln(os.Stderr, "  sceneforge run --prompt <text> [--config <sceneforge.yaml>] [--scene <scene.json>] [--mode <primitive|voxel|mesh>] [--no-fallback]")
}
