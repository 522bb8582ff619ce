package pipeline

import (
	"strings"

	"github.com/sceneforge/sceneforge/internal/parse"
)

// voxelTerms in the raw prompt route a request to the job service even when
// the parser saw nothing special.
var voxelTerms = []string{"voxel", "voxels", "blocky", "minecraft"}

// complexSubjects are parsed subjects the primitive generator cannot do
// justice to. Simple furniture deliberately stays local.
var complexSubjects = map[string]bool{
	"dragon":    true,
	"monster":   true,
	"creature":  true,
	"animal":    true,
	"beast":     true,
	"dinosaur":  true,
	"car":       true,
	"truck":     true,
	"ship":      true,
	"boat":      true,
	"spaceship": true,
	"vehicle":   true,
	"knight":    true,
	"warrior":   true,
	"wizard":    true,
}

// ShouldDelegate decides whether a request goes to the external voxel job
// service instead of the local generator chain. Pure.
func ShouldDelegate(res parse.Result, prompt string, req Request) bool {
	switch strings.ToLower(strings.TrimSpace(req.Mode)) {
	case "voxel", "mesh":
		return true
	}
	if req.Voxel {
		return true
	}
	lower := strings.ToLower(prompt)
	for _, term := range voxelTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return complexSubjects[strings.ToLower(strings.TrimSpace(res.Subject()))]
}
