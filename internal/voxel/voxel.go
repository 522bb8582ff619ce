// Package voxel defines the voxel scene payload produced by generation
// backends and the delegated job service, along with the sanitizer and
// chunker that bound untrusted payloads before they are streamed to clients.
package voxel

import (
	"encoding/hex"
	"encoding/json"
	"math"

	"github.com/zeebo/blake3"
)

const (
	// MaxPaletteSize caps the number of palette colors in a sanitized scene.
	MaxPaletteSize = 16

	// MaxVoxels caps the number of voxels in a sanitized scene.
	MaxVoxels = 20000
)

// Voxel is a unit cube at integer grid coordinates with a palette color index.
type Voxel struct {
	X    int `json:"x"`
	Y    int `json:"y"`
	Z    int `json:"z"`
	C    int `json:"c"`
	Size int `json:"size,omitempty"`
}

// Scene is a sanitized voxel payload. Every voxel's C is a valid index into
// Palette, coordinates are integers, and the caps above hold.
type Scene struct {
	Palette []string `json:"palette"`
	Voxels  []Voxel  `json:"voxels"`
}

// RawVoxel is one untrusted voxel record as decoded from backend or job
// service JSON. Coordinates may arrive as floats.
type RawVoxel struct {
	X    float64  `json:"x"`
	Y    float64  `json:"y"`
	Z    float64  `json:"z"`
	C    float64  `json:"c"`
	Size *float64 `json:"size"`
}

// RawScene is an untrusted voxel payload before sanitization.
type RawScene struct {
	Palette []string   `json:"palette"`
	Voxels  []RawVoxel `json:"voxels"`
}

// Sanitize clamps a raw payload into a valid Scene. The palette is truncated
// to MaxPaletteSize (an empty palette is repaired with a single white entry),
// the voxel list is truncated to MaxVoxels preserving order, coordinates are
// truncated to integers, color indices are clamped into palette range, and
// sizes default to 1.
func Sanitize(raw RawScene) Scene {
	palette := raw.Palette
	if len(palette) > MaxPaletteSize {
		palette = palette[:MaxPaletteSize]
	}
	if len(palette) == 0 {
		palette = []string{"#ffffff"}
	}

	in := raw.Voxels
	if len(in) > MaxVoxels {
		in = in[:MaxVoxels]
	}
	voxels := make([]Voxel, 0, len(in))
	for _, rv := range in {
		v := Voxel{
			X: int(math.Trunc(rv.X)),
			Y: int(math.Trunc(rv.Y)),
			Z: int(math.Trunc(rv.Z)),
			C: clampIndex(int(math.Trunc(rv.C)), len(palette)),
		}
		if rv.Size != nil && *rv.Size >= 1 {
			v.Size = int(math.Trunc(*rv.Size))
		}
		voxels = append(voxels, v)
	}

	out := Scene{Palette: make([]string, len(palette)), Voxels: voxels}
	copy(out.Palette, palette)
	return out
}

func clampIndex(c, n int) int {
	if c < 0 {
		return 0
	}
	if c >= n {
		return n - 1
	}
	return c
}

// Chunks splits the voxel list into order-preserving sub-slices of at most
// size voxels each. Concatenating the chunks reproduces Voxels exactly.
// A non-positive size yields a single chunk.
func (s Scene) Chunks(size int) [][]Voxel {
	if size <= 0 || len(s.Voxels) <= size {
		return [][]Voxel{s.Voxels}
	}
	var out [][]Voxel
	for i := 0; i < len(s.Voxels); i += size {
		end := i + size
		if end > len(s.Voxels) {
			end = len(s.Voxels)
		}
		out = append(out, s.Voxels[i:end])
	}
	return out
}

// Clone returns a deep copy of the scene.
func (s Scene) Clone() Scene {
	out := Scene{
		Palette: make([]string, len(s.Palette)),
		Voxels:  make([]Voxel, len(s.Voxels)),
	}
	copy(out.Palette, s.Palette)
	copy(out.Voxels, s.Voxels)
	return out
}

// Digest returns the blake3 hex digest of the scene's canonical JSON
// encoding. Used to fingerprint streamed payloads.
func (s Scene) Digest() string {
	b, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}
