package voxel

import (
	"testing"
)

func TestSanitize_ClampsPaletteAndIndices(t *testing.T) {
	raw := RawScene{
		Palette: make([]string, 20),
		Voxels: []RawVoxel{
			{X: 1.9, Y: -2.7, Z: 0, C: 19},
			{X: 0, Y: 0, Z: 0, C: -3},
		},
	}
	for i := range raw.Palette {
		raw.Palette[i] = "#000000"
	}

	s := Sanitize(raw)
	if len(s.Palette) != MaxPaletteSize {
		t.Fatalf("palette length = %d, want %d", len(s.Palette), MaxPaletteSize)
	}
	if s.Voxels[0].X != 1 || s.Voxels[0].Y != -2 {
		t.Fatalf("coordinates not truncated to integers: %+v", s.Voxels[0])
	}
	for i, v := range s.Voxels {
		if v.C < 0 || v.C >= len(s.Palette) {
			t.Fatalf("voxel %d has out-of-range color index %d", i, v.C)
		}
	}
}

func TestSanitize_EmptyPaletteRepaired(t *testing.T) {
	s := Sanitize(RawScene{Voxels: []RawVoxel{{C: 5}}})
	if len(s.Palette) != 1 {
		t.Fatalf("palette length = %d, want 1", len(s.Palette))
	}
	if s.Voxels[0].C != 0 {
		t.Fatalf("color index = %d, want 0", s.Voxels[0].C)
	}
}

func TestSanitize_AtCapDropsNothing(t *testing.T) {
	raw := RawScene{Palette: []string{"#fff"}}
	for i := 0; i < MaxVoxels; i++ {
		raw.Voxels = append(raw.Voxels, RawVoxel{X: float64(i)})
	}
	s := Sanitize(raw)
	if len(s.Voxels) != MaxVoxels {
		t.Fatalf("voxel count = %d, want %d", len(s.Voxels), MaxVoxels)
	}
}

func TestSanitize_OverCapTruncatesInOrder(t *testing.T) {
	raw := RawScene{Palette: []string{"#fff"}}
	for i := 0; i < MaxVoxels+50; i++ {
		raw.Voxels = append(raw.Voxels, RawVoxel{X: float64(i)})
	}
	s := Sanitize(raw)
	if len(s.Voxels) != MaxVoxels {
		t.Fatalf("voxel count = %d, want %d", len(s.Voxels), MaxVoxels)
	}
	if s.Voxels[MaxVoxels-1].X != MaxVoxels-1 {
		t.Fatalf("truncation did not preserve order: last X = %d", s.Voxels[MaxVoxels-1].X)
	}
}

func TestChunks_RoundTrip(t *testing.T) {
	s := Scene{Palette: []string{"#fff"}}
	for i := 0; i < 257; i++ {
		s.Voxels = append(s.Voxels, Voxel{X: i})
	}

	chunks := s.Chunks(100)
	if len(chunks) != 3 {
		t.Fatalf("chunk count = %d, want 3", len(chunks))
	}

	var rejoined []Voxel
	for _, c := range chunks {
		rejoined = append(rejoined, c...)
	}
	if len(rejoined) != len(s.Voxels) {
		t.Fatalf("rejoined %d voxels, want %d", len(rejoined), len(s.Voxels))
	}
	for i := range rejoined {
		if rejoined[i] != s.Voxels[i] {
			t.Fatalf("voxel %d mismatch after round trip", i)
		}
	}
}

func TestChunks_SmallSceneSingleChunk(t *testing.T) {
	s := Scene{Voxels: []Voxel{{X: 1}, {X: 2}}}
	chunks := s.Chunks(100)
	if len(chunks) != 1 || len(chunks[0]) != 2 {
		t.Fatalf("unexpected chunking for small scene: %v", chunks)
	}
}

func TestDigest_StableAndContentSensitive(t *testing.T) {
	a := Scene{Palette: []string{"#fff"}, Voxels: []Voxel{{X: 1, C: 0}}}
	b := a.Clone()
	if a.Digest() != b.Digest() {
		t.Fatal("equal scenes produced different digests")
	}
	b.Voxels[0].X = 2
	if a.Digest() == b.Digest() {
		t.Fatal("different scenes produced equal digests")
	}
}
