package scene

import "strings"

// Template returns the built-in scene for a subject name. Matching is exact
// on the lowercased subject against a small fixed catalog; anything else
// gets the generic humanoid.
func Template(subject string) Graph {
	switch strings.ToLower(strings.TrimSpace(subject)) {
	case "chair":
		return chairTemplate()
	case "naruto":
		g := Humanoid()
		g.Groups[0].Children = append(g.Groups[0].Children, Primitive{
			ID: "headband", Shape: Cube,
			Dimensions: [3]float64{0.65, 0.08, 0.65},
			Position:   [3]float64{0, 1.7, 0},
			Material:   "#222222",
		})
		return g
	default:
		return Humanoid()
	}
}

// Humanoid is the default seven-part figure assembled from primitives. It is
// also the seed scene for edits applied to an empty graph.
func Humanoid() Graph {
	return Graph{
		Objects: []Primitive{},
		Groups: []Group{{
			ID: "humanoid",
			Children: []Primitive{
				{ID: "body", Shape: Cube, Dimensions: [3]float64{0.8, 1.4, 0.4}, Position: [3]float64{0, 0.7, 0}, Material: "#f2a365"},
				{ID: "head", Shape: Sphere, Dimensions: [3]float64{0.5, 0.5, 0.5}, Position: [3]float64{0, 1.6, 0}, Material: "#f5c6a5"},
				{ID: "hair", Shape: Cube, Dimensions: [3]float64{0.6, 0.2, 0.6}, Position: [3]float64{0, 1.85, 0}, Material: "#333333"},
				{ID: "arm_l", Shape: Cube, Dimensions: [3]float64{0.25, 1.0, 0.25}, Position: [3]float64{-0.6, 0.9, 0}, Material: "#f2a365"},
				{ID: "arm_r", Shape: Cube, Dimensions: [3]float64{0.25, 1.0, 0.25}, Position: [3]float64{0.6, 0.9, 0}, Material: "#f2a365"},
				{ID: "leg_l", Shape: Cube, Dimensions: [3]float64{0.3, 1.2, 0.3}, Position: [3]float64{-0.2, 0.15, 0}, Material: "#4b5563"},
				{ID: "leg_r", Shape: Cube, Dimensions: [3]float64{0.3, 1.2, 0.3}, Position: [3]float64{0.2, 0.15, 0}, Material: "#4b5563"},
			},
		}},
	}
}

func chairTemplate() Graph {
	return Graph{
		Objects: []Primitive{},
		Groups: []Group{{
			ID: "chair",
			Children: []Primitive{
				{ID: "seat", Shape: Cube, Dimensions: [3]float64{0.6, 0.12, 0.6}, Position: [3]float64{0, 0.5, 0}, Material: "#7B3F00"},
				{ID: "leg1", Shape: Cube, Dimensions: [3]float64{0.08, 0.5, 0.08}, Position: [3]float64{-0.25, 0.25, -0.25}, Material: "#7B3F00"},
				{ID: "leg2", Shape: Cube, Dimensions: [3]float64{0.08, 0.5, 0.08}, Position: [3]float64{0.25, 0.25, -0.25}, Material: "#7B3F00"},
				{ID: "leg3", Shape: Cube, Dimensions: [3]float64{0.08, 0.5, 0.08}, Position: [3]float64{-0.25, 0.25, 0.25}, Material: "#7B3F00"},
				{ID: "leg4", Shape: Cube, Dimensions: [3]float64{0.08, 0.5, 0.08}, Position: [3]float64{0.25, 0.25, 0.25}, Material: "#7B3F00"},
				{ID: "backrest", Shape: Cube, Dimensions: [3]float64{0.6, 0.9, 0.12}, Position: [3]float64{0, 0.95, -0.24}, Material: "#7B3F00"},
			},
		}},
	}
}
