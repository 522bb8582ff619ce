package edit

import (
	"fmt"
	"strings"

	"github.com/sceneforge/sceneforge/internal/scene"
)

// Part IDs affected by vertical scaling.
var scaleYParts = []string{"body", "arm_l", "arm_r", "leg_l", "leg_r"}

// Apply returns a new graph with the commands applied in order. The input is
// never mutated. An empty input graph is first seeded with the default
// humanoid so edits always have a target. Commands addressing parts the
// scene does not have are no-ops.
func Apply(g scene.Graph, cmds []Command) scene.Graph {
	s := g.Clone()
	if s.Empty() {
		s = scene.Humanoid()
	}

	var children []scene.Primitive
	if len(s.Groups) > 0 {
		children = s.Groups[0].Children
	}
	find := func(id string) *scene.Primitive {
		for i := range children {
			if children[i].ID == id {
				return &children[i]
			}
		}
		return nil
	}

	for _, cmd := range cmds {
		switch c := cmd.(type) {
		case ScaleY:
			for _, id := range scaleYParts {
				part := find(id)
				if part == nil {
					continue
				}
				part.Dimensions[1] *= c.Factor
				switch {
				case id == "body":
					part.Position[1] = part.Dimensions[1] / 2
				case id == "leg_l" || id == "leg_r":
					part.Position[1] = part.Dimensions[1]/2 - 0.45
				default: // arms
					part.Position[1] = max(0.6, part.Position[1]*c.Factor)
				}
			}
		case UniformScale:
			for i := range children {
				part := &children[i]
				for d := range part.Dimensions {
					part.Dimensions[d] *= c.Factor
				}
				// Vertically-oriented parts move with the scale to preserve
				// the standing pose; the rest stay put.
				if isVertical(part.ID) {
					for p := range part.Position {
						part.Position[p] *= c.Factor
					}
				}
			}
		case HairColor:
			if hair := find("hair"); hair != nil && c.Color == "blonde" {
				hair.Material = "#facc15"
			}
		case RotateArm:
			id := "arm_r"
			if c.Left {
				id = "arm_l"
			}
			if arm := find(id); arm != nil {
				arm.Rotation[2] += c.Radians
			}
		case AddFloor:
			s.Objects = append(s.Objects, scene.Primitive{
				ID:         floorID(s),
				Shape:      scene.Plane,
				Dimensions: [3]float64{c.W, c.D, 0.01},
				Position:   [3]float64{0, 0.001, 0},
				Rotation:   [3]float64{-1.5707963, 0, 0},
				Material:   "#666666",
			})
		}
	}
	return s
}

func isVertical(id string) bool {
	return id == "body" ||
		strings.HasPrefix(id, "leg_") ||
		strings.HasPrefix(id, "arm_")
}

// floorID picks a deterministic ID not already present among the loose
// objects, so repeated applications of the same input stay reproducible.
func floorID(s scene.Graph) string {
	for n := 1; ; n++ {
		id := fmt.Sprintf("floor_%d", n)
		taken := false
		for _, o := range s.Objects {
			if o.ID == id {
				taken = true
				break
			}
		}
		if !taken {
			return id
		}
	}
}
