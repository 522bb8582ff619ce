// Package scene defines the primitive scene graph exchanged with clients:
// allowed shapes, dimension conventions, a sanitizer for untrusted shape
// records, and the built-in template catalog used as the generation
// fallback of last resort.
package scene

import "github.com/sceneforge/sceneforge/internal/voxel"

// Shape enumerates the allowed primitive shapes.
type Shape string

const (
	Cube     Shape = "cube"
	Sphere   Shape = "sphere"
	Cylinder Shape = "cylinder"
	Plane    Shape = "plane"
)

// Dimension semantics depend on the shape: cube is [width, height, depth],
// sphere uses Dimensions[0] as diameter only, cylinder is
// [diameter, height, diameter], plane is [width, depth, 0.01].
type Primitive struct {
	ID         string     `json:"id"`
	Shape      Shape      `json:"object"`
	Dimensions [3]float64 `json:"dimensions"`
	Position   [3]float64 `json:"position"`
	Rotation   [3]float64 `json:"rotation"`
	Material   string     `json:"material,omitempty"`
}

// GroupVoxel marks a group that carries voxel content instead of children.
const GroupVoxel = "voxel"

// Group is a named collection of primitives, or a voxel payload when Type
// is GroupVoxel.
type Group struct {
	ID       string       `json:"id"`
	Type     string       `json:"type,omitempty"`
	Position *[3]float64  `json:"position,omitempty"`
	Children []Primitive  `json:"children,omitempty"`
	Voxel    *voxel.Scene `json:"voxel,omitempty"`
}

// Graph is the scene graph: loose primitives plus groups. IDs are unique
// within their container.
type Graph struct {
	Objects []Primitive `json:"objects"`
	Groups  []Group     `json:"groups"`
}

// Empty returns a graph with no content and non-nil slices.
func Empty() Graph {
	return Graph{Objects: []Primitive{}, Groups: []Group{}}
}

// Empty reports whether the graph has no objects and no groups.
func (g Graph) Empty() bool {
	return len(g.Objects) == 0 && len(g.Groups) == 0
}

// Clone returns a deep copy of the graph.
func (g Graph) Clone() Graph {
	out := Graph{
		Objects: make([]Primitive, len(g.Objects)),
		Groups:  make([]Group, len(g.Groups)),
	}
	copy(out.Objects, g.Objects)
	for i, grp := range g.Groups {
		cp := Group{ID: grp.ID, Type: grp.Type}
		if grp.Position != nil {
			pos := *grp.Position
			cp.Position = &pos
		}
		if grp.Children != nil {
			cp.Children = make([]Primitive, len(grp.Children))
			copy(cp.Children, grp.Children)
		}
		if grp.Voxel != nil {
			vx := grp.Voxel.Clone()
			cp.Voxel = &vx
		}
		out.Groups[i] = cp
	}
	return out
}
