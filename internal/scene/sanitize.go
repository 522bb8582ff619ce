package scene

import (
	"fmt"
	"regexp"
)

// RawPrimitive is one untrusted shape record as decoded from backend JSON.
// Arrays may be missing, short, or over-long; the shape may be unknown.
type RawPrimitive struct {
	ID         string    `json:"id"`
	Shape      string    `json:"object"`
	Dimensions []float64 `json:"dimensions"`
	Position   []float64 `json:"position"`
	Rotation   []float64 `json:"rotation"`
	Material   string    `json:"material"`
}

// RawGroup is one untrusted group record.
type RawGroup struct {
	ID       string         `json:"id"`
	Position []float64      `json:"position"`
	Children []RawPrimitive `json:"children"`
}

// RawGraph is an untrusted scene payload before sanitization.
type RawGraph struct {
	Objects []RawPrimitive `json:"objects"`
	Groups  []RawGroup     `json:"groups"`
}

var (
	wheelID   = regexp.MustCompile(`(?i)wheel`)
	chassisID = regexp.MustCompile(`(?i)body|chassis`)
)

// Sanitize repairs an untrusted payload into a valid Graph. Unknown shapes
// coerce to cube, malformed vectors get safe defaults, dimensions follow the
// per-shape conventions, and missing IDs are assigned deterministically.
// When the payload is a flat list of car-like parts with no grouping, the
// parts are gathered under one group.
func Sanitize(raw RawGraph) Graph {
	n := 0
	g := Graph{Objects: []Primitive{}, Groups: []Group{}}
	for _, o := range raw.Objects {
		n++
		g.Objects = append(g.Objects, sanitizePrimitive(o, n))
	}
	for _, grp := range raw.Groups {
		n++
		out := Group{ID: grp.ID}
		if out.ID == "" {
			out.ID = fmt.Sprintf("group_%d", n)
		}
		if pos, ok := vec3(grp.Position); ok {
			out.Position = &pos
		}
		out.Children = []Primitive{}
		for _, c := range grp.Children {
			n++
			out.Children = append(out.Children, sanitizePrimitive(c, n))
		}
		g.Groups = append(g.Groups, out)
	}

	// Loose multi-part results with no grouping read better as one selectable
	// unit when they look like a vehicle.
	if len(g.Groups) == 0 && len(g.Objects) > 1 {
		hasWheel, hasChassis := false, false
		for _, o := range g.Objects {
			if wheelID.MatchString(o.ID) {
				hasWheel = true
			}
			if chassisID.MatchString(o.ID) {
				hasChassis = true
			}
		}
		if hasWheel && hasChassis {
			g.Groups = append(g.Groups, Group{ID: "car_1", Children: g.Objects})
			g.Objects = []Primitive{}
		}
	}
	return g
}

func sanitizePrimitive(o RawPrimitive, n int) Primitive {
	shape := Shape(o.Shape)
	switch shape {
	case Cube, Sphere, Cylinder, Plane:
	default:
		shape = Cube
	}

	p := Primitive{ID: o.ID, Shape: shape, Material: o.Material}
	if pos, ok := vec3(o.Position); ok {
		p.Position = pos
	} else {
		p.Position = [3]float64{0, 0.5, 0}
	}
	if rot, ok := vec3(o.Rotation); ok {
		p.Rotation = rot
	}

	// An absent dimensions field means a unit shape; a present one keeps its
	// provided entries and the shape conventions default the rest.
	var d [3]float64
	if o.Dimensions == nil {
		d = [3]float64{1, 1, 1}
	}
	for i := 0; i < 3 && i < len(o.Dimensions); i++ {
		d[i] = o.Dimensions[i]
	}
	switch shape {
	case Sphere:
		d = [3]float64{orDefault(d[0], 1), 1, 1}
	case Cylinder:
		diam := orDefault(d[0], 0.5)
		d = [3]float64{diam, orDefault(d[1], 1), orDefault(d[2], diam)}
	case Plane:
		d = [3]float64{orDefault(d[0], 2), orDefault(d[1], 2), 0.01}
	default:
		for i := len(o.Dimensions); i < 3; i++ {
			d[i] = 1
		}
	}
	p.Dimensions = d

	if p.ID == "" {
		p.ID = fmt.Sprintf("%s_%d", shape, n)
	}
	return p
}

func vec3(v []float64) ([3]float64, bool) {
	if len(v) != 3 {
		return [3]float64{}, false
	}
	return [3]float64{v[0], v[1], v[2]}, true
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
