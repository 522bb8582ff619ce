// Package edit applies scene edit commands. The wire grammar is a compact
// token per mutation ("scale_y:1.2", "add_floor:5x5"); tokens are parsed
// once into typed commands at the pipeline boundary and unknown tokens are
// ignored so the grammar stays forward-compatible.
package edit

import (
	"strconv"
	"strings"
)

// Command is one typed scene mutation.
type Command interface {
	// Token returns the wire-grammar form of the command.
	Token() string
}

// ScaleY multiplies the Y dimension of the torso and limbs, keeping the
// figure grounded.
type ScaleY struct {
	Factor float64
}

func (c ScaleY) Token() string { return "scale_y:" + formatFloat(c.Factor) }

// UniformScale multiplies every part's dimensions.
type UniformScale struct {
	Factor float64
}

func (c UniformScale) Token() string { return "uniform_scale:" + formatFloat(c.Factor) }

// HairColor recolors the hair part. Only the literal value "blonde" has an
// effect; anything else is a no-op.
type HairColor struct {
	Color string
}

func (c HairColor) Token() string { return "hair_color:" + c.Color }

// RotateArm adds Radians to the Z rotation of one arm.
type RotateArm struct {
	Left    bool
	Radians float64
}

func (c RotateArm) Token() string {
	side := "arm_right"
	if c.Left {
		side = "arm_left"
	}
	return side + ":rotate_z:" + formatFloat(c.Radians)
}

// AddFloor appends a W×D plane laid flat at the origin.
type AddFloor struct {
	W, D float64
}

func (c AddFloor) Token() string {
	return "add_floor:" + formatFloat(c.W) + "x" + formatFloat(c.D)
}

// ParseTokens converts wire tokens into typed commands, silently skipping
// tokens it does not recognize.
func ParseTokens(tokens []string) []Command {
	var out []Command
	for _, tok := range tokens {
		if cmd, ok := parseToken(tok); ok {
			out = append(out, cmd)
		}
	}
	return out
}

func parseToken(tok string) (Command, bool) {
	switch {
	case strings.HasPrefix(tok, "scale_y:"):
		return ScaleY{Factor: parseFloat(tok[len("scale_y:"):], 1)}, true
	case strings.HasPrefix(tok, "uniform_scale:"):
		return UniformScale{Factor: parseFloat(tok[len("uniform_scale:"):], 1)}, true
	case strings.HasPrefix(tok, "hair_color:"):
		color := tok[len("hair_color:"):]
		if color == "" {
			color = "blonde"
		}
		return HairColor{Color: color}, true
	case strings.HasPrefix(tok, "arm_left:rotate_z:"):
		return RotateArm{Left: true, Radians: parseFloat(tok[len("arm_left:rotate_z:"):], 0)}, true
	case strings.HasPrefix(tok, "arm_right:rotate_z:"):
		return RotateArm{Radians: parseFloat(tok[len("arm_right:rotate_z:"):], 0)}, true
	case strings.HasPrefix(tok, "add_floor:"):
		w, d := parseFloorDims(tok[len("add_floor:"):])
		return AddFloor{W: w, D: d}, true
	default:
		return nil, false
	}
}

func parseFloorDims(s string) (w, d float64) {
	w, d = 5, 5
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == 'x' || r == 'X' || r == '×' })
	if len(parts) >= 1 {
		w = parseFloat(parts[0], 5)
	}
	if len(parts) >= 2 {
		d = parseFloat(parts[1], 5)
	}
	if w < 0.1 {
		w = 0.1
	}
	if d < 0.1 {
		d = 0.1
	}
	return w, d
}

func parseFloat(s string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}
	return f
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
