// Package parse defines the structured interpretation of a user prompt and
// the deterministic heuristic parser used as the last tier of the parser
// chain.
package parse

import "strings"

// Action selects the pipeline branch for a request.
type Action string

const (
	ActionGenerate Action = "generate"
	ActionEdit     Action = "edit"
)

// Result is the structured interpretation of one prompt. Edits carries
// wire-grammar edit tokens such as "scale_y:1.2".
type Result struct {
	Action    Action   `json:"action"`
	Character *string  `json:"character"`
	Edits     []string `json:"edits"`
}

// Subject returns the parsed character name, or "" when absent.
func (r Result) Subject() string {
	if r.Character == nil {
		return ""
	}
	return *r.Character
}

// Normalize repairs a result decoded from backend JSON: nil edits become an
// empty list and an empty-string character becomes nil.
func (r Result) Normalize() Result {
	if r.Edits == nil {
		r.Edits = []string{}
	}
	if r.Character != nil && *r.Character == "" {
		r.Character = nil
	}
	return r
}

// Valid reports whether a backend-produced result is structurally usable.
func (r Result) Valid() bool {
	return r.Action == ActionGenerate || r.Action == ActionEdit
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
