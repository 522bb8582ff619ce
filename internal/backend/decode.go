package backend

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/sceneforge/sceneforge/internal/parse"
	"github.com/sceneforge/sceneforge/internal/scene"
	"github.com/sceneforge/sceneforge/internal/voxel"
)

var fencedBlock = regexp.MustCompile("(?is)```(?:json)?\\s*\\n(.*?)```")

// ExtractJSON pulls a JSON object out of model output that may wrap it in
// prose or code fences: a fenced block wins, otherwise the span from the
// first '{' to the last '}'.
func ExtractJSON(text string) (string, bool) {
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1], true
	}
	return "", false
}

const parseResultSchema = `{
  "type": "object",
  "required": ["action"],
  "properties": {
    "action": {"enum": ["generate", "edit"]},
    "character": {"type": ["string", "null"]},
    "edits": {"type": "array", "items": {"type": "string"}}
  }
}`

const genPayloadSchema = `{
  "type": "object",
  "anyOf": [
    {"required": ["objects"]},
    {"required": ["groups"]},
    {"required": ["voxels"]}
  ],
  "properties": {
    "objects": {"type": "array"},
    "groups": {"type": "array"},
    "palette": {"type": "array"},
    "voxels": {"type": "array"}
  }
}`

var (
	parseResultValidator = jsonschema.MustCompileString("parse_result.json", parseResultSchema)
	genPayloadValidator  = jsonschema.MustCompileString("gen_payload.json", genPayloadSchema)
)

// DecodeParseResult extracts, schema-checks, and normalizes a ParseResult
// from raw backend output.
func DecodeParseResult(name, text string) (parse.Result, error) {
	raw, err := validated(name, text, parseResultValidator)
	if err != nil {
		return parse.Result{}, err
	}
	var res parse.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return parse.Result{}, &MalformedOutputError{Name: name, Message: err.Error()}
	}
	res = res.Normalize()
	if !res.Valid() {
		return parse.Result{}, &MalformedOutputError{Name: name, Message: "missing or unknown action"}
	}
	return res, nil
}

// GenPayload is a decoded generation result: a primitive scene or a voxel
// set, both still unsanitized.
type GenPayload struct {
	Scene  *scene.RawGraph
	Voxels *voxel.RawScene
}

// DecodeGenPayload extracts and schema-checks a generation payload from raw
// backend output. A payload carrying voxels wins over an empty scene shell.
func DecodeGenPayload(name, text string) (GenPayload, error) {
	raw, err := validated(name, text, genPayloadValidator)
	if err != nil {
		return GenPayload{}, err
	}

	var probe struct {
		Voxels []json.RawMessage `json:"voxels"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return GenPayload{}, &MalformedOutputError{Name: name, Message: err.Error()}
	}
	if len(probe.Voxels) > 0 {
		var vs voxel.RawScene
		if err := json.Unmarshal(raw, &vs); err != nil {
			return GenPayload{}, &MalformedOutputError{Name: name, Message: err.Error()}
		}
		return GenPayload{Voxels: &vs}, nil
	}

	var g scene.RawGraph
	if err := json.Unmarshal(raw, &g); err != nil {
		return GenPayload{}, &MalformedOutputError{Name: name, Message: err.Error()}
	}
	if len(g.Objects) == 0 && len(g.Groups) == 0 {
		return GenPayload{}, &MalformedOutputError{Name: name, Message: "empty scene payload"}
	}
	return GenPayload{Scene: &g}, nil
}

func validated(name, text string, v *jsonschema.Schema) (json.RawMessage, error) {
	js, ok := ExtractJSON(text)
	if !ok {
		return nil, &MalformedOutputError{Name: name, Message: "no JSON object in output"}
	}
	var doc any
	if err := json.Unmarshal([]byte(js), &doc); err != nil {
		return nil, &MalformedOutputError{Name: name, Message: err.Error()}
	}
	if err := v.Validate(doc); err != nil {
		return nil, &MalformedOutputError{Name: name, Message: err.Error()}
	}
	return json.RawMessage(js), nil
}
