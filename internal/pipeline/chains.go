package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sceneforge/sceneforge/internal/backend"
	"github.com/sceneforge/sceneforge/internal/parse"
	"github.com/sceneforge/sceneforge/internal/scene"
	"github.com/sceneforge/sceneforge/internal/voxel"
)

// backendTier is one rung of the fallback ladder: an inference backend plus
// its per-call deadlines.
type backendTier struct {
	chat            backend.Chat
	parseTimeout    time.Duration
	generateTimeout time.Duration
}

var parseSystemPrompt = "You are a command parser for a 3D scene editor.\n" +
	"Output STRICT JSON only with this schema:\n" +
	"{\n" +
	"  \"action\": \"generate\" | \"edit\",\n" +
	"  \"character\": string | null,\n" +
	"  \"edits\": string[]\n" +
	"}\n" +
	"Where edits are tokens like:\n" +
	"- scale_y:FLOAT\n" +
	"- uniform_scale:FLOAT\n" +
	"- hair_color:blonde\n" +
	"- arm_left:rotate_z:FLOAT\n" +
	"- arm_right:rotate_z:FLOAT\n" +
	"- add_floor:WxD  (e.g., add_floor:5x5)\n" +
	"Choose action=generate when the user asks to make/create a new character/object.\n" +
	"Choose action=edit when the user asks to modify or add parts to the current scene."

var generateSystemPrompt = "You are a 3D scene generator that outputs a JSON scene.\n" +
	"Output STRICT JSON only with this schema:\n" +
	"{\n" +
	"  \"objects\": Array<\n" +
	"    { id: string, object: 'cube'|'sphere'|'cylinder'|'plane',\n" +
	"      dimensions: number[], position: number[], rotation: number[], material?: string }\n" +
	"  >,\n" +
	"  \"groups\": Array<\n" +
	"    { id: string, position?: number[], children: Array<\n" +
	"        { id: string, object: 'cube'|'sphere'|'cylinder'|'plane',\n" +
	"          dimensions: number[], position: number[], rotation: number[], material?: string }\n" +
	"      > }\n" +
	"  >\n" +
	"}\n" +
	"Constraints:\n" +
	"- Use only the allowed primitive object types.\n" +
	"- dimensions for cube/box: [width, height, depth].\n" +
	"- dimensions for sphere: [diameter, _, _] (use diameter in [0.1, 5]).\n" +
	"- dimensions for cylinder: [diameter, height, diameter].\n" +
	"- dimensions for plane: [width, height, 0.01].\n" +
	"- position: [x,y,z]; rotation: [rx,ry,rz] in radians.\n" +
	"- Keep y around ground (y~0) when appropriate.\n" +
	"- Keep JSON compact and valid. No comments or extra text."

// parsePrompt runs the parser chain: each backend tier in order, then the
// heuristic. It cannot fail.
func (c *Coordinator) parsePrompt(ctx context.Context, prompt string, emit Emitter) parse.Result {
	for _, t := range c.tiers {
		statusf(emit, "Checking %s connectivity...", t.chat.Name())
		if !t.chat.Probe(ctx) {
			statusf(emit, "%s connected: no", t.chat.Name())
			continue
		}
		statusf(emit, "%s connected: yes", t.chat.Name())

		statusf(emit, "Parsing prompt via %s...", t.chat.Name())
		res, err := c.parseWith(ctx, t, prompt, emit)
		if err != nil {
			statusf(emit, "%s parsing failed", t.chat.Name())
			if !backend.IsRecoverable(err) {
				break
			}
			continue
		}
		statusf(emit, "Parsed with %s", t.chat.Name())
		return res
	}
	statusf(emit, "Backends unavailable, using heuristic parser")
	return parse.Heuristic(prompt)
}

func (c *Coordinator) parseWith(ctx context.Context, t backendTier, prompt string, emit Emitter) (parse.Result, error) {
	stopHB := startHeartbeat(ctx, emit, c.heartbeat, "Still parsing...")
	defer stopHB()

	tctx, cancel := context.WithTimeout(ctx, t.parseTimeout)
	defer cancel()
	text, err := t.chat.Chat(tctx, parseSystemPrompt, prompt)
	if err != nil {
		return parse.Result{}, err
	}
	return backend.DecodeParseResult(t.chat.Name(), text)
}

// genOutcome is a generator chain result: exactly one of graph or voxels is
// set, both already sanitized.
type genOutcome struct {
	graph  *scene.Graph
	voxels *voxel.Scene
}

// generateScene runs the generator chain: each backend tier in order, then
// the template catalog. It cannot fail.
func (c *Coordinator) generateScene(ctx context.Context, req Request, res parse.Result, emit Emitter) genOutcome {
	user := generateUserPrompt(req, res)
	for _, t := range c.tiers {
		if !t.chat.Probe(ctx) {
			continue
		}
		statusf(emit, "Generating model via %s...", t.chat.Name())
		out, err := c.generateWith(ctx, t, user, emit)
		if err != nil {
			statusf(emit, "%s generation failed", t.chat.Name())
			if !backend.IsRecoverable(err) {
				break
			}
			continue
		}
		statusf(emit, "%s generation succeeded", t.chat.Name())
		return out
	}
	statusf(emit, "Generating base model from the template catalog...")
	g := scene.Template(res.Subject())
	return genOutcome{graph: &g}
}

func (c *Coordinator) generateWith(ctx context.Context, t backendTier, user string, emit Emitter) (genOutcome, error) {
	stopHB := startHeartbeat(ctx, emit, c.heartbeat, "Still generating...")
	defer stopHB()

	tctx, cancel := context.WithTimeout(ctx, t.generateTimeout)
	defer cancel()
	text, err := t.chat.Chat(tctx, generateSystemPrompt, user)
	if err != nil {
		return genOutcome{}, err
	}
	payload, err := backend.DecodeGenPayload(t.chat.Name(), text)
	if err != nil {
		return genOutcome{}, err
	}
	if payload.Voxels != nil {
		v := voxel.Sanitize(*payload.Voxels)
		return genOutcome{voxels: &v}, nil
	}
	g := scene.Sanitize(*payload.Scene)
	return genOutcome{graph: &g}, nil
}

func generateUserPrompt(req Request, res parse.Result) string {
	var prompt string
	if subject := res.Subject(); subject != "" {
		prompt = fmt.Sprintf("Generate a simple %s model using primitives from the schema.", subject)
	} else {
		prompt = "Generate a simple model for: " + req.Prompt
	}
	if req.ImageURL != "" {
		prompt += "\nImage URL: " + req.ImageURL
	}
	return prompt
}
