package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	generateVerb = regexp.MustCompile(`(make|build|create|generate|construct)\b`)
	editVerb     = regexp.MustCompile(`taller|shorter|bigger|smaller|raise|lower|rotate|move|translate|recolor|color|paint|change`)

	// First match wins.
	knownSubjects = []string{"naruto", "goku", "robot", "humanoid", "chair", "table"}

	raiseArm  = regexp.MustCompile(`(raise|lift) (his|the) arm`)
	floorDims = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*[x×]\s*(\d+(?:\.\d+)?)`)
	addFloor  = regexp.MustCompile(`(add|make|create|place|put)\s+(a\s+)?(floor|flooring)(\s+below|\s+under|\s+on the ground)?`)
	floorPrep = regexp.MustCompile(`(floor|flooring)\s+(below|under)`)
)

// Heuristic is the dependency-free parser of last resort. It is pure over
// the lowercased prompt text and cannot fail.
func Heuristic(prompt string) Result {
	lower := strings.ToLower(strings.TrimSpace(prompt))

	hasGenerateVerb := generateVerb.MatchString(lower)
	hasEditVerb := editVerb.MatchString(lower)

	var subject string
	for _, k := range knownSubjects {
		if strings.Contains(lower, k) {
			subject = k
			break
		}
	}

	edits := []string{}
	if strings.Contains(lower, "taller") {
		edits = append(edits, "scale_y:1.2")
	}
	if strings.Contains(lower, "shorter") {
		edits = append(edits, "scale_y:0.8")
	}
	if strings.Contains(lower, "bigger") {
		edits = append(edits, "uniform_scale:1.2")
	}
	if strings.Contains(lower, "smaller") {
		edits = append(edits, "uniform_scale:0.8")
	}
	if strings.Contains(lower, "blonde hair") || strings.Contains(lower, "blond hair") {
		edits = append(edits, "hair_color:blonde")
	}
	if strings.Contains(lower, "raise left arm") {
		edits = append(edits, "arm_left:rotate_z:0.4")
	}
	if strings.Contains(lower, "raise right arm") {
		edits = append(edits, "arm_right:rotate_z:-0.4")
	}
	if raiseArm.MatchString(lower) {
		edits = append(edits, "arm_right:rotate_z:-0.4")
	}

	hasFloor := false
	if addFloor.MatchString(lower) || floorPrep.MatchString(lower) {
		w, d := 5.0, 5.0
		if m := floorDims.FindStringSubmatch(lower); m != nil {
			w, _ = strconv.ParseFloat(m[1], 64)
			d, _ = strconv.ParseFloat(m[2], 64)
		}
		edits = append(edits, fmt.Sprintf("add_floor:%sx%s", trimFloat(w), trimFloat(d)))
		hasFloor = true
	}

	action := resolveAction(subject, hasFloor, hasGenerateVerb, hasEditVerb, len(edits))

	res := Result{Action: action, Edits: edits}
	if subject != "" {
		c := capitalize(subject)
		res.Character = &c
	}
	return res
}

// resolveAction applies the fixed precedence: adding a floor always augments
// the current scene, a known subject without edit tokens (or alongside a
// generate verb) means a fresh build, a bare edit verb means an edit, and
// everything else defaults to generate.
func resolveAction(subject string, hasFloor, hasGenerateVerb, hasEditVerb bool, editCount int) Action {
	switch {
	case hasFloor:
		return ActionEdit
	case subject != "" && editCount == 0:
		return ActionGenerate
	case subject != "" && hasGenerateVerb:
		return ActionGenerate
	case hasEditVerb && !hasGenerateVerb:
		return ActionEdit
	case subject == "" && hasEditVerb:
		return ActionEdit
	default:
		return ActionGenerate
	}
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
