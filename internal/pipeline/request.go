package pipeline

import "github.com/sceneforge/sceneforge/internal/scene"

// Request is the pipeline invocation payload as received on the wire.
type Request struct {
	Prompt        string          `json:"prompt"`
	ImageURL      string          `json:"image_url,omitempty"`
	Scene         *scene.RawGraph `json:"scene,omitempty"`
	Style         string          `json:"style,omitempty"`
	Pose          string          `json:"pose,omitempty"`
	Seed          int64           `json:"seed,omitempty"`
	Resolution    int             `json:"resolution,omitempty"`
	Mode          string          `json:"mode,omitempty"`
	Voxel         bool            `json:"voxel,omitempty"`
	AllowFallback *bool           `json:"allow_fallback,omitempty"`
}

// FallbackAllowed reports whether a failed job delegation may fall back to
// local generation. Unset means yes.
func (r Request) FallbackAllowed() bool {
	return r.AllowFallback == nil || *r.AllowFallback
}
