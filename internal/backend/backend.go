// Package backend defines the inference backend interface consumed by the
// pipeline's fallback chains, plus the shared plumbing for digging a JSON
// object out of model output and validating it before acceptance.
package backend

import "context"

// Chat is one inference backend. Implementations issue a single
// system+user chat call and return the raw assistant text; callers bound
// each call with a context deadline.
type Chat interface {
	Name() string

	// Probe reports whether the backend is currently worth attempting.
	// It must return quickly (implementations use short internal timeouts).
	Probe(ctx context.Context) bool

	Chat(ctx context.Context, system, user string) (string, error)
}
