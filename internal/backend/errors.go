package backend

import (
	"errors"
	"fmt"
	"strings"
)

// Error is the unified error interface returned by backend adapters and the
// decoding helpers. Recoverable errors are absorbed by the fallback chains
// and surface only as informational status events.
type Error interface {
	error
	Backend() string
	Recoverable() bool
}

// UnavailableError reports an unreachable or timed-out backend.
type UnavailableError struct {
	Name    string
	Message string
}

func (e *UnavailableError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "backend unavailable"
	}
	return fmt.Sprintf("%s: %s", e.Name, msg)
}
func (e *UnavailableError) Backend() string { return e.Name }
func (e *UnavailableError) Recoverable() bool { return true }

// MalformedOutputError reports backend output that is not parseable JSON or
// fails schema checks. Treated identically to UnavailableError by chains.
type MalformedOutputError struct {
	Name    string
	Message string
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("%s: malformed output: %s", e.Name, strings.TrimSpace(e.Message))
}
func (e *MalformedOutputError) Backend() string { return e.Name }
func (e *MalformedOutputError) Recoverable() bool { return true }

// ConfigurationError reports a misconfigured backend; not recoverable by
// falling through the chain.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + strings.TrimSpace(e.Message)
}
func (e *ConfigurationError) Backend() string { return "" }
func (e *ConfigurationError) Recoverable() bool { return false }

// IsRecoverable reports whether err allows the chain to try the next tier.
func IsRecoverable(err error) bool {
	var be Error
	if errors.As(err, &be) {
		return be.Recoverable()
	}
	// Unknown failures from a single tier are treated as recoverable; the
	// chain always has a pure fallback at the end.
	return true
}
