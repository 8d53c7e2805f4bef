package tts

import (
	"context"
	"fmt"
)

// Synthesizer converts a short text reply into a finite audio buffer. The
// buffer is base64-encoded only at the client transport boundary, never
// here. One instance is shared by all sessions; every call is independent.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// SynthesisError means the provider received the request and declined or
// canceled it. Reason carries the provider's cancellation reason, Detail its
// explanation text.
type SynthesisError struct {
	Reason string
	Detail string
}

func (e *SynthesisError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("synthesis canceled: %s", e.Reason)
	}
	return fmt.Sprintf("synthesis canceled: %s: %s", e.Reason, e.Detail)
}

// TransportError means the provider could not be reached at all. Kept
// distinct from SynthesisError so callers can tell "provider declined" from
// "network problem".
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("synthesis transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ConfigError reports missing synthesis credentials at the point of use.
// Synthesis credentials are not required at startup, so their absence fails
// individual requests rather than the process.
type ConfigError struct {
	Missing string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("synthesis not configured: %s is not set", e.Missing)
}
