package llm

import (
	"context"
	"fmt"
)

// Generator produces a short text answer for a finalized transcript. One
// logical request/response call; no partial results.
type Generator interface {
	Generate(ctx context.Context, promptText string) (string, error)
}

// GenerationError is a non-success response from the language-model
// provider. It never tears down the session; the caller reports it to the
// client as a single error event.
type GenerationError struct {
	StatusCode      int
	ProviderMessage string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: status=%d message=%s", e.StatusCode, e.ProviderMessage)
}
