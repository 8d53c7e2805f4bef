package stt

import (
	"context"
	"errors"
	"fmt"
)

// Result is one event from a transcription stream: an interim or final
// transcript hypothesis, or a terminal error. A Result carrying Err is the
// last event a stream ever delivers; the results channel closes after it.
type Result struct {
	Text    string
	IsFinal bool
	Err     error
}

// Stream is one live duplex transcription stream. Configuration (language,
// sample rate, punctuation, VAD) is fixed when the stream is opened and
// cannot change mid-stream.
type Stream interface {
	// Write appends one raw audio frame to the stream in call order.
	// Writing to a stream that never connected, was closed, or terminally
	// failed returns ErrStreamNotOpen.
	Write(frame []byte) error

	// Results returns the stream's events in provider emission order. The
	// channel closes once the stream ends, cleanly or after a terminal
	// error Result.
	Results() <-chan Result

	// Close ends the stream. Idempotent: closing an already-closed stream
	// is a no-op.
	Close() error
}

// Factory opens transcription streams. One factory is constructed at process
// start and shared by all sessions; each Open call yields an independent
// stream owned by a single session.
type Factory interface {
	Open(ctx context.Context) (Stream, error)
}

// ErrStreamNotOpen indicates a write against a stream that is not open.
var ErrStreamNotOpen = errors.New("transcription stream is not open")

// StreamError is a terminal transcription provider failure. It ends the
// stream and, by session policy, the client connection.
type StreamError struct {
	Code    string
	Message string
}

func (e *StreamError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("transcription stream error: %s", e.Message)
	}
	return fmt.Sprintf("transcription stream error [%s]: %s", e.Code, e.Message)
}
