package relay

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/voxpipe/voice-relay/internal/audio"
	"github.com/voxpipe/voice-relay/internal/config"
	"github.com/voxpipe/voice-relay/internal/llm"
	"github.com/voxpipe/voice-relay/internal/observability"
	"github.com/voxpipe/voice-relay/internal/resilience"
	"github.com/voxpipe/voice-relay/internal/stt"
	"github.com/voxpipe/voice-relay/internal/tts"
)

// ErrSessionClosed is returned for operations on a session after teardown.
var ErrSessionClosed = errors.New("session is closed")

// Conn is the slice of the client connection a session needs. Satisfied by
// *websocket.Conn.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Providers bundles the process-wide provider clients. They are stateless
// and shared across all sessions.
type Providers struct {
	Streams   stt.Factory
	Generator llm.Generator
	Synth     tts.Synthesizer
}

// Session owns one client connection. It feeds inbound audio frames into at
// most one live transcription stream, relays transcript events back to the
// client, and triggers exactly one generate-then-synthesize pipeline run per
// final transcript. Pipeline failures never end the stream; stream failures
// end the session.
type Session struct {
	id        string
	conn      Conn
	providers Providers
	config    *config.Config

	// State management
	mu           sync.Mutex
	state        State
	stream       stt.Stream
	consumerDone chan struct{}
	inflight     int
	closed       bool

	// Session counters for the teardown summary
	framesIn     int64
	audioBytesIn int64
	pipelineRuns int64

	// The connection allows one concurrent writer; writeMu serializes all
	// outbound JSON events.
	writeMu sync.Mutex

	metrics *observability.SessionMetrics
	logger  zerolog.Logger
}

// NewSession creates a session for one upgraded client connection.
func NewSession(conn Conn, providers Providers, cfg *config.Config) *Session {
	sessionID := observability.NewSessionID()

	metrics := observability.NewSessionMetrics(sessionID)
	metrics.RecordSessionStart()

	return &Session{
		id:        sessionID,
		conn:      conn,
		providers: providers,
		config:    cfg,
		state:     StateIdle,
		metrics:   metrics,
		logger:    observability.WithSession(sessionID),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// HandleFrame forwards one binary audio frame into the transcription stream,
// opening the stream lazily on the first frame after session start or after
// a prior stream ended. The read loop calls it serially, so frames reach the
// stream in client-send order.
func (s *Session) HandleFrame(ctx context.Context, frame []byte) error {
	stream, err := s.activeStream(ctx)
	if err != nil {
		return err
	}

	if err := stream.Write(frame); err != nil {
		if !errors.Is(err, stt.ErrStreamNotOpen) {
			return fmt.Errorf("failed to forward audio frame: %w", err)
		}
		// The stream ended between the lookup and the write. Wait for its
		// consumer to drain, reopen, and carry the frame over.
		s.mu.Lock()
		if s.stream == stream {
			s.stream = nil
		}
		done := s.consumerDone
		s.mu.Unlock()
		if done != nil {
			<-done
		}

		stream, err = s.activeStream(ctx)
		if err != nil {
			return err
		}
		if err := stream.Write(frame); err != nil {
			return fmt.Errorf("failed to forward audio frame: %w", err)
		}
	}

	s.metrics.RecordAudioBytes("in", int64(len(frame)))
	s.mu.Lock()
	s.framesIn++
	s.audioBytesIn += int64(len(frame))
	s.mu.Unlock()

	if e := s.logger.Debug(); e.Enabled() {
		e.Int("bytes", len(frame)).
			Float64("rms", audio.FrameRMS(frame)).
			Msg("Forwarded audio frame")
	}
	return nil
}

// HandleText handles a non-binary client message. The client contract is
// binary audio frames only; anything else is logged and dropped.
func (s *Session) HandleText(message []byte) {
	s.logger.Debug().Int("bytes", len(message)).Msg("Ignoring non-binary client message")
}

// activeStream returns the live transcription stream, opening one when none
// exists. A prior stream's consumer must have fully drained before a new
// stream is opened, so two streams never coexist.
func (s *Session) activeStream(ctx context.Context) (stt.Stream, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.stream != nil {
		stream := s.stream
		s.mu.Unlock()
		return stream, nil
	}
	done := s.consumerDone
	s.mu.Unlock()

	if done != nil {
		<-done
	}
	return s.openStream(ctx)
}

// openStream dials a new transcription stream and starts its consumer. An
// open failure is a stream error: it is reported to the client and ends the
// session.
func (s *Session) openStream(ctx context.Context) (stt.Stream, error) {
	stream, err := s.providers.Streams.Open(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to open transcription stream")
		s.metrics.RecordStreamOpen(false)
		s.metrics.RecordError("stream_open_error", "stt")
		s.sendError(err.Error())
		s.Teardown()
		return nil, err
	}

	done := make(chan struct{})
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		stream.Close()
		return nil, ErrSessionClosed
	}
	s.transitionLocked(StateStreaming)
	s.stream = stream
	s.consumerDone = done
	s.mu.Unlock()

	s.metrics.RecordStreamOpen(true)
	go s.consumeTranscripts(stream, done)
	return stream, nil
}

// consumeTranscripts drains one stream's events until it ends. A terminal
// stream error is relayed to the client and ends the whole session; a clean
// end returns the session to IDLE so the next frame opens a fresh stream.
func (s *Session) consumeTranscripts(stream stt.Stream, done chan struct{}) {
	defer close(done)

	for result := range stream.Results() {
		if result.Err != nil {
			s.logger.Error().Err(result.Err).Msg("Transcription stream failed")
			s.metrics.RecordError("stream_error", "stt")
			s.sendError(result.Err.Error())
			s.Teardown()
			continue
		}
		s.relayTranscript(result)
	}

	s.clearStream(stream)
}

// relayTranscript forwards one transcript event to the client and triggers
// the downstream pipeline on a final.
func (s *Session) relayTranscript(result stt.Result) {
	s.metrics.RecordTranscript(result.IsFinal)

	event := TranscriptEvent{TranscribedText: result.Text, IsFinal: result.IsFinal}
	if err := s.sendJSON(event); err != nil {
		if errors.Is(err, ErrSessionClosed) {
			return
		}
		s.logger.Warn().Err(err).Msg("Failed to relay transcript")
	} else {
		s.metrics.RecordClientEvent("transcript")
	}

	if result.IsFinal {
		s.logger.Info().Str("transcript", result.Text).Msg("Final transcript received")
		s.startPipeline(result.Text)
	}
}

// startPipeline launches one generate-then-synthesize run for a final
// transcript. Runs are not serialized: a second final arriving while an
// earlier run is in flight starts a second concurrent run, and the client
// correlates results by content.
func (s *Session) startPipeline(transcript string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.inflight++
	s.pipelineRuns++
	if s.state != StateProcessing {
		s.transitionLocked(StateProcessing)
	}
	s.mu.Unlock()

	go s.runPipeline(transcript)
}

// runPipeline executes one pipeline run to completion. Runs are detached
// from the connection's lifetime; results for a session that closed
// mid-flight are dropped, never fatal.
func (s *Session) runPipeline(transcript string) {
	defer s.completePipeline()
	start := time.Now()

	var answer string
	err := resilience.WithTimeout(context.Background(), s.config.GenerationTimeout(), func(ctx context.Context) error {
		var genErr error
		answer, genErr = s.providers.Generator.Generate(ctx, transcript)
		return genErr
	})
	s.metrics.RecordGeneration(time.Since(start), err == nil)
	if err != nil {
		s.logger.Error().Err(err).Bool("timeout", resilience.IsTimeout(err)).Msg("Answer generation failed")
		s.metrics.RecordError("generation_error", "llm")
		s.metrics.RecordPipelineRun(time.Since(start), false)
		s.sendError("Failed to generate a response")
		return
	}

	synthStart := time.Now()
	var audioData []byte
	err = resilience.WithTimeout(context.Background(), s.config.SynthesisTimeout(), func(ctx context.Context) error {
		var synthErr error
		audioData, synthErr = s.providers.Synth.Synthesize(ctx, answer)
		return synthErr
	})
	s.metrics.RecordSynthesis(time.Since(synthStart), err == nil)
	if err != nil {
		s.logger.Error().Err(err).Bool("timeout", resilience.IsTimeout(err)).Msg("Speech synthesis failed")
		s.metrics.RecordError("synthesis_error", "tts")
		s.metrics.RecordPipelineRun(time.Since(start), false)
		s.sendError("Failed to synthesize audio")
		return
	}

	event := AudioEvent{AIAudioBase64: base64.StdEncoding.EncodeToString(audioData)}
	if err := s.sendJSON(event); err != nil {
		if !errors.Is(err, ErrSessionClosed) {
			s.logger.Warn().Err(err).Msg("Failed to send synthesized audio")
		}
	} else {
		s.metrics.RecordClientEvent("audio")
		s.metrics.RecordAudioBytes("out", int64(len(audioData)))
	}

	s.metrics.RecordPipelineRun(time.Since(start), true)
	s.logger.Info().
		Dur("elapsed", time.Since(start)).
		Int("audio_bytes", len(audioData)).
		Msg("Pipeline run completed")
}

// completePipeline retires one in-flight run and returns the session to
// STREAMING once no runs remain.
func (s *Session) completePipeline() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inflight--
	if s.inflight == 0 && s.state == StateProcessing {
		s.transitionLocked(StateStreaming)
	}
}

// clearStream marks a cleanly-ended stream gone so the next audio frame
// opens a fresh one.
func (s *Session) clearStream(stream stt.Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == stream {
		s.stream = nil
	}
	if s.closed {
		return
	}
	if s.state == StateStreaming || s.state == StateProcessing {
		s.transitionLocked(StateIdle)
		s.logger.Info().Msg("Transcription stream ended, session idle")
	}
}

// sendError relays one error event to the client.
func (s *Session) sendError(message string) {
	s.metrics.RecordClientEvent("error")
	if err := s.sendJSON(ErrorEvent{Error: message}); err != nil {
		if !errors.Is(err, ErrSessionClosed) {
			s.logger.Warn().Err(err).Str("message", message).Msg("Failed to send error event")
		}
	}
}

// sendJSON writes one outbound event. Writes after teardown report
// ErrSessionClosed so late pipeline completions can drop their results.
func (s *Session) sendJSON(v interface{}) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrSessionClosed
	}
	return s.conn.WriteJSON(v)
}

// transitionLocked moves the session to a new lifecycle state. Callers must
// hold s.mu.
func (s *Session) transitionLocked(to State) {
	if !transitionValid(s.state, to) {
		s.logger.Warn().
			Err(&InvalidTransitionError{From: s.state, To: to}).
			Msg("Session state transition rejected")
		return
	}
	s.logger.Debug().
		Str("from", s.state.String()).
		Str("to", to.String()).
		Msg("Session state changed")
	s.state = to
}

// Teardown ends the session: the transcription stream is closed, the client
// connection is closed, and no further events are sent. Safe to call any
// number of times and from any goroutine.
func (s *Session) Teardown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	stream := s.stream
	s.stream = nil
	s.transitionLocked(StateClosing)
	framesIn := s.framesIn
	audioBytesIn := s.audioBytesIn
	pipelineRuns := s.pipelineRuns
	s.mu.Unlock()

	if stream != nil {
		if err := stream.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Error closing transcription stream")
		}
	}

	s.writeMu.Lock()
	if err := s.conn.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("Error closing client connection")
	}
	s.writeMu.Unlock()

	s.mu.Lock()
	s.transitionLocked(StateClosed)
	s.mu.Unlock()

	s.metrics.RecordSessionEnd()
	s.logger.Info().
		Int64("frames_in", framesIn).
		Dur("audio_in", audio.Duration(int(audioBytesIn), s.config.TranscribeSampleRate)).
		Int64("pipeline_runs", pipelineRuns).
		Msg("Session closed")
}
