package stt

import (
	"context"
	"fmt"
	"sync"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/voxpipe/voice-relay/internal/config"
	"github.com/voxpipe/voice-relay/internal/observability"
	"github.com/voxpipe/voice-relay/internal/resilience"
)

// resultBuffer bounds the events a slow consumer can leave undrained before
// the stream starts dropping interim hypotheses.
const resultBuffer = 64

// utteranceEndMs closes an utterance after this much trailing silence.
const utteranceEndMs = "1000"

// DeepgramFactory opens live transcription streams against Deepgram.
type DeepgramFactory struct {
	cfg    *config.Config
	logger zerolog.Logger
}

// NewDeepgramFactory creates the process-wide stream factory
func NewDeepgramFactory(cfg *config.Config) *DeepgramFactory {
	return &DeepgramFactory{
		cfg:    cfg,
		logger: observability.WithComponent("stt"),
	}
}

// Open dials one streaming transcription session. Stream options are fixed
// here for the stream's whole lifetime: provider language derived from the
// configured locale, linear PCM at the configured rate, punctuation, interim
// results, and provider-side voice activity detection.
func (f *DeepgramFactory) Open(ctx context.Context) (Stream, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	s := &deepgramStream{
		results: make(chan Result, resultBuffer),
		cancel:  cancel,
		logger:  f.logger.With().Str("stream_id", uuid.New().String()).Logger(),
	}
	s.watchdog = resilience.NewIdleWatchdog(f.cfg.StreamIdleTimeout(), func() {
		s.logger.Warn().Msg("Transcription stream idle timeout")
		s.endStream(&StreamError{Code: "idle_timeout", Message: "no provider activity within the idle window"})
	})

	cOptions := &interfaces.ClientOptions{
		EnableKeepAlive: true,
	}
	tOptions := &interfaces.LiveTranscriptionOptions{
		Model:          f.cfg.TranscribeModel,
		Language:       providerLanguage(f.cfg.TranscribeLanguage),
		Encoding:       "linear16",
		SampleRate:     f.cfg.TranscribeSampleRate,
		Channels:       1,
		Punctuate:      true,
		InterimResults: true,
		UtteranceEndMs: utteranceEndMs,
		VadEvents:      true,
	}

	client, err := listenClient.NewWSUsingCallback(
		streamCtx,
		f.cfg.DeepgramAPIKey,
		cOptions,
		tOptions,
		&streamCallback{stream: s},
	)
	if err != nil {
		s.watchdog.Stop()
		cancel()
		return nil, fmt.Errorf("failed to create transcription client: %w", err)
	}
	s.client = client

	if connected := client.Connect(); !connected {
		s.watchdog.Stop()
		cancel()
		return nil, &StreamError{Code: "connect_failed", Message: "transcription provider refused the connection"}
	}

	s.mu.Lock()
	if s.closed {
		// The idle watchdog fired while the dial was in flight.
		s.mu.Unlock()
		client.Stop()
		return nil, &StreamError{Code: "idle_timeout", Message: "stream timed out while connecting"}
	}
	s.open = true
	s.mu.Unlock()

	s.logger.Info().
		Str("model", tOptions.Model).
		Str("language", tOptions.Language).
		Int("sample_rate", tOptions.SampleRate).
		Msg("Transcription stream opened")
	return s, nil
}

var _ Factory = (*DeepgramFactory)(nil)

// deepgramStream is one live stream. All result emission and termination is
// serialized under mu so the results channel is closed exactly once and
// never written after close.
type deepgramStream struct {
	client   *listenClient.WSCallback
	cancel   context.CancelFunc
	watchdog *resilience.IdleWatchdog
	logger   zerolog.Logger

	mu      sync.Mutex
	results chan Result
	open    bool
	closed  bool
}

var _ Stream = (*deepgramStream)(nil)

// Write sends one audio frame to the provider. A transport failure here is
// terminal for the stream.
func (s *deepgramStream) Write(frame []byte) error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return ErrStreamNotOpen
	}
	client := s.client
	s.mu.Unlock()

	if _, err := client.Write(frame); err != nil {
		s.endStream(&StreamError{Code: "write_failed", Message: err.Error()})
		return fmt.Errorf("failed to send audio frame: %w", err)
	}

	s.watchdog.Reset()
	return nil
}

// Results returns the stream's event channel
func (s *deepgramStream) Results() <-chan Result {
	return s.results
}

// Close ends the stream without a terminal error. Safe to call any number
// of times, including on a stream that already failed.
func (s *deepgramStream) Close() error {
	s.mu.Lock()
	alreadyClosed := s.closed
	client := s.client
	s.mu.Unlock()

	if alreadyClosed {
		return nil
	}

	// Ask the provider to flush and close before cutting the connection.
	if client != nil {
		client.Stop()
	}
	s.endStream(nil)
	return nil
}

// emit forwards one transcript event without blocking the SDK callback
// goroutine. Events arriving after termination are discarded.
func (s *deepgramStream) emit(res Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	select {
	case s.results <- res:
	default:
		s.logger.Warn().Msg("Results channel full, dropping transcript event")
	}
}

// endStream terminates the stream exactly once, delivering err as the final
// Result when set. Every termination path funnels through here: provider
// error, provider close, local Close, write failure, idle timeout.
func (s *deepgramStream) endStream(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.open = false
	if err != nil {
		select {
		case s.results <- Result{Err: err}:
		default:
			s.logger.Warn().Err(err).Msg("Results channel full, terminal error delivered by close only")
		}
	}
	close(s.results)
	s.mu.Unlock()

	s.watchdog.Stop()
	s.cancel()
}

// streamCallback translates SDK events into stream results.
type streamCallback struct {
	stream *deepgramStream
}

var _ msginterfaces.LiveMessageCallback = (*streamCallback)(nil)

func (c *streamCallback) Open(or *msginterfaces.OpenResponse) error {
	c.stream.logger.Debug().Msg("Provider connection opened")
	c.stream.watchdog.Reset()
	return nil
}

func (c *streamCallback) Message(mr *msginterfaces.MessageResponse) error {
	c.stream.watchdog.Reset()

	if len(mr.Channel.Alternatives) == 0 {
		return nil
	}
	alt := mr.Channel.Alternatives[0]
	if alt.Transcript == "" {
		return nil
	}

	c.stream.emit(Result{Text: alt.Transcript, IsFinal: mr.IsFinal})
	return nil
}

func (c *streamCallback) Metadata(md *msginterfaces.MetadataResponse) error {
	c.stream.logger.Debug().Str("request_id", md.RequestID).Msg("Provider metadata received")
	c.stream.watchdog.Reset()
	return nil
}

func (c *streamCallback) SpeechStarted(ssr *msginterfaces.SpeechStartedResponse) error {
	c.stream.logger.Debug().Msg("Speech started")
	c.stream.watchdog.Reset()
	return nil
}

func (c *streamCallback) UtteranceEnd(ur *msginterfaces.UtteranceEndResponse) error {
	c.stream.logger.Debug().Msg("Utterance ended")
	c.stream.watchdog.Reset()
	return nil
}

func (c *streamCallback) Close(cr *msginterfaces.CloseResponse) error {
	c.stream.logger.Info().Msg("Provider closed the stream")
	c.stream.endStream(nil)
	return nil
}

func (c *streamCallback) Error(er *msginterfaces.ErrorResponse) error {
	c.stream.logger.Error().
		Str("error_code", er.ErrCode).
		Str("error_message", er.ErrMsg).
		Msg("Provider stream error")
	c.stream.endStream(&StreamError{Code: er.ErrCode, Message: er.ErrMsg})
	return nil
}

func (c *streamCallback) UnhandledEvent(byData []byte) error {
	c.stream.logger.Debug().Str("data", string(byData)).Msg("Unhandled provider event")
	return nil
}
