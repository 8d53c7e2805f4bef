package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voxpipe/voice-relay/internal/config"
	"github.com/voxpipe/voice-relay/internal/convai"
	"github.com/voxpipe/voice-relay/internal/llm"
	"github.com/voxpipe/voice-relay/internal/observability"
	"github.com/voxpipe/voice-relay/internal/relay"
	"github.com/voxpipe/voice-relay/internal/stt"
	"github.com/voxpipe/voice-relay/internal/tts"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("transcribe_language", cfg.TranscribeLanguage).
		Str("llm_model", cfg.LLMModel).
		Str("speech_voice", cfg.SpeechVoice).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Voice Relay Service starting")

	providers := relay.Providers{
		Streams:   stt.NewDeepgramFactory(cfg),
		Generator: llm.NewOpenAIClient(cfg),
		Synth:     tts.NewAzureClient(cfg),
	}
	sessions := convai.NewClient(cfg)

	// Create HTTP server
	mux := http.NewServeMux()

	// Browser audio WebSocket handler
	mux.HandleFunc("/ws", relay.HandleClientWS(cfg, providers))

	// Signed URL endpoint for the conversational-session provider
	mux.HandleFunc("/api/get-signed-url", withCORS(sessions.Handler()))

	// Health check endpoint
	mux.HandleFunc("/health", observability.HealthCheckHandler())

	// Readiness checks validate credentials without spending provider quota.
	checks := map[string]observability.HealthCheckFunc{
		"deepgram": func(ctx context.Context) (bool, error) {
			if cfg.DeepgramAPIKey == "" {
				return false, fmt.Errorf("DEEPGRAM_API_KEY is not set")
			}
			return true, nil
		},
		"llm": func(ctx context.Context) (bool, error) {
			if cfg.LLMAPIKey == "" {
				return false, fmt.Errorf("LLM_API_KEY is not set")
			}
			return true, nil
		},
		// Every pipeline run needs synthesis, so a missing speech key keeps
		// the service not_ready. The signed-URL collaborator is optional and
		// does not gate readiness.
		"speech": func(ctx context.Context) (bool, error) {
			if cfg.SpeechKey == "" {
				return false, fmt.Errorf("SPEECH_KEY is not set")
			}
			if cfg.SpeechRegion == "" && cfg.SpeechEndpoint == "" {
				return false, fmt.Errorf("SPEECH_REGION is not set")
			}
			return true, nil
		},
	}
	mux.HandleFunc("/ready", observability.ReadinessHandler(checks))

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("ws://localhost:%s/ws", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}

// withCORS allows browser pages served from another origin to call the REST
// route. Preflight requests are answered here so the handler only sees GETs.
func withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}
