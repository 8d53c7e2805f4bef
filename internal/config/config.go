package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the voice relay service
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"3001"`

	// Deepgram streaming transcription configuration
	DeepgramAPIKey           string `envconfig:"DEEPGRAM_API_KEY" required:"true"`
	TranscribeModel          string `envconfig:"TRANSCRIBE_MODEL" default:"nova-2"`  // nova-2, enhanced, base
	TranscribeLanguage       string `envconfig:"TRANSCRIBE_LANGUAGE" default:"th-TH"` // BCP-47 locale
	TranscribeSampleRate     int    `envconfig:"TRANSCRIBE_SAMPLE_RATE" default:"16000"`
	StreamIdleTimeoutSeconds int    `envconfig:"STREAM_IDLE_TIMEOUT_SECONDS" default:"60"` // no provider event within this window ends the stream

	// Answer generation (OpenAI-compatible chat completions endpoint)
	LLMAPIKey                string `envconfig:"LLM_API_KEY" required:"true"`
	LLMAPIURL                string `envconfig:"LLM_API_URL" default:"https://api.openai.com/v1/chat/completions"`
	LLMModel                 string `envconfig:"LLM_MODEL" default:"gpt-4o-mini"`
	LLMSystemPrompt          string `envconfig:"LLM_SYSTEM_PROMPT" default:"You are a helpful voice assistant. Answer in Thai, in one or two short sentences of plain text. Do not use emoji, markdown, or special symbols."`
	LLMFallbackText          string `envconfig:"LLM_FALLBACK_TEXT" default:"ขอโทษค่ะ ช่วยพูดอีกครั้งได้ไหมคะ"` // spoken when the provider returns an empty answer
	GenerationTimeoutSeconds int    `envconfig:"GENERATION_TIMEOUT_SECONDS" default:"20"`

	// Azure speech synthesis configuration. Key and region are checked per
	// request, not at startup; synthesis is only needed once a reply exists.
	SpeechKey               string `envconfig:"SPEECH_KEY" default:""`
	SpeechRegion            string `envconfig:"SPEECH_REGION" default:"southeastasia"`
	SpeechVoice             string `envconfig:"SPEECH_VOICE" default:"th-TH-AcharaNeural"`
	SpeechOutputFormat      string `envconfig:"SPEECH_OUTPUT_FORMAT" default:"audio-24khz-160kbitrate-mono-mp3"`
	SpeechEndpoint          string `envconfig:"SPEECH_ENDPOINT" default:""` // overrides the region-derived URL when set
	SynthesisTimeoutSeconds int    `envconfig:"SYNTHESIS_TIMEOUT_SECONDS" default:"30"`

	// Conversational-session provider for the signed URL endpoint
	ElevenLabsAPIKey  string `envconfig:"ELEVENLABS_API_KEY" default:""`
	ElevenLabsAgentID string `envconfig:"ELEVENLABS_AGENT_ID" default:""`
	ConvaiBaseURL     string `envconfig:"CONVAI_BASE_URL" default:"https://api.elevenlabs.io"`

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate checks the fields the process cannot start without. Synthesis and
// conversational-session credentials are deliberately absent here: they fail
// per request at the point of use.
func (c *Config) validate() error {
	if c.DeepgramAPIKey == "" {
		return fmt.Errorf("DEEPGRAM_API_KEY is required")
	}
	if c.LLMAPIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required")
	}
	if c.TranscribeSampleRate <= 0 {
		return fmt.Errorf("TRANSCRIBE_SAMPLE_RATE must be positive, got %d", c.TranscribeSampleRate)
	}
	return nil
}

// GenerationTimeout returns the bounded budget for one answer-generation call.
func (c *Config) GenerationTimeout() time.Duration {
	return time.Duration(c.GenerationTimeoutSeconds) * time.Second
}

// SynthesisTimeout returns the bounded budget for one synthesis call.
func (c *Config) SynthesisTimeout() time.Duration {
	return time.Duration(c.SynthesisTimeoutSeconds) * time.Second
}

// StreamIdleTimeout returns the window after which a silent transcription
// stream is considered failed.
func (c *Config) StreamIdleTimeout() time.Duration {
	return time.Duration(c.StreamIdleTimeoutSeconds) * time.Second
}
