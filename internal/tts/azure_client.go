package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/voxpipe/voice-relay/internal/config"
	"github.com/voxpipe/voice-relay/internal/observability"
)

// maxErrorBody caps how much of a provider error body is kept for reporting.
const maxErrorBody = 2048

// AzureClient synthesizes speech through the Azure Cognitive Services Speech
// REST API. The endpoint is derived from the configured region unless an
// explicit endpoint override is set.
type AzureClient struct {
	httpClient   *http.Client
	key          string
	endpoint     string
	voice        string
	outputFormat string
	logger       zerolog.Logger
}

var _ Synthesizer = (*AzureClient)(nil)

// NewAzureClient creates the process-wide speech synthesizer
func NewAzureClient(cfg *config.Config) *AzureClient {
	endpoint := cfg.SpeechEndpoint
	if endpoint == "" && cfg.SpeechRegion != "" {
		endpoint = fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", cfg.SpeechRegion)
	}

	return &AzureClient{
		httpClient:   &http.Client{Timeout: cfg.SynthesisTimeout()},
		key:          cfg.SpeechKey,
		endpoint:     endpoint,
		voice:        cfg.SpeechVoice,
		outputFormat: cfg.SpeechOutputFormat,
		logger:       observability.WithComponent("tts"),
	}
}

// Synthesize renders text with the configured voice and output format and
// returns the full audio buffer. Completed maps to HTTP 200 with audio
// bytes; any other provider response is a canceled synthesis.
func (c *AzureClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if c.key == "" {
		return nil, &ConfigError{Missing: "SPEECH_KEY"}
	}
	if c.endpoint == "" {
		return nil, &ConfigError{Missing: "SPEECH_REGION"}
	}

	ssml := buildSSML(c.voice, text)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(ssml))
	if err != nil {
		return nil, fmt.Errorf("failed to build synthesis request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", c.outputFormat)
	req.Header.Set("User-Agent", "voice-relay")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &SynthesisError{
			Reason: fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
			Detail: strings.TrimSpace(string(detail)),
		}
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	if len(audioData) == 0 {
		return nil, &SynthesisError{Reason: "empty_audio", Detail: "provider returned no audio data"}
	}

	c.logger.Debug().Int("bytes", len(audioData)).Str("voice", c.voice).Msg("Synthesis completed")
	return audioData, nil
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&apos;",
	`"`, "&quot;",
)

// buildSSML wraps text in the minimal SSML document the REST endpoint
// requires. The document language follows the voice's locale.
func buildSSML(voice, text string) string {
	return fmt.Sprintf(
		"<speak version='1.0' xml:lang='%s'><voice name='%s'>%s</voice></speak>",
		voiceLocale(voice),
		xmlEscaper.Replace(voice),
		xmlEscaper.Replace(text),
	)
}

// voiceLocale extracts the locale prefix from a voice name like
// "th-TH-AcharaNeural".
func voiceLocale(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) >= 2 && parts[0] != "" && parts[1] != "" {
		return parts[0] + "-" + parts[1]
	}
	return "en-US"
}
