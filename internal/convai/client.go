package convai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/voxpipe/voice-relay/internal/config"
	"github.com/voxpipe/voice-relay/internal/observability"
)

const maxErrorBody = 2048

// Client fetches short-lived signed conversation URLs from the ElevenLabs
// conversational AI API on behalf of browser clients, so the API key never
// leaves the server.
type Client struct {
	httpClient *http.Client
	apiKey     string
	agentID    string
	baseURL    string
	logger     zerolog.Logger
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiKey:     cfg.ElevenLabsAPIKey,
		agentID:    cfg.ElevenLabsAgentID,
		baseURL:    cfg.ConvaiBaseURL,
		logger:     observability.WithComponent("convai"),
	}
}

// SignedURL requests a signed conversation URL for the configured agent and
// returns the provider's JSON payload unmodified.
func (c *Client) SignedURL(ctx context.Context) ([]byte, error) {
	if c.apiKey == "" {
		return nil, errors.New("ELEVENLABS_API_KEY is not set")
	}
	if c.agentID == "" {
		return nil, errors.New("ELEVENLABS_AGENT_ID is not set")
	}

	endpoint := fmt.Sprintf("%s/v1/convai/conversation/get_signed_url?agent_id=%s",
		strings.TrimRight(c.baseURL, "/"), url.QueryEscape(c.agentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build signed URL request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("signed URL request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("signed URL request rejected: status=%d body=%s",
			resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read signed URL response: %w", err)
	}
	return payload, nil
}

// Handler serves the signed URL endpoint. Provider payloads pass through
// verbatim; every failure collapses to one opaque 500 response so provider
// details never reach the browser.
func (c *Client) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		payload, err := c.SignedURL(r.Context())
		if err != nil {
			c.logger.Error().Err(err).Msg("Failed to get signed URL")
			observability.RecordSignedURLRequest(false)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":"Failed to get signed URL"}`))
			return
		}

		observability.RecordSignedURLRequest(true)
		w.Header().Set("Content-Type", "application/json")
		w.Write(payload)
	}
}
