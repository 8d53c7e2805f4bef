package llm

import (
	"bytes"
	"context"
	"encoding/json"
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

// OpenAIClient calls an OpenAI-compatible chat-completions endpoint. One
// instance is shared by all sessions; every call is independent.
type OpenAIClient struct {
	httpClient   *http.Client
	apiKey       string
	endpoint     string
	model        string
	systemPrompt string
	fallbackText string
	logger       zerolog.Logger
}

var _ Generator = (*OpenAIClient)(nil)

// NewOpenAIClient creates the process-wide answer generator
func NewOpenAIClient(cfg *config.Config) *OpenAIClient {
	return &OpenAIClient{
		httpClient:   &http.Client{Timeout: cfg.GenerationTimeout()},
		apiKey:       cfg.LLMAPIKey,
		endpoint:     cfg.LLMAPIURL,
		model:        cfg.LLMModel,
		systemPrompt: cfg.LLMSystemPrompt,
		fallbackText: cfg.LLMFallbackText,
		logger:       observability.WithComponent("llm"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	FinishReason string      `json:"finish_reason"`
	Message      chatMessage `json:"message"`
}

type chatCompletionsResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

type providerErrorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends the finalized transcript as the user message, with the
// configured instruction template as the system message. A success response
// that is missing the answer yields the configured fallback text instead of
// an error: the user must always get some spoken reply.
func (c *OpenAIClient) Generate(ctx context.Context, promptText string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("generation api key missing")
	}

	messages := make([]chatMessage, 0, 2)
	if c.systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: c.systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: promptText})

	body, err := json.Marshal(chatCompletionsRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("failed to encode generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build generation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &GenerationError{
			StatusCode:      resp.StatusCode,
			ProviderMessage: providerMessage(resp.StatusCode, raw),
		}
	}

	var cr chatCompletionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		c.logger.Warn().Err(err).Msg("Malformed generation payload, using fallback text")
		return c.fallbackText, nil
	}

	answer := ""
	if len(cr.Choices) > 0 {
		answer = strings.TrimSpace(cr.Choices[0].Message.Content)
	}
	if answer == "" {
		c.logger.Warn().Msg("Generation payload missing an answer, using fallback text")
		return c.fallbackText, nil
	}

	return answer, nil
}

// providerMessage extracts the human-readable message from a provider error
// body, falling back to the raw body and then the HTTP status text.
func providerMessage(statusCode int, raw []byte) string {
	var envelope providerErrorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}

	if msg := strings.TrimSpace(string(raw)); msg != "" {
		return msg
	}
	return http.StatusText(statusCode)
}
