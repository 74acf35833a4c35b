package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/raysh454/observer/internal/logging"
	"github.com/raysh454/observer/internal/webclient"
)

// DefaultAnthropicModel is used when analysis.model is empty.
const DefaultAnthropicModel = "claude-sonnet-4-5"

const (
	anthropicAPIVersion = "2023-06-01"
	anthropicDefaultURL = "https://api.anthropic.com/v1/messages"
)

type anthropicRequest struct {
	Model     string             `json:"model"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	MaxTokens int                `json:"max_tokens"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// AnthropicGenerator calls the Messages API over the webclient transport.
type AnthropicGenerator struct {
	wc        webclient.WebClient
	apiKey    string
	model     string
	url       string
	maxTokens int
	logger    logging.Logger
}

func NewAnthropicGenerator(cfg Config, wc webclient.WebClient, logger logging.Logger) *AnthropicGenerator {
	cfg = cfg.withDefaults()
	g := &AnthropicGenerator{
		wc:        wc,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		url:       cfg.BaseURL,
		maxTokens: cfg.MaxTokens,
		logger:    logging.OrNop(logger).With(logging.Field{Key: "provider", Value: "anthropic"}),
	}
	if g.model == "" {
		g.model = DefaultAnthropicModel
	}
	if g.url == "" {
		g.url = anthropicDefaultURL
	}
	return g
}

func (g *AnthropicGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	if g.apiKey == "" {
		return "", ErrMissingCredential
	}
	if g.wc == nil {
		return "", fmt.Errorf("anthropic: webclient is nil")
	}

	body, err := json.Marshal(anthropicRequest{
		Model:     g.model,
		System:    system,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
		MaxTokens: g.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: marshal request: %w", err)
	}

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set("x-api-key", g.apiKey)
	headers.Set("anthropic-version", anthropicAPIVersion)

	resp, err := g.wc.Do(ctx, &webclient.Request{
		Method:  http.MethodPost,
		URL:     g.url,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil && resp.OK() {
		return "", fmt.Errorf("anthropic: decode response: %w", err)
	}
	if !resp.OK() {
		msg := strings.TrimSpace(string(resp.Body))
		if parsed.Error != nil {
			msg = parsed.Error.Type + ": " + parsed.Error.Message
		}
		g.logger.Warn("anthropic request rejected",
			logging.Field{Key: "status", Value: resp.StatusCode})
		return "", fmt.Errorf("anthropic: status %d: %s", resp.StatusCode, msg)
	}

	var sb strings.Builder
	for _, c := range parsed.Content {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("anthropic: empty response")
	}
	return sb.String(), nil
}
