package analyzer

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/raysh454/observer/internal/logging"
)

const openAIDefaultModel = "gpt-4o-mini"

// OpenAIGenerator uses the chat completions API.
type OpenAIGenerator struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    logging.Logger
}

func NewOpenAIGenerator(cfg Config, logger logging.Logger) *OpenAIGenerator {
	cfg = cfg.withDefaults()
	g := &OpenAIGenerator{
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logging.OrNop(logger).With(logging.Field{Key: "provider", Value: "openai"}),
	}
	if g.model == "" {
		g.model = openAIDefaultModel
	}
	if cfg.APIKey != "" {
		oc := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			oc.BaseURL = cfg.BaseURL
		}
		g.client = openai.NewClientWithConfig(oc)
	}
	return g
}

func (g *OpenAIGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	if g.client == nil {
		return "", ErrMissingCredential
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: g.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned")
	}
	g.logger.Debug("openai completion received",
		logging.Field{Key: "finish_reason", Value: string(resp.Choices[0].FinishReason)})
	return resp.Choices[0].Message.Content, nil
}
