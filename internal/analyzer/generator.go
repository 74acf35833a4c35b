package analyzer

import (
	"context"
	"errors"
	"fmt"

	"github.com/raysh454/observer/internal/logging"
	"github.com/raysh454/observer/internal/webclient"
)

// ErrMissingCredential is returned by generators that have no API key.
var ErrMissingCredential = errors.New("analyzer: missing API credential")

// Generator sends one system instruction and prompt to a text-generation
// model and returns its free-text reply.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// NewGenerator builds the Generator named by cfg.Provider. wc is the
// transport for providers spoken over plain HTTP.
func NewGenerator(cfg Config, wc webclient.WebClient, logger logging.Logger) (Generator, error) {
	cfg = cfg.withDefaults()
	switch cfg.Provider {
	case ProviderAnthropic:
		return NewAnthropicGenerator(cfg, wc, logger), nil
	case ProviderOpenAI:
		return NewOpenAIGenerator(cfg, logger), nil
	default:
		return nil, fmt.Errorf("analyzer: unknown provider %q", cfg.Provider)
	}
}
