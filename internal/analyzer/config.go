package analyzer

import "time"

type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// Config selects the text-generation backend and bounds the analysis call.
type Config struct {
	Provider Provider `yaml:"provider"`
	Model    string   `yaml:"model"`

	// APIKey may be empty; generation then reports ErrMissingCredential
	// and the adapter degrades instead of failing.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `yaml:"base_url"`

	// Timeout bounds one analysis call.
	Timeout time.Duration `yaml:"timeout"`

	MaxTokens int `yaml:"max_tokens"`

	// HistoryCapacity is K, the analysis results retained.
	HistoryCapacity int `yaml:"history_capacity"`

	// TrendContext is how many recent trends are sent along for continuity.
	TrendContext int `yaml:"trend_context"`
}

func DefaultConfig() Config {
	return Config{
		Provider:        ProviderAnthropic,
		Timeout:         60 * time.Second,
		MaxTokens:       2048,
		HistoryCapacity: 100,
		TrendContext:    3,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Provider == "" {
		c.Provider = def.Provider
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = def.MaxTokens
	}
	if c.HistoryCapacity <= 0 {
		c.HistoryCapacity = def.HistoryCapacity
	}
	if c.TrendContext < 0 {
		c.TrendContext = 0
	}
	return c
}
