package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/raysh454/observer/internal/analyzer"
	"github.com/raysh454/observer/internal/archive"
	"github.com/raysh454/observer/internal/diff"
	"github.com/raysh454/observer/internal/fetcher"
	"github.com/raysh454/observer/internal/notify"
	"github.com/raysh454/observer/internal/pipeline"
	"github.com/raysh454/observer/internal/report"
	"github.com/raysh454/observer/internal/scheduler"
	"github.com/raysh454/observer/internal/server"
	"github.com/raysh454/observer/internal/tracker"
	"github.com/raysh454/observer/internal/webclient"
)

// Environment variables that override the config file.
const (
	EnvAnalysisAPIKey  = "OBSERVER_ANALYSIS_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvNotifyWebhook   = "OBSERVER_NOTIFY_WEBHOOK"
	EnvNATSURL         = "OBSERVER_NATS_URL"
)

type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// Config aggregates the per-package configuration.
type Config struct {
	Log       LogConfig        `yaml:"log"`
	Server    server.Config    `yaml:"server"`
	WebClient webclient.Config `yaml:"webclient"`
	Fetcher   fetcher.Config   `yaml:"fetcher"`
	Tracker   tracker.Config   `yaml:"tracker"`
	Diff      diff.Thresholds  `yaml:"diff"`
	Analysis  analyzer.Config  `yaml:"analysis"`
	Report    report.Config    `yaml:"report"`
	Notify    notify.Config    `yaml:"notify"`
	Archive   archive.Config   `yaml:"archive"`
	Pipeline  pipeline.Config  `yaml:"pipeline"`
	Scheduler scheduler.Config `yaml:"scheduler"`
}

// DefaultConfig returns a Config populated with sensible development defaults.
func DefaultConfig() *Config {
	return &Config{
		Log:    LogConfig{Level: "info"},
		Server: server.DefaultConfig(),
		WebClient: webclient.Config{
			Client:  webclient.ClientNetHTTP,
			Timeout: 30 * time.Second,
		},
		Fetcher:   fetcher.DefaultConfig(),
		Tracker:   tracker.DefaultConfig(),
		Diff:      diff.DefaultThresholds(),
		Analysis:  analyzer.DefaultConfig(),
		Report:    report.DefaultConfig(),
		Notify:    notify.DefaultConfig(),
		Pipeline:  pipeline.DefaultConfig(),
		Scheduler: scheduler.DefaultConfig(),
	}
}

// LoadConfig reads the YAML file at path over the defaults and applies
// environment overrides. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.decode(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides credentials and downstream endpoints from lookup.
// OBSERVER_ANALYSIS_API_KEY always wins; the provider's own variable only
// fills an empty key.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	get := func(key string) string {
		v, ok := lookup(key)
		if !ok {
			return ""
		}
		return strings.TrimSpace(v)
	}

	if v := get(EnvAnalysisAPIKey); v != "" {
		c.Analysis.APIKey = v
	}
	if c.Analysis.APIKey == "" {
		switch c.Analysis.Provider {
		case analyzer.ProviderOpenAI:
			c.Analysis.APIKey = get(EnvOpenAIAPIKey)
		default:
			c.Analysis.APIKey = get(EnvAnthropicAPIKey)
		}
	}
	if v := get(EnvNotifyWebhook); v != "" {
		c.Notify.WebhookURL = v
	}
	if v := get(EnvNATSURL); v != "" {
		c.Notify.NATSURL = v
	}
}
