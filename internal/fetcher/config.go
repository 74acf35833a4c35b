package fetcher

import (
	"time"

	"github.com/raysh454/observer/internal/webclient"
)

type Config struct {
	// Timeout bounds each target request.
	Timeout time.Duration `yaml:"timeout"`

	// UserAgent and Accept are sent with every request.
	UserAgent string `yaml:"user_agent"`
	Accept    string `yaml:"accept"`

	// MaxConcurrency caps in-flight requests in FetchAll. Zero or less
	// means one slot per target.
	MaxConcurrency int `yaml:"max_concurrency"`
}

func DefaultConfig() Config {
	return Config{
		Timeout:   30 * time.Second,
		UserAgent: webclient.DefaultUserAgent,
		Accept:    webclient.DefaultAccept,
	}
}
