package webclient

import "time"

type Client string

const (
	ClientNetHTTP  Client = "nethttp"
	ClientChromedp Client = "chromedp"
)

const (
	DefaultUserAgent = "observer-pipeline/1.0"
	DefaultAccept    = "text/html,application/json;q=0.9,*/*;q=0.8"
)

// Config selects and tunes a WebClient backend.
type Config struct {
	Client Client `yaml:"client"`

	// Timeout bounds a single request. Zero means 30s.
	Timeout time.Duration `yaml:"timeout"`

	// UserAgent is sent on every request that does not set its own.
	UserAgent string `yaml:"user_agent"`

	// Headless controls the chromedp backend; nil means headless.
	Headless *bool `yaml:"headless"`

	// IdleAfter is how long the chromedp backend waits for network quiet.
	IdleAfter time.Duration `yaml:"idle_after"`

	// MaxBodyBytes caps how much of a response body the nethttp backend
	// keeps. Zero means 10 MiB.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return c.Timeout
}

func (c Config) maxBodyBytes() int64 {
	if c.MaxBodyBytes <= 0 {
		return 10 << 20
	}
	return c.MaxBodyBytes
}

func (c Config) userAgent() string {
	if c.UserAgent == "" {
		return DefaultUserAgent
	}
	return c.UserAgent
}
