package demoserver

import "time"

// Config holds configuration for the demo target.
type Config struct {
	// Addr is the listen address of the demo target.
	Addr string `yaml:"addr"`

	// SlowDelay is how long pages in ModeSlow wait before answering.
	SlowDelay time.Duration `yaml:"slow_delay"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:      ":9999",
		SlowDelay: 6 * time.Second,
	}
}
