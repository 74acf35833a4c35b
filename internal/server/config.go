package server

import "time"

type Config struct {
	// ListenAddr is the HTTP listen address for the trigger and read API.
	ListenAddr  string        `yaml:"listen_addr"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:  ":8080",
		ReadTimeout: 15 * time.Second,
	}
}
