package webclient

import (
	"fmt"

	"github.com/raysh454/observer/internal/logging"
)

func init() {
	RegisterDefaultBackends()
}

// RegisterDefaultBackends registers the nethttp and chromedp backends.
func RegisterDefaultBackends() {
	RegisterBackend(string(ClientNetHTTP), func(cfg Config, logger logging.Logger) (WebClient, error) {
		return NewNetHTTPClient(cfg, logger, nil)
	})

	RegisterBackend(string(ClientChromedp), func(cfg Config, logger logging.Logger) (WebClient, error) {
		client, err := NewChromedpClient(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("create chromedp client: %w", err)
		}
		return client, nil
	})
}
