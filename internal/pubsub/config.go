package pubsub

import "github.com/nfrund/livechat/internal/config"

// TracingConfigFrom extracts the tracing settings from the application config.
func TracingConfigFrom(cfg *config.Config) TracingConfig {
	return TracingConfig{
		Enabled:     cfg.TracingEnabled,
		ServiceName: cfg.TracingServiceName,
		ZipkinURL:   cfg.TracingZipkinURL,
	}
}
