package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *ProbeConfig) Validate() error {
	if c.Client.URL == "" {
		return errors.New("client.url is required")
	}
	if c.Client.MaxReconnectAttempts < -1 {
		return fmt.Errorf("client.max_reconnect_attempts must be >= -1, got %d", c.Client.MaxReconnectAttempts)
	}
	if c.Client.ReconnectBackoffMultiplier < 1 {
		return errors.New("client.reconnect_backoff_multiplier must be >= 1")
	}
	if c.Client.MaxReconnectDelay < c.Client.ReconnectDelay {
		return errors.New("client.max_reconnect_delay must be >= client.reconnect_delay")
	}
	if c.Client.JitterFraction < 0 || c.Client.JitterFraction > 1 {
		return errors.New("client.jitter_fraction must be within [0, 1]")
	}
	if c.Client.PongTimeout >= c.Client.PingInterval {
		return errors.New("client.pong_timeout must be shorter than client.ping_interval")
	}
	if c.Client.MaxQueueSize < 1 {
		return errors.New("client.max_queue_size must be >= 1")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}
