// Package config loads the probe configuration from YAML.
package config

import "time"

// ProbeConfig is the top-level configuration for rtprobe.
type ProbeConfig struct {
	Client  ClientConfig  `yaml:"client"`
	Outbox  OutboxConfig  `yaml:"outbox"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ClientConfig holds realtime client settings.
type ClientConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`

	// MaxReconnectAttempts bounds each reconnection episode; 0 or -1
	// means unlimited.
	MaxReconnectAttempts int  `yaml:"max_reconnect_attempts"`
	DisableReconnect     bool `yaml:"disable_reconnect"`

	ReconnectDelay             time.Duration `yaml:"reconnect_delay"`
	MaxReconnectDelay          time.Duration `yaml:"max_reconnect_delay"`
	ReconnectBackoffMultiplier float64       `yaml:"reconnect_backoff_multiplier"`
	JitterFraction             float64       `yaml:"jitter_fraction"`

	PingInterval time.Duration `yaml:"ping_interval"`
	PongTimeout  time.Duration `yaml:"pong_timeout"`

	DisableMessageQueue bool          `yaml:"disable_message_queue"`
	MaxQueueSize        int           `yaml:"max_queue_size"`
	QueueMessageTTL     time.Duration `yaml:"queue_message_ttl"`

	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
}

// OutboxConfig enables optional persistence of the outgoing queue.
type OutboxConfig struct {
	// PostgresURL, when set, stores queued messages in Postgres so they
	// survive a probe restart.
	PostgresURL string `yaml:"postgres_url"`
}

// LogConfig holds structured logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}
