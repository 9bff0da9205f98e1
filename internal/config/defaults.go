package config

import "github.com/helixdesk/realtime-go/realtime"

// Default values for optional configuration fields.
const (
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultMetricsPort = 9090
	DefaultMetricsPath = "/metrics"
)

func (c *ProbeConfig) applyDefaults() {
	// Client defaults
	if c.Client.ReconnectDelay == 0 {
		c.Client.ReconnectDelay = realtime.DefaultReconnectDelay
	}
	if c.Client.MaxReconnectDelay == 0 {
		c.Client.MaxReconnectDelay = realtime.DefaultMaxReconnectDelay
	}
	if c.Client.ReconnectBackoffMultiplier == 0 {
		c.Client.ReconnectBackoffMultiplier = realtime.DefaultReconnectBackoffMultiplier
	}
	if c.Client.PingInterval == 0 {
		c.Client.PingInterval = realtime.DefaultPingInterval
	}
	if c.Client.PongTimeout == 0 {
		c.Client.PongTimeout = realtime.DefaultPongTimeout
	}
	if c.Client.MaxQueueSize == 0 {
		c.Client.MaxQueueSize = realtime.DefaultMaxQueueSize
	}
	if c.Client.QueueMessageTTL == 0 {
		c.Client.QueueMessageTTL = realtime.DefaultQueueMessageTTL
	}
	if c.Client.HandshakeTimeout == 0 {
		c.Client.HandshakeTimeout = realtime.DefaultHandshakeTimeout
	}
	if c.Client.WriteTimeout == 0 {
		c.Client.WriteTimeout = realtime.DefaultWriteTimeout
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

// ClientOptions maps the client section onto a realtime.Config. The caller
// fills in Logger, Metrics and QueueStore.
func (c *ProbeConfig) ClientOptions() realtime.Config {
	return realtime.Config{
		BaseURL:                    c.Client.URL,
		Token:                      c.Client.Token,
		MaxReconnectAttempts:       c.Client.MaxReconnectAttempts,
		DisableReconnect:           c.Client.DisableReconnect,
		ReconnectDelay:             c.Client.ReconnectDelay,
		MaxReconnectDelay:          c.Client.MaxReconnectDelay,
		ReconnectBackoffMultiplier: c.Client.ReconnectBackoffMultiplier,
		JitterFraction:             c.Client.JitterFraction,
		PingInterval:               c.Client.PingInterval,
		PongTimeout:                c.Client.PongTimeout,
		DisableMessageQueue:        c.Client.DisableMessageQueue,
		MaxQueueSize:               c.Client.MaxQueueSize,
		QueueMessageTTL:            c.Client.QueueMessageTTL,
		HandshakeTimeout:           c.Client.HandshakeTimeout,
		WriteTimeout:               c.Client.WriteTimeout,
	}
}
