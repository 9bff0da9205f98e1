package realtime

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/helixdesk/realtime-go/metrics"
	"github.com/helixdesk/realtime-go/queue"
	"github.com/helixdesk/realtime-go/transport"
)

// Default values for optional configuration fields.
const (
	DefaultReconnectDelay             = 1 * time.Second
	DefaultMaxReconnectDelay          = 30 * time.Second
	DefaultReconnectBackoffMultiplier = 2.0
	DefaultPingInterval               = 30 * time.Second
	DefaultPongTimeout                = 5 * time.Second
	DefaultMaxQueueSize               = 100
	DefaultQueueMessageTTL            = 5 * time.Minute
	DefaultHandshakeTimeout           = 10 * time.Second
	DefaultWriteTimeout               = 5 * time.Second
)

// Config configures a Client. The zero value of each field selects its
// default; reconnection is infinite unless DisableReconnect is set or
// MaxReconnectAttempts is positive.
type Config struct {
	// BaseURL is the transport endpoint (e.g. wss://api.helixdesk.io/ws).
	BaseURL string

	// Token is the bearer credential presented at dial time. The client
	// never refreshes it.
	Token string

	// MaxReconnectAttempts bounds each reconnection episode. 0 and -1
	// both mean infinite.
	MaxReconnectAttempts int

	// DisableReconnect forbids automatic reconnection entirely: any
	// drop moves the client straight to the error state.
	DisableReconnect bool

	ReconnectDelay             time.Duration
	MaxReconnectDelay          time.Duration
	ReconnectBackoffMultiplier float64

	// JitterFraction spreads reconnect delays by up to +/- this fraction
	// to avoid synchronized reconnection storms. 0 disables jitter.
	JitterFraction float64

	PingInterval time.Duration
	PongTimeout  time.Duration

	// DisableMessageQueue makes Send fail fast instead of queuing while
	// not connected.
	DisableMessageQueue bool

	MaxQueueSize    int
	QueueMessageTTL time.Duration

	// QueueStore persists the outgoing queue across restarts (see
	// queue/pgstore). Nil keeps the queue in memory only.
	QueueStore queue.Store

	// Debug raises the client's log level in the default logger setup.
	Debug bool

	// AutoConnect starts a background Connect from New.
	AutoConnect bool

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration

	// Logger receives structured logs. Nil uses slog.Default.
	Logger *slog.Logger

	// Clock drives all timers. Nil uses the real clock.
	Clock clock.Clock

	// Dialer opens transport connections. Nil uses the gorilla
	// websocket dialer against BaseURL.
	Dialer transport.Dialer

	// Metrics records Prometheus metrics. Nil disables instrumentation.
	Metrics *metrics.Collector
}

func (c *Config) applyDefaults() {
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.MaxReconnectDelay == 0 {
		c.MaxReconnectDelay = DefaultMaxReconnectDelay
	}
	if c.ReconnectBackoffMultiplier == 0 {
		c.ReconnectBackoffMultiplier = DefaultReconnectBackoffMultiplier
	}
	if c.PingInterval == 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.PongTimeout == 0 {
		c.PongTimeout = DefaultPongTimeout
	}
	if c.MaxQueueSize == 0 {
		c.MaxQueueSize = DefaultMaxQueueSize
	}
	if c.QueueMessageTTL == 0 {
		c.QueueMessageTTL = DefaultQueueMessageTTL
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.Logger == nil {
		if c.Debug {
			c.Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}))
		} else {
			c.Logger = slog.Default()
		}
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	if c.Dialer == nil {
		c.Dialer = transport.NewWebSocketDialer(transport.WebSocketConfig{
			HandshakeTimeout: c.HandshakeTimeout,
			WriteTimeout:     c.WriteTimeout,
		}, c.Logger)
	}
}

// validate checks for misconfiguration that would make the client
// unusable.
func (c *Config) validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	if c.MaxReconnectAttempts < -1 {
		return fmt.Errorf("max_reconnect_attempts must be >= -1, got %d", c.MaxReconnectAttempts)
	}
	if c.ReconnectBackoffMultiplier < 1 {
		return fmt.Errorf("reconnect_backoff_multiplier must be >= 1, got %g", c.ReconnectBackoffMultiplier)
	}
	if c.MaxReconnectDelay < c.ReconnectDelay {
		return errors.New("max_reconnect_delay must be >= reconnect_delay")
	}
	if c.JitterFraction < 0 || c.JitterFraction > 1 {
		return fmt.Errorf("jitter_fraction must be within [0, 1], got %g", c.JitterFraction)
	}
	if c.PongTimeout >= c.PingInterval {
		return errors.New("pong_timeout must be shorter than ping_interval")
	}
	if c.MaxQueueSize < 1 {
		return fmt.Errorf("max_queue_size must be >= 1, got %d", c.MaxQueueSize)
	}
	return nil
}
