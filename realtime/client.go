package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/helixdesk/realtime-go/backoff"
	"github.com/helixdesk/realtime-go/dispatch"
	"github.com/helixdesk/realtime-go/heartbeat"
	"github.com/helixdesk/realtime-go/metrics"
	"github.com/helixdesk/realtime-go/protocol"
	"github.com/helixdesk/realtime-go/queue"
	"github.com/helixdesk/realtime-go/transport"
)

// Errors
var (
	ErrConnectInProgress = errors.New("connect already in progress")
	ErrAttemptsExhausted = errors.New("reconnect attempt budget exhausted")
)

// Handler receives a dispatched envelope.
type Handler = dispatch.Handler

// Client maintains one logical duplex connection to the realtime backend.
// All methods are safe for concurrent use.
type Client struct {
	cfg     Config
	logger  *slog.Logger
	clock   clock.Clock
	dialer  transport.Dialer
	metrics *metrics.Collector

	dispatcher *dispatch.Dispatcher
	outbox     *queue.Queue
	hb         *heartbeat.Monitor
	reconnect  *backoff.Controller
	policy     backoff.Policy

	mu                 sync.Mutex
	status             Status
	lastError          error
	attempts           int
	lastConnectedAt    time.Time
	lastDisconnectedAt time.Time
	latency            time.Duration
	hasLatency         bool
	conn               transport.Conn
	epoch              uint64
	draining           bool
	resuming           bool
	dialCancel         context.CancelFunc
	connectDone        chan error

	pendingMu sync.Mutex
	pending   map[string]chan protocol.Envelope
}

// Lifecycle event payloads.
type lostData struct {
	Reason string `json:"reason"`
}

type reconnectingData struct {
	Attempt int   `json:"attempt"`
	DelayMs int64 `json:"delayMs"`
}

type errorData struct {
	Error string `json:"error"`
}

// New creates a client. It returns an error for malformed configuration;
// everything after construction is communicated via state and events, not
// errors.
func New(cfg Config) (*Client, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("realtime config: %w", err)
	}

	c := &Client{
		cfg:       cfg,
		logger:    cfg.Logger,
		clock:     cfg.Clock,
		dialer:    cfg.Dialer,
		metrics:   cfg.Metrics,
		reconnect: backoff.NewController(cfg.Clock),
		pending:   make(map[string]chan protocol.Envelope),
	}

	c.policy = backoff.Policy{
		Initial:     cfg.ReconnectDelay,
		Max:         cfg.MaxReconnectDelay,
		Multiplier:  cfg.ReconnectBackoffMultiplier,
		MaxAttempts: reconnectBudget(cfg),
		Jitter:      cfg.JitterFraction,
	}

	c.dispatcher = dispatch.New(cfg.Logger)

	c.outbox = queue.New(queue.Config{
		MaxSize:    cfg.MaxQueueSize,
		DefaultTTL: cfg.QueueMessageTTL,
	}, cfg.Clock, cfg.Logger, cfg.QueueStore, c.onQueueDrop)

	c.hb = heartbeat.New(heartbeat.Config{
		Interval: cfg.PingInterval,
		Timeout:  cfg.PongTimeout,
	}, cfg.Clock, cfg.Logger, c.sendEnvelope, c.onHeartbeatDead, c.onHeartbeatLatency)

	c.metrics.SetState(c.statusName(), statusNames)

	if cfg.QueueStore != nil {
		if err := c.outbox.Restore(context.Background()); err != nil {
			c.logger.Warn("outbox restore failed", "error", err)
		}
		c.metrics.QueueDepth(c.outbox.Len())
	}

	if cfg.AutoConnect {
		go func() {
			if err := c.Connect(context.Background()); err != nil {
				c.logger.Warn("auto connect failed", "error", err)
			}
		}()
	}

	return c, nil
}

func reconnectBudget(cfg Config) int {
	if cfg.DisableReconnect {
		return 0
	}
	if cfg.MaxReconnectAttempts <= 0 {
		return backoff.Infinite
	}
	return cfg.MaxReconnectAttempts
}

// Connect establishes the connection. It blocks until the client is
// connected, the attempt budget is exhausted, the context is cancelled, or
// Disconnect is called. With an infinite budget it returns only on the
// first success or cancellation; later drops reconnect in the background.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.status {
	case StatusConnected:
		c.mu.Unlock()
		return nil
	case StatusConnecting, StatusReconnecting:
		c.mu.Unlock()
		return ErrConnectInProgress
	}

	// Fresh episode from Disconnected or Error.
	c.attempts = 0
	c.lastError = nil
	c.resuming = false
	done := make(chan error, 1)
	c.connectDone = done
	c.setStatusLocked(StatusConnecting)
	c.mu.Unlock()

	go c.attemptDial()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		c.Disconnect()
		return ctx.Err()
	}
}

// Disconnect forces the disconnected state from any state. It synchronously
// cancels the heartbeat and any pending reconnect timer, so no stale event
// fires afterward. Idempotent.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.status == StatusDisconnected {
		c.mu.Unlock()
		return
	}

	c.epoch++
	conn := c.conn
	c.conn = nil
	cancel := c.dialCancel
	c.dialCancel = nil
	done := c.connectDone
	c.connectDone = nil
	if c.status == StatusConnected {
		c.lastDisconnectedAt = c.clock.Now()
	}
	c.draining = false
	c.resuming = false
	c.setStatusLocked(StatusDisconnected)
	c.mu.Unlock()

	c.reconnect.Cancel()
	c.hb.Stop()
	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	if done != nil {
		done <- protocol.ErrClosed
	}

	c.logger.Info("disconnected")
}

// SendOption configures a single Send.
type SendOption func(*sendOptions)

type sendOptions struct {
	priority  int
	ttl       time.Duration
	requestID string
}

// WithSendPriority orders the message within the outgoing queue; higher
// flushes first. Default 0.
func WithSendPriority(priority int) SendOption {
	return func(o *sendOptions) { o.priority = priority }
}

// WithSendTTL overrides the queue TTL for this message.
func WithSendTTL(ttl time.Duration) SendOption {
	return func(o *sendOptions) { o.ttl = ttl }
}

// Send transmits an envelope of the given type, queuing it when the
// connection is down. It returns true if the frame was handed to the
// transport or queued, false if queuing is disabled (or the payload cannot
// be serialized) and the client is not connected. Send never blocks on the
// network beyond the transport write deadline and never throws transport
// failures at the caller.
func (c *Client) Send(eventType string, data any, opts ...SendOption) bool {
	var o sendOptions
	for _, opt := range opts {
		opt(&o)
	}
	return c.send(eventType, data, o)
}

func (c *Client) send(eventType string, data any, o sendOptions) bool {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			c.logger.Error("send payload not serializable", "type", eventType, "error", err)
			return false
		}
		raw = b
	}

	c.mu.Lock()
	if c.status == StatusConnected && !c.draining {
		conn := c.conn
		c.mu.Unlock()

		env, err := protocol.NewEnvelope(eventType, nil)
		if err == nil {
			env.Data = raw
			env.RequestID = o.requestID
			if c.transmit(conn, env) == nil {
				return true
			}
		}
		// Immediate send failed; fall back to the queue. The transport
		// error reaches the reconnect path on its own.
		c.mu.Lock()
	}

	if c.cfg.DisableMessageQueue {
		c.mu.Unlock()
		return false
	}

	c.outbox.Enqueue(queue.Outgoing{
		Type:      eventType,
		Data:      raw,
		RequestID: o.requestID,
	}, o.priority, o.ttl)
	depth := c.outbox.Len()
	c.mu.Unlock()

	c.metrics.QueueDepth(depth)
	return true
}

// On subscribes handler to eventType (protocol.Wildcard subscribes to
// everything) and returns an unsubscribe function. Options control
// priority and one-shot behavior.
func (c *Client) On(eventType string, handler Handler, opts ...dispatch.Option) func() {
	return c.dispatcher.On(eventType, handler, opts...)
}

// Once subscribes a handler that fires at most once.
func (c *Client) Once(eventType string, handler Handler, opts ...dispatch.Option) func() {
	return c.dispatcher.Once(eventType, handler, opts...)
}

// State returns a snapshot of the connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Status:             c.status,
		LastError:          c.lastError,
		ReconnectAttempts:  c.attempts,
		LastConnectedAt:    c.lastConnectedAt,
		LastDisconnectedAt: c.lastDisconnectedAt,
		Latency:            c.latency,
		HasLatency:         c.hasLatency,
	}
}

// QueueLen returns the number of messages pending transmission.
func (c *Client) QueueLen() int {
	return c.outbox.Len()
}

// attemptDial runs one dial attempt for the current episode. On failure it
// schedules the next attempt or enters the error state.
func (c *Client) attemptDial() {
	c.mu.Lock()
	if c.status != StatusConnecting {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.dialCancel = cancel
	c.mu.Unlock()

	conn, err := c.dialer.Dial(ctx, c.cfg.BaseURL, c.cfg.Token)
	cancel()

	c.mu.Lock()
	c.dialCancel = nil
	if c.status != StatusConnecting {
		// Disconnected while dialing.
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}

	if err != nil {
		c.lastError = err
		c.mu.Unlock()
		c.logger.Warn("connection attempt failed", "url", c.cfg.BaseURL, "error", err)
		c.scheduleRetry()
		return
	}

	c.establishLocked(conn)
}

// establishLocked completes the transition into Connected. Called with
// c.mu held; releases it.
func (c *Client) establishLocked(conn transport.Conn) {
	c.conn = conn
	c.epoch++
	epoch := c.epoch
	c.attempts = 0
	c.lastError = nil
	c.lastConnectedAt = c.clock.Now()
	resumed := c.resuming
	c.resuming = false
	c.draining = !c.cfg.DisableMessageQueue && c.outbox.Len() > 0
	drain := c.draining
	done := c.connectDone
	c.connectDone = nil
	c.setStatusLocked(StatusConnected)
	c.mu.Unlock()

	c.reconnect.Cancel()

	go c.readLoop(conn, epoch)
	c.hb.Start()

	if resumed {
		c.logger.Info("reconnected", "url", c.cfg.BaseURL)
		c.emit(protocol.EventConnectionReconnected, nil)
	} else {
		c.logger.Info("connected", "url", c.cfg.BaseURL)
		c.emit(protocol.EventConnectionEstablished, nil)
	}

	if drain {
		go c.drainOutbox(epoch)
	}

	if done != nil {
		done <- nil
	}
}

// scheduleRetry moves to Reconnecting and arms the backoff timer, or to
// Error when the budget is exhausted.
func (c *Client) scheduleRetry() {
	c.mu.Lock()
	if c.status != StatusConnecting && c.status != StatusReconnecting {
		c.mu.Unlock()
		return
	}

	attempt := c.attempts
	if c.policy.Exhausted(attempt) {
		err := c.lastError
		if err == nil {
			err = ErrAttemptsExhausted
		}
		done := c.connectDone
		c.connectDone = nil
		c.setStatusLocked(StatusError)
		c.mu.Unlock()

		c.logger.Error("reconnect budget exhausted",
			"attempts", attempt,
			"error", err,
		)
		c.emit(protocol.EventConnectionError, errorData{Error: err.Error()})
		if done != nil {
			done <- fmt.Errorf("%w: %w", ErrAttemptsExhausted, err)
		}
		return
	}

	c.attempts++
	delay := c.policy.Delay(attempt)
	c.setStatusLocked(StatusReconnecting)
	// Arm before releasing the lock so the new status is never observable
	// without a pending timer behind it.
	c.reconnect.Schedule(delay, func() {
		c.mu.Lock()
		if c.status != StatusReconnecting {
			c.mu.Unlock()
			return
		}
		c.setStatusLocked(StatusConnecting)
		c.mu.Unlock()
		c.attemptDial()
	})
	c.mu.Unlock()

	c.metrics.ReconnectAttempt()
	c.logger.Info("reconnect scheduled",
		"attempt", attempt+1,
		"delay", delay,
	)
	c.emit(protocol.EventConnectionReconnect, reconnectingData{
		Attempt: attempt + 1,
		DelayMs: delay.Milliseconds(),
	})
}

// connLost handles loss of an established connection, from either the
// transport or the heartbeat monitor.
func (c *Client) connLost(epoch uint64, cause error) {
	c.mu.Lock()
	if c.status != StatusConnected || epoch != c.epoch {
		c.mu.Unlock()
		return
	}

	c.epoch++
	conn := c.conn
	c.conn = nil
	c.lastError = cause
	c.lastDisconnectedAt = c.clock.Now()
	c.draining = false
	c.resuming = true
	// Leave Connected before any retry logic runs; scheduleRetry moves
	// on to Reconnecting or Error from here.
	c.setStatusLocked(StatusConnecting)
	c.mu.Unlock()

	c.hb.Stop()
	if conn != nil {
		conn.Close()
	}

	c.logger.Warn("connection lost", "error", cause)
	c.emit(protocol.EventConnectionLost, lostData{Reason: cause.Error()})

	c.scheduleRetry()
}

// readLoop routes frames from one connection episode.
func (c *Client) readLoop(conn transport.Conn, epoch uint64) {
	for {
		select {
		case err := <-conn.Errors():
			c.connLost(epoch, err)
			return

		case frame, ok := <-conn.Frames():
			if !ok {
				c.connLost(epoch, transport.ErrConnClosed)
				return
			}

			c.metrics.FrameReceived()

			env, err := protocol.Parse(frame.Data)
			if err != nil {
				// Malformed frames never crash the client.
				c.logger.Warn("dropping unparseable frame", "error", err)
				c.metrics.FrameDropped("parse")
				continue
			}

			c.handleEnvelope(env)
		}
	}
}

func (c *Client) handleEnvelope(env protocol.Envelope) {
	if env.Type == protocol.EventPong {
		c.hb.Pong(env)
	}

	if env.CorrelationID != "" {
		c.resolvePending(env)
	}

	c.dispatcher.Dispatch(env)
}

// drainOutbox flushes queued messages after a transition into Connected.
func (c *Client) drainOutbox(epoch uint64) {
	for {
		err := c.outbox.Drain(context.Background(), func(m queue.Message) error {
			env, envErr := protocol.NewEnvelope(m.Type, nil)
			if envErr != nil {
				return envErr
			}
			env.Data = m.Data
			env.RequestID = m.RequestID
			return c.sendEnvelope(env)
		})

		c.mu.Lock()
		if epoch != c.epoch {
			// The episode ended; a future connect drains the rest.
			c.mu.Unlock()
			break
		}
		if err != nil || c.outbox.Len() == 0 {
			c.draining = false
			c.mu.Unlock()
			break
		}
		// Messages were enqueued while draining; keep going.
		c.mu.Unlock()
	}

	c.metrics.QueueDepth(c.outbox.Len())
}

// sendEnvelope transmits on the current connection. Used by the heartbeat
// and the queue drain; bypasses the queue.
func (c *Client) sendEnvelope(env protocol.Envelope) error {
	c.mu.Lock()
	if c.status != StatusConnected || c.conn == nil {
		c.mu.Unlock()
		return protocol.ErrNotConnected
	}
	conn := c.conn
	c.mu.Unlock()

	return c.transmit(conn, env)
}

func (c *Client) transmit(conn transport.Conn, env protocol.Envelope) error {
	data, err := env.Encode()
	if err != nil {
		return err
	}
	if err := conn.Send(data); err != nil {
		return err
	}
	c.metrics.FrameSent()
	return nil
}

// emit dispatches a locally generated lifecycle envelope.
func (c *Client) emit(eventType string, data any) {
	env, err := protocol.NewEnvelope(eventType, data)
	if err != nil {
		c.logger.Error("building lifecycle event failed", "type", eventType, "error", err)
		return
	}
	c.dispatcher.Dispatch(env)
}

func (c *Client) onHeartbeatDead() {
	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()
	c.connLost(epoch, protocol.ErrPongTimeout)
}

func (c *Client) onHeartbeatLatency(d time.Duration) {
	c.mu.Lock()
	c.latency = d
	c.hasLatency = true
	c.mu.Unlock()
	c.metrics.HeartbeatLatency(d)
}

func (c *Client) onQueueDrop(m queue.Message, reason string) {
	c.metrics.QueueDrop(reason)
	if reason == "attempts" {
		c.emit(protocol.EventError, errorData{
			Error: fmt.Sprintf("message %s dropped after %d failed sends", m.ID, m.Attempts),
		})
	}
}

// setStatusLocked records the new status. Callers hold c.mu.
func (c *Client) setStatusLocked(s Status) {
	c.status = s
	c.metrics.SetState(s.String(), statusNames)
}

func (c *Client) statusName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status.String()
}
