package heartbeat

import (
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/helixdesk/realtime-go/protocol"
)

// Config holds heartbeat timing.
type Config struct {
	// Interval is the ping cadence.
	Interval time.Duration

	// Timeout is the maximum wait for a pong after each ping.
	Timeout time.Duration
}

// Monitor drives the heartbeat for a single connection episode. It is
// started when the connection becomes live and stopped on any transition
// away from it; Stop guarantees no dead-connection signal fires afterward.
type Monitor struct {
	cfg    Config
	clock  clock.Clock
	logger *slog.Logger

	send      func(protocol.Envelope) error
	onDead    func()
	onLatency func(time.Duration)

	mu         sync.Mutex
	running    bool
	gen        uint64
	pingTimer  *clock.Timer
	pongTimer  *clock.Timer
	pingID     string
	pingSentAt time.Time
}

// New creates a monitor. send transmits a ping envelope, onDead reports a
// missed pong, onLatency (optional) receives each measured round trip.
// A nil clk uses the real clock.
func New(cfg Config, clk clock.Clock, logger *slog.Logger, send func(protocol.Envelope) error, onDead func(), onLatency func(time.Duration)) *Monitor {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		cfg:       cfg,
		clock:     clk,
		logger:    logger,
		send:      send,
		onDead:    onDead,
		onLatency: onLatency,
	}
}

// Start begins the ping cycle. Calling Start on a running monitor restarts
// the cycle.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()
	m.running = true
	m.gen++
	m.armPingLocked(m.gen)
}

// Stop cancels the ping cycle and any outstanding pong timeout. After Stop
// returns, neither onDead nor onLatency will be invoked until the next
// Start.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

// Running reports whether the monitor is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Pong handles an inbound pong envelope. A pong correlated to a different
// ping than the outstanding one is ignored.
func (m *Monitor) Pong(env protocol.Envelope) {
	m.mu.Lock()

	if !m.running || m.pongTimer == nil {
		m.mu.Unlock()
		return
	}
	if env.CorrelationID != "" && env.CorrelationID != m.pingID {
		m.mu.Unlock()
		return
	}

	m.pongTimer.Stop()
	m.pongTimer = nil
	latency := m.clock.Now().Sub(m.pingSentAt)
	onLatency := m.onLatency
	m.mu.Unlock()

	if onLatency != nil {
		onLatency(latency)
	}
}

func (m *Monitor) stopLocked() {
	m.running = false
	m.gen++
	if m.pingTimer != nil {
		m.pingTimer.Stop()
		m.pingTimer = nil
	}
	if m.pongTimer != nil {
		m.pongTimer.Stop()
		m.pongTimer = nil
	}
}

func (m *Monitor) armPingLocked(gen uint64) {
	m.pingTimer = m.clock.AfterFunc(m.cfg.Interval, func() {
		m.firePing(gen)
	})
}

func (m *Monitor) firePing(gen uint64) {
	m.mu.Lock()
	if !m.running || gen != m.gen {
		m.mu.Unlock()
		return
	}

	env, err := protocol.NewEnvelope(protocol.EventPing, nil)
	if err != nil {
		// Cannot happen with a nil payload; keep the cycle alive anyway.
		m.armPingLocked(gen)
		m.mu.Unlock()
		return
	}

	m.pingID = env.MessageID
	m.pingSentAt = m.clock.Now()
	send := m.send
	m.mu.Unlock()

	if err := send(env); err != nil {
		m.logger.Debug("heartbeat ping send failed", "error", err)
		// The transport error reaches the connection manager on its own
		// path; skip the pong timeout and keep pinging until stopped.
		m.mu.Lock()
		if m.running && gen == m.gen {
			m.armPingLocked(gen)
		}
		m.mu.Unlock()
		return
	}

	m.mu.Lock()
	if !m.running || gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.pongTimer = m.clock.AfterFunc(m.cfg.Timeout, func() {
		m.firePongTimeout(gen)
	})
	m.armPingLocked(gen)
	m.mu.Unlock()
}

func (m *Monitor) firePongTimeout(gen uint64) {
	m.mu.Lock()
	if !m.running || gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.stopLocked()
	onDead := m.onDead
	m.mu.Unlock()

	m.logger.Warn("pong timeout, treating connection as dead",
		"timeout", m.cfg.Timeout,
	)
	if onDead != nil {
		onDead()
	}
}
