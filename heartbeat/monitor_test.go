package heartbeat

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/helixdesk/realtime-go/protocol"
)

type recorder struct {
	mu        sync.Mutex
	pings     []protocol.Envelope
	dead      int
	latencies []time.Duration
	sendErr   error
}

func (r *recorder) send(env protocol.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sendErr != nil {
		return r.sendErr
	}
	r.pings = append(r.pings, env)
	return nil
}

func (r *recorder) onDead() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dead++
}

func (r *recorder) onLatency(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latencies = append(r.latencies, d)
}

func (r *recorder) pingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pings)
}

func (r *recorder) deadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dead
}

func (r *recorder) lastPing() protocol.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pings[len(r.pings)-1]
}

func newTestMonitor(cfg Config) (*Monitor, *recorder, *clock.Mock) {
	rec := &recorder{}
	mock := clock.NewMock()
	m := New(cfg, mock, nil, rec.send, rec.onDead, rec.onLatency)
	return m, rec, mock
}

func TestMonitor_SendsPingsOnInterval(t *testing.T) {
	m, rec, mock := newTestMonitor(Config{Interval: time.Second, Timeout: 10 * time.Second})
	m.Start()
	defer m.Stop()

	mock.Add(999 * time.Millisecond)
	if rec.pingCount() != 0 {
		t.Errorf("pings = %d before first interval, want 0", rec.pingCount())
	}

	mock.Add(time.Millisecond)
	if rec.pingCount() != 1 {
		t.Fatalf("pings = %d after first interval, want 1", rec.pingCount())
	}

	if got := rec.lastPing().Type; got != protocol.EventPing {
		t.Errorf("ping type = %s, want %s", got, protocol.EventPing)
	}
}

func TestMonitor_PongRecordsLatency(t *testing.T) {
	m, rec, mock := newTestMonitor(Config{Interval: time.Second, Timeout: 5 * time.Second})
	m.Start()
	defer m.Stop()

	mock.Add(time.Second) // ping sent
	mock.Add(150 * time.Millisecond)

	pong, _ := protocol.NewEnvelope(protocol.EventPong, nil)
	pong.CorrelationID = rec.lastPing().MessageID
	m.Pong(pong)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.latencies) != 1 {
		t.Fatalf("latencies = %d, want 1", len(rec.latencies))
	}
	if rec.latencies[0] != 150*time.Millisecond {
		t.Errorf("latency = %v, want 150ms", rec.latencies[0])
	}
	if rec.dead != 0 {
		t.Errorf("dead = %d after pong, want 0", rec.dead)
	}
}

func TestMonitor_MissedPongReportsDead(t *testing.T) {
	m, rec, mock := newTestMonitor(Config{Interval: time.Second, Timeout: 200 * time.Millisecond})
	m.Start()

	// Ping at 1s, timeout 200ms later, never answered.
	mock.Add(1200 * time.Millisecond)

	if rec.deadCount() != 1 {
		t.Fatalf("dead = %d, want 1", rec.deadCount())
	}
	if m.Running() {
		t.Error("monitor still running after dead signal")
	}

	// No further pings or dead signals after self-stop.
	mock.Add(10 * time.Second)
	if rec.pingCount() != 1 {
		t.Errorf("pings = %d after dead, want 1", rec.pingCount())
	}
	if rec.deadCount() != 1 {
		t.Errorf("dead = %d after dead, want 1", rec.deadCount())
	}
}

func TestMonitor_StopCancelsOutstandingTimeout(t *testing.T) {
	m, rec, mock := newTestMonitor(Config{Interval: time.Second, Timeout: 500 * time.Millisecond})
	m.Start()

	mock.Add(time.Second) // ping sent, timeout armed
	m.Stop()

	mock.Add(10 * time.Second)
	if rec.deadCount() != 0 {
		t.Errorf("dead = %d after Stop, want 0", rec.deadCount())
	}
	if rec.pingCount() != 1 {
		t.Errorf("pings = %d after Stop, want 1", rec.pingCount())
	}
}

func TestMonitor_UncorrelatedPongIgnored(t *testing.T) {
	m, rec, mock := newTestMonitor(Config{Interval: time.Second, Timeout: 300 * time.Millisecond})
	m.Start()

	mock.Add(time.Second)

	pong, _ := protocol.NewEnvelope(protocol.EventPong, nil)
	pong.CorrelationID = "some-other-ping"
	m.Pong(pong)

	mock.Add(300 * time.Millisecond)
	if rec.deadCount() != 1 {
		t.Errorf("dead = %d, want 1 (stale pong must not satisfy timeout)", rec.deadCount())
	}
}

func TestMonitor_BarePongAccepted(t *testing.T) {
	m, rec, mock := newTestMonitor(Config{Interval: time.Second, Timeout: 300 * time.Millisecond})
	m.Start()
	defer m.Stop()

	mock.Add(time.Second)

	// Servers that do not echo correlation ids still keep the connection
	// alive.
	pong, _ := protocol.NewEnvelope(protocol.EventPong, nil)
	m.Pong(pong)

	mock.Add(300 * time.Millisecond)
	if rec.deadCount() != 0 {
		t.Errorf("dead = %d, want 0", rec.deadCount())
	}
}

func TestMonitor_SendFailureKeepsCycle(t *testing.T) {
	m, rec, mock := newTestMonitor(Config{Interval: time.Second, Timeout: 200 * time.Millisecond})
	rec.sendErr = errors.New("broken pipe")
	m.Start()
	defer m.Stop()

	mock.Add(1200 * time.Millisecond)
	if rec.deadCount() != 0 {
		t.Errorf("dead = %d on send failure, want 0 (transport reports its own error)", rec.deadCount())
	}

	// Cycle recovers once sends work again.
	rec.mu.Lock()
	rec.sendErr = nil
	rec.mu.Unlock()
	mock.Add(time.Second)
	if rec.pingCount() == 0 {
		t.Error("no ping after send recovered")
	}
}
