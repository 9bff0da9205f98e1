package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

// DefaultMaxAttempts drops a message after this many failed transmissions.
const DefaultMaxAttempts = 5

// Outgoing is the caller-provided part of a queued message.
type Outgoing struct {
	Type      string
	Data      json.RawMessage
	RequestID string
}

// Message is a queued outgoing message. Owned by the Queue; callers only
// observe copies.
type Message struct {
	ID        string
	Type      string
	Data      json.RawMessage
	RequestID string
	QueuedAt  time.Time
	Attempts  int
	Priority  int
	ExpiresAt time.Time // zero means no TTL
}

func (m Message) expired(now time.Time) bool {
	return !m.ExpiresAt.IsZero() && now.After(m.ExpiresAt)
}

// Config holds queue settings.
type Config struct {
	// MaxSize bounds the number of queued messages. Inserting beyond
	// capacity evicts the lowest-priority, oldest entry first.
	MaxSize int

	// DefaultTTL applies when Enqueue is called with ttl 0. Zero keeps
	// messages indefinitely.
	DefaultTTL time.Duration

	// MaxAttempts drops a message after this many failed sends.
	// 0 means DefaultMaxAttempts.
	MaxAttempts int
}

// Queue is the bounded, priority- and TTL-aware outgoing message store.
type Queue struct {
	cfg    Config
	clock  clock.Clock
	logger *slog.Logger
	store  Store
	onDrop func(Message, string)

	mu    sync.Mutex
	items []Message
}

// New creates a queue. A nil clk uses the real clock; store and onDrop may
// be nil. onDrop receives each discarded message with the drop reason
// ("expired", "evicted", or "attempts").
func New(cfg Config, clk clock.Clock, logger *slog.Logger, store Store, onDrop func(Message, string)) *Queue {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return &Queue{
		cfg:    cfg,
		clock:  clk,
		logger: logger,
		store:  store,
		onDrop: onDrop,
	}
}

// Enqueue adds a message with the given priority and TTL (0 = DefaultTTL)
// and returns its id. When the queue is at capacity the lowest-priority,
// oldest entry is evicted to make room; the new message is always admitted.
func (q *Queue) Enqueue(out Outgoing, priority int, ttl time.Duration) string {
	now := q.clock.Now()
	if ttl == 0 {
		ttl = q.cfg.DefaultTTL
	}

	msg := Message{
		ID:        uuid.NewString(),
		Type:      out.Type,
		Data:      out.Data,
		RequestID: out.RequestID,
		QueuedAt:  now,
		Priority:  priority,
	}
	if ttl > 0 {
		msg.ExpiresAt = now.Add(ttl)
	}

	var evicted *Message
	q.mu.Lock()
	if q.cfg.MaxSize > 0 && len(q.items) >= q.cfg.MaxSize {
		evicted = q.evictLocked()
	}
	q.items = append(q.items, msg)
	q.persistLocked()
	q.mu.Unlock()

	if evicted != nil {
		q.drop(*evicted, "evicted")
	}

	q.logger.Debug("message queued",
		"id", msg.ID,
		"type", msg.Type,
		"priority", priority,
	)
	return msg.ID
}

// Drain transmits queued messages through send, ordered by descending
// priority then ascending QueuedAt. Expired entries are dropped unsent.
// Each entry is removed only after send succeeds; on a send failure the
// entry's attempt counter is incremented, the drain aborts, and the entry
// is retried on the next drain unless its attempts reached the cap.
func (q *Queue) Drain(ctx context.Context, send func(Message) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, ok := q.next()
		if !ok {
			return nil
		}

		if err := send(msg); err != nil {
			q.recordFailure(msg.ID, err)
			return err
		}
		q.remove(msg.ID)
	}
}

// Len returns the number of queued messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear discards every queued message.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
	q.persistLocked()
}

// Snapshot returns a copy of the queue contents in drain order.
func (q *Queue) Snapshot() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Message, len(q.items))
	copy(out, q.items)
	sortDrainOrder(out)
	return out
}

// Restore loads persisted messages from the store, replacing the current
// contents. Already-expired entries are discarded on load.
func (q *Queue) Restore(ctx context.Context) error {
	if q.store == nil {
		return nil
	}

	msgs, err := q.store.Load(ctx)
	if err != nil {
		return err
	}

	now := q.clock.Now()
	kept := msgs[:0]
	for _, m := range msgs {
		if m.expired(now) {
			continue
		}
		kept = append(kept, m)
	}

	q.mu.Lock()
	q.items = kept
	q.mu.Unlock()

	q.logger.Debug("outbox restored", "count", len(kept))
	return nil
}

// next returns the highest-priority, oldest live message, sweeping expired
// entries on the way. The message stays queued until remove confirms the
// send.
func (q *Queue) next() (Message, bool) {
	q.mu.Lock()
	now := q.clock.Now()
	dropped := q.sweepExpiredLocked(now)

	best := -1
	for i, m := range q.items {
		if best == -1 || drainBefore(m, q.items[best]) {
			best = i
		}
	}
	var msg Message
	if best >= 0 {
		msg = q.items[best]
	}
	q.mu.Unlock()

	for _, m := range dropped {
		q.logger.Debug("expired message dropped", "id", m.ID, "type", m.Type)
		q.drop(m, "expired")
	}

	return msg, best >= 0
}

func (q *Queue) recordFailure(id string, sendErr error) {
	q.mu.Lock()
	for i := range q.items {
		if q.items[i].ID != id {
			continue
		}
		q.items[i].Attempts++
		if q.items[i].Attempts >= q.cfg.MaxAttempts {
			dropped := q.items[i]
			q.items = append(q.items[:i], q.items[i+1:]...)
			q.persistLocked()
			q.mu.Unlock()
			q.logger.Warn("message dropped after repeated send failures",
				"id", dropped.ID,
				"type", dropped.Type,
				"attempts", dropped.Attempts,
				"error", sendErr,
			)
			q.drop(dropped, "attempts")
			return
		}
		break
	}
	q.persistLocked()
	q.mu.Unlock()
}

func (q *Queue) remove(id string) {
	q.mu.Lock()
	for i := range q.items {
		if q.items[i].ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			break
		}
	}
	q.persistLocked()
	q.mu.Unlock()
}

func (q *Queue) sweepExpiredLocked(now time.Time) []Message {
	kept := q.items[:0]
	var dropped []Message
	for _, m := range q.items {
		if m.expired(now) {
			dropped = append(dropped, m)
			continue
		}
		kept = append(kept, m)
	}
	q.items = kept
	if len(dropped) > 0 {
		q.persistLocked()
	}
	return dropped
}

// evictLocked removes and returns the lowest-priority, oldest entry.
func (q *Queue) evictLocked() *Message {
	if len(q.items) == 0 {
		return nil
	}

	victim := 0
	for i, m := range q.items[1:] {
		v := q.items[victim]
		if m.Priority < v.Priority || (m.Priority == v.Priority && m.QueuedAt.Before(v.QueuedAt)) {
			victim = i + 1
		}
	}

	evicted := q.items[victim]
	q.items = append(q.items[:victim], q.items[victim+1:]...)
	q.logger.Debug("queue full, evicting",
		"id", evicted.ID,
		"type", evicted.Type,
		"priority", evicted.Priority,
	)
	return &evicted
}

func (q *Queue) drop(m Message, reason string) {
	if q.onDrop != nil {
		q.onDrop(m, reason)
	}
}

// persistLocked pushes a snapshot to the store, best effort.
func (q *Queue) persistLocked() {
	if q.store == nil {
		return
	}
	snapshot := make([]Message, len(q.items))
	copy(snapshot, q.items)
	if err := q.store.Save(context.Background(), snapshot); err != nil {
		q.logger.Warn("outbox persist failed", "error", err)
	}
}

func drainBefore(a, b Message) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.QueuedAt.Before(b.QueuedAt)
}

func sortDrainOrder(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return drainBefore(msgs[i], msgs[j])
	})
}
