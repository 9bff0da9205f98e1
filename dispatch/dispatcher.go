package dispatch

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/helixdesk/realtime-go/protocol"
)

// Handler receives a dispatched envelope.
type Handler func(env protocol.Envelope)

// Option configures a binding created by On.
type Option func(*binding)

// Once marks the binding for removal after its first invocation. The
// binding fires at most once even if the handler panics.
func Once() Option {
	return func(b *binding) { b.once = true }
}

// WithPriority orders invocation within a single dispatch. Higher fires
// first; equal priorities fire in registration order.
func WithPriority(priority int) Option {
	return func(b *binding) { b.priority = priority }
}

type binding struct {
	handler  Handler
	once     bool
	priority int
	seq      uint64
}

// Dispatcher routes envelopes to registered handlers. Bindings for the
// concrete event type and wildcard bindings participate in the same
// priority ordering.
type Dispatcher struct {
	logger *slog.Logger

	mu       sync.Mutex
	bindings map[string][]*binding
	nextSeq  uint64
}

// New creates an empty dispatcher.
func New(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		logger:   logger,
		bindings: make(map[string][]*binding),
	}
}

// On registers a handler for eventType (or protocol.Wildcard for every
// type) and returns an unsubscribe function. Unsubscribing twice is a
// no-op.
func (d *Dispatcher) On(eventType string, handler Handler, opts ...Option) func() {
	b := &binding{handler: handler}
	for _, opt := range opts {
		opt(b)
	}

	d.mu.Lock()
	b.seq = d.nextSeq
	d.nextSeq++
	d.bindings[eventType] = append(d.bindings[eventType], b)
	d.mu.Unlock()

	return func() { d.remove(eventType, b) }
}

// Once registers a one-shot handler. Equivalent to On with the Once option.
func (d *Dispatcher) Once(eventType string, handler Handler, opts ...Option) func() {
	return d.On(eventType, handler, append(opts, Once())...)
}

// Dispatch invokes all bindings for env.Type plus all wildcard bindings,
// highest priority first. A panicking handler is logged and skipped;
// dispatch continues with the next handler.
func (d *Dispatcher) Dispatch(env protocol.Envelope) {
	d.mu.Lock()
	matched := make([]*binding, 0, len(d.bindings[env.Type])+len(d.bindings[protocol.Wildcard]))
	matched = append(matched, d.bindings[env.Type]...)
	if env.Type != protocol.Wildcard {
		matched = append(matched, d.bindings[protocol.Wildcard]...)
	}

	// One-shot bindings are claimed while still holding the lock, so a
	// concurrent dispatch of the same event cannot fire them twice.
	for _, b := range matched {
		if b.once {
			d.removeLocked(env.Type, b)
			d.removeLocked(protocol.Wildcard, b)
		}
	}
	d.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].priority != matched[j].priority {
			return matched[i].priority > matched[j].priority
		}
		return matched[i].seq < matched[j].seq
	})

	for _, b := range matched {
		d.invoke(env, b)
	}
}

// HandlerCount returns the number of bindings registered for eventType.
func (d *Dispatcher) HandlerCount(eventType string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.bindings[eventType])
}

// Clear removes every binding.
func (d *Dispatcher) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bindings = make(map[string][]*binding)
}

func (d *Dispatcher) invoke(env protocol.Envelope, b *binding) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked",
				"event_type", env.Type,
				"message_id", env.MessageID,
				"panic", r,
			)
		}
	}()
	b.handler(env)
}

func (d *Dispatcher) remove(eventType string, b *binding) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.removeLocked(eventType, b)
}

func (d *Dispatcher) removeLocked(eventType string, b *binding) {
	list := d.bindings[eventType]
	for i, cur := range list {
		if cur == b {
			d.bindings[eventType] = append(list[:i], list[i+1:]...)
			if len(d.bindings[eventType]) == 0 {
				delete(d.bindings, eventType)
			}
			return
		}
	}
}
