package dispatch

import (
	"sync"
	"testing"

	"github.com/helixdesk/realtime-go/protocol"
)

func envelope(t *testing.T, eventType string) protocol.Envelope {
	t.Helper()
	env, err := protocol.NewEnvelope(eventType, nil)
	if err != nil {
		t.Fatalf("NewEnvelope failed: %v", err)
	}
	return env
}

func TestDispatcher_PriorityOrder(t *testing.T) {
	d := New(nil)

	var order []string
	d.On(protocol.EventMessageNew, func(protocol.Envelope) {
		order = append(order, "low")
	}, WithPriority(1))
	d.On(protocol.EventMessageNew, func(protocol.Envelope) {
		order = append(order, "high")
	}, WithPriority(10))

	d.Dispatch(envelope(t, protocol.EventMessageNew))

	if len(order) != 2 || order[0] != "high" || order[1] != "low" {
		t.Errorf("order = %v, want [high low]", order)
	}
}

func TestDispatcher_EqualPriorityRegistrationOrder(t *testing.T) {
	d := New(nil)

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		d.On(protocol.EventInboxNew, func(protocol.Envelope) {
			order = append(order, i)
		})
	}

	d.Dispatch(envelope(t, protocol.EventInboxNew))

	for i, got := range order {
		if got != i {
			t.Fatalf("order = %v, want ascending registration order", order)
		}
	}
}

func TestDispatcher_WildcardReceivesAll(t *testing.T) {
	d := New(nil)

	var got []string
	d.On(protocol.Wildcard, func(env protocol.Envelope) {
		got = append(got, env.Type)
	})

	d.Dispatch(envelope(t, protocol.EventTypingStart))
	d.Dispatch(envelope(t, "custom:unknown"))

	if len(got) != 2 || got[0] != protocol.EventTypingStart || got[1] != "custom:unknown" {
		t.Errorf("wildcard received %v", got)
	}
}

func TestDispatcher_WildcardPriorityInterleaves(t *testing.T) {
	d := New(nil)

	var order []string
	d.On(protocol.EventMessageNew, func(protocol.Envelope) {
		order = append(order, "concrete-5")
	}, WithPriority(5))
	d.On(protocol.Wildcard, func(protocol.Envelope) {
		order = append(order, "wild-10")
	}, WithPriority(10))
	d.On(protocol.Wildcard, func(protocol.Envelope) {
		order = append(order, "wild-0")
	})

	d.Dispatch(envelope(t, protocol.EventMessageNew))

	want := []string{"wild-10", "concrete-5", "wild-0"}
	for i := range want {
		if i >= len(order) || order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestDispatcher_OnceFiresExactlyOnce(t *testing.T) {
	d := New(nil)

	calls := 0
	d.Once(protocol.EventUserOnline, func(protocol.Envelope) {
		calls++
	})

	for i := 0; i < 3; i++ {
		d.Dispatch(envelope(t, protocol.EventUserOnline))
	}

	if calls != 1 {
		t.Errorf("once handler fired %d times, want 1", calls)
	}
	if n := d.HandlerCount(protocol.EventUserOnline); n != 0 {
		t.Errorf("HandlerCount = %d after once fired, want 0", n)
	}
}

func TestDispatcher_OnceRemovedEvenIfHandlerPanics(t *testing.T) {
	d := New(nil)

	calls := 0
	d.Once(protocol.EventUserOnline, func(protocol.Envelope) {
		calls++
		panic("boom")
	})

	d.Dispatch(envelope(t, protocol.EventUserOnline))
	d.Dispatch(envelope(t, protocol.EventUserOnline))

	if calls != 1 {
		t.Errorf("panicking once handler fired %d times, want 1", calls)
	}
}

func TestDispatcher_PanicDoesNotStopDispatch(t *testing.T) {
	d := New(nil)

	var after bool
	d.On(protocol.EventMessageNew, func(protocol.Envelope) {
		panic("boom")
	}, WithPriority(10))
	d.On(protocol.EventMessageNew, func(protocol.Envelope) {
		after = true
	}, WithPriority(1))

	d.Dispatch(envelope(t, protocol.EventMessageNew))

	if !after {
		t.Error("handler after panicking handler did not fire")
	}
}

func TestDispatcher_UnsubscribeIdempotent(t *testing.T) {
	d := New(nil)

	calls := 0
	off := d.On(protocol.EventLabelCreated, func(protocol.Envelope) {
		calls++
	})

	off()
	off() // second call is a no-op

	d.Dispatch(envelope(t, protocol.EventLabelCreated))

	if calls != 0 {
		t.Errorf("handler fired %d times after unsubscribe, want 0", calls)
	}
}

func TestDispatcher_UnknownTypeWildcardOnly(t *testing.T) {
	d := New(nil)

	var concrete, wild int
	d.On(protocol.EventMessageNew, func(protocol.Envelope) { concrete++ })
	d.On(protocol.Wildcard, func(protocol.Envelope) { wild++ })

	d.Dispatch(envelope(t, "totally:unknown"))

	if concrete != 0 {
		t.Errorf("concrete handler fired for unknown type")
	}
	if wild != 1 {
		t.Errorf("wildcard fired %d times, want 1", wild)
	}
}

func TestDispatcher_ConcurrentDispatch(t *testing.T) {
	d := New(nil)

	var mu sync.Mutex
	calls := 0
	d.On(protocol.EventActivityNew, func(protocol.Envelope) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	env := envelope(t, protocol.EventActivityNew)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Dispatch(env)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if calls != 10 {
		t.Errorf("calls = %d, want 10", calls)
	}
}
