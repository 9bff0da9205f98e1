package backoff

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestController_ScheduleFires(t *testing.T) {
	mock := clock.NewMock()
	c := NewController(mock)

	var fired atomic.Int32
	c.Schedule(time.Second, func() { fired.Add(1) })

	if !c.Pending() {
		t.Error("expected pending timer after Schedule")
	}

	mock.Add(999 * time.Millisecond)
	if fired.Load() != 0 {
		t.Error("timer fired early")
	}

	mock.Add(time.Millisecond)
	if fired.Load() != 1 {
		t.Errorf("fired = %d, want 1", fired.Load())
	}
	if c.Pending() {
		t.Error("timer still pending after firing")
	}
}

func TestController_CancelPreventsFire(t *testing.T) {
	mock := clock.NewMock()
	c := NewController(mock)

	var fired atomic.Int32
	c.Schedule(time.Second, func() { fired.Add(1) })
	c.Cancel()

	mock.Add(2 * time.Second)

	if fired.Load() != 0 {
		t.Errorf("fired = %d after Cancel, want 0", fired.Load())
	}
	if c.Pending() {
		t.Error("timer pending after Cancel")
	}
}

func TestController_RescheduleReplacesPending(t *testing.T) {
	mock := clock.NewMock()
	c := NewController(mock)

	var first, second atomic.Int32
	c.Schedule(time.Second, func() { first.Add(1) })
	c.Schedule(3*time.Second, func() { second.Add(1) })

	mock.Add(2 * time.Second)
	if first.Load() != 0 {
		t.Error("replaced timer fired")
	}

	mock.Add(time.Second)
	if second.Load() != 1 {
		t.Errorf("second fired = %d, want 1", second.Load())
	}
}

func TestController_CancelIdempotent(t *testing.T) {
	c := NewController(clock.NewMock())
	c.Cancel()
	c.Cancel() // no timer armed, still a no-op
}
