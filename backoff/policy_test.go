package backoff

import (
	"testing"
	"time"
)

func TestPolicy_Delay(t *testing.T) {
	p := Policy{
		Initial:    time.Second,
		Max:        30 * time.Second,
		Multiplier: 2,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{5, 30 * time.Second}, // 32s saturates at Max
		{20, 30 * time.Second},
		{100, 30 * time.Second},
	}

	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestPolicy_DelayEarlyAttemptsUnclamped(t *testing.T) {
	p := Policy{
		Initial:    time.Second,
		Max:        30 * time.Second,
		Multiplier: 2,
	}

	// 2^4 = 16s is still below the 30s cap.
	if got := p.Delay(4); got != 16*time.Second {
		t.Errorf("Delay(4) = %v, want 16s", got)
	}
}

func TestPolicy_DelayConstantMultiplier(t *testing.T) {
	p := Policy{Initial: 500 * time.Millisecond, Max: time.Minute, Multiplier: 1}

	for _, attempt := range []int{0, 3, 9} {
		if got := p.Delay(attempt); got != 500*time.Millisecond {
			t.Errorf("Delay(%d) = %v, want 500ms", attempt, got)
		}
	}
}

func TestPolicy_DelayNegativeAttempt(t *testing.T) {
	p := Policy{Initial: time.Second, Max: time.Minute, Multiplier: 2}

	if got := p.Delay(-1); got != time.Second {
		t.Errorf("Delay(-1) = %v, want initial delay", got)
	}
}

func TestPolicy_Jitter(t *testing.T) {
	p := Policy{
		Initial:    10 * time.Second,
		Max:        time.Minute,
		Multiplier: 2,
		Jitter:     0.5,
	}

	for i := 0; i < 100; i++ {
		d := p.Delay(0)
		if d < 5*time.Second || d > 15*time.Second {
			t.Fatalf("jittered Delay(0) = %v, want within [5s, 15s]", d)
		}
	}
}

func TestPolicy_Exhausted(t *testing.T) {
	tests := []struct {
		name        string
		maxAttempts int
		attempts    int
		want        bool
	}{
		{"infinite never exhausts", Infinite, 1 << 20, false},
		{"below budget", 5, 4, false},
		{"at budget", 5, 5, true},
		{"over budget", 5, 6, true},
		{"zero budget forbids retry", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Policy{MaxAttempts: tt.maxAttempts}
			if got := p.Exhausted(tt.attempts); got != tt.want {
				t.Errorf("Exhausted(%d) = %v, want %v", tt.attempts, got, tt.want)
			}
		})
	}
}
