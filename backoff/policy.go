package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Infinite disables the attempt budget: reconnection retries forever.
const Infinite = -1

// Policy computes the delay before reconnection attempt n.
type Policy struct {
	// Initial is the delay before attempt 0.
	Initial time.Duration

	// Max caps the computed delay.
	Max time.Duration

	// Multiplier grows the delay per attempt. Values <= 1 mean a
	// constant delay.
	Multiplier float64

	// MaxAttempts bounds the number of attempts per reconnection
	// episode. Infinite (-1) retries forever, 0 forbids reconnection.
	MaxAttempts int

	// Jitter spreads each delay by up to +/- Jitter fraction to avoid
	// synchronized reconnection against a restarted server. 0 disables.
	Jitter float64
}

// Delay returns the wait before attempt n (0-indexed):
// min(Max, Initial * Multiplier^n), spread by Jitter when configured.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}

	d := float64(p.Initial) * math.Pow(mult, float64(attempt))
	if max := float64(p.Max); p.Max > 0 && d > max {
		d = max
	}

	if p.Jitter > 0 {
		spread := d * p.Jitter
		d += (rand.Float64()*2 - 1) * spread
		if d < 0 {
			d = 0
		}
	}

	return time.Duration(d)
}

// Exhausted reports whether attempts has consumed the budget.
func (p Policy) Exhausted(attempts int) bool {
	if p.MaxAttempts == Infinite {
		return false
	}
	return attempts >= p.MaxAttempts
}
