package feed

import (
	"math"
	"math/rand"
	"time"
)

// Backoff spaces out feed redials. The wait grows by Factor from Min after
// every failed dial and is capped at Max.
type Backoff struct {
	Min    time.Duration
	Max    time.Duration
	Factor float64
	// Jitter spreads the wait by up to that fraction either way, 0 to 1.
	Jitter float64
	// Rand returns a number in [0, 1) for jitter. Nil uses math/rand.
	Rand   func() float64
}

func DefaultBackoff() Backoff {
	return Backoff{
		Min:    250 * time.Millisecond,
		Max:    5 * time.Second,
		Factor: 2.0,
		Jitter: 0.2,
	}
}

func (b Backoff) bounds() (low, high time.Duration, factor float64) {
	low, high, factor = b.Min, b.Max, b.Factor
	if low <= 0 {
		low = 100 * time.Millisecond
	}
	if high < low {
		high = max(low, 5*time.Second)
	}
	if factor <= 1 {
		factor = 2.0
	}
	return low, high, factor
}

// Next returns the wait after the given failed dial, counted from 1.
func (b Backoff) Next(attempt int) time.Duration {
	low, high, factor := b.bounds()
	attempt = max(attempt, 1)

	wait := high
	if grown := float64(low) * math.Pow(factor, float64(attempt-1)); grown < float64(high) {
		wait = time.Duration(grown)
	}

	jitter := min(b.Jitter, 1)
	if jitter <= 0 {
		return wait
	}
	r := rand.Float64
	if b.Rand != nil {
		r = b.Rand
	}
	delta := float64(wait) * jitter
	return wait - time.Duration(delta) + time.Duration(r()*2*delta)
}

// Schedule lists the waits a client sleeps through before giving up after
// maxAttempts failed dials. The last failure returns instead of waiting.
// Zero maxAttempts retries forever and has no finite schedule.
func (b Backoff) Schedule(maxAttempts int) []time.Duration {
	if maxAttempts <= 1 {
		return nil
	}
	waits := make([]time.Duration, 0, maxAttempts-1)
	for attempt := 1; attempt < maxAttempts; attempt++ {
		waits = append(waits, b.Next(attempt))
	}
	return waits
}
