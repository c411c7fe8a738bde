// Package ratelimit implements the per-process token-bucket limiter shared by
// every outbound LLM call. Capacity and refill rate are RPM-derived and can
// be changed live via SetLimit; consumers must call SetLimit (if a config
// change occurred) before Consume so the new limit applies to the current
// acquisition.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter is a single shared token bucket. It is safe for concurrent use.
type Limiter struct {
	mu  sync.Mutex
	rpm int
	lim *rate.Limiter
}

// New creates a limiter with the given requests-per-minute capacity. An rpm
// of 0 or less disables limiting (Consume always returns immediately).
func New(rpm int) *Limiter {
	l := &Limiter{}
	l.setLimitLocked(rpm)
	return l
}

// SetLimit updates the capacity and refill rate to match a new RPM value. If
// the limiter currently holds more tokens than the new capacity allows, the
// token count is clamped down to the new burst size.
func (l *Limiter) SetLimit(rpm int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.setLimitLocked(rpm)
}

func (l *Limiter) setLimitLocked(rpm int) {
	l.rpm = rpm
	if rpm <= 0 {
		l.lim = nil
		return
	}
	rps := rate.Limit(float64(rpm) / 60.0)
	burst := rpm
	if l.lim == nil {
		l.lim = rate.NewLimiter(rps, burst)
		return
	}
	l.lim.SetLimit(rps)
	l.lim.SetBurst(burst)
}

// Consume waits for one token to become available, honoring ctx
// cancellation. It returns immediately if the limiter has no configured
// RPM (disabled).
func (l *Limiter) Consume(ctx context.Context) error {
	l.mu.Lock()
	lim := l.lim
	l.mu.Unlock()

	if lim == nil {
		return nil
	}
	return lim.Wait(ctx)
}

// RPM returns the currently configured requests-per-minute capacity.
func (l *Limiter) RPM() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rpm
}
