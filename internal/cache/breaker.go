package cache

import (
	"sync"
	"time"
)

// Breaker keeps a flapping redis from slowing every request down. Two states
// only: closed, and open with a cooldown after which the next call probes
// through. The cache is best-effort, so there is no half-open call budget.
type Breaker struct {
	mu          sync.Mutex
	failures    int
	maxFailures int
	cooldown    time.Duration
	openedAt    time.Time
	isOpen      bool
}

func NewBreaker(maxFailures int, cooldown time.Duration) *Breaker {
	if maxFailures <= 0 {
		maxFailures = 3
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{maxFailures: maxFailures, cooldown: cooldown}
}

// Allow reports whether the caller should attempt the cache at all.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.isOpen {
		return true
	}
	return time.Since(b.openedAt) >= b.cooldown
}

func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.isOpen = false
}

func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.failures >= b.maxFailures {
		b.isOpen = true
		b.openedAt = time.Now()
	}
}

func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.isOpen && time.Since(b.openedAt) < b.cooldown
}

func (b *Breaker) Stats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := "closed"
	if b.isOpen {
		state = "open"
	}
	return map[string]interface{}{
		"state":            state,
		"failure_count":    b.failures,
		"max_failures":     b.maxFailures,
		"cooldown_seconds": b.cooldown.Seconds(),
	}
}
