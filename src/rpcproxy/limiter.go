package rpcproxy

import (
	"context"
	"sync"
	"time"

	"github.com/juju/clock"
	"golang.org/x/time/rate"
)

const (
	DefaultCapacity = 100
	DefaultRefill   = 50 // tokens per second
	// IdleAfter is how long an unused bucket is kept.
	IdleAfter     = 2 * time.Minute
	sweepInterval = 5 * time.Minute
)

type bucket struct {
	lim  *rate.Limiter
	last time.Time
}

// Limiter is a token bucket per client key. New keys start with a full bucket.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	capacity int
	refill   rate.Limit
	clock    clock.Clock
}

func NewLimiter(capacity int, refillPerSecond float64, clk clock.Clock) *Limiter {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if refillPerSecond <= 0 {
		refillPerSecond = DefaultRefill
	}
	if clk == nil {
		clk = clock.WallClock
	}
	return &Limiter{
		buckets:  make(map[string]*bucket),
		capacity: capacity,
		refill:   rate.Limit(refillPerSecond),
		clock:    clk,
	}
}

// Allow takes one token from key's bucket.
func (l *Limiter) Allow(key string) bool {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.refill, l.capacity)}
		l.buckets[key] = b
	}
	b.last = now
	return b.lim.AllowN(now, 1)
}

// Sweep drops buckets unused for longer than idle and reports how many.
func (l *Limiter) Sweep(idle time.Duration) int {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for key, b := range l.buckets {
		if now.Sub(b.last) > idle {
			delete(l.buckets, key)
			n++
		}
	}
	return n
}

// Run sweeps idle buckets until ctx is done.
func (l *Limiter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.clock.After(sweepInterval):
			if n := l.Sweep(IdleAfter); n > 0 {
				logger.Debugf("dropped %d idle rate buckets", n)
			}
		}
	}
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
