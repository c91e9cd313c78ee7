package util

import (
	"context"
	"sync"
	"time"
)

// LimiterRegistry keeps one Limiter per client key. Limiters idle for longer than the
// ttl are forgotten, so a returning client starts with a full bucket.
type LimiterRegistry struct {
	rate  float64
	burst int
	ttl   time.Duration

	mu      sync.Mutex
	clients map[string]*clientLimiter

	cancel context.CancelFunc
	done   chan struct{}
}

type clientLimiter struct {
	*Limiter
	seen time.Time
}

// NewLimiterRegistry starts a registry with a background sweeper; call Close to stop it.
func NewLimiterRegistry(r float64, b int, ttl time.Duration) *LimiterRegistry {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	reg := &LimiterRegistry{
		rate:    r,
		burst:   b,
		ttl:     ttl,
		clients: make(map[string]*clientLimiter),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go reg.sweepLoop(ctx)
	return reg
}

// Get returns the limiter of key, replacing it when it expired since its last use.
func (r *LimiterRegistry) Get(key string) *Limiter {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[key]
	if !ok || r.expired(c, now) {
		c = &clientLimiter{Limiter: NewLimiter(r.rate, r.burst)}
		r.clients[key] = c
	}
	c.seen = now
	return c.Limiter
}

func (r *LimiterRegistry) Allow(key string) bool {
	return r.Get(key).Allow(1)
}

func (r *LimiterRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Close stops the sweeper. It is safe to call more than once.
func (r *LimiterRegistry) Close() {
	r.cancel()
	<-r.done
}

func (r *LimiterRegistry) expired(c *clientLimiter, now time.Time) bool {
	return now.Sub(c.seen) > r.ttl
}

func (r *LimiterRegistry) sweepLoop(ctx context.Context) {
	defer close(r.done)
	ticker := time.NewTicker(r.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.sweep(now)
		}
	}
}

func (r *LimiterRegistry) sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for key, c := range r.clients {
		if r.expired(c, now) {
			delete(r.clients, key)
			evicted++
		}
	}
	return evicted
}
