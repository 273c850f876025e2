// Package ratelimit implements the scan core's global concurrency cap
// and per-host token bucket pacing (§4.B).
package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// Controller guards all outbound requests behind a global semaphore and
// a per-host token bucket, acquired in that order (§4.B).
type Controller struct {
	global chan struct{}

	mu         sync.Mutex
	buckets    map[string]*rate.Limiter
	perHostR   rate.Limit
	perHostB   int
}

// New builds a Controller with global concurrency cap G and per-host
// rate R (requests/second) and burst B (§4.B defaults: G=6, R=2, B=4).
func New(globalConcurrency int, perHostRate float64, perHostBurst int) *Controller {
	return &Controller{
		global:   make(chan struct{}, globalConcurrency),
		buckets:  make(map[string]*rate.Limiter),
		perHostR: rate.Limit(perHostRate),
		perHostB: perHostBurst,
	}
}

// Release is returned by Acquire and must be called exactly once when
// the caller's outbound request completes, success or error (§4.B).
type Release func()

// Acquire blocks until both the global slot and the host's token are
// available, or ctx is done; it applies no deadline of its own. On
// cancellation it returns an error wrapping ctx.Err(), which the
// provider fetch reports as a transport failure, so the probe is
// classified status=error with that error text.
func (c *Controller) Acquire(ctx context.Context, host string) (Release, error) {
	select {
	case c.global <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("ratelimit: acquiring global slot: %w", ctx.Err())
	}

	limiter := c.hostLimiter(host)
	if err := limiter.Wait(ctx); err != nil {
		<-c.global
		return nil, fmt.Errorf("ratelimit: acquiring per-host token for %s: %w", host, err)
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		<-c.global
	}, nil
}

func (c *Controller) hostLimiter(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	if l, ok := c.buckets[host]; ok {
		return l
	}
	l := rate.NewLimiter(c.perHostR, c.perHostB)
	c.buckets[host] = l
	return l
}
