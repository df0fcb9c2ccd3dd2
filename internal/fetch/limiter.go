package fetch

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// DomainLimiter rate-limits requests independently per domain using a
// token bucket for each host seen.
type DomainLimiter struct {
	perSecond float64
	burst     int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewDomainLimiter creates a limiter that allows perSecond requests with
// the given burst, tracked separately for each domain.
func NewDomainLimiter(perSecond float64, burst int) *DomainLimiter {
	return &DomainLimiter{
		perSecond: perSecond,
		burst:     burst,
		limiters:  make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a request to the given domain is allowed, or the
// context is cancelled.
func (d *DomainLimiter) Wait(ctx context.Context, domain string) error {
	return d.limiterFor(domain).Wait(ctx)
}

// Allow reports whether a request to the domain may proceed immediately.
func (d *DomainLimiter) Allow(domain string) bool {
	return d.limiterFor(domain).Allow()
}

func (d *DomainLimiter) limiterFor(domain string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.limiters[domain]
	if !ok {
		l = rate.NewLimiter(rate.Limit(d.perSecond), d.burst)
		d.limiters[domain] = l
	}
	return l
}
