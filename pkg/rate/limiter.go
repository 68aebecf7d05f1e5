package rate

import (
	"math"
	"sync"

	"golang.org/x/time/rate"

	"github.com/wiser-pay/wiser-server/pkg/cache"
)

// Limiter limits operations based on a provided key.
type Limiter interface {
	Allow(key string) (bool, error)
}

// LimiterCtor allows the creation of a Limiter using a provided rate.
type LimiterCtor func(rate float64) Limiter

// DefaultMaxKeys bounds the number of keys a local limiter tracks.
const DefaultMaxKeys = 100_000

type localRateLimiter struct {
	limit rate.Limit
	burst int

	sync.Mutex
	limiters cache.Cache[*rate.Limiter]
}

// NewLocalRateLimiter returns an in memory limiter allowing limit operations
// per second for each key. The burst is the limit rounded up, and at least 1.
func NewLocalRateLimiter(limit rate.Limit) Limiter {
	return NewLocalRateLimiterWithMaxKeys(limit, DefaultMaxKeys)
}

// NewLocalRateLimiterWithMaxKeys is NewLocalRateLimiter tracking at most
// maxKeys keys. The least recently used key is forgotten first.
func NewLocalRateLimiterWithMaxKeys(limit rate.Limit, maxKeys int) Limiter {
	burst := int(math.Ceil(float64(limit)))
	if burst < 1 {
		burst = 1
	}
	if maxKeys < 1 {
		maxKeys = 1
	}

	return &localRateLimiter{
		limit:    limit,
		burst:    burst,
		limiters: cache.NewCache[*rate.Limiter]("rate_limiter", maxKeys),
	}
}

// Allow implements limiter.Allow.
func (l *localRateLimiter) Allow(key string) (bool, error) {
	l.Lock()
	limiter, ok := l.limiters.Retrieve(key)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		if err := l.limiters.Insert(key, limiter, 1); err != nil {
			l.Unlock()
			return false, err
		}
	}
	l.Unlock()

	return limiter.Allow(), nil
}

// NoLimiter never limits operations
type NoLimiter struct {
}

// Allow implements limiter.Allow.
func (n *NoLimiter) Allow(key string) (bool, error) {
	return true, nil
}
