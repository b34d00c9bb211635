package httpapi

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleTTL é o tempo sem apostas a partir do qual um bucket cheio é descartado
const idleTTL = 10 * time.Minute

// limiter mantém um token bucket por conta
type limiter struct {
	mu        sync.Mutex
	rate      rate.Limit
	burst     int
	byKey     map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func newLimiter(r rate.Limit, burst int) *limiter {
	return &limiter{rate: r, burst: burst, byKey: map[string]*bucket{}, now: time.Now}
}

func (l *limiter) Allow(key string) bool {
	if l.rate <= 0 {
		return true
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= idleTTL {
		l.sweep(now)
		l.lastSweep = now
	}
	b, ok := l.byKey[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.rate, l.burst)}
		l.byKey[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// sweep remove buckets ociosos que já voltaram ao burst: recriá-los dá o mesmo resultado
func (l *limiter) sweep(now time.Time) {
	for k, b := range l.byKey {
		if now.Sub(b.seen) >= idleTTL && b.lim.TokensAt(now) >= float64(l.burst) {
			delete(l.byKey, k)
		}
	}
}
