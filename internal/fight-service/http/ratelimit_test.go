package httpapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestLimiter(r rate.Limit, burst int) (*limiter, *fakeClock) {
	clk := &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	l := newLimiter(r, burst)
	l.now = clk.now
	return l, clk
}

func TestLimiterPerKey(t *testing.T) {
	l, _ := newTestLimiter(rate.Every(time.Second), 1)

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
}

func TestLimiterEvictsIdleFullBuckets(t *testing.T) {
	l, clk := newTestLimiter(rate.Every(time.Second), 1)
	for _, k := range []string{"a", "b", "c"} {
		assert.True(t, l.Allow(k))
	}
	assert.Len(t, l.byKey, 3)

	clk.t = clk.t.Add(idleTTL)
	assert.True(t, l.Allow("d"))
	assert.Len(t, l.byKey, 1)
	assert.Contains(t, l.byKey, "d")
}

func TestLimiterKeepsBucketsStillRefilling(t *testing.T) {
	l, clk := newTestLimiter(rate.Every(time.Hour), 1)
	assert.True(t, l.Allow("a"))

	clk.t = clk.t.Add(idleTTL)
	assert.True(t, l.Allow("b"))
	assert.Contains(t, l.byKey, "a")
	assert.False(t, l.Allow("a"))
}

func TestLimiterUnlimited(t *testing.T) {
	l, _ := newTestLimiter(0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("a"))
	}
	assert.Empty(t, l.byKey)
}
