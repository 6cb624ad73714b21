package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(start time.Time) (*Limiter, *time.Time) {
	clock := start
	l := NewLimiter()
	l.now = func() time.Time { return clock }
	return l, &clock
}

func TestAllowWithinLimit(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1000, 0))
	rule := NewSocketRule(3, 10*time.Second)

	assert.True(t, l.Allow("1.2.3.4", rule))
	assert.True(t, l.Allow("1.2.3.4", rule))
	assert.True(t, l.Allow("1.2.3.4", rule))
	assert.False(t, l.Allow("1.2.3.4", rule))
}

func TestWindowResets(t *testing.T) {
	l, clock := newTestLimiter(time.Unix(1000, 0))
	rule := NewSocketRule(1, 10*time.Second)

	assert.True(t, l.Allow("1.2.3.4", rule))
	assert.False(t, l.Allow("1.2.3.4", rule))

	*clock = clock.Add(11 * time.Second)
	assert.True(t, l.Allow("1.2.3.4", rule))
}

func TestIdentifiersAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1000, 0))
	rule := NewSocketRule(1, 10*time.Second)

	assert.True(t, l.Allow("1.2.3.4", rule))
	assert.True(t, l.Allow("5.6.7.8", rule))
	assert.False(t, l.Allow("1.2.3.4", rule))
}

func TestHTTPAndSocketBucketsAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1000, 0))
	httpRule := NewHTTPRule(1, time.Minute)
	wsRule := NewSocketRule(1, 10*time.Second)

	assert.True(t, l.Allow("1.2.3.4", httpRule))
	assert.True(t, l.Allow("1.2.3.4", wsRule))
	assert.False(t, l.Allow("1.2.3.4", httpRule))
	assert.False(t, l.Allow("1.2.3.4", wsRule))
}

func TestPruneDropsExpiredBuckets(t *testing.T) {
	l, clock := newTestLimiter(time.Unix(1000, 0))
	rule := NewSocketRule(5, 10*time.Second)

	l.Allow("1.2.3.4", rule)
	*clock = clock.Add(time.Minute)
	l.Prune()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.buckets)
}
