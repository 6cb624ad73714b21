// Package ratelimit provides in-memory fixed-window rate limiting keyed by
// client IP. HTTP requests and WebSocket messages use independent buckets,
// so the same IP is counted separately per transport. This is per-process
// best-effort abuse mitigation, not a hard quota.
package ratelimit

import (
	"sync"
	"time"
)

// Rule defines a rate limiting policy: the bucket key prefix, maximum number
// of units allowed in the window, and the window duration.
type Rule struct {
	Key    string        // bucket key prefix (e.g. "http:", "ws:")
	Limit  int           // max count in the window
	Window time.Duration // time window
}

// NewHTTPRule builds the policy applied per IP to inbound HTTP requests.
func NewHTTPRule(limit int, window time.Duration) Rule {
	return Rule{Key: "http:", Limit: limit, Window: window}
}

// NewSocketRule builds the policy applied per IP to inbound WebSocket
// messages.
func NewSocketRule(limit int, window time.Duration) Rule {
	return Rule{Key: "ws:", Limit: limit, Window: window}
}

type bucket struct {
	count   int
	resetAt time.Time
}

// Limiter tracks fixed-window counters for each (rule, identifier) pair.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

// NewLimiter creates an empty Limiter.
func NewLimiter() *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow records one unit for the identifier under the given rule and reports
// whether it is still within the limit. When the window has elapsed the
// counter resets and a fresh window starts.
func (l *Limiter) Allow(identifier string, rule Rule) bool {
	key := rule.Key + identifier
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || now.After(b.resetAt) {
		b = &bucket{resetAt: now.Add(rule.Window)}
		l.buckets[key] = b
	}

	b.count++
	return b.count <= rule.Limit
}

// Prune drops every expired bucket. Called periodically so idle IPs do not
// accumulate forever.
func (l *Limiter) Prune() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if now.After(b.resetAt) {
			delete(l.buckets, key)
		}
	}
}
