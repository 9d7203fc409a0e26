// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ratelimit implements the ingest auth-failure rate limiter: after
// one failed authentication, an IP is blocked for a fixed window.
package ratelimit

import (
	"time"

	"github.com/windtrace/trackerd/internal/cache"
)

// DefaultBlockWindow is the default block duration after one failed auth.
const DefaultBlockWindow = 5 * time.Second

// DefaultSweepInterval is an interval for callers that run SweepExpired
// periodically; it is independent of and larger than the block window.
// No loop in trackerd calls SweepExpired, so the cache's capacity bound
// is what limits memory. A sweep never changes within-window
// blocked/not-blocked semantics.
const DefaultSweepInterval = 10 * time.Minute

// DefaultCapacity bounds the limiter's memory under a sustained scan from
// many distinct IPs.
const DefaultCapacity = 100000

// Limiter tracks per-IP last-failed-authentication timestamps. A blocked
// IP remains blocked for Window after its most recent failure; successful
// authentications neither add nor remove entries.
type Limiter struct {
	cache  cache.TimeCache
	window time.Duration
	now    func() time.Time
}

// New constructs a Limiter with the given block window, backed by an
// LRU-with-TTL cache sized by capacity. TTL is set generously above
// window so a blocked IP's entry survives exactly as long as it needs to
// for the "blocked" check to see it, plus slack for clock skew.
func New(window time.Duration, capacity int, now func() time.Time) *Limiter {
	if window <= 0 {
		window = DefaultBlockWindow
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		cache:  cache.NewLRUCache(capacity, window*2),
		window: window,
		now:    now,
	}
}

// Blocked reports whether ip is currently within its block window.
func (l *Limiter) Blocked(ip string) bool {
	last, ok := l.cache.Get(ip)
	if !ok {
		return false
	}
	return l.now().Before(last.Add(l.window))
}

// RecordFailure records a failed authentication attempt for ip, starting
// (or restarting) its block window from now.
func (l *Limiter) RecordFailure(ip string) {
	l.cache.Add(ip, l.now())
}

// TrackedIPs returns the number of IPs currently tracked, for metrics.
func (l *Limiter) TrackedIPs() int {
	return l.cache.Len()
}

// Window returns the block duration applied after one failed auth, for
// callers that report it (e.g. security audit logging).
func (l *Limiter) Window() time.Duration {
	return l.window
}

// SweepExpired removes entries whose TTL has elapsed and returns how many
// it removed. Nothing in trackerd schedules it; it is never required for
// correctness since Blocked already checks the window.
func (l *Limiter) SweepExpired() int {
	return l.cache.CleanupExpired()
}
