// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import "time"

// TimeCache is the interface both ratelimit.Limiter and the compressor's
// mtime cache program against, so either can be swapped for a test double
// without depending on LRUCache's internals.
type TimeCache interface {
	// Get returns the stored timestamp for key and whether it is present and unexpired.
	Get(key string) (time.Time, bool)

	// Add stores or refreshes the timestamp for key, evicting the least
	// recently used entry if the cache is at capacity.
	Add(key string, value time.Time)

	// Remove deletes key. Returns true if it was present.
	Remove(key string) bool

	// Len returns the number of entries currently stored (including
	// not-yet-swept expired ones).
	Len() int

	// CleanupExpired evicts all expired entries and returns the count removed.
	CleanupExpired() int
}

var _ TimeCache = (*LRUCache)(nil)
