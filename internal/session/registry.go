// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"sync"
	"time"
)

type entry struct {
	cache    *Cache
	lastUsed time.Time
}

// Registry hands out one Cache per session ID and forgets sessions left
// idle longer than its TTL. Caches are never shared between IDs.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	size     int
	ttl      time.Duration
	now      func() time.Time
}

// NewRegistry creates a Registry whose caches hold size entries and
// expire after ttl of inactivity. A zero ttl disables expiry.
func NewRegistry(size int, ttl time.Duration) *Registry {
	return &Registry{
		sessions: make(map[string]*entry),
		size:     size,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the Cache for id, creating it on first use.
func (r *Registry) Get(id string) *Cache {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	e, ok := r.sessions[id]
	if !ok || r.expired(e, now) {
		e = &entry{cache: New(r.size)}
		r.sessions[id] = e
	}
	e.lastUsed = now
	return e.cache
}

// End drops the session's cache.
func (r *Registry) End(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Sweep removes expired sessions and returns how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, e := range r.sessions {
		if r.expired(e, now) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) expired(e *entry, now time.Time) bool {
	return r.ttl > 0 && now.Sub(e.lastUsed) > r.ttl
}
