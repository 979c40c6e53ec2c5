// Package tenantlock serialises claim+decide steps around a tenant's shared
// aggregates (running volume totals, threshold batch balance). The lock is
// held only for the short decision window; exchange network calls happen
// outside it.
package tenantlock

import "sync"

// Registry hands out one mutex per tenant ID.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRegistry creates an empty lock registry.
func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]*sync.Mutex)}
}

func (r *Registry) get(tenantID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[tenantID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[tenantID] = l
	}
	return l
}

// Lock acquires the tenant's mutex, blocking until available.
func (r *Registry) Lock(tenantID string) {
	r.get(tenantID).Lock()
}

// Unlock releases the tenant's mutex.
func (r *Registry) Unlock(tenantID string) {
	r.get(tenantID).Unlock()
}
