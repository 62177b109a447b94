package cache

import (
	"sync"
)

// Registry is a process-wide set of per-device table caches. Instances are
// created on first use and live for the rest of the process, so each device
// keeps exactly one cache and one lock.
type Registry struct {
	caches map[string]*TableCache
	mu     sync.Mutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{caches: make(map[string]*TableCache)}
}

// Get returns the cache for the device identity, building it with the
// supplied constructor on first use. Concurrent callers for the same device
// receive the same instance.
func (r *Registry) Get(host string, port uint16, v6 bool, build func() (*TableCache, error)) (*TableCache, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := deviceKey(host, port, v6)
	if cache, ok := r.caches[key]; ok {
		return cache, nil
	}

	cache, err := build()
	if err != nil {
		return nil, err
	}
	r.caches[key] = cache
	return cache, nil
}

// Devices returns the identities of all registered caches.
func (r *Registry) Devices() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	devices := make([]string, 0, len(r.caches))
	for key := range r.caches {
		devices = append(devices, key)
	}
	return devices
}
