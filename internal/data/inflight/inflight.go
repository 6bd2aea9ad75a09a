// Package inflight coalesces concurrent identical requests so that a scan
// burst asking for the same token's holders or security data performs a
// single upstream call.
package inflight

import "sync"

// Registry deduplicates in-flight calls by key. The entry is removed once
// the producer completes, success or failure.
type Registry struct {
	mu    sync.Mutex
	calls map[string]*call
}

type call struct {
	done chan struct{}
	val  any
	err  error
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{calls: make(map[string]*call)}
}

// Do executes fn for key unless an identical call is already in flight, in
// which case it waits for and returns that call's result.
func (r *Registry) Do(key string, fn func() (any, error)) (any, error) {
	r.mu.Lock()
	if c, ok := r.calls[key]; ok {
		r.mu.Unlock()
		<-c.done
		return c.val, c.err
	}

	c := &call{done: make(chan struct{})}
	r.calls[key] = c
	r.mu.Unlock()

	c.val, c.err = fn()

	r.mu.Lock()
	delete(r.calls, key)
	r.mu.Unlock()
	close(c.done)

	return c.val, c.err
}

// Pending returns the number of keys currently in flight.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}
