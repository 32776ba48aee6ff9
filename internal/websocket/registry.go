package websocket

import "sync"

// Registry tracks the single live endpoint per user in a concurrency-safe
// way. It stores socket ids (not connection pointers) so disconnect events
// can be validated against the current mapping.
type Registry struct {
	mu        sync.RWMutex
	endpoints map[string]string // userID -> socketID
}

func NewRegistry() *Registry {
	return &Registry{
		endpoints: make(map[string]string),
	}
}

// Register maps a user to a live endpoint. A new connection for an already
// registered user replaces the prior entry: last connect wins, the old
// transport is considered stale.
func (r *Registry) Register(userID, socketID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[userID] = socketID
}

// Unregister removes the mapping only if it still points at socketID. A
// disconnect for a stale endpoint racing a newer connect must not evict the
// newer one.
func (r *Registry) Unregister(userID, socketID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.endpoints[userID]; ok && current == socketID {
		delete(r.endpoints, userID)
	}
}

// Lookup returns the live endpoint for a user, if any.
func (r *Registry) Lookup(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	socketID, ok := r.endpoints[userID]
	return socketID, ok
}
