package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"slices"
	"sync"
)

// Registry maps each online identity to its single live connection.
// It is safe for concurrent use by every connection goroutine.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.UserID]contract.Handle
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[domain.UserID]contract.Handle),
	}
}

// Register binds identity to handle.
// An existing binding is replaced and returned so the caller can close it.
func (r *Registry) Register(identity domain.UserID, handle contract.Handle) (contract.Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous, replaced := r.sessions[identity]
	r.sessions[identity] = handle
	return previous, replaced
}

func (r *Registry) Lookup(identity domain.UserID) (contract.Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handle, ok := r.sessions[identity]
	return handle, ok
}

// Remove drops identity whatever handle it is bound to. Absent identities are ignored.
func (r *Registry) Remove(identity domain.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, identity)
}

// Release removes identity only if it is still bound to handle.
// A session that was replaced by a newer connection must not evict its successor.
func (r *Registry) Release(identity domain.UserID, handle contract.Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[identity]
	if !ok || current.ID() != handle.ID() {
		return false
	}
	delete(r.sessions, identity)
	return true
}

// Online returns the connected identities in ascending order.
func (r *Registry) Online() []domain.UserID {
	r.mu.RLock()
	ids := make([]domain.UserID, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
