package realtime

import "sync"

// Registry maps actor identities to their currently connected channel. An
// actor has at most one live channel; a new connection supersedes the old
// one. The registry holds a weak reference only; connecting or
// disconnecting never touches the actor's record elsewhere.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]Channel)}
}

// Register binds an actor to its live channel, replacing any prior binding.
// The superseded channel, if any, is closed and returned.
func (r *Registry) Register(actorID string, ch Channel) Channel {
	r.mu.Lock()
	prev := r.channels[actorID]
	r.channels[actorID] = ch
	r.mu.Unlock()

	if prev != nil && prev != ch {
		_ = prev.Close()
	}
	return prev
}

// Unregister removes the binding for actorID, but only if it still points at
// ch. A reconnect that already replaced the binding is left untouched, so a
// stale connection's deferred cleanup cannot tear down the live one.
func (r *Registry) Unregister(actorID string, ch Channel) {
	r.mu.Lock()
	if cur, ok := r.channels[actorID]; ok && cur == ch {
		delete(r.channels, actorID)
	}
	r.mu.Unlock()
}

// Lookup returns the channel bound to actorID, or nil.
func (r *Registry) Lookup(actorID string) Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channels[actorID]
}

// Connected reports whether actorID has a live channel.
func (r *Registry) Connected(actorID string) bool {
	return r.Lookup(actorID) != nil
}
