// Package presence tracks which identities are reachable over which live
// connections. A user may hold several connections at once (multi-device);
// an identity is online iff its connection set is non-empty.
package presence

import (
	"sync"

	"github.com/google/uuid"
)

// Conn is one live transport link for an identity. The registry holds
// non-owning references; the transport layer creates and destroys the
// underlying connection. Deliver must never block.
type Conn interface {
	Deliver(payload []byte)
}

// Registry maps identity to its set of live connections. All mutations for a
// given identity are serialized, so concurrent connect/disconnect races on
// the same identity cannot lose updates.
type Registry struct {
	mu         sync.RWMutex
	byIdentity map[uuid.UUID]map[Conn]struct{}
	identities map[Conn]uuid.UUID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byIdentity: make(map[uuid.UUID]map[Conn]struct{}),
		identities: make(map[Conn]uuid.UUID),
	}
}

// Register adds a connection to the identity's set. Registering the same
// connection twice is a no-op.
func (r *Registry) Register(identity uuid.UUID, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.identities[conn]; exists {
		return
	}
	set := r.byIdentity[identity]
	if set == nil {
		set = make(map[Conn]struct{})
		r.byIdentity[identity] = set
	}
	set[conn] = struct{}{}
	r.identities[conn] = identity
}

// Deregister removes a connection. It reports which identity owned it and
// whether that identity went offline (its last connection dropped). ok is
// false for connections the registry never saw.
func (r *Registry) Deregister(conn Conn) (identity uuid.UUID, offline bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok = r.identities[conn]
	if !ok {
		return uuid.Nil, false, false
	}
	delete(r.identities, conn)

	set := r.byIdentity[identity]
	delete(set, conn)
	if len(set) == 0 {
		delete(r.byIdentity, identity)
		offline = true
	}
	return identity, offline, true
}

// ConnectionsOf returns a snapshot of the identity's live connections,
// possibly empty.
func (r *Registry) ConnectionsOf(identity uuid.UUID) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.byIdentity[identity]
	conns := make([]Conn, 0, len(set))
	for conn := range set {
		conns = append(conns, conn)
	}
	return conns
}

// IsOnline reports whether the identity has at least one live connection.
func (r *Registry) IsOnline(identity uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byIdentity[identity]) > 0
}

// OnlineIdentities returns a snapshot of every identity with at least one
// live connection.
func (r *Registry) OnlineIdentities() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(r.byIdentity))
	for id := range r.byIdentity {
		ids = append(ids, id)
	}
	return ids
}

// AllConnections returns a snapshot of every live connection across all
// identities, for full broadcasts.
func (r *Registry) AllConnections() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]Conn, 0, len(r.identities))
	for conn := range r.identities {
		conns = append(conns, conn)
	}
	return conns
}
