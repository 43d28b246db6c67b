package call

import (
	"hash/fnv"
	"sync"

	"github.com/google/uuid"

	"wavelink-backend/internal/domain"
)

// stripeCount must be a power of two
const stripeCount = 64

// sessionTable owns every active CallSession, keyed by callId. A mutex
// striped by callId serializes all events for the same call, so two events
// for one callId are always applied in a deterministic order while unrelated
// calls proceed concurrently.
type sessionTable struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*domain.CallSession
	stripes  [stripeCount]sync.Mutex
}

func newSessionTable() *sessionTable {
	return &sessionTable{
		sessions: make(map[uuid.UUID]*domain.CallSession),
	}
}

// stripe returns the lock owning the given callId. Callers hold it for the
// full duration of an event, including relays, to preserve per-call ordering.
func (t *sessionTable) stripe(callID uuid.UUID) *sync.Mutex {
	h := fnv.New32a()
	h.Write(callID[:])
	return &t.stripes[h.Sum32()&(stripeCount-1)]
}

// get returns the live session for callId, if any. The caller must hold the
// callId's stripe before mutating the result.
func (t *sessionTable) get(callID uuid.UUID) (*domain.CallSession, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	sess, ok := t.sessions[callID]
	return sess, ok
}

// insert adds a session and reports whether the callId was free. An existing
// session is never overwritten.
func (t *sessionTable) insert(sess *domain.CallSession) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.sessions[sess.CallID]; exists {
		return false
	}
	t.sessions[sess.CallID] = sess
	return true
}

// take removes and returns the session for callId. Exactly one caller can
// win the removal, which is what makes the terminal log write single-shot.
func (t *sessionTable) take(callID uuid.UUID) (*domain.CallSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess, ok := t.sessions[callID]
	if !ok {
		return nil, false
	}
	delete(t.sessions, callID)
	return sess, true
}

// involving returns the callIds of every live session the identity is a
// party to, for disconnect-triggered cleanup.
func (t *sessionTable) involving(identity uuid.UUID) []uuid.UUID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var ids []uuid.UUID
	for callID, sess := range t.sessions {
		if sess.Caller == identity || sess.Callee == identity {
			ids = append(ids, callID)
		}
	}
	return ids
}

// size returns the number of live sessions.
func (t *sessionTable) size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}
