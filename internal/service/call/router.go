package call

import (
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wavelink-backend/internal/presence"
	"wavelink-backend/pkg/logger"
)

// Router is the stateless relay between the two parties of a session: given
// a target identity and a payload tagged with its callId, it delivers to
// every connection the presence registry currently holds for that identity.
// Delivery is best-effort with no acknowledgment or retry, which keeps
// signaling latency minimal for frequently-superseded candidate messages.
type Router struct {
	registry *presence.Registry
}

// NewRouter creates a router over the given registry.
func NewRouter(registry *presence.Registry) *Router {
	return &Router{registry: registry}
}

// RelayTo delivers the envelope to every connection of the target identity.
// A target with no connections is a dropped payload, not an error.
func (r *Router) RelayTo(target uuid.UUID, env *Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		logger.Error("Failed to marshal signaling envelope",
			zap.String("type", env.Type),
			zap.Error(err))
		return
	}

	conns := r.registry.ConnectionsOf(target)
	if len(conns) == 0 {
		logger.Debug("Signaling payload dropped: peer unreachable",
			zap.String("type", env.Type),
			zap.String("target", target.String()))
		return
	}
	for _, conn := range conns {
		conn.Deliver(payload)
	}
}

// BroadcastAll delivers the envelope to every live connection.
func (r *Router) BroadcastAll(env *Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		logger.Error("Failed to marshal broadcast envelope",
			zap.String("type", env.Type),
			zap.Error(err))
		return
	}
	for _, conn := range r.registry.AllConnections() {
		conn.Deliver(payload)
	}
}
