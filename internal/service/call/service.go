package call

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wavelink-backend/internal/domain"
	"wavelink-backend/internal/presence"
	"wavelink-backend/pkg/logger"
	"wavelink-backend/pkg/metrics"
	"wavelink-backend/pkg/pagination"
)

// CallLogRepository persists concluded sessions. The store is append-only;
// the single-writer-per-callId invariant is enforced here, not by the store.
type CallLogRepository interface {
	Create(ctx context.Context, entry *domain.CallLogEntry) error
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.CallLogEntry, error)
}

// UserRepository resolves identities to profile rows for termination-time
// snapshots.
type UserRepository interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// PresenceMirror keeps a best-effort copy of the online set in shared
// storage so sibling services can read reachability. Can be nil.
type PresenceMirror interface {
	SetUserOnline(ctx context.Context, userID uuid.UUID) error
	SetUserOffline(ctx context.Context, userID uuid.UUID) error
	RefreshPresence(ctx context.Context, userID uuid.UUID) error
}

// CallNotifier rings devices without a live connection. Can be nil.
type CallNotifier interface {
	NotifyIncomingCall(ctx context.Context, callee uuid.UUID, caller uuid.UUID, callType string, callID uuid.UUID) error
}

// Service is the session lifecycle controller: it consumes inbound signaling
// events, owns the session table, relays payloads through the router, and
// writes exactly one log entry per concluded call. All events for one callId
// run under that callId's stripe, so they apply in receipt order.
type Service struct {
	registry *presence.Registry
	router   *Router
	table    *sessionTable

	logs   CallLogRepository
	users  UserRepository
	mirror PresenceMirror
	push   CallNotifier

	metrics *metrics.Metrics
}

// NewService wires the lifecycle controller. mirror, push and m may be nil.
func NewService(registry *presence.Registry, logs CallLogRepository, users UserRepository, mirror PresenceMirror, push CallNotifier, m *metrics.Metrics) *Service {
	return &Service{
		registry: registry,
		router:   NewRouter(registry),
		table:    newSessionTable(),
		logs:     logs,
		users:    users,
		mirror:   mirror,
		push:     push,
		metrics:  m,
	}
}

// Connect registers a new authenticated connection and announces the updated
// online set to everyone.
func (s *Service) Connect(ctx context.Context, identity uuid.UUID, conn presence.Conn) {
	s.registry.Register(identity, conn)
	s.metrics.IncrementWebSocketConnections()

	if s.mirror != nil {
		if err := s.mirror.SetUserOnline(ctx, identity); err != nil {
			logger.Warn("Failed to mirror presence to Redis",
				zap.String("user_id", identity.String()),
				zap.Error(err))
		}
	}

	s.broadcastPresence()
}

// Disconnect is the guaranteed finalizer for a connection teardown. If it
// leaves either party of a live session with zero connections, the session
// is terminated through the same path as an explicit terminate, preserving
// the exactly-once log guarantee no matter which trigger fired first.
func (s *Service) Disconnect(ctx context.Context, conn presence.Conn) {
	identity, offline, ok := s.registry.Deregister(conn)
	if !ok {
		return
	}
	s.metrics.DecrementWebSocketConnections()

	if offline {
		for _, callID := range s.table.involving(identity) {
			s.Terminate(ctx, TerminateEvent{From: identity, CallID: callID})
		}

		if s.mirror != nil {
			if err := s.mirror.SetUserOffline(ctx, identity); err != nil {
				logger.Warn("Failed to mirror presence to Redis",
					zap.String("user_id", identity.String()),
					zap.Error(err))
			}
		}
	}

	s.broadcastPresence()
}

// Initiate creates a session in Ringing and forwards the offer to every
// connection of the callee. A colliding callId means a client failed to
// generate a unique id: the existing session is left untouched.
func (s *Service) Initiate(ctx context.Context, ev InitiateEvent) {
	stripe := s.table.stripe(ev.CallID)
	stripe.Lock()
	defer stripe.Unlock()

	sess := &domain.CallSession{
		CallID:      ev.CallID,
		Caller:      ev.From,
		Callee:      ev.To,
		CallType:    ev.CallType,
		State:       domain.SessionRinging,
		InitiatedAt: time.Now().UTC(),
	}
	if !s.table.insert(sess) {
		logger.Warn("Duplicate call_id on initiate, ignoring",
			zap.String("call_id", ev.CallID.String()),
			zap.String("caller", ev.From.String()))
		return
	}

	s.metrics.RecordCallInitiated(string(ev.CallType))
	s.metrics.SetActiveCalls(s.table.size())
	s.metrics.RecordSignalingEvent(EventIncoming)

	s.router.RelayTo(ev.To, &Envelope{
		Type:     EventIncoming,
		From:     &ev.From,
		Offer:    ev.Offer,
		CallType: ev.CallType,
		CallID:   &ev.CallID,
	})

	// Ring devices that have no live connection. Best-effort: a push
	// failure changes nothing about the session.
	if s.push != nil {
		go func() {
			if err := s.push.NotifyIncomingCall(context.Background(), ev.To, ev.From, string(ev.CallType), ev.CallID); err != nil {
				logger.Warn("Incoming-call push failed",
					zap.String("call_id", ev.CallID.String()),
					zap.Error(err))
			}
		}()
	}
}

// Answer marks the session answered and relays the answer payload to the
// caller. Re-answering an already-answered session is a no-op, not an error.
// An unknown callId means the session already concluded; the payload is
// dropped silently.
func (s *Service) Answer(ctx context.Context, ev AnswerEvent) {
	stripe := s.table.stripe(ev.CallID)
	stripe.Lock()
	defer stripe.Unlock()

	sess, ok := s.table.get(ev.CallID)
	if !ok {
		logger.Debug("Answer for unknown call_id dropped",
			zap.String("call_id", ev.CallID.String()))
		return
	}
	sess.Answered = true

	s.metrics.RecordSignalingEvent(EventAnswered)
	s.router.RelayTo(ev.To, &Envelope{
		Type:   EventAnswered,
		From:   &ev.From,
		Answer: ev.Answer,
		CallID: &ev.CallID,
	})
}

// Candidate relays one network-path candidate to the counterparty, tagged
// with its callId so receivers can discard candidates of a superseded
// session. Valid in any non-terminal state; dropped without side effects if
// the session is gone.
func (s *Service) Candidate(ctx context.Context, ev CandidateEvent) {
	stripe := s.table.stripe(ev.CallID)
	stripe.Lock()
	defer stripe.Unlock()

	if _, ok := s.table.get(ev.CallID); !ok {
		return
	}

	s.metrics.RecordSignalingEvent(EventCandidate)
	s.router.RelayTo(ev.To, &Envelope{
		Type:      EventCandidate,
		From:      &ev.From,
		Candidate: ev.Candidate,
		CallID:    &ev.CallID,
	})
}

// Started is the authoritative signal that media connectivity is
// established. It moves the session to Active, records the start timestamp
// first-writer-wins, and implies answered even if the formal answer was
// missed or raced.
func (s *Service) Started(ctx context.Context, ev StartedEvent) {
	stripe := s.table.stripe(ev.CallID)
	stripe.Lock()
	defer stripe.Unlock()

	sess, ok := s.table.get(ev.CallID)
	if !ok {
		logger.Debug("Started for unknown call_id dropped",
			zap.String("call_id", ev.CallID.String()))
		return
	}
	if sess.StartedAt == nil {
		startedAt := ev.StartedAt
		sess.StartedAt = &startedAt
	}
	sess.Answered = true
	sess.State = domain.SessionActive

	s.metrics.RecordSignalingEvent(EventStarted)
	s.router.RelayTo(ev.To, &Envelope{
		Type:      EventStarted,
		From:      &ev.From,
		StartedAt: ev.StartedAt.UnixMilli(),
		CallID:    &ev.CallID,
	})
}

// Terminate concludes a session from any non-terminal state: it removes the
// session, notifies the counterparty, writes the one durable log entry, and
// broadcasts the entry to both parties. Terminating an unknown or
// already-ended callId is a silent no-op, which makes the operation
// idempotent under duplicate and unordered delivery.
func (s *Service) Terminate(ctx context.Context, ev TerminateEvent) {
	stripe := s.table.stripe(ev.CallID)
	stripe.Lock()
	defer stripe.Unlock()

	// Winning the removal is what guarantees at most one log entry per
	// callId: every later terminate, duplicate or disconnect-synthesized,
	// finds nothing to take.
	sess, ok := s.table.take(ev.CallID)
	if !ok {
		return
	}

	status := domain.CallStatusMissed
	if sess.Answered {
		status = domain.CallStatusAnswered
	}

	endTime := time.Now().UTC()
	startTime := sess.StartTime()
	duration := int(endTime.Sub(startTime).Seconds())
	if duration < 0 {
		duration = 0
	}

	entry := &domain.CallLogEntry{
		ID:              uuid.New(),
		Caller:          s.snapshotParty(ctx, sess.Caller),
		Callee:          s.snapshotParty(ctx, sess.Callee),
		CallType:        sess.CallType,
		Status:          status,
		StartTime:       startTime,
		EndTime:         endTime,
		DurationSeconds: duration,
	}

	s.metrics.RecordSignalingEvent(EventEnded)
	s.router.RelayTo(s.counterparty(sess, ev), &Envelope{
		Type:   EventEnded,
		CallID: &ev.CallID,
	})

	if err := s.logs.Create(ctx, entry); err != nil {
		// The session is finalized regardless: losing one history row is
		// preferable to a session that can never be concluded.
		s.metrics.RecordCallLogWriteFailure()
		logger.Error("Failed to persist call log entry",
			zap.String("call_id", ev.CallID.String()),
			zap.Error(err))
	}

	logEnv := &Envelope{Type: EventLogCreated, Entry: entry}
	s.router.RelayTo(sess.Caller, logEnv)
	s.router.RelayTo(sess.Callee, logEnv)

	s.metrics.RecordCallEnded(string(sess.CallType), string(status), endTime.Sub(startTime))
	s.metrics.SetActiveCalls(s.table.size())
}

// History lists concluded calls the identity took part in, newest first. The
// page size cap holds here, not just at the HTTP parse layer, so programmatic
// callers cannot request unbounded pages either.
func (s *Service) History(ctx context.Context, identity uuid.UUID, limit, offset int) ([]*domain.CallLogEntry, error) {
	return s.logs.ListForUser(ctx, identity, pagination.Clamp(limit), offset)
}

// Heartbeat extends the mirrored presence TTL for a connected identity. The
// in-process registry needs no keepalive; only the Redis mirror keys expire.
func (s *Service) Heartbeat(ctx context.Context, identity uuid.UUID) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.RefreshPresence(ctx, identity); err != nil {
		logger.Debug("Failed to refresh mirrored presence",
			zap.String("user_id", identity.String()),
			zap.Error(err))
	}
}

// ActiveSessions returns the number of live sessions, for health reporting.
func (s *Service) ActiveSessions() int {
	return s.table.size()
}

// counterparty picks who should receive the ended signal: the party that did
// not trigger the termination.
func (s *Service) counterparty(sess *domain.CallSession, ev TerminateEvent) uuid.UUID {
	switch ev.From {
	case sess.Caller:
		return sess.Callee
	case sess.Callee:
		return sess.Caller
	}
	return ev.To
}

// snapshotParty copies display fields at termination time. A missing or
// unreadable profile still yields an identity-only snapshot so the log entry
// is never skipped.
func (s *Service) snapshotParty(ctx context.Context, identity uuid.UUID) domain.CallParty {
	user, err := s.users.GetByID(ctx, identity)
	if err != nil {
		logger.Warn("Profile snapshot unavailable for call log",
			zap.String("user_id", identity.String()),
			zap.Error(err))
		return domain.CallParty{Identity: identity}
	}
	return user.Party()
}

// broadcastPresence pushes the full online set to every connection. The
// notification model is deliberately non-incremental.
func (s *Service) broadcastPresence() {
	s.router.BroadcastAll(&Envelope{
		Type:   EventPresence,
		Online: s.registry.OnlineIdentities(),
	})
}
