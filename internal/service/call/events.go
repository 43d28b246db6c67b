package call

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"wavelink-backend/internal/domain"
)

// Signaling event types on the wire
const (
	// Inbound from clients
	EventInitiate  = "call:initiate"
	EventAnswer    = "call:answer"
	EventTerminate = "call:terminate"

	// Outbound to clients
	EventIncoming   = "call:incoming"
	EventAnswered   = "call:answered"
	EventEnded      = "call:ended"
	EventLogCreated = "call_log:created"
	EventPresence   = "presence:online"

	// Both directions: relayed under the same name they arrive with
	EventCandidate = "call:candidate"
	EventStarted   = "call:started"
)

// Envelope is the wire shape of an outbound signaling message. Offer, answer
// and candidate bodies are opaque blobs relayed unmodified; this service
// never inspects them. StartedAt travels as epoch milliseconds. From and
// CallID are pointers so presence broadcasts, which have neither, omit the
// fields instead of emitting zero UUIDs.
type Envelope struct {
	Type      string               `json:"type"`
	From      *uuid.UUID           `json:"from,omitempty"`
	CallID    *uuid.UUID           `json:"call_id,omitempty"`
	CallType  domain.CallType      `json:"call_type,omitempty"`
	Offer     json.RawMessage      `json:"offer,omitempty"`
	Answer    json.RawMessage      `json:"answer,omitempty"`
	Candidate json.RawMessage      `json:"candidate,omitempty"`
	StartedAt int64                `json:"started_at,omitempty"`
	Entry     *domain.CallLogEntry `json:"entry,omitempty"`
	Online    []uuid.UUID          `json:"online,omitempty"`
}

// Inbound events form a closed set of variants, one per signaling operation.
// The transport layer decodes raw frames into these; the lifecycle controller
// consumes nothing else. From is stamped from the authenticated connection,
// never taken from the payload.

// InitiateEvent starts a new call attempt. CallID is caller-generated and
// must be unique for the session's lifetime.
type InitiateEvent struct {
	From     uuid.UUID
	To       uuid.UUID
	CallID   uuid.UUID
	CallType domain.CallType
	Offer    json.RawMessage
}

// AnswerEvent carries the callee's answer back to the caller.
type AnswerEvent struct {
	From   uuid.UUID
	To     uuid.UUID
	CallID uuid.UUID
	Answer json.RawMessage
}

// CandidateEvent carries one network-path candidate to the counterparty.
type CandidateEvent struct {
	From      uuid.UUID
	To        uuid.UUID
	CallID    uuid.UUID
	Candidate json.RawMessage
}

// StartedEvent reports that media connectivity is established. Either party's
// transport may send it; the first one wins the start timestamp.
type StartedEvent struct {
	From      uuid.UUID
	To        uuid.UUID
	CallID    uuid.UUID
	StartedAt time.Time
}

// TerminateEvent ends a call attempt from any non-terminal state. The
// controller also synthesizes one when a party's last connection drops.
type TerminateEvent struct {
	From   uuid.UUID
	To     uuid.UUID
	CallID uuid.UUID
}
