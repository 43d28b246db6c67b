package domain

import (
	"time"

	"github.com/google/uuid"
)

// CallType distinguishes audio-only from video calls
type CallType string

const (
	CallTypeAudio CallType = "audio"
	CallTypeVideo CallType = "video"
)

// Valid reports whether the call type is one of the known values
func (t CallType) Valid() bool {
	return t == CallTypeAudio || t == CallTypeVideo
}

// CallStatus is how a concluded call is recorded in the log
type CallStatus string

const (
	CallStatusAnswered CallStatus = "answered"
	CallStatusMissed   CallStatus = "missed"
)

// SessionState is the live state of a call attempt
type SessionState string

const (
	SessionRinging SessionState = "ringing"
	SessionActive  SessionState = "active"
)

// CallSession is the in-memory state of one call attempt, keyed by CallID.
// The session table owns it for its lifetime; it is created on initiate and
// removed the instant its terminal log entry is written.
type CallSession struct {
	CallID   uuid.UUID
	Caller   uuid.UUID
	Callee   uuid.UUID
	CallType CallType
	State    SessionState
	Answered bool

	// InitiatedAt is when ringing began. StartedAt is set once media
	// connectivity is reported; nil until then.
	InitiatedAt time.Time
	StartedAt   *time.Time
}

// StartTime returns the authoritative start for the log entry: the moment
// media was established when known, otherwise the moment ringing began.
func (s *CallSession) StartTime() time.Time {
	if s.StartedAt != nil {
		return *s.StartedAt
	}
	return s.InitiatedAt
}

// CallParty is a point-in-time snapshot of one participant. Display name and
// avatar are copied at termination so later profile edits never rewrite
// history.
type CallParty struct {
	Identity    uuid.UUID `json:"identity"`
	DisplayName string    `json:"display_name,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
}

// CallLogEntry is the durable record of a concluded call. Created exactly
// once per call, immutable thereafter.
type CallLogEntry struct {
	ID              uuid.UUID  `json:"id"`
	Caller          CallParty  `json:"caller"`
	Callee          CallParty  `json:"callee"`
	CallType        CallType   `json:"call_type"`
	Status          CallStatus `json:"status"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	DurationSeconds int        `json:"duration_seconds"`
}
