package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the slice of the account record this service reads. Accounts are
// owned by the auth service; the call service only snapshots display fields
// into call-log entries.
type User struct {
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	Username    string    `json:"username" db:"username"`
	DisplayName string    `json:"display_name" db:"display_name"`
	AvatarURL   *string   `json:"avatar_url,omitempty" db:"avatar_url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Party converts a user row into a call-log participant snapshot.
func (u *User) Party() CallParty {
	p := CallParty{
		Identity:    u.UserID,
		DisplayName: u.DisplayName,
	}
	if u.AvatarURL != nil {
		p.AvatarURL = *u.AvatarURL
	}
	return p
}
