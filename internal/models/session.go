package models

import "time"

// UserMetadata is what the auth provider knows about a user's display name and role
type UserMetadata struct {
	Name string   `json:"name,omitempty"`
	Role UserRole `json:"role,omitempty"`
}

// AuthUser is the remote account record attached to a session
type AuthUser struct {
	ID               string       `json:"id"`
	Owner            string       `json:"owner,omitempty"`
	Username         string       `json:"username,omitempty"`
	Email            string       `json:"email"`
	EmailConfirmedAt *time.Time   `json:"email_confirmed_at,omitempty"`
	Metadata         UserMetadata `json:"metadata"`
}

// Session is an authenticated provider session
type Session struct {
	ID           string    `json:"id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         AuthUser  `json:"user"`
}

func (s *Session) Expired(now time.Time) bool {
	return s == nil || (!s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt))
}

type SessionEventType string

const (
	SessionSignedIn       SessionEventType = "SIGNED_IN"
	SessionSignedOut      SessionEventType = "SIGNED_OUT"
	SessionTokenRefreshed SessionEventType = "TOKEN_REFRESHED"
)

// SessionEvent is emitted by the auth provider whenever a session changes.
// Session is nil for sign-out.
type SessionEvent struct {
	Type       SessionEventType `json:"type"`
	SessionID  string           `json:"session_id"`
	Session    *Session         `json:"session,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}
