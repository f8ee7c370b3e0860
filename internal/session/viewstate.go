package session

import (
	"encoding/json"

	"github.com/SAP-F-2025/elearning-service/internal/models"
)

// ViewKind names the top-level screen a shell shows
type ViewKind string

const (
	ViewAwaitingAuth    ViewKind = "awaiting_auth"
	ViewConfirmingEmail ViewKind = "confirming_email"
	ViewAuthenticated   ViewKind = "authenticated"
)

// ViewState is exactly one of AwaitingAuth, ConfirmingEmail or Authenticated(user).
// Only the constructors below create values, so a user is present iff the kind
// is Authenticated.
type ViewState struct {
	kind ViewKind
	user *models.CurrentUser
}

func AwaitingAuth() ViewState { return ViewState{kind: ViewAwaitingAuth} }

func ConfirmingEmail() ViewState { return ViewState{kind: ViewConfirmingEmail} }

// Authenticated panics on a nil user
func Authenticated(user *models.CurrentUser) ViewState {
	if user == nil {
		panic("session: authenticated view requires a user")
	}
	u := *user
	return ViewState{kind: ViewAuthenticated, user: &u}
}

// Kind returns AwaitingAuth for the zero value
func (v ViewState) Kind() ViewKind {
	if v.kind == "" {
		return ViewAwaitingAuth
	}
	return v.kind
}

// User returns a copy of the identity, or nil unless authenticated
func (v ViewState) User() *models.CurrentUser {
	if v.user == nil {
		return nil
	}
	u := *v.user
	return &u
}

func (v ViewState) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind ViewKind            `json:"kind"`
		User *models.CurrentUser `json:"user,omitempty"`
	}{Kind: v.Kind(), User: v.user})
}
