package casdoor

import (
	"context"

	"github.com/SAP-F-2025/elearning-service/internal/models"
	"github.com/SAP-F-2025/elearning-service/internal/session"
)

// SessionProvider binds the auth adapter to one browser session for a reconciler
type SessionProvider struct {
	auth      *AuthCasdoor
	sessionID string
}

var _ session.Provider = (*SessionProvider)(nil)

func (p *SessionProvider) SessionID() string {
	return p.sessionID
}

func (p *SessionProvider) GetSession(ctx context.Context) (*models.Session, error) {
	return p.auth.GetSession(ctx, p.sessionID)
}

func (p *SessionProvider) OnSessionChange() session.Subscription {
	return p.auth.bus.Listen(p.sessionID)
}

func (p *SessionProvider) SignOut(ctx context.Context) error {
	return p.auth.SignOut(ctx, p.sessionID)
}
