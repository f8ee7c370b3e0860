package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SAP-F-2025/elearning-service/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps provider sessions in redis under session:<id>
type SessionStore struct {
	helper *CacheHelper
	ttl    time.Duration
}

func NewSessionStore(cm *CacheManager, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = SessionCacheConfig.TTL
	}
	return &SessionStore{helper: cm.Session, ttl: ttl}
}

// Save stores the session until it expires, capped by the store TTL. Unlike the
// catalog caches it fails without redis, since a session nobody can read back
// is not a sign-in.
func (s *SessionStore) Save(ctx context.Context, session *models.Session) error {
	if !s.helper.Available() {
		return fmt.Errorf("failed to save session: %w", ErrCacheNotAvailable)
	}
	ttl := s.ttl
	if !session.ExpiresAt.IsZero() {
		if remaining := time.Until(session.ExpiresAt); remaining > 0 && remaining < ttl {
			ttl = remaining
		}
	}
	if err := s.helper.Set(ctx, session.ID, session, ttl); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Get returns ErrSessionNotFound for unknown or expired sessions
func (s *SessionStore) Get(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	if err := s.helper.Get(ctx, id, &session); err != nil {
		if errors.Is(err, ErrCacheNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session.Expired(time.Now()) {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if err := s.helper.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PendingConfirmations records sign-ups whose email confirmation has not been acknowledged
type PendingConfirmations struct {
	helper *CacheHelper
	ttl    time.Duration
}

func NewPendingConfirmations(cm *CacheManager, ttl time.Duration) *PendingConfirmations {
	if ttl <= 0 {
		ttl = PendingCacheConfig.TTL
	}
	return &PendingConfirmations{helper: cm.Pending, ttl: ttl}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (p *PendingConfirmations) Mark(ctx context.Context, email string) error {
	if !p.helper.Available() {
		return fmt.Errorf("failed to mark pending confirmation: %w", ErrCacheNotAvailable)
	}
	if err := p.helper.Set(ctx, normalizeEmail(email), time.Now().UTC(), p.ttl); err != nil {
		return fmt.Errorf("failed to mark pending confirmation: %w", err)
	}
	return nil
}

func (p *PendingConfirmations) IsPending(ctx context.Context, email string) (bool, error) {
	ok, err := p.helper.Exists(ctx, normalizeEmail(email))
	if errors.Is(err, ErrCacheNotAvailable) {
		return false, nil
	}
	return ok, err
}

func (p *PendingConfirmations) Clear(ctx context.Context, email string) error {
	if err := p.helper.Delete(ctx, normalizeEmail(email)); err != nil {
		return fmt.Errorf("failed to clear pending confirmation: %w", err)
	}
	return nil
}
