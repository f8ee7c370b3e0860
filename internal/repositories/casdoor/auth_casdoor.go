package casdoor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/SAP-F-2025/elearning-service/internal/cache"
	"github.com/SAP-F-2025/elearning-service/internal/config"
	"github.com/SAP-F-2025/elearning-service/internal/events"
	"github.com/SAP-F-2025/elearning-service/internal/models"
	"github.com/SAP-F-2025/elearning-service/internal/session"
)

var (
	ErrProviderRejected = errors.New("auth provider rejected the request")
	ErrInvalidToken     = errors.New("invalid access token")
)

// casdoorClient is the part of the Casdoor SDK client the adapter uses
type casdoorClient interface {
	GetOAuthToken(code string, state string) (*oauth2.Token, error)
	RefreshOAuthToken(refreshToken string) (*oauth2.Token, error)
	ParseJwtToken(token string) (*casdoorsdk.Claims, error)
	GetUserByUserId(userID string) (*casdoorsdk.User, error)
	AddUser(user *casdoorsdk.User) (bool, error)
	SetPassword(owner, name, oldPassword, newPassword string) (bool, error)
}

// SignUpInput is a validated sign-up request
type SignUpInput struct {
	Email    string
	Password string
	FullName string
	Role     models.UserRole
}

// AuthCasdoor is the hosted auth provider. Sessions live in redis keyed by the
// browser session id; every change is announced on the session bus.
type AuthCasdoor struct {
	client       casdoorClient
	sessions     *cache.SessionStore
	pending      *cache.PendingConfirmations
	bus          *events.SessionBus
	organization string
	logger       *slog.Logger
	now          func() time.Time
}

// NewCasdoorClient builds the SDK client from configuration
func NewCasdoorClient(cfg config.CasdoorConfig) *casdoorsdk.Client {
	return casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Organization,
		cfg.Application,
	)
}

func NewAuthCasdoor(client casdoorClient, organization string, sessions *cache.SessionStore, pending *cache.PendingConfirmations, bus *events.SessionBus, logger *slog.Logger) *AuthCasdoor {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthCasdoor{
		client:       client,
		sessions:     sessions,
		pending:      pending,
		bus:          bus,
		organization: organization,
		logger:       logger,
		now:          time.Now,
	}
}

// SignUp creates the provider account and flags its email as awaiting confirmation
func (a *AuthCasdoor) SignUp(ctx context.Context, input SignUpInput) (*models.AuthUser, error) {
	id := uuid.NewString()
	user := &casdoorsdk.User{
		Owner:       a.organization,
		Name:        id,
		Id:          id,
		DisplayName: input.FullName,
		Email:       input.Email,
		Password:    input.Password,
		Type:        "normal-user",
		CreatedTime: a.now().UTC().Format(time.RFC3339),
		Properties: map[string]string{
			propertyRole:     string(input.Role),
			propertyFullName: input.FullName,
		},
	}

	ok, err := a.client.AddUser(user)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider user: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: user %s was not created", ErrProviderRejected, input.Email)
	}

	if err := a.pending.Mark(ctx, input.Email); err != nil {
		a.logger.Warn("Failed to flag pending confirmation", "email", input.Email, "error", err)
	}

	authUser := convertCasdoorUser(user)
	return &authUser, nil
}

// SignInWithCode exchanges an OAuth code and stores the session under sessionID.
// An empty sessionID starts a new browser session.
func (a *AuthCasdoor) SignInWithCode(ctx context.Context, sessionID, code, state string) (*models.Session, error) {
	token, err := a.client.GetOAuthToken(code, state)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	sess, err := a.buildSession(sessionID, token)
	if err != nil {
		return nil, err
	}
	if err := a.store(ctx, sess, models.SessionSignedIn); err != nil {
		return nil, err
	}

	a.logger.Info("User signed in", "session_id", sess.ID, "user_id", sess.User.ID)
	return sess, nil
}

// Refresh renews the tokens of an existing session
func (a *AuthCasdoor) Refresh(ctx context.Context, sessionID string) (*models.Session, error) {
	current, err := a.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if current.RefreshToken == "" {
		return nil, fmt.Errorf("%w: session %s has no refresh token", ErrProviderRejected, sessionID)
	}

	token, err := a.client.RefreshOAuthToken(current.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	sess, err := a.buildSession(sessionID, token)
	if err != nil {
		return nil, err
	}
	if sess.RefreshToken == "" {
		sess.RefreshToken = current.RefreshToken
	}
	if err := a.store(ctx, sess, models.SessionTokenRefreshed); err != nil {
		return nil, err
	}
	return sess, nil
}

// SignOut drops the session and announces it. The event is published even when
// the store delete fails so listeners still end the session.
func (a *AuthCasdoor) SignOut(ctx context.Context, sessionID string) error {
	deleteErr := a.sessions.Delete(ctx, sessionID)

	err := a.bus.Publish(ctx, models.SessionEvent{
		Type:       models.SessionSignedOut,
		SessionID:  sessionID,
		OccurredAt: a.now().UTC(),
	})
	return errors.Join(deleteErr, err)
}

// GetSession returns (nil, nil) when there is no live session
func (a *AuthCasdoor) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	if sessionID == "" {
		return nil, nil
	}
	sess, err := a.sessions.Get(ctx, sessionID)
	if errors.Is(err, cache.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// UpdatePassword changes the password of the session user
func (a *AuthCasdoor) UpdatePassword(ctx context.Context, sessionID, oldPassword, newPassword string) error {
	sess, err := a.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	owner := sess.User.Owner
	if owner == "" {
		owner = a.organization
	}
	ok, err := a.client.SetPassword(owner, sess.User.Username, oldPassword, newPassword)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: password not updated", ErrProviderRejected)
	}
	return nil
}

// ParseAccessToken verifies a bearer token and returns its user
func (a *AuthCasdoor) ParseAccessToken(token string) (*models.AuthUser, error) {
	claims, err := a.client.ParseJwtToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	user := convertCasdoorUser(&claims.User)
	return &user, nil
}

// ForSession returns the provider view of one browser session
func (a *AuthCasdoor) ForSession(sessionID string) session.Provider {
	return &SessionProvider{auth: a, sessionID: sessionID}
}

func (a *AuthCasdoor) buildSession(sessionID string, token *oauth2.Token) (*models.Session, error) {
	claims, err := a.client.ParseJwtToken(token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return &models.Session{
		ID:           sessionID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
		User:         convertCasdoorUser(&claims.User),
	}, nil
}

func (a *AuthCasdoor) store(ctx context.Context, sess *models.Session, eventType models.SessionEventType) error {
	if err := a.sessions.Save(ctx, sess); err != nil {
		return err
	}

	event := models.SessionEvent{
		Type:       eventType,
		SessionID:  sess.ID,
		Session:    sess,
		OccurredAt: a.now().UTC(),
	}
	if err := a.bus.Publish(ctx, event); err != nil {
		a.logger.Error("Failed to publish session event", "session_id", sess.ID, "type", eventType, "error", err)
	}
	return nil
}
