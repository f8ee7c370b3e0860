package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/elearning-service/internal/session"
	"github.com/google/uuid"
)

// Shell is one open browser shell: its reconciler and the fragment it was opened with
type Shell struct {
	ID         string
	SessionID  string
	Reconciler *session.Reconciler
	Location   *session.FragmentLocation
}

// ShellOptions tunes the reconcilers created by the shell service
type ShellOptions struct {
	ProbeTimeout       time.Duration
	ConfirmationWindow time.Duration
	Observer           session.TransitionObserver
	// OnSignOut drops per-user state held elsewhere, as AuthService.SignOut does
	OnSignOut func(userID string)
}

type shellService struct {
	provider AuthProvider
	pending  session.PendingStore
	profiles session.ProfileLoader
	hub      *session.Hub
	logger   *slog.Logger
	opts     ShellOptions
}

func NewShellService(provider AuthProvider, pending session.PendingStore, profiles session.ProfileLoader, hub *session.Hub, logger *slog.Logger, opts ShellOptions) ShellService {
	if hub == nil {
		hub = session.NewHub()
	}
	return &shellService{
		provider: provider,
		pending:  pending,
		profiles: profiles,
		hub:      hub,
		logger:   logger,
		opts:     opts,
	}
}

// Open starts a reconciler for the browser session and waits for the first
// settled view. An empty sessionID gets a fresh id the client must sign in with.
func (s *shellService) Open(ctx context.Context, sessionID, fragment string) (*Shell, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	logger := s.logger.With("session_id", sessionID)
	location := session.NewFragmentLocation(fragment)
	reconciler := session.NewReconciler(
		s.provider.ForSession(sessionID),
		location,
		session.NewConfirmationDetector(s.opts.ConfirmationWindow, s.pending, logger),
		session.NewIdentityResolver(s.profiles, logger),
		session.Options{
			ProbeTimeout: s.opts.ProbeTimeout,
			Logger:       logger,
			Observer:     s.opts.Observer,
		},
	)

	shellID := s.hub.Register(reconciler)
	state := reconciler.Start(ctx)
	logger.Debug("Shell opened", "shell_id", shellID, "view", state.Kind())

	return &Shell{
		ID:         shellID,
		SessionID:  sessionID,
		Reconciler: reconciler,
		Location:   location,
	}, nil
}

func (s *shellService) Continue(ctx context.Context, shellID string) (session.ViewState, error) {
	r, ok := s.hub.Get(shellID)
	if !ok {
		return session.AwaitingAuth(), ErrShellNotFound
	}
	return r.Continue(ctx), nil
}

func (s *shellService) SignOut(ctx context.Context, shellID string) (session.ViewState, error) {
	r, ok := s.hub.Get(shellID)
	if !ok {
		return session.AwaitingAuth(), ErrShellNotFound
	}
	user := r.State().User()
	state := r.SignOut(ctx)
	if user != nil && s.opts.OnSignOut != nil {
		s.opts.OnSignOut(user.ID)
	}
	return state, nil
}

func (s *shellService) Close(shellID string) {
	s.hub.Remove(shellID)
}

func (s *shellService) Len() int {
	return s.hub.Len()
}

func (s *shellService) CloseAll() {
	s.hub.CloseAll()
}
