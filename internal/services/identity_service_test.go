package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/elearning-service/internal/models"
	"github.com/SAP-F-2025/elearning-service/internal/repositories/casdoor"
	"github.com/SAP-F-2025/elearning-service/internal/session"
	"github.com/SAP-F-2025/elearning-service/internal/validator"
)

type fakeSubscription struct {
	events chan models.SessionEvent
	once   sync.Once
}

func (s *fakeSubscription) Events() <-chan models.SessionEvent { return s.events }
func (s *fakeSubscription) Close()                             { s.once.Do(func() {}) }

type fakeSessionProvider struct {
	auth      *fakeAuthProvider
	sessionID string
}

func (p *fakeSessionProvider) GetSession(ctx context.Context) (*models.Session, error) {
	return p.auth.GetSession(ctx, p.sessionID)
}

func (p *fakeSessionProvider) OnSessionChange() session.Subscription {
	return &fakeSubscription{events: make(chan models.SessionEvent)}
}

func (p *fakeSessionProvider) SignOut(ctx context.Context) error {
	return p.auth.SignOut(ctx, p.sessionID)
}

// fakeAuthProvider keeps sessions in memory, keyed by session id
type fakeAuthProvider struct {
	mu         sync.Mutex
	sessions   map[string]*models.Session
	signUps    []casdoor.SignUpInput
	signOutErr error
	passwordOK bool
}

func newFakeAuthProvider() *fakeAuthProvider {
	return &fakeAuthProvider{sessions: make(map[string]*models.Session), passwordOK: true}
}

func (f *fakeAuthProvider) SignUp(_ context.Context, input casdoor.SignUpInput) (*models.AuthUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signUps = append(f.signUps, input)
	return &models.AuthUser{
		ID:       "user-" + strings.Split(input.Email, "@")[0],
		Email:    input.Email,
		Metadata: models.UserMetadata{Name: input.FullName, Role: input.Role},
	}, nil
}

func (f *fakeAuthProvider) SignInWithCode(_ context.Context, sessionID, code, _ string) (*models.Session, error) {
	if code == "bad" {
		return nil, casdoor.ErrInvalidToken
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if sessionID == "" {
		sessionID = "generated"
	}
	sess := &models.Session{
		ID:          sessionID,
		AccessToken: "token-" + code,
		ExpiresAt:   time.Now().Add(time.Hour),
		User:        models.AuthUser{ID: code, Email: code + "@example.com", Metadata: models.UserMetadata{Role: models.RoleTeacher}},
	}
	f.sessions[sessionID] = sess
	return sess, nil
}

func (f *fakeAuthProvider) Refresh(ctx context.Context, sessionID string) (*models.Session, error) {
	return f.GetSession(ctx, sessionID)
}

func (f *fakeAuthProvider) SignOut(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, sessionID)
	return f.signOutErr
}

func (f *fakeAuthProvider) GetSession(_ context.Context, sessionID string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[sessionID], nil
}

func (f *fakeAuthProvider) UpdatePassword(context.Context, string, string, string) error {
	if !f.passwordOK {
		return casdoor.ErrProviderRejected
	}
	return nil
}

func (f *fakeAuthProvider) ParseAccessToken(token string) (*models.AuthUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.AccessToken == token {
			user := s.User
			return &user, nil
		}
	}
	return nil, casdoor.ErrInvalidToken
}

func (f *fakeAuthProvider) ForSession(sessionID string) session.Provider {
	return &fakeSessionProvider{auth: f, sessionID: sessionID}
}

type authFixture struct {
	repo     *memRepository
	provider *fakeAuthProvider
	invites  *inviteService
	auth     AuthService
	forgot   []string
}

func newAuthFixture(t *testing.T, outcomes ...bool) *authFixture {
	t.Helper()
	f := &authFixture{repo: newMemRepository(), provider: newFakeAuthProvider()}
	db := newTxDB(t, outcomes...)
	v := validator.New()
	profiles := NewProfileService(f.repo, db, testLogger(), v)
	f.invites = &inviteService{repo: f.repo, db: db, logger: testLogger(), validator: v, now: time.Now}
	auth := NewAuthService(f.repo, db, testLogger(), v, f.provider, profiles, f.invites).(*authService)
	auth.onSignOut = func(userID string) { f.forgot = append(f.forgot, userID) }
	f.auth = auth
	return f
}

func TestSignUpStudent(t *testing.T) {
	f := newAuthFixture(t, commit)

	user, err := f.auth.SignUp(context.Background(), &SignUpRequest{
		Email: "ada@example.com", Password: "secret1", ConfirmPassword: "secret1", FullName: "Ada Lovelace",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.Equal(t, "Ada Lovelace", user.Name)
	assert.Equal(t, models.RoleStudent, f.repo.profiles["user-ada"].Role)
}

func TestSignUpTeacherNeedsValidInvite(t *testing.T) {
	f := newAuthFixture(t, commit)
	ctx := context.Background()
	seedProfile := &models.Profile{ID: "t1", FullName: "Teacher", Role: models.RoleTeacher}
	f.repo.profiles["t1"] = seedProfile

	req := &SignUpRequest{
		Email: "bob@example.com", Password: "secret1", ConfirmPassword: "secret1", FullName: "Bob",
		Role: models.RoleTeacher, InviteCode: "missing.secret",
	}
	_, err := f.auth.SignUp(ctx, req)
	assert.ErrorIs(t, err, ErrInvalidInvite)
	assert.Empty(t, f.provider.signUps, "provider must not be called for a bad invite")

	invite, err := f.invites.Create(ctx, teacher("t1"), &CreateInviteRequest{})
	require.NoError(t, err)

	req.InviteCode = invite.Code
	user, err := f.auth.SignUp(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, user.Role)
	assert.Equal(t, models.RoleTeacher, f.repo.profiles["user-bob"].Role)
	require.Len(t, f.provider.signUps, 1)
	assert.Equal(t, models.RoleStudent, f.provider.signUps[0].Role)

	_, err = f.invites.verify(ctx, nil, invite.Code)
	assert.ErrorIs(t, err, ErrInvalidInvite, "invite is single use")
}

func TestSignInEnsuresStudentProfile(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.auth.SignIn(ctx, &SignInRequest{Code: "bad"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	sess, err := f.auth.SignIn(ctx, &SignInRequest{Code: "carol", SessionID: "browser-1"})
	require.NoError(t, err)
	assert.Equal(t, "browser-1", sess.ID)
	assert.Equal(t, models.RoleStudent, f.repo.profiles["carol"].Role, "metadata role never grants teacher")

	user, err := f.auth.Authenticate(ctx, sess.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, user.Role)

	_, err = f.auth.Authenticate(ctx, "nope")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSignOutNeverFails(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.auth.SignIn(ctx, &SignInRequest{Code: "dave", SessionID: "browser-2"})
	require.NoError(t, err)

	f.provider.signOutErr = errors.New("provider down")
	assert.NoError(t, f.auth.SignOut(ctx, "browser-2"))
	assert.Equal(t, []string{"dave"}, f.forgot)
}

func TestUpdatePasswordChecksBeforeProvider(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	err := f.auth.UpdatePassword(ctx, "s", &UpdatePasswordRequest{NewPassword: "short", ConfirmPassword: "short"})
	assert.ErrorIs(t, err, ErrValidationFailed)

	err = f.auth.UpdatePassword(ctx, "s", &UpdatePasswordRequest{NewPassword: "longer1", ConfirmPassword: "longer2"})
	assert.ErrorIs(t, err, ErrValidationFailed)

	f.provider.passwordOK = false
	err = f.auth.UpdatePassword(ctx, "s", &UpdatePasswordRequest{NewPassword: "longer1", ConfirmPassword: "longer1"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestInviteClaimUpgradesProfile(t *testing.T) {
	f := newAuthFixture(t, commit, rollback)
	ctx := context.Background()
	f.repo.profiles["t1"] = &models.Profile{ID: "t1", Role: models.RoleTeacher}
	f.repo.profiles["s1"] = &models.Profile{ID: "s1", Role: models.RoleStudent}

	_, err := f.invites.Create(ctx, student("s1"), &CreateInviteRequest{})
	assert.ErrorIs(t, err, ErrForbidden)

	invite, err := f.invites.Create(ctx, teacher("t1"), &CreateInviteRequest{ExpiresInHours: 1})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), invite.ExpiresAt, time.Minute)

	profile, err := f.invites.Claim(ctx, student("s1"), &ClaimInviteRequest{Code: invite.Code})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, profile.Role)

	_, err = f.invites.Claim(ctx, student("s2"), &ClaimInviteRequest{Code: invite.Code})
	assert.ErrorIs(t, err, ErrInvalidInvite)

	mine, err := f.invites.ListMine(ctx, teacher("t1"))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.NotNil(t, mine[0].ClaimedBy)
}

func TestShellServiceLifecycle(t *testing.T) {
	provider := newFakeAuthProvider()
	repo := newMemRepository()
	profiles := NewProfileService(repo, nil, testLogger(), validator.New())
	var transitions, forgot []string
	var mu sync.Mutex
	svc := NewShellService(provider, nil, profiles, nil, testLogger(), ShellOptions{
		ProbeTimeout: time.Second,
		Observer: func(from, to session.ViewKind) {
			mu.Lock()
			defer mu.Unlock()
			transitions = append(transitions, string(from)+">"+string(to))
		},
		OnSignOut: func(userID string) { forgot = append(forgot, userID) },
	})
	t.Cleanup(svc.CloseAll)
	ctx := context.Background()

	_, err := provider.SignInWithCode(ctx, "browser-3", "erin", "")
	require.NoError(t, err)

	shell, err := svc.Open(ctx, "browser-3", "")
	require.NoError(t, err)
	assert.Equal(t, "browser-3", shell.SessionID)
	assert.Equal(t, session.ViewAuthenticated, shell.Reconciler.State().Kind())
	assert.Equal(t, 1, svc.Len())

	state, err := svc.SignOut(ctx, shell.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ViewAwaitingAuth, state.Kind())
	assert.Equal(t, []string{"erin"}, forgot)

	_, err = svc.Continue(ctx, "unknown")
	assert.ErrorIs(t, err, ErrShellNotFound)

	svc.Close(shell.ID)
	assert.Equal(t, 0, svc.Len())

	mu.Lock()
	defer mu.Unlock()
	assert.NotEmpty(t, transitions)
}

func TestShellOpenWithConfirmationFragment(t *testing.T) {
	provider := newFakeAuthProvider()
	svc := NewShellService(provider, nil, nil, nil, testLogger(), ShellOptions{ProbeTimeout: time.Second})
	t.Cleanup(svc.CloseAll)
	ctx := context.Background()

	_, err := provider.SignInWithCode(ctx, "browser-4", "frank", "")
	require.NoError(t, err)

	shell, err := svc.Open(ctx, "browser-4", "#access_token=x&type=signup")
	require.NoError(t, err)
	assert.Equal(t, session.ViewConfirmingEmail, shell.Reconciler.State().Kind())
	assert.Empty(t, shell.Location.Fragment())

	state, err := svc.Continue(ctx, shell.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ViewAuthenticated, state.Kind())
}

func TestShellOpenGeneratesSessionID(t *testing.T) {
	svc := NewShellService(newFakeAuthProvider(), nil, nil, nil, testLogger(), ShellOptions{ProbeTimeout: time.Second})
	t.Cleanup(svc.CloseAll)

	shell, err := svc.Open(context.Background(), "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, shell.SessionID)
	assert.Equal(t, session.ViewAwaitingAuth, shell.Reconciler.State().Kind())
}
