package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/elearning-service/internal/models"
)

type fakeSubscription struct {
	events chan models.SessionEvent
	closed atomic.Bool
}

func (s *fakeSubscription) Events() <-chan models.SessionEvent { return s.events }
func (s *fakeSubscription) Close()                             { s.closed.Store(true) }

type fakeProvider struct {
	mu         sync.Mutex
	session    *models.Session
	gate       chan struct{}
	returned   chan struct{}
	signOutErr error
	signOuts   int
	sub        *fakeSubscription
}

func newFakeProvider(session *models.Session) *fakeProvider {
	return &fakeProvider{
		session: session,
		sub:     &fakeSubscription{events: make(chan models.SessionEvent, 8)},
	}
}

func (p *fakeProvider) GetSession(context.Context) (*models.Session, error) {
	p.mu.Lock()
	gate := p.gate
	p.mu.Unlock()
	if gate != nil {
		<-gate
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.returned != nil {
		defer close(p.returned)
		p.returned = nil
	}
	return p.session, nil
}

func (p *fakeProvider) OnSessionChange() Subscription { return p.sub }

func (p *fakeProvider) SignOut(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signOuts++
	return p.signOutErr
}

func (p *fakeProvider) setSession(s *models.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = s
}

type countingProfiles struct {
	calls   atomic.Int32
	profile *models.Profile
}

func (c *countingProfiles) LoadProfile(context.Context, string) (*models.Profile, error) {
	c.calls.Add(1)
	return c.profile, nil
}

func testSession() *models.Session {
	return &models.Session{
		ID:          "s1",
		AccessToken: "token",
		User:        models.AuthUser{ID: "u1", Email: "ana@example.com"},
	}
}

func newTestReconciler(provider *fakeProvider, loc Location, profiles ProfileLoader, timeout time.Duration) *Reconciler {
	detector := NewConfirmationDetector(time.Minute, nil, nil)
	return NewReconciler(provider, loc, detector, NewIdentityResolver(profiles, nil), Options{ProbeTimeout: timeout})
}

func waitForKind(t *testing.T, r *Reconciler, kind ViewKind) {
	t.Helper()
	require.Eventually(t, func() bool { return r.State().Kind() == kind }, time.Second, 5*time.Millisecond)
}

func TestStartWithoutSession(t *testing.T) {
	r := newTestReconciler(newFakeProvider(nil), &fakeLocation{}, nil, time.Second)
	defer r.Close()

	state := r.Start(context.Background())
	assert.Equal(t, ViewAwaitingAuth, state.Kind())
	assert.Nil(t, state.User())
}

func TestStartAuthenticatesWithProfile(t *testing.T) {
	profiles := &countingProfiles{profile: &models.Profile{FullName: "Ana Souza", Role: models.RoleTeacher}}
	r := newTestReconciler(newFakeProvider(testSession()), &fakeLocation{}, profiles, time.Second)
	defer r.Close()

	state := r.Start(context.Background())
	require.Equal(t, ViewAuthenticated, state.Kind())
	assert.Equal(t, "Ana Souza", state.User().Name)
	assert.Equal(t, models.RoleTeacher, state.User().Role)

	select {
	case update := <-r.Updates():
		assert.Equal(t, ViewAuthenticated, update.Kind())
	default:
		t.Fatal("expected a pending update")
	}
}

func TestConfirmationSuppressesSignIn(t *testing.T) {
	provider := newFakeProvider(testSession())
	loc := &fakeLocation{fragment: "#access_token=abc&type=signup"}
	r := newTestReconciler(provider, loc, nil, time.Second)
	defer r.Close()

	state := r.Start(context.Background())
	require.Equal(t, ViewConfirmingEmail, state.Kind())
	assert.Empty(t, loc.Fragment())

	provider.sub.events <- models.SessionEvent{Type: models.SessionSignedIn, SessionID: "s1", Session: testSession()}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, ViewConfirmingEmail, r.State().Kind())

	state = r.Continue(context.Background())
	assert.Equal(t, ViewAuthenticated, state.Kind())
	assert.Equal(t, "ana", state.User().Name)
}

func TestContinueWithoutSession(t *testing.T) {
	provider := newFakeProvider(testSession())
	r := newTestReconciler(provider, &fakeLocation{fragment: "#type=email"}, nil, time.Second)
	defer r.Close()

	require.Equal(t, ViewConfirmingEmail, r.Start(context.Background()).Kind())

	provider.setSession(nil)
	assert.Equal(t, ViewAwaitingAuth, r.Continue(context.Background()).Kind())
}

func TestProbeTimeoutThenTeardownBuildsNoIdentity(t *testing.T) {
	provider := newFakeProvider(testSession())
	provider.gate = make(chan struct{})
	provider.returned = make(chan struct{})
	returned := provider.returned
	profiles := &countingProfiles{}

	r := newTestReconciler(provider, &fakeLocation{}, profiles, 20*time.Millisecond)
	state := r.Start(context.Background())
	assert.Equal(t, ViewAwaitingAuth, state.Kind())

	r.Close()
	close(provider.gate)
	<-returned
	time.Sleep(20 * time.Millisecond)

	assert.Zero(t, profiles.calls.Load())
	assert.Equal(t, ViewAwaitingAuth, r.State().Kind())
	assert.Nil(t, r.State().User())
}

func TestLateProbeStillReconciles(t *testing.T) {
	provider := newFakeProvider(testSession())
	provider.gate = make(chan struct{})
	r := newTestReconciler(provider, &fakeLocation{}, nil, 20*time.Millisecond)
	defer r.Close()

	assert.Equal(t, ViewAwaitingAuth, r.Start(context.Background()).Kind())

	close(provider.gate)
	waitForKind(t, r, ViewAuthenticated)
}

func TestSignOutFailureStillClears(t *testing.T) {
	provider := newFakeProvider(testSession())
	provider.signOutErr = errors.New("network down")
	r := newTestReconciler(provider, &fakeLocation{}, nil, time.Second)
	defer r.Close()

	require.Equal(t, ViewAuthenticated, r.Start(context.Background()).Kind())

	state := r.SignOut(context.Background())
	assert.Equal(t, ViewAwaitingAuth, state.Kind())
	assert.Nil(t, state.User())
	assert.Nil(t, r.State().User())
	assert.Equal(t, 1, provider.signOuts)
}

func TestEventsDriveState(t *testing.T) {
	provider := newFakeProvider(nil)
	r := newTestReconciler(provider, &fakeLocation{}, nil, time.Second)
	defer r.Close()

	require.Equal(t, ViewAwaitingAuth, r.Start(context.Background()).Kind())

	provider.sub.events <- models.SessionEvent{Type: models.SessionSignedIn, SessionID: "s1", Session: testSession()}
	waitForKind(t, r, ViewAuthenticated)

	provider.sub.events <- models.SessionEvent{Type: models.SessionTokenRefreshed, SessionID: "s1"}
	waitForKind(t, r, ViewAwaitingAuth)
	assert.Nil(t, r.State().User())
}

func TestTokenRefreshWithConfirmation(t *testing.T) {
	provider := newFakeProvider(nil)
	loc := &fakeLocation{}
	r := newTestReconciler(provider, loc, nil, time.Second)
	defer r.Close()

	require.Equal(t, ViewAwaitingAuth, r.Start(context.Background()).Kind())

	confirmedAt := time.Now()
	session := testSession()
	session.User.EmailConfirmedAt = &confirmedAt
	provider.sub.events <- models.SessionEvent{Type: models.SessionTokenRefreshed, SessionID: "s1", Session: session}
	waitForKind(t, r, ViewConfirmingEmail)
}

func TestRefreshAfterContinueStaysAuthenticated(t *testing.T) {
	confirmedAt := time.Now()
	session := testSession()
	session.User.EmailConfirmedAt = &confirmedAt
	provider := newFakeProvider(session)
	r := newTestReconciler(provider, &fakeLocation{}, nil, time.Second)
	defer r.Close()

	require.Equal(t, ViewConfirmingEmail, r.Start(context.Background()).Kind())
	require.Equal(t, ViewAuthenticated, r.Continue(context.Background()).Kind())

	provider.sub.events <- models.SessionEvent{Type: models.SessionTokenRefreshed, SessionID: "s1", Session: session}
	provider.sub.events <- models.SessionEvent{Type: models.SessionSignedIn, SessionID: "s1", Session: session}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, ViewAuthenticated, r.State().Kind())

	r.SignOut(context.Background())
	provider.sub.events <- models.SessionEvent{Type: models.SessionSignedIn, SessionID: "s1", Session: session}
	waitForKind(t, r, ViewConfirmingEmail)
}

func TestUnknownEventDoesNotCancelContinue(t *testing.T) {
	provider := newFakeProvider(testSession())
	r := newTestReconciler(provider, &fakeLocation{fragment: "#type=email"}, nil, time.Second)
	defer r.Close()

	require.Equal(t, ViewConfirmingEmail, r.Start(context.Background()).Kind())

	gate := make(chan struct{})
	provider.mu.Lock()
	provider.gate = gate
	provider.mu.Unlock()

	result := make(chan ViewState, 1)
	go func() { result <- r.Continue(context.Background()) }()

	provider.sub.events <- models.SessionEvent{Type: "USER_UPDATED", SessionID: "s1", Session: testSession()}
	time.Sleep(20 * time.Millisecond)
	close(gate)

	select {
	case state := <-result:
		assert.Equal(t, ViewAuthenticated, state.Kind())
	case <-time.After(time.Second):
		t.Fatal("continue did not return")
	}
}

func TestCloseReleasesSubscription(t *testing.T) {
	provider := newFakeProvider(nil)
	r := newTestReconciler(provider, &fakeLocation{}, nil, time.Second)
	r.Start(context.Background())

	r.Close()
	r.Close()
	assert.True(t, provider.sub.closed.Load())

	select {
	case <-r.Done():
	default:
		t.Fatal("reconciler not done after Close")
	}
	assert.Equal(t, ViewAwaitingAuth, r.SignOut(context.Background()).Kind())
	assert.Zero(t, provider.signOuts)
}

func TestObserverSeesTransitions(t *testing.T) {
	var mu sync.Mutex
	var seen []ViewKind
	provider := newFakeProvider(testSession())
	r := NewReconciler(provider, &fakeLocation{}, nil, nil, Options{
		ProbeTimeout: time.Second,
		Observer: func(_, to ViewKind) {
			mu.Lock()
			seen = append(seen, to)
			mu.Unlock()
		},
	})
	defer r.Close()

	r.Start(context.Background())
	r.SignOut(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []ViewKind{ViewAuthenticated, ViewAwaitingAuth}, seen)
}

func TestHubRemoveClosesReconciler(t *testing.T) {
	hub := NewHub()
	r := newTestReconciler(newFakeProvider(nil), &fakeLocation{}, nil, time.Second)
	id := hub.Register(r)

	got, ok := hub.Get(id)
	require.True(t, ok)
	assert.Same(t, r, got)

	hub.Remove(id)
	_, ok = hub.Get(id)
	assert.False(t, ok)
	assert.Zero(t, hub.Len())

	select {
	case <-r.Done():
	default:
		t.Fatal("reconciler not closed")
	}
}
