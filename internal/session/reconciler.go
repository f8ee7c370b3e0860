package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/elearning-service/internal/models"
)

const DefaultProbeTimeout = 2 * time.Second

// Subscription is a live feed of session-change events owned by one reconciler
type Subscription interface {
	Events() <-chan models.SessionEvent
	Close()
}

// Provider is the hosted auth service as seen by one shell
type Provider interface {
	// GetSession returns (nil, nil) when there is no session
	GetSession(ctx context.Context) (*models.Session, error)
	OnSessionChange() Subscription
	SignOut(ctx context.Context) error
}

// TransitionObserver is told about every committed view change
type TransitionObserver func(from, to ViewKind)

type Options struct {
	ProbeTimeout time.Duration
	Logger       *slog.Logger
	Observer     TransitionObserver
}

// Reconciler keeps the single ViewState of one shell in line with its auth session.
//
// The initial probe and the event subscription run concurrently and write to one
// slot. Every operation takes a generation number when it begins; a result is
// committed only if the reconciler is still open and no newer operation started
// meanwhile. ConfirmingEmail blocks Authenticated unless the user continues.
type Reconciler struct {
	provider Provider
	location Location
	detector *ConfirmationDetector
	identity *IdentityResolver
	logger   *slog.Logger
	observer TransitionObserver
	timeout  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	loop   sync.WaitGroup

	mu      sync.Mutex
	state   ViewState
	gen     uint64
	closed  bool
	started bool
	sub     Subscription
	updates chan ViewState
	// acked is the user who continued past confirmation; their later
	// sessions skip detection until sign-out
	acked string
}

func NewReconciler(provider Provider, location Location, detector *ConfirmationDetector, identity *IdentityResolver, opts Options) *Reconciler {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if identity == nil {
		identity = NewIdentityResolver(nil, opts.Logger)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Reconciler{
		provider: provider,
		location: location,
		detector: detector,
		identity: identity,
		logger:   opts.Logger,
		observer: opts.Observer,
		timeout:  opts.ProbeTimeout,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		state:    AwaitingAuth(),
		updates:  make(chan ViewState, 1),
	}
}

// Start subscribes to session changes and probes the current session. It
// returns once the probe settles or the probe timeout elapses, whichever is
// first; a late probe result is still applied unless Close was called.
func (r *Reconciler) Start(ctx context.Context) ViewState {
	r.mu.Lock()
	if r.closed || r.started {
		state := r.state
		r.mu.Unlock()
		return state
	}
	r.started = true
	r.sub = r.provider.OnSessionChange()
	gen := r.nextGenLocked()
	r.publishLocked(r.state)
	r.mu.Unlock()

	r.loop.Add(1)
	go r.run()

	probed := make(chan struct{})
	go func() {
		defer close(probed)
		r.probe(gen)
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()
	select {
	case <-probed:
	case <-timer.C:
		r.logger.Info("Session probe timed out, showing sign-in", "timeout", r.timeout)
	case <-ctx.Done():
	}
	return r.State()
}

// State returns the current view
func (r *Reconciler) State() ViewState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Updates delivers the latest view after every change. Only the newest
// undelivered value is kept.
func (r *Reconciler) Updates() <-chan ViewState {
	return r.updates
}

// Done is closed by Close
func (r *Reconciler) Done() <-chan struct{} {
	return r.done
}

// Continue acknowledges the confirmation screen: re-probe, then Authenticated or AwaitingAuth
func (r *Reconciler) Continue(ctx context.Context) ViewState {
	gen, ok := r.begin()
	if !ok {
		return r.State()
	}

	scoped, release := r.scoped(ctx)
	defer release()
	probeCtx, cancel := context.WithTimeout(scoped, r.timeout)
	defer cancel()

	session, err := r.provider.GetSession(probeCtx)
	if err != nil {
		r.logger.Warn("Session probe failed on continue", "error", err)
		session = nil
	}
	if session == nil {
		r.commit(gen, AwaitingAuth(), true)
		return r.State()
	}

	if !r.live(gen) {
		return r.State()
	}
	user := r.identity.Resolve(probeCtx, session.User)
	if r.commit(gen, Authenticated(user), true) {
		r.mu.Lock()
		r.acked = session.User.ID
		r.mu.Unlock()
		if r.detector != nil {
			r.detector.Acknowledge(probeCtx, session.User.Email)
		}
	}
	return r.State()
}

// SignOut asks the provider to end the session. Local state becomes
// AwaitingAuth whether or not the provider call succeeds.
func (r *Reconciler) SignOut(ctx context.Context) ViewState {
	gen, ok := r.begin()
	if !ok {
		return r.State()
	}
	scoped, release := r.scoped(ctx)
	defer release()
	if err := r.provider.SignOut(scoped); err != nil {
		r.logger.Warn("Sign-out failed, clearing local session anyway", "gen", gen, "error", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.nextGenLocked()
		r.acked = ""
		r.setLocked(AwaitingAuth())
	}
	return r.state
}

// Close tears the reconciler down: identity is dropped, the subscription is
// released and no later result is applied.
func (r *Reconciler) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.state = AwaitingAuth()
	sub := r.sub
	r.mu.Unlock()

	r.cancel()
	close(r.done)
	if sub != nil {
		sub.Close()
	}
	r.loop.Wait()
}

func (r *Reconciler) run() {
	defer r.loop.Done()
	events := r.sub.Events()
	for {
		select {
		case <-r.done:
			return
		case event := <-events:
			r.handleEvent(event)
		}
	}
}

// handleEvent ignores unknown event types without taking a generation, so they
// never cancel an operation in flight
func (r *Reconciler) handleEvent(event models.SessionEvent) {
	switch event.Type {
	case models.SessionSignedIn, models.SessionTokenRefreshed, models.SessionSignedOut:
	default:
		r.logger.Debug("Ignoring session event", "type", event.Type)
		return
	}

	gen, ok := r.begin()
	if !ok {
		return
	}

	if event.Session == nil || event.Type == models.SessionSignedOut {
		if r.commit(gen, AwaitingAuth(), false) {
			r.mu.Lock()
			r.acked = ""
			r.mu.Unlock()
		}
		return
	}
	r.resolve(r.ctx, gen, event.Session)
}

func (r *Reconciler) probe(gen uint64) {
	session, err := r.provider.GetSession(r.ctx)
	if err != nil {
		r.logger.Warn("Session probe failed", "error", err)
		r.commit(gen, AwaitingAuth(), false)
		return
	}
	if session == nil {
		r.commit(gen, AwaitingAuth(), false)
		return
	}
	r.resolve(r.ctx, gen, session)
}

// resolve routes a present session to ConfirmingEmail or Authenticated
func (r *Reconciler) resolve(ctx context.Context, gen uint64, session *models.Session) {
	if !r.live(gen) {
		return
	}
	if r.detector != nil && !r.acknowledged(session.User.ID) && r.detector.Detect(ctx, r.location, session) {
		r.commit(gen, ConfirmingEmail(), false)
		return
	}
	if !r.live(gen) {
		return
	}
	user := r.identity.Resolve(ctx, session.User)
	r.commit(gen, Authenticated(user), false)
}

func (r *Reconciler) acknowledged(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acked != "" && r.acked == userID
}

func (r *Reconciler) begin() (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, false
	}
	return r.nextGenLocked(), true
}

func (r *Reconciler) nextGenLocked() uint64 {
	r.gen++
	return r.gen
}

func (r *Reconciler) live(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed && r.gen == gen
}

// commit writes next if gen is current. override lets Continue replace ConfirmingEmail.
func (r *Reconciler) commit(gen uint64, next ViewState, override bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.gen != gen {
		return false
	}
	if next.Kind() == ViewAuthenticated && r.state.Kind() == ViewConfirmingEmail && !override {
		return false
	}
	r.setLocked(next)
	return true
}

func (r *Reconciler) setLocked(next ViewState) {
	prev := r.state
	r.state = next
	if r.observer != nil && prev.Kind() != next.Kind() {
		r.observer(prev.Kind(), next.Kind())
	}
	r.publishLocked(next)
}

func (r *Reconciler) publishLocked(state ViewState) {
	select {
	case <-r.updates:
	default:
	}
	r.updates <- state
}

// scoped returns a context canceled by either ctx or Close
func (r *Reconciler) scoped(ctx context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(r.ctx, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}
