package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/elearning-service/internal/cache"
	"github.com/SAP-F-2025/elearning-service/internal/metrics"
	"github.com/SAP-F-2025/elearning-service/internal/progress"
	"github.com/SAP-F-2025/elearning-service/internal/repositories"
	"github.com/SAP-F-2025/elearning-service/internal/session"
	"github.com/SAP-F-2025/elearning-service/internal/storage"
	"github.com/SAP-F-2025/elearning-service/internal/validator"
	"gorm.io/gorm"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	Shell    ShellOptions
	Progress ProgressOptions

	MaxCoverSize   int64
	DefaultTimeout time.Duration
}

// ProgressOptions tunes the progress outbox
type ProgressOptions struct {
	MaxAttempts  int
	RetryBackoff time.Duration
}

// ServiceDependencies are the collaborators built outside the service layer
type ServiceDependencies struct {
	DB        *gorm.DB
	Repo      repositories.Repository
	Logger    *slog.Logger
	Validator *validator.Validator
	Provider  AuthProvider
	Pending   session.PendingStore
	Objects   storage.ObjectStorage
	Cache     *cache.CacheManager
	Metrics   *metrics.Metrics
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	deps   ServiceDependencies
	logger *slog.Logger
	config ServiceManagerConfig

	// Service instances
	authService       AuthService
	profileService    ProfileService
	inviteService     InviteService
	courseService     CourseService
	lessonService     LessonService
	enrollmentService EnrollmentService
	progressService   ProgressService
	shellService      ShellService

	// Background workers
	outbox   *progress.Outbox
	registry *progress.Registry
	hub      *session.Hub

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(deps ServiceDependencies, config ServiceManagerConfig) ServiceManager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	return &serviceManager{
		deps:   deps,
		logger: deps.Logger,
		config: config,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(deps ServiceDependencies) ServiceManager {
	return NewServiceManager(deps, ServiceManagerConfig{
		Shell: ShellOptions{
			ProbeTimeout:       session.DefaultProbeTimeout,
			ConfirmationWindow: 120 * time.Second,
		},
		Progress: ProgressOptions{
			MaxAttempts:  progress.DefaultMaxAttempts,
			RetryBackoff: progress.DefaultInitialBackoff,
		},
		MaxCoverSize:   5 * 1024 * 1024,
		DefaultTimeout: 30 * time.Second,
	})
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if err := sm.initializeServices(ctx); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) initializeServices(ctx context.Context) error {
	d := sm.deps
	if d.Repo == nil {
		return errors.New("repository is required")
	}
	if d.Provider == nil {
		return errors.New("auth provider is required")
	}

	sm.profileService = NewProfileService(d.Repo, d.DB, sm.logger, d.Validator)
	sm.logger.Info("Profile service initialized")

	invites := &inviteService{
		repo:      d.Repo,
		db:        d.DB,
		logger:    sm.logger,
		validator: d.Validator,
		now:       time.Now,
	}
	sm.inviteService = invites
	sm.logger.Info("Invite service initialized")

	store := NewProgressStore(d.Repo)
	sm.outbox = progress.NewOutbox(store, progress.OutboxOptions{
		MaxAttempts:    sm.config.Progress.MaxAttempts,
		InitialBackoff: sm.config.Progress.RetryBackoff,
		Logger:         sm.logger.With("component", "progress_outbox"),
		OnResult:       d.Metrics.ObserveProgressWrite,
	})
	sm.outbox.Start()
	sm.registry = progress.NewRegistry(store, sm.outbox, sm.logger)
	sm.progressService = NewProgressService(d.Repo, d.DB, sm.logger, d.Validator, sm.registry)
	sm.logger.Info("Progress service initialized")

	auth := &authService{
		repo:      d.Repo,
		db:        d.DB,
		logger:    sm.logger,
		validator: d.Validator,
		provider:  d.Provider,
		profiles:  sm.profileService,
		invites:   invites,
		identity:  session.NewIdentityResolver(sm.profileService, sm.logger),
		onSignOut: sm.registry.Forget,
	}
	sm.authService = auth
	sm.logger.Info("Auth service initialized")

	sm.courseService = NewCourseService(d.Repo, d.DB, sm.logger, d.Validator, d.Objects, d.Cache, sm.config.MaxCoverSize)
	sm.logger.Info("Course service initialized")

	sm.lessonService = NewLessonService(d.Repo, d.DB, sm.logger, d.Validator, d.Cache)
	sm.logger.Info("Lesson service initialized")

	sm.enrollmentService = NewEnrollmentService(d.Repo, d.DB, sm.logger, sm.registry)
	sm.logger.Info("Enrollment service initialized")

	shellOpts := sm.config.Shell
	if shellOpts.Observer == nil && d.Metrics != nil {
		shellOpts.Observer = d.Metrics.ObserveTransition
	}
	if shellOpts.OnSignOut == nil {
		shellOpts.OnSignOut = sm.registry.Forget
	}
	sm.hub = session.NewHub()
	sm.shellService = NewShellService(d.Provider, d.Pending, sm.profileService, sm.hub, sm.logger.With("component", "shell"), shellOpts)
	sm.logger.Info("Shell service initialized")

	d.Metrics.RegisterGauge("progress_outbox_pending", "Progress writes waiting for delivery", func() float64 {
		return float64(sm.outbox.Len())
	})
	d.Metrics.RegisterGauge("session_open_shells", "Open shell streams", func() float64 {
		return float64(sm.hub.Len())
	})

	return nil
}

// Service getters
func (sm *serviceManager) Auth() AuthService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.authService
}

func (sm *serviceManager) Profile() ProfileService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.profileService
}

func (sm *serviceManager) Invite() InviteService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.inviteService
}

func (sm *serviceManager) Course() CourseService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.courseService
}

func (sm *serviceManager) Lesson() LessonService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.lessonService
}

func (sm *serviceManager) Enrollment() EnrollmentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.enrollmentService
}

func (sm *serviceManager) Progress() ProgressService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.progressService
}

func (sm *serviceManager) Shell() ShellService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.shellService
}

func (sm *serviceManager) mustBeInitialized() {
	if !sm.initialized {
		panic("service manager not initialized")
	}
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

// Shutdown closes every shell, then flushes pending progress writes
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.hub != nil {
		sm.hub.CloseAll()
	}

	if sm.outbox != nil {
		done := make(chan struct{})
		go func() {
			sm.outbox.Close()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			sm.logger.Warn("Progress outbox did not drain before shutdown deadline", "pending", sm.outbox.Len())
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}

// IsInitialized returns whether the service manager has been initialized
func (sm *serviceManager) IsInitialized() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.initialized
}

// WithTimeout creates a context with the default timeout
func (sm *serviceManager) WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := sm.config.DefaultTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(parent, timeout)
}
