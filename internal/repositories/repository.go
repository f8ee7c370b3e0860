package repositories

import "context"

// Repository aggregates the store-backed repositories of the service
type Repository interface {
	// Identity domain
	Profile() ProfileRepository
	Invite() InviteRepository

	// Catalog domain
	Course() CourseRepository
	Lesson() LessonRepository

	// Student domain
	Enrollment() EnrollmentRepository
	Progress() ProgressRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
