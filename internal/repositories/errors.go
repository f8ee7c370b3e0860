package repositories

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrStaleWrite is returned when a conditional upsert loses to a newer version
	ErrStaleWrite = errors.New("stale write")
	// ErrWriteRejected wraps a write the database will refuse however often it is retried
	ErrWriteRejected = errors.New("write rejected")
	// ErrInviteUnavailable is returned when an invite was already claimed or has expired
	ErrInviteUnavailable = errors.New("invite unavailable")
)

// IsNotFoundError reports whether err wraps a missing-row error
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsRejectedError reports integrity and privilege violations: SQLSTATE class 23
// and 42501 (row-level security)
func IsRejectedError(err error) bool {
	if errors.Is(err, ErrWriteRejected) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) ||
		errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "23") || pgErr.Code == "42501"
	}
	return false
}
