package session

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/SAP-F-2025/elearning-service/internal/models"
)

// Location is the shell's view of the browser URL fragment
type Location interface {
	Fragment() string
	// ClearFragment removes the fragment without navigating
	ClearFragment()
}

// PendingStore holds sign-ups awaiting email confirmation, keyed by email
type PendingStore interface {
	IsPending(ctx context.Context, email string) (bool, error)
	Clear(ctx context.Context, email string) error
}

// HasConfirmationMarker reports whether a URL fragment is an email confirmation
// redirect: type=signup, type=email, or an access_token with any type.
func HasConfirmationMarker(fragment string) bool {
	fragment = strings.TrimPrefix(strings.TrimSpace(fragment), "#")
	if fragment == "" {
		return false
	}
	values, _ := url.ParseQuery(fragment)
	kind := values.Get("type")
	switch {
	case kind == "signup", kind == "email":
		return true
	case values.Get("access_token") != "" && kind != "":
		return true
	}
	return false
}

// ConfirmationDetector decides whether a session is mid email confirmation
type ConfirmationDetector struct {
	window  time.Duration
	pending PendingStore
	now     func() time.Time
	logger  *slog.Logger
}

func NewConfirmationDetector(window time.Duration, pending PendingStore, logger *slog.Logger) *ConfirmationDetector {
	if window <= 0 {
		window = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfirmationDetector{window: window, pending: pending, now: time.Now, logger: logger}
}

// Detect checks the fragment, then email_confirmed_at recency, then the pending
// flag. A matching fragment is cleared.
func (d *ConfirmationDetector) Detect(ctx context.Context, loc Location, session *models.Session) bool {
	if loc != nil && HasConfirmationMarker(loc.Fragment()) {
		loc.ClearFragment()
		return true
	}
	if session == nil {
		return false
	}

	if confirmedAt := session.User.EmailConfirmedAt; confirmedAt != nil {
		age := d.now().Sub(*confirmedAt)
		if age >= -d.window && age <= d.window {
			return true
		}
	}

	if d.pending != nil && session.User.Email != "" {
		pending, err := d.pending.IsPending(ctx, session.User.Email)
		if err != nil {
			d.logger.Warn("Pending confirmation lookup failed", "user_id", session.User.ID, "error", err)
			return false
		}
		return pending
	}
	return false
}

// Acknowledge clears the pending flag once the user continues past confirmation
func (d *ConfirmationDetector) Acknowledge(ctx context.Context, email string) {
	if d.pending == nil || email == "" {
		return
	}
	if err := d.pending.Clear(ctx, email); err != nil {
		d.logger.Warn("Failed to clear pending confirmation", "error", err)
	}
}
