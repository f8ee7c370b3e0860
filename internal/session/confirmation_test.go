package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/SAP-F-2025/elearning-service/internal/models"
)

type fakeLocation struct {
	mu       sync.Mutex
	fragment string
}

func (l *fakeLocation) Fragment() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fragment
}

func (l *fakeLocation) ClearFragment() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fragment = ""
}

type fakePending struct{ emails map[string]bool }

func (p *fakePending) IsPending(_ context.Context, email string) (bool, error) {
	return p.emails[email], nil
}

func (p *fakePending) Clear(_ context.Context, email string) error {
	delete(p.emails, email)
	return nil
}

func TestHasConfirmationMarker(t *testing.T) {
	tests := []struct {
		fragment string
		want     bool
	}{
		{"#type=signup", true},
		{"type=email", true},
		{"#access_token=abc&type=recovery", true},
		{"#access_token=abc", false},
		{"#type=recovery", false},
		{"", false},
		{"#", false},
	}
	for _, tt := range tests {
		t.Run(tt.fragment, func(t *testing.T) {
			assert.Equal(t, tt.want, HasConfirmationMarker(tt.fragment))
		})
	}
}

func TestFragmentDetectionIdempotentUntilCleared(t *testing.T) {
	loc := &fakeLocation{fragment: "#type=signup"}

	assert.True(t, HasConfirmationMarker(loc.Fragment()))
	assert.True(t, HasConfirmationMarker(loc.Fragment()))

	detector := NewConfirmationDetector(time.Minute, nil, nil)
	session := &models.Session{ID: "s1", User: models.AuthUser{ID: "u1"}}
	assert.True(t, detector.Detect(context.Background(), loc, session))
	assert.Empty(t, loc.Fragment())
	assert.False(t, detector.Detect(context.Background(), loc, session))
}

func TestDetectEmailConfirmedRecently(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	detector := NewConfirmationDetector(120*time.Second, nil, nil)
	detector.now = func() time.Time { return now }

	recent := now.Add(-30 * time.Second)
	old := now.Add(-10 * time.Minute)

	assert.True(t, detector.Detect(context.Background(), nil, &models.Session{User: models.AuthUser{EmailConfirmedAt: &recent}}))
	assert.False(t, detector.Detect(context.Background(), nil, &models.Session{User: models.AuthUser{EmailConfirmedAt: &old}}))
}

func TestDetectPendingFlag(t *testing.T) {
	pending := &fakePending{emails: map[string]bool{"ana@example.com": true}}
	detector := NewConfirmationDetector(time.Minute, pending, nil)
	session := &models.Session{User: models.AuthUser{Email: "ana@example.com"}}

	assert.True(t, detector.Detect(context.Background(), &fakeLocation{}, session))

	detector.Acknowledge(context.Background(), "ana@example.com")
	assert.False(t, detector.Detect(context.Background(), &fakeLocation{}, session))
}

func TestFragmentLocationSignalsClear(t *testing.T) {
	loc := NewFragmentLocation("#access_token=x&type=signup")
	assert.Equal(t, "#access_token=x&type=signup", loc.Fragment())

	loc.ClearFragment()
	assert.Empty(t, loc.Fragment())
	select {
	case <-loc.Cleared():
	default:
		t.Fatal("expected clear signal")
	}

	loc.ClearFragment()
	select {
	case <-loc.Cleared():
		t.Fatal("clearing an empty fragment should not signal")
	default:
	}
}
