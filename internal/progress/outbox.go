package progress

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/elearning-service/internal/models"
	"github.com/SAP-F-2025/elearning-service/internal/repositories"
)

const (
	DefaultMaxAttempts    = 5
	DefaultInitialBackoff = 500 * time.Millisecond
	maxBackoff            = 30 * time.Second
	drainTimeout          = 5 * time.Second
)

// Write outcomes reported to OutboxOptions.OnResult
const (
	ResultWritten = "written"
	ResultStale   = "stale"
	ResultRetried = "retried"
	ResultParked  = "parked"
)

// Store is the remote progress table
type Store interface {
	// Upsert returns repositories.ErrStaleWrite when a newer version is already stored
	Upsert(ctx context.Context, record *models.ProgressRecord) error
	// Get returns (nil, nil) when there is no record
	Get(ctx context.Context, userID, courseID, lessonID string) (*models.ProgressRecord, error)
	ListByUserCourse(ctx context.Context, userID, courseID string) ([]*models.ProgressRecord, error)
}

type OutboxOptions struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	Logger         *slog.Logger
	OnResult       func(result string)
}

type recordKey struct {
	userID, courseID, lessonID string
}

func keyOf(r *models.ProgressRecord) recordKey {
	return recordKey{userID: r.UserID, courseID: r.CourseID, lessonID: r.LessonID}
}

type outboxEntry struct {
	record    models.ProgressRecord
	attempts  int
	notBefore time.Time
}

// Outbox delivers progress writes to the store at least once. Pending writes
// to the same lesson coalesce into the newest version. A single worker ships
// due entries oldest first. A failed entry moves to the back of the queue with
// its own backoff, so it never holds up other writes. An entry that fails
// MaxAttempts times, or that the store rejects outright, is logged and
// dropped. Local state is never rolled back.
type Outbox struct {
	store    Store
	logger   *slog.Logger
	attempts int
	backoff  time.Duration
	onResult func(string)
	now      func() time.Time

	mu      sync.Mutex
	entries map[recordKey]*outboxEntry
	order   []recordKey
	notify  chan struct{}
	closed  bool

	cancel context.CancelFunc
	done   chan struct{}
}

func NewOutbox(store Store, opts OutboxOptions) *Outbox {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = DefaultInitialBackoff
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.OnResult == nil {
		opts.OnResult = func(string) {}
	}
	return &Outbox{
		store:    store,
		logger:   opts.Logger,
		attempts: opts.MaxAttempts,
		backoff:  opts.InitialBackoff,
		onResult: opts.OnResult,
		now:      time.Now,
		entries:  make(map[recordKey]*outboxEntry),
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Start runs the delivery worker until Close
func (o *Outbox) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	go o.run(ctx)
}

// Enqueue schedules record for delivery. An older pending write of the same
// lesson is replaced; a newer one is kept.
func (o *Outbox) Enqueue(record models.ProgressRecord) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return false
	}

	key := keyOf(&record)
	if existing, ok := o.entries[key]; ok {
		if record.Version > existing.record.Version {
			existing.record = record
			existing.attempts = 0
			existing.notBefore = time.Time{}
		}
	} else {
		o.entries[key] = &outboxEntry{record: record}
		o.order = append(o.order, key)
	}

	select {
	case o.notify <- struct{}{}:
	default:
	}
	return true
}

// Len is the number of writes awaiting delivery
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.order)
}

// Close stops accepting writes and makes one bounded attempt to flush what is left
func (o *Outbox) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.mu.Unlock()

	if o.cancel == nil {
		o.drain()
		return
	}
	o.cancel()
	<-o.done
}

func (o *Outbox) run(ctx context.Context) {
	defer close(o.done)

	for {
		key, entry, wait, ok := o.next()
		if ok {
			err := o.deliver(ctx, entry.record)
			if err == nil {
				o.settle(key, entry.record.Version)
				continue
			}
			if ctx.Err() != nil {
				o.drain()
				return
			}
			o.fail(key, entry.record.Version, err)
			continue
		}

		var (
			timer *time.Timer
			retry <-chan time.Time
		)
		if wait > 0 {
			timer = time.NewTimer(wait)
			retry = timer.C
		}
		select {
		case <-o.notify:
		case <-retry:
		case <-ctx.Done():
			o.drain()
			return
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// deliver treats a stale write as delivered: a newer version already landed
func (o *Outbox) deliver(ctx context.Context, record models.ProgressRecord) error {
	err := o.store.Upsert(ctx, &record)
	switch {
	case err == nil:
		o.onResult(ResultWritten)
		return nil
	case errors.Is(err, repositories.ErrStaleWrite):
		o.logger.Debug("Progress write superseded",
			"user_id", record.UserID, "lesson_id", record.LessonID, "version", record.Version)
		o.onResult(ResultStale)
		return nil
	default:
		return err
	}
}

// next returns the oldest entry that is due. When none is, wait is how long
// until the earliest retry, or zero when the queue is empty.
func (o *Outbox) next() (key recordKey, entry outboxEntry, wait time.Duration, ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.now()
	for _, k := range o.order {
		e := o.entries[k]
		if !e.notBefore.After(now) {
			return k, *e, 0, true
		}
		if until := e.notBefore.Sub(now); wait == 0 || until < wait {
			wait = until
		}
	}
	return recordKey{}, outboxEntry{}, wait, false
}

// head returns the oldest entry regardless of its retry time
func (o *Outbox) head() (recordKey, outboxEntry, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.order) == 0 {
		return recordKey{}, outboxEntry{}, false
	}
	key := o.order[0]
	return key, *o.entries[key], true
}

// settle removes the entry unless a newer version was enqueued during delivery
func (o *Outbox) settle(key recordKey, version int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	entry, ok := o.entries[key]
	if !ok || entry.record.Version != version {
		return
	}
	o.removeLocked(key)
}

// fail records a failed attempt. The entry is parked once it runs out of
// attempts or the store rejected it; otherwise it is rescheduled behind
// everything else.
func (o *Outbox) fail(key recordKey, version int64, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	entry, ok := o.entries[key]
	if !ok || entry.record.Version != version {
		return
	}
	entry.attempts++

	rejected := repositories.IsRejectedError(err)
	if rejected || entry.attempts >= o.attempts {
		o.logger.Error("Dropping progress write",
			"user_id", key.userID, "course_id", key.courseID, "lesson_id", key.lessonID,
			"attempts", entry.attempts, "rejected", rejected, "error", err)
		o.removeLocked(key)
		o.onResult(ResultParked)
		return
	}

	entry.notBefore = o.now().Add(o.backoffFor(entry.attempts))
	o.removeLocked(key)
	o.entries[key] = entry
	o.order = append(o.order, key)

	o.logger.Warn("Progress write failed, will retry",
		"user_id", key.userID, "lesson_id", key.lessonID,
		"attempt", entry.attempts, "retry_at", entry.notBefore, "error", err)
	o.onResult(ResultRetried)
}

// backoffFor doubles from InitialBackoff per failed attempt, capped at maxBackoff
func (o *Outbox) backoffFor(attempts int) time.Duration {
	d := o.backoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

func (o *Outbox) removeLocked(key recordKey) {
	delete(o.entries, key)
	for i, k := range o.order {
		if k == key {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
}

func (o *Outbox) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	for {
		key, entry, ok := o.head()
		if !ok {
			return
		}
		if err := o.deliver(ctx, entry.record); err != nil {
			o.logger.Warn("Abandoning unsent progress writes on shutdown",
				"remaining", o.Len(), "error", err)
			return
		}
		o.settle(key, entry.record.Version)
	}
}
