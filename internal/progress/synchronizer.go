package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/elearning-service/internal/models"
)

var ErrNotQuizLesson = errors.New("lesson is not a quiz")

// Synchronizer holds one student's progress. Edits apply to the local view at
// once and reach the store through the outbox; a failed remote write never
// undoes a local edit. Each write carries a version newer than any earlier
// write of this synchronizer.
type Synchronizer struct {
	userID string
	store  Store
	outbox *Outbox
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	local   map[recordKey]models.ProgressRecord
	version int64
}

func NewSynchronizer(userID string, store Store, outbox *Outbox, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{
		userID: userID,
		store:  store,
		outbox: outbox,
		logger: logger.With("user_id", userID),
		now:    time.Now,
		local:  make(map[recordKey]models.ProgressRecord),
	}
}

// MarkLessonComplete sets the completion flag of a lesson and keeps its score.
// It fails without writing when the stored record cannot be read.
func (s *Synchronizer) MarkLessonComplete(ctx context.Context, courseID, lessonID string, completed bool) (models.LessonProgress, error) {
	if err := s.hydrate(ctx, courseID, lessonID); err != nil {
		return models.LessonProgress{}, err
	}

	return s.apply(courseID, lessonID, func(r *models.ProgressRecord) {
		r.Completed = completed
	}), nil
}

// SubmitQuiz scores answers and records the lesson as completed with that score.
// A resubmission overwrites the previous score.
func (s *Synchronizer) SubmitQuiz(courseID string, lesson *models.Lesson, answers map[string]int) (models.QuizResult, error) {
	quiz, err := lesson.Quiz()
	if err != nil {
		return models.QuizResult{}, err
	}
	if quiz == nil {
		return models.QuizResult{}, fmt.Errorf("%w: %s", ErrNotQuizLesson, lesson.ID)
	}

	result := ScoreQuiz(lesson.ID, quiz, answers)
	s.apply(courseID, lesson.ID, func(r *models.ProgressRecord) {
		r.Completed = true
		r.Score = result.Score
	})
	return result, nil
}

// CourseProgress merges stored records with local edits over the given lessons.
// A store failure falls back to local state alone.
func (s *Synchronizer) CourseProgress(ctx context.Context, courseID string, lessonIDs []string) models.CourseProgress {
	states := make(map[string]models.LessonProgress, len(lessonIDs))
	versions := make(map[string]int64, len(lessonIDs))

	records, err := s.store.ListByUserCourse(ctx, s.userID, courseID)
	if err != nil {
		s.logger.Warn("Failed to load stored progress, using local state", "course_id", courseID, "error", err)
	}
	for _, r := range records {
		states[r.LessonID] = lessonProgressOf(*r)
		versions[r.LessonID] = r.Version
	}

	s.mu.Lock()
	for key, r := range s.local {
		if key.courseID != courseID {
			continue
		}
		if r.Version >= versions[key.lessonID] {
			states[key.lessonID] = lessonProgressOf(r)
		}
	}
	s.mu.Unlock()

	lessons := make(map[string]models.LessonProgress, len(lessonIDs))
	for _, id := range lessonIDs {
		if state, ok := states[id]; ok {
			lessons[id] = state
		}
	}

	completed, percentage := CompletionPercentage(lessonIDs, lessons)
	return models.CourseProgress{
		CourseID:             courseID,
		CompletionPercentage: percentage,
		CompletedLessons:     completed,
		TotalLessons:         len(lessonIDs),
		Lessons:              lessons,
	}
}

// HasLocalEdits reports whether this synchronizer holds any record of the
// course, in which case the store alone may be behind
func (s *Synchronizer) HasLocalEdits(courseID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.local {
		if key.courseID == courseID {
			return true
		}
	}
	return false
}

// hydrate seeds the local view of one lesson from the store so a completion
// toggle does not reset a stored score. Without the stored record the write
// would carry a zero score under a newer version, so a read failure is returned.
func (s *Synchronizer) hydrate(ctx context.Context, courseID, lessonID string) error {
	key := recordKey{userID: s.userID, courseID: courseID, lessonID: lessonID}

	s.mu.Lock()
	_, known := s.local[key]
	s.mu.Unlock()
	if known {
		return nil
	}

	stored, err := s.store.Get(ctx, s.userID, courseID, lessonID)
	if err != nil {
		s.logger.Warn("Failed to load stored progress", "course_id", courseID, "lesson_id", lessonID, "error", err)
		return fmt.Errorf("failed to load stored progress: %w", err)
	}
	if stored == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, known := s.local[key]; !known {
		s.local[key] = *stored
		if stored.Version > s.version {
			s.version = stored.Version
		}
	}
	return nil
}

func (s *Synchronizer) apply(courseID, lessonID string, edit func(*models.ProgressRecord)) models.LessonProgress {
	key := recordKey{userID: s.userID, courseID: courseID, lessonID: lessonID}
	now := s.now().UTC()

	s.mu.Lock()
	record, ok := s.local[key]
	if !ok {
		record = models.ProgressRecord{UserID: s.userID, CourseID: courseID, LessonID: lessonID}
	}
	edit(&record)
	record.Version = s.nextVersionLocked(now)
	record.UpdatedAt = now
	s.local[key] = record
	s.mu.Unlock()

	if !s.outbox.Enqueue(record) {
		s.logger.Warn("Progress outbox closed, write not queued", "course_id", courseID, "lesson_id", lessonID)
	}
	return lessonProgressOf(record)
}

func (s *Synchronizer) nextVersionLocked(now time.Time) int64 {
	next := now.UnixNano()
	if next <= s.version {
		next = s.version + 1
	}
	s.version = next
	return next
}

func lessonProgressOf(r models.ProgressRecord) models.LessonProgress {
	return models.LessonProgress{
		LessonID:  r.LessonID,
		Completed: r.Completed,
		Score:     r.Score,
		UpdatedAt: r.UpdatedAt,
	}
}

// Registry hands out one synchronizer per student over a shared outbox
type Registry struct {
	store  Store
	outbox *Outbox
	logger *slog.Logger

	mu    sync.Mutex
	users map[string]*Synchronizer
}

func NewRegistry(store Store, outbox *Outbox, logger *slog.Logger) *Registry {
	return &Registry{
		store:  store,
		outbox: outbox,
		logger: logger,
		users:  make(map[string]*Synchronizer),
	}
}

func (r *Registry) For(userID string) *Synchronizer {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.users[userID]
	if !ok {
		s = NewSynchronizer(userID, r.store, r.outbox, r.logger)
		r.users[userID] = s
	}
	return s
}

// Forget drops a student's local state once they sign out
func (r *Registry) Forget(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, userID)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}
