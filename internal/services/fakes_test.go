package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/elearning-service/internal/models"
	"github.com/SAP-F-2025/elearning-service/internal/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const (
	commit   = true
	rollback = false
)

// newTxDB returns a gorm handle expecting one transaction per outcome, in order.
// Repository calls go to the in-memory fakes, so no SQL is issued.
func newTxDB(t *testing.T, outcomes ...bool) *gorm.DB {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, committed := range outcomes {
		mock.ExpectBegin()
		if committed {
			mock.ExpectCommit()
		} else {
			mock.ExpectRollback()
		}
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, gorm.ErrRecordNotFound)
}

// memRepository is an in-memory repositories.Repository for service tests
type memRepository struct {
	mu          sync.Mutex
	profiles    map[string]*models.Profile
	invites     map[string]*models.TeacherInvite
	courses     map[string]*models.Course
	lessons     map[string]*models.Lesson
	enrollments map[string]*models.Enrollment
	progress    map[string]*models.ProgressRecord
}

func newMemRepository() *memRepository {
	return &memRepository{
		profiles:    make(map[string]*models.Profile),
		invites:     make(map[string]*models.TeacherInvite),
		courses:     make(map[string]*models.Course),
		lessons:     make(map[string]*models.Lesson),
		enrollments: make(map[string]*models.Enrollment),
		progress:    make(map[string]*models.ProgressRecord),
	}
}

func (m *memRepository) Profile() repositories.ProfileRepository       { return memProfiles{m} }
func (m *memRepository) Invite() repositories.InviteRepository         { return memInvites{m} }
func (m *memRepository) Course() repositories.CourseRepository         { return memCourses{m} }
func (m *memRepository) Lesson() repositories.LessonRepository         { return memLessons{m} }
func (m *memRepository) Enrollment() repositories.EnrollmentRepository { return memEnrollments{m} }
func (m *memRepository) Progress() repositories.ProgressRepository     { return memProgress{m} }
func (m *memRepository) Ping(context.Context) error                    { return nil }
func (m *memRepository) Close() error                                  { return nil }

func (m *memRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}

type memProfiles struct{ m *memRepository }

func (r memProfiles) GetByID(_ context.Context, _ *gorm.DB, id string) (*models.Profile, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.profiles[id]
	if !ok {
		return nil, notFound("profile", id)
	}
	out := *p
	return &out, nil
}

func (r memProfiles) GetByIDs(_ context.Context, _ *gorm.DB, ids []string) ([]*models.Profile, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Profile
	for _, id := range ids {
		if p, ok := r.m.profiles[id]; ok {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r memProfiles) Create(_ context.Context, _ *gorm.DB, profile *models.Profile) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.profiles[profile.ID]; !ok {
		c := *profile
		r.m.profiles[profile.ID] = &c
	}
	return nil
}

func (r memProfiles) Update(_ context.Context, _ *gorm.DB, profile *models.Profile) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c := *profile
	r.m.profiles[profile.ID] = &c
	return nil
}

func (r memProfiles) UpdateRole(_ context.Context, _ *gorm.DB, id string, role models.UserRole) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.profiles[id]
	if !ok {
		return notFound("profile", id)
	}
	p.Role = role
	return nil
}

type memInvites struct{ m *memRepository }

func (r memInvites) Create(_ context.Context, _ *gorm.DB, invite *models.TeacherInvite) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c := *invite
	r.m.invites[invite.ID] = &c
	return nil
}

func (r memInvites) GetByID(_ context.Context, _ *gorm.DB, id string) (*models.TeacherInvite, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	i, ok := r.m.invites[id]
	if !ok {
		return nil, notFound("invite", id)
	}
	c := *i
	return &c, nil
}

func (r memInvites) Claim(_ context.Context, _ *gorm.DB, id, userID string, now time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	i, ok := r.m.invites[id]
	if !ok || !i.Usable(now) {
		return repositories.ErrInviteUnavailable
	}
	i.ClaimedBy = &userID
	i.ClaimedAt = &now
	return nil
}

func (r memInvites) ListByCreator(_ context.Context, _ *gorm.DB, creatorID string) ([]*models.TeacherInvite, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.TeacherInvite
	for _, i := range r.m.invites {
		if i.CreatedBy == creatorID {
			c := *i
			out = append(out, &c)
		}
	}
	return out, nil
}

type memCourses struct{ m *memRepository }

func (r memCourses) Create(_ context.Context, _ *gorm.DB, course *models.Course) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c := *course
	r.m.courses[course.ID] = &c
	return nil
}

func (r memCourses) GetByID(_ context.Context, _ *gorm.DB, id string) (*models.Course, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.courses[id]
	if !ok {
		return nil, notFound("course", id)
	}
	out := *c
	return &out, nil
}

func (r memCourses) GetByIDWithLessons(ctx context.Context, tx *gorm.DB, id string) (*models.Course, error) {
	return r.GetByID(ctx, tx, id)
}

func (r memCourses) Update(_ context.Context, _ *gorm.DB, course *models.Course) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c := *course
	r.m.courses[course.ID] = &c
	return nil
}

func (r memCourses) Delete(_ context.Context, _ *gorm.DB, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.courses, id)
	return nil
}

func (r memCourses) List(_ context.Context, _ *gorm.DB, filters repositories.CourseFilters) ([]*models.Course, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Course
	for _, c := range r.m.courses {
		if filters.Status != nil && c.Status != *filters.Status {
			continue
		}
		if filters.InstructorID != nil && c.InstructorID != *filters.InstructorID {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r memCourses) UpdateCover(_ context.Context, _ *gorm.DB, id string, url string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.courses[id]
	if !ok {
		return notFound("course", id)
	}
	c.CoverImageURL = &url
	return nil
}

type memLessons struct{ m *memRepository }

func (r memLessons) Create(_ context.Context, _ *gorm.DB, lesson *models.Lesson) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c := *lesson
	r.m.lessons[lesson.ID] = &c
	return nil
}

func (r memLessons) GetByID(_ context.Context, _ *gorm.DB, id string) (*models.Lesson, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	l, ok := r.m.lessons[id]
	if !ok {
		return nil, notFound("lesson", id)
	}
	c := *l
	return &c, nil
}

func (r memLessons) Update(_ context.Context, _ *gorm.DB, lesson *models.Lesson) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c := *lesson
	r.m.lessons[lesson.ID] = &c
	return nil
}

func (r memLessons) Delete(_ context.Context, _ *gorm.DB, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.lessons, id)
	return nil
}

func (r memLessons) ListByCourse(_ context.Context, _ *gorm.DB, courseID string) ([]*models.Lesson, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Lesson
	for _, l := range r.m.lessons {
		if l.CourseID == courseID {
			c := *l
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (r memLessons) CountByCourse(ctx context.Context, tx *gorm.DB, courseID string) (int64, error) {
	lessons, _ := r.ListByCourse(ctx, tx, courseID)
	return int64(len(lessons)), nil
}

func (r memLessons) CountByCourses(ctx context.Context, tx *gorm.DB, courseIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(courseIDs))
	for _, id := range courseIDs {
		lessons, _ := r.ListByCourse(ctx, tx, id)
		out[id] = len(lessons)
	}
	return out, nil
}

func (r memLessons) NextOrderIndex(ctx context.Context, tx *gorm.DB, courseID string) (int, error) {
	lessons, _ := r.ListByCourse(ctx, tx, courseID)
	next := 0
	for _, l := range lessons {
		if l.OrderIndex >= next {
			next = l.OrderIndex + 1
		}
	}
	return next, nil
}

func (r memLessons) Reorder(_ context.Context, _ *gorm.DB, _ string, lessonIDs []string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i, id := range lessonIDs {
		if l, ok := r.m.lessons[id]; ok {
			l.OrderIndex = i
		}
	}
	return nil
}

type memEnrollments struct{ m *memRepository }

func enrollmentKey(userID, courseID string) string { return userID + "/" + courseID }

func (r memEnrollments) Create(_ context.Context, _ *gorm.DB, e *models.Enrollment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	key := enrollmentKey(e.UserID, e.CourseID)
	if _, ok := r.m.enrollments[key]; !ok {
		c := *e
		c.CreatedAt = time.Now()
		r.m.enrollments[key] = &c
	}
	return nil
}

func (r memEnrollments) Get(_ context.Context, _ *gorm.DB, userID, courseID string) (*models.Enrollment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	e, ok := r.m.enrollments[enrollmentKey(userID, courseID)]
	if !ok {
		return nil, notFound("enrollment", courseID)
	}
	c := *e
	return &c, nil
}

func (r memEnrollments) Exists(ctx context.Context, tx *gorm.DB, userID, courseID string) (bool, error) {
	_, err := r.Get(ctx, tx, userID, courseID)
	return err == nil, nil
}

func (r memEnrollments) ListByUser(_ context.Context, _ *gorm.DB, userID string) ([]*models.Enrollment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Enrollment
	for _, e := range r.m.enrollments {
		if e.UserID == userID {
			c := *e
			if course, ok := r.m.courses[e.CourseID]; ok {
				cc := *course
				c.Course = &cc
			}
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r memEnrollments) ListByCourse(_ context.Context, _ *gorm.DB, courseID string) ([]*models.Enrollment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Enrollment
	for _, e := range r.m.enrollments {
		if e.CourseID == courseID {
			c := *e
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

type memProgress struct{ m *memRepository }

func progressKey(userID, courseID, lessonID string) string {
	return userID + "/" + courseID + "/" + lessonID
}

func (r memProgress) Upsert(_ context.Context, _ *gorm.DB, record *models.ProgressRecord) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	key := progressKey(record.UserID, record.CourseID, record.LessonID)
	if existing, ok := r.m.progress[key]; ok && existing.Version >= record.Version {
		return repositories.ErrStaleWrite
	}
	c := *record
	r.m.progress[key] = &c
	return nil
}

func (r memProgress) Get(_ context.Context, _ *gorm.DB, userID, courseID, lessonID string) (*models.ProgressRecord, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.progress[progressKey(userID, courseID, lessonID)]
	if !ok {
		return nil, notFound("progress", lessonID)
	}
	c := *p
	return &c, nil
}

func (r memProgress) ListByUserCourse(_ context.Context, _ *gorm.DB, userID, courseID string) ([]*models.ProgressRecord, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.ProgressRecord
	for _, p := range r.m.progress {
		if p.UserID == userID && p.CourseID == courseID {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r memProgress) CompletedByUser(_ context.Context, _ *gorm.DB, userID string) ([]repositories.CourseCompletion, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	counts := make(map[string]int)
	for _, p := range r.m.progress {
		if p.UserID == userID && p.Completed {
			counts[p.CourseID]++
		}
	}
	var out []repositories.CourseCompletion
	for id, n := range counts {
		out = append(out, repositories.CourseCompletion{CourseID: id, Completed: n})
	}
	return out, nil
}

func (r memProgress) ReportByCourse(_ context.Context, _ *gorm.DB, courseID string) ([]repositories.ProgressReportRow, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []repositories.ProgressReportRow
	for _, p := range r.m.progress {
		if p.CourseID != courseID {
			continue
		}
		row := repositories.ProgressReportRow{UserID: p.UserID, LessonID: p.LessonID, Completed: p.Completed, Score: p.Score}
		if profile, ok := r.m.profiles[p.UserID]; ok {
			row.FullName = profile.FullName
		}
		out = append(out, row)
	}
	return out, nil
}

// ===== FIXTURES =====

func student(id string) *models.CurrentUser {
	return &models.CurrentUser{ID: id, Name: id, Email: id + "@example.com", Role: models.RoleStudent}
}

func teacher(id string) *models.CurrentUser {
	return &models.CurrentUser{ID: id, Name: id, Email: id + "@example.com", Role: models.RoleTeacher}
}

func seedCourse(repo *memRepository, id, instructor string, status models.CourseStatus) *models.Course {
	course := &models.Course{ID: id, Title: "Course " + id, InstructorID: instructor, Status: status}
	repo.courses[id] = course
	return course
}

func seedVideoLesson(repo *memRepository, courseID, id string, order int) *models.Lesson {
	url := "https://video.example.com/" + id
	lesson := &models.Lesson{ID: id, CourseID: courseID, Title: "Lesson " + id, Type: models.LessonVideo, VideoURL: &url, OrderIndex: order}
	repo.lessons[id] = lesson
	return lesson
}

func seedQuizLesson(t *testing.T, repo *memRepository, courseID, id string, order int) *models.Lesson {
	t.Helper()
	lesson := &models.Lesson{ID: id, CourseID: courseID, Title: "Quiz " + id, Type: models.LessonQuiz, OrderIndex: order}
	require.NoError(t, lesson.SetQuiz(&models.QuizData{Questions: []models.QuizQuestion{
		{ID: "q1", Question: "2+2?", Options: []string{"3", "4"}, CorrectOptionIndex: 1},
		{ID: "q2", Question: "Go?", Options: []string{"yes", "no"}, CorrectOptionIndex: 0},
	}}))
	repo.lessons[id] = lesson
	return lesson
}

func seedEnrollment(repo *memRepository, userID, courseID string) {
	repo.enrollments[enrollmentKey(userID, courseID)] = &models.Enrollment{ID: userID + courseID, UserID: userID, CourseID: courseID, CreatedAt: time.Now()}
}
