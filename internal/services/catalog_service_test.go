package services

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/elearning-service/internal/cache"
	"github.com/SAP-F-2025/elearning-service/internal/models"
	"github.com/SAP-F-2025/elearning-service/internal/repositories"
	"github.com/SAP-F-2025/elearning-service/internal/storage"
	"github.com/SAP-F-2025/elearning-service/internal/validator"
)

// 1x1 transparent PNG
var pngPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
	0x89, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
	0x42, 0x60, 0x82,
}

func TestCourseCreateIsTeacherOnly(t *testing.T) {
	repo := newMemRepository()
	svc := NewCourseService(repo, nil, testLogger(), validator.New(), nil, nil, 0)

	_, err := svc.Create(context.Background(), &CreateCourseRequest{Title: "Intro to Go"}, student("s1"))
	assert.ErrorIs(t, err, ErrForbidden)

	course, err := svc.Create(context.Background(), &CreateCourseRequest{Title: "  Intro to Go "}, teacher("t1"))
	require.NoError(t, err)
	assert.Equal(t, "Intro to Go", course.Title)
	assert.Equal(t, models.CourseDraft, course.Status)
	assert.Equal(t, "t1", course.InstructorID)
}

func TestCourseDraftHiddenFromOthers(t *testing.T) {
	repo := newMemRepository()
	seedCourse(repo, "c1", "t1", models.CourseDraft)
	seedCourse(repo, "c2", "t1", models.CoursePublished)
	svc := NewCourseService(repo, nil, testLogger(), validator.New(), nil, nil, 0)
	ctx := context.Background()

	_, err := svc.Get(ctx, "c1", student("s1"))
	assert.ErrorIs(t, err, ErrCourseNotFound)

	course, err := svc.Get(ctx, "c1", teacher("t1"))
	require.NoError(t, err)
	assert.Equal(t, "c1", course.ID)

	list, err := svc.List(ctx, repositories.CourseFilters{Limit: 500}, student("s1"))
	require.NoError(t, err)
	require.Len(t, list.Courses, 1)
	assert.Equal(t, "c2", list.Courses[0].ID)
	assert.Equal(t, maxPageSize, list.Size)

	mine, err := svc.ListMine(ctx, repositories.CourseFilters{}, teacher("t1"))
	require.NoError(t, err)
	assert.Len(t, mine.Courses, 2)
}

func TestCourseUpdateByOwnerOnly(t *testing.T) {
	repo := newMemRepository()
	seedCourse(repo, "c1", "t1", models.CourseDraft)
	svc := NewCourseService(repo, newTxDB(t, rollback, commit), testLogger(), validator.New(), nil, nil, 0)

	title := "Renamed"
	published := models.CoursePublished
	_, err := svc.Update(context.Background(), "c1", &UpdateCourseRequest{Title: &title}, teacher("t2"))
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.Update(context.Background(), "c1", &UpdateCourseRequest{Title: &title, Status: &published}, teacher("t1"))
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, models.CoursePublished, repo.courses["c1"].Status)
}

func TestUploadCover(t *testing.T) {
	repo := newMemRepository()
	seedCourse(repo, "c1", "t1", models.CourseDraft)
	objects, err := storage.NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)
	svc := NewCourseService(repo, nil, testLogger(), validator.New(), objects, nil, 1024)
	ctx := context.Background()

	_, err = svc.UploadCover(ctx, "c1", "notes.txt", []byte("plain text"), teacher("t1"))
	assert.ErrorIs(t, err, ErrInvalidCover)

	_, err = svc.UploadCover(ctx, "c1", "big.png", make([]byte, 2048), teacher("t1"))
	assert.ErrorIs(t, err, ErrCoverTooLarge)

	course, err := svc.UploadCover(ctx, "c1", "cover.png", pngPixel, teacher("t1"))
	require.NoError(t, err)
	require.NotNil(t, course.CoverImageURL)
	assert.Contains(t, *course.CoverImageURL, "/uploads/covers/c1/")
	assert.Equal(t, *course.CoverImageURL, *repo.courses["c1"].CoverImageURL)
}

func TestEnrollIsIdempotent(t *testing.T) {
	repo := newMemRepository()
	seedCourse(repo, "c1", "t1", models.CoursePublished)
	seedCourse(repo, "c2", "t1", models.CourseDraft)
	seedVideoLesson(repo, "c1", "l1", 0)
	seedVideoLesson(repo, "c1", "l2", 1)
	repo.progress[progressKey("s1", "c1", "l1")] = &models.ProgressRecord{UserID: "s1", CourseID: "c1", LessonID: "l1", Completed: true, Version: 1}
	svc := NewEnrollmentService(repo, nil, testLogger(), newTestRegistry(t, repo, false))
	ctx := context.Background()

	first, err := svc.Enroll(ctx, "c1", student("s1"))
	require.NoError(t, err)
	second, err := svc.Enroll(ctx, "c1", student("s1"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = svc.Enroll(ctx, "c2", student("s1"))
	assert.ErrorIs(t, err, ErrCourseNotPublished)
	_, err = svc.Enroll(ctx, "c1", teacher("t1"))
	assert.ErrorIs(t, err, ErrStudentOnly)

	dashboard, err := svc.ListMine(ctx, student("s1"))
	require.NoError(t, err)
	require.Len(t, dashboard, 1)
	assert.Equal(t, 50, dashboard[0].CompletionPercentage)

	assert.NoError(t, svc.CheckAccess(ctx, "s1", "c1"))
	assert.ErrorIs(t, svc.CheckAccess(ctx, "s2", "c1"), ErrNotEnrolled)
}

func TestLessonsStrippedForStudents(t *testing.T) {
	repo := newMemRepository()
	seedCourse(repo, "c1", "t1", models.CoursePublished)
	seedQuizLesson(t, repo, "c1", "q1", 0)
	svc := NewLessonService(repo, nil, testLogger(), validator.New(), nil)
	ctx := context.Background()

	_, err := svc.ListByCourse(ctx, "c1", student("s1"))
	assert.ErrorIs(t, err, ErrNotEnrolled)

	seedEnrollment(repo, "s1", "c1")
	lessons, err := svc.ListByCourse(ctx, "c1", student("s1"))
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	quiz, err := lessons[0].Quiz()
	require.NoError(t, err)
	assert.Equal(t, -1, quiz.Questions[0].CorrectOptionIndex)

	owned, err := svc.Get(ctx, "c1", "q1", teacher("t1"))
	require.NoError(t, err)
	quiz, err = owned.Quiz()
	require.NoError(t, err)
	assert.Equal(t, 1, quiz.Questions[0].CorrectOptionIndex)
}

func TestLessonCreateAppendsAndReorder(t *testing.T) {
	repo := newMemRepository()
	seedCourse(repo, "c1", "t1", models.CourseDraft)
	seedVideoLesson(repo, "c1", "l1", 0)
	svc := NewLessonService(repo, newTxDB(t, commit, rollback, commit), testLogger(), validator.New(), nil)
	ctx := context.Background()

	url := "https://video.example.com/intro"
	created, err := svc.Create(ctx, "c1", &CreateLessonRequest{Title: "Intro", Type: models.LessonVideo, VideoURL: &url}, teacher("t1"))
	require.NoError(t, err)
	assert.Equal(t, 1, created.OrderIndex)

	_, err = svc.Reorder(ctx, "c1", &ReorderLessonsRequest{LessonIDs: []string{created.ID}}, teacher("t1"))
	assert.ErrorIs(t, err, ErrLessonOrder)

	lessons, err := svc.Reorder(ctx, "c1", &ReorderLessonsRequest{LessonIDs: []string{created.ID, "l1"}}, teacher("t1"))
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	assert.Equal(t, created.ID, lessons[0].ID)
	assert.Equal(t, "l1", lessons[1].ID)
}

func TestCatalogListIsCachedUntilCourseWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemRepository()
	seedCourse(repo, "c1", "t1", models.CoursePublished)
	svc := NewCourseService(repo, nil, testLogger(), validator.New(), nil, cache.NewCacheManager(client), 0)
	ctx := context.Background()

	first, err := svc.List(ctx, repositories.CourseFilters{}, student("s1"))
	require.NoError(t, err)
	require.Len(t, first.Courses, 1)

	// written behind the service's back: the cached page still wins
	seedCourse(repo, "c2", "t1", models.CoursePublished)
	cached, err := svc.List(ctx, repositories.CourseFilters{}, student("s1"))
	require.NoError(t, err)
	assert.Len(t, cached.Courses, 1)

	_, err = svc.Create(ctx, &CreateCourseRequest{Title: "Third", Status: models.CoursePublished}, teacher("t1"))
	require.NoError(t, err)

	fresh, err := svc.List(ctx, repositories.CourseFilters{}, student("s1"))
	require.NoError(t, err)
	assert.Len(t, fresh.Courses, 3)
}
