package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern invalidates a cache pattern, logging instead of failing
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete deletes cache keys, logging instead of failing
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateCourseCache drops the cached course, its lesson list and every cached listing
func InvalidateCourseCache(ctx context.Context, cm *CacheManager, courseID string) {
	SafeDelete(ctx, cm.Course, fmt.Sprintf("id:%s", courseID))
	SafeDelete(ctx, cm.Lesson, fmt.Sprintf("course:%s", courseID))
	SafeInvalidatePattern(ctx, cm.Course, "list:*")
}

// InvalidateLessonCache drops the cached lesson list of a course
func InvalidateLessonCache(ctx context.Context, cm *CacheManager, courseID string) {
	SafeDelete(ctx, cm.Lesson, fmt.Sprintf("course:%s", courseID))
}
