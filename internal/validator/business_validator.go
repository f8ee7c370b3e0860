package validator

import (
	"fmt"
	"strings"

	"github.com/SAP-F-2025/elearning-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()
	validate.RegisterTagNameFunc(jsonFieldName)

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateLessonCreate checks tags and the video/quiz payload exclusivity
func (bv *BusinessValidator) ValidateLessonCreate(req *LessonCreateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)
	errors = append(errors, validateLessonContent(req.Type, req.VideoURL, req.Quiz)...)

	return errors
}

// ValidateLessonUpdate applies the same payload rules to the lesson as it will be after the update
func (bv *BusinessValidator) ValidateLessonUpdate(req *LessonUpdateRequest, existing *models.Lesson) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	lessonType := existing.Type
	if req.Type != nil {
		lessonType = *req.Type
	}

	if req.Type != nil && *req.Type != existing.Type {
		// Switching type requires the payload of the new type in the same request
		errors = append(errors, validateLessonContent(lessonType, req.VideoURL, req.Quiz)...)
		return errors
	}

	switch lessonType {
	case models.LessonVideo:
		if req.Quiz != nil {
			errors = append(errors, ValidationError{Field: "quiz_data", Message: "not allowed for video lessons", Rule: "lesson_content"})
		}
	case models.LessonQuiz:
		if req.VideoURL != nil {
			errors = append(errors, ValidationError{Field: "video_url", Message: "not allowed for quiz lessons", Rule: "lesson_content"})
		}
		if req.Quiz != nil {
			errors = append(errors, validateQuiz(req.Quiz)...)
		}
	}

	return errors
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	bv.validate.RegisterValidation("course_title", func(fl validator.FieldLevel) bool {
		title := strings.TrimSpace(fl.Field().String())
		return len(title) >= 1 && len(title) <= 200
	})

	bv.validate.RegisterValidation("display_name", func(fl validator.FieldLevel) bool {
		name := strings.TrimSpace(fl.Field().String())
		return len(name) >= 1 && len(name) <= 100
	})

	bv.validate.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		return models.UserRole(fl.Field().String()).Valid()
	})

	bv.validate.RegisterValidation("course_status", func(fl validator.FieldLevel) bool {
		switch models.CourseStatus(fl.Field().String()) {
		case models.CourseDraft, models.CoursePublished, models.CourseArchived:
			return true
		}
		return false
	})

	bv.validate.RegisterValidation("lesson_type", func(fl validator.FieldLevel) bool {
		switch models.LessonType(fl.Field().String()) {
		case models.LessonVideo, models.LessonQuiz:
			return true
		}
		return false
	})
}

func validateLessonContent(lessonType models.LessonType, videoURL *string, quiz *QuizRequest) ValidationErrors {
	var errors ValidationErrors

	switch lessonType {
	case models.LessonVideo:
		if videoURL == nil || strings.TrimSpace(*videoURL) == "" {
			errors = append(errors, ValidationError{Field: "video_url", Message: "is required for video lessons", Rule: "lesson_content"})
		}
		if quiz != nil {
			errors = append(errors, ValidationError{Field: "quiz_data", Message: "not allowed for video lessons", Rule: "lesson_content"})
		}
	case models.LessonQuiz:
		if quiz == nil {
			errors = append(errors, ValidationError{Field: "quiz_data", Message: "is required for quiz lessons", Rule: "lesson_content"})
		} else {
			errors = append(errors, validateQuiz(quiz)...)
		}
		if videoURL != nil {
			errors = append(errors, ValidationError{Field: "video_url", Message: "not allowed for quiz lessons", Rule: "lesson_content"})
		}
	}

	return errors
}

// validateQuiz checks that every correct index points at an option and question ids are unique
func validateQuiz(quiz *QuizRequest) ValidationErrors {
	var errors ValidationErrors
	seen := make(map[string]bool, len(quiz.Questions))

	for i, q := range quiz.Questions {
		if q.CorrectOptionIndex < 0 || q.CorrectOptionIndex >= len(q.Options) {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("quiz_data.questions[%d].correctOptionIndex", i),
				Message: "must reference one of the options",
				Value:   q.CorrectOptionIndex,
				Rule:    "lesson_content",
			})
		}
		if q.ID == "" {
			continue
		}
		if seen[q.ID] {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("quiz_data.questions[%d].id", i),
				Message: "duplicate question id",
				Value:   q.ID,
				Rule:    "lesson_content",
			})
		}
		seen[q.ID] = true
	}

	return errors
}
