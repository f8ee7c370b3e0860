package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/elearning-service/internal/models"
)

func fieldsOf(errs ValidationErrors) []string {
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	return fields
}

func TestValidatePasswordRules(t *testing.T) {
	v := New()

	tests := []struct {
		name   string
		req    UpdatePasswordRequest
		fields []string
	}{
		{"valid", UpdatePasswordRequest{NewPassword: "secret1", ConfirmPassword: "secret1"}, nil},
		{"too short", UpdatePasswordRequest{NewPassword: "abc", ConfirmPassword: "abc"}, []string{"new_password"}},
		{"mismatch", UpdatePasswordRequest{NewPassword: "secret1", ConfirmPassword: "secret2"}, []string{"confirm_password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.req)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			assert.Equal(t, tt.fields, fieldsOf(verrs))
		})
	}
}

func TestValidateSignUpTeacherNeedsInvite(t *testing.T) {
	v := New()
	req := SignUpRequest{
		Email:           "ana@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		FullName:        "Ana",
		Role:            models.RoleTeacher,
	}

	err := v.Validate(&req)
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, []string{"invite_code"}, fieldsOf(verrs))

	req.InviteCode = "abc.def"
	assert.NoError(t, v.Validate(&req))

	req.Role = "admin"
	assert.Error(t, v.Validate(&req))
}

func TestValidateLessonCreateContent(t *testing.T) {
	bv := New().GetBusinessValidator()
	url := "https://videos.example.com/intro.mp4"
	quiz := &QuizRequest{Questions: []QuizQuestionRequest{
		{ID: "q1", Question: "2+2?", Options: []string{"3", "4"}, CorrectOptionIndex: 1},
	}}

	tests := []struct {
		name   string
		req    LessonCreateRequest
		fields []string
	}{
		{"video", LessonCreateRequest{Title: "Intro", Type: models.LessonVideo, VideoURL: &url}, nil},
		{"quiz", LessonCreateRequest{Title: "Check", Type: models.LessonQuiz, Quiz: quiz}, nil},
		{"video without url", LessonCreateRequest{Title: "Intro", Type: models.LessonVideo}, []string{"video_url"}},
		{"video with quiz", LessonCreateRequest{Title: "Intro", Type: models.LessonVideo, VideoURL: &url, Quiz: quiz}, []string{"quiz_data"}},
		{"quiz with url", LessonCreateRequest{Title: "Check", Type: models.LessonQuiz, Quiz: quiz, VideoURL: &url}, []string{"video_url"}},
		{"quiz index out of range", LessonCreateRequest{Title: "Check", Type: models.LessonQuiz, Quiz: &QuizRequest{Questions: []QuizQuestionRequest{
			{ID: "q1", Question: "?", Options: []string{"a", "b"}, CorrectOptionIndex: 2},
		}}}, []string{"quiz_data.questions[0].correctOptionIndex"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := bv.ValidateLessonCreate(&tt.req)
			if tt.fields == nil {
				assert.Empty(t, errs)
				return
			}
			assert.Equal(t, tt.fields, fieldsOf(errs))
		})
	}
}

func TestValidateLessonUpdateKeepsType(t *testing.T) {
	bv := New().GetBusinessValidator()
	url := "https://videos.example.com/intro.mp4"
	existing := &models.Lesson{ID: "l1", Type: models.LessonQuiz}

	errs := bv.ValidateLessonUpdate(&LessonUpdateRequest{VideoURL: &url}, existing)
	assert.Equal(t, []string{"video_url"}, fieldsOf(errs))

	video := models.LessonVideo
	errs = bv.ValidateLessonUpdate(&LessonUpdateRequest{Type: &video, VideoURL: &url}, existing)
	assert.Empty(t, errs)
}

func TestValidationErrorsMessage(t *testing.T) {
	errs := ValidationErrors{{Field: "title", Message: "is required"}, {Field: "type", Message: "is required"}}
	assert.Equal(t, "title: is required; type: is required", errs.Error())
}
