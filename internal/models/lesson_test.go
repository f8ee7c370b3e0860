package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLessonQuizRoundTripAndStrip(t *testing.T) {
	lesson := &Lesson{ID: "l1", Type: LessonQuiz}
	require.NoError(t, lesson.SetQuiz(&QuizData{Questions: []QuizQuestion{
		{ID: "q1", Question: "2+2", Options: []string{"3", "4"}, CorrectOptionIndex: 1},
	}}))

	stripped, err := lesson.StripAnswers()
	require.NoError(t, err)

	quiz, err := stripped.Quiz()
	require.NoError(t, err)
	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, -1, quiz.Questions[0].CorrectOptionIndex)

	original, err := lesson.Quiz()
	require.NoError(t, err)
	assert.Equal(t, 1, original.Questions[0].CorrectOptionIndex)
}

func TestLessonNormalize(t *testing.T) {
	url := "https://video.example/1"
	video := &Lesson{Type: LessonVideo, VideoURL: &url, QuizData: []byte(`{"questions":[]}`)}
	video.Normalize()
	assert.Nil(t, video.QuizData)
	assert.NotNil(t, video.VideoURL)

	quiz := &Lesson{Type: LessonQuiz, VideoURL: &url, QuizData: []byte(`{"questions":[]}`)}
	quiz.Normalize()
	assert.Nil(t, quiz.VideoURL)
	assert.NotNil(t, quiz.QuizData)
}

func TestVideoLessonHasNoQuiz(t *testing.T) {
	quiz, err := (&Lesson{Type: LessonVideo}).Quiz()
	require.NoError(t, err)
	assert.Nil(t, quiz)
}
