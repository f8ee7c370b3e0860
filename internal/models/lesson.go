package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type LessonType string

const (
	LessonVideo LessonType = "video"
	LessonQuiz  LessonType = "quiz"
)

// Lesson is either a video lesson (VideoURL set) or a quiz lesson (QuizData set), never both
type Lesson struct {
	ID         string         `json:"id" gorm:"primaryKey;size:36"`
	CourseID   string         `json:"course_id" gorm:"not null;index:idx_lesson_course_order;size:36"`
	Title      string         `json:"title" gorm:"not null;size:200"`
	Type       LessonType     `json:"type" gorm:"not null;size:10"`
	VideoURL   *string        `json:"video_url,omitempty" gorm:"size:500"`
	QuizData   datatypes.JSON `json:"quiz_data,omitempty" gorm:"type:jsonb"`
	OrderIndex int            `json:"order_index" gorm:"not null;index:idx_lesson_course_order"`
	Duration   *int           `json:"duration,omitempty"` // minutes

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Lesson) TableName() string {
	return "lessons"
}

type QuizQuestion struct {
	ID                 string   `json:"id"`
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
}

// QuizData is the ordered question list of a quiz lesson
type QuizData struct {
	Questions []QuizQuestion `json:"questions"`
}

// Quiz decodes the quiz payload. Video lessons return nil.
func (l *Lesson) Quiz() (*QuizData, error) {
	if l.Type != LessonQuiz || len(l.QuizData) == 0 {
		return nil, nil
	}
	var quiz QuizData
	if err := json.Unmarshal(l.QuizData, &quiz); err != nil {
		return nil, fmt.Errorf("invalid quiz data for lesson %s: %w", l.ID, err)
	}
	return &quiz, nil
}

// SetQuiz stores quiz as the lesson payload
func (l *Lesson) SetQuiz(quiz *QuizData) error {
	if quiz == nil {
		l.QuizData = nil
		return nil
	}
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("failed to encode quiz data: %w", err)
	}
	l.QuizData = datatypes.JSON(data)
	return nil
}

// Normalize clears whichever payload does not belong to the lesson type
func (l *Lesson) Normalize() {
	switch l.Type {
	case LessonVideo:
		l.QuizData = nil
	case LessonQuiz:
		l.VideoURL = nil
	}
}

// StripAnswers returns a copy of the lesson whose quiz omits the correct option indexes.
// Returned to students viewing the lesson.
func (l *Lesson) StripAnswers() (*Lesson, error) {
	out := *l
	quiz, err := l.Quiz()
	if err != nil || quiz == nil {
		return &out, err
	}
	for i := range quiz.Questions {
		quiz.Questions[i].CorrectOptionIndex = -1
	}
	if err := out.SetQuiz(quiz); err != nil {
		return nil, err
	}
	return &out, nil
}
