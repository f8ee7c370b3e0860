package progress

import (
	"math"

	"github.com/SAP-F-2025/elearning-service/internal/models"
)

// ScoreQuiz grades answers (question id → selected option index) against quiz.
// A question counts only when its selected option equals the correct index;
// unanswered questions never match. An empty quiz scores 0.
func ScoreQuiz(lessonID string, quiz *models.QuizData, answers map[string]int) models.QuizResult {
	result := models.QuizResult{LessonID: lessonID}
	if quiz == nil {
		return result
	}

	result.TotalQuestions = len(quiz.Questions)
	for _, q := range quiz.Questions {
		selected, ok := answers[q.ID]
		if ok && selected == q.CorrectOptionIndex {
			result.CorrectCount++
		}
	}
	result.Score = Percentage(result.CorrectCount, result.TotalQuestions)
	return result
}

// Percentage is round(100 * part / total), 0 when total is 0
func Percentage(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(total)))
}

// CompletionPercentage summarises lesson states over the course's lessons.
// Records for lessons no longer in the course are ignored.
func CompletionPercentage(lessonIDs []string, states map[string]models.LessonProgress) (completed, percentage int) {
	for _, id := range lessonIDs {
		if states[id].Completed {
			completed++
		}
	}
	return completed, Percentage(completed, len(lessonIDs))
}
