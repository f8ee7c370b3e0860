package services

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/elearning-service/internal/models"
	"github.com/SAP-F-2025/elearning-service/internal/progress"
	"github.com/SAP-F-2025/elearning-service/internal/repositories"
	"github.com/xuri/excelize/v2"
)

const reportSheet = "Progress"

// ExportReport builds an XLSX sheet with one row per enrolled student and one
// column per lesson. Quiz cells hold the score, video cells "done".
func (s *progressService) ExportReport(ctx context.Context, courseID string, user *models.CurrentUser) ([]byte, error) {
	course, err := s.repo.Course().GetByID(ctx, nil, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if !course.OwnedBy(user.ID) {
		return nil, NewPermissionError(user.ID, courseID, "course", "export", "not the course instructor")
	}

	lessons, err := s.repo.Lesson().ListByCourse(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	enrollments, err := s.repo.Enrollment().ListByCourse(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	rows, err := s.repo.Progress().ReportByCourse(ctx, nil, courseID)
	if err != nil {
		return nil, err
	}

	studentIDs := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		studentIDs = append(studentIDs, e.UserID)
	}
	profiles, err := s.repo.Profile().GetByIDs(ctx, nil, studentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load student profiles: %w", err)
	}
	names := make(map[string]string, len(profiles))
	for _, p := range profiles {
		names[p.ID] = p.FullName
	}

	cells := make(map[string]map[string]repositories.ProgressReportRow)
	for _, r := range rows {
		if cells[r.UserID] == nil {
			cells[r.UserID] = make(map[string]repositories.ProgressReportRow)
		}
		cells[r.UserID][r.LessonID] = r
	}

	return buildReport(lessons, studentIDs, names, cells)
}

func buildReport(lessons []*models.Lesson, studentIDs []string, names map[string]string, cells map[string]map[string]repositories.ProgressReportRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return nil, fmt.Errorf("failed to name report sheet: %w", err)
	}

	header := []interface{}{"Student", "User ID", "Completion %"}
	for _, l := range lessons {
		header = append(header, l.Title)
	}
	if err := f.SetSheetRow(reportSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write report header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create report style: %w", err)
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(reportSheet, "A1", lastHeader, bold); err != nil {
		return nil, fmt.Errorf("failed to style report header: %w", err)
	}

	ids := lessonIDs(lessons)
	for i, userID := range studentIDs {
		states := make(map[string]models.LessonProgress, len(lessons))
		for lessonID, r := range cells[userID] {
			states[lessonID] = models.LessonProgress{LessonID: lessonID, Completed: r.Completed, Score: r.Score}
		}
		_, percentage := progress.CompletionPercentage(ids, states)

		row := []interface{}{names[userID], userID, percentage}
		for _, l := range lessons {
			row = append(row, reportCell(l, states[l.ID]))
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(reportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write report row: %w", err)
		}
	}

	if err := f.SetColWidth(reportSheet, "A", "B", 28); err != nil {
		return nil, fmt.Errorf("failed to size report columns: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return buf.Bytes(), nil
}

func reportCell(lesson *models.Lesson, state models.LessonProgress) interface{} {
	if !state.Completed {
		return ""
	}
	if lesson.Type == models.LessonQuiz {
		return state.Score
	}
	return "done"
}
