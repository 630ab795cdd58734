package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/noah-isme/codesarge-api/internal/models"
)

// ResultsExportContentType is the MIME type of the results spreadsheet.
const ResultsExportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var resultsExportHeaders = []string{"submission_id", "attempt_id", "question", "language", "status", "score", "feedback", "submitted_at"}

// ResultsExport is a rendered results spreadsheet.
type ResultsExport struct {
	FileName string
	Content  []byte
}

func (s *resultsService) Export(ctx context.Context, examID uint) (ResultsExport, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ResultsExport{}, ErrExamNotFound
		}
		return ResultsExport{}, err
	}

	submissions, err := s.submissions.ListByExam(ctx, examID)
	if err != nil {
		return ResultsExport{}, err
	}

	content, err := renderResultsWorkbook(submissions)
	if err != nil {
		s.logger.Error().Err(err).Uint("exam_id", examID).Msg("failed to render results export")
		return ResultsExport{}, err
	}

	return ResultsExport{
		FileName: fmt.Sprintf("%s-results.xlsx", exam.Slug),
		Content:  content,
	}, nil
}

func renderResultsWorkbook(submissions []models.Submission) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	for i, h := range resultsExportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, submission := range submissions {
		row := i + 2
		var score interface{} = ""
		feedback := ""
		if submission.IsGraded() {
			score = submission.Grade.Score
			feedback = submission.Grade.Feedback
		}

		values := []interface{}{
			submission.ID,
			submission.AttemptID,
			submission.Question.Title,
			submission.Question.Language,
			submission.Status,
			score,
			feedback,
			submission.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "H", 22)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}
