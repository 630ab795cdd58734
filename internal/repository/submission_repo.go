package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/codesarge-api/internal/models"
)

// SubmissionQuery defines filters and pagination for submissions.
type SubmissionQuery struct {
	ExamID *uint
	Status string
	Offset int
	Limit  int
}

// SubmissionRepository exposes persistence helpers for submissions.
type SubmissionRepository interface {
	Upsert(ctx context.Context, submission *models.Submission) error
	FindByAttemptAndQuestion(ctx context.Context, attemptID, questionID uint) (models.Submission, error)
	List(ctx context.Context, query SubmissionQuery) ([]models.Submission, int64, error)
	ListByExam(ctx context.Context, examID uint) ([]models.Submission, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
}

// NewSubmissionRepository constructs a submission repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

type submissionRepository struct {
	db *gorm.DB
}

// Upsert stores the code for an (attempt, question) pair, overwriting the
// code of an earlier visit instead of adding a row.
func (r *submissionRepository) Upsert(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Submission
		err := tx.Where("attempt_id = ? AND question_id = ?", submission.AttemptID, submission.QuestionID).
			First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Omit("Exam", "Question", "Attempt", "Grade").Create(submission).Error
		case err != nil:
			return err
		}

		if err := tx.Model(&existing).Update("code", submission.Code).Error; err != nil {
			return err
		}
		existing.Code = submission.Code
		*submission = existing
		return nil
	})
}

func (r *submissionRepository) FindByAttemptAndQuestion(ctx context.Context, attemptID, questionID uint) (models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
		First(&submission).Error
	if err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) List(ctx context.Context, query SubmissionQuery) ([]models.Submission, int64, error) {
	db := r.db.WithContext(ctx).Model(&models.Submission{})

	if query.ExamID != nil {
		db = db.Where("exam_id = ?", *query.ExamID)
	}
	if query.Status != "" {
		db = db.Where("status = ?", query.Status)
	}

	var total int64
	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if query.Offset > 0 {
		db = db.Offset(query.Offset)
	}
	if query.Limit > 0 {
		db = db.Limit(query.Limit)
	}

	var submissions []models.Submission
	err := db.Preload("Exam").
		Preload("Question").
		Preload("Grade").
		Order("created_at DESC").
		Order("id DESC").
		Find(&submissions).Error
	if err != nil {
		return nil, 0, err
	}

	return submissions, total, nil
}

func (r *submissionRepository) ListByExam(ctx context.Context, examID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.db.WithContext(ctx).
		Preload("Exam").
		Preload("Question").
		Preload("Grade").
		Where("exam_id = ?", examID).
		Order("attempt_id ASC").
		Order("created_at ASC").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Preload("Exam").
		Preload("Question").
		Preload("Question.TestCases", orderByPosition).
		Preload("Grade").
		First(&submission, id).Error
	if err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}
