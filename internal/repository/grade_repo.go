package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/codesarge-api/internal/models"
)

// GradeRepository persists grades; each submission owns at most one.
type GradeRepository interface {
	GetBySubmission(ctx context.Context, submissionID uint) (models.Grade, error)
	Create(ctx context.Context, grade *models.Grade) error
	Update(ctx context.Context, grade *models.Grade) error
	SaveWithStatus(ctx context.Context, grade *models.Grade, status string) (bool, error)
}

// NewGradeRepository constructs a grade repository.
func NewGradeRepository(db *gorm.DB) GradeRepository {
	return &gradeRepository{db: db}
}

type gradeRepository struct {
	db *gorm.DB
}

func (r *gradeRepository) GetBySubmission(ctx context.Context, submissionID uint) (models.Grade, error) {
	var grade models.Grade
	if err := r.db.WithContext(ctx).Where("submission_id = ?", submissionID).First(&grade).Error; err != nil {
		return models.Grade{}, err
	}
	return grade, nil
}

func (r *gradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	return r.db.WithContext(ctx).Create(grade).Error
}

func (r *gradeRepository) Update(ctx context.Context, grade *models.Grade) error {
	return r.db.WithContext(ctx).Model(grade).Updates(map[string]interface{}{
		"score":    grade.Score,
		"feedback": grade.Feedback,
	}).Error
}

// SaveWithStatus creates or updates the grade of grade.SubmissionID and sets
// the submission status in one transaction. It reports whether a new grade
// row was created. An unknown submission yields gorm.ErrRecordNotFound and
// leaves no grade behind.
func (r *gradeRepository) SaveWithStatus(ctx context.Context, grade *models.Grade, status string) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Grade
		err := tx.Where("submission_id = ?", grade.SubmissionID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(grade).Error; err != nil {
				return fmt.Errorf("create grade: %w", err)
			}
			created = true
		case err != nil:
			return fmt.Errorf("load grade: %w", err)
		default:
			if err := tx.Model(&existing).Updates(map[string]interface{}{
				"score":    grade.Score,
				"feedback": grade.Feedback,
			}).Error; err != nil {
				return fmt.Errorf("update grade: %w", err)
			}
			existing.Score = grade.Score
			existing.Feedback = grade.Feedback
			*grade = existing
		}

		result := tx.Model(&models.Submission{}).Where("id = ?", grade.SubmissionID).Update("status", status)
		if result.Error != nil {
			return fmt.Errorf("update submission status: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		created = false
	}
	return created, err
}
