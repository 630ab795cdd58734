package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/codesarge-api/internal/models"
)

// AttemptRepository persists exam attempts.
type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.ExamAttempt) error
	GetByID(ctx context.Context, id uint) (models.ExamAttempt, error)
	Update(ctx context.Context, attempt *models.ExamAttempt) error
}

// NewAttemptRepository constructs an attempt repository.
func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

type attemptRepository struct {
	db *gorm.DB
}

func (r *attemptRepository) Create(ctx context.Context, attempt *models.ExamAttempt) error {
	return r.db.WithContext(ctx).Omit("Exam").Create(attempt).Error
}

func (r *attemptRepository) GetByID(ctx context.Context, id uint) (models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	if err := r.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return models.ExamAttempt{}, err
	}
	return attempt, nil
}

func (r *attemptRepository) Update(ctx context.Context, attempt *models.ExamAttempt) error {
	return r.db.WithContext(ctx).Omit("Exam").Save(attempt).Error
}
