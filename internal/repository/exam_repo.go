package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/codesarge-api/internal/models"
)

// ExamQuery defines filters and pagination for exams.
type ExamQuery struct {
	Search string
	Offset int
	Limit  int
}

// ExamRepository exposes persistence operations for exams, questions and test cases.
type ExamRepository interface {
	CreateWithQuestions(ctx context.Context, exam *models.Exam, questions []models.Question) error
	List(ctx context.Context, query ExamQuery) ([]models.Exam, int64, error)
	GetByID(ctx context.Context, id uint) (models.Exam, error)
	GetBySlug(ctx context.Context, slug string) (models.Exam, error)
	ListQuestions(ctx context.Context, examID uint) ([]models.Question, error)
}

// NewExamRepository constructs an exam repository.
func NewExamRepository(db *gorm.DB) ExamRepository {
	return &examRepository{db: db}
}

type examRepository struct {
	db *gorm.DB
}

// CreateWithQuestions persists the exam, then each question, then each
// question's test cases, in one transaction. Positions must be set by the caller.
// A slug already in use gets the new exam id appended.
func (r *examRepository) CreateWithQuestions(ctx context.Context, exam *models.Exam, questions []models.Question) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		base := exam.Slug
		var taken int64
		if err := tx.Model(&models.Exam{}).Where("slug = ?", base).Count(&taken).Error; err != nil {
			return fmt.Errorf("check slug: %w", err)
		}
		if taken > 0 {
			exam.Slug = base + "-" + uuid.NewString()
		}

		if err := tx.Omit("Questions").Create(exam).Error; err != nil {
			return fmt.Errorf("create exam: %w", err)
		}

		if taken > 0 {
			exam.Slug = fmt.Sprintf("%s-%d", base, exam.ID)
			if err := tx.Model(exam).Update("slug", exam.Slug).Error; err != nil {
				return fmt.Errorf("assign slug: %w", err)
			}
		}

		created := make([]models.Question, 0, len(questions))
		for _, question := range questions {
			cases := question.TestCases
			question.ExamID = exam.ID
			question.TestCases = nil
			if err := tx.Create(&question).Error; err != nil {
				return fmt.Errorf("create question %d: %w", question.Order, err)
			}

			if len(cases) > 0 {
				for i := range cases {
					cases[i].QuestionID = question.ID
				}
				if err := tx.Create(&cases).Error; err != nil {
					return fmt.Errorf("create test cases for question %d: %w", question.Order, err)
				}
			}

			question.TestCases = cases
			created = append(created, question)
		}

		exam.Questions = created
		return nil
	})
}

// likeEscaper makes search input match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (r *examRepository) List(ctx context.Context, query ExamQuery) ([]models.Exam, int64, error) {
	db := r.db.WithContext(ctx).Model(&models.Exam{})

	if query.Search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(query.Search)) + "%"
		db = db.Where(`LOWER(title) LIKE ? ESCAPE '\'`, pattern)
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

	var exams []models.Exam
	if err := db.Order("created_at DESC").Order("id DESC").Find(&exams).Error; err != nil {
		return nil, 0, err
	}

	return exams, total, nil
}

func (r *examRepository) GetByID(ctx context.Context, id uint) (models.Exam, error) {
	var exam models.Exam
	if err := r.withQuestions(ctx).First(&exam, id).Error; err != nil {
		return models.Exam{}, err
	}
	return exam, nil
}

func (r *examRepository) GetBySlug(ctx context.Context, slug string) (models.Exam, error) {
	var exam models.Exam
	if err := r.withQuestions(ctx).Where("slug = ?", slug).First(&exam).Error; err != nil {
		return models.Exam{}, err
	}
	return exam, nil
}

func (r *examRepository) ListQuestions(ctx context.Context, examID uint) ([]models.Question, error) {
	var questions []models.Question
	err := r.db.WithContext(ctx).
		Preload("TestCases", orderByPosition).
		Where("exam_id = ?", examID).
		Order("position ASC").
		Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *examRepository) withQuestions(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Questions", orderByPosition).
		Preload("Questions.TestCases", orderByPosition)
}

func orderByPosition(tx *gorm.DB) *gorm.DB {
	return tx.Order("position ASC")
}
