package postgres

import (
	"gorm.io/gorm"

	"github.com/yourusername/vocab-party-api/internal/domain/entity"
	"github.com/yourusername/vocab-party-api/internal/domain/repository"
)

// LessonQuestionRepo реализует repository.QuestionSource поверх таблицы записей уроков.
// Таблица принадлежит CRUD уроков, здесь только чтение.
type LessonQuestionRepo struct {
	db *gorm.DB
}

var _ repository.QuestionSource = (*LessonQuestionRepo)(nil)

// NewLessonQuestionRepo создает репозиторий записей уроков
func NewLessonQuestionRepo(db *gorm.DB) *LessonQuestionRepo {
	return &LessonQuestionRepo{db: db}
}

// ListQuestions возвращает записи урока в порядке урока
func (r *LessonQuestionRepo) ListQuestions(lessonID uint) ([]entity.LessonQuestion, error) {
	var questions []entity.LessonQuestion
	err := r.db.Where("lesson_id = ?", lessonID).
		Order("position ASC").
		Order("id ASC").
		Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// GetByIDs возвращает записи с указанными ID
func (r *LessonQuestionRepo) GetByIDs(ids []uint) ([]entity.LessonQuestion, error) {
	if len(ids) == 0 {
		return []entity.LessonQuestion{}, nil
	}
	var questions []entity.LessonQuestion
	if err := r.db.Where("id IN ?", ids).Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}
