package repository

import (
	"github.com/yourusername/vocab-party-api/internal/domain/entity"
)

// QuestionSource определяет методы чтения словарных записей урока.
// Записи принадлежат внешнему CRUD уроков; движок игры их не изменяет.
type QuestionSource interface {
	// ListQuestions возвращает записи урока в порядке урока
	ListQuestions(lessonID uint) ([]entity.LessonQuestion, error)
	// GetByIDs возвращает записи с указанными ID (порядок не гарантируется)
	GetByIDs(ids []uint) ([]entity.LessonQuestion, error)
}
