package memory

import (
	"sort"
	"sync"

	"github.com/yourusername/vocab-party-api/internal/domain/entity"
	"github.com/yourusername/vocab-party-api/internal/domain/repository"
)

// QuestionCatalog - источник словарных записей в памяти.
// Используется без PostgreSQL (локальная разработка) и в тестах.
type QuestionCatalog struct {
	mu      sync.RWMutex
	entries map[uint]entity.LessonQuestion
}

var _ repository.QuestionSource = (*QuestionCatalog)(nil)

// NewQuestionCatalog создает пустой каталог
func NewQuestionCatalog() *QuestionCatalog {
	return &QuestionCatalog{entries: make(map[uint]entity.LessonQuestion)}
}

// Put добавляет или заменяет записи
func (c *QuestionCatalog) Put(questions ...entity.LessonQuestion) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, q := range questions {
		c.entries[q.ID] = q
	}
}

// ListQuestions возвращает записи урока по position, затем по ID
func (c *QuestionCatalog) ListQuestions(lessonID uint) ([]entity.LessonQuestion, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]entity.LessonQuestion, 0)
	for _, q := range c.entries {
		if q.LessonID == lessonID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetByIDs возвращает найденные записи; отсутствующие ID пропускаются
func (c *QuestionCatalog) GetByIDs(ids []uint) ([]entity.LessonQuestion, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]entity.LessonQuestion, 0, len(ids))
	for _, id := range ids {
		if q, ok := c.entries[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}
