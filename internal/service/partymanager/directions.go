package partymanager

import (
	"math/rand"
	"sync"

	"github.com/yourusername/vocab-party-api/internal/domain/entity"
)

// DirectionPolicy назначает направление каждому вопросу при создании игры.
// Направления фиксируются в снимке и не перевыбираются при повторном показе.
type DirectionPolicy interface {
	Assign(questions []entity.LessonQuestion) entity.DirectionArray
}

// RandomDirections выбирает направление случайно для каждого вопроса
type RandomDirections struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomDirections создает политику со своим источником случайности
func NewRandomDirections(seed int64) *RandomDirections {
	return &RandomDirections{rnd: rand.New(rand.NewSource(seed))}
}

// Assign реализует DirectionPolicy
func (p *RandomDirections) Assign(questions []entity.LessonQuestion) entity.DirectionArray {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(entity.DirectionArray, len(questions))
	for i := range questions {
		if p.rnd.Intn(2) == 0 {
			out[i] = entity.DirectionForward
		} else {
			out[i] = entity.DirectionReverse
		}
	}
	return out
}

// FixedDirection назначает всем вопросам одно направление
type FixedDirection entity.Direction

// Assign реализует DirectionPolicy
func (d FixedDirection) Assign(questions []entity.LessonQuestion) entity.DirectionArray {
	out := make(entity.DirectionArray, len(questions))
	for i := range out {
		out[i] = entity.Direction(d)
	}
	return out
}

// SelectQuestions отбирает снимок вопросов: порядок урока, только пригодные записи,
// не более maxQuestions (0 - без ограничения)
func SelectQuestions(questions []entity.LessonQuestion, maxQuestions int) []entity.LessonQuestion {
	out := make([]entity.LessonQuestion, 0, len(questions))
	for _, q := range questions {
		if !q.IsEligible() {
			continue
		}
		out = append(out, q)
		if maxQuestions > 0 && len(out) == maxQuestions {
			break
		}
	}
	return out
}
