package repository

import (
	"github.com/yourusername/vocab-party-api/internal/domain/entity"
)

// PartyMutation изменяет рабочую копию агрегата игры.
// Если функция возвращает ошибку, изменения отбрасываются целиком.
type PartyMutation func(snapshot *entity.PartySnapshot) error

// PartyStore владеет авторитетным состоянием живых игр.
// Все изменяющие операции над одной игрой сериализуются; разные игры не блокируют друг друга.
type PartyStore interface {
	// Create сохраняет новую игру. ID должен быть уникальным.
	Create(party *entity.Party) error
	// Get возвращает согласованный снимок игры (глубокую копию)
	Get(partyID string) (*entity.PartySnapshot, error)
	// Update атомарно применяет мутацию и возвращает снимок после неё
	Update(partyID string, mutate PartyMutation) (*entity.PartySnapshot, error)
	// FindActiveByClass возвращает последнюю по created_at незавершённую игру класса
	FindActiveByClass(classID uint) (*entity.PartySnapshot, error)
	// Delete удаляет игру вместе с игроками и ответами
	Delete(partyID string) error
}

// PartyArchive сохраняет итоговый снимок завершённой игры во внешнее хранилище
type PartyArchive interface {
	Save(snapshot *entity.PartySnapshot) error
}
