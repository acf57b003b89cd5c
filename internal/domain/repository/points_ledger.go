package repository

import (
	"github.com/yourusername/vocab-party-api/internal/domain/entity"
)

// PointsLedger начисляет очки за ответ на накопительный баланс пользователя.
// Повторное начисление того же ответа (party, user, question) игнорируется.
type PointsLedger interface {
	Credit(credit *entity.PointsCredit) error
	GetBalance(userID uint) (int, error)
}
