package postgres

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/vocab-party-api/internal/domain/entity"
	"github.com/yourusername/vocab-party-api/internal/domain/repository"
)

// PointsLedgerRepo реализует repository.PointsLedger.
// Каждое начисление пишется в журнал; уникальный индекс по ответу не даёт начислить дважды.
type PointsLedgerRepo struct {
	db *gorm.DB
}

var _ repository.PointsLedger = (*PointsLedgerRepo)(nil)

// NewPointsLedgerRepo создает репозиторий баланса очков
func NewPointsLedgerRepo(db *gorm.DB) *PointsLedgerRepo {
	return &PointsLedgerRepo{db: db}
}

// errAlreadyCredited откатывает транзакцию при повторном начислении
var errAlreadyCredited = errors.New("answer already credited")

// Credit записывает начисление и увеличивает баланс пользователя в одной транзакции.
// Повторное начисление того же ответа молча игнорируется.
func (r *PointsLedgerRepo) Credit(credit *entity.PointsCredit) error {
	if credit.Points <= 0 {
		return nil
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(credit).Error; err != nil {
			if isUniqueViolation(err) {
				return errAlreadyCredited
			}
			return err
		}

		balance := entity.UserPointBalance{
			UserID:    credit.UserID,
			Points:    credit.Points,
			UpdatedAt: time.Now(),
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"points":     gorm.Expr("user_point_balances.points + EXCLUDED.points"),
				"updated_at": gorm.Expr("EXCLUDED.updated_at"),
			}),
		}).Create(&balance).Error
	})

	if errors.Is(err, errAlreadyCredited) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("credit %d points to user #%d failed: %w", credit.Points, credit.UserID, err)
	}
	return nil
}

// GetBalance возвращает накопленный баланс пользователя (0, если начислений не было)
func (r *PointsLedgerRepo) GetBalance(userID uint) (int, error) {
	var balance entity.UserPointBalance
	err := r.db.Where("user_id = ?", userID).First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return balance.Points, nil
}
