package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/yourusername/vocab-party-api/internal/domain/entity"
	"github.com/yourusername/vocab-party-api/internal/domain/repository"
)

const archiveBatchSize = 200

// PartyArchiveRepo реализует repository.PartyArchive: сохраняет завершённую игру целиком
type PartyArchiveRepo struct {
	db *gorm.DB
}

var _ repository.PartyArchive = (*PartyArchiveRepo)(nil)

// NewPartyArchiveRepo создает репозиторий архива игр
func NewPartyArchiveRepo(db *gorm.DB) *PartyArchiveRepo {
	return &PartyArchiveRepo{db: db}
}

var errAlreadyArchived = errors.New("party already archived")

// Save записывает игру, игроков и ответы в одной транзакции. Повторное сохранение игнорируется.
func (r *PartyArchiveRepo) Save(snapshot *entity.PartySnapshot) error {
	if snapshot == nil || snapshot.Party == nil {
		return errors.New("snapshot is empty")
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(snapshot.Party).Error; err != nil {
			if isUniqueViolation(err) {
				return errAlreadyArchived
			}
			return err
		}
		if len(snapshot.Players) > 0 {
			if err := tx.CreateInBatches(snapshot.Players, archiveBatchSize).Error; err != nil {
				return err
			}
		}
		if len(snapshot.Answers) > 0 {
			if err := tx.CreateInBatches(snapshot.Answers, archiveBatchSize).Error; err != nil {
				return err
			}
		}
		return nil
	})

	if errors.Is(err, errAlreadyArchived) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("archive party %s failed: %w", snapshot.Party.ID, err)
	}
	return nil
}

// isUniqueViolation проверяет Postgres unique violation (23505) для pgconn и lib/pq драйверов
func isUniqueViolation(err error) bool {
	// pgx/v5 driver (pgconn.PgError)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	// lib/pq driver
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
