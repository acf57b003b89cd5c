package entity

import (
	"time"
)

// PointsCredit - одно начисление очков за оценённый ответ в игре.
// Уникальный индекс гарантирует, что один ответ начисляется не более одного раза.
type PointsCredit struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PartyID    string    `gorm:"size:36;not null;uniqueIndex:idx_points_credit_answer" json:"party_id"`
	UserID     uint      `gorm:"not null;index;uniqueIndex:idx_points_credit_answer" json:"user_id"`
	QuestionID uint      `gorm:"not null;uniqueIndex:idx_points_credit_answer" json:"question_id"`
	Points     int       `gorm:"not null" json:"points"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (PointsCredit) TableName() string {
	return "points_ledger"
}

// UserPointBalance - накопленный между играми баланс очков пользователя
type UserPointBalance struct {
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	Points    int       `gorm:"not null;default:0" json:"points"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (UserPointBalance) TableName() string {
	return "user_point_balances"
}
