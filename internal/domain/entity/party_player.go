package entity

import (
	"time"
)

// PartyPlayer представляет участие пользователя в конкретной игре.
// На пару (party_id, user_id) существует не более одной записи.
type PartyPlayer struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	PartyID     string    `gorm:"size:36;not null;uniqueIndex:idx_party_player_user" json:"party_id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_party_player_user" json:"user_id"`
	DisplayName string    `gorm:"size:100;not null" json:"display_name"`
	Score       int       `gorm:"not null;default:0" json:"score"`
	JoinedAt    time.Time `gorm:"not null" json:"joined_at"`
}

// TableName определяет имя таблицы для GORM
func (PartyPlayer) TableName() string {
	return "party_players"
}

// PartyAnswer представляет один оценённый ответ.
// На тройку (party_id, user_id, question_id) существует не более одной записи.
type PartyAnswer struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	PartyID       string    `gorm:"size:36;not null;uniqueIndex:idx_party_answer_user_question" json:"party_id"`
	UserID        uint      `gorm:"not null;uniqueIndex:idx_party_answer_user_question" json:"user_id"`
	QuestionID    uint      `gorm:"not null;uniqueIndex:idx_party_answer_user_question" json:"question_id"`
	Direction     Direction `gorm:"size:10;not null" json:"direction"`
	SubmittedText string    `gorm:"size:255;not null" json:"submitted_text"`
	ChosenGender  *string   `gorm:"size:20" json:"chosen_gender,omitempty"`
	PointsAwarded int       `gorm:"not null;default:0" json:"points_awarded"`
	TextCorrect   bool      `gorm:"not null" json:"text_correct"`
	GenderCorrect bool      `gorm:"not null" json:"gender_correct"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (PartyAnswer) TableName() string {
	return "party_answers"
}

