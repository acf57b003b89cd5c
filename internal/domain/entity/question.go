package entity

import (
	"strings"
	"time"
)

// PartOfSpeechNoun - значение part_of_speech для существительных
const PartOfSpeechNoun = "noun"

// LessonQuestion представляет словарную запись урока, используемую как вопрос игры.
// Таблица принадлежит CRUD-части приложения, движок игры только читает её.
type LessonQuestion struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	LessonID       uint        `gorm:"not null;index" json:"lesson_id"`
	Position       int         `gorm:"not null;default:0" json:"position"`
	SourceText     string      `gorm:"size:255;not null" json:"source_text"`
	TargetText     string      `gorm:"size:255;not null" json:"target_text"`
	PartOfSpeech   string      `gorm:"size:32;not null;default:''" json:"part_of_speech,omitempty"`
	Genders        StringArray `gorm:"type:jsonb;not null" json:"genders,omitempty"`
	SourceSynonyms StringArray `gorm:"type:jsonb;not null" json:"source_synonyms,omitempty"`
	TargetSynonyms StringArray `gorm:"type:jsonb;not null" json:"target_synonyms,omitempty"`
	PointValue     int         `gorm:"not null;default:1" json:"point_value"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (LessonQuestion) TableName() string {
	return "lesson_entries"
}

// IsNoun проверяет, является ли запись существительным
func (q *LessonQuestion) IsNoun() bool {
	return strings.EqualFold(strings.TrimSpace(q.PartOfSpeech), PartOfSpeechNoun)
}

// HasGenders возвращает true, если для записи объявлен хотя бы один род
func (q *LessonQuestion) HasGenders() bool {
	for _, g := range q.Genders {
		if strings.TrimSpace(g) != "" {
			return true
		}
	}
	return false
}

// IsEligible проверяет, можно ли использовать запись в игре в обоих направлениях
func (q *LessonQuestion) IsEligible() bool {
	return strings.TrimSpace(q.SourceText) != "" && strings.TrimSpace(q.TargetText) != ""
}

// Prompt возвращает текст, который показывается игроку для данного направления
func (q *LessonQuestion) Prompt(direction Direction) string {
	if direction == DirectionReverse {
		return q.TargetText
	}
	return q.SourceText
}
