package entity

import (
	"time"
)

// PartyStatus - статус живой игры
type PartyStatus string

// Константы статусов игры. Переходы только вперёд: lobby → running → ended.
const (
	PartyStatusLobby   PartyStatus = "lobby"
	PartyStatusRunning PartyStatus = "running"
	PartyStatusEnded   PartyStatus = "ended"
)

// PartyMode - режим ответа на вопросы
type PartyMode string

const (
	PartyModeMultipleChoice PartyMode = "multiple_choice"
	PartyModeFreeText       PartyMode = "free_text"
)

// IsValid проверяет, что режим известен
func (m PartyMode) IsValid() bool {
	return m == PartyModeMultipleChoice || m == PartyModeFreeText
}

// Direction - направление перевода для конкретного вопроса
type Direction string

const (
	// DirectionForward: показываем исходное слово, ждём перевод
	DirectionForward Direction = "forward"
	// DirectionReverse: показываем перевод, ждём исходное слово
	DirectionReverse Direction = "reverse"
)

// IsValid проверяет, что направление известно
func (d Direction) IsValid() bool {
	return d == DirectionForward || d == DirectionReverse
}

// Party представляет один запуск живой викторины в классе
type Party struct {
	ID                 string         `gorm:"primaryKey;size:36" json:"id"`
	ClassID            uint           `gorm:"not null;index" json:"class_id"`
	LessonID           uint           `gorm:"not null" json:"lesson_id"`
	Mode               PartyMode      `gorm:"size:20;not null" json:"mode"`
	TimerSec           int            `gorm:"not null" json:"timer_sec"`
	Status             PartyStatus    `gorm:"size:20;not null;index" json:"status"`
	QuestionIDs        UintArray      `gorm:"type:jsonb;not null" json:"question_ids"`
	QuestionDirections DirectionArray `gorm:"type:jsonb;not null" json:"question_directions"`
	CurrentIndex       int            `gorm:"not null;default:-1" json:"current_index"`
	CreatedBy          uint           `gorm:"not null" json:"created_by"`
	CreatedAt          time.Time      `json:"created_at"`
	StartedAt          *time.Time     `json:"started_at,omitempty"`
	EndedAt            *time.Time     `json:"ended_at,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (Party) TableName() string {
	return "parties"
}

// IsLobby проверяет, ожидает ли игра старта
func (p *Party) IsLobby() bool {
	return p.Status == PartyStatusLobby
}

// IsRunning проверяет, идёт ли игра
func (p *Party) IsRunning() bool {
	return p.Status == PartyStatusRunning
}

// IsEnded проверяет, завершена ли игра
func (p *Party) IsEnded() bool {
	return p.Status == PartyStatusEnded
}

// QuestionCount возвращает количество вопросов в снимке игры
func (p *Party) QuestionCount() int {
	return len(p.QuestionIDs)
}

// CurrentQuestion возвращает ID и направление текущего вопроса.
// ok == false, если игра не в статусе running.
func (p *Party) CurrentQuestion() (questionID uint, direction Direction, ok bool) {
	if !p.IsRunning() || p.CurrentIndex < 0 || p.CurrentIndex >= len(p.QuestionIDs) {
		return 0, "", false
	}
	return p.QuestionIDs[p.CurrentIndex], p.QuestionDirections[p.CurrentIndex], true
}

// Clone возвращает глубокую копию игры
func (p *Party) Clone() *Party {
	c := *p
	c.QuestionIDs = append(UintArray(nil), p.QuestionIDs...)
	c.QuestionDirections = append(DirectionArray(nil), p.QuestionDirections...)
	if p.StartedAt != nil {
		t := *p.StartedAt
		c.StartedAt = &t
	}
	if p.EndedAt != nil {
		t := *p.EndedAt
		c.EndedAt = &t
	}
	return &c
}

// State возвращает типизированное представление состояния игры.
// Каждому статусу соответствует своя структура только с допустимыми полями.
func (p *Party) State() PartyState {
	switch p.Status {
	case PartyStatusRunning:
		qID, dir, _ := p.CurrentQuestion()
		return RunningState{
			Index:      p.CurrentIndex,
			Total:      p.QuestionCount(),
			QuestionID: qID,
			Direction:  dir,
			TimerSec:   p.TimerSec,
		}
	case PartyStatusEnded:
		var endedAt time.Time
		if p.EndedAt != nil {
			endedAt = *p.EndedAt
		}
		return EndedState{
			LastIndex: p.CurrentIndex,
			Total:     p.QuestionCount(),
			EndedAt:   endedAt,
		}
	default:
		return LobbyState{Total: p.QuestionCount()}
	}
}

// PartyState - закрытое объединение состояний игры (LobbyState | RunningState | EndedState)
type PartyState interface {
	Status() PartyStatus
	isPartyState()
}

// LobbyState - игра создана, игроки собираются
type LobbyState struct {
	Total int `json:"total"`
}

// RunningState - идёт вопрос Index из Total
type RunningState struct {
	Index      int       `json:"index"`
	Total      int       `json:"total"`
	QuestionID uint      `json:"question_id"`
	Direction  Direction `json:"direction"`
	TimerSec   int       `json:"timer_sec"`
}

// EndedState - игра завершена на последнем вопросе
type EndedState struct {
	LastIndex int       `json:"last_index"`
	Total     int       `json:"total"`
	EndedAt   time.Time `json:"ended_at"`
}

func (LobbyState) Status() PartyStatus   { return PartyStatusLobby }
func (RunningState) Status() PartyStatus { return PartyStatusRunning }
func (EndedState) Status() PartyStatus   { return PartyStatusEnded }

func (LobbyState) isPartyState()   {}
func (RunningState) isPartyState() {}
func (EndedState) isPartyState()   {}
