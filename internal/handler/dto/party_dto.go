package dto

import (
	"time"

	"github.com/yourusername/vocab-party-api/internal/domain/entity"
	"github.com/yourusername/vocab-party-api/internal/handler/helper"
	"github.com/yourusername/vocab-party-api/internal/service"
	"github.com/yourusername/vocab-party-api/internal/service/partymanager"
)

// CreatePartyRequest - запрос ведущего на создание игры
type CreatePartyRequest struct {
	LessonID uint   `json:"lesson_id" binding:"required"`
	Mode     string `json:"mode"`
	TimerSec int    `json:"timer_sec" binding:"required"`
}

// JoinPartyRequest - запрос игрока на присоединение
type JoinPartyRequest struct {
	DisplayName string `json:"display_name" binding:"omitempty,max=100"`
}

// AdvanceRequest - переход к следующему вопросу.
// Если ExpectedIndex задан, переход выполняется только с этого вопроса.
type AdvanceRequest struct {
	ExpectedIndex *int `json:"expected_index"`
}

// SubmitAnswerRequest - ответ игрока на текущий вопрос
type SubmitAnswerRequest struct {
	QuestionID   uint    `json:"question_id" binding:"required"`
	Direction    string  `json:"direction"`
	Text         string  `json:"text" binding:"max=255"`
	ChosenGender *string `json:"chosen_gender" binding:"omitempty,max=20"`
}

// PartyResponse - сводка игры
type PartyResponse struct {
	ID            string     `json:"id"`
	ClassID       uint       `json:"class_id"`
	LessonID      uint       `json:"lesson_id"`
	Mode          string     `json:"mode"`
	Status        string     `json:"status"`
	TimerSec      int        `json:"timer_sec"`
	CurrentIndex  int        `json:"current_index"`
	QuestionCount int        `json:"question_count"`
	CreatedBy     uint       `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
}

// PlayerResponse - игрок в ответе клиенту
type PlayerResponse struct {
	UserID      uint      `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Score       int       `json:"score"`
	JoinedAt    time.Time `json:"joined_at"`
}

// QuestionResponse - текущий вопрос без правильного ответа
type QuestionResponse struct {
	Index          int                     `json:"index"`
	Total          int                     `json:"total"`
	QuestionID     uint                    `json:"question_id"`
	Direction      string                  `json:"direction"`
	Prompt         string                  `json:"prompt"`
	TimerSec       int                     `json:"timer_sec"`
	GenderRequired bool                    `json:"gender_required"`
	Options        []helper.QuestionOption `json:"options,omitempty"`
}

// PartyStateResponse - полное состояние игры для опроса клиентом
type PartyStateResponse struct {
	Party             PartyResponse     `json:"party"`
	Players           []PlayerResponse  `json:"players"`
	CurrentQuestionID *uint             `json:"current_question_id"`
	CurrentDirection  *string           `json:"current_direction"`
	AnsweredCount     int               `json:"answered_count"`
	Question          *QuestionResponse `json:"question,omitempty"`
}

// AnswerResultResponse - результат проверки, виден только отвечавшему
type AnswerResultResponse struct {
	AnswerID           string `json:"answer_id"`
	QuestionID         uint   `json:"question_id"`
	TextCorrect        bool   `json:"text_correct"`
	GenderCorrect      bool   `json:"gender_correct"`
	Correct            bool   `json:"correct"`
	Expected           string `json:"expected"`
	PointsAwarded      int    `json:"points_awarded"`
	TotalScore         int    `json:"total_score"`
	GenderRetryAllowed bool   `json:"gender_retry_allowed"`
}

// AdvanceResponse - результат перехода
type AdvanceResponse struct {
	Advanced bool          `json:"advanced"`
	Ended    bool          `json:"ended"`
	Party    PartyResponse `json:"party"`
}

// LeaderboardEntryResponse - строка таблицы лидеров
type LeaderboardEntryResponse struct {
	Rank        int    `json:"rank"`
	UserID      uint   `json:"user_id"`
	DisplayName string `json:"display_name"`
	Score       int    `json:"score"`
}

// LeaderboardResponse - таблица лидеров игры
type LeaderboardResponse struct {
	PartyID string                     `json:"party_id"`
	Entries []LeaderboardEntryResponse `json:"entries"`
}

// NewPartyResponse создает DTO игры
func NewPartyResponse(p *entity.Party) PartyResponse {
	return PartyResponse{
		ID:            p.ID,
		ClassID:       p.ClassID,
		LessonID:      p.LessonID,
		Mode:          string(p.Mode),
		Status:        string(p.Status),
		TimerSec:      p.TimerSec,
		CurrentIndex:  p.CurrentIndex,
		QuestionCount: p.QuestionCount(),
		CreatedBy:     p.CreatedBy,
		CreatedAt:     p.CreatedAt,
		StartedAt:     p.StartedAt,
		EndedAt:       p.EndedAt,
	}
}

// NewPlayerResponse создает DTO игрока
func NewPlayerResponse(p entity.PartyPlayer) PlayerResponse {
	return PlayerResponse{
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		Score:       p.Score,
		JoinedAt:    p.JoinedAt,
	}
}

// NewQuestionResponse создает DTO вопроса; nil для nil
func NewQuestionResponse(q *partymanager.QuestionPrompt) *QuestionResponse {
	if q == nil {
		return nil
	}
	return &QuestionResponse{
		Index:          q.Index,
		Total:          q.Total,
		QuestionID:     q.QuestionID,
		Direction:      string(q.Direction),
		Prompt:         q.Prompt,
		TimerSec:       q.TimerSec,
		GenderRequired: q.GenderRequired,
		Options:        helper.ConvertOptionsToObjects(q.Options),
	}
}

// NewPartyStateResponse создает DTO состояния игры
func NewPartyStateResponse(view *service.PartyView) *PartyStateResponse {
	players := make([]PlayerResponse, 0, len(view.Players))
	for _, p := range view.Players {
		players = append(players, NewPlayerResponse(p))
	}
	resp := &PartyStateResponse{
		Party:             NewPartyResponse(view.Party),
		Players:           players,
		CurrentQuestionID: view.CurrentQuestionID,
		AnsweredCount:     view.AnsweredCount,
		Question:          NewQuestionResponse(view.Question),
	}
	if view.CurrentDirection != nil {
		dir := string(*view.CurrentDirection)
		resp.CurrentDirection = &dir
	}
	return resp
}

// NewAnswerResultResponse создает DTO результата ответа
func NewAnswerResultResponse(e *service.AnswerEvaluation) *AnswerResultResponse {
	return &AnswerResultResponse{
		AnswerID:           e.Answer.ID,
		QuestionID:         e.Answer.QuestionID,
		TextCorrect:        e.TextCorrect,
		GenderCorrect:      e.GenderCorrect,
		Correct:            e.Correct,
		Expected:           e.Expected,
		PointsAwarded:      e.PointsAwarded,
		TotalScore:         e.TotalScore,
		GenderRetryAllowed: e.GenderRetryAllowed,
	}
}

// NewLeaderboardResponse создает DTO таблицы лидеров
func NewLeaderboardResponse(partyID string, entries []partymanager.LeaderboardEntry) *LeaderboardResponse {
	resp := &LeaderboardResponse{PartyID: partyID, Entries: make([]LeaderboardEntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, LeaderboardEntryResponse{
			Rank:        e.Rank,
			UserID:      e.UserID,
			DisplayName: e.DisplayName,
			Score:       e.Score,
		})
	}
	return resp
}
