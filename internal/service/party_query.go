package service

import (
	"github.com/yourusername/vocab-party-api/internal/domain/entity"
	"github.com/yourusername/vocab-party-api/internal/domain/repository"
	"github.com/yourusername/vocab-party-api/internal/service/partymanager"
)

// PromptBuilder строит текущий вопрос игры для показа игроку
type PromptBuilder interface {
	Prompt(party *entity.Party) (*partymanager.QuestionPrompt, bool)
}

// PartyView - согласованный снимок игры для опроса клиентом
type PartyView struct {
	Party             *entity.Party
	State             entity.PartyState
	Players           []entity.PartyPlayer // отсортированы как таблица лидеров
	CurrentQuestionID *uint
	CurrentDirection  *entity.Direction
	AnsweredCount     int
	Question          *partymanager.QuestionPrompt
}

// PartyQueryService отдаёт состояние игр только на чтение
type PartyQueryService struct {
	store   repository.PartyStore
	prompts PromptBuilder
}

// NewPartyQueryService создает сервис чтения состояния игр. prompts может быть nil.
func NewPartyQueryService(store repository.PartyStore, prompts PromptBuilder) *PartyQueryService {
	return &PartyQueryService{store: store, prompts: prompts}
}

// GetState возвращает состояние игры по ID
func (s *PartyQueryService) GetState(partyID string) (*PartyView, error) {
	snap, err := s.store.Get(partyID)
	if err != nil {
		return nil, err
	}
	return s.buildView(snap), nil
}

// GetStateForClass возвращает состояние активной игры класса
func (s *PartyQueryService) GetStateForClass(classID uint) (*PartyView, error) {
	snap, err := s.store.FindActiveByClass(classID)
	if err != nil {
		return nil, err
	}
	return s.buildView(snap), nil
}

func (s *PartyQueryService) buildView(snap *entity.PartySnapshot) *PartyView {
	view := &PartyView{
		Party:   snap.Party,
		State:   snap.Party.State(),
		Players: partymanager.SortPlayers(snap.Players),
	}
	if qID, dir, ok := snap.Party.CurrentQuestion(); ok {
		view.CurrentQuestionID = &qID
		view.CurrentDirection = &dir
		view.AnsweredCount = snap.AnswerCount(qID)
		if s.prompts != nil {
			if prompt, ok := s.prompts.Prompt(snap.Party); ok {
				view.Question = prompt
			}
		}
	}
	return view
}
