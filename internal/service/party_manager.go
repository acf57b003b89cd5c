package service

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/vocab-party-api/internal/domain/entity"
	"github.com/yourusername/vocab-party-api/internal/domain/repository"
	apperrors "github.com/yourusername/vocab-party-api/internal/pkg/errors"
	"github.com/yourusername/vocab-party-api/internal/service/matcher"
	"github.com/yourusername/vocab-party-api/internal/service/partymanager"
	"github.com/yourusername/vocab-party-api/internal/websocket"
)

// EventPublisher доставляет события игры подписчикам топика
type EventPublisher interface {
	Publish(topic string, event websocket.Event)
}

// PartyManagerDeps содержит зависимости PartyManager.
// Ledger, Cache и Archive необязательны.
type PartyManagerDeps struct {
	Store      repository.PartyStore
	Questions  repository.QuestionSource
	Ledger     repository.PointsLedger
	Cache      repository.CacheRepository
	Archive    repository.PartyArchive
	Publisher  EventPublisher
	Directions partymanager.DirectionPolicy
	Config     *partymanager.Config
}

// CreatePartyInput - параметры новой игры
type CreatePartyInput struct {
	ClassID  uint
	LessonID uint
	Mode     entity.PartyMode
	TimerSec int
	HostID   uint
}

// SubmitAnswerInput - ответ игрока на текущий вопрос
type SubmitAnswerInput struct {
	PartyID      string
	UserID       uint
	QuestionID   uint
	Direction    entity.Direction // пустое значение - направление игры
	Text         string
	ChosenGender *string
}

// AnswerEvaluation - полный результат проверки, только для отвечавшего игрока
type AnswerEvaluation struct {
	Answer        entity.PartyAnswer
	TextCorrect   bool
	GenderCorrect bool
	Correct       bool
	Expected      string
	PointsAwarded int
	TotalScore    int
	// GenderRetryAllowed: текст верен, род нет. Повтор выполняет клиент до отправки,
	// сервер второй ответ на тот же вопрос не принимает.
	GenderRetryAllowed bool
}

// PartyManager управляет жизненным циклом живых игр
type PartyManager struct {
	store      repository.PartyStore
	questions  repository.QuestionSource
	ledger     repository.PointsLedger
	cache      repository.CacheRepository
	archive    repository.PartyArchive
	publisher  EventPublisher
	directions partymanager.DirectionPolicy
	config     *partymanager.Config

	content sync.Map // partyID -> map[uint]*entity.LessonQuestion
	notices sync.Map // partyID -> *questionNotice

	observerMu sync.RWMutex
	observer   partymanager.QuestionObserver

	bg sync.WaitGroup

	now   func() time.Time
	newID func() string
}

// questionNotice упорядочивает уведомления о смене вопроса одной игры.
// Уведомления отправляются после снятия блокировки игры, поэтому запоздавшее
// уведомление о более раннем вопросе отбрасывается.
type questionNotice struct {
	mu    sync.Mutex
	index int
	ended bool
}

// NewPartyManager создает менеджер живых игр
func NewPartyManager(deps PartyManagerDeps) *PartyManager {
	cfg := deps.Config
	if cfg == nil {
		cfg = partymanager.DefaultConfig()
	}
	directions := deps.Directions
	if directions == nil {
		directions = partymanager.NewRandomDirections(time.Now().UnixNano())
	}
	return &PartyManager{
		store:      deps.Store,
		questions:  deps.Questions,
		ledger:     deps.Ledger,
		cache:      deps.Cache,
		archive:    deps.Archive,
		publisher:  deps.Publisher,
		directions: directions,
		config:     cfg,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// SetQuestionObserver подключает внешний таймер вопросов
func (m *PartyManager) SetQuestionObserver(o partymanager.QuestionObserver) {
	m.observerMu.Lock()
	defer m.observerMu.Unlock()
	m.observer = o
}

// CreateParty создает игру в статусе lobby со снимком вопросов урока
func (m *PartyManager) CreateParty(in CreatePartyInput) (*entity.PartySnapshot, error) {
	if in.Mode == "" {
		in.Mode = entity.PartyModeFreeText
	}
	if !in.Mode.IsValid() {
		return nil, fmt.Errorf("unknown mode %q: %w", in.Mode, apperrors.ErrInvalidConfiguration)
	}
	if !m.config.TimerInRange(in.TimerSec) {
		return nil, fmt.Errorf("timer_sec must be between %d and %d: %w", m.config.MinTimerSec, m.config.MaxTimerSec, apperrors.ErrInvalidConfiguration)
	}

	lesson, err := m.questions.ListQuestions(in.LessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lesson %d questions: %w", in.LessonID, err)
	}
	selected := partymanager.SelectQuestions(lesson, m.config.MaxQuestions)
	if len(selected) == 0 {
		return nil, fmt.Errorf("lesson %d has no eligible questions: %w", in.LessonID, apperrors.ErrInvalidConfiguration)
	}

	ids := make(entity.UintArray, len(selected))
	content := make(map[uint]*entity.LessonQuestion, len(selected))
	for i := range selected {
		ids[i] = selected[i].ID
		content[selected[i].ID] = &selected[i]
	}

	party := &entity.Party{
		ID:                 m.newID(),
		ClassID:            in.ClassID,
		LessonID:           in.LessonID,
		Mode:               in.Mode,
		TimerSec:           in.TimerSec,
		Status:             entity.PartyStatusLobby,
		QuestionIDs:        ids,
		QuestionDirections: m.directions.Assign(selected),
		CurrentIndex:       -1,
		CreatedBy:          in.HostID,
		CreatedAt:          m.now(),
	}
	if err := m.store.Create(party); err != nil {
		return nil, fmt.Errorf("failed to create party: %w", err)
	}
	m.content.Store(party.ID, content)

	log.Printf("[PartyManager] Игра %s создана: класс #%d, урок #%d, %d вопросов, режим %s",
		party.ID, party.ClassID, party.LessonID, len(ids), party.Mode)

	m.publish(partymanager.ClassTopic(party.ClassID), websocket.PartyCreated, map[string]interface{}{
		"party_id":       party.ID,
		"class_id":       party.ClassID,
		"mode":           party.Mode,
		"question_count": len(ids),
		"status":         party.Status,
	})

	return &entity.PartySnapshot{Party: party.Clone()}, nil
}

// Join добавляет игрока. Повторный вызов возвращает существующего игрока без изменений.
func (m *PartyManager) Join(partyID string, userID uint, displayName string) (*entity.PartyPlayer, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user id is required: %w", apperrors.ErrValidation)
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = fmt.Sprintf("Player %d", userID)
	}

	var player entity.PartyPlayer
	created := false
	snap, err := m.store.Update(partyID, func(s *entity.PartySnapshot) error {
		if s.Party.IsEnded() {
			return apperrors.ErrSessionEnded
		}
		if existing, ok := s.FindPlayer(userID); ok {
			player = *existing
			return nil
		}
		player = entity.PartyPlayer{
			ID:          m.newID(),
			PartyID:     partyID,
			UserID:      userID,
			DisplayName: displayName,
			JoinedAt:    m.now(),
		}
		s.Players = append(s.Players, player)
		created = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		log.Printf("[PartyManager] Игрок #%d (%s) присоединился к игре %s", userID, displayName, partyID)
		m.publish(partymanager.PartyTopic(partyID), websocket.PartyPlayerJoined, map[string]interface{}{
			"party_id":     partyID,
			"user_id":      userID,
			"display_name": player.DisplayName,
			"player_count": len(snap.Players),
		})
	}
	return &player, nil
}

// Start переводит игру из lobby в running и показывает первый вопрос
func (m *PartyManager) Start(partyID string) (*entity.PartySnapshot, error) {
	snap, err := m.store.Update(partyID, func(s *entity.PartySnapshot) error {
		if !s.Party.IsLobby() {
			return fmt.Errorf("cannot start party in status %s: %w", s.Party.Status, apperrors.ErrInvalidTransition)
		}
		startedAt := m.now()
		s.Party.Status = entity.PartyStatusRunning
		s.Party.CurrentIndex = 0
		s.Party.StartedAt = &startedAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[PartyManager] Игра %s запущена, игроков: %d", partyID, len(snap.Players))
	m.announceQuestion(snap.Party, func() {
		m.publish(partymanager.PartyTopic(partyID), websocket.PartyStarted, m.questionEventData(snap))
		m.publish(partymanager.ClassTopic(snap.Party.ClassID), websocket.PartyStarted, map[string]interface{}{
			"party_id": partyID,
			"status":   snap.Party.Status,
		})
	})
	return snap, nil
}

// Advance переходит к следующему вопросу или завершает игру на последнем
func (m *PartyManager) Advance(partyID string) (*partymanager.AdvanceResult, error) {
	return m.advance(partyID, -1)
}

// AdvanceIfCurrent переходит дальше, только если текущий вопрос всё ещё expectedIndex.
// Иначе ничего не меняет и возвращает Advanced=false.
func (m *PartyManager) AdvanceIfCurrent(partyID string, expectedIndex int) (*partymanager.AdvanceResult, error) {
	if expectedIndex < 0 {
		return nil, fmt.Errorf("expected index must be non-negative: %w", apperrors.ErrValidation)
	}
	return m.advance(partyID, expectedIndex)
}

func (m *PartyManager) advance(partyID string, expectedIndex int) (*partymanager.AdvanceResult, error) {
	res := &partymanager.AdvanceResult{}
	snap, err := m.store.Update(partyID, func(s *entity.PartySnapshot) error {
		p := s.Party
		if !p.IsRunning() {
			return fmt.Errorf("cannot advance party in status %s: %w", p.Status, apperrors.ErrInvalidTransition)
		}
		if expectedIndex >= 0 && p.CurrentIndex != expectedIndex {
			return nil
		}
		res.Advanced = true
		if p.CurrentIndex+1 < p.QuestionCount() {
			p.CurrentIndex++
			return nil
		}
		endedAt := m.now()
		p.Status = entity.PartyStatusEnded
		p.EndedAt = &endedAt
		res.Ended = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Snapshot = snap

	switch {
	case !res.Advanced:
		log.Printf("[PartyManager] Игра %s: переход с вопроса %d пропущен, текущий %d", partyID, expectedIndex, snap.Party.CurrentIndex)
	case res.Ended:
		m.onEnded(snap)
	default:
		log.Printf("[PartyManager] Игра %s: вопрос %d/%d", partyID, snap.Party.CurrentIndex+1, snap.Party.QuestionCount())
		m.announceQuestion(snap.Party, func() {
			m.publish(partymanager.PartyTopic(partyID), websocket.PartyQuestion, m.questionEventData(snap))
		})
	}
	return res, nil
}

func (m *PartyManager) onEnded(snap *entity.PartySnapshot) {
	p := snap.Party
	log.Printf("[PartyManager] Игра %s завершена, игроков: %d, ответов: %d", p.ID, len(snap.Players), len(snap.Answers))

	n := m.notice(p.ID)
	n.mu.Lock()
	n.ended = true
	m.publish(partymanager.PartyTopic(p.ID), websocket.PartyEnded, map[string]interface{}{
		"party_id":    p.ID,
		"status":      p.Status,
		"leaderboard": partymanager.BuildLeaderboard(snap.Players),
	})
	m.publish(partymanager.ClassTopic(p.ClassID), websocket.PartyEnded, map[string]interface{}{
		"party_id": p.ID,
		"status":   p.Status,
	})

	m.observerMu.RLock()
	observer := m.observer
	m.observerMu.RUnlock()
	if observer != nil {
		observer.PartyEnded(p.ID)
	}
	n.mu.Unlock()

	if m.archive != nil {
		m.bg.Add(1)
		go func() {
			defer m.bg.Done()
			if err := m.archive.Save(snap); err != nil {
				log.Printf("[PartyManager] Ошибка архивации игры %s: %v", p.ID, err)
				return
			}
			log.Printf("[PartyManager] Игра %s сохранена в архив", p.ID)
		}()
	}

	// Завершённая игра остаётся доступной для чтения итогов, затем удаляется из памяти
	time.AfterFunc(m.config.Retention(), func() { m.evict(p.ID) })
}

// evict удаляет завершённую игру из хранилища вместе с кешем вопросов
func (m *PartyManager) evict(partyID string) {
	if err := m.store.Delete(partyID); err != nil && !errors.Is(err, apperrors.ErrSessionNotFound) {
		log.Printf("[PartyManager] Ошибка удаления игры %s: %v", partyID, err)
	}
	m.content.Delete(partyID)
	m.notices.Delete(partyID)
	log.Printf("[PartyManager] Игра %s выгружена из памяти", partyID)
}

// SubmitAnswer проверяет и сохраняет ответ на текущий вопрос
func (m *PartyManager) SubmitAnswer(in SubmitAnswerInput) (*AnswerEvaluation, error) {
	if in.Direction != "" && !in.Direction.IsValid() {
		return nil, fmt.Errorf("unknown direction %q: %w", in.Direction, apperrors.ErrValidation)
	}

	current, err := m.store.Get(in.PartyID)
	if err != nil {
		return nil, err
	}
	content, err := m.questionContent(current.Party)
	if err != nil {
		return nil, err
	}
	question, ok := content[in.QuestionID]
	if !ok {
		if indexOf(current.Party.QuestionIDs, in.QuestionID) < 0 {
			return nil, fmt.Errorf("question %d is not part of party: %w", in.QuestionID, apperrors.ErrValidation)
		}
		return nil, fmt.Errorf("question %d content unavailable: %w", in.QuestionID, apperrors.ErrNotFound)
	}

	var eval AnswerEvaluation
	snap, err := m.store.Update(in.PartyID, func(s *entity.PartySnapshot) error {
		p := s.Party
		if !p.IsRunning() {
			return fmt.Errorf("cannot answer in status %s: %w", p.Status, apperrors.ErrInvalidTransition)
		}
		currentID, direction, _ := p.CurrentQuestion()
		if in.QuestionID != currentID {
			if idx := indexOf(p.QuestionIDs, in.QuestionID); idx >= 0 && idx < p.CurrentIndex {
				return apperrors.ErrStaleQuestion
			}
			return fmt.Errorf("question %d is not the current question: %w", in.QuestionID, apperrors.ErrValidation)
		}
		if in.Direction != "" && in.Direction != direction {
			return fmt.Errorf("direction %s does not match question direction %s: %w", in.Direction, direction, apperrors.ErrValidation)
		}
		player, joined := s.FindPlayer(in.UserID)
		if !joined {
			return fmt.Errorf("user %d has not joined party: %w", in.UserID, apperrors.ErrForbidden)
		}
		if s.HasAnswer(in.UserID, in.QuestionID) {
			return apperrors.ErrDuplicateSubmission
		}

		result := matcher.Evaluate(direction, in.Text, in.ChosenGender, question)
		answer := entity.PartyAnswer{
			ID:            m.newID(),
			PartyID:       p.ID,
			UserID:        in.UserID,
			QuestionID:    in.QuestionID,
			Direction:     direction,
			SubmittedText: in.Text,
			ChosenGender:  copyString(in.ChosenGender),
			PointsAwarded: result.Points,
			TextCorrect:   result.TextCorrect,
			GenderCorrect: result.GenderCorrect,
			CreatedAt:     m.now(),
		}
		s.Answers = append(s.Answers, answer)
		player.Score += result.Points

		eval = AnswerEvaluation{
			Answer:             answer,
			TextCorrect:        result.TextCorrect,
			GenderCorrect:      result.GenderCorrect,
			Correct:            result.Correct,
			Expected:           result.Expected,
			PointsAwarded:      result.Points,
			TotalScore:         player.Score,
			GenderRetryAllowed: result.TextCorrect && !result.GenderCorrect,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.publish(partymanager.PartyTopic(in.PartyID), websocket.PartyAnswerReceived, map[string]interface{}{
		"party_id":       in.PartyID,
		"question_id":    in.QuestionID,
		"index":          snap.Party.CurrentIndex,
		"answered_count": snap.AnswerCount(in.QuestionID),
		"player_count":   len(snap.Players),
	})

	if eval.PointsAwarded > 0 {
		m.creditPoints(&eval.Answer)
	}
	return &eval, nil
}

// creditPoints начисляет очки ответа на накопительный баланс ровно один раз
func (m *PartyManager) creditPoints(answer *entity.PartyAnswer) {
	if m.ledger == nil {
		return
	}

	key := fmt.Sprintf("party:%s:credited:%d:%d", answer.PartyID, answer.UserID, answer.QuestionID)
	if m.cache != nil {
		acquired, err := m.cache.SetNX(key, answer.ID, m.config.CreditTTL)
		if err != nil {
			log.Printf("[PartyManager] Кеш недоступен для ключа %s, полагаемся на уникальный индекс: %v", key, err)
		} else if !acquired {
			log.Printf("[PartyManager] Ответ %s уже начислен, пропуск", answer.ID)
			return
		}
	}

	err := m.ledger.Credit(&entity.PointsCredit{
		PartyID:    answer.PartyID,
		UserID:     answer.UserID,
		QuestionID: answer.QuestionID,
		Points:     answer.PointsAwarded,
	})
	if err != nil {
		log.Printf("[PartyManager] Ошибка начисления %d очков пользователю #%d: %v", answer.PointsAwarded, answer.UserID, err)
		if m.cache != nil {
			if delErr := m.cache.Delete(key); delErr != nil {
				log.Printf("[PartyManager] Не удалось снять ключ %s: %v", key, delErr)
			}
		}
	}
}

// GetParty возвращает снимок игры
func (m *PartyManager) GetParty(partyID string) (*entity.PartySnapshot, error) {
	return m.store.Get(partyID)
}

// GetActiveForClass возвращает последнюю незавершённую игру класса
func (m *PartyManager) GetActiveForClass(classID uint) (*entity.PartySnapshot, error) {
	return m.store.FindActiveByClass(classID)
}

// Leaderboard возвращает таблицу лидеров игры
func (m *PartyManager) Leaderboard(partyID string) ([]partymanager.LeaderboardEntry, error) {
	snap, err := m.store.Get(partyID)
	if err != nil {
		return nil, err
	}
	return partymanager.BuildLeaderboard(snap.Players), nil
}

// Prompt возвращает текущий вопрос игры в виде для игрока
func (m *PartyManager) Prompt(party *entity.Party) (*partymanager.QuestionPrompt, bool) {
	if !party.IsRunning() {
		return nil, false
	}
	content, err := m.questionContent(party)
	if err != nil {
		log.Printf("[PartyManager] Не удалось загрузить вопросы игры %s: %v", party.ID, err)
		return nil, false
	}
	return partymanager.BuildPrompt(party, party.CurrentIndex, content, m.config.ChoiceOptions)
}

// Wait дожидается фоновых задач (архивация)
func (m *PartyManager) Wait() {
	m.bg.Wait()
}

// questionContent возвращает вопросы снимка игры, загружая их при первом обращении
func (m *PartyManager) questionContent(party *entity.Party) (map[uint]*entity.LessonQuestion, error) {
	if cached, ok := m.content.Load(party.ID); ok {
		return cached.(map[uint]*entity.LessonQuestion), nil
	}

	loaded, err := m.questions.GetByIDs(party.QuestionIDs)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return map[uint]*entity.LessonQuestion{}, nil
		}
		return nil, fmt.Errorf("failed to load party questions: %w", err)
	}
	content := make(map[uint]*entity.LessonQuestion, len(loaded))
	for i := range loaded {
		content[loaded[i].ID] = &loaded[i]
	}
	actual, _ := m.content.LoadOrStore(party.ID, content)
	return actual.(map[uint]*entity.LessonQuestion), nil
}

// questionEventData - данные события смены вопроса; ответа в них нет
func (m *PartyManager) questionEventData(snap *entity.PartySnapshot) map[string]interface{} {
	p := snap.Party
	data := map[string]interface{}{
		"party_id": p.ID,
		"status":   p.Status,
		"index":    p.CurrentIndex,
		"total":    p.QuestionCount(),
	}
	if prompt, ok := m.Prompt(p); ok {
		data["question"] = prompt
	}
	return data
}

func (m *PartyManager) notice(partyID string) *questionNotice {
	v, _ := m.notices.LoadOrStore(partyID, &questionNotice{index: -1})
	return v.(*questionNotice)
}

// announceQuestion рассылает смену вопроса и заводит таймер строго по возрастанию индекса
func (m *PartyManager) announceQuestion(p *entity.Party, publish func()) {
	n := m.notice(p.ID)
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ended || p.CurrentIndex <= n.index {
		log.Printf("[PartyManager] Игра %s: устаревшее уведомление о вопросе %d пропущено", p.ID, p.CurrentIndex)
		return
	}
	n.index = p.CurrentIndex
	publish()
	m.notifyQuestion(p)
}

func (m *PartyManager) notifyQuestion(p *entity.Party) {
	m.observerMu.RLock()
	observer := m.observer
	m.observerMu.RUnlock()
	if observer != nil {
		observer.QuestionStarted(p.ID, p.CurrentIndex, p.TimerSec)
	}
}

func (m *PartyManager) publish(topic, eventType string, data interface{}) {
	if m.publisher == nil {
		return
	}
	m.publisher.Publish(topic, websocket.Event{Type: eventType, Data: data})
}

func indexOf(ids entity.UintArray, id uint) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
