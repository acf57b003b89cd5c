package partymanager

import (
	"errors"
	"log"
	"sync"
	"time"

	apperrors "github.com/yourusername/vocab-party-api/internal/pkg/errors"
)

// Advancer - то, чем AutoAdvancer двигает игру вперёд
type Advancer interface {
	AdvanceIfCurrent(partyID string, expectedIndex int) (*AdvanceResult, error)
}

// AutoAdvancer - внешний таймер вопросов.
// По истечении таймера вызывает AdvanceIfCurrent с индексом, для которого таймер заводился,
// поэтому ручной advance хоста в ту же секунду не приводит к двойному переходу.
type AutoAdvancer struct {
	advancer Advancer
	grace    time.Duration
	// unit - длительность одной "секунды" таймера; в тестах уменьшается
	unit time.Duration

	mu     sync.Mutex
	timers map[string]*pendingAdvance
	// armed - наибольший индекс, для которого заводился таймер игры
	armed   map[string]int
	stopped bool
}

type pendingAdvance struct {
	index int
	timer *time.Timer
}

// NewAutoAdvancer создает таймер вопросов
func NewAutoAdvancer(advancer Advancer, grace time.Duration) *AutoAdvancer {
	return &AutoAdvancer{
		advancer: advancer,
		grace:    grace,
		unit:     time.Second,
		timers:   make(map[string]*pendingAdvance),
		armed:    make(map[string]int),
	}
}

var _ QuestionObserver = (*AutoAdvancer)(nil)

// QuestionStarted заводит таймер для вопроса index, заменяя предыдущий таймер игры.
// Уведомление о более раннем вопросе, пришедшее с опозданием, игнорируется.
func (a *AutoAdvancer) QuestionStarted(partyID string, index, timerSec int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return
	}
	if last, ok := a.armed[partyID]; ok && index <= last {
		log.Printf("[AutoAdvancer] Игра %s: устаревшее уведомление о вопросе %d (уже заведён %d)", partyID, index, last)
		return
	}
	a.armed[partyID] = index
	if prev, ok := a.timers[partyID]; ok {
		prev.timer.Stop()
	}

	p := &pendingAdvance{index: index}
	p.timer = time.AfterFunc(time.Duration(timerSec)*a.unit+a.grace, func() {
		a.fire(partyID, p)
	})
	a.timers[partyID] = p
}

// PartyEnded отменяет таймер завершённой игры
func (a *AutoAdvancer) PartyEnded(partyID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if p, ok := a.timers[partyID]; ok {
		p.timer.Stop()
		delete(a.timers, partyID)
	}
	delete(a.armed, partyID)
}

// Pending возвращает число заведённых таймеров
func (a *AutoAdvancer) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.timers)
}

// Stop отменяет все таймеры; новые после этого не заводятся
func (a *AutoAdvancer) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	for id, p := range a.timers {
		p.timer.Stop()
		delete(a.timers, id)
	}
	a.armed = make(map[string]int)
	log.Println("[AutoAdvancer] Остановлен")
}

func (a *AutoAdvancer) fire(partyID string, p *pendingAdvance) {
	a.mu.Lock()
	if current, ok := a.timers[partyID]; !ok || current != p {
		a.mu.Unlock()
		return
	}
	delete(a.timers, partyID)
	a.mu.Unlock()

	index := p.index
	res, err := a.advancer.AdvanceIfCurrent(partyID, index)
	switch {
	case err == nil:
		if res != nil && !res.Advanced {
			log.Printf("[AutoAdvancer] Игра %s: вопрос %d уже сменён, таймер проигнорирован", partyID, index)
		}
	case errors.Is(err, apperrors.ErrSessionNotFound), errors.Is(err, apperrors.ErrInvalidTransition):
		log.Printf("[AutoAdvancer] Игра %s больше не идёт: %v", partyID, err)
	default:
		log.Printf("[AutoAdvancer] Ошибка автоперехода игры %s с вопроса %d: %v", partyID, index, err)
	}
}
