package partymanager

import (
	"fmt"
	"time"

	"github.com/yourusername/vocab-party-api/internal/domain/entity"
)

// Жёсткие границы таймера вопроса; конфигурация может их только сузить
const (
	TimerFloorSec   = 5
	TimerCeilingSec = 120
)

// Constants for default values
const (
	DefaultMinTimerSec      = TimerFloorSec
	DefaultMaxTimerSec      = TimerCeilingSec
	DefaultMaxQuestions     = 20
	DefaultCreditTTL        = 24 * time.Hour
	DefaultChoiceOptions    = 4
	DefaultAutoAdvanceGrace = 2 * time.Second
	DefaultEndedRetention   = 5 * time.Minute
)

// Config содержит настройки живой игры
type Config struct {
	// Допустимый диапазон таймера вопроса, секунды
	MinTimerSec int
	MaxTimerSec int

	// Максимум вопросов в снимке игры (0 - без ограничения)
	MaxQuestions int

	// Сколько вариантов показывать в multiple_choice (включая верный)
	ChoiceOptions int

	// Время жизни ключа защиты от повторного начисления очков
	CreditTTL time.Duration

	// Автоматический переход к следующему вопросу по истечении таймера
	AutoAdvance      bool
	AutoAdvanceGrace time.Duration

	// Сколько завершённая игра хранится в памяти (0 - значение по умолчанию)
	EndedRetention time.Duration
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		MinTimerSec:      DefaultMinTimerSec,
		MaxTimerSec:      DefaultMaxTimerSec,
		MaxQuestions:     DefaultMaxQuestions,
		ChoiceOptions:    DefaultChoiceOptions,
		CreditTTL:        DefaultCreditTTL,
		AutoAdvance:      false,
		AutoAdvanceGrace: DefaultAutoAdvanceGrace,
		EndedRetention:   DefaultEndedRetention,
	}
}

// Retention возвращает время хранения завершённой игры
func (c *Config) Retention() time.Duration {
	if c.EndedRetention <= 0 {
		return DefaultEndedRetention
	}
	return c.EndedRetention
}

// TimerInRange проверяет таймер вопроса.
// Настроенные границы применяются только внутри [TimerFloorSec, TimerCeilingSec].
func (c *Config) TimerInRange(timerSec int) bool {
	lo, hi := c.MinTimerSec, c.MaxTimerSec
	if lo < TimerFloorSec {
		lo = TimerFloorSec
	}
	if hi <= 0 || hi > TimerCeilingSec {
		hi = TimerCeilingSec
	}
	return timerSec >= lo && timerSec <= hi
}

// AdvanceResult - итог вызова advance
type AdvanceResult struct {
	Snapshot *entity.PartySnapshot
	// Advanced == false, если ожидаемый индекс уже не текущий и ничего не изменилось
	Advanced bool
	Ended    bool
}

// QuestionObserver получает уведомления о смене вопроса.
// Используется внешним таймером, сам контроллер времени не знает.
type QuestionObserver interface {
	QuestionStarted(partyID string, index, timerSec int)
	PartyEnded(partyID string)
}

// PartyTopic возвращает топик событий игры
func PartyTopic(partyID string) string {
	return "party:" + partyID
}

// ClassTopic возвращает топик событий класса
func ClassTopic(classID uint) string {
	return fmt.Sprintf("class:%d", classID)
}
