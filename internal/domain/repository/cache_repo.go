package repository

import (
	"time"
)

// CacheRepository определяет методы для работы с кешем
type CacheRepository interface {
	Get(key string) (string, error)
	Delete(key string) error
	// SetNX устанавливает значение, только если ключа нет. Возвращает true, если ключ установлен.
	SetNX(key string, value interface{}, expiration time.Duration) (bool, error)
}
