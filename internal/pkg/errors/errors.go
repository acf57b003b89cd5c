package errors

import (
	"errors"
	"fmt"
)

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок авторизации (неверный токен, нет прав).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда у пользователя недостаточно прав для действия.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния (например, попытка запустить уже идущую игру).
	ErrConflict = errors.New("resource state conflict")
)

// Ошибки живой игры (party). Каждая оборачивает общую категорию,
// поэтому errors.Is(err, ErrConflict) и т.п. работает для маппинга в HTTP.
var (
	// ErrSessionNotFound - игра с указанным ID не существует.
	ErrSessionNotFound = fmt.Errorf("party session not found: %w", ErrNotFound)

	// ErrSessionEnded - игра уже завершена, присоединиться нельзя.
	ErrSessionEnded = fmt.Errorf("party session has ended: %w", ErrConflict)

	// ErrInvalidTransition - нарушение машины состояний (start не из lobby, advance вне running и т.д.).
	ErrInvalidTransition = fmt.Errorf("invalid party state transition: %w", ErrConflict)

	// ErrInvalidConfiguration - неверный таймер или пустой набор вопросов.
	ErrInvalidConfiguration = fmt.Errorf("invalid party configuration: %w", ErrValidation)

	// ErrDuplicateSubmission - повторный ответ того же пользователя на тот же вопрос.
	ErrDuplicateSubmission = fmt.Errorf("answer already submitted for this question: %w", ErrConflict)

	// ErrStaleQuestion - ответ на вопрос, который уже не является текущим.
	ErrStaleQuestion = fmt.Errorf("question is no longer current: %w", ErrConflict)
)
