package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// StringArray - пользовательский тип для работы с JSONB (рода, синонимы)
type StringArray []string

// Scan реализует интерфейс sql.Scanner для StringArray
func (o *StringArray) Scan(value interface{}) error {
	return scanJSONArray(value, o, func() { *o = StringArray{} })
}

// Value реализует интерфейс driver.Valuer для StringArray
func (o StringArray) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil // Пустой JSON массив вместо null
	}
	return json.Marshal([]string(o))
}

// UintArray хранит упорядоченный список ID вопросов в JSONB
type UintArray []uint

// Scan реализует интерфейс sql.Scanner для UintArray
func (o *UintArray) Scan(value interface{}) error {
	return scanJSONArray(value, o, func() { *o = UintArray{} })
}

// Value реализует интерфейс driver.Valuer для UintArray
func (o UintArray) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal([]uint(o))
}

// DirectionArray хранит направления перевода для каждого вопроса игры
type DirectionArray []Direction

// Scan реализует интерфейс sql.Scanner для DirectionArray
func (o *DirectionArray) Scan(value interface{}) error {
	return scanJSONArray(value, o, func() { *o = DirectionArray{} })
}

// Value реализует интерфейс driver.Valuer для DirectionArray
func (o DirectionArray) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal([]Direction(o))
}

// scanJSONArray - общая логика чтения JSONB: NULL и пустые байты дают пустой массив.
func scanJSONArray(value interface{}, dest interface{}, setEmpty func()) error {
	if value == nil {
		setEmpty()
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		// pgx может отдавать jsonb строкой
		bytes = []byte(v)
	default:
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		setEmpty()
		return nil
	}

	return json.Unmarshal(bytes, dest)
}
