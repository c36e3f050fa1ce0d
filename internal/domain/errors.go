package domain

import (
	"errors"
	"strings"
)

// Ошибки доменной модели.
var (
	// ErrUnknownNodeKind — неизвестный тип узла.
	ErrUnknownNodeKind = errors.New("unknown node kind")

	// ErrSelfLoop — ребро соединяет узел сам с собой.
	ErrSelfLoop = errors.New("edge source equals target")

	// ErrEmptyEndpoint — у ребра не задан source или target.
	ErrEmptyEndpoint = errors.New("edge has empty endpoint")

	// ErrEmptyName — пустое обязательное имя (проект, flow).
	ErrEmptyName = errors.New("name is required")

	// ErrInvalidState — конфигурация узла не прошла валидацию.
	ErrInvalidState = errors.New("invalid node state")
)

// StateError — ошибка декодирования или валидации state узла.
type StateError struct {
	Kind   NodeKind // тип узла
	Fields []string // поля, не прошедшие валидацию
	Err    error    // базовая ошибка
}

// Error реализует интерфейс error.
func (e *StateError) Error() string {
	msg := "invalid " + string(e.Kind) + " state"
	if len(e.Fields) > 0 {
		msg += ": " + strings.Join(e.Fields, ", ")
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap возвращает ErrInvalidState и базовую ошибку.
func (e *StateError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidState}
	}
	return []error{ErrInvalidState, e.Err}
}
