package executor

import (
	"errors"

	"github.com/shaiso/Wireflow/internal/domain"
)

// Ошибки выполнения узлов.
var (
	// ErrNotExecutable — узел не имеет семантики выполнения (placeholder).
	ErrNotExecutable = errors.New("node kind is not executable")

	// ErrUnsupportedKind — для типа узла нет executor'а в этом движке.
	ErrUnsupportedKind = errors.New("node kind is not supported")

	// ErrHTTPRequest — HTTP-запрос не удалось выполнить.
	ErrHTTPRequest = errors.New("http request failed")

	// ErrHTTPStatus — сервер ответил не 2xx.
	ErrHTTPStatus = errors.New("http error status")

	// ErrAPIResponse — ответ содержит непустой массив errors.
	ErrAPIResponse = errors.New("api returned errors")

	// ErrCredential — не удалось получить или применить credential.
	ErrCredential = errors.New("credential lookup failed")

	// ErrScript — скрипт бросил исключение или не компилируется.
	ErrScript = errors.New("script failed")

	// ErrInvalidInput — тестовый вход скрипта не является JSON.
	ErrInvalidInput = errors.New("invalid script input")

	// ErrSchedule — расписание не удалось вычислить.
	ErrSchedule = errors.New("invalid schedule")

	// ErrPanic — executor запаниковал.
	ErrPanic = errors.New("executor panicked")
)

// ExecutionError — ошибка выполнения конкретного узла.
//
// Message записывается в data.error узла.
type ExecutionError struct {
	NodeID string
	Kind   domain.NodeKind
	Err    error
}

// Error реализует интерфейс error.
func (e *ExecutionError) Error() string {
	return "node " + e.NodeID + " (" + string(e.Kind) + "): " + e.Err.Error()
}

// Unwrap возвращает базовую ошибку.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Message — текст ошибки для пользователя.
func (e *ExecutionError) Message() string {
	return e.Err.Error()
}
