package worker

import "errors"

// Ошибки обработки запуска триггера.
var (
	// ErrFlowNotFound — flow из сообщения не найден в хранилище.
	ErrFlowNotFound = errors.New("flow not found")

	// ErrNodeNotFound — узел из сообщения отсутствует во flow.
	ErrNodeNotFound = errors.New("node not found")

	// ErrTriggerMismatch — тип узла из сообщения не совпадает с очередью.
	ErrTriggerMismatch = errors.New("node type does not match trigger")
)
