package engine

import (
	"errors"
	"fmt"
)

// Ошибки валидации flow.
var (
	// ErrEmptyFlow — flow не содержит узлов.
	ErrEmptyFlow = errors.New("flow has no nodes")

	// ErrEmptyNodeID — узел не имеет ID.
	ErrEmptyNodeID = errors.New("node has empty ID")

	// ErrDuplicateNodeID — несколько узлов с одинаковым ID.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownNodeKind — неизвестный тип узла.
	ErrUnknownNodeKind = errors.New("unknown node kind")

	// ErrDuplicateEdgeID — несколько рёбер с одинаковым ID.
	ErrDuplicateEdgeID = errors.New("duplicate edge ID")

	// ErrSelfLoop — ребро соединяет узел сам с собой.
	ErrSelfLoop = errors.New("edge connects node to itself")

	// ErrDanglingEdge — ребро ссылается на узел, которого нет во flow.
	ErrDanglingEdge = errors.New("edge references unknown node")

	// ErrCyclicDependency — обнаружен цикл в графе.
	ErrCyclicDependency = errors.New("cyclic dependency detected")
)

// Ошибки разбора выражений.
var (
	// ErrMalformedPath — путь в {{ $path }} не удалось разобрать.
	ErrMalformedPath = errors.New("malformed expression path")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	NodeID  string // ID узла, где произошла ошибка
	EdgeID  string // ID ребра, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	switch {
	case e.NodeID != "":
		return "node " + e.NodeID + ": " + e.Message
	case e.EdgeID != "":
		return "edge " + e.EdgeID + ": " + e.Message
	default:
		return e.Message
	}
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт ошибку валидации узла.
func NewValidationError(nodeID, field, message string, err error) *ValidationError {
	return &ValidationError{
		NodeID:  nodeID,
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// NewEdgeError создаёт ошибку валидации ребра.
func NewEdgeError(edgeID, field, message string, err error) *ValidationError {
	return &ValidationError{
		EdgeID:  edgeID,
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// PathError — ошибка разбора пути выражения.
type PathError struct {
	Expr string // исходный путь
	Pos  int    // позиция ошибки (в байтах)
	Msg  string // описание
}

// Error реализует интерфейс error.
func (e *PathError) Error() string {
	return fmt.Sprintf("path %q: %s at %d", e.Expr, e.Msg, e.Pos)
}

// Unwrap возвращает ErrMalformedPath.
func (e *PathError) Unwrap() error {
	return ErrMalformedPath
}
