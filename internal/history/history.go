// Package history реализует линейный журнал undo/redo структурных правок графа.
//
// Журнал хранит только добавление и удаление узлов и рёбер. Изменения
// data узлов (state, output, error) не записываются.
package history

import (
	"errors"
	"fmt"

	"github.com/shaiso/Wireflow/internal/domain"
)

// ErrInvalidItem — запись журнала не содержит сущность для своего действия.
var ErrInvalidItem = errors.New("invalid history item")

// Graph — структурные примитивы graph store, над которыми работает журнал.
type Graph interface {
	AddNode(n domain.Node) error
	RemoveNode(id string) error
	AddEdge(e domain.Edge) error
	RemoveEdge(id string) error
}

// Log — журнал действий с курсором.
//
// cursor указывает на последнее выполненное (не отменённое) действие;
// -1 — перед первым действием.
type Log struct {
	graph  Graph
	items  []domain.HistoryItem
	cursor int
}

// New создаёт пустой журнал над graph store.
func New(g Graph) *Log {
	return &Log{graph: g, cursor: -1}
}

// Record добавляет запись, отбрасывая ветку redo после курсора.
func (l *Log) Record(item domain.HistoryItem) {
	l.items = append(l.items[:l.cursor+1:l.cursor+1], cloneItem(item))
	l.cursor = len(l.items) - 1
}

// AddNode добавляет узел в граф и, если record, записывает действие.
// Placeholder new-flow в журнал не попадает.
func (l *Log) AddNode(n domain.Node, record bool) error {
	if err := l.graph.AddNode(n); err != nil {
		return err
	}
	if record && !n.IsPlaceholder() {
		l.Record(domain.HistoryItem{Action: domain.ActionAddNode, Node: &n})
	}
	return nil
}

// RemoveNode удаляет узел из графа и, если record, записывает действие.
// Для undo сохраняется полный снимок узла.
func (l *Log) RemoveNode(n domain.Node, record bool) error {
	if err := l.graph.RemoveNode(n.ID); err != nil {
		return err
	}
	if record && !n.IsPlaceholder() {
		l.Record(domain.HistoryItem{Action: domain.ActionRemoveNode, Node: &n})
	}
	return nil
}

// AddEdge добавляет ребро в граф и, если record, записывает действие.
func (l *Log) AddEdge(e domain.Edge, record bool) error {
	if err := l.graph.AddEdge(e); err != nil {
		return err
	}
	if record {
		l.Record(domain.HistoryItem{Action: domain.ActionAddEdge, Edge: &e})
	}
	return nil
}

// RemoveEdge удаляет ребро из графа и, если record, записывает действие.
func (l *Log) RemoveEdge(e domain.Edge, record bool) error {
	if err := l.graph.RemoveEdge(e.ID); err != nil {
		return err
	}
	if record {
		l.Record(domain.HistoryItem{Action: domain.ActionRemoveEdge, Edge: &e})
	}
	return nil
}

// Undo применяет обратное действие к записи под курсором и сдвигает курсор назад.
//
// Возвращает false, если отменять нечего. Новая запись не создаётся.
// При ошибке graph store курсор не меняется.
func (l *Log) Undo() (bool, error) {
	if !l.CanUndo() {
		return false, nil
	}

	item := l.items[l.cursor]
	if err := l.apply(item.Action.Inverse(), item); err != nil {
		return false, fmt.Errorf("undo %s: %w", item.Action, err)
	}
	l.cursor--
	return true, nil
}

// Redo сдвигает курсор вперёд и повторяет действие под ним.
//
// Возвращает false, если повторять нечего. Новая запись не создаётся.
// При ошибке graph store курсор не меняется.
func (l *Log) Redo() (bool, error) {
	if !l.CanRedo() {
		return false, nil
	}

	item := l.items[l.cursor+1]
	if err := l.apply(item.Action, item); err != nil {
		return false, fmt.Errorf("redo %s: %w", item.Action, err)
	}
	l.cursor++
	return true, nil
}

// CanUndo возвращает true, если есть выполненное действие.
func (l *Log) CanUndo() bool {
	return l.cursor >= 0
}

// CanRedo возвращает true, если есть отменённое действие.
func (l *Log) CanRedo() bool {
	return l.cursor < len(l.items)-1
}

// Cursor возвращает текущую позицию курсора.
func (l *Log) Cursor() int {
	return l.cursor
}

// Items возвращает копию записей журнала.
func (l *Log) Items() []domain.HistoryItem {
	out := make([]domain.HistoryItem, len(l.items))
	for i, item := range l.items {
		out[i] = cloneItem(item)
	}
	return out
}

// Reset очищает журнал (например, при открытии другого flow).
func (l *Log) Reset() {
	l.items = nil
	l.cursor = -1
}

// apply применяет действие к graph store без записи в журнал.
func (l *Log) apply(action domain.HistoryAction, item domain.HistoryItem) error {
	switch action {
	case domain.ActionAddNode:
		if item.Node == nil {
			return ErrInvalidItem
		}
		return l.graph.AddNode(item.Node.Clone())
	case domain.ActionRemoveNode:
		if item.Node == nil {
			return ErrInvalidItem
		}
		return l.graph.RemoveNode(item.Node.ID)
	case domain.ActionAddEdge:
		if item.Edge == nil {
			return ErrInvalidItem
		}
		return l.graph.AddEdge(*item.Edge)
	case domain.ActionRemoveEdge:
		if item.Edge == nil {
			return ErrInvalidItem
		}
		return l.graph.RemoveEdge(item.Edge.ID)
	default:
		return fmt.Errorf("%w: action %q", ErrInvalidItem, action)
	}
}

// cloneItem копирует запись вместе со снимком сущности.
func cloneItem(item domain.HistoryItem) domain.HistoryItem {
	out := domain.HistoryItem{Action: item.Action}
	if item.Node != nil {
		n := item.Node.Clone()
		out.Node = &n
	}
	if item.Edge != nil {
		e := *item.Edge
		out.Edge = &e
	}
	return out
}
