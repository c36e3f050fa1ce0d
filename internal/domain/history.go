package domain

// HistoryAction — структурное действие над графом.
type HistoryAction string

const (
	ActionAddNode    HistoryAction = "addNode"
	ActionRemoveNode HistoryAction = "removeNode"
	ActionAddEdge    HistoryAction = "addEdge"
	ActionRemoveEdge HistoryAction = "removeEdge"
)

// Inverse возвращает обратное действие.
func (a HistoryAction) Inverse() HistoryAction {
	switch a {
	case ActionAddNode:
		return ActionRemoveNode
	case ActionRemoveNode:
		return ActionAddNode
	case ActionAddEdge:
		return ActionRemoveEdge
	case ActionRemoveEdge:
		return ActionAddEdge
	default:
		return a
	}
}

// HistoryItem — одна запись журнала undo/redo.
//
// Для действий над узлами заполнено Node, для действий над рёбрами — Edge.
type HistoryItem struct {
	Action HistoryAction `json:"action"`
	Node   *Node         `json:"node,omitempty"`
	Edge   *Edge         `json:"edge,omitempty"`
}
