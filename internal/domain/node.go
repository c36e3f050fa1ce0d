package domain

import "fmt"

// Идентификаторы стартового placeholder'а.
const (
	// PlaceholderNodeID — ID узла-placeholder'а пустого канваса.
	PlaceholderNodeID = "starter-node"

	// PlaceholderLabel — подпись узла-placeholder'а.
	PlaceholderLabel = "wire"
)

// Position — координаты узла на канвасе.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// NodeData — изменяемая часть узла.
type NodeData struct {
	// Label — подпись узла на канвасе.
	Label string `json:"label,omitempty" yaml:"label,omitempty"`

	// State — конфигурация, специфичная для типа узла
	// (URL и метод для HTTP, условия для conditional и т.д.).
	State map[string]any `json:"state,omitempty" yaml:"state,omitempty"`

	// Output — результат последнего успешного выполнения.
	Output any `json:"output,omitempty" yaml:"output,omitempty"`

	// Error — описание последней ошибки выполнения. Пустая строка — ошибки нет.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Clone возвращает глубокую копию данных узла.
func (d NodeData) Clone() NodeData {
	return NodeData{
		Label:  d.Label,
		State:  CloneMap(d.State),
		Output: CloneValue(d.Output),
		Error:  d.Error,
	}
}

// Node — узел flow.
//
// ID неизменен после создания. Data перезаписывается executor'ами
// и редактором.
type Node struct {
	ID       string   `json:"id" yaml:"id"`
	Type     NodeKind `json:"type" yaml:"type"`
	Position Position `json:"position" yaml:"position"`
	Data     NodeData `json:"data" yaml:"data"`
}

// Clone возвращает глубокую копию узла.
func (n Node) Clone() Node {
	n.Data = n.Data.Clone()
	return n
}

// IsPlaceholder возвращает true для служебного узла new-flow.
func (n Node) IsPlaceholder() bool {
	return n.Type == KindNewFlow
}

// NewFlowPlaceholder возвращает узел-placeholder пустого канваса.
func NewFlowPlaceholder() Node {
	return Node{
		ID:       PlaceholderNodeID,
		Type:     KindNewFlow,
		Position: Position{X: 0, Y: 0},
		Data:     NodeData{Label: PlaceholderLabel},
	}
}

// EdgeData — данные ребра.
type EdgeData struct {
	// Activate — подсветка ребра во время выполнения.
	Activate bool `json:"activate" yaml:"activate"`
}

// Edge — направленная связь source → target.
//
// Между одной парой узлов допускается несколько рёбер.
type Edge struct {
	ID     string   `json:"id" yaml:"id"`
	Source string   `json:"source" yaml:"source"`
	Target string   `json:"target" yaml:"target"`
	Data   EdgeData `json:"data" yaml:"data"`
}

// Validate проверяет ребро перед добавлением в граф.
func (e Edge) Validate() error {
	if e.Source == "" || e.Target == "" {
		return fmt.Errorf("%w: edge %s", ErrEmptyEndpoint, e.ID)
	}
	if e.Source == e.Target {
		return fmt.Errorf("%w: edge %s on node %s", ErrSelfLoop, e.ID, e.Source)
	}
	return nil
}

// CloneNodes возвращает глубокую копию списка узлов.
func CloneNodes(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, len(nodes))
	for i := range nodes {
		out[i] = nodes[i].Clone()
	}
	return out
}

// CloneEdges возвращает копию списка рёбер.
func CloneEdges(edges []Edge) []Edge {
	if edges == nil {
		return nil
	}
	out := make([]Edge, len(edges))
	copy(out, edges)
	return out
}

// WithoutPlaceholder удаляет placeholder из списка, если в нём есть
// хотя бы один настоящий узел.
func WithoutPlaceholder(nodes []Node) []Node {
	hasReal := false
	for _, n := range nodes {
		if !n.IsPlaceholder() {
			hasReal = true
			break
		}
	}
	if !hasReal {
		return nodes
	}

	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if !n.IsPlaceholder() {
			out = append(out, n)
		}
	}
	return out
}
