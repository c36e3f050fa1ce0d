// Package canvas — in-memory хранилище узлов и рёбер открытого flow.
//
// Canvas реализует контракт graph store: GetNodes, GetEdges,
// UpdateNodeData и структурные примитивы, которые использует журнал
// undo/redo. Все значения копируются на входе и на выходе.
package canvas

import (
	"errors"
	"fmt"

	"github.com/shaiso/Wireflow/internal/domain"
)

// Ошибки canvas.
var (
	// ErrNodeNotFound — узел не найден.
	ErrNodeNotFound = errors.New("node not found")

	// ErrEdgeNotFound — ребро не найдено.
	ErrEdgeNotFound = errors.New("edge not found")

	// ErrEmptyNodeID — узел без ID.
	ErrEmptyNodeID = errors.New("node has empty ID")
)

// Canvas — граф открытого flow.
//
// Canvas не потокобезопасен: владелец (editor.Session) сериализует доступ.
type Canvas struct {
	nodes []domain.Node
	edges []domain.Edge
}

// New создаёт canvas с копией узлов и рёбер.
func New(nodes []domain.Node, edges []domain.Edge) *Canvas {
	c := &Canvas{}
	c.Load(nodes, edges)
	return c
}

// Load заменяет содержимое canvas.
func (c *Canvas) Load(nodes []domain.Node, edges []domain.Edge) {
	c.nodes = domain.CloneNodes(nodes)
	if c.nodes == nil {
		c.nodes = []domain.Node{}
	}
	c.edges = domain.CloneEdges(edges)
	if c.edges == nil {
		c.edges = []domain.Edge{}
	}
}

// GetNodes возвращает копию узлов.
func (c *Canvas) GetNodes() []domain.Node {
	return domain.CloneNodes(c.nodes)
}

// GetEdges возвращает копию рёбер.
func (c *Canvas) GetEdges() []domain.Edge {
	return domain.CloneEdges(c.edges)
}

// Node возвращает копию узла по ID.
func (c *Canvas) Node(id string) (domain.Node, error) {
	i := c.nodeIndex(id)
	if i < 0 {
		return domain.Node{}, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return c.nodes[i].Clone(), nil
}

// UpdateNodeData полностью заменяет data узла.
func (c *Canvas) UpdateNodeData(id string, data domain.NodeData) error {
	i := c.nodeIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	c.nodes[i].Data = data.Clone()
	return nil
}

// AddNode добавляет узел. Узел с тем же ID заменяется.
//
// Placeholder new-flow существует только на пустом canvas: при
// добавлении настоящего узла он удаляется.
func (c *Canvas) AddNode(n domain.Node) error {
	if n.ID == "" {
		return ErrEmptyNodeID
	}
	if _, err := domain.ParseNodeKind(string(n.Type)); err != nil {
		return err
	}

	n = n.Clone()
	if i := c.nodeIndex(n.ID); i >= 0 {
		c.nodes[i] = n
	} else {
		c.nodes = append(c.nodes, n)
	}

	if !n.IsPlaceholder() {
		c.nodes = domain.WithoutPlaceholder(c.nodes)
	}
	return nil
}

// RemoveNode удаляет узел. Инцидентные рёбра не трогаются:
// их удаляет владелец отдельными шагами, чтобы undo мог их вернуть.
func (c *Canvas) RemoveNode(id string) error {
	i := c.nodeIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	c.nodes = append(c.nodes[:i:i], c.nodes[i+1:]...)
	return nil
}

// AddEdge добавляет ребро. Петли отклоняются, ребро с тем же ID заменяется.
func (c *Canvas) AddEdge(e domain.Edge) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if i := c.edgeIndex(e.ID); i >= 0 {
		c.edges[i] = e
		return nil
	}
	c.edges = append(c.edges, e)
	return nil
}

// RemoveEdge удаляет ребро по ID.
func (c *Canvas) RemoveEdge(id string) error {
	i := c.edgeIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
	}
	c.edges = append(c.edges[:i:i], c.edges[i+1:]...)
	return nil
}

// IncidentEdges возвращает рёбра, касающиеся узла.
func (c *Canvas) IncidentEdges(nodeID string) []domain.Edge {
	var out []domain.Edge
	for _, e := range c.edges {
		if e.Source == nodeID || e.Target == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// Snapshot возвращает копию содержимого canvas.
func (c *Canvas) Snapshot() ([]domain.Node, []domain.Edge) {
	return c.GetNodes(), c.GetEdges()
}

func (c *Canvas) nodeIndex(id string) int {
	for i := range c.nodes {
		if c.nodes[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Canvas) edgeIndex(id string) int {
	for i := range c.edges {
		if c.edges[i].ID == id {
			return i
		}
	}
	return -1
}
