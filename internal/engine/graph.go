package engine

import (
	"errors"
	"fmt"

	"github.com/dominikbraun/graph"

	"github.com/shaiso/Wireflow/internal/domain"
)

// BuildGraph строит направленный граф исполняемых узлов flow.
//
// Placeholder new-flow и висячие рёбра пропускаются, повторные рёбра
// между одной парой узлов схлопываются в одну зависимость.
// Ребро, замыкающее цикл, — ошибка ErrCyclicDependency.
func BuildGraph(flow domain.Flow) (graph.Graph[string, string], error) {
	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())

	for _, n := range flow.Nodes {
		if n.IsPlaceholder() {
			continue
		}
		if err := g.AddVertex(n.ID); err != nil {
			if errors.Is(err, graph.ErrVertexAlreadyExists) {
				return nil, NewValidationError(n.ID, "id",
					fmt.Sprintf("duplicate node ID: %s", n.ID), ErrDuplicateNodeID)
			}
			return nil, fmt.Errorf("add vertex %s: %w", n.ID, err)
		}
	}

	for _, e := range flow.Edges {
		if _, err := g.Vertex(e.Source); err != nil {
			continue
		}
		if _, err := g.Vertex(e.Target); err != nil {
			continue
		}

		err := g.AddEdge(e.Source, e.Target)
		switch {
		case err == nil:
		case errors.Is(err, graph.ErrEdgeAlreadyExists):
		case errors.Is(err, graph.ErrEdgeCreatesCycle):
			return nil, NewEdgeError(e.ID, "target",
				fmt.Sprintf("edge %s -> %s closes a cycle", e.Source, e.Target), ErrCyclicDependency)
		default:
			return nil, fmt.Errorf("add edge %s: %w", e.ID, err)
		}
	}

	return g, nil
}

// RunOrder возвращает ID исполняемых узлов в топологическом порядке.
//
// Порядок стабилен: среди независимых узлов первым идёт меньший ID.
func RunOrder(flow domain.Flow) ([]string, error) {
	g, err := BuildGraph(flow)
	if err != nil {
		return nil, err
	}

	order, err := graph.StableTopologicalSort(g, func(a, b string) bool {
		return a < b
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCyclicDependency, err)
	}
	return order, nil
}

// Roots возвращает узлы без входящих рёбер — точки входа flow.
func Roots(flow domain.Flow) ([]string, error) {
	g, err := BuildGraph(flow)
	if err != nil {
		return nil, err
	}

	preds, err := g.PredecessorMap()
	if err != nil {
		return nil, err
	}

	order, err := RunOrder(flow)
	if err != nil {
		return nil, err
	}

	roots := make([]string, 0)
	for _, id := range order {
		if len(preds[id]) == 0 {
			roots = append(roots, id)
		}
	}
	return roots, nil
}
