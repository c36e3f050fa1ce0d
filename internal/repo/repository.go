// Package repo — долговременное хранилище проектов и flows.
//
// Две реализации FlowRepository: PostgresFlowRepo (pgx, JSONB) и
// SQLiteFlowRepo (database/sql + modernc.org/sqlite). Граф flow
// (nodes, edges, viewport) хранится как JSON-документ в колонках flow.
// Удаления идемпотентны: удаление отсутствующей записи не ошибка.
package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shaiso/Wireflow/internal/domain"
)

// FlowRepository — операции над проектами и flows.
type FlowRepository interface {
	SaveFlow(ctx context.Context, flow domain.Flow) error
	GetFlow(ctx context.Context, flowID string) (domain.Flow, error)
	ListFlows(ctx context.Context, projectID string) ([]domain.Flow, error)
	DeleteFlow(ctx context.Context, projectID, flowID string) error
	SaveProject(ctx context.Context, project domain.Project) error
	DeleteProject(ctx context.Context, projectID string) error
	ListProjects(ctx context.Context) ([]domain.Project, error)
}

// graphColumns — сериализованный граф flow.
type graphColumns struct {
	nodes    []byte
	edges    []byte
	viewport []byte
}

func encodeGraph(flow domain.Flow) (graphColumns, error) {
	nodes := flow.Nodes
	if nodes == nil {
		nodes = []domain.Node{}
	}
	edges := flow.Edges
	if edges == nil {
		edges = []domain.Edge{}
	}

	var cols graphColumns
	var err error
	if cols.nodes, err = json.Marshal(nodes); err != nil {
		return cols, fmt.Errorf("marshal nodes: %w", err)
	}
	if cols.edges, err = json.Marshal(edges); err != nil {
		return cols, fmt.Errorf("marshal edges: %w", err)
	}
	if cols.viewport, err = json.Marshal(flow.Viewport); err != nil {
		return cols, fmt.Errorf("marshal viewport: %w", err)
	}
	return cols, nil
}

func decodeGraph(cols graphColumns, flow *domain.Flow) error {
	if err := json.Unmarshal(cols.nodes, &flow.Nodes); err != nil {
		return fmt.Errorf("unmarshal nodes: %w", err)
	}
	if err := json.Unmarshal(cols.edges, &flow.Edges); err != nil {
		return fmt.Errorf("unmarshal edges: %w", err)
	}
	if len(cols.viewport) > 0 {
		if err := json.Unmarshal(cols.viewport, &flow.Viewport); err != nil {
			return fmt.Errorf("unmarshal viewport: %w", err)
		}
	}
	if flow.Nodes == nil {
		flow.Nodes = []domain.Node{}
	}
	if flow.Edges == nil {
		flow.Edges = []domain.Edge{}
	}
	return nil
}

// attachFlows раскладывает flows по проектам, сохраняя порядок проектов.
func attachFlows(projects []domain.Project, flows []domain.Flow) []domain.Project {
	index := make(map[string]int, len(projects))
	for i := range projects {
		projects[i].Flows = []domain.Flow{}
		index[projects[i].ID] = i
	}
	for _, f := range flows {
		if i, ok := index[f.ProjectID]; ok {
			projects[i].Flows = append(projects[i].Flows, f)
		}
	}
	return projects
}
