package engine

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/Wireflow/internal/domain"
)

// ParseFlow разбирает flow из JSON.
func ParseFlow(data []byte) (domain.Flow, error) {
	var flow domain.Flow
	if err := json.Unmarshal(data, &flow); err != nil {
		return domain.Flow{}, fmt.Errorf("parse flow json: %w", err)
	}
	return flow, nil
}

// ParseFlowYAML разбирает flow из YAML.
//
// YAML переводится в JSON, чтобы state узлов получил те же типы
// (map[string]any, float64), что и при чтении JSON.
func ParseFlowYAML(data []byte) (domain.Flow, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return domain.Flow{}, fmt.Errorf("parse flow yaml: %w", err)
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return domain.Flow{}, fmt.Errorf("parse flow yaml: %w", err)
	}
	return ParseFlow(b)
}

// ValidateFlow выполняет полную проверку flow.
//
// Проверяет:
//   - наличие узлов
//   - непустые и уникальные ID узлов
//   - известные типы узлов
//   - уникальность ID рёбер и отсутствие петель
//   - что рёбра ссылаются на существующие узлы
//
// Циклы здесь не проверяются: это делает RunOrder.
func ValidateFlow(flow domain.Flow) error {
	if len(flow.Nodes) == 0 {
		return ErrEmptyFlow
	}

	nodeIDs := make(map[string]bool, len(flow.Nodes))
	for i := range flow.Nodes {
		if err := ValidateNode(flow.Nodes[i], nodeIDs); err != nil {
			return err
		}
	}

	edgeIDs := make(map[string]bool, len(flow.Edges))
	for _, e := range flow.Edges {
		if err := validateEdge(e, nodeIDs, edgeIDs); err != nil {
			return err
		}
	}

	return nil
}

// ValidateNode валидирует один узел.
// nodeIDs — уже встреченные ID узлов (для проверки уникальности).
func ValidateNode(node domain.Node, nodeIDs map[string]bool) error {
	if node.ID == "" {
		return NewValidationError("", "id", "node has empty ID", ErrEmptyNodeID)
	}

	if nodeIDs[node.ID] {
		return NewValidationError(node.ID, "id",
			fmt.Sprintf("duplicate node ID: %s", node.ID), ErrDuplicateNodeID)
	}
	nodeIDs[node.ID] = true

	if !node.Type.IsValid() {
		return NewValidationError(node.ID, "type",
			fmt.Sprintf("unknown node kind: %q", node.Type), ErrUnknownNodeKind)
	}

	return nil
}

// validateEdge проверяет ребро относительно уже собранных ID узлов.
func validateEdge(e domain.Edge, nodeIDs, edgeIDs map[string]bool) error {
	if e.ID != "" {
		if edgeIDs[e.ID] {
			return NewEdgeError(e.ID, "id",
				fmt.Sprintf("duplicate edge ID: %s", e.ID), ErrDuplicateEdgeID)
		}
		edgeIDs[e.ID] = true
	}

	if e.Source == e.Target {
		return NewEdgeError(e.ID, "target",
			fmt.Sprintf("edge connects %s to itself", e.Source), ErrSelfLoop)
	}

	if !nodeIDs[e.Source] {
		return NewEdgeError(e.ID, "source",
			fmt.Sprintf("source %s not found", e.Source), ErrDanglingEdge)
	}
	if !nodeIDs[e.Target] {
		return NewEdgeError(e.ID, "target",
			fmt.Sprintf("target %s not found", e.Target), ErrDanglingEdge)
	}

	return nil
}
