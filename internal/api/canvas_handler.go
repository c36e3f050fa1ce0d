package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/shaiso/Wireflow/internal/domain"
	"github.com/shaiso/Wireflow/internal/engine"
	"github.com/shaiso/Wireflow/internal/executor"
)

// GetCanvas возвращает открытый flow.
// GET /api/v1/canvas
func (h *Handler) GetCanvas(w http.ResponseWriter, r *http.Request) {
	state, err := h.session.Canvas()
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, state)
}

// SetViewport сохраняет положение канваса.
// PUT /api/v1/canvas/viewport
func (h *Handler) SetViewport(w http.ResponseWriter, r *http.Request) {
	var v domain.Viewport
	if err := h.decode(r, &v, false); err != nil {
		BadRequest(w, err.Error())
		return
	}
	if HandleError(w, h.logger, h.session.SetViewport(v)) {
		return
	}
	NoContent(w)
}

// AddNode добавляет узел.
// POST /api/v1/canvas/nodes
func (h *Handler) AddNode(w http.ResponseWriter, r *http.Request) {
	var req AddNodeRequest
	if err := h.decode(r, &req, false); err != nil {
		BadRequest(w, err.Error())
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	state, err := h.session.AddNode(domain.Node{
		ID:       req.ID,
		Type:     req.Type,
		Position: req.Position,
		Data:     req.Data,
	})
	if HandleError(w, h.logger, err) {
		return
	}
	Created(w, state)
}

// RemoveNode удаляет узел вместе с инцидентными рёбрами.
// DELETE /api/v1/canvas/nodes/{id}
func (h *Handler) RemoveNode(w http.ResponseWriter, r *http.Request) {
	state, err := h.session.RemoveNode(r.PathValue("id"))
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, state)
}

// UpdateNodeState заменяет конфигурацию узла.
// PUT /api/v1/canvas/nodes/{id}/state
func (h *Handler) UpdateNodeState(w http.ResponseWriter, r *http.Request) {
	var req UpdateStateRequest
	if err := h.decode(r, &req, false); err != nil {
		BadRequest(w, err.Error())
		return
	}

	node, err := h.session.UpdateNodeState(r.PathValue("id"), req.State)
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, node)
}

// AddEdge добавляет ребро.
// POST /api/v1/canvas/edges
func (h *Handler) AddEdge(w http.ResponseWriter, r *http.Request) {
	var req AddEdgeRequest
	if err := h.decode(r, &req, false); err != nil {
		BadRequest(w, err.Error())
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	state, err := h.session.AddEdge(domain.Edge{
		ID:     req.ID,
		Source: req.Source,
		Target: req.Target,
		Data:   req.Data,
	})
	if HandleError(w, h.logger, err) {
		return
	}
	Created(w, state)
}

// RemoveEdge удаляет ребро.
// DELETE /api/v1/canvas/edges/{id}
func (h *Handler) RemoveEdge(w http.ResponseWriter, r *http.Request) {
	state, err := h.session.RemoveEdge(r.PathValue("id"))
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, state)
}

// Undo отменяет последнее структурное действие.
// POST /api/v1/canvas/undo
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	state, applied, err := h.session.Undo()
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, HistoryResponse{State: state, Applied: applied})
}

// Redo повторяет отменённое действие.
// POST /api/v1/canvas/redo
func (h *Handler) Redo(w http.ResponseWriter, r *http.Request) {
	state, applied, err := h.session.Redo()
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, HistoryResponse{State: state, Applied: applied})
}

// TestNode выполняет один узел.
//
// Ошибка выполнения — не ошибка запроса: она записана в узел и
// возвращается в поле error со статусом 200.
// POST /api/v1/canvas/nodes/{id}/test
func (h *Handler) TestNode(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := h.decode(r, &req, true); err != nil {
		BadRequest(w, err.Error())
		return
	}

	token := bearerToken(r.Header.Get("Authorization"))
	node, err := h.session.TestNode(r.Context(), r.PathValue("id"), token, req.Payload)

	var execErr *executor.ExecutionError
	if errors.As(err, &execErr) {
		Success(w, TestNodeResponse{Node: node, Error: execErr.Message()})
		return
	}
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, TestNodeResponse{Node: node})
}

// RunFlow выполняет открытый flow в топологическом порядке.
// POST /api/v1/canvas/run
func (h *Handler) RunFlow(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := h.decode(r, &req, true); err != nil {
		BadRequest(w, err.Error())
		return
	}

	token := bearerToken(r.Header.Get("Authorization"))
	executed, err := h.session.RunFlow(r.Context(), token, req.Payload)
	if executed == nil {
		executed = []string{}
	}

	var execErr *executor.ExecutionError
	if errors.As(err, &execErr) {
		Success(w, RunFlowResponse{Executed: executed, Error: execErr.Error()})
		return
	}
	if errors.Is(err, engine.ErrCyclicDependency) {
		InvalidState(w, err.Error())
		return
	}
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, RunFlowResponse{Executed: executed})
}

// NodeData возвращает входной контекст или вывод узла.
// GET /api/v1/canvas/nodes/{id}/{direction}
func (h *Handler) NodeData(w http.ResponseWriter, r *http.Request) {
	id, direction := r.PathValue("id"), r.PathValue("direction")

	data, err := h.session.NodeData(id, engine.Direction(direction))
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, NodeDataResponse{NodeID: id, Direction: direction, Data: data})
}

// Save сохраняет открытый flow.
// POST /api/v1/canvas/save
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	flow, err := h.session.Save(r.Context())
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, flow)
}
