package api

import (
	"net/http"

	"github.com/shaiso/Wireflow/internal/domain"
)

// ListProjects возвращает все проекты с их flows.
// GET /api/v1/projects
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects := h.session.Projects()
	List(w, projects, len(projects))
}

// CreateProject создаёт проект.
// POST /api/v1/projects
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if err := h.decode(r, &req, false); err != nil {
		BadRequest(w, err.Error())
		return
	}

	project, err := h.session.CreateProject(r.Context(), domain.Project{
		Name:        req.Name,
		Description: req.Description,
	})
	if HandleError(w, h.logger, err) {
		return
	}
	Created(w, project)
}

// UpdateProject меняет имя и описание проекта.
// PUT /api/v1/projects/{id}
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if err := h.decode(r, &req, false); err != nil {
		BadRequest(w, err.Error())
		return
	}

	project, err := h.session.UpdateProject(r.Context(), domain.Project{
		ID:          r.PathValue("id"),
		Name:        req.Name,
		Description: req.Description,
	})
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, project)
}

// DeleteProject удаляет проект вместе с flows.
// DELETE /api/v1/projects/{id}
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if HandleError(w, h.logger, h.session.DeleteProject(r.Context(), r.PathValue("id"))) {
		return
	}
	NoContent(w)
}

// CreateFlow создаёт flow в проекте и открывает его.
// POST /api/v1/projects/{id}/flows
func (h *Handler) CreateFlow(w http.ResponseWriter, r *http.Request) {
	var req CreateFlowRequest
	if err := h.decode(r, &req, false); err != nil {
		BadRequest(w, err.Error())
		return
	}

	flow, err := h.session.CreateFlow(domain.Flow{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		ProjectID:   r.PathValue("id"),
	})
	if HandleError(w, h.logger, err) {
		return
	}
	Created(w, flow)
}

// UpdateFlow меняет имя и описание flow.
// PUT /api/v1/flows/{id}
func (h *Handler) UpdateFlow(w http.ResponseWriter, r *http.Request) {
	var req UpdateFlowRequest
	if err := h.decode(r, &req, false); err != nil {
		BadRequest(w, err.Error())
		return
	}

	flow, err := h.session.UpdateFlow(domain.Flow{
		ID:          r.PathValue("id"),
		ProjectID:   req.ProjectID,
		Name:        req.Name,
		Description: req.Description,
	})
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, flow)
}

// DeleteFlow удаляет flow.
// DELETE /api/v1/projects/{pid}/flows/{id}
func (h *Handler) DeleteFlow(w http.ResponseWriter, r *http.Request) {
	err := h.session.DeleteFlow(r.Context(), r.PathValue("pid"), r.PathValue("id"))
	if HandleError(w, h.logger, err) {
		return
	}
	NoContent(w)
}

// OpenFlow делает flow текущим.
// POST /api/v1/projects/{pid}/flows/{id}/open
func (h *Handler) OpenFlow(w http.ResponseWriter, r *http.Request) {
	if _, err := h.session.OpenFlow(r.PathValue("pid"), r.PathValue("id")); HandleError(w, h.logger, err) {
		return
	}
	state, err := h.session.Canvas()
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, state)
}
