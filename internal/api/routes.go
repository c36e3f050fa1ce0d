package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		RequestID(h.logger),
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Projects
	mux.Handle("GET /api/v1/projects", chain(http.HandlerFunc(h.ListProjects)))
	mux.Handle("POST /api/v1/projects", chain(http.HandlerFunc(h.CreateProject)))
	mux.Handle("PUT /api/v1/projects/{id}", chain(http.HandlerFunc(h.UpdateProject)))
	mux.Handle("DELETE /api/v1/projects/{id}", chain(http.HandlerFunc(h.DeleteProject)))

	// Flows
	mux.Handle("POST /api/v1/projects/{id}/flows", chain(http.HandlerFunc(h.CreateFlow)))
	mux.Handle("PUT /api/v1/flows/{id}", chain(http.HandlerFunc(h.UpdateFlow)))
	mux.Handle("DELETE /api/v1/projects/{pid}/flows/{id}", chain(http.HandlerFunc(h.DeleteFlow)))
	mux.Handle("POST /api/v1/projects/{pid}/flows/{id}/open", chain(http.HandlerFunc(h.OpenFlow)))

	// Canvas
	mux.Handle("GET /api/v1/canvas", chain(http.HandlerFunc(h.GetCanvas)))
	mux.Handle("PUT /api/v1/canvas/viewport", chain(http.HandlerFunc(h.SetViewport)))
	mux.Handle("POST /api/v1/canvas/nodes", chain(http.HandlerFunc(h.AddNode)))
	mux.Handle("DELETE /api/v1/canvas/nodes/{id}", chain(http.HandlerFunc(h.RemoveNode)))
	mux.Handle("PUT /api/v1/canvas/nodes/{id}/state", chain(http.HandlerFunc(h.UpdateNodeState)))
	mux.Handle("POST /api/v1/canvas/nodes/{id}/test", chain(http.HandlerFunc(h.TestNode)))
	mux.Handle("GET /api/v1/canvas/nodes/{id}/{direction}", chain(http.HandlerFunc(h.NodeData)))
	mux.Handle("POST /api/v1/canvas/edges", chain(http.HandlerFunc(h.AddEdge)))
	mux.Handle("DELETE /api/v1/canvas/edges/{id}", chain(http.HandlerFunc(h.RemoveEdge)))
	mux.Handle("POST /api/v1/canvas/undo", chain(http.HandlerFunc(h.Undo)))
	mux.Handle("POST /api/v1/canvas/redo", chain(http.HandlerFunc(h.Redo)))
	mux.Handle("POST /api/v1/canvas/run", chain(http.HandlerFunc(h.RunFlow)))
	mux.Handle("POST /api/v1/canvas/save", chain(http.HandlerFunc(h.Save)))

	// Webhooks
	mux.Handle("POST /api/v1/webhooks/{flowId}/{nodeId}", chain(http.HandlerFunc(h.ReceiveWebhook)))
}
