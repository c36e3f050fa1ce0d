package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Wireflow/internal/domain"
)

func seedWorkspace(t *testing.T) *Workspace {
	t.Helper()

	ws := NewWorkspace()
	_, err := ws.AddProject(domain.Project{ID: "P", Name: "Project P"})
	require.NoError(t, err)
	_, err = ws.AddProject(domain.Project{ID: "Q", Name: "Project Q"})
	require.NoError(t, err)

	_, err = ws.AddFlow(domain.Flow{ID: "G", Name: "other", ProjectID: "Q"})
	require.NoError(t, err)
	_, err = ws.AddFlow(domain.Flow{ID: "F", Name: "main", ProjectID: "P"})
	require.NoError(t, err)
	return ws
}

func TestNewWorkspace_Starter(t *testing.T) {
	ws := NewWorkspace()

	projects := ws.Projects()
	require.Len(t, projects, 1)
	assert.Equal(t, domain.StarterProjectID, projects[0].ID)
	require.Len(t, projects[0].Flows, 1)

	flow := projects[0].Flows[0]
	assert.Equal(t, domain.StarterFlowID, flow.ID)
	require.Len(t, flow.Nodes, 1)
	assert.Equal(t, domain.KindNewFlow, flow.Nodes[0].Type)

	_, ok := ws.CurrentFlow()
	assert.False(t, ok)
	assert.False(t, ws.NeedsSave())
}

func TestWorkspace_AddFlowSetsCurrent(t *testing.T) {
	ws := seedWorkspace(t)

	cur, ok := ws.CurrentFlow()
	require.True(t, ok)
	assert.Equal(t, "F", cur.ID)
	require.Len(t, cur.Nodes, 1, "new flow gets the placeholder")
	assert.True(t, cur.Nodes[0].IsPlaceholder())
}

func TestWorkspace_AddFlowErrors(t *testing.T) {
	ws := seedWorkspace(t)

	_, err := ws.AddFlow(domain.Flow{Name: " ", ProjectID: "P"})
	assert.ErrorIs(t, err, domain.ErrEmptyName)

	_, err = ws.AddFlow(domain.Flow{Name: "x", ProjectID: "missing"})
	assert.ErrorIs(t, err, ErrProjectNotFound)

	_, err = ws.AddFlow(domain.Flow{ID: "F", Name: "dup", ProjectID: "P"})
	assert.ErrorIs(t, err, ErrFlowExists)
}

func TestWorkspace_UpdateFlowDualWrite(t *testing.T) {
	ws := seedWorkspace(t)
	before, err := ws.Project("Q")
	require.NoError(t, err)

	updated := domain.Flow{
		ID:        "F",
		Name:      "renamed",
		ProjectID: "P",
		Nodes:     []domain.Node{{ID: "h", Type: domain.KindHTTP}},
		Edges:     []domain.Edge{},
	}
	_, err = ws.UpdateFlow(updated)
	require.NoError(t, err)

	p, err := ws.Project("P")
	require.NoError(t, err)
	assert.Equal(t, "renamed", p.Flows[0].Name)

	cur, ok := ws.CurrentFlow()
	require.True(t, ok)
	assert.Equal(t, "renamed", cur.Name)
	assert.Equal(t, p.Flows[0], cur)

	after, err := ws.Project("Q")
	require.NoError(t, err)
	assert.Equal(t, before, after, "other projects are untouched")

	assert.True(t, ws.NeedsSave())
}

func TestWorkspace_UpdateFlowNotCurrent(t *testing.T) {
	ws := seedWorkspace(t)

	_, err := ws.UpdateFlow(domain.Flow{ID: "G", Name: "other-2", ProjectID: "Q"})
	require.NoError(t, err)

	cur, _ := ws.CurrentFlow()
	assert.Equal(t, "F", cur.ID, "current flow is not replaced by another flow")
}

func TestWorkspace_UpdateFlowErrorsDoNotMutate(t *testing.T) {
	ws := seedWorkspace(t)

	_, err := ws.UpdateFlow(domain.Flow{ID: "F", Name: "", ProjectID: "P"})
	assert.ErrorIs(t, err, domain.ErrEmptyName)

	_, err = ws.UpdateFlow(domain.Flow{ID: "nope", Name: "x", ProjectID: "P"})
	assert.ErrorIs(t, err, ErrFlowNotFound)

	assert.False(t, ws.NeedsSave())
	cur, _ := ws.CurrentFlow()
	assert.Equal(t, "main", cur.Name)
}

func TestWorkspace_AddNodeToFlowReplacesAndFilters(t *testing.T) {
	ws := seedWorkspace(t)

	nodes := []domain.Node{
		domain.NewFlowPlaceholder(),
		{ID: "h1", Type: domain.KindHTTP},
	}
	require.NoError(t, ws.AddNodeToFlow(nodes))

	cur, _ := ws.CurrentFlow()
	require.Len(t, cur.Nodes, 1)
	assert.Equal(t, "h1", cur.Nodes[0].ID)

	p, _ := ws.Project("P")
	assert.Equal(t, cur.Nodes, p.Flows[0].Nodes)

	// Полная замена, а не слияние
	require.NoError(t, ws.AddNodeToFlow([]domain.Node{{ID: "h2", Type: domain.KindHTTP}}))
	cur, _ = ws.CurrentFlow()
	require.Len(t, cur.Nodes, 1)
	assert.Equal(t, "h2", cur.Nodes[0].ID)
	assert.True(t, ws.NeedsSave())
}

func TestWorkspace_AddEdgeToFlowDualWrite(t *testing.T) {
	ws := seedWorkspace(t)

	edges := []domain.Edge{{ID: "e1", Source: "a", Target: "b"}}
	require.NoError(t, ws.AddEdgeToFlow(edges))

	cur, _ := ws.CurrentFlow()
	p, _ := ws.Project("P")
	assert.Equal(t, edges, cur.Edges)
	assert.Equal(t, edges, p.Flows[0].Edges)
}

func TestWorkspace_MutationsRequireCurrentFlow(t *testing.T) {
	ws := NewWorkspace()

	assert.ErrorIs(t, ws.AddNodeToFlow(nil), ErrNoCurrentFlow)
	assert.ErrorIs(t, ws.AddEdgeToFlow(nil), ErrNoCurrentFlow)
	assert.ErrorIs(t, ws.SetViewport(domain.Viewport{}), ErrNoCurrentFlow)
	assert.False(t, ws.NeedsSave())
}

func TestWorkspace_SaveClearsFlag(t *testing.T) {
	ws := seedWorkspace(t)
	require.NoError(t, ws.SetViewport(domain.Viewport{X: 1, Y: 2, Zoom: 1.5}))
	assert.True(t, ws.NeedsSave())

	ws.Save()
	assert.False(t, ws.NeedsSave())

	p, _ := ws.Project("P")
	assert.Equal(t, 1.5, p.Flows[0].Viewport.Zoom)
}

func TestWorkspace_DefensiveCopies(t *testing.T) {
	ws := seedWorkspace(t)

	f := domain.Flow{
		ID:        "F",
		Name:      "main",
		ProjectID: "P",
		Nodes: []domain.Node{{
			ID:   "h",
			Type: domain.KindHTTP,
			Data: domain.NodeData{State: map[string]any{"url": "a"}},
		}},
	}
	ws.SetCurrentFlow(&f)

	// Изменение входа после вызова не видно в хранилище
	f.Nodes[0].Data.State["url"] = "b"
	cur, _ := ws.CurrentFlow()
	assert.Equal(t, "a", cur.Nodes[0].Data.State["url"])

	// Изменение выхода не видно в хранилище
	cur.Nodes[0].Data.State["url"] = "c"
	again, _ := ws.CurrentFlow()
	assert.Equal(t, "a", again.Nodes[0].Data.State["url"])
}

func TestWorkspace_DeleteFlow(t *testing.T) {
	ws := seedWorkspace(t)

	require.NoError(t, ws.DeleteFlow("P", "F"))

	_, ok := ws.CurrentFlow()
	assert.False(t, ok)

	p, _ := ws.Project("P")
	assert.Empty(t, p.Flows)

	assert.ErrorIs(t, ws.DeleteFlow("P", "F"), ErrFlowNotFound)
}

func TestWorkspace_DeleteProjectClearsPointers(t *testing.T) {
	ws := seedWorkspace(t)
	_, err := ws.OpenFlow("P", "F")
	require.NoError(t, err)

	require.NoError(t, ws.DeleteProject("P"))

	_, ok := ws.CurrentProject()
	assert.False(t, ok)
	_, ok = ws.CurrentFlow()
	assert.False(t, ok)
	assert.ErrorIs(t, ws.DeleteProject("P"), ErrProjectNotFound)
}

func TestWorkspace_UpdateProjectKeepsFlows(t *testing.T) {
	ws := seedWorkspace(t)
	_, err := ws.OpenFlow("P", "F")
	require.NoError(t, err)

	_, err = ws.UpdateProject(domain.Project{ID: "P", Name: "Renamed"})
	require.NoError(t, err)

	p, _ := ws.Project("P")
	assert.Equal(t, "Renamed", p.Name)
	assert.Len(t, p.Flows, 1)

	cur, _ := ws.CurrentProject()
	assert.Equal(t, "Renamed", cur.Name)

	_, err = ws.UpdateProject(domain.Project{ID: "P", Name: ""})
	assert.ErrorIs(t, err, domain.ErrEmptyName)
}

func TestWorkspace_SetProjects(t *testing.T) {
	ws := seedWorkspace(t)
	_, err := ws.OpenFlow("P", "F")
	require.NoError(t, err)

	ws.SetProjects([]domain.Project{{ID: "Q", Name: "Q", Flows: []domain.Flow{}}})

	_, ok := ws.CurrentFlow()
	assert.False(t, ok, "current flow of a vanished project is dropped")
	assert.Len(t, ws.Projects(), 1)
}

func TestWorkspace_Templates(t *testing.T) {
	ws := NewWorkspace()

	require.NoError(t, ws.AddTemplate(domain.Project{ID: "t1", Name: "CRM sync"}))
	require.NoError(t, ws.UpdateTemplate(domain.Project{ID: "t1", Name: "CRM sync v2"}))
	assert.ErrorIs(t, ws.UpdateTemplate(domain.Project{ID: "t2", Name: "x"}), ErrTemplateNotFound)

	templates := ws.Templates()
	require.Len(t, templates, 1)
	assert.Equal(t, "CRM sync v2", templates[0].Name)
}

func TestWorkspace_RemoveFromFlowDualWrite(t *testing.T) {
	ws := seedWorkspace(t)

	require.NoError(t, ws.AddNodeToFlow([]domain.Node{
		{ID: "a", Type: domain.KindManualTrigger},
		{ID: "b", Type: domain.KindText},
	}))
	require.NoError(t, ws.AddEdgeToFlow([]domain.Edge{{ID: "e1", Source: "a", Target: "b"}}))
	ws.Save()

	require.NoError(t, ws.RemoveEdgeFromFlow("e1"))
	require.NoError(t, ws.RemoveNodeFromFlow("a"))
	require.NoError(t, ws.RemoveNodeFromFlow("ghost"), "unknown ids are a no-op")

	cur, _ := ws.CurrentFlow()
	p, _ := ws.Project("P")
	assert.Empty(t, cur.Edges)
	require.Len(t, cur.Nodes, 1)
	assert.Equal(t, "b", cur.Nodes[0].ID)
	assert.Equal(t, cur.Nodes, p.Flows[0].Nodes)
	assert.True(t, ws.NeedsSave())
}

func TestWorkspace_ClearCurrent(t *testing.T) {
	ws := seedWorkspace(t)

	ws.ClearCurrentFlow()
	_, ok := ws.CurrentFlow()
	assert.False(t, ok)
	assert.ErrorIs(t, ws.RemoveNodeFromFlow("a"), ErrNoCurrentFlow)

	p, err := ws.Project("P")
	require.NoError(t, err)
	ws.SetCurrentProject(&p)
	_, ok = ws.CurrentProject()
	assert.True(t, ok)
	ws.ClearCurrentProject()
	_, ok = ws.CurrentProject()
	assert.False(t, ok)
}
