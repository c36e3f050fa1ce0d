package editor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Wireflow/internal/domain"
	"github.com/shaiso/Wireflow/internal/engine"
	"github.com/shaiso/Wireflow/internal/executor"
	"github.com/shaiso/Wireflow/internal/store"
)

type memRepo struct {
	flows    map[string]domain.Flow
	projects map[string]domain.Project
}

func newMemRepo() *memRepo {
	return &memRepo{flows: map[string]domain.Flow{}, projects: map[string]domain.Project{}}
}

func (r *memRepo) SaveFlow(_ context.Context, f domain.Flow) error {
	r.flows[f.ID] = f.Clone()
	return nil
}

func (r *memRepo) DeleteFlow(_ context.Context, _, flowID string) error {
	delete(r.flows, flowID)
	return nil
}

func (r *memRepo) SaveProject(_ context.Context, p domain.Project) error {
	r.projects[p.ID] = p.Clone()
	return nil
}

func (r *memRepo) DeleteProject(_ context.Context, id string) error {
	delete(r.projects, id)
	return nil
}

func (r *memRepo) ListProjects(context.Context) ([]domain.Project, error) {
	return nil, nil
}

func newSession(t *testing.T, repo store.Repository) *Session {
	t.Helper()

	s := New(Config{Repository: repo})
	_, err := s.OpenFlow(domain.StarterProjectID, domain.StarterFlowID)
	require.NoError(t, err)
	return s
}

func textNode(id, label, value string) domain.Node {
	return domain.Node{
		ID:   id,
		Type: domain.KindText,
		Data: domain.NodeData{State: map[string]any{
			"fields": []any{map[string]any{"label": label, "value": value}},
		}},
	}
}

func nodeIDs(nodes []domain.Node) []string {
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

func TestSession_RequiresOpenFlow(t *testing.T) {
	s := New(Config{})

	_, err := s.AddNode(textNode("a", "x", "1"))
	assert.ErrorIs(t, err, store.ErrNoCurrentFlow)

	_, err = s.Canvas()
	assert.ErrorIs(t, err, store.ErrNoCurrentFlow)
}

func TestSession_AddNodeReplacesPlaceholder(t *testing.T) {
	s := newSession(t, nil)

	st, err := s.Canvas()
	require.NoError(t, err)
	require.Len(t, st.Flow.Nodes, 1)
	assert.True(t, st.Flow.Nodes[0].IsPlaceholder())

	st, err = s.AddNode(textNode("a", "x", "1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, nodeIDs(st.Flow.Nodes))
	assert.True(t, st.CanUndo)
	assert.True(t, st.NeedsSave)

	st, undone, err := s.Undo()
	require.NoError(t, err)
	assert.True(t, undone)
	require.Len(t, st.Flow.Nodes, 1)
	assert.True(t, st.Flow.Nodes[0].IsPlaceholder())
	assert.True(t, st.CanRedo)
}

func TestSession_RemoveNodeUndoRestoresEdges(t *testing.T) {
	s := newSession(t, nil)

	_, err := s.AddNode(textNode("a", "x", "1"))
	require.NoError(t, err)
	_, err = s.AddNode(textNode("b", "y", "2"))
	require.NoError(t, err)
	_, err = s.AddEdge(domain.Edge{ID: "e1", Source: "a", Target: "b"})
	require.NoError(t, err)

	st, err := s.RemoveNode("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, nodeIDs(st.Flow.Nodes))
	assert.Empty(t, st.Flow.Edges)

	// Первый undo возвращает узел, второй — ребро.
	st, _, err = s.Undo()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, nodeIDs(st.Flow.Nodes))
	assert.Empty(t, st.Flow.Edges)

	st, _, err = s.Undo()
	require.NoError(t, err)
	require.Len(t, st.Flow.Edges, 1)
	assert.Equal(t, "e1", st.Flow.Edges[0].ID)

	st, _, err = s.Redo()
	require.NoError(t, err)
	assert.Empty(t, st.Flow.Edges)

	flow, ok := s.ws.CurrentFlow()
	require.True(t, ok)
	assert.Empty(t, flow.Edges, "workspace follows canvas")
}

func TestSession_UndoNothing(t *testing.T) {
	s := newSession(t, nil)

	_, undone, err := s.Undo()
	require.NoError(t, err)
	assert.False(t, undone)

	_, redone, err := s.Redo()
	require.NoError(t, err)
	assert.False(t, redone)
}

func TestSession_AddEdgeRejectsUnknownEndpoint(t *testing.T) {
	s := newSession(t, nil)

	_, err := s.AddNode(textNode("a", "x", "1"))
	require.NoError(t, err)

	_, err = s.AddEdge(domain.Edge{ID: "e1", Source: "a", Target: "ghost"})
	assert.ErrorIs(t, err, ErrUnknownEndpoint)

	_, err = s.AddEdge(domain.Edge{ID: "e2", Source: "a", Target: "a"})
	assert.ErrorIs(t, err, domain.ErrSelfLoop)
}

func TestSession_UpdateNodeStateNotRecorded(t *testing.T) {
	s := newSession(t, nil)

	_, err := s.AddNode(textNode("a", "x", "1"))
	require.NoError(t, err)

	node, err := s.UpdateNodeState("a", map[string]any{
		"fields": []any{map[string]any{"label": "x", "value": "2"}},
	})
	require.NoError(t, err)
	assert.NotNil(t, node.Data.State)

	_, _, err = s.Undo()
	require.NoError(t, err)

	st, err := s.Canvas()
	require.NoError(t, err)
	assert.False(t, st.CanUndo, "only AddNode is in history")
}

func TestSession_TestNodeAndNodeData(t *testing.T) {
	s := newSession(t, nil)

	_, err := s.AddNode(textNode("a", "greeting", "hello"))
	require.NoError(t, err)
	_, err = s.AddNode(textNode("b", "echo", "{{ $text-other-tool.greeting }} world"))
	require.NoError(t, err)
	_, err = s.AddEdge(domain.Edge{ID: "e1", Source: "a", Target: "b"})
	require.NoError(t, err)

	done, err := s.RunFlow(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, done)

	out, err := s.NodeData("b", engine.DirectionOutput)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"echo": "hello world"}, out)

	in, err := s.NodeData("b", engine.DirectionInput)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"text-other-tool": map[string]any{"greeting": "hello"}}, in)

	flow, _ := s.ws.CurrentFlow()
	n, ok := flow.Node("b")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"echo": "hello world"}, n.Data.Output)

	_, err = s.NodeData("b", engine.Direction("sideways"))
	assert.ErrorIs(t, err, ErrInvalidDirection)
}

func TestSession_TestNodeFailureWritesError(t *testing.T) {
	s := newSession(t, nil)

	_, err := s.AddNode(domain.Node{ID: "h", Type: domain.KindHTTP, Data: domain.NodeData{
		State: map[string]any{"url": "not a url"},
	}})
	require.NoError(t, err)

	node, err := s.TestNode(context.Background(), "h", "", nil)
	var execErr *executor.ExecutionError
	require.True(t, errors.As(err, &execErr), "got %v", err)
	assert.NotEmpty(t, node.Data.Error)
}

func TestSession_Save(t *testing.T) {
	repo := newMemRepo()
	s := newSession(t, repo)

	_, err := s.AddNode(textNode("a", "x", "1"))
	require.NoError(t, err)

	flow, err := s.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StarterFlowID, flow.ID)
	assert.Contains(t, repo.flows, domain.StarterFlowID)
	assert.Contains(t, repo.projects, domain.StarterProjectID)

	st, err := s.Canvas()
	require.NoError(t, err)
	assert.False(t, st.NeedsSave)
}

func TestSession_SaveWithoutRepository(t *testing.T) {
	s := newSession(t, nil)

	_, err := s.Save(context.Background())
	assert.ErrorIs(t, err, ErrNoRepository)
}

func TestSession_CreateAndDeleteFlow(t *testing.T) {
	repo := newMemRepo()
	s := newSession(t, repo)

	_, err := s.AddNode(textNode("a", "x", "1"))
	require.NoError(t, err)

	created, err := s.CreateFlow(domain.Flow{Name: "Second", ProjectID: domain.StarterProjectID})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	st, err := s.Canvas()
	require.NoError(t, err)
	assert.Equal(t, created.ID, st.Flow.ID)
	assert.False(t, st.CanUndo, "history is reset on open")

	renamed, err := s.UpdateFlow(domain.Flow{ID: created.ID, ProjectID: domain.StarterProjectID, Name: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", renamed.Name)
	require.Len(t, renamed.Nodes, 1, "graph is untouched by rename")

	require.NoError(t, s.DeleteFlow(context.Background(), domain.StarterProjectID, created.ID))
	_, err = s.Canvas()
	assert.ErrorIs(t, err, store.ErrNoCurrentFlow)

	_, err = s.CreateFlow(domain.Flow{Name: " ", ProjectID: domain.StarterProjectID})
	assert.ErrorIs(t, err, domain.ErrEmptyName)
}

func TestSession_CreateProjectPersists(t *testing.T) {
	repo := newMemRepo()
	s := New(Config{Repository: repo})

	p, err := s.CreateProject(context.Background(), domain.Project{Name: "Ops"})
	require.NoError(t, err)
	assert.Contains(t, repo.projects, p.ID)
	assert.Len(t, s.Projects(), 2)
}

func TestSession_AddDuplicateIDRejected(t *testing.T) {
	s := newSession(t, nil)

	_, err := s.AddNode(textNode("a", "x", "original"))
	require.NoError(t, err)
	_, err = s.AddNode(textNode("b", "y", "2"))
	require.NoError(t, err)
	_, err = s.AddEdge(domain.Edge{ID: "e1", Source: "a", Target: "b"})
	require.NoError(t, err)

	_, err = s.AddNode(textNode("a", "x", "replaced"))
	assert.ErrorIs(t, err, ErrNodeExists)
	_, err = s.AddEdge(domain.Edge{ID: "e1", Source: "b", Target: "a"})
	assert.ErrorIs(t, err, ErrEdgeExists)

	st, err := s.Canvas()
	require.NoError(t, err)
	a, ok := st.Flow.Node("a")
	require.True(t, ok)
	assert.Equal(t, "original", a.Data.State["fields"].([]any)[0].(map[string]any)["value"])
	require.Len(t, st.Flow.Edges, 1)
	assert.Equal(t, "a", st.Flow.Edges[0].Source)

	// Отклонённые добавления не попали в журнал: undo снимает ребро e1.
	st, undone, err := s.Undo()
	require.NoError(t, err)
	assert.True(t, undone)
	assert.Empty(t, st.Flow.Edges)
	assert.ElementsMatch(t, []string{"a", "b"}, nodeIDs(st.Flow.Nodes))
}
