package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Wireflow/internal/domain"
)

// memRepo — Repository в памяти.
type memRepo struct {
	projects map[string]domain.Project
	flows    map[string]domain.Flow
	failSave bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		projects: make(map[string]domain.Project),
		flows:    make(map[string]domain.Flow),
	}
}

func (r *memRepo) SaveFlow(_ context.Context, f domain.Flow) error {
	if r.failSave {
		return errors.New("disk full")
	}
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

func (r *memRepo) ListProjects(_ context.Context) ([]domain.Project, error) {
	out := make([]domain.Project, 0, len(r.projects))
	for _, p := range r.projects {
		p = p.Clone()
		for _, f := range r.flows {
			if f.ProjectID == p.ID {
				p.Flows = append(p.Flows, f.Clone())
			}
		}
		out = append(out, p)
	}
	return out, nil
}

type recordingEvents struct {
	saved []string
	err   error
}

func (e *recordingEvents) PublishFlowSaved(_ context.Context, f domain.Flow) error {
	e.saved = append(e.saved, f.ID)
	return e.err
}

func TestSaver_SavePrunesAndClearsFlag(t *testing.T) {
	ws := seedWorkspace(t)
	require.NoError(t, ws.AddNodeToFlow([]domain.Node{
		{ID: "a", Type: domain.KindManualTrigger},
		{ID: "b", Type: domain.KindHTTP},
	}))
	require.NoError(t, ws.AddEdgeToFlow([]domain.Edge{
		{ID: "e1", Source: "a", Target: "b"},
		{ID: "e2", Source: "a", Target: "ghost"},
	}))
	require.True(t, ws.NeedsSave())

	repo := newMemRepo()
	events := &recordingEvents{}
	s := NewSaver(SaverConfig{Workspace: ws, Repository: repo, Events: events})

	saved, err := s.Save(context.Background())
	require.NoError(t, err)

	assert.Len(t, saved.Edges, 1)
	assert.False(t, saved.UpdatedAt.IsZero())
	assert.False(t, ws.NeedsSave())
	assert.Equal(t, []string{"F"}, events.saved)

	stored := repo.flows["F"]
	assert.Len(t, stored.Edges, 1)
	assert.Contains(t, repo.projects, "P")

	cur, _ := ws.CurrentFlow()
	assert.Len(t, cur.Edges, 1, "workspace edges are pruned too")
}

func TestSaver_SaveFailureKeepsFlag(t *testing.T) {
	ws := seedWorkspace(t)
	require.NoError(t, ws.SetViewport(domain.Viewport{Zoom: 2}))

	repo := newMemRepo()
	repo.failSave = true
	s := NewSaver(SaverConfig{Workspace: ws, Repository: repo})

	_, err := s.Save(context.Background())
	assert.Error(t, err)
	assert.True(t, ws.NeedsSave())
}

func TestSaver_EventFailureIsNotFatal(t *testing.T) {
	ws := seedWorkspace(t)
	s := NewSaver(SaverConfig{
		Workspace:  ws,
		Repository: newMemRepo(),
		Events:     &recordingEvents{err: errors.New("broker down")},
	})

	_, err := s.Save(context.Background())
	assert.NoError(t, err)
}

func TestSaver_NoCurrentFlow(t *testing.T) {
	s := NewSaver(SaverConfig{Workspace: NewWorkspace(), Repository: newMemRepo()})

	_, err := s.Save(context.Background())
	assert.ErrorIs(t, err, ErrNoCurrentFlow)
}

func TestSaver_Load(t *testing.T) {
	repo := newMemRepo()
	repo.projects["P"] = domain.Project{ID: "P", Name: "Loaded"}
	repo.flows["F"] = domain.Flow{ID: "F", Name: "f", ProjectID: "P"}

	ws := NewWorkspace()
	s := NewSaver(SaverConfig{Workspace: ws, Repository: repo})
	require.NoError(t, s.Load(context.Background()))

	projects := ws.Projects()
	require.Len(t, projects, 1)
	assert.Equal(t, "Loaded", projects[0].Name)
	require.Len(t, projects[0].Flows, 1)
}

func TestSaver_LoadEmptyKeepsStarter(t *testing.T) {
	ws := NewWorkspace()
	s := NewSaver(SaverConfig{Workspace: ws, Repository: newMemRepo()})
	require.NoError(t, s.Load(context.Background()))

	projects := ws.Projects()
	require.Len(t, projects, 1)
	assert.Equal(t, domain.StarterProjectID, projects[0].ID)
}
