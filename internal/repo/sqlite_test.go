package repo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Wireflow/internal/config"
	"github.com/shaiso/Wireflow/internal/domain"
)

func newTestSQLiteRepo(t *testing.T) *SQLiteFlowRepo {
	t.Helper()

	db, err := OpenSQLite(filepath.Join(t.TempDir(), "wireflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	r, err := NewSQLiteFlowRepo(context.Background(), db)
	require.NoError(t, err)
	return r
}

func sampleFlow(id, projectID string) domain.Flow {
	return domain.Flow{
		ID:        id,
		Name:      "Flow " + id,
		ProjectID: projectID,
		Nodes: []domain.Node{
			{ID: "t", Type: domain.KindManualTrigger, Position: domain.Position{X: 10, Y: 20}},
			{ID: "h", Type: domain.KindHTTP, Data: domain.NodeData{
				Label: "Fetch",
				State: map[string]any{"url": "https://example.com", "method": "GET"},
				Error: "HTTP 500",
			}},
		},
		Edges:     []domain.Edge{{ID: "e1", Source: "t", Target: "h"}},
		Viewport:  domain.Viewport{X: 1, Y: 2, Zoom: 1.5},
		UpdatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSQLiteFlowRepo_SaveAndGetFlow(t *testing.T) {
	ctx := context.Background()
	r := newTestSQLiteRepo(t)

	require.NoError(t, r.SaveProject(ctx, domain.Project{ID: "p1", Name: "Ops"}))
	want := sampleFlow("f1", "p1")
	require.NoError(t, r.SaveFlow(ctx, want))

	got, err := r.GetFlow(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Viewport, got.Viewport)
	assert.Equal(t, want.Edges, got.Edges)
	require.Len(t, got.Nodes, 2)
	assert.Equal(t, "Fetch", got.Nodes[1].Data.Label)
	assert.Equal(t, "https://example.com", got.Nodes[1].Data.State["url"])
	assert.Equal(t, "HTTP 500", got.Nodes[1].Data.Error)
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt))
}

func TestSQLiteFlowRepo_SaveFlowReplaces(t *testing.T) {
	ctx := context.Background()
	r := newTestSQLiteRepo(t)

	flow := sampleFlow("f1", "p1")
	require.NoError(t, r.SaveFlow(ctx, flow))

	flow.Name = "Renamed"
	flow.Edges = nil
	require.NoError(t, r.SaveFlow(ctx, flow))

	got, err := r.GetFlow(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, []domain.Edge{}, got.Edges)
}

func TestSQLiteFlowRepo_GetFlowNotFound(t *testing.T) {
	_, err := newTestSQLiteRepo(t).GetFlow(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestSQLiteFlowRepo_ListProjects(t *testing.T) {
	ctx := context.Background()
	r := newTestSQLiteRepo(t)

	require.NoError(t, r.SaveProject(ctx, domain.Project{ID: "p1", Name: "First"}))
	require.NoError(t, r.SaveProject(ctx, domain.Project{ID: "p2", Name: "Second", Description: "d"}))
	require.NoError(t, r.SaveFlow(ctx, sampleFlow("f1", "p1")))
	require.NoError(t, r.SaveFlow(ctx, sampleFlow("f2", "p2")))
	require.NoError(t, r.SaveFlow(ctx, sampleFlow("f3", "p1")))

	// Повторное сохранение обновляет метаданные, не меняя порядок.
	require.NoError(t, r.SaveProject(ctx, domain.Project{ID: "p1", Name: "First!"}))

	projects, err := r.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)

	assert.Equal(t, "First!", projects[0].Name)
	require.Len(t, projects[0].Flows, 2)
	assert.Equal(t, "f1", projects[0].Flows[0].ID)
	assert.Equal(t, "f3", projects[0].Flows[1].ID)

	assert.Equal(t, "d", projects[1].Description)
	require.Len(t, projects[1].Flows, 1)

	flows, err := r.ListFlows(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, flows, 2)
}

func TestSQLiteFlowRepo_Delete(t *testing.T) {
	ctx := context.Background()
	r := newTestSQLiteRepo(t)

	require.NoError(t, r.SaveProject(ctx, domain.Project{ID: "p1", Name: "First"}))
	require.NoError(t, r.SaveFlow(ctx, sampleFlow("f1", "p1")))
	require.NoError(t, r.SaveFlow(ctx, sampleFlow("f2", "p1")))

	require.NoError(t, r.DeleteFlow(ctx, "p1", "f1"))
	require.NoError(t, r.DeleteFlow(ctx, "p1", "f1"), "delete is idempotent")

	flows, err := r.ListFlows(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, "f2", flows[0].ID)

	require.NoError(t, r.DeleteProject(ctx, "p1"))
	projects, err := r.ListProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)

	_, err = r.GetFlow(ctx, "f2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen_SQLite(t *testing.T) {
	cfg := &config.Config{
		DBDriver:   config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "open.db"),
	}

	r, closeFn, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer closeFn()

	require.NoError(t, r.SaveProject(context.Background(), domain.Project{ID: "p", Name: "P"}))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, _, err := Open(context.Background(), &config.Config{DBDriver: "mysql"})
	assert.ErrorIs(t, err, ErrUnknownDriver)
}
