package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shaiso/Wireflow/internal/domain"
)

var sqliteSchema = []string{`
	CREATE TABLE IF NOT EXISTS projects (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	)`, `
	CREATE TABLE IF NOT EXISTS flows (
		id          TEXT PRIMARY KEY,
		project_id  TEXT NOT NULL,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		nodes       TEXT NOT NULL DEFAULT '[]',
		edges       TEXT NOT NULL DEFAULT '[]',
		viewport    TEXT NOT NULL DEFAULT '{}',
		updated_at  TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS flows_project_id_idx ON flows (project_id)`,
}

// SQLiteFlowRepo — FlowRepository на SQLite.
//
// Ожидает *sql.DB с драйвером "sqlite" (modernc.org/sqlite). Порядок
// выдачи — порядок вставки (rowid).
type SQLiteFlowRepo struct {
	db *sql.DB
}

var _ FlowRepository = (*SQLiteFlowRepo)(nil)

// NewSQLiteFlowRepo создаёт схему в db и возвращает репозиторий.
func NewSQLiteFlowRepo(ctx context.Context, db *sql.DB) (*SQLiteFlowRepo, error) {
	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}
	return &SQLiteFlowRepo{db: db}, nil
}

// --- Flows ---

// SaveFlow создаёт или заменяет flow.
func (r *SQLiteFlowRepo) SaveFlow(ctx context.Context, flow domain.Flow) error {
	cols, err := encodeGraph(flow)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO flows (id, project_id, name, description, nodes, edges, viewport, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			project_id = excluded.project_id,
			name = excluded.name,
			description = excluded.description,
			nodes = excluded.nodes,
			edges = excluded.edges,
			viewport = excluded.viewport,
			updated_at = excluded.updated_at`,
		flow.ID,
		flow.ProjectID,
		flow.Name,
		flow.Description,
		string(cols.nodes),
		string(cols.edges),
		string(cols.viewport),
		formatTime(flow.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert flow: %w", err)
	}
	return nil
}

// GetFlow возвращает flow по ID.
func (r *SQLiteFlowRepo) GetFlow(ctx context.Context, flowID string) (domain.Flow, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, project_id, name, description, nodes, edges, viewport, updated_at
		FROM flows
		WHERE id = ?`, flowID)

	flow, err := scanSQLiteFlow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Flow{}, fmt.Errorf("%w: flow %s", ErrNotFound, flowID)
	}
	if err != nil {
		return domain.Flow{}, fmt.Errorf("get flow: %w", err)
	}
	return flow, nil
}

// ListFlows возвращает flows проекта.
func (r *SQLiteFlowRepo) ListFlows(ctx context.Context, projectID string) ([]domain.Flow, error) {
	return r.queryFlows(ctx, `
		SELECT id, project_id, name, description, nodes, edges, viewport, updated_at
		FROM flows
		WHERE project_id = ?
		ORDER BY rowid`, projectID)
}

// DeleteFlow удаляет flow проекта.
func (r *SQLiteFlowRepo) DeleteFlow(ctx context.Context, projectID, flowID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM flows WHERE project_id = ? AND id = ?`, projectID, flowID)
	if err != nil {
		return fmt.Errorf("delete flow: %w", err)
	}
	return nil
}

// --- Projects ---

// SaveProject создаёт проект или обновляет его имя и описание.
func (r *SQLiteFlowRepo) SaveProject(ctx context.Context, project domain.Project) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, description)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description`,
		project.ID, project.Name, project.Description,
	)
	if err != nil {
		return fmt.Errorf("upsert project: %w", err)
	}
	return nil
}

// DeleteProject удаляет проект и его flows в одной транзакции.
func (r *SQLiteFlowRepo) DeleteProject(ctx context.Context, projectID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM flows WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("delete project flows: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, projectID); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return tx.Commit()
}

// ListProjects возвращает все проекты вместе с их flows.
func (r *SQLiteFlowRepo) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, description FROM projects ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []domain.Project{}
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	flows, err := r.queryFlows(ctx, `
		SELECT id, project_id, name, description, nodes, edges, viewport, updated_at
		FROM flows
		ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	return attachFlows(projects, flows), nil
}

func (r *SQLiteFlowRepo) queryFlows(ctx context.Context, query string, args ...any) ([]domain.Flow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}
	defer rows.Close()

	flows := []domain.Flow{}
	for rows.Next() {
		flow, err := scanSQLiteFlow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan flow: %w", err)
		}
		flows = append(flows, flow)
	}
	return flows, rows.Err()
}

// rowScanner — общий интерфейс *sql.Row и *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteFlow(row rowScanner) (domain.Flow, error) {
	var flow domain.Flow
	var nodes, edges, viewport, updatedAt string
	if err := row.Scan(
		&flow.ID,
		&flow.ProjectID,
		&flow.Name,
		&flow.Description,
		&nodes,
		&edges,
		&viewport,
		&updatedAt,
	); err != nil {
		return domain.Flow{}, err
	}

	cols := graphColumns{nodes: []byte(nodes), edges: []byte(edges), viewport: []byte(viewport)}
	if err := decodeGraph(cols, &flow); err != nil {
		return domain.Flow{}, err
	}
	if updatedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, updatedAt)
		if err != nil {
			return domain.Flow{}, fmt.Errorf("parse updated_at: %w", err)
		}
		flow.UpdatedAt = t
	}
	return flow, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
