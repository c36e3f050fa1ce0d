package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Wireflow/internal/domain"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS projects (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE TABLE IF NOT EXISTS flows (
		id          TEXT PRIMARY KEY,
		project_id  TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		nodes       JSONB NOT NULL DEFAULT '[]',
		edges       JSONB NOT NULL DEFAULT '[]',
		viewport    JSONB NOT NULL DEFAULT '{}',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS flows_project_id_idx ON flows (project_id);
`

// PostgresFlowRepo — FlowRepository на PostgreSQL.
type PostgresFlowRepo struct {
	pool *pgxpool.Pool
}

var _ FlowRepository = (*PostgresFlowRepo)(nil)

// NewPostgresFlowRepo создаёт новый PostgresFlowRepo.
func NewPostgresFlowRepo(pool *pgxpool.Pool) *PostgresFlowRepo {
	return &PostgresFlowRepo{pool: pool}
}

// EnsureSchema создаёт таблицы, если их нет.
func (r *PostgresFlowRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// --- Flows ---

// SaveFlow создаёт или заменяет flow.
func (r *PostgresFlowRepo) SaveFlow(ctx context.Context, flow domain.Flow) error {
	cols, err := encodeGraph(flow)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO flows (id, project_id, name, description, nodes, edges, viewport, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			project_id = EXCLUDED.project_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			nodes = EXCLUDED.nodes,
			edges = EXCLUDED.edges,
			viewport = EXCLUDED.viewport,
			updated_at = EXCLUDED.updated_at
	`
	_, err = r.pool.Exec(ctx, query,
		flow.ID,
		flow.ProjectID,
		flow.Name,
		flow.Description,
		cols.nodes,
		cols.edges,
		cols.viewport,
		flow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert flow: %w", err)
	}
	return nil
}

// GetFlow возвращает flow по ID.
func (r *PostgresFlowRepo) GetFlow(ctx context.Context, flowID string) (domain.Flow, error) {
	query := `
		SELECT id, project_id, name, description, nodes, edges, viewport, updated_at
		FROM flows
		WHERE id = $1
	`
	flow, err := scanPostgresFlow(r.pool.QueryRow(ctx, query, flowID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Flow{}, fmt.Errorf("%w: flow %s", ErrNotFound, flowID)
	}
	if err != nil {
		return domain.Flow{}, fmt.Errorf("get flow: %w", err)
	}
	return flow, nil
}

// ListFlows возвращает flows проекта в порядке создания.
func (r *PostgresFlowRepo) ListFlows(ctx context.Context, projectID string) ([]domain.Flow, error) {
	query := `
		SELECT id, project_id, name, description, nodes, edges, viewport, updated_at
		FROM flows
		WHERE project_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}
	defer rows.Close()

	flows := []domain.Flow{}
	for rows.Next() {
		flow, err := scanPostgresFlow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan flow: %w", err)
		}
		flows = append(flows, flow)
	}
	return flows, rows.Err()
}

// DeleteFlow удаляет flow проекта.
func (r *PostgresFlowRepo) DeleteFlow(ctx context.Context, projectID, flowID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM flows WHERE project_id = $1 AND id = $2`, projectID, flowID)
	if err != nil {
		return fmt.Errorf("delete flow: %w", err)
	}
	return nil
}

// --- Projects ---

// SaveProject создаёт проект или обновляет его имя и описание.
func (r *PostgresFlowRepo) SaveProject(ctx context.Context, project domain.Project) error {
	query := `
		INSERT INTO projects (id, name, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description
	`
	if _, err := r.pool.Exec(ctx, query, project.ID, project.Name, project.Description); err != nil {
		return fmt.Errorf("upsert project: %w", err)
	}
	return nil
}

// DeleteProject удаляет проект (flows удаляются каскадно).
func (r *PostgresFlowRepo) DeleteProject(ctx context.Context, projectID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, projectID); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

// ListProjects возвращает все проекты вместе с их flows.
func (r *PostgresFlowRepo) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description
		FROM projects
		ORDER BY created_at, id
	`)
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

	flowRows, err := r.pool.Query(ctx, `
		SELECT id, project_id, name, description, nodes, edges, viewport, updated_at
		FROM flows
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}
	defer flowRows.Close()

	var flows []domain.Flow
	for flowRows.Next() {
		flow, err := scanPostgresFlow(flowRows)
		if err != nil {
			return nil, fmt.Errorf("scan flow: %w", err)
		}
		flows = append(flows, flow)
	}
	if err := flowRows.Err(); err != nil {
		return nil, err
	}
	return attachFlows(projects, flows), nil
}

func scanPostgresFlow(row pgx.Row) (domain.Flow, error) {
	var flow domain.Flow
	var cols graphColumns
	if err := row.Scan(
		&flow.ID,
		&flow.ProjectID,
		&flow.Name,
		&flow.Description,
		&cols.nodes,
		&cols.edges,
		&cols.viewport,
		&flow.UpdatedAt,
	); err != nil {
		return domain.Flow{}, err
	}
	if err := decodeGraph(cols, &flow); err != nil {
		return domain.Flow{}, err
	}
	flow.UpdatedAt = flow.UpdatedAt.UTC()
	return flow, nil
}
