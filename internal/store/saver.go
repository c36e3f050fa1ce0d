package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Wireflow/internal/domain"
	"github.com/shaiso/Wireflow/internal/engine"
)

// Repository — долговременное хранилище проектов и flows.
type Repository interface {
	SaveFlow(ctx context.Context, flow domain.Flow) error
	DeleteFlow(ctx context.Context, projectID, flowID string) error
	SaveProject(ctx context.Context, project domain.Project) error
	DeleteProject(ctx context.Context, projectID string) error
	ListProjects(ctx context.Context) ([]domain.Project, error)
}

// Events — публикация событий сохранения. Может быть nil.
type Events interface {
	PublishFlowSaved(ctx context.Context, flow domain.Flow) error
}

// Saver переносит содержимое Workspace в Repository.
//
// Save — явное действие пользователя: висячие рёбра удаляются, flow
// пишется в хранилище, публикуется событие, needsSave сбрасывается.
type Saver struct {
	ws     *Workspace
	repo   Repository
	events Events
	logger *slog.Logger
	now    func() time.Time
}

// SaverConfig — конфигурация Saver.
type SaverConfig struct {
	Workspace  *Workspace
	Repository Repository
	Events     Events // опционально
	Logger     *slog.Logger
}

// NewSaver создаёт Saver.
func NewSaver(cfg SaverConfig) *Saver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Saver{
		ws:     cfg.Workspace,
		repo:   cfg.Repository,
		events: cfg.Events,
		logger: logger,
		now:    time.Now,
	}
}

// Load заменяет проекты workspace содержимым хранилища.
// Пустое хранилище оставляет стартовый проект.
func (s *Saver) Load(ctx context.Context) error {
	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("load projects: %w", err)
	}
	if len(projects) == 0 {
		return nil
	}
	s.ws.SetProjects(projects)
	s.logger.Info("workspace loaded", "projects", len(projects))
	return nil
}

// Save сохраняет текущий flow.
func (s *Saver) Save(ctx context.Context) (domain.Flow, error) {
	flow, ok := s.ws.CurrentFlow()
	if !ok {
		return domain.Flow{}, ErrNoCurrentFlow
	}

	kept, dropped := engine.PruneDanglingEdges(flow.Nodes, flow.Edges)
	if len(dropped) > 0 {
		if err := s.ws.AddEdgeToFlow(kept); err != nil {
			return domain.Flow{}, err
		}
		s.logger.Warn("dropped dangling edges on save",
			"flow_id", flow.ID,
			"count", len(dropped),
		)
	}
	flow.Edges = kept
	flow.UpdatedAt = s.now().UTC()

	project, err := s.ws.Project(flow.ProjectID)
	if err != nil {
		return domain.Flow{}, err
	}
	project.Flows = nil
	if err := s.repo.SaveProject(ctx, project); err != nil {
		return domain.Flow{}, fmt.Errorf("save project: %w", err)
	}
	if err := s.repo.SaveFlow(ctx, flow); err != nil {
		return domain.Flow{}, fmt.Errorf("save flow: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishFlowSaved(ctx, flow); err != nil {
			// Событие вторично: flow уже сохранён
			s.logger.Error("failed to publish flow.saved", "flow_id", flow.ID, "error", err)
		}
	}

	s.ws.Save()
	s.logger.Info("flow saved", "flow_id", flow.ID, "nodes", len(flow.Nodes), "edges", len(flow.Edges))
	return flow, nil
}

// SaveProject сохраняет метаданные проекта.
func (s *Saver) SaveProject(ctx context.Context, project domain.Project) error {
	project.Flows = nil
	if err := s.repo.SaveProject(ctx, project); err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	return nil
}

// DeleteFlow удаляет flow из хранилища.
func (s *Saver) DeleteFlow(ctx context.Context, projectID, flowID string) error {
	if err := s.repo.DeleteFlow(ctx, projectID, flowID); err != nil {
		return fmt.Errorf("delete flow: %w", err)
	}
	return nil
}

// DeleteProject удаляет проект вместе с его flows.
func (s *Saver) DeleteProject(ctx context.Context, projectID string) error {
	if err := s.repo.DeleteProject(ctx, projectID); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}
