package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Wireflow/internal/domain"
	"github.com/shaiso/Wireflow/internal/executor"
	"github.com/shaiso/Wireflow/internal/mq"
	"github.com/shaiso/Wireflow/internal/telemetry"
)

// ProjectLister — источник сохранённых flow.
type ProjectLister interface {
	ListProjects(ctx context.Context) ([]domain.Project, error)
}

// Queue — очередь запусков для воркера. *mq.Publisher реализует Queue.
type Queue interface {
	PublishScheduleFired(ctx context.Context, payload mq.ScheduleFiredPayload) error
}

// Leader — выбор единственного активного планировщика.
type Leader interface {
	TryLead(ctx context.Context) (bool, error)
}

// entry — вычисленный следующий запуск одного schedule-trigger.
type entry struct {
	// fingerprint — state узла, по которому вычислен next.
	// Изменение конфигурации пересчитывает расписание.
	fingerprint string
	next        time.Time
}

// Scheduler — планировщик schedule-триггеров сохранённых flow.
//
// Расписания хранятся только в памяти: после рестарта следующий запуск
// вычисляется заново от текущего времени, пропущенные запуски не
// догоняются.
type Scheduler struct {
	flows  ProjectLister
	queue  Queue
	leader Leader
	logger *slog.Logger
	now    func() time.Time

	entries map[string]entry
}

// Config — конфигурация Scheduler.
type Config struct {
	Flows  ProjectLister
	Queue  Queue
	Leader Leader // опционально; без него экземпляр всегда лидер
	Logger *slog.Logger
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		flows:   cfg.Flows,
		queue:   cfg.Queue,
		leader:  cfg.Leader,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

// Run вызывает Tick с интервалом interval до отмены ctx.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	tk := time.NewTicker(interval)
	defer tk.Stop()

	for {
		select {
		case <-tk.C:
			if err := s.Tick(ctx); err != nil {
				s.logger.Error("scheduler tick failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Tick выполняет один тик планировщика.
//
//  1. Проверяет лидерство; не лидер пропускает тик
//  2. Загружает все сохранённые flow
//  3. Для каждого активного schedule-trigger вычисляет следующий запуск
//  4. Наступившие запуски публикует в schedules.fired
//
// Ошибки одного узла не блокируют обработку остальных.
func (s *Scheduler) Tick(ctx context.Context) error {
	if s.leader != nil {
		ok, err := s.leader.TryLead(ctx)
		if err != nil {
			return fmt.Errorf("leader election: %w", err)
		}
		if !ok {
			return nil
		}
	}

	projects, err := s.flows.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}

	now := s.now()
	seen := make(map[string]bool, len(s.entries))
	var fired int

	for _, p := range projects {
		for _, f := range p.Flows {
			for _, n := range f.Nodes {
				if n.Type != domain.KindScheduleTrigger {
					continue
				}
				key := f.ID + "/" + n.ID
				seen[key] = true

				if s.processNode(ctx, key, f.ID, n, now) {
					fired++
				}
			}
		}
	}

	// Удалённые узлы и flow забываются.
	for key := range s.entries {
		if !seen[key] {
			delete(s.entries, key)
		}
	}

	if fired > 0 {
		s.logger.Info("scheduler tick completed", "schedules", len(s.entries), "fired", fired)
	}
	return nil
}

// processNode обновляет расписание узла и публикует наступивший запуск.
// Возвращает true, если запуск опубликован.
func (s *Scheduler) processNode(ctx context.Context, key, flowID string, n domain.Node, now time.Time) bool {
	logger := telemetry.WithNodeID(telemetry.WithFlowID(s.logger, flowID), n.ID, string(n.Type))

	var state domain.ScheduleState
	if err := domain.DecodeState(n.Type, n.Data.State, &state); err != nil {
		logger.Debug("invalid schedule state, skipping", "error", err)
		delete(s.entries, key)
		return false
	}
	if state.ScheduleStatus == domain.SchedulePaused {
		delete(s.entries, key)
		return false
	}

	fp := fingerprint(state)
	e, ok := s.entries[key]
	if !ok || e.fingerprint != fp {
		next, err := executor.NextRun(state, now)
		if err != nil {
			logger.Warn("failed to calculate next run", "error", err)
			delete(s.entries, key)
			return false
		}
		s.entries[key] = entry{fingerprint: fp, next: next}
		return false
	}

	// Нулевое время: разовый запуск уже прошёл.
	if e.next.IsZero() || now.Before(e.next) {
		return false
	}

	err := s.queue.PublishScheduleFired(ctx, mq.ScheduleFiredPayload{
		FlowID: flowID,
		NodeID: n.ID,
		DueAt:  e.next,
	})
	telemetry.ObserveScheduleFired(err)
	if err != nil {
		// Запуск остаётся наступившим и будет опубликован на следующем тике.
		logger.Warn("failed to publish schedule.fired", "due_at", e.next, "error", err)
		return false
	}

	next, err := executor.NextRun(state, now)
	if err != nil {
		logger.Warn("failed to calculate next run", "error", err)
		delete(s.entries, key)
		return true
	}
	s.entries[key] = entry{fingerprint: fp, next: next}

	logger.Info("schedule fired", "due_at", e.next, "next_run_at", next)
	return true
}

func fingerprint(state domain.ScheduleState) string {
	b, _ := json.Marshal(state)
	return string(b)
}
