package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Wireflow/internal/canvas"
	"github.com/shaiso/Wireflow/internal/domain"
	"github.com/shaiso/Wireflow/internal/engine"
	"github.com/shaiso/Wireflow/internal/executor"
	"github.com/shaiso/Wireflow/internal/mq"
	"github.com/shaiso/Wireflow/internal/repo"
	"github.com/shaiso/Wireflow/internal/telemetry"
)

const defaultPrefetch = 5

// FlowStore — часть хранилища, нужная воркеру.
type FlowStore interface {
	GetFlow(ctx context.Context, flowID string) (domain.Flow, error)
	SaveFlow(ctx context.Context, flow domain.Flow) error
}

// Worker выполняет запуски webhook- и schedule-триггеров.
//
// Stateless: несколько экземпляров могут потреблять одни очереди.
// Запуски одного flow, обработанные параллельно разными экземплярами,
// сохраняются по принципу "последний пишет".
type Worker struct {
	flows      FlowStore
	dispatcher *executor.Dispatcher
	notifier   executor.Notifier
	conn       *mq.Connection
	consumers  []*mq.Consumer
	prefetch   int
	now        func() time.Time

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Worker.
type Config struct {
	Flows FlowStore

	// Dispatcher — executors узлов (опционально; по умолчанию NewDispatcher).
	Dispatcher *executor.Dispatcher

	// Notifier — уведомления о выполнении узлов (опционально).
	Notifier executor.Notifier

	Conn     *mq.Connection
	Prefetch int

	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dispatcher := cfg.Dispatcher
	if dispatcher == nil {
		dispatcher = executor.NewDispatcher(executor.DispatcherConfig{})
	}
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}

	return &Worker{
		flows:      cfg.Flows,
		dispatcher: dispatcher,
		notifier:   cfg.Notifier,
		conn:       cfg.Conn,
		prefetch:   prefetch,
		now:        time.Now,
		logger:     logger,
	}
}

// Start запускает consumers очередей webhooks.received и schedules.fired.
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	queues := []struct {
		queue   mq.Queue
		handler mq.Handler
	}{
		{mq.QueueWebhooksReceived, w.handleWebhookReceived},
		{mq.QueueSchedulesFired, w.handleScheduleFired},
	}

	for _, q := range queues {
		consumer := mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
			Queue:    string(q.queue),
			Handler:  q.handler,
			Prefetch: w.prefetch,
		})
		w.consumers = append(w.consumers, consumer)

		w.wg.Add(1)
		go func(queue mq.Queue) {
			defer w.wg.Done()
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("consumer error", "queue", queue, "error", err)
			}
		}(q.queue)
	}

	w.logger.Info("worker started",
		"queues", []mq.Queue{mq.QueueWebhooksReceived, mq.QueueSchedulesFired},
		"prefetch", w.prefetch,
	)
	return nil
}

// Stop останавливает Worker и ждёт завершения обработки.
func (w *Worker) Stop() {
	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	for _, c := range w.consumers {
		c.Stop()
	}
	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// handleWebhookReceived обрабатывает одно сообщение webhooks.received.
func (w *Worker) handleWebhookReceived(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.WebhookReceivedPayload](&delivery.Message)
	if err != nil {
		telemetry.ObserveTriggerDelivery(string(domain.KindWebhookTrigger), err)
		return mq.Permanent(err)
	}

	err = w.Process(ctx, payload)
	telemetry.ObserveTriggerDelivery(string(domain.KindWebhookTrigger), err)
	return classify(err)
}

// handleScheduleFired обрабатывает одно сообщение schedules.fired.
func (w *Worker) handleScheduleFired(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.ScheduleFiredPayload](&delivery.Message)
	if err != nil {
		telemetry.ObserveTriggerDelivery(string(domain.KindScheduleTrigger), err)
		return mq.Permanent(err)
	}

	err = w.ProcessSchedule(ctx, payload)
	telemetry.ObserveTriggerDelivery(string(domain.KindScheduleTrigger), err)
	return classify(err)
}

// classify помечает ошибки, которые повторная доставка не исправит.
func classify(err error) error {
	if errors.Is(err, ErrFlowNotFound) || errors.Is(err, ErrNodeNotFound) || errors.Is(err, ErrTriggerMismatch) {
		return mq.Permanent(err)
	}
	return err
}

// Process выполняет webhook-триггер и достижимые из него узлы,
// затем сохраняет flow.
func (w *Worker) Process(ctx context.Context, payload mq.WebhookReceivedPayload) error {
	return w.fire(ctx, payload.FlowID, payload.NodeID, domain.KindWebhookTrigger, payload.Delivery)
}

// ProcessSchedule выполняет schedule-триггер и достижимые из него узлы.
// Приостановленное расписание пропускается без ошибки.
func (w *Worker) ProcessSchedule(ctx context.Context, payload mq.ScheduleFiredPayload) error {
	return w.fire(ctx, payload.FlowID, payload.NodeID, domain.KindScheduleTrigger, nil)
}

func (w *Worker) fire(ctx context.Context, flowID, nodeID string, kind domain.NodeKind, payload any) error {
	logger := telemetry.WithFlowID(w.logger, flowID)

	flow, err := w.flows.GetFlow(ctx, flowID)
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrFlowNotFound, flowID)
	}
	if err != nil {
		return fmt.Errorf("get flow: %w", err)
	}

	trigger, ok := flow.Node(nodeID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	if trigger.Type != kind {
		return fmt.Errorf("%w: %s is %s, want %s", ErrTriggerMismatch, trigger.ID, trigger.Type, kind)
	}
	if kind == domain.KindScheduleTrigger && paused(trigger) {
		logger.Info("schedule is paused, skipping", "node_id", trigger.ID)
		return nil
	}

	order, err := runOrder(flow, trigger.ID)
	if err != nil {
		return mq.Permanent(err)
	}

	graph := canvas.New(flow.Nodes, flow.Edges)
	runner := executor.NewRunner(executor.RunnerConfig{
		Graph:      graph,
		Dispatcher: w.dispatcher,
		Notifier:   w.notifier,
		Logger:     logger,
	})

	executed := 0
	for _, id := range order {
		opts := executor.RunOptions{FlowID: flow.ID}
		if id == trigger.ID {
			opts.Payload = payload
		}
		if _, err := runner.Run(ctx, id, opts); err != nil {
			var execErr *executor.ExecutionError
			if !errors.As(err, &execErr) {
				return fmt.Errorf("run node %s: %w", id, err)
			}
			logger.Warn("triggered flow stopped on failed node", "node_id", id, "error", execErr.Message())
			break
		}
		executed++
	}

	flow.Nodes = graph.GetNodes()
	flow.UpdatedAt = w.now().UTC()
	if err := w.flows.SaveFlow(ctx, flow); err != nil {
		return fmt.Errorf("save flow: %w", err)
	}

	logger.Info("trigger processed",
		"node_id", trigger.ID,
		"trigger", kind,
		"executed", executed,
		"reachable", len(order),
	)
	return nil
}

func paused(n domain.Node) bool {
	var state domain.ScheduleState
	if err := domain.DecodeState(n.Type, n.Data.State, &state); err != nil {
		return false
	}
	return state.ScheduleStatus == domain.SchedulePaused
}

// runOrder возвращает триггер и достижимые из него узлы в
// топологическом порядке flow.
func runOrder(flow domain.Flow, triggerID string) ([]string, error) {
	all, err := engine.RunOrder(flow)
	if err != nil {
		return nil, err
	}

	reach := map[string]bool{triggerID: true}
	queue := []string{triggerID}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range flow.Edges {
			if e.Source == cur && !reach[e.Target] {
				reach[e.Target] = true
				queue = append(queue, e.Target)
			}
		}
	}

	order := make([]string, 0, len(reach))
	for _, id := range all {
		if reach[id] {
			order = append(order, id)
		}
	}
	return order, nil
}
