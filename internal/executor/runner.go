package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/shaiso/Wireflow/internal/domain"
	"github.com/shaiso/Wireflow/internal/engine"
	"github.com/shaiso/Wireflow/internal/telemetry"
)

// ErrNodeNotFound — узел для запуска отсутствует в графе.
var ErrNodeNotFound = errors.New("node not found")

// GraphStore — граф, над которым работает Runner.
type GraphStore interface {
	GetNodes() []domain.Node
	GetEdges() []domain.Edge
	UpdateNodeData(id string, data domain.NodeData) error
}

// RunOptions — параметры запуска.
type RunOptions struct {
	// FlowID попадает в уведомления и логи.
	FlowID string

	// Token — токен пользователя для credential'ов.
	Token string

	// Payload — внешние данные для триггеров.
	Payload any
}

// Runner — граница выполнения узла.
//
// Строит входной контекст, вызывает executor и записывает результат
// обратно в граф: успех заменяет output и очищает error, ошибка
// записывает error и сохраняет последний успешный output. Повторов нет.
type Runner struct {
	graph      GraphStore
	dispatcher *Dispatcher
	notifier   Notifier
	logger     *slog.Logger
	now        func() time.Time
}

// RunnerConfig — конфигурация Runner.
type RunnerConfig struct {
	Graph      GraphStore
	Dispatcher *Dispatcher // опционально; по умолчанию NewDispatcher с пустым конфигом
	Notifier   Notifier    // опционально
	Logger     *slog.Logger
}

// NewRunner создаёт Runner.
func NewRunner(cfg RunnerConfig) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dispatcher := cfg.Dispatcher
	if dispatcher == nil {
		dispatcher = NewDispatcher(DispatcherConfig{})
	}
	return &Runner{
		graph:      cfg.Graph,
		dispatcher: dispatcher,
		notifier:   cfg.Notifier,
		logger:     logger,
		now:        time.Now,
	}
}

// Run выполняет один узел.
//
// Возвращает *ExecutionError, если executor завершился ошибкой; в этом
// случае error узла уже записан. Placeholder не выполняется и не
// изменяется.
func (r *Runner) Run(ctx context.Context, nodeID string, opts RunOptions) (*Result, error) {
	nodes := r.graph.GetNodes()
	edges := r.graph.GetEdges()

	var node domain.Node
	found := false
	for _, n := range nodes {
		if n.ID == nodeID {
			node, found = n, true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}

	exec, err := r.dispatcher.For(node.Type)
	if errors.Is(err, ErrNotExecutable) {
		return nil, err
	}

	logger := telemetry.WithNodeID(r.logger, node.ID, string(node.Type))
	if opts.FlowID != "" {
		logger = telemetry.WithFlowID(logger, opts.FlowID)
	}

	start := r.now()
	var result *Result
	if err == nil {
		// Резолв шаблонов выполняется внутри executor'а до внешнего вызова
		req := &Request{
			Node:    node.Clone(),
			Input:   engine.InputContext(node, nodes, edges),
			Token:   opts.Token,
			Payload: opts.Payload,
		}
		result, err = safeExecute(ctx, exec, req)
	}
	elapsed := r.now().Sub(start)
	telemetry.ObserveNodeExecution(string(node.Type), err, elapsed)

	data := node.Data.Clone()
	if err != nil {
		data.Error = err.Error()
	} else {
		data.Output = result.Output
		data.Error = ""
	}
	if werr := r.graph.UpdateNodeData(node.ID, data); werr != nil {
		return nil, fmt.Errorf("write node result: %w", werr)
	}

	r.notify(ctx, logger, Execution{
		FlowID:     opts.FlowID,
		NodeID:     node.ID,
		NodeType:   node.Type,
		Succeeded:  err == nil,
		Error:      data.Error,
		DurationMs: elapsed.Milliseconds(),
		FinishedAt: r.now().UTC(),
	})

	if err != nil {
		logger.Warn("node execution failed", "error", err)
		return nil, &ExecutionError{NodeID: node.ID, Kind: node.Type, Err: err}
	}

	logger.Info("node executed", "duration_ms", elapsed.Milliseconds())
	return result, nil
}

// RunFlow выполняет все узлы графа в топологическом порядке.
//
// Payload передаётся только триггерам. Выполнение останавливается на
// первой ошибке; возвращаются ID уже выполненных узлов.
func (r *Runner) RunFlow(ctx context.Context, opts RunOptions) ([]string, error) {
	flow := domain.Flow{
		ID:    opts.FlowID,
		Nodes: r.graph.GetNodes(),
		Edges: r.graph.GetEdges(),
	}
	order, err := engine.RunOrder(flow)
	if err != nil {
		return nil, err
	}

	kinds := make(map[string]domain.NodeKind, len(flow.Nodes))
	for _, n := range flow.Nodes {
		kinds[n.ID] = n.Type
	}

	done := make([]string, 0, len(order))
	for _, id := range order {
		if err := ctx.Err(); err != nil {
			return done, err
		}

		nodeOpts := opts
		if !kinds[id].IsTrigger() {
			nodeOpts.Payload = nil
		}
		if _, err := r.Run(ctx, id, nodeOpts); err != nil {
			return done, err
		}
		done = append(done, id)
	}
	return done, nil
}

func (r *Runner) notify(ctx context.Context, logger *slog.Logger, exec Execution) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(ctx, exec); err != nil {
		logger.Error("failed to send execution notification", "error", err)
	}
}

// safeExecute вызывает executor, переводя панику в ErrPanic.
func safeExecute(ctx context.Context, exec Executor, req *Request) (result *Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Default().Error("executor panic",
				"node_id", req.Node.ID,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			result, err = nil, fmt.Errorf("%w: %v", ErrPanic, rec)
		}
	}()

	result, err = exec.Execute(ctx, req)
	if err == nil && result == nil {
		result = &Result{}
	}
	return result, err
}
