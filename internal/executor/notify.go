package executor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Wireflow/internal/domain"
)

// Execution — итог одного выполнения узла.
type Execution struct {
	FlowID     string          `json:"flow_id,omitempty"`
	NodeID     string          `json:"node_id"`
	NodeType   domain.NodeKind `json:"node_type"`
	Succeeded  bool            `json:"succeeded"`
	Error      string          `json:"error,omitempty"`
	DurationMs int64           `json:"duration_ms"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Notifier получает уведомления о выполнении узлов.
//
// Вызывается после записи результата в узел. Ошибка уведомления
// не влияет на результат выполнения.
type Notifier interface {
	Notify(ctx context.Context, exec Execution) error
}

// LogNotifier пишет уведомления в лог: ошибки уровнем Error, успехи Debug.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify реализует Notifier.
func (n *LogNotifier) Notify(_ context.Context, exec Execution) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if !exec.Succeeded {
		logger.Error("node execution failed",
			"node_id", exec.NodeID,
			"node_type", exec.NodeType,
			"error", exec.Error,
		)
		return nil
	}
	logger.Debug("node executed",
		"node_id", exec.NodeID,
		"node_type", exec.NodeType,
		"duration_ms", exec.DurationMs,
	)
	return nil
}

// MultiNotifier рассылает уведомление всем получателям по очереди.
// Возвращает первую ошибку, остальные получатели всё равно вызываются.
type MultiNotifier []Notifier

// Notify реализует Notifier.
func (m MultiNotifier) Notify(ctx context.Context, exec Execution) error {
	var first error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, exec); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// RecordingNotifier запоминает уведомления. Используется в тестах.
type RecordingNotifier struct {
	mu   sync.Mutex
	sent []Execution
}

// Notify реализует Notifier.
func (r *RecordingNotifier) Notify(_ context.Context, exec Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, exec)
	return nil
}

// Executions возвращает копию полученных уведомлений.
func (r *RecordingNotifier) Executions() []Execution {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Execution, len(r.sent))
	copy(out, r.sent)
	return out
}
