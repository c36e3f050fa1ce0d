package executor

import (
	"context"
	"time"

	"github.com/shaiso/Wireflow/internal/domain"
)

// SleepExecutor — executor узла sleep-other-tool.
//
// Ожидает durationSec секунд. Поддерживает отмену через context.
//
// Output: {slept_sec}.
type SleepExecutor struct{}

// Execute выполняет задержку.
func (e *SleepExecutor) Execute(ctx context.Context, req *Request) (*Result, error) {
	var state domain.SleepState
	if err := resolveState(req, &state); err != nil {
		return nil, err
	}

	duration := time.Duration(state.DurationSec * float64(time.Second))
	if duration <= 0 {
		return &Result{Output: map[string]any{"slept_sec": 0.0}}, nil
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	// Context-aware ожидание
	select {
	case <-timer.C:
		return &Result{Output: map[string]any{"slept_sec": state.DurationSec}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
