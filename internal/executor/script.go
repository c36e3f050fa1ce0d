package executor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shaiso/Wireflow/internal/domain"
	"github.com/shaiso/Wireflow/internal/engine"
)

// ScriptHost — среда выполнения пользовательского javascript.
type ScriptHost interface {
	// Call компилирует code, вызывает функцию fn с аргументом input и
	// возвращает результат, приведённый к Go-значениям.
	Call(ctx context.Context, code, fn string, input any) (any, error)
}

// ScriptExecutor — executor узла javascript-programming-tool.
//
// testInput разбирается как JSON, после чего шаблоны в его значениях
// подставляются из входного контекста. Код не резолвится.
type ScriptExecutor struct {
	Host ScriptHost
}

// Execute выполняет функцию скрипта.
func (e *ScriptExecutor) Execute(ctx context.Context, req *Request) (*Result, error) {
	var state domain.ScriptState
	if err := domain.DecodeState(req.Node.Type, req.Node.Data.State, &state); err != nil {
		return nil, err
	}

	var input any
	if err := json.Unmarshal([]byte(state.Input()), &input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	input = engine.Resolve(input, req.Input)

	if e.Host == nil {
		return nil, fmt.Errorf("%w: no script host configured", ErrScript)
	}
	out, err := e.Host.Call(ctx, state.Code, state.Function(), input)
	if err != nil {
		return nil, err
	}
	return &Result{Output: out}, nil
}
