package executor

import (
	"context"

	"github.com/shaiso/Wireflow/internal/domain"
)

// TextExecutor — executor узла text-other-tool.
//
// Output: {label: значение поля после подстановки шаблонов}.
type TextExecutor struct{}

// Execute собирает поля.
func (e *TextExecutor) Execute(_ context.Context, req *Request) (*Result, error) {
	var state domain.TextState
	if err := resolveState(req, &state); err != nil {
		return nil, err
	}

	out := make(map[string]any, len(state.Fields))
	for _, f := range state.Fields {
		out[f.Label] = f.Value
	}
	return &Result{Output: out}, nil
}
