package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dop251/goja"
)

// GojaHost — ScriptHost на встроенном интерпретаторе goja.
//
// Каждый вызов получает новый runtime: состояние между выполнениями
// не разделяется. Отмена ctx прерывает выполнение скрипта.
type GojaHost struct {
	logger *slog.Logger
}

// NewGojaHost создаёт GojaHost. console.log скрипта пишется в slog.Default().
func NewGojaHost() *GojaHost {
	return &GojaHost{logger: slog.Default()}
}

// WithLogger возвращает host, пишущий console.* в logger.
func (h *GojaHost) WithLogger(logger *slog.Logger) *GojaHost {
	return &GojaHost{logger: logger}
}

// Call выполняет функцию fn из code.
func (h *GojaHost) Call(ctx context.Context, code, fn string, input any) (result any, err error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	if err := h.installConsole(vm); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScript, err)
	}

	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt(ctx.Err())
	})
	defer stop()

	if _, err := vm.RunString(code); err != nil {
		return nil, scriptError(err)
	}

	callable, ok := goja.AssertFunction(vm.Get(fn))
	if !ok {
		return nil, fmt.Errorf("%w: function %q is not defined", ErrScript, fn)
	}

	value, err := callable(goja.Undefined(), vm.ToValue(input))
	if err != nil {
		return nil, scriptError(err)
	}
	return exportValue(value)
}

// installConsole добавляет объект console с log/info/warn/error.
func (h *GojaHost) installConsole(vm *goja.Runtime) error {
	logger := h.logger
	if logger == nil {
		logger = slog.Default()
	}

	console := vm.NewObject()
	levels := map[string]slog.Level{
		"log":   slog.LevelInfo,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for name, level := range levels {
		level := level
		if err := console.Set(name, func(call goja.FunctionCall) goja.Value {
			args := make([]any, 0, len(call.Arguments))
			for _, a := range call.Arguments {
				args = append(args, a.Export())
			}
			logger.Log(context.Background(), level, "script console", "args", args)
			return goja.Undefined()
		}); err != nil {
			return err
		}
	}
	return vm.Set("console", console)
}

// exportValue приводит JS-значение к Go. Promise разворачивается, если
// он уже завершён.
func exportValue(v goja.Value) (any, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	exported := v.Export()
	if p, ok := exported.(*goja.Promise); ok {
		switch p.State() {
		case goja.PromiseStateFulfilled:
			return exportValue(p.Result())
		case goja.PromiseStateRejected:
			return nil, fmt.Errorf("%w: %s", ErrScript, p.Result().String())
		default:
			return nil, fmt.Errorf("%w: promise did not settle", ErrScript)
		}
	}
	return exported, nil
}

// scriptError переводит ошибку goja в ErrScript с сообщением скрипта.
func scriptError(err error) error {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return fmt.Errorf("%w: %s", ErrScript, exc.Value().String())
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause, ok := interrupted.Value().(error); ok {
			return fmt.Errorf("%w: interrupted: %w", ErrScript, cause)
		}
		return fmt.Errorf("%w: interrupted", ErrScript)
	}
	return fmt.Errorf("%w: %v", ErrScript, err)
}
