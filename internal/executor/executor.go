package executor

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shaiso/Wireflow/internal/domain"
	"github.com/shaiso/Wireflow/internal/engine"
)

// Executor — интерфейс выполнения узла конкретного типа.
//
// Реализации получают уже построенный входной контекст и сами
// резолвят шаблоны своего state до внешнего вызова.
type Executor interface {
	Execute(ctx context.Context, req *Request) (*Result, error)
}

// Request — вход одного выполнения узла.
type Request struct {
	// Node — копия узла на момент запуска.
	Node domain.Node

	// Input — входной контекст {тип предка: вывод}. nil для триггеров.
	Input map[string]any

	// Token — токен пользователя для запроса credential'ов.
	Token string

	// Payload — внешние данные триггера (поля формы, тело webhook'а).
	Payload any
}

// Result — результат успешного выполнения.
type Result struct {
	// Output — новое значение data.output узла.
	Output any
}

// Dispatcher выбирает executor по типу узла.
type Dispatcher struct {
	http      *HTTPExecutor
	condition *ConditionExecutor
	script    *ScriptExecutor
	mail      *MailExecutor
	manual    *ManualTriggerExecutor
	form      *FormTriggerExecutor
	webhook   *WebhookTriggerExecutor
	schedule  *ScheduleTriggerExecutor
	sleep     *SleepExecutor
	text      *TextExecutor
}

// DispatcherConfig — зависимости executor'ов.
type DispatcherConfig struct {
	// HTTPClient — клиент для исходящих запросов. По умолчанию с таймаутом 30s.
	HTTPClient *http.Client

	// Credentials — источник секретов для авторизации запросов.
	Credentials CredentialResolver

	// Scripts — среда выполнения javascript-узлов. По умолчанию GojaHost.
	Scripts ScriptHost

	// MailEndpoint — адрес API отправки писем. По умолчанию Resend.
	MailEndpoint string

	// Now — источник времени для триггеров. По умолчанию time.Now.
	Now func() time.Time
}

// NewDispatcher создаёт диспетчер со всеми executor'ами движка.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	scripts := cfg.Scripts
	if scripts == nil {
		scripts = NewGojaHost()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	httpExec := &HTTPExecutor{Client: client, Credentials: cfg.Credentials}
	return &Dispatcher{
		http:      httpExec,
		condition: &ConditionExecutor{},
		script:    &ScriptExecutor{Host: scripts},
		mail:      &MailExecutor{HTTP: httpExec, Endpoint: cfg.MailEndpoint},
		manual:    &ManualTriggerExecutor{Now: now},
		form:      &FormTriggerExecutor{Now: now},
		webhook:   &WebhookTriggerExecutor{Now: now},
		schedule:  &ScheduleTriggerExecutor{Now: now},
		sleep:     &SleepExecutor{},
		text:      &TextExecutor{},
	}
}

// For возвращает executor для типа узла.
//
// Каждый тип перечислен явно: новый NodeKind без ветки здесь
// попадает в default и отклоняется как неизвестный.
func (d *Dispatcher) For(kind domain.NodeKind) (Executor, error) {
	switch kind {
	case domain.KindHTTP:
		return d.http, nil
	case domain.KindConditional:
		return d.condition, nil
	case domain.KindScript:
		return d.script, nil
	case domain.KindMail:
		return d.mail, nil
	case domain.KindManualTrigger:
		return d.manual, nil
	case domain.KindFormTrigger:
		return d.form, nil
	case domain.KindWebhookTrigger:
		return d.webhook, nil
	case domain.KindScheduleTrigger:
		return d.schedule, nil
	case domain.KindSleep:
		return d.sleep, nil
	case domain.KindText:
		return d.text, nil
	case domain.KindNewFlow:
		return nil, fmt.Errorf("%w: %s", ErrNotExecutable, kind)
	case domain.KindOpenAITool, domain.KindGeminiTool, domain.KindMemoryTool,
		domain.KindToolsTool, domain.KindNotion, domain.KindWebhook:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownNodeKind, kind)
	}
}

// resolveState подставляет входной контекст в state узла и декодирует
// результат в типизированную структуру.
func resolveState(req *Request, dst any) error {
	resolved := engine.ResolveMap(req.Node.Data.State, req.Input)
	return domain.DecodeState(req.Node.Type, resolved, dst)
}
