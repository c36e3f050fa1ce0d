package executor

import (
	"context"
	"time"

	"github.com/shaiso/Wireflow/internal/domain"
)

// ManualTriggerExecutor — executor узла manual-trigger.
//
// Output: {triggeredAt} и payload, если он передан.
type ManualTriggerExecutor struct {
	Now func() time.Time
}

// Execute фиксирует ручной запуск.
func (e *ManualTriggerExecutor) Execute(_ context.Context, req *Request) (*Result, error) {
	out := map[string]any{"triggeredAt": timestamp(e.Now)}
	if req.Payload != nil {
		out["payload"] = domain.CloneValue(req.Payload)
	}
	return &Result{Output: out}, nil
}

// FormTriggerExecutor — executor узла form-trigger.
//
// Output: отправленные поля формы и submittedAt. Без payload используются
// значения полей из state.
type FormTriggerExecutor struct {
	Now func() time.Time
}

// Execute упаковывает данные формы.
func (e *FormTriggerExecutor) Execute(_ context.Context, req *Request) (*Result, error) {
	out := make(map[string]any)

	if submitted, ok := req.Payload.(map[string]any); ok {
		for k, v := range submitted {
			out[k] = domain.CloneValue(v)
		}
	} else {
		var state domain.FormState
		if err := domain.DecodeState(req.Node.Type, req.Node.Data.State, &state); err != nil {
			return nil, err
		}
		for _, f := range state.Fields {
			out[f.Label] = f.Value
		}
	}

	out["submittedAt"] = timestamp(e.Now)
	return &Result{Output: out}, nil
}

// WebhookDelivery — входящий запрос на webhook-trigger.
type WebhookDelivery struct {
	Body    any               `json:"body"`
	Headers map[string]string `json:"headers"`
	Query   map[string]string `json:"query"`
}

// WebhookTriggerExecutor — executor узла webhook-trigger.
//
// Внешних вызовов не делает. Output: {body, headers, query, receivedAt}.
type WebhookTriggerExecutor struct {
	Now func() time.Time
}

// Execute публикует доставленный webhook как вывод узла.
func (e *WebhookTriggerExecutor) Execute(_ context.Context, req *Request) (*Result, error) {
	var d WebhookDelivery
	switch p := req.Payload.(type) {
	case WebhookDelivery:
		d = p
	case *WebhookDelivery:
		if p != nil {
			d = *p
		}
	default:
		d.Body = p
	}

	headers := make(map[string]any, len(d.Headers))
	for k, v := range d.Headers {
		headers[k] = v
	}
	query := make(map[string]any, len(d.Query))
	for k, v := range d.Query {
		query[k] = v
	}

	return &Result{Output: map[string]any{
		"body":       domain.CloneValue(d.Body),
		"headers":    headers,
		"query":      query,
		"receivedAt": timestamp(e.Now),
	}}, nil
}

// ScheduleTriggerExecutor — executor узла schedule-trigger.
//
// Output: {scheduleType, active, firedAt, nextRunAt}. nextRunAt равен nil,
// если следующего запуска нет.
type ScheduleTriggerExecutor struct {
	Now func() time.Time
}

// Execute вычисляет следующий запуск.
func (e *ScheduleTriggerExecutor) Execute(_ context.Context, req *Request) (*Result, error) {
	var state domain.ScheduleState
	if err := domain.DecodeState(req.Node.Type, req.Node.Data.State, &state); err != nil {
		return nil, err
	}

	now := clock(e.Now)
	next, err := NextRun(state, now)
	if err != nil {
		return nil, err
	}

	var nextRunAt any
	if !next.IsZero() {
		nextRunAt = next.Format(time.RFC3339)
	}

	return &Result{Output: map[string]any{
		"scheduleType": state.ScheduleType,
		"active":       state.ScheduleStatus != domain.SchedulePaused,
		"firedAt":      now.UTC().Format(time.RFC3339),
		"nextRunAt":    nextRunAt,
	}}, nil
}

func clock(now func() time.Time) time.Time {
	if now == nil {
		return time.Now()
	}
	return now()
}

func timestamp(now func() time.Time) string {
	return clock(now).UTC().Format(time.RFC3339)
}
