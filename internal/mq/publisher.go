package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Wireflow/internal/domain"
	"github.com/shaiso/Wireflow/internal/executor"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeFlowSaved       MessageType = "flow.saved"
	MessageTypeNodeExecuted    MessageType = "node.executed"
	MessageTypeWebhookReceived MessageType = "webhook.received"
	MessageTypeScheduleFired   MessageType = "schedule.fired"
)

// Broker — публикация AMQP сообщений. *Connection реализует Broker.
type Broker interface {
	Publish(ctx context.Context, exchange Exchange, key RoutingKey, msg amqp.Publishing) error
}

// Message — конверт сообщения.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// FlowSavedPayload — payload события flow.saved.
type FlowSavedPayload struct {
	FlowID    string    `json:"flow_id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	Nodes     int       `json:"nodes"`
	Edges     int       `json:"edges"`
	SavedAt   time.Time `json:"saved_at"`
}

// WebhookReceivedPayload — payload вызова webhook-триггера.
type WebhookReceivedPayload struct {
	FlowID   string                   `json:"flow_id"`
	NodeID   string                   `json:"node_id"`
	Delivery executor.WebhookDelivery `json:"delivery"`
}

// ScheduleFiredPayload — payload наступившего запуска schedule-trigger.
type ScheduleFiredPayload struct {
	FlowID string    `json:"flow_id"`
	NodeID string    `json:"node_id"`
	DueAt  time.Time `json:"due_at"`
}

// Publisher публикует события Wireflow.
//
// Реализует store.Events (flow.saved) и executor.Notifier (node.executed).
type Publisher struct {
	broker Broker
	logger *slog.Logger
	now    func() time.Time
}

var _ executor.Notifier = (*Publisher)(nil)

// NewPublisher создаёт новый Publisher.
func NewPublisher(broker Broker, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		broker: broker,
		logger: logger,
		now:    time.Now,
	}
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = p.broker.Publish(ctx, exchange, routingKey, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
		MessageId:    msg.ID,
		Type:         string(msg.Type),
		Timestamp:    msg.Timestamp,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
	}

	p.logger.Debug("published message",
		"exchange", exchange,
		"routing_key", routingKey,
		"message_id", msg.ID,
		"type", msg.Type,
	)
	return nil
}

// PublishFlowSaved публикует событие о сохранении flow.
func (p *Publisher) PublishFlowSaved(ctx context.Context, flow domain.Flow) error {
	savedAt := flow.UpdatedAt
	if savedAt.IsZero() {
		savedAt = p.now().UTC()
	}
	return p.publishJSON(ctx, ExchangeEvents, RoutingKeyFlowSaved, MessageTypeFlowSaved, FlowSavedPayload{
		FlowID:    flow.ID,
		ProjectID: flow.ProjectID,
		Name:      flow.Name,
		Nodes:     len(flow.Nodes),
		Edges:     len(flow.Edges),
		SavedAt:   savedAt,
	})
}

// Notify публикует событие node.executed.
func (p *Publisher) Notify(ctx context.Context, exec executor.Execution) error {
	return p.publishJSON(ctx, ExchangeEvents, RoutingKeyNodeExecuted, MessageTypeNodeExecuted, exec)
}

// PublishWebhookReceived ставит вызов webhook-триггера в очередь воркера.
func (p *Publisher) PublishWebhookReceived(ctx context.Context, payload WebhookReceivedPayload) error {
	return p.publishJSON(ctx, ExchangeTriggers, RoutingKeyWebhook, MessageTypeWebhookReceived, payload)
}

// PublishScheduleFired ставит запуск schedule-trigger в очередь воркера.
func (p *Publisher) PublishScheduleFired(ctx context.Context, payload ScheduleFiredPayload) error {
	return p.publishJSON(ctx, ExchangeTriggers, RoutingKeySchedule, MessageTypeScheduleFired, payload)
}

func (p *Publisher) publishJSON(ctx context.Context, exchange Exchange, routingKey RoutingKey, msgType MessageType, payload any) error {
	msg := &Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: p.now().UTC(),
	}
	return p.Publish(ctx, exchange, routingKey, msg)
}
