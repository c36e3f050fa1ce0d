package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeEvents   Exchange = "wireflow.events"
	ExchangeTriggers Exchange = "wireflow.triggers"
	ExchangeDLQ      Exchange = "wireflow.dlq"
)

// Queues — имена очередей.
const (
	QueueFlowsSaved       Queue = "flows.saved"
	QueueNodesExecuted    Queue = "nodes.executed"
	QueueWebhooksReceived Queue = "webhooks.received"
	QueueSchedulesFired   Queue = "schedules.fired"
	QueueDLQTriggers      Queue = "dlq.triggers"
)

// Routing keys.
const (
	RoutingKeyFlowSaved    RoutingKey = "flow.saved"
	RoutingKeyNodeExecuted RoutingKey = "node.executed"
	RoutingKeyWebhook      RoutingKey = "webhook"
	RoutingKeySchedule     RoutingKey = "schedule"
	RoutingKeyDLQTriggers  RoutingKey = "triggers"
)

// SetupTopology объявляет обменники, очереди и привязки. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, DeclareTopology)
}

// DeclareTopology объявляет топологию на канале ch. Подходит как
// ConnectionConfig.OnReconnect.
func DeclareTopology(ch *amqp.Channel) error {
	if err := declareExchanges(ch); err != nil {
		return err
	}
	if err := declareQueues(ch); err != nil {
		return err
	}
	return bindQueues(ch)
}

func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangeEvents, "topic"},
		{ExchangeTriggers, "direct"},
		{ExchangeDLQ, "direct"},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}
	return nil
}

func declareQueues(ch *amqp.Channel) error {
	// Отклонённые без requeue запуски триггеров уходят в DLQ.
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQTriggers),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		{QueueFlowsSaved, nil},
		{QueueNodesExecuted, nil},
		{QueueWebhooksReceived, dlqArgs},
		{QueueSchedulesFired, dlqArgs},
		{QueueDLQTriggers, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}
	return nil
}

func bindQueues(ch *amqp.Channel) error {
	for _, b := range bindings() {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}
	return nil
}

type binding struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
}

func bindings() []binding {
	return []binding{
		{QueueFlowsSaved, RoutingKeyFlowSaved, ExchangeEvents},
		{QueueNodesExecuted, RoutingKeyNodeExecuted, ExchangeEvents},
		{QueueWebhooksReceived, RoutingKeyWebhook, ExchangeTriggers},
		{QueueSchedulesFired, RoutingKeySchedule, ExchangeTriggers},
		{QueueDLQTriggers, RoutingKeyDLQTriggers, ExchangeDLQ},
	}
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Wireflow RabbitMQ Topology:

    wireflow.events (topic)
    ├── flows.saved [routing: flow.saved]
    └── nodes.executed [routing: node.executed]

    wireflow.triggers (direct)
    ├── webhooks.received [routing: webhook]
    │       Producer: API, Consumer: Worker
    │       DLQ: dlq.triggers
    └── schedules.fired [routing: schedule]
            Producer: Scheduler, Consumer: Worker
            DLQ: dlq.triggers

    wireflow.dlq (direct)
    └── dlq.triggers [routing: triggers]
            Manual processing
  `
}
