package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Статусы выполнения узла для метрик.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

var (
	nodeExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wireflow_node_executions_total",
		Help: "Node executions by node type and status",
	}, []string{"node_type", "status"})

	nodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wireflow_node_execution_duration_seconds",
		Help:    "Node execution duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"node_type"})

	historyOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wireflow_history_operations_total",
		Help: "Editor history operations (record, undo, redo)",
	}, []string{"op"})

	flowSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wireflow_flow_saves_total",
		Help: "Explicit flow saves by status",
	}, []string{"status"})

	triggerDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wireflow_trigger_deliveries_total",
		Help: "Trigger deliveries processed by the worker",
	}, []string{"trigger", "status"})

	scheduleFires = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wireflow_schedule_fires_total",
		Help: "Schedule triggers enqueued by the scheduler",
	}, []string{"status"})

	amqpReconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wireflow_amqp_reconnect_attempts_total",
		Help: "RabbitMQ reconnect attempts by status",
	}, []string{"status"})
)

// ObserveNodeExecution записывает выполнение узла.
func ObserveNodeExecution(nodeType string, err error, d time.Duration) {
	nodeExecutions.WithLabelValues(nodeType, status(err)).Inc()
	nodeDuration.WithLabelValues(nodeType).Observe(d.Seconds())
}

// ObserveHistoryOp записывает операцию журнала правок.
func ObserveHistoryOp(op string) {
	historyOps.WithLabelValues(op).Inc()
}

// ObserveFlowSave записывает сохранение flow.
func ObserveFlowSave(err error) {
	flowSaves.WithLabelValues(status(err)).Inc()
}

// ObserveTriggerDelivery записывает обработку запуска триггера воркером.
func ObserveTriggerDelivery(trigger string, err error) {
	triggerDeliveries.WithLabelValues(trigger, status(err)).Inc()
}

// ObserveScheduleFired записывает постановку запуска расписания в очередь.
func ObserveScheduleFired(err error) {
	scheduleFires.WithLabelValues(status(err)).Inc()
}

// ObserveAMQPReconnect записывает попытку восстановить соединение с брокером.
func ObserveAMQPReconnect(err error) {
	amqpReconnects.WithLabelValues(status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return StatusFailed
	}
	return StatusSucceeded
}
