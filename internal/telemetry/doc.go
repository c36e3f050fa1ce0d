// Package telemetry — логирование и метрики сервисов Wireflow.
//
// logging.go настраивает slog по LOG_LEVEL и LOG_FORMAT и помечает записи
// именем сервиса. Логгер запроса передаётся через context (WithLogger,
// FromContext).
//
// metrics.go регистрирует Prometheus-метрики выполнения узлов, истории,
// сохранений и доставки триггеров. Сервисы отдают их на /metrics.
package telemetry
