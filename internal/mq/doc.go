// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — именованное соединение, восстановление канала и
//     соединения с backoff, повторное объявление топологии
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация событий Wireflow
//   - consumer.go   — потребление сообщений из очередей
//
// Типы сообщений:
//   - flow.saved       — flow сохранён пользователем
//   - node.executed    — узел выполнен (успешно или с ошибкой)
//   - webhook.received — внешний вызов webhook-триггера
//   - schedule.fired   — наступил запуск schedule-триггера
//
// Exchanges:
//   - wireflow.events   — события редактора и выполнения
//   - wireflow.triggers — запуски триггеров для воркера
//   - wireflow.dlq      — dead letter queue
package mq
