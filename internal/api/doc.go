// Package api содержит HTTP API сервер редактора.
//
// Структура:
//   - handler.go          — Handler с DI (сессия редактора, очередь webhook'ов, logger)
//   - routes.go           — регистрация маршрутов
//   - middleware.go       — middleware (logging, recovery)
//   - response.go         — унифицированные JSON-ответы и обработка ошибок
//   - dto.go              — Data Transfer Objects (request/response)
//   - project_handler.go  — обработчики для /projects и /flows
//   - canvas_handler.go   — обработчики для /canvas (граф, undo/redo, запуск)
//   - webhook_handler.go  — приём вызовов webhook-триггеров
//
// Все операции над графом идут через editor.Session, которая
// сериализует их. Токен из Authorization передаётся в запросы
// credential'ов при выполнении узлов.
package api
