// Package worker — исполнитель запусков webhook- и schedule-триггеров.
//
// Worker потребляет очереди webhooks.received и schedules.fired. Для
// каждого сообщения:
//
//  1. Загружает сохранённый flow из хранилища.
//  2. Выполняет узел-триггер: webhook-trigger получает тело, заголовки
//     и query-параметры вызова, schedule-trigger вычисляет следующий запуск.
//  3. Выполняет достижимые из триггера узлы в топологическом порядке,
//     останавливаясь на первой ошибке.
//  4. Сохраняет flow с новыми output/error узлов и подтверждает сообщение.
//
// Ошибка выполнения узла не приводит к повторной доставке: она уже
// записана в узел. Отсутствующий flow или узел, а также несовпадение
// типа триггера — неисправимые ошибки, сообщение уходит в DLQ. Ошибки
// хранилища возвращают сообщение в очередь.
package worker
