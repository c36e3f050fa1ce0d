// Package scheduler запускает schedule-триггеры сохранённых flow.
//
// Сам движок расписания не исполняет: schedule-trigger только вычисляет
// следующий запуск. Scheduler — внешний участник, который периодически
// читает сохранённые flow, следит за наступлением запусков и ставит
// их в очередь schedules.fired. Выполняет flow воркер.
//
// Структура:
//   - scheduler.go — Tick, Run и учёт следующих запусков
//
// Использование:
//
//	sched := scheduler.New(scheduler.Config{
//	    Flows:  flowRepo,
//	    Queue:  publisher,
//	    Leader: leader, // опционально
//	    Logger: logger,
//	})
//
//	// Вызывает Tick раз в interval до отмены ctx
//	err := sched.Run(ctx, time.Second)
//
// Leader Election:
//
// Scheduler не реализует leader election самостоятельно. Для PostgreSQL
// лидер выбирается через pg_try_advisory_lock (repo.PostgresFlowRepo).
// С SQLite допускается только один экземпляр.
//
// Первый тик после старта или изменения state узла только вычисляет
// следующий запуск: запуск публикуется, когда его время наступило.
package scheduler
