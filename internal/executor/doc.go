// Package executor выполняет узлы flow.
//
// # Обзор
//
// Каждый тип узла с семантикой выполнения имеет свой Executor. Executor
// получает копию узла и входной контекст (выводы предков), подставляет
// шаблоны {{ $path }} в свой state и только после этого делает внешний
// вызов: HTTP-запрос, выполнение скрипта, отправку письма.
//
//	type Executor interface {
//	    Execute(ctx context.Context, req *Request) (*Result, error)
//	}
//
// Реализации:
//   - HTTPExecutor — http-programming-tool (заголовки, query, тело, авторизация)
//   - ConditionExecutor — conditional-other-tool, вывод {"condition": bool}
//   - ScriptExecutor — javascript-programming-tool через ScriptHost (GojaHost)
//   - MailExecutor — mail-other-tool, письмо через Resend API
//   - ManualTriggerExecutor, FormTriggerExecutor, WebhookTriggerExecutor,
//     ScheduleTriggerExecutor — стартовые узлы
//   - SleepExecutor, TextExecutor — вспомогательные узлы
//
// # Dispatcher
//
// Dispatcher.For выбирает executor явным switch по всем NodeKind.
// new-flow возвращает ErrNotExecutable, AI-инструменты, notion и
// webhook-programming-tool — ErrUnsupportedKind.
//
// # Runner
//
// Runner — граница выполнения. Он читает узлы и рёбра из GraphStore,
// строит входной контекст, выполняет executor и пишет результат обратно
// через UpdateNodeData:
//
//  1. Успех: output заменяется, error очищается
//  2. Ошибка: error записывается, последний успешный output сохраняется
//  3. Паника executor'а превращается в ErrPanic
//  4. Notifier получает уведомление в обоих случаях
//
// Автоматических повторов нет: следующий запуск инициирует пользователь.
//
// # Credentials
//
// Секреты не хранятся в state узла. По credentialId и токену
// пользователя CredentialResolver получает секрет на время одного
// запроса, AuthHeader строит заголовок авторизации.
package executor
