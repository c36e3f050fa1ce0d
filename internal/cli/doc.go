// Package cli реализует инструмент командной строки Wireflow.
//
// # Обзор
//
// CLI работает в двух режимах:
//   - локально: читает flow из JSON или YAML файла и выполняет над ним
//     проверку, сортировку и запуск отдельных узлов в памяти
//   - удалённо: обращается к HTTP API сервиса wireflow-api и управляет
//     открытым в редакторе flow
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Wireflow API. Разбирает конверты DataResponse,
// ListResponse и ErrorResponse. Токен пользователя передаётся в
// Authorization и используется сервером для credential'ов.
//
//	client := cli.NewClient("http://localhost:8080", token)
//	projects, err := client.ListProjects()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: wireflow flow order f.yaml --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - flow: validate, order (локально)
//   - node: input, output, test (локально)
//   - resolve: подстановка шаблона {{ $path }} или список ссылок --refs (локально)
//   - project: list, create (API)
//   - canvas: show, open, undo, redo, run, save (API)
//
// Каждая группа создаётся фабричной функцией (NewFlowCmd и т.д.),
// принимающей замыкания для ленивого создания зависимостей после
// парсинга PersistentFlags.
package cli
