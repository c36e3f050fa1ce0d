// Package engine содержит семантику графа flow.
//
// Включает:
//   - path.go       — разбор пути {{ $a.b[0] }} в AST сегментов
//   - expression.go — подстановка {{ $path }} в строки, слайсы и map
//   - upstream.go   — обход предков узла и построение входного контекста
//   - graph.go      — граф исполняемых узлов и порядок запуска
//   - parser.go     — разбор flow из JSON/YAML и валидация
//
// Engine ничего не выполняет сам: он отвечает на вопросы «что видит узел»
// и «в каком порядке узлы можно запускать».
package engine
