package engine

import "github.com/shaiso/Wireflow/internal/domain"

// TriggerAlias — дополнительный ключ входного контекста для вывода триггера.
//
// Позволяет ссылаться на стартовый узел как {{ $trigger.field }},
// не зная конкретного типа триггера. При нескольких триггерах-предках
// выигрывает обойдённый последним.
const TriggerAlias = "trigger"

// Direction — направление запроса данных узла.
type Direction string

const (
	// DirectionInput — входной контекст: выводы всех предков.
	DirectionInput Direction = "input"

	// DirectionOutput — собственный вывод узла.
	DirectionOutput Direction = "output"
)

// UpstreamNodeIDs возвращает ID всех предков узла targetID.
//
// Обратная карта смежности (target → sources) строится за один проход
// по рёбрам, затем итеративный DFS от targetID. Каждый предок входит в
// результат ровно один раз, циклы безопасны. Сам targetID в результат
// не попадает, даже если лежит на цикле.
func UpstreamNodeIDs(targetID string, edges []domain.Edge) []string {
	reverse := make(map[string][]string, len(edges))
	for _, e := range edges {
		reverse[e.Target] = append(reverse[e.Target], e.Source)
	}

	visited := map[string]bool{targetID: true}
	result := make([]string, 0)

	// Стек в обратном порядке, чтобы первым обходился первый source.
	stack := reversed(reverse[targetID])
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[id] {
			continue
		}
		visited[id] = true
		result = append(result, id)

		parents := reverse[id]
		for i := len(parents) - 1; i >= 0; i-- {
			if !visited[parents[i]] {
				stack = append(stack, parents[i])
			}
		}
	}

	return result
}

// InputContext строит входной контекст узла: {тип предка: вывод предка}.
//
// Для триггеров возвращает nil. При совпадении типов выигрывает предок,
// обойдённый последним. Рёбра на отсутствующие узлы пропускаются.
func InputContext(target domain.Node, nodes []domain.Node, edges []domain.Edge) map[string]any {
	if target.Type.IsTrigger() {
		return nil
	}

	byID := make(map[string]domain.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	ctx := make(map[string]any)
	for _, id := range UpstreamNodeIDs(target.ID, edges) {
		n, ok := byID[id]
		if !ok {
			continue
		}
		output := domain.CloneValue(n.Data.Output)
		ctx[string(n.Type)] = output
		if n.Type.IsTrigger() {
			ctx[TriggerAlias] = output
		}
	}
	return ctx
}

// OutputContext возвращает собственный вывод узла без обхода графа.
func OutputContext(target domain.Node) any {
	return domain.CloneValue(target.Data.Output)
}

// DataContext возвращает входной или выходной контекст узла.
func DataContext(direction Direction, target domain.Node, nodes []domain.Node, edges []domain.Edge) any {
	if direction == DirectionOutput {
		return OutputContext(target)
	}
	ctx := InputContext(target, nodes, edges)
	if ctx == nil {
		return nil
	}
	return ctx
}

// PruneDanglingEdges отделяет рёбра, ссылающиеся на отсутствующие узлы.
func PruneDanglingEdges(nodes []domain.Node, edges []domain.Edge) (kept, dropped []domain.Edge) {
	ids := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		ids[n.ID] = true
	}

	kept = make([]domain.Edge, 0, len(edges))
	for _, e := range edges {
		if ids[e.Source] && ids[e.Target] {
			kept = append(kept, e)
		} else {
			dropped = append(dropped, e)
		}
	}
	return kept, dropped
}

func reversed(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}
