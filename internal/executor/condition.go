package executor

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/shaiso/Wireflow/internal/domain"
)

// Операторы условий.
const (
	OpEquals       = "equals"
	OpNotEquals    = "not_equals"
	OpContains     = "contains"
	OpNotContains  = "not_contains"
	OpStartsWith   = "starts_with"
	OpEndsWith     = "ends_with"
	OpGreaterThan  = "greater_than"
	OpLessThan     = "less_than"
	OpGreaterEqual = "greater_equal"
	OpLessEqual    = "less_equal"
	OpIsEmpty      = "is_empty"
	OpIsNotEmpty   = "is_not_empty"
	OpRegexMatch   = "regex_match"
)

// Логические связки между условиями.
const (
	LogicalAnd = "and"
	LogicalOr  = "or"
)

// ConditionExecutor — executor узла conditional-other-tool.
//
// Output: {"condition": bool}.
type ConditionExecutor struct{}

// Execute вычисляет условия узла.
func (e *ConditionExecutor) Execute(_ context.Context, req *Request) (*Result, error) {
	var state domain.ConditionState
	if err := resolveState(req, &state); err != nil {
		return nil, err
	}
	return &Result{Output: map[string]any{"condition": EvaluateConditions(state)}}, nil
}

// EvaluateConditions вычисляет цепочку условий слева направо.
//
// Связка после условия i решает судьбу условия i+1: "or" останавливает
// вычисление на true, "and" на false, отсутствие связки завершает цепочку.
// Результат — значение последнего вычисленного условия.
func EvaluateConditions(state domain.ConditionState) bool {
	val := false
	for i, c := range state.Conditions {
		val = Compare(c.Field, c.Operator, c.Value)

		if i >= len(state.LogicalOperators) {
			break
		}
		op := strings.ToLower(strings.TrimSpace(state.LogicalOperators[i]))
		if op == "" {
			break
		}
		if op == LogicalOr && val {
			break
		}
		if op == LogicalAnd && !val {
			break
		}
	}
	return val
}

// Compare применяет оператор к двум строковым операндам.
//
// Операторы порядка сравнивают числа, если обе стороны — числа, иначе
// строки лексикографически. Для regex_match левый операнд — шаблон.
// Неизвестный оператор и некорректный шаблон дают false.
func Compare(left, operator, right string) bool {
	switch operator {
	case OpEquals:
		return left == right
	case OpNotEquals:
		return left != right
	case OpContains:
		return strings.Contains(left, right)
	case OpNotContains:
		return !strings.Contains(left, right)
	case OpStartsWith:
		return strings.HasPrefix(left, right)
	case OpEndsWith:
		return strings.HasSuffix(left, right)
	case OpGreaterThan:
		return order(left, right) > 0
	case OpLessThan:
		return order(left, right) < 0
	case OpGreaterEqual:
		return order(left, right) >= 0
	case OpLessEqual:
		return order(left, right) <= 0
	case OpIsEmpty:
		return strings.TrimSpace(left) == ""
	case OpIsNotEmpty:
		return strings.TrimSpace(left) != ""
	case OpRegexMatch:
		re, err := regexp.Compile(left)
		if err != nil {
			return false
		}
		return re.MatchString(right)
	default:
		return false
	}
}

// order сравнивает операнды: -1, 0 или 1.
func order(left, right string) int {
	l, lerr := strconv.ParseFloat(strings.TrimSpace(left), 64)
	r, rerr := strconv.ParseFloat(strings.TrimSpace(right), 64)
	if lerr == nil && rerr == nil {
		switch {
		case l < r:
			return -1
		case l > r:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(left, right)
}
