package engine

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// placeholderRe — шаблон {{ $path }}, допускающий обрамляющие кавычки.
//
// Кавычки входят в совпадение: "{{ $a.b }}" заменяется значением без кавычек.
var placeholderRe = regexp.MustCompile(`"?\{\{\s*\$([^}]+?)\s*\}\}"?`)

// TemplateRef — найденный в строке placeholder.
type TemplateRef struct {
	// Full — полный текст совпадения, включая кавычки.
	Full string

	// Expression — путь без "$" и пробелов.
	Expression string

	// Index — смещение совпадения в исходной строке.
	Index int
}

// HasTemplate возвращает true, если v — строка хотя бы с одним placeholder'ом.
func HasTemplate(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	return placeholderRe.MatchString(s)
}

// Extract возвращает все placeholder'ы строки в порядке появления.
func Extract(s string) []TemplateRef {
	matches := placeholderRe.FindAllStringSubmatchIndex(s, -1)
	refs := make([]TemplateRef, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, TemplateRef{
			Full:       s[m[0]:m[1]],
			Expression: strings.TrimSpace(s[m[2]:m[3]]),
			Index:      m[0],
		})
	}
	return refs
}

// Lookup ищет значение по пути в контексте.
//
// Некорректный путь — промах, а не ошибка: резолвер никогда не
// отказывает из-за пользовательского ввода.
func Lookup(path string, ctx any) (any, bool) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, false
	}
	return p.Lookup(ctx)
}

// Resolve подставляет значения контекста во все placeholder'ы.
//
// Строки обрабатываются ResolveString, слайсы — поэлементно, map — по
// значениям с сохранением ключей. Возвращаются новые контейнеры, вход не
// изменяется. Остальные значения возвращаются как есть.
func Resolve(v any, ctx any) any {
	switch val := v.(type) {
	case string:
		return ResolveString(val, ctx)

	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Resolve(item, ctx)
		}
		return out

	case map[string]any:
		return ResolveMap(val, ctx)

	case []string:
		out := make([]string, len(val))
		for i, item := range val {
			out[i] = ResolveString(item, ctx)
		}
		return out

	case map[string]string:
		out := make(map[string]string, len(val))
		for k, item := range val {
			out[k] = ResolveString(item, ctx)
		}
		return out

	case []map[string]any:
		out := make([]map[string]any, len(val))
		for i, item := range val {
			out[i] = ResolveMap(item, ctx)
		}
		return out

	default:
		return v
	}
}

// ResolveMap — Resolve для map[string]any. nil остаётся nil.
func ResolveMap(m map[string]any, ctx any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, item := range m {
		out[k] = Resolve(item, ctx)
	}
	return out
}

// ResolveString заменяет placeholder'ы строки.
//
// Ненайденный путь оставляет placeholder без изменений.
func ResolveString(s string, ctx any) string {
	if !strings.Contains(s, "{{") {
		return s
	}

	return placeholderRe.ReplaceAllStringFunc(s, func(match string) string {
		sub := placeholderRe.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		val, ok := Lookup(sub[1], ctx)
		if !ok {
			return match
		}
		return Stringify(val)
	})
}

// Stringify превращает найденное значение в текст подстановки.
//
// Строки — как есть, nil — "null", числа и bool — в кратчайшей десятичной
// записи, map и слайсы — компактный JSON.
//
// Это расходится со строковым приведением JavaScript в редакторе, где
// массив [1,2] даёт "1,2", а объект "[object Object]". JSON сохраняет
// структуру значения и остаётся разбираемым на стороне получателя.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(val)
	case json.Number:
		return val.String()
	case fmt.Stringer:
		return val.String()
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
