package engine

import (
	"reflect"
	"strconv"
	"strings"
)

// SegmentKind — тип сегмента пути.
type SegmentKind int

const (
	// SegmentField — имя поля: a в a.b.
	SegmentField SegmentKind = iota

	// SegmentIndex — числовой индекс в скобках: [0].
	SegmentIndex

	// SegmentKey — строковый ключ в скобках: ['key'] или [key].
	SegmentKey
)

// Segment — один шаг пути.
type Segment struct {
	Kind  SegmentKind
	Name  string // для SegmentField и SegmentKey
	Index int    // для SegmentIndex
}

// key возвращает сегмент как ключ map.
func (s Segment) key() string {
	if s.Kind == SegmentIndex {
		return strconv.Itoa(s.Index)
	}
	return s.Name
}

// index возвращает сегмент как индекс слайса.
func (s Segment) index() (int, bool) {
	if s.Kind == SegmentIndex {
		return s.Index, true
	}
	if !isDigits(s.Name) {
		return 0, false
	}
	n, err := strconv.Atoi(s.Name)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Path — разобранный путь выражения {{ $path }}.
type Path []Segment

// String возвращает путь в каноническом виде.
func (p Path) String() string {
	var b strings.Builder
	for i, seg := range p {
		switch seg.Kind {
		case SegmentField:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(seg.Name)
		case SegmentIndex:
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(seg.Index))
			b.WriteByte(']')
		case SegmentKey:
			b.WriteString("['")
			b.WriteString(seg.Name)
			b.WriteString("']")
		}
	}
	return b.String()
}

// Lookup проходит путь по значению ctx.
//
// Поддерживаются map со строковыми ключами и слайсы/массивы.
// Возвращает false, как только промежуточное значение nil или ключ отсутствует.
func (p Path) Lookup(ctx any) (any, bool) {
	cur := ctx
	for _, seg := range p {
		if cur == nil {
			return nil, false
		}
		next, ok := step(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// step выполняет один шаг пути.
func step(cur any, seg Segment) (any, bool) {
	v := reflect.ValueOf(cur)
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		mv := v.MapIndex(reflect.ValueOf(seg.key()).Convert(v.Type().Key()))
		if !mv.IsValid() {
			return nil, false
		}
		return mv.Interface(), true

	case reflect.Slice, reflect.Array:
		idx, ok := seg.index()
		if !ok || idx < 0 || idx >= v.Len() {
			return nil, false
		}
		return v.Index(idx).Interface(), true

	default:
		return nil, false
	}
}

// ParsePath разбирает путь выражения.
//
// Грамматика:
//
//	path    = segment ( "." segment )*
//	segment = name? ( "[" index "]" )*
//	index   = digits | 'quoted' | "quoted" | word
//
// Пустые сегменты, пустые и незакрытые скобки — ошибка *PathError.
func ParsePath(expr string) (Path, error) {
	p := &pathParser{src: strings.TrimSpace(expr)}
	if p.src == "" {
		return nil, &PathError{Expr: expr, Pos: 0, Msg: "empty path"}
	}
	return p.parse()
}

// pathParser — рекурсивный спуск по строке пути.
type pathParser struct {
	src string
	pos int
}

func (p *pathParser) parse() (Path, error) {
	var path Path

	for {
		start := p.pos
		name := p.readName()
		if name != "" {
			path = append(path, Segment{Kind: SegmentField, Name: name})
		}

		brackets := 0
		for p.peek() == '[' {
			seg, err := p.readBracket()
			if err != nil {
				return nil, err
			}
			path = append(path, seg)
			brackets++
		}

		if name == "" && brackets == 0 {
			return nil, p.errorf(start, "empty segment")
		}

		if p.eof() {
			return path, nil
		}

		switch p.peek() {
		case '.':
			p.pos++
			if p.eof() {
				return nil, p.errorf(p.pos, "trailing dot")
			}
		default:
			return nil, p.errorf(p.pos, "unexpected "+strconv.QuoteRune(rune(p.peek())))
		}
	}
}

// readName читает имя поля до '.', '[' или ']'.
func (p *pathParser) readName() string {
	start := p.pos
	for !p.eof() {
		switch p.src[p.pos] {
		case '.', '[', ']':
			return p.src[start:p.pos]
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

// readBracket читает [index], ['key'] или ["key"].
func (p *pathParser) readBracket() (Segment, error) {
	open := p.pos
	p.pos++ // '['

	if p.eof() {
		return Segment{}, p.errorf(open, "unclosed bracket")
	}

	var content string
	quoted := false

	if q := p.peek(); q == '\'' || q == '"' {
		p.pos++
		start := p.pos
		end := strings.IndexByte(p.src[start:], q)
		if end < 0 {
			return Segment{}, p.errorf(open, "unterminated quote")
		}
		content = p.src[start : start+end]
		p.pos = start + end + 1
		quoted = true
	} else {
		start := p.pos
		for !p.eof() && p.peek() != ']' {
			if p.peek() == '[' {
				return Segment{}, p.errorf(p.pos, "nested bracket")
			}
			p.pos++
		}
		content = strings.TrimSpace(p.src[start:p.pos])
	}

	if p.eof() || p.peek() != ']' {
		return Segment{}, p.errorf(open, "unclosed bracket")
	}
	p.pos++ // ']'

	if quoted {
		return Segment{Kind: SegmentKey, Name: content}, nil
	}
	if content == "" {
		return Segment{}, p.errorf(open, "empty brackets")
	}
	if isDigits(content) {
		n, err := strconv.Atoi(content)
		if err != nil {
			return Segment{}, p.errorf(open, "index out of range")
		}
		return Segment{Kind: SegmentIndex, Index: n}, nil
	}
	return Segment{Kind: SegmentKey, Name: content}, nil
}

func (p *pathParser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *pathParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *pathParser) errorf(pos int, msg string) error {
	return &PathError{Expr: p.src, Pos: pos, Msg: msg}
}

// isDigits возвращает true для непустой строки из цифр.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
