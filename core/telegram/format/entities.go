// Package format converts Telegram formatting to and from the HTML parse mode.
package format

import (
	"errors"
	"html"
	"sort"
	"unicode/utf16"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrOverlappingSpans is returned when two spans share at least one code unit.
	ErrOverlappingSpans = errors.New("formatting spans overlap")
	// ErrSpanOutOfRange is returned when a span does not fit inside the text.
	ErrSpanOutOfRange = errors.New("formatting span out of range")
)

// Kind is a supported formatting kind.
type Kind string

const (
	Bold          Kind = "b"
	Italic        Kind = "i"
	Underline     Kind = "u"
	Strikethrough Kind = "s"
	Code          Kind = "code"
	Pre           Kind = "pre"
	Link          Kind = "a"
)

// Span marks a range of the text. Offset and Length count UTF-16 code units, as Telegram does.
type Span struct {
	Offset int
	Length int
	Kind   Kind
	URL    string
}

var entityKinds = map[tele.EntityType]Kind{
	tele.EntityBold:          Bold,
	tele.EntityItalic:        Italic,
	tele.EntityUnderline:     Underline,
	tele.EntityStrikethrough: Strikethrough,
	tele.EntityCode:          Code,
	tele.EntityCodeBlock:     Pre,
	tele.EntityTextLink:      Link,
}

// SpansFromEntities keeps the entities that have an HTML equivalent and drops the rest.
func SpansFromEntities(entities tele.Entities) []Span {
	spans := make([]Span, 0, len(entities))
	for _, e := range entities {
		kind, ok := entityKinds[e.Type]
		if !ok {
			continue
		}
		spans = append(spans, Span{Offset: e.Offset, Length: e.Length, Kind: kind, URL: e.URL})
	}
	return spans
}

func (s Span) open() string {
	if s.Kind == Link {
		return `<a href="` + html.EscapeString(s.URL) + `">`
	}
	return "<" + string(s.Kind) + ">"
}

func (s Span) close() string {
	return "</" + string(s.Kind) + ">"
}

// ToHTML wraps each span of text in its tag. Spans are applied from the highest
// offset to the lowest so earlier insertions never move spans still to apply.
// The text itself is not escaped: plain messages may already carry HTML.
func ToHTML(text string, spans []Span) (string, error) {
	if len(spans) == 0 {
		return text, nil
	}
	units := utf16.Encode([]rune(text))

	ordered := make([]Span, len(spans))
	copy(ordered, spans)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Offset > ordered[j].Offset })

	for i, s := range ordered {
		if s.Offset < 0 || s.Length <= 0 || s.Offset+s.Length > len(units) {
			return "", ErrSpanOutOfRange
		}
		if i > 0 && s.Offset+s.Length > ordered[i-1].Offset {
			return "", ErrOverlappingSpans
		}
	}

	for _, s := range ordered {
		end := s.Offset + s.Length
		open := utf16.Encode([]rune(s.open()))
		closing := utf16.Encode([]rune(s.close()))

		out := make([]uint16, 0, len(units)+len(open)+len(closing))
		out = append(out, units[:s.Offset]...)
		out = append(out, open...)
		out = append(out, units[s.Offset:end]...)
		out = append(out, closing...)
		out = append(out, units[end:]...)
		units = out
	}
	return string(utf16.Decode(units)), nil
}
