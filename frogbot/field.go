package frogbot

import (
	"strconv"
	"strings"
)

type choiceKind uint8

// customEscape prefixes stored custom text that would otherwise read
// back as a catalog code.
const customEscape = "#"

const (
	choiceUnset choiceKind = iota
	choiceEnumerated
	choiceCustom
)

// Choice is a catalog-backed field which may also hold free-form text
// the member typed after picking "Custom". The zero value is unset.
type Choice[T Enum] struct {
	kind   choiceKind
	value  T
	custom string
}

func Enumerated[T Enum](v T) Choice[T] {
	return Choice[T]{kind: choiceEnumerated, value: v}
}

// CustomText returns a custom choice. Blank text yields an unset choice.
func CustomText[T Enum](text string) Choice[T] {
	text = strings.TrimSpace(text)
	if text == "" {
		return Choice[T]{}
	}
	return Choice[T]{kind: choiceCustom, custom: text}
}

func (c Choice[T]) IsSet() bool { return c.kind != choiceUnset }

func (c Choice[T]) IsCustom() bool { return c.kind == choiceCustom }

func (c Choice[T]) Value() (T, bool) {
	return c.value, c.kind == choiceEnumerated
}

func (c Choice[T]) Custom() (string, bool) {
	return c.custom, c.kind == choiceCustom
}

// Label is the display text for the choice, or "" when unset.
func (c Choice[T]) Label() string {
	switch c.kind {
	case choiceEnumerated:
		return c.value.Label()
	case choiceCustom:
		return c.custom
	default:
		return ""
	}
}

// encode returns the column value: NULL when unset, the decimal code
// for catalog values, or the text for custom values. Custom text that is
// all digits, or starts with customEscape, is stored escaped.
func (c Choice[T]) encode() *string {
	switch c.kind {
	case choiceEnumerated:
		s := strconv.Itoa(int(c.value))
		return &s
	case choiceCustom:
		s := c.custom
		if isDigits(s) || strings.HasPrefix(s, customEscape) {
			s = customEscape + s
		}
		return &s
	default:
		return nil
	}
}

// decodeChoice is the inverse of Choice.encode. A numeric value that is
// no longer a catalog code decodes as unset.
func decodeChoice[T Enum](raw *string, catalog []T) Choice[T] {
	if raw == nil {
		return Choice[T]{}
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return Choice[T]{}
	}
	if isDigits(s) {
		code, err := strconv.Atoi(s)
		if err != nil {
			return Choice[T]{}
		}
		if v, ok := lookupCode(catalog, code); ok {
			return Enumerated(v)
		}
		return Choice[T]{}
	}
	if escaped, ok := strings.CutPrefix(s, customEscape); ok {
		return CustomText[T](escaped)
	}
	return CustomText[T](s)
}

// Measure holds height (centimeters) or age (years): either a number,
// or text the member entered that isn't one.
type Measure struct {
	set    bool
	number int
	text   string
}

func Number(n int) Measure { return Measure{set: true, number: n} }

// Text returns a free-text measure. Blank text yields an unset measure.
func Text(s string) Measure {
	s = strings.TrimSpace(s)
	if s == "" {
		return Measure{}
	}
	return Measure{set: true, text: s}
}

func (m Measure) IsSet() bool { return m.set }

func (m Measure) Number() (int, bool) { return m.number, m.set && m.text == "" }

func (m Measure) Text() (string, bool) { return m.text, m.set && m.text != "" }

func (m Measure) encode() *string {
	if !m.set {
		return nil
	}
	if m.text != "" {
		s := m.text
		return &s
	}
	s := strconv.Itoa(m.number)
	return &s
}

func decodeMeasure(raw *string) Measure {
	if raw == nil {
		return Measure{}
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return Measure{}
	}
	if isDigits(s) {
		if n, err := strconv.Atoi(s); err == nil {
			return Number(n)
		}
	}
	return Text(s)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// optString normalises free-text input: blank becomes unset.
func optString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func stringPointerValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
