// Package safehtml holds the string-safety primitives every renderer composes
// before placing a data-derived value into markup.
package safehtml

import (
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"unicode/utf8"
)

// DefaultMax is the cell truncation length used by the renderers.
const DefaultMax = 120

// Ellipsis is appended once to truncated values.
const Ellipsis = "…"

// Escape maps s to a form that cannot be interpreted as markup.
// It neutralizes <, >, &, ' and ".
func Escape(s string) string {
	return html.EscapeString(s)
}

// Truncate coerces v to a string and cuts it to max runes, appending a
// single ellipsis when anything was removed. A nil value becomes "".
func Truncate(v any, max int) string {
	s := Stringify(v)
	if max < 0 {
		max = 0
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}

	n := 0
	for i := range s {
		if n == max {
			return s[:i] + Ellipsis
		}
		n++
	}
	return s
}

// Text truncates then escapes, in that order, so an entity is never split.
func Text(v any) string {
	return Escape(Truncate(v, DefaultMax))
}

// Stringify is the coercion Truncate uses.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case fmt.Stringer:
		return t.String()
	case []byte:
		return string(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
