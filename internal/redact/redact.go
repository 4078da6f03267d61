// Package redact masks sensitive fields in JSON payloads before they are
// displayed. A key is sensitive when its lower-cased name contains one of
// Markers; the whole value under such a key is replaced, whatever its type.
package redact

import (
	"regexp"
	"strings"

	"github.com/tobert/opsview/internal/display"
)

// Marker replaces every sensitive value.
const Marker = "[REDACTED]"

// Markers are the key substrings that make a field sensitive.
// apiKey-style names are intentionally not covered.
var Markers = []string{"secret", "token", "authorization"}

// IsSensitive reports whether key names a sensitive field.
func IsSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, m := range Markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// String redacts a serialized JSON document and re-serializes it with
// two-space indentation, keeping key order.
//
// When serialized is not JSON it is returned unchanged only if no marker
// appears in it; otherwise key/value pairs with sensitive keys are masked
// textually. Free text that mentions a secret outside a key/value form is
// not detected.
func String(serialized string) string {
	v, err := display.Decode([]byte(serialized))
	if err != nil {
		return maskText(serialized)
	}
	return Value(v).Indent("  ")
}

// DeepString is String with Deep applied: secrets inside JSON documents
// serialized into string fields are redacted too.
func DeepString(serialized string) string {
	v, err := display.Decode([]byte(serialized))
	if err != nil {
		return maskText(serialized)
	}
	return Deep(v).Indent("  ")
}

// Value returns a redacted copy of v. Sensitive keys are not recursed into.
func Value(v display.Value) display.Value {
	return walk(v, func(s display.Value) display.Value { return s })
}

// Deep is Value plus embedded documents: a string scalar that mentions a
// marker is treated as serialized JSON and redacted in place, keeping the
// compact form, or masked textually when it does not parse.
func Deep(v display.Value) display.Value {
	return walk(v, deepScalar)
}

func deepScalar(v display.Value) display.Value {
	s, ok := v.ScalarValue().(string)
	if !ok || !containsMarker(s) {
		return v
	}
	if inner, err := display.Decode([]byte(s)); err == nil && inner.IsNested() {
		return display.Scalar(Deep(inner).Compact())
	}
	return display.Scalar(maskText(s))
}

// walk copies v, replacing sensitive record values with Marker. Scalars go
// through scalar; raw text is masked textually.
func walk(v display.Value, scalar func(display.Value) display.Value) display.Value {
	switch v.Kind() {
	case display.KindRecord:
		src := v.Record()
		out := display.NewRecord()
		for _, k := range src.Keys() {
			child, _ := src.Get(k)
			if IsSensitive(k) {
				out.Set(k, display.Scalar(Marker))
				continue
			}
			out.Set(k, walk(child, scalar))
		}
		return display.RecordValue(out)

	case display.KindSequence:
		items := v.Items()
		out := make([]display.Value, len(items))
		for i, item := range items {
			out[i] = walk(item, scalar)
		}
		return display.Sequence(out)

	case display.KindRawText:
		return display.RawText(maskText(v.Raw()))

	case display.KindScalar:
		return scalar(v)

	default:
		return v
	}
}

const sensitiveKey = `[A-Za-z0-9_.\-]*(?:secret|token|authorization)[A-Za-z0-9_.\-]*`

var (
	// "client_secret": "abc" and client_secret="abc"
	quotedPattern = regexp.MustCompile(`(?i)("?` + sensitiveKey + `"?\s*[:=]\s*)"(?:[^"\\]|\\.)*"`)
	// Authorization: Bearer abc, masked to the end of the line
	headerPattern = regexp.MustCompile(`(?im)^(\s*` + sensitiveKey + `\s*:[ \t]*)([^"\r\n].*)$`)
	// token=abc&user=x and "token": 12345
	unquotedPattern = regexp.MustCompile(`(?i)("?` + sensitiveKey + `"?\s*[:=]\s*)[^"\[\s,;&}\]][^\s,;&}\]]*`)
)

// maskText is the fallback for text that did not parse as JSON.
func maskText(text string) string {
	if !containsMarker(text) {
		return text
	}

	text = quotedPattern.ReplaceAllString(text, `${1}"`+Marker+`"`)
	text = headerPattern.ReplaceAllString(text, `${1}`+Marker)
	text = unquotedPattern.ReplaceAllString(text, `${1}`+Marker)
	return text
}

func containsMarker(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range Markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
