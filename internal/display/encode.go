package display

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Compact serializes v as single-line JSON with keys in order.
func (v Value) Compact() string {
	var buf bytes.Buffer
	writeValue(&buf, v, "", 0)
	return buf.String()
}

// Indent serializes v with the given indent unit, matching the layout of
// JSON.stringify(v, null, indent).
func (v Value) Indent(indent string) string {
	var buf bytes.Buffer
	writeValue(&buf, v, indent, 0)
	return buf.String()
}

// MarshalJSON implements json.Marshaler. RawText is encoded as a string.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	writeValue(&buf, v, "", 0)
	return buf.Bytes(), nil
}

func writeValue(buf *bytes.Buffer, v Value, indent string, depth int) {
	switch v.kind {
	case KindScalar:
		switch s := v.scalar.(type) {
		case nil:
			buf.WriteString("null")
		case string:
			writeString(buf, s)
		case json.Number:
			buf.WriteString(s.String())
		case bool:
			if s {
				buf.WriteString("true")
			} else {
				buf.WriteString("false")
			}
		default:
			buf.WriteString("null")
		}

	case KindRecord:
		keys := v.record.Keys()
		if len(keys) == 0 {
			buf.WriteString("{}")
			return
		}
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			newline(buf, indent, depth+1)
			writeString(buf, k)
			buf.WriteByte(':')
			if indent != "" {
				buf.WriteByte(' ')
			}
			child, _ := v.record.Get(k)
			writeValue(buf, child, indent, depth+1)
		}
		newline(buf, indent, depth)
		buf.WriteByte('}')

	case KindSequence:
		if len(v.seq) == 0 {
			buf.WriteString("[]")
			return
		}
		buf.WriteByte('[')
		for i, item := range v.seq {
			if i > 0 {
				buf.WriteByte(',')
			}
			newline(buf, indent, depth+1)
			writeValue(buf, item, indent, depth+1)
		}
		newline(buf, indent, depth)
		buf.WriteByte(']')

	default:
		writeString(buf, v.raw)
	}
}

func newline(buf *bytes.Buffer, indent string, depth int) {
	if indent == "" {
		return
	}
	buf.WriteByte('\n')
	buf.WriteString(strings.Repeat(indent, depth))
}

// writeString encodes s as a JSON string without HTML escaping; markup safety
// is the renderer's job, and < sequences are unreadable in a panel.
func writeString(buf *bytes.Buffer, s string) {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		buf.WriteString(`""`)
		return
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
}
