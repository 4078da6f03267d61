// Package display classifies fetched monitoring data into the closed set of
// shapes the renderers understand. Classification is structural and happens
// exactly once, in Classify; everything downstream switches on Kind.
package display

import (
	"encoding/json"
)

// Kind is the closed variant tag of a Value.
type Kind int

const (
	// KindRawText is a body that did not decode as JSON.
	KindRawText Kind = iota
	// KindScalar is a JSON string, number, boolean or null.
	KindScalar
	// KindRecord is a JSON object with keys in delivery order.
	KindRecord
	// KindSequence is a JSON array.
	KindSequence
)

func (k Kind) String() string {
	switch k {
	case KindRawText:
		return "raw"
	case KindScalar:
		return "scalar"
	case KindRecord:
		return "record"
	case KindSequence:
		return "sequence"
	default:
		return "unknown"
	}
}

// Value is one classified piece of display data.
// The zero Value is an empty RawText.
type Value struct {
	kind   Kind
	scalar any // nil, string, json.Number or bool
	record *Record
	seq    []Value
	raw    string
}

// Scalar wraps a JSON scalar. Accepted inputs are nil, string, json.Number and bool.
func Scalar(v any) Value {
	return Value{kind: KindScalar, scalar: v}
}

// RecordValue wraps r.
func RecordValue(r *Record) Value {
	if r == nil {
		r = NewRecord()
	}
	return Value{kind: KindRecord, record: r}
}

// Sequence wraps items.
func Sequence(items []Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindSequence, seq: items}
}

// RawText wraps text that is not JSON.
func RawText(text string) Value {
	return Value{kind: KindRawText, raw: text}
}

func (v Value) Kind() Kind { return v.kind }

// ScalarValue returns the scalar payload (nil for non-scalars and JSON null).
func (v Value) ScalarValue() any { return v.scalar }

// Record returns the record payload or nil.
func (v Value) Record() *Record { return v.record }

// Items returns the sequence payload or nil.
func (v Value) Items() []Value { return v.seq }

// Raw returns the raw text payload.
func (v Value) Raw() string { return v.raw }

// IsNested reports whether v is a Record or a Sequence.
func (v Value) IsNested() bool {
	return v.kind == KindRecord || v.kind == KindSequence
}

// String returns the scalar string form used by truncation: nested values are
// serialized compactly and raw text is returned as is.
func (v Value) String() string {
	switch v.kind {
	case KindScalar:
		switch s := v.scalar.(type) {
		case nil:
			return ""
		case string:
			return s
		case json.Number:
			return s.String()
		case bool:
			if s {
				return "true"
			}
			return "false"
		}
		return ""
	case KindRecord, KindSequence:
		return v.Compact()
	default:
		return v.raw
	}
}

// HasRecords reports whether v is a Sequence containing at least one Record.
func (v Value) HasRecords() bool {
	if v.kind != KindSequence {
		return false
	}
	for _, item := range v.seq {
		if item.kind == KindRecord {
			return true
		}
	}
	return false
}

// Field returns the value under key when v is a Record.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindRecord {
		return Value{}, false
	}
	return v.record.Get(key)
}

// Record is an ordered string-keyed mapping. Duplicate keys keep the position
// of their first occurrence and the last value, matching JSON.parse.
type Record struct {
	keys []string
	vals map[string]Value
}

// NewRecord returns an empty Record.
func NewRecord() *Record {
	return &Record{vals: make(map[string]Value)}
}

// Set stores v under key.
func (r *Record) Set(key string, v Value) {
	if _, ok := r.vals[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.vals[key] = v
}

// Get returns the value under key.
func (r *Record) Get(key string) (Value, bool) {
	if r == nil {
		return Value{}, false
	}
	v, ok := r.vals[key]
	return v, ok
}

// Keys returns the keys in insertion order. The slice must not be modified.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	return r.keys
}

// Len returns the number of keys.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}
