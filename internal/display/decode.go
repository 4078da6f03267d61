package display

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// maxDepth bounds nesting so a hostile payload cannot exhaust the stack.
const maxDepth = 1000

// ErrTrailingData is returned when a body holds more than one JSON value.
var ErrTrailingData = errors.New("unexpected data after JSON value")

// Classify turns a response body into a Value. Bodies that are not a single
// well-formed JSON value become RawText; Classify never fails.
func Classify(body []byte) Value {
	v, err := Decode(body)
	if err != nil {
		return RawText(string(body))
	}
	return v
}

// Decode parses exactly one JSON value, keeping object key order and numbers
// in their literal form.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec, 0)
	if err != nil {
		return Value{}, err
	}

	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			return Value{}, ErrTrailingData
		}
		return Value{}, err
	}
	return v, nil
}

// FromAny converts a Go value into a Value by round-tripping it through JSON.
func FromAny(v any) (Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Value{}, fmt.Errorf("failed to encode value: %w", err)
	}
	return Decode(data)
}

func decodeValue(dec *json.Decoder, depth int) (Value, error) {
	if depth > maxDepth {
		return Value{}, fmt.Errorf("JSON nesting exceeds %d levels", maxDepth)
	}

	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return Value{}, io.ErrUnexpectedEOF
		}
		return Value{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeRecord(dec, depth)
		case '[':
			return decodeSequence(dec, depth)
		default:
			return Value{}, fmt.Errorf("unexpected delimiter %q", t)
		}
	case string, json.Number, bool, nil:
		return Scalar(t), nil
	default:
		return Value{}, fmt.Errorf("unexpected token %v", tok)
	}
}

func decodeRecord(dec *json.Decoder, depth int) (Value, error) {
	rec := NewRecord()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Value{}, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return Value{}, fmt.Errorf("object key is %T, not string", keyTok)
		}

		val, err := decodeValue(dec, depth+1)
		if err != nil {
			return Value{}, err
		}
		rec.Set(key, val)
	}

	// closing '}'
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return RecordValue(rec), nil
}

func decodeSequence(dec *json.Decoder, depth int) (Value, error) {
	items := []Value{}
	for dec.More() {
		val, err := decodeValue(dec, depth+1)
		if err != nil {
			return Value{}, err
		}
		items = append(items, val)
	}

	// closing ']'
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return Sequence(items), nil
}
