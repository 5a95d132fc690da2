package entities

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Member is a single key/value pair of an Object.
type Member struct {
	Key   string
	Value any
}

// Object is a JSON object that remembers the order its keys were first seen.
//
// Values are one of: nil, bool, json.Number, string, []any or *Object.
// The zero value is an empty object ready to use.
type Object struct {
	members []Member
	index   map[string]int
}

// NewObject creates an empty ordered object
func NewObject() *Object {
	return &Object{index: make(map[string]int)}
}

// Len returns the number of keys
func (o *Object) Len() int {
	return len(o.members)
}

// Keys returns the keys in order
func (o *Object) Keys() []string {
	keys := make([]string, 0, len(o.members))
	for _, m := range o.members {
		keys = append(keys, m.Key)
	}
	return keys
}

// Members returns a copy of the key/value pairs in order
func (o *Object) Members() []Member {
	out := make([]Member, len(o.members))
	copy(out, o.members)
	return out
}

// Get returns the value stored under key
func (o *Object) Get(key string) (any, bool) {
	i, ok := o.index[key]
	if !ok {
		return nil, false
	}
	return o.members[i].Value, true
}

// Has reports whether key is present, whatever its value
func (o *Object) Has(key string) bool {
	_, ok := o.index[key]
	return ok
}

// Set replaces the value of an existing key in place or appends a new key.
func (o *Object) Set(key string, value any) {
	if o.index == nil {
		o.index = make(map[string]int)
	}
	if i, ok := o.index[key]; ok {
		o.members[i].Value = value
		return
	}
	o.index[key] = len(o.members)
	o.members = append(o.members, Member{Key: key, Value: value})
}

// SetDefault appends key with value only if key is absent.
// It reports whether the key was added.
func (o *Object) SetDefault(key string, value any) bool {
	if o.Has(key) {
		return false
	}
	o.Set(key, value)
	return true
}

// UnmarshalJSON decodes a JSON object keeping key order and number literals.
func (o *Object) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return err
	}
	obj, ok := v.(*Object)
	if !ok {
		return fmt.Errorf("%w: got %s", ErrDocumentNotObject, kindOf(v))
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("unexpected data after top-level object")
	}

	*o = *obj
	return nil
}

// MarshalJSON encodes the object in key order without HTML escaping.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, o); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		return decodeObject(dec)
	case '[':
		return decodeArray(dec)
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}
}

func decodeObject(dec *json.Decoder) (*Object, error) {
	obj := NewObject()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key %v is not a string", tok)
		}

		value, err := decodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		obj.Set(key, value)
	}

	// closing '}'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

func decodeArray(dec *json.Decoder) ([]any, error) {
	items := []any{}
	for dec.More() {
		value, err := decodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", len(items), err)
		}
		items = append(items, value)
	}

	// closing ']'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return items, nil
}

func writeValue(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case *Object:
		if val == nil {
			buf.WriteString("null")
			return nil
		}
		buf.WriteByte('{')
		for i, m := range val.members {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeScalar(buf, m.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeValue(buf, m.Value); err != nil {
				return fmt.Errorf("field %q: %w", m.Key, err)
			}
		}
		buf.WriteByte('}')
		return nil
	case []any:
		if val == nil {
			buf.WriteString("null")
			return nil
		}
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, item); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		return writeScalar(buf, val)
	}
}

// writeScalar leaves <, >, & and the line separators U+2028/U+2029 as-is so
// text round-trips unchanged.
func writeScalar(buf *bytes.Buffer, v any) error {
	var enc bytes.Buffer
	e := json.NewEncoder(&enc)
	e.SetEscapeHTML(false)
	if err := e.Encode(v); err != nil {
		return err
	}
	// Encode terminates every value with a newline
	out := bytes.TrimSuffix(enc.Bytes(), []byte("\n"))

	if _, ok := v.(string); !ok || !bytes.Contains(out, []byte(`\u202`)) {
		buf.Write(out)
		return nil
	}
	writeLineSeparators(buf, out)
	return nil
}

// writeLineSeparators copies an encoded string, turning the \u2028 and
// \u2029 escapes back into raw runes. Escape pairs are consumed whole so an
// escaped backslash followed by "u2028" is left alone.
func writeLineSeparators(buf *bytes.Buffer, encoded []byte) {
	for i := 0; i < len(encoded); i++ {
		c := encoded[i]
		if c != '\\' || i+1 >= len(encoded) {
			buf.WriteByte(c)
			continue
		}
		rest := encoded[i+1:]
		switch {
		case bytes.HasPrefix(rest, []byte("u2028")):
			buf.WriteRune('\u2028')
			i += 5
		case bytes.HasPrefix(rest, []byte("u2029")):
			buf.WriteRune('\u2029')
			i += 5
		default:
			buf.WriteByte(c)
			buf.WriteByte(rest[0])
			i++
		}
	}
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case *Object:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
