package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field is a single metadata entry. When Raw is set, Value holds the JSON
// text of a non-string value read from a snapshot and is written back as is.
type Field struct {
	Key   string
	Value string
	Raw   bool
}

// Metadata is an ordered string-to-string mapping. It encodes as a JSON object
// with keys in insertion order.
type Metadata []Field

// Meta builds Metadata from alternating key/value pairs. A trailing key without
// a value is ignored.
func Meta(kv ...string) Metadata {
	m := make(Metadata, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m = m.With(kv[i], kv[i+1])
	}
	return m
}

// With returns m with key set to value. An existing key keeps its position.
func (m Metadata) With(key, value string) Metadata {
	for i := range m {
		if m[i].Key == key {
			m[i].Value = value
			m[i].Raw = false
			return m
		}
	}
	return append(m, Field{Key: key, Value: value})
}

// Get returns the value stored under key
func (m Metadata) Get(key string) (string, bool) {
	for _, f := range m {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Value returns the value stored under key, or "" if absent
func (m Metadata) Value(key string) string {
	v, _ := m.Get(key)
	return v
}

// MarshalJSON encodes the fields as a JSON object preserving order
func (m Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(&buf, f.Key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if f.Raw {
			if err := json.Compact(&buf, []byte(f.Value)); err != nil {
				return nil, fmt.Errorf("metadata %q: %w", f.Key, err)
			}
			continue
		}
		if err := writeJSONString(&buf, f.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object preserving key order. Non-string values
// are kept as raw JSON text and re-encode unchanged.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var out Metadata
	err := decodeObject(data, func(key string, raw json.RawMessage) error {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			out = append(out, Field{Key: key, Value: s})
			return nil
		}
		out = append(out, Field{Key: key, Value: string(raw), Raw: true})
		return nil
	})
	if err != nil {
		return err
	}
	*m = out
	return nil
}

// writeJSONString writes s as a JSON string without HTML escaping
func writeJSONString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode appends a newline
	buf.Truncate(buf.Len() - 1)
	return nil
}

// decodeObject walks the members of a JSON object in document order. A JSON
// null is treated as an empty object.
func decodeObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}
