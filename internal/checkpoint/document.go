package checkpoint

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrExists = errors.New("checkpoint: key already recorded")

// Document is the key -> result mapping. Keys keep insertion order so the
// next stage can iterate them in the order they were produced; values are
// kept as raw JSON so a load/save cycle is byte-stable.
type Document struct {
	keys   []string
	values map[string]json.RawMessage
}

func NewDocument() *Document {
	return &Document{values: map[string]json.RawMessage{}}
}

func (d *Document) Len() int { return len(d.keys) }

func (d *Document) Has(key string) bool {
	_, ok := d.values[key]
	return ok
}

// Keys returns a copy of the keys in insertion order.
func (d *Document) Keys() []string {
	return append([]string(nil), d.keys...)
}

func (d *Document) Get(key string) (json.RawMessage, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Decode unmarshals the value stored under key into out.
func (d *Document) Decode(key string, out any) error {
	v, ok := d.values[key]
	if !ok {
		return fmt.Errorf("checkpoint: no entry for %q", key)
	}
	return json.Unmarshal(v, out)
}

// Put records value under key in memory. Existing entries are never replaced;
// only Delete (an operator action) clears the way for reprocessing.
func (d *Document) Put(key string, value any) error {
	if d.Has(key) {
		return fmt.Errorf("%w: %q", ErrExists, key)
	}
	raw, err := encode(value)
	if err != nil {
		return fmt.Errorf("checkpoint: encode %q: %w", key, err)
	}
	d.keys = append(d.keys, key)
	d.values[key] = raw
	return nil
}

func (d *Document) Delete(key string) bool {
	if !d.Has(key) {
		return false
	}
	delete(d.values, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i:i], d.keys[i+1:]...)
			break
		}
	}
	return true
}

func encode(v any) (json.RawMessage, error) {
	if raw, ok := v.(json.RawMessage); ok {
		if !json.Valid(raw) {
			return nil, errors.New("invalid raw json")
		}
		return compact(raw)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

func compact(raw []byte) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}
	return json.RawMessage(buf.Bytes()), nil
}

func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := encode(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(d.values[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (d *Document) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("checkpoint: document must be a json object")
	}

	keys := []string{}
	values := map[string]json.RawMessage{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("checkpoint: unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("checkpoint: value for %q: %w", key, err)
		}
		c, err := compact(raw)
		if err != nil {
			return err
		}
		if _, seen := values[key]; !seen {
			keys = append(keys, key)
		}
		values[key] = c
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	d.keys = keys
	d.values = values
	return nil
}
