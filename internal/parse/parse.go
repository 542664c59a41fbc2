package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Parser turns raw service output into a structured value.
type Parser interface {
	Parse(raw string) (any, error)
}

// Func adapts a plain function to Parser.
type Func func(raw string) (any, error)

func (f Func) Parse(raw string) (any, error) { return f(raw) }

// ParseError reports output that does not decode into the expected shape.
type ParseError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "parse error"
	}
	msg := "parse error"
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// JSON accepts any JSON value. Numbers are kept as json.Number so results
// re-serialize exactly.
func JSON() Parser {
	return Func(decode)
}

func decode(raw string) (any, error) {
	clean := stripFences(raw)
	if clean == "" {
		return nil, &ParseError{Reason: "empty response", Raw: raw}
	}
	dec := json.NewDecoder(strings.NewReader(clean))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &ParseError{Reason: "invalid json", Raw: raw, Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &ParseError{Reason: "trailing data after json value", Raw: raw}
	}
	return v, nil
}

// Object accepts a JSON object. An empty object is valid (the model had
// nothing to say); otherwise every required field must be present.
func Object(required ...string) Parser {
	return Func(func(raw string) (any, error) {
		v, err := decode(raw)
		if err != nil {
			return nil, err
		}
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, &ParseError{Reason: fmt.Sprintf("expected json object, got %s", kindOf(v)), Raw: raw}
		}
		if len(obj) == 0 {
			return obj, nil
		}
		for _, f := range required {
			if _, ok := obj[f]; !ok {
				return nil, &ParseError{Reason: fmt.Sprintf("missing field %q", f), Raw: raw}
			}
		}
		return obj, nil
	})
}

// TripleList accepts a JSON array of string arrays. Element arity is not
// checked here; malformed triples are dropped when the graph is loaded.
func TripleList() Parser {
	return Func(func(raw string) (any, error) {
		v, err := decode(raw)
		if err != nil {
			return nil, err
		}
		arr, ok := v.([]any)
		if !ok {
			return nil, &ParseError{Reason: fmt.Sprintf("expected json array, got %s", kindOf(v)), Raw: raw}
		}
		for i, el := range arr {
			inner, ok := el.([]any)
			if !ok {
				return nil, &ParseError{Reason: fmt.Sprintf("element %d: expected array, got %s", i, kindOf(el)), Raw: raw}
			}
			for j, s := range inner {
				if _, ok := s.(string); !ok {
					return nil, &ParseError{Reason: fmt.Sprintf("element %d.%d: expected string, got %s", i, j, kindOf(s)), Raw: raw}
				}
			}
		}
		return arr, nil
	})
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	firstNL := strings.IndexByte(s, '\n')
	if firstNL == -1 {
		return strings.TrimSpace(strings.Trim(s, "`"))
	}
	s = s[firstNL+1:]
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number, float64:
		return "number"
	case bool:
		return "bool"
	default:
		return fmt.Sprintf("%T", v)
	}
}
