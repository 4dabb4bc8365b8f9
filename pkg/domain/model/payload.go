package model

import (
	"bytes"
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
)

// Payload is an opaque JSON document attached to action records and plan
// descriptions. The service never interprets it except for the redacted
// public projection.
type Payload json.RawMessage

var nullJSON = []byte("null")

// NewPayload marshals v into a Payload.
func NewPayload(v any) (Payload, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal payload")
	}
	return Payload(raw), nil
}

// MustPayload is NewPayload for fixtures; it panics on error.
func MustPayload(v any) Payload {
	p, err := NewPayload(v)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Payload) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return nullJSON, nil
	}
	return []byte(p), nil
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	if p == nil {
		return goerr.New("UnmarshalJSON on nil Payload")
	}
	*p = append((*p)[:0], data...)
	return nil
}

// IsNull reports whether the payload is absent or the JSON literal null.
func (p Payload) IsNull() bool {
	trimmed := bytes.TrimSpace(p)
	return len(trimmed) == 0 || bytes.Equal(trimmed, nullJSON)
}

// IsValid reports whether the payload is well-formed JSON.
func (p Payload) IsValid() bool {
	return len(p) > 0 && json.Valid(p)
}

// Clone returns a copy that does not share the underlying buffer.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	return append(Payload(nil), p...)
}

// Field returns the value stored under key when the payload is a JSON object
// and the value is truthy (not null, false, 0 or ""). Anything else yields
// (nil, false).
func (p Payload) Field(key string) (any, bool) {
	v, ok := p.Fields(key)[key]
	return v, ok
}

// Fields decodes the payload once and returns the truthy values of keys.
// Keys that are missing or falsy are absent from the result.
func (p Payload) Fields(keys ...string) map[string]any {
	out := make(map[string]any, len(keys))
	if p.IsNull() {
		return out
	}
	var obj map[string]any
	if err := json.Unmarshal(p, &obj); err != nil {
		return out
	}
	for _, key := range keys {
		if v, ok := obj[key]; ok && truthy(v) {
			out[key] = v
		}
	}
	return out
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	default:
		return true
	}
}
