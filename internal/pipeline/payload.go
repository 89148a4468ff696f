package pipeline

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// ErrNotRows is returned when a payload path does not hold an array.
var ErrNotRows = errors.New("payload path is not an array")

// Payload is a raw JSON document returned by a Transport.
type Payload []byte

// Valid reports whether the payload is well-formed JSON.
func (p Payload) Valid() bool {
	return gjson.ValidBytes(p)
}

// Get selects path with gjson syntax. An empty path selects the whole
// document.
func (p Payload) Get(path string) gjson.Result {
	if path == "" {
		return gjson.ParseBytes(p)
	}
	return gjson.GetBytes(p, path)
}

// Decode unmarshals the whole payload into v.
func (p Payload) Decode(v any) error {
	if err := json.Unmarshal(p, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// Rows decodes the array of objects at path. Numbers decode as float64.
func (p Payload) Rows(path string) ([]map[string]any, error) {
	res := p.Get(path)
	if !res.IsArray() {
		return nil, fmt.Errorf("%w: %q", ErrNotRows, path)
	}

	var rows []map[string]any
	if err := json.Unmarshal([]byte(res.Raw), &rows); err != nil {
		return nil, fmt.Errorf("decode rows at %q: %w", path, err)
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return rows, nil
}

// Value returns the Go value at path, or nil when the path is missing.
func (p Payload) Value(path string) any {
	res := p.Get(path)
	if !res.Exists() {
		return nil
	}
	return res.Value()
}
