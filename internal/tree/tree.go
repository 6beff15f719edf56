// Package tree holds the generic document representation shared by the
// store and the reference engine: JSON/YAML parsing, serialization, JSON
// Pointer navigation and `$ref` discovery.
package tree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// RefKey is the object key marking a node as a reference.
const RefKey = "$ref"

var (
	// ErrNotFound reports a pointer that designates no node.
	ErrNotFound = errors.New("tree: pointer not found")
	// ErrInvalidPointer reports a malformed JSON Pointer.
	ErrInvalidPointer = errors.New("tree: invalid pointer")
)

// ParseJSON decodes data into map[string]any / []any / scalar nodes.
func ParseJSON(data []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	var out any
	if err := decoder.Decode(&out); err != nil {
		return nil, err
	}
	if decoder.More() {
		return nil, fmt.Errorf("tree: trailing data after JSON value")
	}
	return out, nil
}

// ParseYAML decodes data and normalises YAML specific node shapes so the
// result is indistinguishable from a JSON parse.
func ParseYAML(data []byte) (any, error) {
	var out any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return normalize(out), nil
}

// MarshalJSON encodes value as compact or indented JSON. Indented output ends
// with a newline.
func MarshalJSON(value any, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if pretty {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(value); err != nil {
		return nil, err
	}
	if pretty {
		return buf.Bytes(), nil
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// MarshalYAML encodes value as a YAML document with two space indentation.
func MarshalYAML(value any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(value); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FromValue converts an arbitrary Go value into a generic tree by routing it
// through its JSON representation, honouring custom marshalers.
func FromValue(value any) (any, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return ParseJSON(payload)
}

func normalize(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		for key, child := range typed {
			typed[key] = normalize(child)
		}
		return typed
	case map[any]any:
		out := make(map[string]any, len(typed))
		for key, child := range typed {
			out[fmt.Sprint(key)] = normalize(child)
		}
		return out
	case []any:
		for i, child := range typed {
			typed[i] = normalize(child)
		}
		return typed
	default:
		return value
	}
}
