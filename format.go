package sparse

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-sparse/internal/tree"
)

// Format is the serialization a document was read in and is written back in.
type Format int

const (
	// FormatAuto keeps each document's recorded format when saving.
	FormatAuto Format = iota
	// FormatJSON is single-line JSON.
	FormatJSON
	// FormatJSONPretty is indented JSON.
	FormatJSONPretty
	// FormatYAML is a YAML document.
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatAuto:
		return "auto"
	case FormatJSON:
		return "json"
	case FormatJSONPretty:
		return "json-pretty"
	case FormatYAML:
		return "yaml"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// ParseFormat maps a user facing name to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return FormatAuto, nil
	case "json", "compact":
		return FormatJSON, nil
	case "json-pretty", "pretty":
		return FormatJSONPretty, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return FormatAuto, fmt.Errorf("sparse: unknown format %q", name)
	}
}

// FormatForPath picks the format implied by the extension of path.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSONPretty, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return FormatAuto, fmt.Errorf("%w: %q", ErrBadExtension, filepath.Ext(path))
	}
}

// DetectFormat parses data as JSON first and falls back to YAML. Multi-line
// JSON is recorded as pretty JSON.
func DetectFormat(data []byte) (any, Format, error) {
	value, jsonErr := tree.ParseJSON(data)
	if jsonErr == nil {
		if bytes.Contains(bytes.TrimSpace(data), []byte("\n")) {
			return value, FormatJSONPretty, nil
		}
		return value, FormatJSON, nil
	}
	value, yamlErr := tree.ParseYAML(data)
	if yamlErr == nil {
		return value, FormatYAML, nil
	}
	return nil, FormatAuto, errors.Join(
		fmt.Errorf("json: %w", jsonErr),
		fmt.Errorf("yaml: %w", yamlErr),
	)
}

// Marshal serializes value in format f.
func (f Format) Marshal(value any) ([]byte, error) {
	switch f {
	case FormatJSON:
		return tree.MarshalJSON(value, false)
	case FormatJSONPretty, FormatAuto:
		return tree.MarshalJSON(value, true)
	case FormatYAML:
		return tree.MarshalYAML(value)
	default:
		return nil, fmt.Errorf("sparse: cannot marshal %s", f)
	}
}
