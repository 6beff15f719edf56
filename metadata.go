package sparse

import (
	"path/filepath"
	"strings"
)

// Metadata describes where a reference points: the absolute path of the
// target document, the in-document pointer and the document version seen the
// last time the pointer was resolved.
type Metadata struct {
	raw     string
	path    string
	pointer string
	version uint64
}

// NewMetadata parses raw against base, the path of the document raw appears
// in. Only the first '#' separates the file part from the pointer.
func NewMetadata(raw, base string) (*Metadata, error) {
	path := base
	pointer := raw
	if idx := strings.IndexByte(raw, '#'); idx >= 0 {
		pointer = raw[idx+1:]
		if idx > 0 {
			path = resolveRelative(raw[:idx], base)
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, documentError("resolve", path, err)
	}
	return &Metadata{
		raw:     raw,
		path:    abs,
		pointer: normalizePointer(pointer),
	}, nil
}

func newRootMetadata(path string, version uint64) Metadata {
	return Metadata{path: path, pointer: "/", version: version}
}

func resolveRelative(file, base string) string {
	if filepath.IsAbs(file) {
		return filepath.Clean(file)
	}
	return filepath.Join(filepath.Dir(base), file)
}

func normalizePointer(pointer string) string {
	switch {
	case pointer == "":
		return "/"
	case strings.HasPrefix(pointer, "/"):
		return pointer
	default:
		return "/" + pointer
	}
}

// Raw returns the reference text the descriptor was parsed from.
func (m *Metadata) Raw() string { return m.raw }

// Path returns the absolute path of the target document.
func (m *Metadata) Path() string { return m.path }

// Pointer returns the in-document pointer, always starting with '/'.
func (m *Metadata) Pointer() string { return m.pointer }

// Version returns the target document version recorded at last resolution.
func (m *Metadata) Version() uint64 { return m.version }

func (m *Metadata) String() string {
	return m.path + "#" + m.pointer
}

func (m *Metadata) clone() *Metadata {
	if m == nil {
		return nil
	}
	out := *m
	return &out
}
