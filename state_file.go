package sparse

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// StateFile is one tracked document: its generic tree, version stamp and
// recorded format.
type StateFile struct {
	value      any
	version    uint64
	format     Format
	snapshotID string
	etag       string
}

func newStateFile(value any, format Format) *StateFile {
	return &StateFile{
		value:      value,
		version:    initialVersion(),
		format:     format,
		snapshotID: uuid.NewString(),
	}
}

// initialVersion is random, non-zero and leaves room for 2^63 increments.
func initialVersion() uint64 {
	id := uuid.New()
	return binary.BigEndian.Uint64(id[:8])>>1 + 1
}

// Value returns the document tree. Callers must not mutate it.
func (f *StateFile) Value() any { return f.value }

// Version returns the document version stamp.
func (f *StateFile) Version() uint64 { return f.version }

// Format returns the recorded serialization format.
func (f *StateFile) Format() Format { return f.format }

// SnapshotID identifies the current content generation.
func (f *StateFile) SnapshotID() string { return f.snapshotID }

// ETag is the store token of the content last loaded or flushed, empty when
// the state has no store.
func (f *StateFile) ETag() string { return f.etag }

func (f *StateFile) replace(value any) {
	f.value = value
	f.version++
	f.snapshotID = uuid.NewString()
}
