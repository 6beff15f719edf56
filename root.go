package sparse

import (
	"errors"

	"github.com/goliatone/go-sparse/internal/tree"
)

// Root owns the typed value decoded from a root document together with the
// state every reference inside it resolves against.
type Root[T any] struct {
	val    T
	shared *SharedState
	meta   Metadata
}

// Source is an additional in-memory document for NewRootFromValue.
type Source struct {
	Path  string
	Value any
}

// NewRootFromFile loads path, decodes it into T and resolves every reference
// reachable from it.
func NewRootFromFile[T any](path string, opts ...Option) (*Root[T], error) {
	state, err := NewStateFromFile(path, opts...)
	if err != nil {
		return nil, err
	}
	return newRoot[T](state)
}

// NewRootFromValue builds an in-memory root document at path from value.
// References may only target path itself or one of others.
func NewRootFromValue[T any](path string, value any, others []Source, opts ...Option) (*Root[T], error) {
	state, err := NewStateFromValue(path, value, opts...)
	if err != nil {
		return nil, err
	}
	for _, other := range others {
		if err := state.AddValue(other.Path, other.Value); err != nil {
			return nil, err
		}
	}
	return newRoot[T](state)
}

// NewRootFromObj builds an in-memory root document at path from a typed value.
func NewRootFromObj[T any](val T, path string, opts ...Option) (*Root[T], error) {
	node, err := tree.FromValue(val)
	if err != nil {
		return nil, documentError(OpLoad, path, err)
	}
	return NewRootFromValue[T](path, node, nil, opts...)
}

func newRoot[T any](state *State) (*Root[T], error) {
	root := &Root[T]{shared: NewSharedState(state)}
	if err := root.shared.Write(root.reset); err != nil {
		return nil, err
	}
	return root, nil
}

// State returns the shared state handle used by views and DerefRawPointer.
func (r *Root[T]) State() *SharedState { return r.shared }

// Path returns the absolute path of the root document.
func (r *Root[T]) Path() string { return r.meta.path }

// Metadata returns the root descriptor, pointing at "/" of the root document.
func (r *Root[T]) Metadata() *Metadata { return r.meta.clone() }

// reset decodes the root value from the current root document and
// initializes it from depth zero.
func (r *Root[T]) reset(s *State) error {
	file, err := s.File(s.RootPath())
	if err != nil {
		return err
	}
	meta := newRootMetadata(s.RootPath(), file.version)
	val, err := decodeNode[T](s, &meta, file.value)
	if err != nil {
		return err
	}
	r.val = val
	r.meta = meta
	return Init(&r.val, s, &r.meta, 0)
}

func (r *Root[T]) checkVersion(s *State) error {
	file, err := s.File(r.meta.path)
	if err != nil {
		return err
	}
	if file.version != r.meta.version {
		return pointerError("check", r.meta.path, r.meta.pointer, ErrOutdatedPointer)
	}
	return nil
}

// CheckVersion fails with ErrOutdatedPointer when the root document changed
// since the root value was decoded.
func (r *Root[T]) CheckVersion() error {
	return r.shared.Read(r.checkVersion)
}

// Init runs recursive initialization over the current root value.
func (r *Root[T]) Init() error {
	return r.shared.Write(func(s *State) error {
		return Init(&r.val, s, &r.meta, 0)
	})
}

// EnsureSynced re-decodes and re-initializes the root value if the root
// document changed. Errors other than a version mismatch are returned as is.
func (r *Root[T]) EnsureSynced() error {
	return r.shared.Write(func(s *State) error {
		_, err := r.syncIfStale(s)
		return err
	})
}

func (r *Root[T]) syncIfStale(s *State) (bool, error) {
	err := r.checkVersion(s)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrOutdatedPointer) {
		return false, err
	}
	return true, r.reset(s)
}

// Update brings the whole tree up to date after a save: a stale root is
// re-decoded, otherwise every reference is refreshed top-down and resets if
// its target document changed.
func (r *Root[T]) Update() error {
	return r.shared.Write(func(s *State) error {
		reset, err := r.syncIfStale(s)
		if err != nil || reset {
			return err
		}
		return Update(&r.val, s, &r.meta, 0)
	})
}

// Reset unconditionally re-decodes the root value from its document.
func (r *Root[T]) Reset() error {
	return r.shared.Write(r.reset)
}

// RootGet returns a read view of the root value.
func (r *Root[T]) RootGet() (Value[T], error) {
	var out Value[T]
	err := r.shared.Read(func(s *State) error {
		if err := r.checkVersion(s); err != nil {
			return err
		}
		out = Value[T]{ptr: &r.val, meta: r.meta.clone()}
		return nil
	})
	return out, err
}

// RootGetMut returns a mutable view whose Save replaces the root document.
func (r *Root[T]) RootGetMut() (ValueMut[T], error) {
	var out ValueMut[T]
	err := r.shared.Read(func(s *State) error {
		if err := r.checkVersion(s); err != nil {
			return err
		}
		out = ValueMut[T]{ptr: &r.val, meta: r.meta.clone(), root: true, shared: r.shared}
		return nil
	})
	return out, err
}

// SaveToDisk writes every tracked document back to disk, see
// State.SaveToDisk.
func (r *Root[T]) SaveToDisk(override Format) error {
	return r.shared.Read(func(s *State) error {
		return s.SaveToDisk(override)
	})
}
