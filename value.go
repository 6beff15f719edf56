package sparse

// Origin is anything that knows the document it was read from.
type Origin interface {
	Path() string
}

// Value is a read view over a resolved value.
type Value[T any] struct {
	ptr  *T
	meta *Metadata
}

// Val returns the viewed value. It is shared with the owning Ref or Root and
// is replaced on the next reset.
func (v Value[T]) Val() *T { return v.ptr }

// Metadata describes the document location of the value, nil when the value
// is written inline in its parent.
func (v Value[T]) Metadata() *Metadata { return v.meta.clone() }

// Path returns the document the value lives in, empty for inline values.
func (v Value[T]) Path() string {
	if v.meta == nil {
		return ""
	}
	return v.meta.path
}

// Pointer returns the in-document location of the value.
func (v Value[T]) Pointer() string {
	if v.meta == nil {
		return ""
	}
	return v.meta.pointer
}

// ValueMut is a mutable view that can write the value back to its document.
type ValueMut[T any] struct {
	ptr    *T
	meta   *Metadata
	root   bool
	shared *SharedState
}

// Val returns the value for in place edits.
func (v ValueMut[T]) Val() *T { return v.ptr }

// Set replaces the viewed value.
func (v ValueMut[T]) Set(value T) { *v.ptr = value }

// Path returns the document Save writes to.
func (v ValueMut[T]) Path() string {
	if v.meta == nil {
		return ""
	}
	return v.meta.path
}

// Pointer returns the in-document location Save writes to.
func (v ValueMut[T]) Pointer() string {
	if v.meta == nil {
		return ""
	}
	return v.meta.pointer
}

// Save serializes the value into its document and bumps the document
// version. It takes the exclusive borrow of the state and fails with
// ErrStateAlreadyBorrowed if any other borrow is open. Every reference to
// the document, including the one this view came from, is stale afterwards.
func (v ValueMut[T]) Save() error {
	if v.meta == nil || v.shared == nil {
		return ErrMutatingRoot
	}
	return v.shared.Write(func(s *State) error {
		if err := s.cfg.validateValue(v.ptr); err != nil {
			return pointerError(OpSave, v.meta.path, v.meta.pointer, err)
		}
		var err error
		if v.root {
			err = s.Replace(v.meta.path, *v.ptr)
		} else {
			err = s.ReplaceAt(v.meta.path, v.meta.pointer, *v.ptr)
		}
		s.cfg.log().Log(LogEvent{Op: OpSave, Path: v.meta.path, Pointer: v.meta.pointer, Err: err})
		return err
	})
}

// DerefRawPointer resolves raw, a string that may be a pointer, against the
// document origin was read from. It is how string values holding pointers
// are followed without typing them as Ref.
func DerefRawPointer[T any](origin Origin, raw string, shared *SharedState) (Ref[T], error) {
	ref := NewRawRef[T](raw)
	err := shared.Write(func(s *State) error {
		base := s.RootPath()
		if origin != nil && origin.Path() != "" {
			base = origin.Path()
		}
		return ref.SparseInit(s, &Metadata{path: base, pointer: "/"}, 0)
	})
	if err != nil {
		return Ref[T]{}, err
	}
	return ref, nil
}
