package sparse

import "encoding/json"

// InlineRef is a pointer written as a plain JSON string rather than a `$ref`
// object, e.g. `"fallback": "#/servers/0"`. It is resolved eagerly like Ref.
type InlineRef[T any] struct {
	ref Ref[T]
}

// NewInlineRef returns an unresolved string pointer to raw.
func NewInlineRef[T any](raw string) InlineRef[T] {
	return InlineRef[T]{ref: NewRawRef[T](raw)}
}

// Raw returns the pointer text.
func (r *InlineRef[T]) Raw() string { return r.ref.raw }

// Ref exposes the underlying reference.
func (r *InlineRef[T]) Ref() *Ref[T] { return &r.ref }

func (r InlineRef[T]) MarshalJSON() ([]byte, error) {
	if r.ref.raw == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.ref.raw)
}

func (r *InlineRef[T]) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = NewInlineRef[T](raw)
	return nil
}

// SparseInit resolves the pointer. A field missing from its document holds
// the zero value of T.
func (r *InlineRef[T]) SparseInit(state *State, meta *Metadata, depth uint32) error {
	return r.ref.SparseInit(state, meta, depth)
}

// Get returns a read view of the pointed value.
func (r *InlineRef[T]) Get(shared *SharedState) (Value[T], error) {
	return r.ref.Get(shared)
}

// GetMut returns a mutable view of the pointed value.
func (r *InlineRef[T]) GetMut(shared *SharedState) (ValueMut[T], error) {
	return r.ref.GetMut(shared)
}
