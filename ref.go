package sparse

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/goliatone/go-sparse/internal/hydrate"
	"github.com/goliatone/go-sparse/internal/tree"
)

type refKind uint8

const (
	refUnresolved refKind = iota
	refInline
	refRaw
	refResolved
)

// Ref is a value that is either written inline in its document or is a
// `{"$ref": "file#/pointer"}` object resolved against a State.
//
// A resolved Ref owns the decoded payload of its target, which is itself a
// Ref: inline for a plain value, or resolved again when the target is another
// reference. The chain always ends on an inline Ref. The zero Ref stands for a
// field missing from its document and initializes as an inline zero value.
type Ref[T any] struct {
	kind   refKind
	value  T
	raw    string
	meta   *Metadata
	target *Ref[T]
	// pending holds inline JSON until it is decoded with the state's options.
	pending json.RawMessage
}

// NewInline returns a Ref holding value directly.
func NewInline[T any](value T) Ref[T] {
	return Ref[T]{kind: refInline, value: value}
}

// NewRawRef returns an unresolved pointer to raw.
func NewRawRef[T any](raw string) Ref[T] {
	return Ref[T]{kind: refRaw, raw: raw}
}

// IsInline reports whether the value is written in place.
func (r *Ref[T]) IsInline() bool { return r.kind == refInline }

// IsResolved reports whether the pointer has been resolved.
func (r *Ref[T]) IsResolved() bool { return r.kind == refResolved }

// Raw returns the reference text, empty for inline values.
func (r *Ref[T]) Raw() string { return r.raw }

// Metadata returns the descriptor of the first hop, nil unless resolved.
func (r *Ref[T]) Metadata() *Metadata {
	if r.kind != refResolved {
		return nil
	}
	return r.meta.clone()
}

// MarshalJSON writes inline values as-is and pointers as `$ref` objects.
func (r Ref[T]) MarshalJSON() ([]byte, error) {
	switch r.kind {
	case refInline:
		return json.Marshal(r.value)
	case refRaw, refResolved:
		return json.Marshal(map[string]string{tree.RefKey: r.raw})
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON reads an object with a string `$ref` member as a pointer and
// anything else as an inline value.
func (r *Ref[T]) UnmarshalJSON(data []byte) error {
	if raw, ok := refFromJSON(data); ok {
		*r = NewRawRef[T](raw)
		return nil
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*r = NewInline(value)
	r.pending = append(json.RawMessage(nil), data...)
	return nil
}

func refFromJSON(data []byte) (string, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", false
	}
	var object map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &object); err != nil {
		return "", false
	}
	member, ok := object[tree.RefKey]
	if !ok {
		return "", false
	}
	var raw string
	if err := json.Unmarshal(member, &raw); err != nil {
		return "", false
	}
	return raw, true
}

// SparseInit resolves the pointer if needed, resets it when its target
// document changed, and initializes the payload one level deeper.
func (r *Ref[T]) SparseInit(state *State, meta *Metadata, depth uint32) error {
	return r.init(state, meta, depth, false)
}

// SparseUpdate is SparseInit preferring SparseUpdate on the payload.
func (r *Ref[T]) SparseUpdate(state *State, meta *Metadata, depth uint32) error {
	return r.init(state, meta, depth, true)
}

func (r *Ref[T]) init(state *State, meta *Metadata, depth uint32, update bool) error {
	if err := CheckDepth(depth); err != nil {
		return err
	}
	switch r.kind {
	case refUnresolved:
		// absent from its document: an optional field holding the zero value
		r.kind = refInline
		fallthrough
	case refInline:
		if err := r.decodePending(state, meta); err != nil {
			return err
		}
		if update {
			return Update(&r.value, state, meta, depth+1)
		}
		return Init(&r.value, state, meta, depth+1)
	case refRaw:
		return r.reset(state, meta, depth, update)
	case refResolved:
		if err := r.checkVersion(state); err != nil {
			if errors.Is(err, ErrOutdatedPointer) {
				return r.reset(state, meta, depth, update)
			}
			return err
		}
		return r.target.init(state, r.meta, depth+1, update)
	default:
		return ErrBadPointer
	}
}

// decodePending re-decodes inline JSON through the state's decoder so that
// options such as WithUseNumber reach values nested in a Ref.
func (r *Ref[T]) decodePending(state *State, meta *Metadata) error {
	if r.pending == nil {
		return nil
	}
	desc := meta
	if desc == nil {
		desc = &Metadata{path: state.RootPath(), pointer: "/"}
	}
	value, err := decodeNode[T](state, desc, r.pending)
	if err != nil {
		return err
	}
	r.value = value
	r.pending = nil
	return nil
}

// reset drops the cached payload and resolves raw again against the
// document meta describes.
func (r *Ref[T]) reset(state *State, meta *Metadata, depth uint32, update bool) error {
	start := time.Now()
	base := state.RootPath()
	if meta != nil && meta.path != "" {
		base = meta.path
	}
	desc, err := NewMetadata(r.raw, base)
	if err != nil {
		return err
	}
	logResolve := func(err error) error {
		state.cfg.log().Log(LogEvent{
			Op:       OpResolve,
			Path:     desc.path,
			Pointer:  desc.pointer,
			Version:  desc.version,
			Depth:    depth,
			Duration: time.Since(start),
			Err:      err,
		})
		return err
	}

	file, err := state.AddFile(desc.path)
	if err != nil {
		return logResolve(err)
	}
	node, err := tree.Lookup(file.value, desc.pointer)
	if err != nil {
		return logResolve(pointerError(OpResolve, desc.path, desc.pointer, errors.Join(ErrUnknownPath, err)))
	}
	desc.version = file.version

	target, err := decodeRef[T](state, desc, node)
	if err != nil {
		return logResolve(err)
	}
	r.kind = refResolved
	r.meta = desc
	r.target = &target
	logResolve(nil)
	return r.target.init(state, desc, depth+1, update)
}

func decodeRef[T any](state *State, desc *Metadata, node any) (Ref[T], error) {
	if raw, ok := tree.RefTarget(node); ok {
		return NewRawRef[T](raw), nil
	}
	value, err := decodeNode[T](state, desc, node)
	if err != nil {
		return Ref[T]{}, err
	}
	return NewInline(value), nil
}

func decodeNode[T any](state *State, desc *Metadata, node any) (T, error) {
	decoder := hydrate.NewDecoder[T](hydrate.WithConfigure[T](state.cfg.configureDec))
	value, err := decoder.Decode(hydrate.Context{Path: desc.path, Pointer: desc.pointer}, node)
	if err != nil {
		var zero T
		return zero, pointerError(OpResolve, desc.path, desc.pointer, err)
	}
	return value, nil
}

func (r *Ref[T]) checkVersion(state *State) error {
	file, err := state.File(r.meta.path)
	if err != nil {
		return err
	}
	if file.version != r.meta.version {
		return pointerError("check", r.meta.path, r.meta.pointer, ErrOutdatedPointer)
	}
	return nil
}

// CheckVersion verifies every hop of the chain against state. Inline values
// are always current.
func (r *Ref[T]) CheckVersion(state *State) error {
	_, _, err := r.leaf(state)
	return err
}

// leaf follows the chain to the inline payload, checking versions on the
// way, and returns it with the descriptor of the last hop.
func (r *Ref[T]) leaf(state *State) (*Ref[T], *Metadata, error) {
	current := r
	var meta *Metadata
	for hops := uint32(0); ; hops++ {
		if err := CheckDepth(hops); err != nil {
			return nil, nil, err
		}
		switch current.kind {
		case refInline, refUnresolved:
			return current, meta, nil
		case refResolved:
			if err := current.checkVersion(state); err != nil {
				return nil, nil, err
			}
			meta = current.meta
			current = current.target
		default:
			return nil, nil, ErrBadPointer
		}
	}
}

// Get returns a read view of the value after checking that no hop is stale.
func (r *Ref[T]) Get(shared *SharedState) (Value[T], error) {
	var out Value[T]
	err := shared.Read(func(s *State) error {
		leaf, meta, err := r.leaf(s)
		if err != nil {
			return err
		}
		out = Value[T]{ptr: &leaf.value, meta: meta.clone()}
		return nil
	})
	return out, err
}

// GetMut returns a mutable view that writes back to the document owning the
// value. Inline values have no such document and cannot be saved.
func (r *Ref[T]) GetMut(shared *SharedState) (ValueMut[T], error) {
	var out ValueMut[T]
	err := shared.Read(func(s *State) error {
		leaf, meta, err := r.leaf(s)
		if err != nil {
			return err
		}
		out = ValueMut[T]{ptr: &leaf.value, meta: meta.clone(), shared: shared}
		return nil
	})
	return out, err
}

// Trace lists the hops from this reference to its inline payload.
func (r *Ref[T]) Trace() Trace {
	trace := Trace{Ref: r.raw}
	current := r
	for current != nil && current.kind == refResolved {
		trace.Hops = append(trace.Hops, Hop{
			Raw:     current.raw,
			Path:    current.meta.path,
			Pointer: current.meta.pointer,
			Version: current.meta.version,
		})
		current = current.target
	}
	trace.Resolved = current != nil && (current.kind == refInline || current.kind == refUnresolved)
	return trace
}
