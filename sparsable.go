package sparse

import (
	"fmt"
	"reflect"
)

// MaxDepth bounds recursive initialization. Reference hops and structural
// nesting share the same budget.
const MaxDepth uint32 = 100

// Sparsable is implemented by values that hold references needing
// resolution against a State. meta describes the document the value was read
// from.
type Sparsable interface {
	SparseInit(state *State, meta *Metadata, depth uint32) error
}

// SparseUpdater is implemented by values with a cheaper refresh than a full
// SparseInit.
type SparseUpdater interface {
	SparseUpdate(state *State, meta *Metadata, depth uint32) error
}

// CheckDepth fails with ErrCyclicRef once depth reaches MaxDepth.
func CheckDepth(depth uint32) error {
	if depth >= MaxDepth {
		return fmt.Errorf("%w: depth %d reached", ErrCyclicRef, depth)
	}
	return nil
}

var (
	sparsableType = reflect.TypeOf((*Sparsable)(nil)).Elem()
	updaterType   = reflect.TypeOf((*SparseUpdater)(nil)).Elem()
)

// Init walks v depth first and initializes every Sparsable it contains. v
// must be a pointer so resolved references can be stored in place. Structs,
// slices, arrays, maps, pointers and interfaces each add one level of depth.
func Init(v any, state *State, meta *Metadata, depth uint32) error {
	return walk(v, state, meta, depth, false)
}

// Update is Init preferring SparseUpdate wherever it is implemented.
func Update(v any, state *State, meta *Metadata, depth uint32) error {
	return walk(v, state, meta, depth, true)
}

func walk(v any, state *State, meta *Metadata, depth uint32, update bool) error {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return CheckDepth(depth)
	}
	if rv.Kind() != reflect.Pointer {
		return fmt.Errorf("sparse: init requires a pointer, got %T", v)
	}
	return walkValue(rv, state, meta, depth, update)
}

func walkValue(rv reflect.Value, state *State, meta *Metadata, depth uint32, update bool) error {
	if err := CheckDepth(depth); err != nil {
		return err
	}
	if !rv.IsValid() {
		return nil
	}
	if handled, err := visit(rv, state, meta, depth, update); handled {
		return err
	}

	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return walkValue(rv.Elem(), state, meta, depth+1, update)
	case reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		elem := rv.Elem()
		if elem.Kind() == reflect.Pointer {
			return walkValue(elem, state, meta, depth+1, update)
		}
		if !needsWalk(elem.Type()) {
			return nil
		}
		copied := reflect.New(elem.Type())
		copied.Elem().Set(elem)
		if err := walkValue(copied.Elem(), state, meta, depth+1, update); err != nil {
			return err
		}
		if rv.CanSet() {
			rv.Set(copied.Elem())
		}
		return nil
	case reflect.Struct:
		for i := 0; i < rv.NumField(); i++ {
			if !rv.Type().Field(i).IsExported() {
				continue
			}
			if err := walkValue(rv.Field(i), state, meta, depth+1, update); err != nil {
				return err
			}
		}
		return nil
	case reflect.Slice, reflect.Array:
		if !needsWalk(rv.Type().Elem()) {
			return nil
		}
		for i := 0; i < rv.Len(); i++ {
			if err := walkValue(rv.Index(i), state, meta, depth+1, update); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		if rv.IsNil() || !needsWalk(rv.Type().Elem()) {
			return nil
		}
		iter := rv.MapRange()
		for iter.Next() {
			elem := reflect.New(rv.Type().Elem())
			elem.Elem().Set(iter.Value())
			if err := walkValue(elem.Elem(), state, meta, depth+1, update); err != nil {
				return err
			}
			rv.SetMapIndex(iter.Key(), elem.Elem())
		}
		return nil
	default:
		return nil
	}
}

// visit dispatches to SparseInit or SparseUpdate when rv, or its address,
// implements them.
func visit(rv reflect.Value, state *State, meta *Metadata, depth uint32, update bool) (bool, error) {
	target := rv
	if rv.Kind() != reflect.Pointer && rv.CanAddr() {
		target = rv.Addr()
	}
	if target.Kind() == reflect.Pointer && target.IsNil() {
		return false, nil
	}
	if update && target.Type().Implements(updaterType) {
		return true, target.Interface().(SparseUpdater).SparseUpdate(state, meta, depth)
	}
	if target.Type().Implements(sparsableType) {
		return true, target.Interface().(Sparsable).SparseInit(state, meta, depth)
	}
	return false, nil
}

// needsWalk reports whether values of type t can contain a Sparsable.
func needsWalk(t reflect.Type) bool {
	return typeNeedsWalk(t, map[reflect.Type]bool{})
}

func typeNeedsWalk(t reflect.Type, seen map[reflect.Type]bool) bool {
	if seen[t] {
		return false
	}
	seen[t] = true
	if t.Implements(sparsableType) || reflect.PointerTo(t).Implements(sparsableType) {
		return true
	}
	switch t.Kind() {
	case reflect.Interface:
		return true
	case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Map:
		return typeNeedsWalk(t.Elem(), seen)
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if field.IsExported() && typeNeedsWalk(field.Type, seen) {
				return true
			}
		}
	}
	return false
}
