package sparse

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownPath reports an in-document pointer that resolves to nothing.
	ErrUnknownPath = errors.New("sparse: unknown path")
	// ErrBadPointer reports a dereference of a reference that was never resolved.
	ErrBadPointer = errors.New("sparse: reference is not resolved")
	// ErrNoDistantFile reports a file-crossing reference in an in-memory state.
	ErrNoDistantFile = errors.New("sparse: distant files are not allowed in an in-memory state")
	// ErrCyclicRef reports that the resolution depth budget was exhausted.
	ErrCyclicRef = errors.New("sparse: cyclic reference")
	// ErrOutdatedPointer reports a cached dereference older than its document.
	ErrOutdatedPointer = errors.New("sparse: outdated pointer")
	// ErrStateAlreadyBorrowed reports a conflicting access to a shared state.
	ErrStateAlreadyBorrowed = errors.New("sparse: state already borrowed")
	// ErrAlreadyExistsInState reports an attempt to add a tracked path twice.
	ErrAlreadyExistsInState = errors.New("sparse: file already exists in state")
	// ErrNotInState reports a path that the state does not track.
	ErrNotInState = errors.New("sparse: file not in state")
	// ErrBadExtension reports a file suffix with no associated format.
	ErrBadExtension = errors.New("sparse: unrecognized file extension")
	// ErrMutatingRoot reports a save on a view that has no document origin.
	ErrMutatingRoot = errors.New("sparse: inline value has no pointer origin, save through the root")
	// ErrNoEvaluator reports that no expression evaluator could be built.
	ErrNoEvaluator = errors.New("sparse: evaluator not configured")
)

// PointerError carries the document and in-document pointer that an
// operation failed on.
type PointerError struct {
	Op      string
	Path    string
	Pointer string
	Err     error
}

func (e *PointerError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("sparse: %s %s#%s: %v", e.Op, e.Path, e.Pointer, e.Err)
}

func (e *PointerError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// DocumentError carries the document a load, parse or write failed on.
type DocumentError struct {
	Op   string
	Path string
	Err  error
}

func (e *DocumentError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("sparse: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *DocumentError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// EvaluationError captures evaluator metadata alongside the originating error.
type EvaluationError struct {
	Engine string
	Expr   string
	Path   string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("sparse: %s evaluator %s path=%s: %v", e.Engine, describeExpression(e.Expr), e.Path, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func pointerError(op, path, pointer string, err error) error {
	if err == nil {
		return nil
	}
	var ptrErr *PointerError
	if errors.As(err, &ptrErr) {
		return err
	}
	return &PointerError{Op: op, Path: path, Pointer: pointer, Err: err}
}

func documentError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &DocumentError{Op: op, Path: path, Err: err}
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "sparse:") {
		return err
	}
	return fmt.Errorf("sparse: %s evaluator: %w", engine, err)
}

func wrapEvaluationError(engine, expr, path string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Path == "" {
			evalErr.Path = path
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Path:   path,
		Err:    err,
	}
}
