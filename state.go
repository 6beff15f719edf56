package sparse

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"time"

	"github.com/goliatone/go-sparse/internal/tree"
	"github.com/goliatone/go-sparse/pkg/activity"
	"github.com/goliatone/go-sparse/pkg/store"
)

// State tracks every document reachable from a root document, keyed by
// absolute path. Each path is loaded at most once.
type State struct {
	files    map[string]*StateFile
	rootPath string
	inMemory bool
	cfg      config
	emitter  *activity.Emitter
}

func newState(root string, inMemory bool, opts []Option) (*State, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, documentError(OpLoad, root, err)
	}
	s := &State{
		files:    map[string]*StateFile{},
		rootPath: abs,
		inMemory: inMemory,
		cfg:      applyOptions(opts),
	}
	s.emitter = s.cfg.emitter()
	return s, nil
}

// NewStateFromFile loads the document at path as the root of a new state.
func NewStateFromFile(path string, opts ...Option) (*State, error) {
	s, err := newState(path, false, opts)
	if err != nil {
		return nil, err
	}
	if _, err := s.AddFile(s.rootPath); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStateFromValue creates an in-memory state whose root document is value.
// Such a state never reads other files from disk; additional documents must
// be registered with AddValue.
func NewStateFromValue(path string, value any, opts ...Option) (*State, error) {
	s, err := newState(path, true, opts)
	if err != nil {
		return nil, err
	}
	if err := s.AddValue(s.rootPath, value); err != nil {
		return nil, err
	}
	return s, nil
}

// RootPath returns the absolute path of the root document.
func (s *State) RootPath() string { return s.rootPath }

// InMemory reports whether loading from disk is disabled.
func (s *State) InMemory() bool { return s.inMemory }

// Paths lists tracked documents in lexical order.
func (s *State) Paths() []string {
	paths := make([]string, 0, len(s.files))
	for path := range s.files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Abs resolves path against the directory of the root document.
func (s *State) Abs(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(s.rootPath), path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", documentError(OpLoad, path, err)
	}
	return abs, nil
}

// AddFile loads path unless it is already tracked. Loading an already
// tracked path returns the existing document untouched.
func (s *State) AddFile(path string) (*StateFile, error) {
	abs, err := s.Abs(path)
	if err != nil {
		return nil, err
	}
	if file, ok := s.files[abs]; ok {
		return file, nil
	}
	if s.inMemory {
		return nil, documentError(OpLoad, abs, ErrNoDistantFile)
	}

	start := time.Now()
	doc, err := s.readDocument(abs)
	if err != nil {
		s.cfg.log().Log(LogEvent{Op: OpLoad, Path: abs, Duration: time.Since(start), Err: err})
		return nil, err
	}
	file := newStateFile(doc.value, doc.format)
	file.etag = doc.etag
	s.files[abs] = file
	s.cfg.log().Log(LogEvent{Op: OpLoad, Path: abs, Version: file.version, Duration: time.Since(start)})
	s.emit(activity.BuildDocumentLoadedEvent, documentInput(abs, file))
	return file, nil
}

// AddValue registers value as the document at path. The format is derived
// from the extension, defaulting to pretty JSON.
func (s *State) AddValue(path string, value any) error {
	abs, err := s.Abs(path)
	if err != nil {
		return err
	}
	if _, ok := s.files[abs]; ok {
		return documentError(OpLoad, abs, ErrAlreadyExistsInState)
	}
	node, err := tree.FromValue(value)
	if err != nil {
		return documentError(OpLoad, abs, err)
	}
	format, err := FormatForPath(abs)
	if err != nil {
		format = FormatJSONPretty
	}
	file := newStateFile(node, format)
	s.files[abs] = file
	s.cfg.log().Log(LogEvent{Op: OpLoad, Path: abs, Version: file.version})
	s.emit(activity.BuildDocumentLoadedEvent, documentInput(abs, file))
	return nil
}

// File returns the tracked document at path.
func (s *State) File(path string) (*StateFile, error) {
	abs, err := s.Abs(path)
	if err != nil {
		return nil, err
	}
	file, ok := s.files[abs]
	if !ok {
		return nil, documentError("get", abs, ErrNotInState)
	}
	return file, nil
}

// Node returns the node at pointer inside the document at path, loading the
// document first when needed.
func (s *State) Node(path, pointer string) (any, error) {
	file, err := s.AddFile(path)
	if err != nil {
		return nil, err
	}
	node, err := tree.Lookup(file.value, pointer)
	if err != nil {
		return nil, pointerError(OpResolve, path, pointer, errors.Join(ErrUnknownPath, err))
	}
	return node, nil
}

// Replace overwrites the content of the document at path and bumps its
// version by one.
func (s *State) Replace(path string, value any) error {
	file, err := s.File(path)
	if err != nil {
		return err
	}
	node, err := tree.FromValue(value)
	if err != nil {
		return documentError(OpReplace, path, err)
	}
	file.replace(node)
	s.replaced(path, "/", file)
	return nil
}

// ReplaceAt writes value at pointer inside the document at path and bumps
// the document version by one.
func (s *State) ReplaceAt(path, pointer string, value any) error {
	if tree.IsWhole(pointer) {
		return s.Replace(path, value)
	}
	file, err := s.File(path)
	if err != nil {
		return err
	}
	node, err := tree.FromValue(value)
	if err != nil {
		return pointerError(OpReplace, path, pointer, err)
	}
	updated, err := tree.Set(file.value, pointer, node)
	if err != nil {
		return pointerError(OpReplace, path, pointer, errors.Join(ErrUnknownPath, err))
	}
	file.replace(updated)
	s.replaced(path, pointer, file)
	return nil
}

func (s *State) replaced(path, pointer string, file *StateFile) {
	abs, _ := s.Abs(path)
	s.cfg.log().Log(LogEvent{Op: OpReplace, Path: abs, Pointer: pointer, Version: file.version})
	input := documentInput(abs, file)
	input.Pointer = pointer
	s.emit(activity.BuildDocumentReplacedEvent, input)
}

// Reload re-reads a tracked document from disk. The document is replaced,
// and its version bumped, only when the content changed.
func (s *State) Reload(path string) (bool, error) {
	file, err := s.File(path)
	if err != nil {
		return false, err
	}
	abs, _ := s.Abs(path)
	if s.inMemory {
		return false, documentError(OpReload, abs, ErrNoDistantFile)
	}
	start := time.Now()
	doc, err := s.readDocument(abs)
	if err != nil {
		s.cfg.log().Log(LogEvent{Op: OpReload, Path: abs, Duration: time.Since(start), Err: err})
		return false, err
	}
	file.etag = doc.etag
	if reflect.DeepEqual(file.value, doc.value) {
		return false, nil
	}
	file.format = doc.format
	file.replace(doc.value)
	s.cfg.log().Log(LogEvent{Op: OpReload, Path: abs, Version: file.version, Duration: time.Since(start)})
	s.emit(activity.BuildDocumentReloadedEvent, documentInput(abs, file))
	return true, nil
}

// SaveToDisk rewrites every tracked document in place. Each document keeps
// its recorded format unless override is not FormatAuto. Every file is
// opened before any is truncated; writes are not atomic across files.
func (s *State) SaveToDisk(override Format) error {
	paths := s.Paths()
	payloads := make(map[string][]byte, len(paths))
	for _, path := range paths {
		file := s.files[path]
		format := file.format
		if override != FormatAuto {
			format = override
		}
		payload, err := format.Marshal(file.value)
		if err != nil {
			return documentError(OpFlush, path, err)
		}
		payloads[path] = payload
	}
	if s.cfg.store != nil {
		return s.flushToStore(paths, payloads)
	}

	handles := make(map[string]*os.File, len(paths))
	defer func() {
		for _, handle := range handles {
			_ = handle.Close()
		}
	}()
	for _, path := range paths {
		handle, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o644)
		if err != nil {
			return documentError(OpFlush, path, err)
		}
		handles[path] = handle
	}

	for _, path := range paths {
		start := time.Now()
		handle := handles[path]
		err := handle.Truncate(0)
		if err == nil {
			_, err = handle.Write(payloads[path])
		}
		file := s.files[path]
		s.cfg.log().Log(LogEvent{Op: OpFlush, Path: path, Version: file.version, Duration: time.Since(start), Err: err})
		if err != nil {
			return documentError(OpFlush, path, err)
		}
		s.emit(activity.BuildDocumentSavedEvent, documentInput(path, file))
	}
	return nil
}

func (s *State) flushToStore(paths []string, payloads map[string][]byte) error {
	ctx := context.Background()
	for _, path := range paths {
		start := time.Now()
		file := s.files[path]
		meta, err := s.cfg.store.Save(ctx, path, payloads[path], store.Meta{
			SnapshotID: file.snapshotID,
			ETag:       file.etag,
		})
		s.cfg.log().Log(LogEvent{Op: OpFlush, Path: path, Version: file.version, Duration: time.Since(start), Err: err})
		if err != nil {
			return documentError(OpFlush, path, err)
		}
		file.etag = meta.ETag
		s.emit(activity.BuildDocumentSavedEvent, documentInput(path, file))
	}
	return nil
}

// Export writes the document at path to dest in the format implied by the
// extension of dest.
func (s *State) Export(path, dest string) error {
	file, err := s.File(path)
	if err != nil {
		return err
	}
	format, err := FormatForPath(dest)
	if err != nil {
		return documentError(OpExport, dest, err)
	}
	payload, err := format.Marshal(file.value)
	if err != nil {
		return documentError(OpExport, dest, err)
	}
	if err := os.WriteFile(dest, payload, 0o644); err != nil {
		return documentError(OpExport, dest, err)
	}
	abs, _ := s.Abs(path)
	input := documentInput(abs, file)
	input.Target = dest
	s.cfg.log().Log(LogEvent{Op: OpExport, Path: abs, Version: file.version})
	s.emit(activity.BuildDocumentExportedEvent, input)
	return nil
}

// Dereference returns a copy of the node at pointer in the document at path
// with every `$ref` replaced by its target, loading documents as needed.
func (s *State) Dereference(path, pointer string) (any, error) {
	abs, err := s.Abs(path)
	if err != nil {
		return nil, err
	}
	node, err := s.Node(abs, pointer)
	if err != nil {
		return nil, err
	}
	return s.dereference(node, abs, 0)
}

func (s *State) dereference(node any, base string, depth uint32) (any, error) {
	if err := CheckDepth(depth); err != nil {
		return nil, err
	}
	if raw, ok := tree.RefTarget(node); ok {
		meta, err := NewMetadata(raw, base)
		if err != nil {
			return nil, err
		}
		target, err := s.Node(meta.path, meta.pointer)
		if err != nil {
			return nil, err
		}
		return s.dereference(target, meta.path, depth+1)
	}
	switch typed := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, child := range typed {
			resolved, err := s.dereference(child, base, depth+1)
			if err != nil {
				return nil, err
			}
			out[key] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(typed))
		for i, child := range typed {
			resolved, err := s.dereference(child, base, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return node, nil
	}
}

type document struct {
	value  any
	format Format
	etag   string
}

// readDocument reads path from the configured store, or from disk when none
// is set, and detects its format.
func (s *State) readDocument(path string) (document, error) {
	var (
		data []byte
		etag string
		err  error
	)
	if s.cfg.store != nil {
		var (
			meta store.Meta
			ok   bool
		)
		data, meta, ok, err = s.cfg.store.Load(context.Background(), path)
		if err == nil && !ok {
			err = fs.ErrNotExist
		}
		etag = meta.ETag
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return document{}, documentError(OpLoad, path, err)
	}
	value, format, err := DetectFormat(data)
	if err != nil {
		return document{}, documentError(OpLoad, path, fmt.Errorf("parse: %w", err))
	}
	return document{value: value, format: format, etag: etag}, nil
}
