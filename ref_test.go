package sparse

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefUnmarshalAndMarshal(t *testing.T) {
	var pointer Ref[string]
	require.NoError(t, json.Unmarshal([]byte(`{"$ref":"#/hello"}`), &pointer))
	assert.False(t, pointer.IsInline())
	assert.Equal(t, "#/hello", pointer.Raw())

	var inline Ref[string]
	require.NoError(t, json.Unmarshal([]byte(`"world"`), &inline))
	assert.True(t, inline.IsInline())

	var object Ref[map[string]any]
	require.NoError(t, json.Unmarshal([]byte(`{"$ref":{"not":"a pointer"}}`), &object))
	assert.True(t, object.IsInline(), "non-string $ref members are plain data")

	out, err := json.Marshal(struct {
		A Ref[string] `json:"a"`
		B Ref[string] `json:"b"`
		C Ref[string] `json:"c"`
	}{A: pointer, B: inline})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":{"$ref":"#/hello"},"b":"world","c":null}`, string(out))
}

func TestRefLocalResolution(t *testing.T) {
	root, err := NewRootFromValue[localDoc]("/virtual/root.json", map[string]any{
		"hello": "world",
		"key1":  map[string]any{"$ref": "#/hello"},
	}, nil)
	require.NoError(t, err)

	view, err := root.RootGet()
	require.NoError(t, err)
	doc := view.Val()
	require.True(t, doc.Key1.IsResolved())

	value, err := doc.Key1.Get(root.State())
	require.NoError(t, err)
	assert.Equal(t, "world", *value.Val())
	assert.Equal(t, "/virtual/root.json", value.Path())
	assert.Equal(t, "/hello", value.Pointer())
	assert.Equal(t, "/hello", doc.Key1.Metadata().Pointer())
}

func TestRefCrossFileResolution(t *testing.T) {
	dir := writeDocs(t, map[string]string{
		"fileA.json":     `{"key1":{"$ref":"sub/fileB.json#/list/2"}}`,
		"sub/fileB.json": `{"list":["x","y",{"$ref":"../fileC.json#/key1"}]}`,
		"fileC.json":     `{"key1":"z"}`,
	})
	root, err := NewRootFromFile[localDoc](filepath.Join(dir, "fileA.json"))
	require.NoError(t, err)

	view, err := root.RootGet()
	require.NoError(t, err)
	value, err := view.Val().Key1.Get(root.State())
	require.NoError(t, err)
	assert.Equal(t, "z", *value.Val())
	assert.Equal(t, filepath.Join(dir, "fileC.json"), value.Path())

	err = root.State().Read(func(s *State) error {
		assert.Equal(t, []string{
			filepath.Join(dir, "fileA.json"),
			filepath.Join(dir, "fileC.json"),
			filepath.Join(dir, "sub", "fileB.json"),
		}, s.Paths())
		return nil
	})
	require.NoError(t, err)

	trace := view.Val().Key1.Trace()
	require.Len(t, trace.Hops, 2)
	assert.True(t, trace.Resolved)
	target, ok := trace.Target()
	require.True(t, ok)
	assert.Equal(t, "/key1", target.Pointer)
}

func TestRefDanglingPointer(t *testing.T) {
	_, err := NewRootFromValue[localDoc]("/virtual/root.json", map[string]any{
		"key1": map[string]any{"$ref": "#/nonexistent"},
	}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownPath), "expected ErrUnknownPath, got %v", err)

	var ptrErr *PointerError
	require.True(t, errors.As(err, &ptrErr))
	assert.Equal(t, "/nonexistent", ptrErr.Pointer)
}

func TestRefNoDistantFileInMemory(t *testing.T) {
	_, err := NewRootFromValue[localDoc]("/virtual/root.json", map[string]any{
		"key1": map[string]any{"$ref": "other.json#/x"},
	}, nil)
	assert.True(t, errors.Is(err, ErrNoDistantFile), "expected ErrNoDistantFile, got %v", err)
}

func TestRefInMemoryOthers(t *testing.T) {
	root, err := NewRootFromValue[localDoc]("/virtual/root.json", map[string]any{
		"key1": map[string]any{"$ref": "other.json#/x"},
	}, []Source{{Path: "other.json", Value: map[string]any{"x": "from other"}}})
	require.NoError(t, err)

	view, err := root.RootGet()
	require.NoError(t, err)
	value, err := view.Val().Key1.Get(root.State())
	require.NoError(t, err)
	assert.Equal(t, "from other", *value.Val())
}

func TestRefCyclicSelf(t *testing.T) {
	_, err := NewRootFromValue[localDoc]("/virtual/root.json", map[string]any{
		"key1": map[string]any{"$ref": "#/key1"},
	}, nil)
	assert.True(t, errors.Is(err, ErrCyclicRef), "expected ErrCyclicRef, got %v", err)
}

func TestRefCyclicAcrossFiles(t *testing.T) {
	dir := writeDocs(t, map[string]string{
		"file0.json": `{"key1":{"$ref":"file1.json#/key1"}}`,
		"file1.json": `{"key1":{"$ref":"file0.json#/key1"}}`,
	})
	_, err := NewRootFromFile[localDoc](filepath.Join(dir, "file0.json"))
	assert.True(t, errors.Is(err, ErrCyclicRef), "expected ErrCyclicRef, got %v", err)
}

func TestRefGetBeforeResolve(t *testing.T) {
	state, err := NewStateFromValue("/virtual/root.json", map[string]any{"a": "b"})
	require.NoError(t, err)
	shared := NewSharedState(state)

	ref := NewRawRef[string]("#/a")
	_, err = ref.Get(shared)
	assert.True(t, errors.Is(err, ErrBadPointer), "expected ErrBadPointer, got %v", err)

	var zero Ref[string]
	require.NoError(t, shared.Write(func(s *State) error {
		return zero.SparseInit(s, nil, 0)
	}))
	assert.True(t, zero.IsInline())

	inline := NewInline("direct")
	value, err := inline.Get(shared)
	require.NoError(t, err)
	assert.Equal(t, "direct", *value.Val())
	assert.Nil(t, value.Metadata())
	assert.NoError(t, inline.CheckVersion(state))
}

func TestRefOutdatedAfterReplace(t *testing.T) {
	state, err := NewStateFromValue("/virtual/root.json", map[string]any{"a": "b"})
	require.NoError(t, err)
	shared := NewSharedState(state)

	ref := NewRawRef[string]("#/a")
	require.NoError(t, shared.Write(func(s *State) error {
		return ref.SparseInit(s, nil, 0)
	}))
	require.NoError(t, ref.CheckVersion(state))

	require.NoError(t, state.ReplaceAt("/virtual/root.json", "/a", "c"))
	_, err = ref.Get(shared)
	assert.True(t, errors.Is(err, ErrOutdatedPointer), "expected ErrOutdatedPointer, got %v", err)

	require.NoError(t, shared.Write(func(s *State) error {
		return ref.SparseUpdate(s, nil, 0)
	}))
	value, err := ref.Get(shared)
	require.NoError(t, err)
	assert.Equal(t, "c", *value.Val())
}

func TestRefNestedContainers(t *testing.T) {
	type containers struct {
		A    string                 `json:"a"`
		List []Ref[string]          `json:"list"`
		By   map[string]Ref[string] `json:"by"`
		Opt  *Ref[string]           `json:"opt"`
		None *Ref[string]           `json:"none"`
	}
	root, err := NewRootFromValue[containers]("/virtual/root.json", map[string]any{
		"a":    "A",
		"list": []any{map[string]any{"$ref": "#/a"}, "b"},
		"by":   map[string]any{"x": map[string]any{"$ref": "#/list/1"}},
		"opt":  map[string]any{"$ref": "#/by/x"},
	}, nil)
	require.NoError(t, err)

	view, err := root.RootGet()
	require.NoError(t, err)
	doc := view.Val()
	shared := root.State()

	first, err := doc.List[0].Get(shared)
	require.NoError(t, err)
	assert.Equal(t, "A", *first.Val())

	second, err := doc.List[1].Get(shared)
	require.NoError(t, err)
	assert.Equal(t, "b", *second.Val())

	byX := doc.By["x"]
	fromMap, err := byX.Get(shared)
	require.NoError(t, err)
	assert.Equal(t, "b", *fromMap.Val())

	require.NotNil(t, doc.Opt)
	chained, err := doc.Opt.Get(shared)
	require.NoError(t, err)
	assert.Equal(t, "b", *chained.Val())
	assert.Equal(t, "/list/1", chained.Pointer())
	assert.Nil(t, doc.None)
}

func TestInlineRef(t *testing.T) {
	type withInline struct {
		Hello string            `json:"hello"`
		Key2  Ref[string]       `json:"key2"`
		Key3  InlineRef[string] `json:"key3"`
	}
	root, err := NewRootFromValue[withInline]("/virtual/root.json", map[string]any{
		"hello": "world",
		"key2":  map[string]any{"$ref": "#/hello"},
		"key3":  "#/key2",
	}, nil)
	require.NoError(t, err)

	view, err := root.RootGet()
	require.NoError(t, err)
	value, err := view.Val().Key3.Get(root.State())
	require.NoError(t, err)
	assert.Equal(t, "world", *value.Val())
	assert.Equal(t, "#/key2", view.Val().Key3.Raw())

	out, err := json.Marshal(view.Val().Key3)
	require.NoError(t, err)
	assert.Equal(t, `"#/key2"`, string(out))
}

func TestDerefRawPointer(t *testing.T) {
	type soft struct {
		Hello string `json:"hello"`
		Soft  string `json:"soft"`
	}
	dir := writeDocs(t, map[string]string{
		"root.json":  `{"hello":"world","soft":"other.json#/greeting"}`,
		"other.json": `{"greeting":{"$ref":"root.json#/hello"}}`,
	})
	root, err := NewRootFromFile[soft](filepath.Join(dir, "root.json"))
	require.NoError(t, err)

	view, err := root.RootGet()
	require.NoError(t, err)
	ref, err := DerefRawPointer[string](view, view.Val().Soft, root.State())
	require.NoError(t, err)

	value, err := ref.Get(root.State())
	require.NoError(t, err)
	assert.Equal(t, "world", *value.Val())
	assert.Len(t, ref.Trace().Hops, 2)
}

func TestRefMissingFieldsAreOptional(t *testing.T) {
	type optionalDoc struct {
		Hello string            `json:"hello"`
		Key1  Ref[string]       `json:"key1"`
		Key3  InlineRef[string] `json:"key3"`
	}
	root, err := NewRootFromValue[optionalDoc]("/virtual/root.json", map[string]any{
		"hello": "world",
	}, nil)
	require.NoError(t, err)

	view, err := root.RootGet()
	require.NoError(t, err)
	doc := view.Val()
	assert.True(t, doc.Key1.IsInline())
	assert.Nil(t, doc.Key1.Metadata())

	value, err := doc.Key1.Get(root.State())
	require.NoError(t, err)
	assert.Equal(t, "", *value.Val())

	pointed, err := doc.Key3.Get(root.State())
	require.NoError(t, err)
	assert.Equal(t, "", *pointed.Val())

	out, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hello":"world","key1":"","key3":null}`, string(out))

	missing, err := NewRootFromValue[localDoc]("/virtual/root.json", map[string]any{"hello": "world"}, nil)
	require.NoError(t, err)
	assert.NoError(t, missing.CheckVersion())
}
