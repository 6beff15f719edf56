package sparse

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chainDoc struct {
	Key1 Ref[string] `json:"key1"`
}

func TestTraceRoundTrip(t *testing.T) {
	dir := writeDocs(t, map[string]string{
		"root.json": `{"hello":{"$ref":"#/inner"},"inner":{"$ref":"#/value"},"value":"deep","key1":{"$ref":"#/hello"}}`,
	})
	root, err := NewRootFromFile[chainDoc](filepath.Join(dir, "root.json"))
	require.NoError(t, err)

	view, err := root.RootGet()
	require.NoError(t, err)
	trace := view.Val().Key1.Trace()
	assert.True(t, trace.Resolved)
	assert.Equal(t, "#/hello", trace.Ref)
	require.Len(t, trace.Hops, 3)
	target, ok := trace.Target()
	require.True(t, ok)
	assert.Equal(t, "/value", target.Pointer)

	payload, err := trace.ToJSON()
	require.NoError(t, err)
	decoded, err := TraceFromJSON(payload)
	require.NoError(t, err)
	assert.Equal(t, trace, decoded)

	inline := NewInline("x")
	_, ok = inline.Trace().Target()
	assert.False(t, ok)
}
