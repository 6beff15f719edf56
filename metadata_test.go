package sparse

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetadataPointerOnly(t *testing.T) {
	base := "/tmp/base.json"
	cases := []struct {
		raw     string
		pointer string
	}{
		{raw: "/hello", pointer: "/hello"},
		{raw: "hello", pointer: "/hello"},
		{raw: "#hello", pointer: "/hello"},
		{raw: "#/hello", pointer: "/hello"},
		{raw: "####hel#lo", pointer: "/###hel#lo"},
		{raw: "", pointer: "/"},
		{raw: "#", pointer: "/"},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			meta, err := NewMetadata(tc.raw, base)
			require.NoError(t, err)
			assert.Equal(t, tc.pointer, meta.Pointer())
			assert.Equal(t, base, meta.Path())
			assert.Equal(t, tc.raw, meta.Raw())
			assert.Zero(t, meta.Version())
		})
	}
}

func TestNewMetadataDistantFile(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		base    string
		path    string
		pointer string
	}{
		{name: "relative", raw: "./world.json#/hello", base: "/tmp/a/base.json", path: "/tmp/a/world.json", pointer: "/hello"},
		{name: "parent", raw: "../world.json#hello", base: "/tmp/a/base.json", path: "/tmp/world.json", pointer: "/hello"},
		{name: "absolute", raw: "/tmp/hello.json#/hello", base: "/srv/base.json", path: "/tmp/hello.json", pointer: "/hello"},
		{name: "hash in pointer", raw: "/tmp/#hello.json#/hello", base: "/srv/base.json", path: "/tmp", pointer: "/hello.json#/hello"},
		{name: "empty pointer", raw: "other.yaml#", base: "/srv/base.json", path: "/srv/other.yaml", pointer: "/"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			meta, err := NewMetadata(tc.raw, tc.base)
			require.NoError(t, err)
			assert.Equal(t, filepath.FromSlash(tc.path), meta.Path())
			assert.Equal(t, tc.pointer, meta.Pointer())
		})
	}
}

func TestMetadataString(t *testing.T) {
	meta, err := NewMetadata("b.json#/x", "/tmp/a.json")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/b.json#/x", meta.String())

	cloned := meta.clone()
	cloned.version = 7
	assert.Zero(t, meta.Version())
}
