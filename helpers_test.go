package sparse

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeDocs writes every name/content pair under a fresh temp dir and returns
// the directory.
func writeDocs(t *testing.T, docs map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range docs {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func readDoc(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

type localDoc struct {
	Hello string      `json:"hello"`
	Key1  Ref[string] `json:"key1"`
}

type twoRefDoc struct {
	Hello string      `json:"hello"`
	Key1  Ref[string] `json:"key1"`
	Key2  Ref[string] `json:"key2"`
}

type word struct {
	Word string `json:"word"`
}

type distantDoc struct {
	Key1 Ref[word] `json:"key1"`
}
