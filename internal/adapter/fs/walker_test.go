package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestWalker_Walk(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "faq.csv")
	writeFile(t, root, "seed/kb.json")
	writeFile(t, root, "seed/kb.jsonl")
	writeFile(t, root, "notes.txt")
	writeFile(t, root, ".supportrag/cache.json")

	w := NewWalker([]string{"**/*.csv", "**/*.json", "**/*.jsonl"}, []string{"**/.supportrag/**"})
	files, err := w.Walk(root)
	require.NoError(t, err)

	var rel []string
	for _, f := range files {
		r, err := filepath.Rel(root, f.Path)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
		assert.Positive(t, f.Size)
	}
	assert.Equal(t, []string{"faq.csv", "seed/kb.json", "seed/kb.jsonl"}, rel)
}

func TestWalker_SingleFileRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "faq.csv")

	w := NewWalker([]string{"**/*.csv"}, nil)
	files, err := w.Walk(filepath.Join(root, "faq.csv"))
	require.NoError(t, err)
	require.Len(t, files, 1)
}

func TestWalker_Match(t *testing.T) {
	w := NewWalker([]string{"**/*.csv"}, []string{"archive/**"})

	assert.True(t, w.Match("data/faq.csv"))
	assert.True(t, w.Match("faq.csv"))
	assert.False(t, w.Match("archive/old.csv"))
	assert.False(t, w.Match("data/faq.json"))
}
