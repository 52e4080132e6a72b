package usecase

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmonKarmaker/ai-support-system/internal/adapter/fs"
)

func writeDataset(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newLoadUseCase(f *fixture) *LoadUseCase {
	walker := fs.NewWalker([]string{"**/*.csv", "**/*.json", "**/*.jsonl"}, []string{"**/skip/**"})
	return NewLoadUseCase(f.engine, walker, nil)
}

func TestLoadUseCase_Load(t *testing.T) {
	f := newFixture(t, fixtureConfig{})
	dir := t.TempDir()

	writeDataset(t, dir, "faq.csv", "id,question,answer,category,product\n"+
		"1,How do I return an item?,Use the returns page.,returns,\n"+
		"2,How long does shipping take?,3-5 business days.,shipping,\n"+
		"3,,answer without question,general,\n")
	writeDataset(t, dir, "seed/extra.json", `[{"title":"Do you ship abroad?","content":"Yes, to 40 countries.","category":"shipping"}]`)
	writeDataset(t, dir, "skip/ignored.json", `[{"title":"ignored","content":"ignored"}]`)
	writeDataset(t, dir, "broken.jsonl", "{not json\n")
	writeDataset(t, dir, "notes.txt", "not a dataset")

	var seen []LoadProgress
	result, err := newLoadUseCase(f).Load(context.Background(), dir, false, func(p LoadProgress) {
		seen = append(seen, p)
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesLoaded)
	assert.Equal(t, 1, result.FilesFailed)
	assert.Equal(t, 3, result.EntriesIngested)
	assert.Equal(t, 1, result.RecordsSkipped)
	assert.Len(t, result.Errors, 2)

	require.NotEmpty(t, seen)
	assert.Equal(t, LoadProgress{FilesDone: 3, FilesTotal: 3}, seen[len(seen)-1])

	stats, err := f.engine.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.EntryCount)

	cands, err := f.engine.Search(context.Background(), "How do I return an item?", "", 1)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "doc_1", cands[0].Entry.ID)
}

func TestLoadUseCase_ReloadReplacesEntries(t *testing.T) {
	f := newFixture(t, fixtureConfig{})
	dir := t.TempDir()
	path := writeDataset(t, dir, "seed.json", `{"items":[
		{"title":"Do you ship abroad?","content":"Yes.","category":"shipping"},
		{"title":"Is there a warranty?","content":"One year.","category":"warranty"}
	]}`)

	uc := newLoadUseCase(f)
	_, err := uc.LoadFile(context.Background(), path)
	require.NoError(t, err)
	result, err := uc.LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, result.EntriesIngested)

	stats, err := f.engine.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.EntryCount)
}

func TestLoadUseCase_Rebuild(t *testing.T) {
	f := newFixture(t, fixtureConfig{seed: true})
	dir := t.TempDir()
	writeDataset(t, dir, "faq.csv", "question,answer\nWhat are your hours?,9 to 5.\n")

	_, err := newLoadUseCase(f).Load(context.Background(), dir, true, nil)
	require.NoError(t, err)

	stats, err := f.engine.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.EntryCount)
	assert.Equal(t, 1, stats.CategoryCounts["general"])
}

func TestGenerateEntryID(t *testing.T) {
	a := generateEntryID("/data/seed.json", 0)
	assert.Equal(t, a, generateEntryID("/data/seed.json", 0))
	assert.NotEqual(t, a, generateEntryID("/data/seed.json", 1))
	assert.Len(t, a, len("kb_")+16)
}
