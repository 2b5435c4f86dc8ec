package reporter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amosWeiskopf/corpusmith/internal/models"
	"github.com/amosWeiskopf/corpusmith/pkg/corpus"
)

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("palabra ", n))
}

func fixture(t *testing.T) *corpus.Store {
	t.Helper()
	store := corpus.NewStore(t.TempDir())
	for _, w := range []struct {
		lang, seed, page string
		n                int
	}{
		{"en", "https://a.example/", "https://a.example/one", 60},
		{"en", "https://a.example/", "https://a.example/two", 250},
		{"es", "https://a.example/", "https://a.example/tres", 300},
		{"en", "https://b.example/", "https://b.example/one", 120},
	} {
		_, err := store.Write(w.lang, corpus.SeedKey(w.seed), corpus.URLSlug(w.page), words(w.n), w.n)
		require.NoError(t, err)
	}
	// in-flight temporary files are not documents
	require.NoError(t, os.WriteFile(filepath.Join(store.Root(), "en", ".partial-123"), []byte(words(999)), 0o644))
	return store
}

func TestScan(t *testing.T) {
	r := New(fixture(t), 200)

	report, err := r.Scan([]string{"https://a.example/", "https://missing.example/"})
	require.NoError(t, err)

	require.Len(t, report.Languages, 2)
	en := report.Languages[0]
	assert.Equal(t, "en", en.Language)
	assert.Equal(t, 3, en.Files)
	assert.Equal(t, 430, en.Words)
	assert.Equal(t, 60, en.MinWords)
	assert.Equal(t, 250, en.MaxWords)
	assert.Equal(t, 1, en.HighQuality)

	assert.Equal(t, models.FileStats{Files: 4, Words: 730, MinWords: 60, MaxWords: 300, HighQuality: 2}, report.Totals)

	require.Len(t, report.Seeds, 2)
	a := report.Seeds[0]
	assert.Equal(t, 3, a.Files)
	assert.Equal(t, 2, a.HighQuality)
	assert.Equal(t, map[string]int{"en": 2, "es": 1}, a.Languages)
	assert.Equal(t, 0, report.Seeds[1].Files)
}

func TestScanSeparatesPrefixSharingSeeds(t *testing.T) {
	store := corpus.NewStore(t.TempDir())
	_, err := store.Write("en", corpus.SeedKey("https://x.com/news"), corpus.URLSlug("https://x.com/news/a"), words(80), 80)
	require.NoError(t, err)
	_, err = store.Write("en", corpus.SeedKey("https://x.com/news/world"), corpus.URLSlug("https://x.com/news/world/b"), words(90), 90)
	require.NoError(t, err)

	report, err := New(store, 200).Scan([]string{"https://x.com/news", "https://x.com/news/world"})
	require.NoError(t, err)

	require.Len(t, report.Seeds, 2)
	assert.Equal(t, 1, report.Seeds[0].Files)
	assert.Equal(t, 80, report.Seeds[0].Words)
	assert.Equal(t, 1, report.Seeds[1].Files)
	assert.Equal(t, 90, report.Seeds[1].Words)
	assert.Equal(t, 2, report.Totals.Files)
}

func TestScanEmptyRoot(t *testing.T) {
	r := New(corpus.NewStore(filepath.Join(t.TempDir(), "absent")), 200)
	report, err := r.Scan(nil)
	require.NoError(t, err)
	assert.Empty(t, report.Languages)
	assert.Zero(t, report.Totals.Files)
}

func TestRenderFormats(t *testing.T) {
	r := New(fixture(t), 200)
	report, err := r.Scan([]string{"https://a.example/"})
	require.NoError(t, err)

	out, err := Render(report, "json")
	require.NoError(t, err)
	var decoded models.CorpusReport
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, report.Totals, decoded.Totals)

	out, err = Render(report, "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "| en | 3 | 430 | 60 | 250 | 1 |")
	assert.Contains(t, out, "### https://a.example/")
	assert.Contains(t, out, "en:2, es:1")

	out, err = Render(report, "table")
	require.NoError(t, err)
	assert.Contains(t, out, "es")
	assert.Contains(t, out, "https://a.example/")

	out, err = Render(report, "html")
	require.NoError(t, err)
	assert.Contains(t, out, "<td>es</td>")

	_, err = Render(report, "pdf")
	assert.Error(t, err)
}

func TestGenerateReport(t *testing.T) {
	out, err := New(fixture(t), 200).GenerateReport(nil, "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "**Files:** 4")
}
