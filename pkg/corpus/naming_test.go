package corpus

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	assert.Equal(t, "https___example_com__alice", Sanitize("https://example.com/@alice"))
	assert.Equal(t, "über_straße_2", Sanitize("über straße-2"))
	assert.Equal(t, "already_clean_1", Sanitize("already_clean_1"))
}

func TestSeedKeyAndSlug(t *testing.T) {
	assert.Equal(t, "https___example_substack_com_", SeedKey("https://example.substack.com/"))
	assert.Equal(t, "example_com_p_first_post", URLSlug("https://example.com/p/first-post?utm=x#top"))
	assert.Equal(t, "example_com", URLSlug("https://example.com/"))
	assert.Equal(t, "root", URLSlug("///"))

	long := "https://example.com/" + strings.Repeat("a", 300)
	assert.Equal(t, maxKeyRunes, len([]rune(SeedKey(long))))
	assert.Equal(t, maxKeyRunes, len([]rune(URLSlug(long))))
}

func TestLanguageKey(t *testing.T) {
	assert.Equal(t, "en", LanguageKey("EN"))
	assert.Equal(t, "und", LanguageKey(""))
	assert.Equal(t, "und", LanguageKey("??"))
	assert.Equal(t, "zh_cn", LanguageKey("zh-CN"))
}

func TestFilenameRoundTrip(t *testing.T) {
	seed := SeedKey("https://example.com/@writer")
	slug := URLSlug("https://example.com/p/a_b-c")
	name := Filename(seed, slug, 17)
	assert.Equal(t, "text_"+seed+"_"+slug+"_17.txt", name)

	gotSlug, seq, ok := parseFilename(name, seed)
	assert.True(t, ok)
	assert.Equal(t, slug, gotSlug)
	assert.Equal(t, 17, seq)
}

func TestParseFilenameRejectsForeignFiles(t *testing.T) {
	seed := "https___a_com"
	for _, name := range []string{
		"text_https___b_com_slug_1.txt",
		"text_https___a_com_slug_x.txt",
		"text_https___a_com_1.md",
		".partial-12345",
		"notes.txt",
	} {
		_, _, ok := parseFilename(name, seed)
		assert.False(t, ok, name)
	}
}

func TestOwnsSlug(t *testing.T) {
	host := HostKey("https://x.com/news")
	assert.Equal(t, "x_com", host)
	assert.Equal(t, "", HostKey("seed"))

	assert.True(t, ownsSlug(URLSlug("https://x.com/news/a"), host))
	assert.True(t, ownsSlug(URLSlug("https://x.com/"), host))
	assert.False(t, ownsSlug("world_"+URLSlug("https://x.com/news/world/b"), host))
	assert.False(t, ownsSlug(URLSlug("https://x.community/a"), host))
	assert.True(t, ownsSlug("anything", ""))
}
