package utils

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountWords(t *testing.T) {
	assert.Equal(t, 0, CountWords(""))
	assert.Equal(t, 0, CountWords("   \n\t "))
	assert.Equal(t, 3, CountWords("one  two\nthree"))
}

func TestSample(t *testing.T) {
	assert.Equal(t, "héll", Sample("héllo wörld", 4))
	assert.Equal(t, "short", Sample("short", 500))
	assert.Equal(t, "all", Sample("all", 0))
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"https://Example.COM/a#frag", "https://example.com/a", true},
		{"http://example.com", "http://example.com/", true},
		{"ftp://example.com/file", "", false},
		{"not a url", "", false},
		{"/relative/path", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeURL(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveURL(t *testing.T) {
	base, err := url.Parse("https://example.com/blog/post")
	require.NoError(t, err)

	got, ok := ResolveURL(base, "../about")
	assert.True(t, ok)
	assert.Equal(t, "https://example.com/about", got)

	got, ok = ResolveURL(base, "other#section")
	assert.True(t, ok)
	assert.Equal(t, "https://example.com/blog/other", got)

	for _, ref := range []string{"#top", "javascript:void(0)", "MAILTO:a@b.c", "tel:+123", ""} {
		_, ok := ResolveURL(base, ref)
		assert.False(t, ok, ref)
	}
}

func TestIsWebpageURL(t *testing.T) {
	assert.True(t, IsWebpageURL("https://example.com/p/post"))
	assert.True(t, IsWebpageURL("https://example.com/page?format=.pdf"))
	assert.False(t, IsWebpageURL("https://example.com/logo.PNG"))
	assert.False(t, IsWebpageURL("https://example.com/app.js?v=2"))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b c", CleanText("  a \n\n b\tc "))
}
