package utils

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var space = regexp.MustCompile(`\s+`)

// CleanText collapses runs of whitespace and trims the result
func CleanText(text string) string {
	return strings.TrimSpace(space.ReplaceAllString(text, " "))
}

// CountWords returns the number of whitespace separated tokens in text
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// Sample returns at most n characters (runes) from the start of text.
func Sample(text string, n int) string {
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	i := 0
	for pos := range text {
		if i == n {
			return text[:pos]
		}
		i++
	}
	return text
}

// NormalizeURL returns an absolute http(s) URL without its fragment and with
// a lowercase host, or false when raw is not a crawlable web URL.
func NormalizeURL(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	return normalize(u)
}

// ResolveURL resolves ref against base and normalizes the result. Pseudo
// links (fragments, javascript:, mailto:, tel:) are rejected.
func ResolveURL(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return "", false
	}
	lower := strings.ToLower(ref)
	for _, scheme := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, scheme) {
			return "", false
		}
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	if base != nil {
		refURL = base.ResolveReference(refURL)
	}
	return normalize(refURL)
}

func normalize(u *url.URL) (string, bool) {
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Host == "" {
		return "", false
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), true
}

// IsWebpageURL reports whether the URL path looks like an HTML page rather
// than a static asset.
func IsWebpageURL(pageURL string) bool {
	lower := strings.ToLower(pageURL)
	if i := strings.IndexAny(lower, "?"); i >= 0 {
		lower = lower[:i]
	}
	nonWebExts := []string{".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".pdf", ".zip", ".mp4", ".mp3", ".css", ".js", ".xml", ".rss"}
	for _, ext := range nonWebExts {
		if strings.HasSuffix(lower, ext) {
			return false
		}
	}
	return true
}
