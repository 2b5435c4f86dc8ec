package corpus

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const (
	filePrefix = "text_"
	fileSuffix = ".txt"

	// maxKeyRunes bounds seed keys and URL slugs so filenames stay well
	// below the usual 255 byte limit.
	maxKeyRunes = 80
)

var nonWord = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_]`)

// Sanitize replaces every non-word character with an underscore.
func Sanitize(s string) string {
	return nonWord.ReplaceAllString(s, "_")
}

// SeedKey is the sanitized identifier of a seed URL used in filenames.
func SeedKey(seedURL string) string {
	return truncate(Sanitize(strings.TrimSpace(seedURL)), maxKeyRunes)
}

// URLSlug is the sanitized host and path of a document's source URL.
func URLSlug(sourceURL string) string {
	frag := sourceURL
	if u, err := url.Parse(sourceURL); err == nil && u.Host != "" {
		frag = u.Host + u.Path
	}
	slug := strings.Trim(Sanitize(frag), "_")
	if slug == "" {
		return "root"
	}
	return truncate(slug, maxKeyRunes)
}

// LanguageKey turns a classifier label into a directory name.
func LanguageKey(lang string) string {
	key := strings.ToLower(Sanitize(strings.TrimSpace(lang)))
	if strings.Trim(key, "_") == "" {
		return "und"
	}
	return key
}

// Filename is the on-disk name of a stored document. Writes, word count
// lookups and deletes all go through it.
func Filename(seedKey, urlSlug string, sequence int) string {
	return fmt.Sprintf("%s%s_%s_%d%s", filePrefix, seedKey, urlSlug, sequence, fileSuffix)
}

// parseFilename extracts the slug and sequence number from a filename
// belonging to seedKey.
func parseFilename(name, seedKey string) (slug string, sequence int, ok bool) {
	prefix := filePrefix + seedKey + "_"
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, fileSuffix) {
		return "", 0, false
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(name, prefix), fileSuffix)
	i := strings.LastIndexByte(rest, '_')
	if i <= 0 {
		return "", 0, false
	}
	seq, err := strconv.Atoi(rest[i+1:])
	if err != nil || seq < 0 {
		return "", 0, false
	}
	return rest[:i], seq, true
}

// HostKey is the sanitized host of rawURL. Every URLSlug of a page on that
// host starts with it.
func HostKey(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return ""
	}
	return truncate(strings.TrimLeft(Sanitize(u.Host), "_"), maxKeyRunes)
}

// ownsSlug reports whether a file with slug can belong to a seed on host.
// A seed key may be a prefix of another seed's key, so the key alone does
// not tell their files apart: the leftover of a longer key never starts
// with the host.
func ownsSlug(slug, host string) bool {
	if host == "" {
		return true
	}
	return slug == host || strings.HasPrefix(slug, host+"_")
}

// isDocumentName reports whether name looks like a stored document. Temporary
// files from in-flight writes never match.
func isDocumentName(name string) bool {
	return strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix)
}

func truncate(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
