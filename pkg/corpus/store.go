// Package corpus keeps the on-disk text corpus: one directory per language,
// one numbered file per document, and the per-seed acceptance policy that
// decides which documents are kept.
package corpus

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/amosWeiskopf/corpusmith/internal/models"
	"github.com/amosWeiskopf/corpusmith/pkg/utils"
)

// ErrStorage wraps every filesystem failure reported by the store.
var ErrStorage = errors.New("corpus storage error")

// Store owns the directory tree <root>/<language>/. Scans and writes within
// one language directory are serialized by a per-directory mutex, so
// sequence numbers stay unique across concurrent jobs.
type Store struct {
	root string

	mu   sync.Mutex
	dirs map[string]*sync.Mutex
}

// NewStore creates a Store rooted at root. Directories are created lazily.
func NewStore(root string) *Store {
	return &Store{
		root: root,
		dirs: make(map[string]*sync.Mutex),
	}
}

// Root returns the corpus root directory.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) lock(lang string) func() {
	s.mu.Lock()
	m, ok := s.dirs[lang]
	if !ok {
		m = &sync.Mutex{}
		s.dirs[lang] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Path returns the absolute location of f.
func (s *Store) Path(f models.StoredFile) string {
	return filepath.Join(s.root, f.Language, Filename(f.SeedKey, f.URLSlug, f.Sequence))
}

// NextSequence returns max(existing sequence numbers)+1 for the
// (language, seedKey) pair, scanning the directory listing.
func (s *Store) NextSequence(lang, seedKey string) (int, error) {
	unlock := s.lock(lang)
	defer unlock()
	return s.nextSequence(lang, seedKey)
}

func (s *Store) nextSequence(lang, seedKey string) (int, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, lang))
	if errors.Is(err, os.ErrNotExist) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: list %s: %v", ErrStorage, lang, err)
	}
	highest := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, seq, ok := parseFilename(e.Name(), seedKey); ok && seq > highest {
			highest = seq
		}
	}
	return highest + 1, nil
}

// Write stores text under the next free sequence number for
// (lang, seedKey). The file appears atomically: it is written to a
// temporary name and renamed into place.
func (s *Store) Write(lang, seedKey, urlSlug, text string, wordCount int) (models.StoredFile, error) {
	unlock := s.lock(lang)
	defer unlock()

	dir := filepath.Join(s.root, lang)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return models.StoredFile{}, fmt.Errorf("%w: mkdir %s: %v", ErrStorage, dir, err)
	}

	seq, err := s.nextSequence(lang, seedKey)
	if err != nil {
		return models.StoredFile{}, err
	}
	f := models.StoredFile{
		Language:  lang,
		SeedKey:   seedKey,
		URLSlug:   urlSlug,
		Sequence:  seq,
		WordCount: wordCount,
	}
	if err := writeAtomic(dir, s.Path(f), []byte(text)); err != nil {
		return models.StoredFile{}, fmt.Errorf("%w: write %s: %v", ErrStorage, s.Path(f), err)
	}
	return f, nil
}

func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".partial-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// WordCount reads f back from disk and counts its words.
func (s *Store) WordCount(f models.StoredFile) (int, error) {
	data, err := os.ReadFile(s.Path(f))
	if err != nil {
		return 0, fmt.Errorf("%w: read %s: %v", ErrStorage, s.Path(f), err)
	}
	return utils.CountWords(string(data)), nil
}

// Remove deletes f from disk.
func (s *Store) Remove(f models.StoredFile) error {
	unlock := s.lock(f.Language)
	defer unlock()

	if err := os.Remove(s.Path(f)); err != nil {
		return fmt.Errorf("%w: remove %s: %v", ErrStorage, s.Path(f), err)
	}
	return nil
}

// Languages lists the language directories under the root.
func (s *Store) Languages() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrStorage, s.root, err)
	}
	var langs []string
	for _, e := range entries {
		if e.IsDir() {
			langs = append(langs, e.Name())
		}
	}
	sort.Strings(langs)
	return langs, nil
}

// SeedFiles returns the files on disk belonging to seedURL in every
// language directory, with word counts read from the files themselves.
// Only pages on the seed's own host are matched, so a seed whose key is a
// prefix of another seed's key never claims that seed's files. Results are
// ordered by language then sequence number.
func (s *Store) SeedFiles(seedURL string) ([]models.StoredFile, error) {
	langs, err := s.Languages()
	if err != nil {
		return nil, err
	}
	seedKey, host := SeedKey(seedURL), HostKey(seedURL)
	var files []models.StoredFile
	for _, lang := range langs {
		found, err := s.seedFilesIn(lang, seedKey, host)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

func (s *Store) seedFilesIn(lang, seedKey, host string) ([]models.StoredFile, error) {
	unlock := s.lock(lang)
	defer unlock()

	entries, err := os.ReadDir(filepath.Join(s.root, lang))
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrStorage, lang, err)
	}
	var files []models.StoredFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		slug, seq, ok := parseFilename(e.Name(), seedKey)
		if !ok || !ownsSlug(slug, host) {
			continue
		}
		f := models.StoredFile{Language: lang, SeedKey: seedKey, URLSlug: slug, Sequence: seq}
		if f.WordCount, err = s.WordCount(f); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Sequence < files[j].Sequence })
	return files, nil
}

// LanguageWordCounts returns the word count of every document in the
// language directory, whichever seed it belongs to.
func (s *Store) LanguageWordCounts(lang string) ([]int, error) {
	unlock := s.lock(lang)
	defer unlock()

	dir := filepath.Join(s.root, lang)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrStorage, lang, err)
	}
	var counts []int
	for _, e := range entries {
		if e.IsDir() || !isDocumentName(e.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrStorage, e.Name(), err)
		}
		counts = append(counts, utils.CountWords(string(data)))
	}
	return counts, nil
}
