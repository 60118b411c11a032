package search

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/natefinch/atomic"

	"github.com/byterings/noter/internal/apperr"
)

// IndexFileName is the index stored at the notes root
const IndexFileName = ".noter-search-index.json"

const indexVersion = 1

// Index maps each file to the distinct words it contains. Entries are reused
// while a file's modification time and size are unchanged.
type Index struct {
	Version int                   `json:"version"`
	Updated time.Time             `json:"updated"`
	Files   map[string]*FileEntry `json:"files"`
}

// FileEntry is the indexed state of one file
type FileEntry struct {
	ModTime int64    `json:"mod_time"` // Unix nanoseconds
	Size    int64    `json:"size"`
	Words   []string `json:"words"` // Sorted, lower-cased
}

// NewIndex returns an empty index
func NewIndex() *Index {
	return &Index{Version: indexVersion, Files: map[string]*FileEntry{}}
}

// LoadIndex reads the index at path. A missing file is an empty index.
func LoadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewIndex(), nil
	}
	if err != nil {
		return nil, apperr.IO("read search index", path, err)
	}
	idx := NewIndex()
	if err := json.Unmarshal(data, idx); err != nil {
		return nil, fmt.Errorf("decode search index: %w", err)
	}
	if idx.Version != indexVersion {
		return nil, fmt.Errorf("search index version %d, want %d", idx.Version, indexVersion)
	}
	if idx.Files == nil {
		idx.Files = map[string]*FileEntry{}
	}
	return idx, nil
}

// Save writes the index atomically
func (idx *Index) Save(path string) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("encode search index: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return apperr.IO("write search index", path, err)
	}
	return nil
}

// Refresh brings the index in line with files: new and modified files are
// read again and vanished ones dropped. It reports whether anything changed.
func (idx *Index) Refresh(root string, files []File) (bool, error) {
	changed := false
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		seen[f.Rel] = true
		mod := f.ModTime.UnixNano()
		if e, ok := idx.Files[f.Rel]; ok && e.ModTime == mod && e.Size == f.Size {
			continue
		}
		full := filepath.Join(root, filepath.FromSlash(f.Rel))
		data, err := os.ReadFile(full)
		if err != nil {
			return changed, apperr.IO("index note", full, err)
		}
		idx.Files[f.Rel] = &FileEntry{ModTime: mod, Size: f.Size, Words: words(data)}
		changed = true
	}
	for rel := range idx.Files {
		if !seen[rel] {
			delete(idx.Files, rel)
			changed = true
		}
	}
	if changed {
		idx.Updated = time.Now().UTC()
	}
	return changed, nil
}

// Candidates returns the files that may contain a line matching a query with
// these tokens: every token must occur inside some word of the file. No
// tokens means every file.
func (idx *Index) Candidates(tokens []string) []string {
	var out []string
	for rel, e := range idx.Files {
		if e.hasAll(tokens) {
			out = append(out, rel)
		}
	}
	sort.Strings(out)
	return out
}

// WordCount is the number of distinct words across all files
func (idx *Index) WordCount() int {
	distinct := map[string]struct{}{}
	for _, e := range idx.Files {
		for _, w := range e.Words {
			distinct[w] = struct{}{}
		}
	}
	return len(distinct)
}

func (e *FileEntry) hasAll(tokens []string) bool {
	for _, tok := range tokens {
		if !e.has(tok) {
			return false
		}
	}
	return true
}

func (e *FileEntry) has(token string) bool {
	i := sort.SearchStrings(e.Words, token)
	if i < len(e.Words) && e.Words[i] == token {
		return true
	}
	for _, w := range e.Words {
		if strings.Contains(w, token) {
			return true
		}
	}
	return false
}

// words returns the sorted distinct tokens of a text file. Binary content
// indexes as empty, matching the scanner which skips it.
func words(data []byte) []string {
	if !utf8.Valid(data) {
		return []string{}
	}
	seen := map[string]bool{}
	out := []string{}
	for _, w := range Tokens(string(data)) {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	sort.Strings(out)
	return out
}
