// Package search finds text in the notes tree. Large trees keep a word index
// next to the notes so files that cannot match are never opened.
package search

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"

	"github.com/byterings/noter/internal/apperr"
	"github.com/byterings/noter/internal/config"
)

// IndexThreshold is the file count above which IndexAuto consults the index
const IndexThreshold = 50

// IndexMode selects whether Search reads the on-disk index
type IndexMode int

const (
	IndexAuto IndexMode = iota
	IndexAlways
	IndexNever
)

// Options mirror the search config group
type Options struct {
	Extensions    []string
	MaxResults    int
	ContextLines  int
	CaseSensitive bool
}

// OptionsFrom copies the search settings out of cfg
func OptionsFrom(cfg config.Search) Options {
	return Options{
		Extensions:    append([]string(nil), cfg.FileExtensions...),
		MaxResults:    cfg.MaxResults,
		ContextLines:  cfg.ContextLines,
		CaseSensitive: cfg.CaseSensitive,
	}
}

// File is a searchable file under the root
type File struct {
	Rel     string // slash separated, relative to the root
	ModTime time.Time
	Size    int64
}

// Match is the first hit on one line. Start and End are byte offsets into Text.
type Match struct {
	Path   string
	Rel    string
	Line   int
	Text   string
	Start  int
	End    int
	Before []string
	After  []string
}

// Results is the outcome of Searcher.Search
type Results struct {
	Matches   []Match
	Truncated bool
	Total     int // files under the root (or course)
	Scanned   int // files opened after index pruning
	Indexed   bool
}

// Files lists every file under root with one of the extensions, sorted by path.
// A missing root has no files.
func Files(root string, extensions []string) ([]File, error) {
	if len(extensions) == 0 {
		return nil, nil
	}
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	pattern := "**/*." + extensions[0]
	if len(extensions) > 1 {
		pattern = "**/*.{" + strings.Join(extensions, ",") + "}"
	}

	var files []File
	err := doublestar.GlobWalk(os.DirFS(root), pattern, func(p string, d fs.DirEntry) error {
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, File{Rel: p, ModTime: info.ModTime(), Size: info.Size()})
		return nil
	}, doublestar.WithFilesOnly())
	if err != nil {
		return nil, apperr.IO("scan notes", root, err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Rel < files[j].Rel })
	return files, nil
}

// Searcher runs queries against one notes tree
type Searcher struct {
	Root    string
	Course  string // limits results to Root/<Course>
	Options Options
	Index   IndexMode
	Logger  *log.Logger
}

func (s *Searcher) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}

// IndexPath is where the word index lives
func (s *Searcher) IndexPath() string {
	return filepath.Join(s.Root, IndexFileName)
}

// Search returns the lines containing query. Results are ordered by path and
// line and hold at most Options.MaxResults matches.
func (s *Searcher) Search(query string) (*Results, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("search query is empty")
	}

	all, err := Files(s.Root, s.Options.Extensions)
	if err != nil {
		return nil, err
	}
	files := s.inCourse(all)
	res := &Results{Total: len(files)}

	useIndex := s.Index == IndexAlways || (s.Index == IndexAuto && len(all) > IndexThreshold)
	if idx := s.refreshedIndex(useIndex && len(files) > 0, all); idx != nil {
		keep := map[string]bool{}
		for _, rel := range idx.Candidates(Tokens(query)) {
			keep[rel] = true
		}
		pruned := files[:0:0]
		for _, f := range files {
			if keep[f.Rel] {
				pruned = append(pruned, f)
			}
		}
		files = pruned
		res.Indexed = true
	}

	for _, f := range files {
		res.Scanned++
		done, err := s.scanFile(f, query, res)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}
	return res, nil
}

// RebuildIndex discards the stored index and indexes every file again
func (s *Searcher) RebuildIndex() (*Index, error) {
	files, err := Files(s.Root, s.Options.Extensions)
	if err != nil {
		return nil, err
	}
	idx := NewIndex()
	if _, err := idx.Refresh(s.Root, files); err != nil {
		return nil, err
	}
	if err := idx.Save(s.IndexPath()); err != nil {
		return nil, err
	}
	s.logger().Info("search index rebuilt", "files", len(idx.Files), "path", s.IndexPath())
	return idx, nil
}

// refreshedIndex loads the index, reindexes changed files and writes it back.
// It returns nil when the index is not wanted or cannot be brought up to date.
func (s *Searcher) refreshedIndex(want bool, files []File) *Index {
	if !want {
		return nil
	}
	idx, err := LoadIndex(s.IndexPath())
	if err != nil {
		s.logger().Warn("search index unreadable, rebuilding", "path", s.IndexPath(), "err", err)
		idx = NewIndex()
	}
	changed, err := idx.Refresh(s.Root, files)
	if err != nil {
		s.logger().Warn("search index refresh failed, scanning every file", "err", err)
		return nil
	}
	if changed {
		if err := idx.Save(s.IndexPath()); err != nil {
			s.logger().Warn("search index not saved", "err", err)
		}
	}
	return idx
}

func (s *Searcher) inCourse(files []File) []File {
	if s.Course == "" {
		return files
	}
	prefix := s.Course + "/"
	var out []File
	for _, f := range files {
		if strings.HasPrefix(f.Rel, prefix) {
			out = append(out, f)
		}
	}
	return out
}

// scanFile appends the file's matches and reports whether the limit was hit
func (s *Searcher) scanFile(f File, query string, res *Results) (bool, error) {
	full := filepath.Join(s.Root, filepath.FromSlash(f.Rel))
	data, err := os.ReadFile(full)
	if err != nil {
		return false, apperr.IO("read note", full, err)
	}
	if !utf8.Valid(data) {
		s.logger().Debug("skipping non-text file", "path", full)
		return false, nil
	}

	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		start, end, ok := find(line, query, s.Options.CaseSensitive)
		if !ok {
			continue
		}
		if s.Options.MaxResults > 0 && len(res.Matches) >= s.Options.MaxResults {
			res.Truncated = true
			return true, nil
		}
		res.Matches = append(res.Matches, Match{
			Path:   full,
			Rel:    f.Rel,
			Line:   i + 1,
			Text:   line,
			Start:  start,
			End:    end,
			Before: surrounding(lines, i-s.Options.ContextLines, i),
			After:  surrounding(lines, i+1, i+1+s.Options.ContextLines),
		})
	}
	return false, nil
}

func surrounding(lines []string, from, to int) []string {
	from = max(from, 0)
	to = min(to, len(lines))
	if from >= to {
		return nil
	}
	out := make([]string, 0, to-from)
	for _, l := range lines[from:to] {
		out = append(out, strings.TrimSuffix(l, "\r"))
	}
	return out
}

// find returns the byte range of the first occurrence of query in line
func find(line, query string, caseSensitive bool) (int, int, bool) {
	if caseSensitive {
		i := strings.Index(line, query)
		if i < 0 {
			return 0, 0, false
		}
		return i, i + len(query), true
	}

	n := utf8.RuneCountInString(query)
	for i := range line {
		j, count := i, 0
		for j < len(line) && count < n {
			_, size := utf8.DecodeRuneInString(line[j:])
			j += size
			count++
		}
		if count < n {
			break
		}
		if strings.EqualFold(line[i:j], query) {
			return i, j, true
		}
	}
	return 0, 0, false
}

// Tokens splits s into lower-cased runs of letters and digits
func Tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
