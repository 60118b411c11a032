package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/byterings/noter/internal/apperr"
	"github.com/byterings/noter/internal/config"
	"github.com/byterings/noter/internal/search"
	"github.com/byterings/noter/internal/ui"
)

var (
	searchCourse        string
	searchCaseSensitive bool
	searchLimit         int
	searchContext       int
	searchNoIndex       bool
	searchRebuild       bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Search the text of your notes",
	Long: `Print every line under notes_dir containing the query, with surrounding
context. Words are joined with spaces into one query.

Defaults come from the [search] table of the config. Above 50 files a word
index is kept at notes_dir/` + search.IndexFileName + ` and refreshed for
files whose modification time changed.`,
	Example: `  noter search recursion
  noter search -c 02101 "merge sort"
  noter search --rebuild-index`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchCourse, "course", "c", "", "Only search notes of this course")
	searchCmd.Flags().BoolVarP(&searchCaseSensitive, "case-sensitive", "s", false, "Match case exactly")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "Maximum number of matches (default search.max_results)")
	searchCmd.Flags().IntVarP(&searchContext, "context", "C", 0, "Lines of context around each match (default search.context_lines)")
	searchCmd.Flags().BoolVar(&searchNoIndex, "no-index", false, "Scan every file instead of using the word index")
	searchCmd.Flags().BoolVar(&searchRebuild, "rebuild-index", false, "Rebuild the word index from scratch")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	if strings.TrimSpace(query) == "" && !searchRebuild {
		return errors.New("nothing to search for: give a query or --rebuild-index")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	paths, err := cfg.ExpandedPaths()
	if err != nil {
		return err
	}

	s := &search.Searcher{
		Root:    paths.NotesDir,
		Options: search.OptionsFrom(cfg.Search),
		Logger:  ui.Logger,
	}
	if err := applySearchFlags(cmd, s); err != nil {
		return err
	}

	if searchRebuild {
		idx, err := s.RebuildIndex()
		if err != nil {
			return err
		}
		ui.Success(fmt.Sprintf("Indexed %s (%s) at %s",
			english.Plural(len(idx.Files), "file", ""), english.Plural(idx.WordCount(), "word", ""), shortenPath(s.IndexPath())))
		if strings.TrimSpace(query) == "" {
			return nil
		}
	}

	res, err := s.Search(query)
	if err != nil {
		return err
	}
	if len(res.Matches) == 0 {
		ui.Info(fmt.Sprintf("No matches for %q in %s", query, english.Plural(res.Total, "file", "")))
		return nil
	}
	printMatches(res.Matches)

	files := map[string]bool{}
	for _, m := range res.Matches {
		files[m.Rel] = true
	}
	fmt.Fprintln(ui.Out)
	fmt.Fprintf(ui.Out, "%s in %s\n", english.Plural(len(res.Matches), "match", "matches"), english.Plural(len(files), "file", ""))
	if res.Truncated {
		ui.Warning(fmt.Sprintf("Stopped at %d matches, raise --limit or search.max_results to see more", s.Options.MaxResults))
	}
	return nil
}

func applySearchFlags(cmd *cobra.Command, s *search.Searcher) error {
	flags := cmd.Flags()
	if c := strings.TrimSpace(searchCourse); c != "" {
		if !config.ValidCourseID(c) {
			return &apperr.Error{Kind: apperr.ErrInvalidCourseID, Op: "search", Field: "course", Err: fmt.Errorf("%q is not a course id", c)}
		}
		s.Course = c
	}
	if flags.Changed("case-sensitive") {
		s.Options.CaseSensitive = searchCaseSensitive
	}
	if flags.Changed("limit") {
		if searchLimit < 1 {
			return fmt.Errorf("--limit must be at least 1, got %d", searchLimit)
		}
		s.Options.MaxResults = searchLimit
	}
	if flags.Changed("context") {
		if searchContext < 0 || searchContext > config.MaxContextLines {
			return fmt.Errorf("--context must be between 0 and %d, got %d", config.MaxContextLines, searchContext)
		}
		s.Options.ContextLines = searchContext
	}
	if searchNoIndex {
		s.Index = search.IndexNever
	}
	return nil
}

// printMatches groups matches by file. Context shared by neighbouring matches
// is printed once.
func printMatches(matches []search.Match) {
	current, last := "", 0
	for k, m := range matches {
		if m.Rel != current {
			if current != "" {
				fmt.Fprintln(ui.Out)
			}
			fmt.Fprintln(ui.Out, ui.Noun(m.Rel))
			current, last = m.Rel, 0
		}

		first := m.Line - len(m.Before)
		if last > 0 && first > last+1 {
			fmt.Fprintln(ui.Out, ui.Dim("  --"))
		}
		for i, text := range m.Before {
			if n := first + i; n > last {
				fmt.Fprintln(ui.Out, ui.Dim(fmt.Sprintf("  %4d- %s", n, text)))
			}
		}
		hit := m.Text[:m.Start] + ui.Highlight(m.Text[m.Start:m.End]) + m.Text[m.End:]
		fmt.Fprintf(ui.Out, "  %s %s\n", ui.Dim(fmt.Sprintf("%4d:", m.Line)), hit)
		last = m.Line

		for i, text := range m.After {
			n := m.Line + 1 + i
			if k+1 < len(matches) && matches[k+1].Rel == m.Rel && n >= matches[k+1].Line {
				break
			}
			fmt.Fprintln(ui.Out, ui.Dim(fmt.Sprintf("  %4d- %s", n, text)))
			last = n
		}
	}
}
