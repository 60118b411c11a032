package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/byterings/noter/internal/config"
	"github.com/byterings/noter/internal/notes"
	"github.com/byterings/noter/internal/typst"
	"github.com/byterings/noter/internal/ui"
	"github.com/byterings/noter/internal/version"
)

// recentLimit is how many notes the status dashboard lists
const recentLimit = 5

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a summary of courses, notes and templates",
	Long: `Display the current state including:
- Author and current semester
- Template package versions
- Recently edited notes
- Notes that need compiling`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	paths, err := cfg.ExpandedPaths()
	if err != nil {
		return err
	}

	printProfile(cfg)
	printTemplates(cfg)

	found, err := notes.Scan(paths.NotesDir, "")
	if err != nil {
		return err
	}
	printRecentNotes(paths.NotesDir, found)
	printCompileSummary(cfg, found)
	fmt.Println()
	return nil
}

func printProfile(cfg *config.Config) {
	ui.Section("Profile")
	ui.KeyValue("Author", cfg.Author)
	ui.KeyValue("Semester", cfg.Semester(timeNow()))
	ui.KeyValue("Courses", fmt.Sprint(len(cfg.Courses)))
	ui.KeyValue("Notes", shortenPath(cfg.Paths.NotesDir))
	ui.KeyValue("Config", shortenPath(store.Path))
	if settings.StrictFor(cfg) {
		ui.KeyValue("Strict courses", "on")
	}
}

func printTemplates(cfg *config.Config) {
	ui.Section("Templates")
	resolver, err := version.NewResolver(cfg)
	if err != nil {
		ui.Warning(err.Error())
		return
	}
	resolver.Logger = ui.Logger

	for _, alias := range cfg.RepositoryAliases() {
		res, err := resolver.Resolve(cfg, alias)
		if err != nil {
			fmt.Printf("  ✗ %s not installed\n", alias)
			continue
		}
		fmt.Printf("  ✓ %s %s %s\n", alias, res.Package, ui.Dim(fmt.Sprintf("%s (%s)", res.Version, res.Source)))
	}
}

func printRecentNotes(root string, found []notes.Note) {
	ui.Section("Recent Notes")
	if len(found) == 0 {
		fmt.Println("  No notes yet")
		fmt.Println("  Run 'noter note <course-id>' to create one")
		return
	}
	for i, n := range found {
		if i == recentLimit {
			fmt.Printf("  %s\n", ui.Dim(fmt.Sprintf("... and %d more", len(found)-recentLimit)))
			break
		}
		fmt.Printf("  %s %s\n", displayPath(root, n.Path), ui.Dim(humanize.Time(n.ModTime)))
	}
}

func printCompileSummary(cfg *config.Config, found []notes.Note) {
	if len(found) == 0 {
		return
	}
	c := newCompiler(cfg)
	stale := 0
	for _, n := range found {
		if status, err := c.Status(n.Path); err == nil && status != typst.UpToDate {
			stale++
		}
	}

	ui.Section("Compilation")
	if stale == 0 {
		fmt.Println("  ✓ All notes compiled")
		return
	}
	fmt.Printf("  ⚠ %d of %d notes need compiling\n", stale, len(found))
	fmt.Println("  Run 'noter compile' to update them")
}

// shortenPath shortens home directory paths with ~
func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	rel, err := filepath.Rel(home, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.Join("~", rel)
}
