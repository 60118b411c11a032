package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/byterings/noter/internal/apperr"
	"github.com/byterings/noter/internal/config"
	"github.com/byterings/noter/internal/fetch"
	"github.com/byterings/noter/internal/platform"
	"github.com/byterings/noter/internal/ui"
	"github.com/byterings/noter/internal/version"
)

var (
	doctorNetwork bool
	doctorFix     bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose configuration and installation issues",
	Long: `Check noter's health and diagnose common issues.

Runs checks on:
- Config file schema, validity and permissions
- Template package installation
- Notes and package directories
- typst and editor availability

Examples:
  noter doctor              # Run basic diagnostics
  noter doctor --network    # Include GitHub release lookups
  noter doctor --fix        # Fix config permissions, create missing directories`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVarP(&doctorNetwork, "network", "n", false, "Look up the latest release of each repository")
	doctorCmd.Flags().BoolVarP(&doctorFix, "fix", "f", false, "Fix what can be fixed automatically")
}

type checkResult struct {
	passed  bool
	message string
	fix     string // Suggested fix command
}

type doctorTally struct {
	errors   int
	warnings int
}

func (t *doctorTally) print(title string, results []checkResult) {
	ui.Section(title)
	for _, r := range results {
		printCheckResult(r)
		switch {
		case r.passed:
		case r.fix != "":
			t.warnings++
		default:
			t.errors++
		}
	}
}

func runDoctor(cmd *cobra.Command, args []string) error {
	fmt.Println()
	fmt.Printf("Checking noter installation on %s...\n", platform.GetPlatformName())

	var tally doctorTally

	configResults, cfg := checkConfig(doctorFix)
	tally.print("Config", configResults)
	if cfg == nil {
		fmt.Println()
		ui.Error("Cannot continue without a readable config")
		return nil
	}

	tally.print("Templates", checkTemplates(cfg))
	tally.print("Directories", checkDirectories(cfg, doctorFix))
	tally.print("Tools", checkTools(cmd.Context(), cfg))

	if doctorNetwork {
		tally.print("GitHub", checkReleases(cmd.Context(), cfg))
	}

	fmt.Println()
	switch {
	case tally.errors == 0 && tally.warnings == 0:
		ui.Success("All checks passed!")
	case tally.errors == 0:
		ui.Warning(fmt.Sprintf("%d warning(s)", tally.warnings))
	default:
		ui.Error(fmt.Sprintf("%d error(s), %d warning(s)", tally.errors, tally.warnings))
	}
	return nil
}

func printCheckResult(r checkResult) {
	if r.passed {
		fmt.Printf("  ✓ %s\n", r.message)
	} else if r.fix != "" {
		fmt.Printf("  ⚠ %s\n", r.message)
		fmt.Printf("    → %s\n", r.fix)
	} else {
		fmt.Printf("  ✗ %s\n", r.message)
	}
}

func checkConfig(autoFix bool) ([]checkResult, *config.Config) {
	var results []checkResult

	exists, err := store.Exists()
	if err != nil {
		return append(results, checkResult{message: fmt.Sprintf("Error checking config: %v", err)}), nil
	}
	if !exists {
		results = append(results, checkResult{
			message: fmt.Sprintf("No config at %s", store.Path),
			fix:     "Run: noter init",
		})
		return results, nil
	}
	results = append(results, checkResult{passed: true, message: fmt.Sprintf("Config file: %s", shortenPath(store.Path))})

	result, err := store.Load()
	if err != nil {
		r := checkResult{message: fmt.Sprintf("Config cannot be loaded: %v", err)}
		if errors.Is(err, apperr.ErrConfigCorrupt) {
			r.fix = "Fix it by hand, or run: noter config reset"
		}
		return append(results, r), nil
	}

	switch result.State {
	case config.StateMigrated:
		results = append(results, checkResult{passed: true, message: fmt.Sprintf("Config upgraded to schema %s", config.CurrentSchema)})
	case config.StateStale:
		results = append(results, checkResult{
			message: fmt.Sprintf("Config is stale and could not be upgraded: %v", result.MigrationErr),
			fix:     "Check permissions on " + store.BackupPath(),
		})
	default:
		results = append(results, checkResult{passed: true, message: fmt.Sprintf("Schema %s", config.CurrentSchema)})
	}

	if err := result.Config.Validate(); err != nil {
		results = append(results, checkResult{message: err.Error(), fix: "Run: noter config cleanse"})
	} else {
		results = append(results, checkResult{passed: true, message: fmt.Sprintf("Config valid, %d course(s)", len(result.Config.Courses))})
	}

	ok, err := platform.CheckFilePermissions(store.Path)
	switch {
	case err != nil:
		results = append(results, checkResult{message: fmt.Sprintf("Cannot check permissions: %v", err)})
	case ok:
		results = append(results, checkResult{passed: true, message: "Config permissions OK"})
	case autoFix && platform.FixFilePermissions(store.Path) == nil:
		results = append(results, checkResult{passed: true, message: "Config permissions fixed (600)"})
	default:
		results = append(results, checkResult{
			message: "Config is readable by other users",
			fix:     "Run: noter doctor --fix",
		})
	}

	return results, result.Config
}

func checkTemplates(cfg *config.Config) []checkResult {
	var results []checkResult

	resolver, err := version.NewResolver(cfg)
	if err != nil {
		return append(results, checkResult{message: err.Error()})
	}
	resolver.Logger = ui.Logger

	for _, alias := range cfg.RepositoryAliases() {
		repo, _ := cfg.Repository(alias)
		if !repo.Enabled {
			results = append(results, checkResult{passed: true, message: fmt.Sprintf("%s disabled", alias)})
			continue
		}
		res, err := resolver.Resolve(cfg, alias)
		switch {
		case errors.Is(err, apperr.ErrManifestCorrupt):
			results = append(results, checkResult{
				message: fmt.Sprintf("%s: %v", alias, err),
				fix:     fmt.Sprintf("Run: noter template update %s --force", alias),
			})
		case err != nil:
			results = append(results, checkResult{
				message: fmt.Sprintf("%s: no installed version", alias),
				fix:     fmt.Sprintf("Run: noter template update %s", alias),
			})
		case res.Source == version.SourceConfig:
			results = append(results, checkResult{
				message: fmt.Sprintf("%s %s known only from the config, package files not found", res.Package, res.Version),
				fix:     fmt.Sprintf("Run: noter template update %s --force", alias),
			})
		default:
			results = append(results, checkResult{
				passed:  true,
				message: fmt.Sprintf("%s: %s %s (%s)", alias, res.Package, res.Version, res.Source),
			})
		}
	}
	return results
}

func checkDirectories(cfg *config.Config, autoFix bool) []checkResult {
	var results []checkResult

	paths, err := cfg.ExpandedPaths()
	if err != nil {
		return append(results, checkResult{message: err.Error()})
	}

	dirs := []struct {
		label string
		path  string
	}{
		{"Notes", paths.NotesDir},
		{"Templates", paths.TemplatesDir},
		{"Typst packages", paths.TypstPackagesDir},
	}
	for _, d := range dirs {
		info, err := os.Stat(d.path)
		switch {
		case err == nil && info.IsDir():
			results = append(results, checkResult{passed: true, message: fmt.Sprintf("%s: %s", d.label, shortenPath(d.path))})
		case err == nil:
			results = append(results, checkResult{message: fmt.Sprintf("%s: %s is not a directory", d.label, d.path)})
		case autoFix && os.MkdirAll(d.path, 0755) == nil:
			results = append(results, checkResult{passed: true, message: fmt.Sprintf("%s: created %s", d.label, shortenPath(d.path))})
		default:
			results = append(results, checkResult{
				message: fmt.Sprintf("%s: %s does not exist", d.label, shortenPath(d.path)),
				fix:     "Run: noter doctor --fix",
			})
		}
	}
	return results
}

func checkTools(ctx context.Context, cfg *config.Config) []checkResult {
	var results []checkResult

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if v, err := newCompiler(cfg).Available(ctx); err != nil {
		results = append(results, checkResult{
			message: "typst not found (needed for compile, check and watch)",
			fix:     apperr.HintOf(err),
		})
	} else {
		results = append(results, checkResult{passed: true, message: v})
	}

	editor := ""
	for _, candidate := range platform.EditorCandidates(cfg.PreferredEditor) {
		if fields := strings.Fields(candidate); len(fields) > 0 && platform.HasCommand(fields[0]) {
			editor = candidate
			break
		}
	}
	if editor == "" {
		results = append(results, checkResult{
			message: "No editor found",
			fix:     "Run: noter config set-editor <command>",
		})
	} else {
		results = append(results, checkResult{passed: true, message: fmt.Sprintf("Editor: %s", editor)})
	}

	if platform.HasCommand("git") {
		results = append(results, checkResult{passed: true, message: "git available"})
	}
	return results
}

func checkReleases(ctx context.Context, cfg *config.Config) []checkResult {
	var results []checkResult

	f := fetch.New()
	f.Logger = ui.Logger
	for _, alias := range cfg.RepositoryAliases() {
		repo, _ := cfg.Repository(alias)
		if !repo.Enabled {
			continue
		}
		release, err := f.LatestRelease(ctx, repo.Source)
		if err != nil {
			results = append(results, checkResult{message: fmt.Sprintf("%s: %v", alias, err), fix: apperr.HintOf(err)})
			continue
		}
		latest := version.Canonical(release.TagName)
		if repo.Version != "" && version.Newer(latest, repo.Version) {
			results = append(results, checkResult{
				message: fmt.Sprintf("%s: %s available (installed %s)", alias, release.TagName, repo.Version),
				fix:     fmt.Sprintf("Run: noter template update %s", alias),
			})
			continue
		}
		results = append(results, checkResult{passed: true, message: fmt.Sprintf("%s: latest release %s", alias, release.TagName)})
	}
	return results
}
