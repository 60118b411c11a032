package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/byterings/noter/internal/config"
	"github.com/byterings/noter/internal/typst"
	"github.com/byterings/noter/internal/ui"
)

var compileCmd = &cobra.Command{
	Use:   "compile [file...]",
	Short: "Compile notes to PDF",
	Long: `Compile the given .typ files with typst. Without arguments every note under
notes_dir that is not up to date is compiled.

compile_args and output_dir from the [typst] config section are applied.`,
	Example: `  noter compile ~/noter/notes/02101/lectures/2024-03-10-02101-lecture.typ
  noter compile`,
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)
}

func newCompiler(cfg *config.Config) *typst.Compiler {
	c := typst.New(cfg)
	c.Logger = ui.Logger
	return c
}

// staleSources lists notes whose PDF is missing or older than the source
func staleSources(c *typst.Compiler, notesDir string) ([]string, error) {
	sources, err := typst.Sources(notesDir)
	if err != nil {
		return nil, err
	}
	var stale []string
	for _, s := range sources {
		status, err := c.Status(s)
		if err != nil {
			return nil, err
		}
		if status == typst.OutOfDate || status == typst.NotCompiled {
			stale = append(stale, s)
		}
	}
	return stale, nil
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c := newCompiler(cfg)

	files := args
	if len(files) == 0 {
		paths, err := cfg.ExpandedPaths()
		if err != nil {
			return err
		}
		if files, err = staleSources(c, paths.NotesDir); err != nil {
			return err
		}
		if len(files) == 0 {
			ui.Success("Everything is up to date")
			return nil
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	failed := 0
	for _, f := range files {
		result, err := c.Compile(ctx, f)
		if err != nil {
			if len(files) == 1 {
				return err
			}
			ui.Error(err.Error())
			failed++
			continue
		}
		ui.Success(fmt.Sprintf("%s -> %s (%s, %s)", filepath.Base(result.Input), ui.Noun(result.Output),
			humanize.Bytes(uint64(result.Size)), result.Duration.Round(time.Millisecond)))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to compile", failed, len(files))
	}
	return nil
}
