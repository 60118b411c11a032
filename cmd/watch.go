package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/byterings/noter/internal/typst"
	"github.com/byterings/noter/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch [file...]",
	Short: "Recompile notes whenever they are saved",
	Long: `Watch .typ files and compile them on every save until interrupted.
Without arguments every note under notes_dir is watched.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	files := args
	if len(files) == 0 {
		paths, err := cfg.ExpandedPaths()
		if err != nil {
			return err
		}
		if files, err = typst.Sources(paths.NotesDir); err != nil {
			return err
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("nothing to watch\nCreate a note first: noter note <course-id>")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	w := &typst.Watcher{
		Compiler: newCompiler(cfg),
		OnCompile: func(r *typst.Result, err error) {
			if err != nil {
				ui.Error(err.Error())
				return
			}
			ui.Success(fmt.Sprintf("%s compiled in %s", filepath.Base(r.Input), r.Duration.Round(time.Millisecond)))
		},
	}

	ui.Info(fmt.Sprintf("Watching %d file(s), press Ctrl+C to stop", len(files)))
	return w.Watch(ctx, files)
}
