package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/byterings/noter/internal/typst"
	"github.com/byterings/noter/internal/ui"
)

var checkDetailed bool

var checkCmd = &cobra.Command{
	Use:   "check [file...]",
	Short: "Show which notes need compiling",
	Long: `Compare each .typ file with its PDF. Without arguments every note under
notes_dir is checked.

  up to date        the PDF is newer than the source
  out of date       the source changed after the last compile
  not compiled      there is no PDF yet
  source not found  the file does not exist`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVarP(&checkDetailed, "detailed", "d", false, "Show modification times and PDF sizes")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c := newCompiler(cfg)
	paths, err := cfg.ExpandedPaths()
	if err != nil {
		return err
	}

	files := args
	if len(files) == 0 {
		if files, err = typst.Sources(paths.NotesDir); err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Printf("No notes under %s\n", paths.NotesDir)
			return nil
		}
	}

	header := []string{"FILE", "STATUS"}
	if checkDetailed {
		header = append(header, "MODIFIED", "COMPILED", "PDF SIZE")
	}
	rows := [][]string{header}
	counts := map[typst.Status]int{}

	for _, f := range files {
		status, err := c.Status(f)
		if err != nil {
			return err
		}
		counts[status]++

		row := []string{displayPath(paths.NotesDir, typst.SourcePath(f)), statusLabel(status)}
		if checkDetailed {
			row = append(row, "-", "-", "-")
			if info, err := os.Stat(typst.SourcePath(f)); err == nil {
				row[2] = humanize.Time(info.ModTime())
			}
			if info, err := os.Stat(c.OutputPath(typst.SourcePath(f))); err == nil {
				row[3] = humanize.Time(info.ModTime())
				row[4] = humanize.Bytes(uint64(info.Size()))
			}
		}
		rows = append(rows, row)
	}

	fmt.Println()
	ui.Table(rows)
	fmt.Println()
	fmt.Printf("%d up to date, %d out of date, %d not compiled",
		counts[typst.UpToDate], counts[typst.OutOfDate], counts[typst.NotCompiled])
	if n := counts[typst.SourceNotFound]; n > 0 {
		fmt.Printf(", %d missing", n)
	}
	fmt.Println()
	return nil
}

func statusLabel(s typst.Status) string {
	switch s {
	case typst.UpToDate:
		return "✓ " + s.String()
	case typst.OutOfDate:
		return "⚠ " + s.String()
	}
	return "✗ " + s.String()
}

func displayPath(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}
