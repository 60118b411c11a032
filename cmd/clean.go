package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/byterings/noter/internal/typst"
	"github.com/byterings/noter/internal/ui"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete compiled PDFs under the notes and Obsidian directories",
	Args:  cobra.NoArgs,
	RunE:  runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	paths, err := cfg.ExpandedPaths()
	if err != nil {
		return err
	}

	n, err := typst.Clean(paths.NotesDir, paths.ObsidianDir)
	if err != nil {
		return err
	}
	if n == 0 {
		ui.Info("No compiled files found")
		return nil
	}
	ui.Success(fmt.Sprintf("Removed %d compiled file(s)", n))
	return nil
}
