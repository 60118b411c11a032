package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/byterings/noter/internal/config"
	"github.com/byterings/noter/internal/ui"
)

var semesterCmd = &cobra.Command{
	Use:   "semester",
	Short: "Print the current semester",
	Long: `Print the semester written into new documents, using semester_format.
Spring runs January to June, fall July to December.`,
	Args: cobra.NoArgs,
	RunE: runSemester,
}

func init() {
	rootCmd.AddCommand(semesterCmd)
}

func runSemester(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	now := timeNow()
	fmt.Fprintln(cmd.OutOrStdout(), cfg.Semester(now))

	year, season := config.SeasonOf(now)
	ui.Logger.Debug("semester", "year", year, "season", season, "format", cfg.SemesterFormat)
	return nil
}
