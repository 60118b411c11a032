package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/byterings/noter/internal/config"
	"github.com/byterings/noter/internal/ui"
	"github.com/byterings/noter/internal/version"
)

var (
	flagConfig  string
	flagStrict  bool
	flagVerbose bool

	// set by setup before any command runs
	settings *config.Settings
	store    *config.Store
)

var rootCmd = &cobra.Command{
	Use:   "noter",
	Short: "Generate and compile Typst course notes",
	Long: `noter creates lecture notes and assignments from Typst template packages,
keeps its configuration up to date across releases, and compiles the results.

Examples:
  noter note 02101                      # Lecture notes for today
  noter assignment 01005 "Problem Set 3"
  noter template update                 # Install the latest template package
  noter check --detailed                # Which notes need recompiling`,
	Version:           version.Get().Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default ~/.noter/config.toml, env NOTER_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&flagStrict, "strict", false, "Refuse course ids missing from the config (env NOTER_STRICT)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging (env NOTER_VERBOSE)")
}

// Execute runs the root command and exits with a code describing the failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(reportError(err))
	}
}

func setup(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}

	s, err := config.ResolveSettings(cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to resolve settings: %w", err)
	}
	ui.SetupLogging(s.Verbose)
	s.Log(ui.Logger)

	settings = s
	store = &config.Store{Path: s.ConfigPath, Logger: ui.Logger}
	return nil
}

// loadConfig loads the config, migrating stale records, and tells the user
// when an upgrade happened
func loadConfig() (*config.Config, error) {
	result, err := store.Load()
	if err != nil {
		return nil, err
	}

	switch result.State {
	case config.StateMigrated:
		ui.Info(fmt.Sprintf("Config upgraded from schema %s to %s (backup: %s)",
			result.Report.From, result.Report.To, result.BackupPath))
		for _, field := range result.Report.Reset {
			ui.Warning(fmt.Sprintf("Reset %s to its default", field))
		}
	case config.StateStale:
		ui.Warning(fmt.Sprintf("Config upgraded for this run only, changes cannot be saved until %s is writable: %v",
			store.BackupPath(), result.MigrationErr))
	}
	return result.Config, nil
}

// loadValidConfig is loadConfig plus validation, for commands that generate documents
func loadValidConfig() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func saveConfig(cfg *config.Config) error {
	cfg.Touch(timeNow())
	if err := store.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}
