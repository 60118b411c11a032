package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/byterings/noter/internal/config"
	"github.com/byterings/noter/internal/ui"
)

var (
	configFormat string
	configYes    bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and repair the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Upgrade the config to the current schema",
	Long: `Upgrade a config written by an older noter. The original is kept as
config.toml.backup. Every command does this automatically; migrate also
reports what changed.`,
	Args: cobra.NoArgs,
	RunE: runConfigMigrate,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigCheck,
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Replace the config with defaults (the old file is backed up)",
	Args:  cobra.NoArgs,
	RunE:  runConfigReset,
}

var configCleanseCmd = &cobra.Command{
	Use:   "cleanse",
	Short: "Drop unknown keys and reset malformed values to defaults",
	Args:  cobra.NoArgs,
	RunE:  runConfigCleanse,
}

var configInteractiveCmd = &cobra.Command{
	Use:     "interactive",
	Aliases: []string{"edit"},
	Short:   "Edit common settings with prompts",
	Args:    cobra.NoArgs,
	RunE:    runConfigInteractive,
}

var configSetAuthorCmd = &cobra.Command{
	Use:   "set-author <name...>",
	Short: "Set the author printed on documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runConfigSetAuthor,
}

var configSetEditorCmd = &cobra.Command{
	Use:   "set-editor <command>",
	Short: "Set the editor new notes open in (empty uses $EDITOR)",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigSetEditor,
}

var configStrictCmd = &cobra.Command{
	Use:       "strict [on|off]",
	Short:     "Show or set whether unknown course ids are refused",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE:      runConfigStrict,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(
		configShowCmd, configPathCmd, configMigrateCmd, configCheckCmd,
		configResetCmd, configCleanseCmd, configInteractiveCmd,
		configSetAuthorCmd, configSetEditorCmd, configStrictCmd,
	)

	configShowCmd.Flags().StringVarP(&configFormat, "format", "f", "toml", "Output format: toml, yaml or json")
	configResetCmd.Flags().BoolVarP(&configYes, "yes", "y", false, "Do not ask for confirmation")
}

// renderConfig encodes cfg in the requested format
func renderConfig(cfg *config.Config, format string) (string, error) {
	switch strings.ToLower(format) {
	case "toml", "":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return "", err
		}
		return buf.String(), nil
	case "yaml", "yml":
		out, err := yaml.Marshal(cfg)
		return string(out), err
	case "json":
		out, err := json.MarshalIndent(cfg, "", "  ")
		return string(out) + "\n", err
	}
	return "", fmt.Errorf("unknown format '%s': use toml, yaml or json", format)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out, err := renderConfig(cfg, configFormat)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	fmt.Fprintln(cmd.OutOrStdout(), store.Path)
	if settings.ConfigPathSource != config.SourceDefault {
		ui.Logger.Debug("config path overridden", "source", settings.ConfigPathSource)
	}
	return nil
}

func runConfigMigrate(cmd *cobra.Command, args []string) error {
	result, err := store.Load()
	if err != nil {
		return err
	}

	switch result.State {
	case config.StateCurrent:
		ui.Success(fmt.Sprintf("Config is already at schema %s", config.CurrentSchema))
		return nil
	case config.StateStale:
		return fmt.Errorf("config upgraded in memory but not written: %w", result.MigrationErr)
	}

	r := result.Report
	ui.Success(fmt.Sprintf("Config upgraded from schema %s to %s", r.From, r.To))
	ui.KeyValue("Backup", result.BackupPath)
	printFieldList("Added", r.Added)
	printFieldList("Transformed", r.Transformed)
	printFieldList("Reset", r.Reset)
	printFieldList("Dropped", r.Dropped)
	return nil
}

func printFieldList(label string, fields []string) {
	if len(fields) == 0 {
		return
	}
	ui.KeyValue(label, strings.Join(fields, ", "))
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	ui.Success(fmt.Sprintf("%s is valid (schema %s)", store.Path, cfg.TemplateVersion))
	return nil
}

func runConfigReset(cmd *cobra.Command, args []string) error {
	if !configYes {
		confirmed, err := ui.PromptConfirmation(fmt.Sprintf("Replace %s with defaults?", store.Path))
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Cancelled")
			return nil
		}
	}

	if _, err := store.Reset(); err != nil {
		return err
	}
	ui.Success("Config reset to defaults")
	if _, err := os.Stat(store.BackupPath()); err == nil {
		ui.KeyValue("Backup", store.BackupPath())
	}
	return nil
}

func runConfigCleanse(cmd *cobra.Command, args []string) error {
	_, report, err := store.Cleanse()
	if err != nil {
		return err
	}
	if !report.Changed() {
		ui.Success("Nothing to clean")
		return nil
	}
	ui.Success("Config cleansed")
	ui.KeyValue("Backup", store.BackupPath())
	printFieldList("Added", report.Added)
	printFieldList("Transformed", report.Transformed)
	printFieldList("Reset", report.Reset)
	printFieldList("Dropped", report.Dropped)
	return nil
}

func runConfigInteractive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	formats := []string{string(config.SemesterYearSeason), string(config.SemesterSeasonYear), string(config.SemesterShort)}
	if !cfg.SemesterFormat.IsNamed() && cfg.SemesterFormat != "" {
		formats = append(formats, string(cfg.SemesterFormat))
	}

	answers, err := ui.PromptConfig(ui.ConfigAnswers{
		Author:          cfg.Author,
		PreferredEditor: cfg.PreferredEditor,
		SemesterFormat:  string(cfg.SemesterFormat),
		NotesDir:        cfg.Paths.NotesDir,
		StrictCourses:   cfg.StrictCourses,
		AutoOpenFile:    cfg.NotePreferences.AutoOpenFile,
	}, formats)
	if err != nil {
		return err
	}

	cfg.Author = answers.Author
	cfg.PreferredEditor = answers.PreferredEditor
	cfg.SemesterFormat = config.SemesterFormat(answers.SemesterFormat)
	cfg.Paths.NotesDir = answers.NotesDir
	cfg.StrictCourses = answers.StrictCourses
	cfg.NotePreferences.AutoOpenFile = answers.AutoOpenFile

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := saveConfig(cfg); err != nil {
		return err
	}
	ui.Success("Config saved")
	return nil
}

func runConfigSetAuthor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Author = strings.TrimSpace(strings.Join(args, " "))
	if cfg.Author == "" {
		return fmt.Errorf("author cannot be empty")
	}
	if err := saveConfig(cfg); err != nil {
		return err
	}
	ui.Success(fmt.Sprintf("Author set to %s", cfg.Author))
	return nil
}

func runConfigSetEditor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.PreferredEditor = strings.TrimSpace(args[0])
	if err := saveConfig(cfg); err != nil {
		return err
	}
	if cfg.PreferredEditor == "" {
		ui.Success("Editor cleared, $EDITOR will be used")
	} else {
		ui.Success(fmt.Sprintf("Editor set to %s", cfg.PreferredEditor))
	}
	return nil
}

func runConfigStrict(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		state := "off"
		if settings.StrictFor(cfg) {
			state = "on"
		}
		fmt.Printf("strict_courses: %s (config %t, source %s)\n", state, cfg.StrictCourses, settings.StrictSource)
		return nil
	}

	switch strings.ToLower(args[0]) {
	case "on", "true", "yes":
		cfg.StrictCourses = true
	case "off", "false", "no":
		cfg.StrictCourses = false
	default:
		return fmt.Errorf("expected on or off, got '%s'", args[0])
	}
	if err := saveConfig(cfg); err != nil {
		return err
	}
	ui.Success(fmt.Sprintf("strict_courses set to %t", cfg.StrictCourses))
	return nil
}
