package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/byterings/noter/internal/git"
	"github.com/byterings/noter/internal/ui"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the noter configuration",
	Long: `Create the configuration file with defaults. The author is taken from
git's global user.name when it is set. This is optional: noter creates the
file on first use.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	exists, err := store.Exists()
	if err != nil {
		return fmt.Errorf("failed to check config: %w", err)
	}
	if exists {
		fmt.Printf("noter is already initialized at: %s\n", store.Path)
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	name, err := git.GlobalUserName()
	if err != nil {
		ui.Logger.Debug("git user.name unavailable", "err", err)
	}
	if name != "" {
		cfg.Author = name
		if err := saveConfig(cfg); err != nil {
			return err
		}
	}

	ui.Success(fmt.Sprintf("noter initialized at: %s", store.Path))
	ui.KeyValue("Author", cfg.Author)
	fmt.Println("\nNext: noter template update")
	if name == "" {
		fmt.Println("      noter config set-author <your name>")
	}
	return nil
}
