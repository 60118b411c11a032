package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/byterings/noter/internal/fetch"
	"github.com/byterings/noter/internal/template"
	"github.com/byterings/noter/internal/ui"
	"github.com/byterings/noter/internal/version"
)

var (
	templateForce   bool
	templatePackage string
	createFlags     docFlags
)

var templateCmd = &cobra.Command{
	Use:     "template",
	Aliases: []string{"templates", "t"},
	Short:   "Manage template packages",
}

var templateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the resolved version of every template repository",
	Long: `Show which version of each template package notes would be generated with,
and where that version was found:

  manifest   templates_dir/<alias>/typst.toml
  directory  highest version directory under typst_packages_dir/<package>/
  config     the version recorded at the last update`,
	Args: cobra.NoArgs,
	RunE: runTemplateStatus,
}

var templateUpdateCmd = &cobra.Command{
	Use:   "update [alias...]",
	Short: "Install the latest release of template packages",
	Long: `Download the latest GitHub release of each enabled template repository and
install it as a Typst local package. Set GITHUB_TOKEN to avoid rate limits.`,
	Example: `  noter template update
  noter template update official --force`,
	RunE: runTemplateUpdate,
}

var templateAddCmd = &cobra.Command{
	Use:     "add <alias> <owner/repo>",
	Short:   "Register another template repository",
	Example: `  noter template add thesis me/thesis-template --package thesis`,
	Args:    cobra.ExactArgs(2),
	RunE:    runTemplateAdd,
}

var templateCreateCmd = &cobra.Command{
	Use:   "create <course-id> <type> [title...]",
	Short: "Create a document of any type the template package provides",
	Long: `Create a document from a skeleton. lecture and assignment are built in;
a template package can add more as noter/<type>.typ.`,
	Example: `  noter template create 02101 lab "Lab 1" --field partner=Ada
  noter template create 01005 assignment Exam prep --sections Notes`,
	Args: cobra.MinimumNArgs(2),
	RunE: runTemplateCreate,
}

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.AddCommand(templateStatusCmd, templateUpdateCmd, templateAddCmd, templateCreateCmd)

	templateUpdateCmd.Flags().BoolVarP(&templateForce, "force", "f", false, "Reinstall even when up to date")
	templateAddCmd.Flags().StringVar(&templatePackage, "package", "", "Typst package name (default: repository name)")
	createFlags.register(templateCreateCmd)
}

func runTemplateStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	resolver, err := version.NewResolver(cfg)
	if err != nil {
		return err
	}
	resolver.Logger = ui.Logger

	ui.Section("Template Repositories")
	rows := [][]string{{"ALIAS", "PACKAGE", "VERSION", "SOURCE", "INSTALLED", "REPOSITORY"}}
	for _, alias := range cfg.RepositoryAliases() {
		repo, _ := cfg.Repository(alias)
		row := []string{alias, repo.Package, "-", "-", "-", repo.Source}
		if alias == cfg.DefaultRepository {
			row[0] += " *"
		}
		if !repo.Enabled {
			row[0] += " (disabled)"
		}

		res, err := resolver.Resolve(cfg, alias)
		if err != nil {
			row[2] = ui.Dim("not installed")
		} else {
			row[2], row[3] = res.Version, string(res.Source)
			if res.Path != "" {
				if info, err := os.Stat(res.Path); err == nil {
					row[4] = humanize.Time(info.ModTime())
				}
			}
		}
		rows = append(rows, row)
	}
	ui.Table(rows)

	if settings.Verbose {
		for _, alias := range cfg.RepositoryAliases() {
			ui.Section("Resolution: " + alias)
			for _, a := range resolver.Inspect(cfg, alias) {
				switch {
				case a.Err != nil:
					ui.KeyValue(string(a.Source), "error: "+a.Err.Error())
				case a.Resolution == nil:
					ui.KeyValue(string(a.Source), ui.Dim("nothing found"))
				default:
					ui.KeyValue(string(a.Source), fmt.Sprintf("%s %s", a.Resolution.Version, a.Resolution.Path))
				}
			}
		}
	}

	if len(cfg.CourseRepositories) > 0 {
		ui.Section("Course Bindings")
		for _, c := range cfg.ListCourses() {
			if alias, ok := cfg.CourseRepositories[c.ID]; ok {
				ui.KeyValue(c.ID, alias)
			}
		}
	}
	fmt.Println()
	return nil
}

func runTemplateUpdate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	aliases := args
	if len(aliases) == 0 {
		for _, alias := range cfg.RepositoryAliases() {
			if repo, _ := cfg.Repository(alias); repo.Enabled {
				aliases = append(aliases, alias)
			}
		}
	}
	if len(aliases) == 0 {
		ui.Warning("No enabled template repositories")
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	f := fetch.New()
	f.Logger = ui.Logger

	changed := false
	for _, alias := range aliases {
		if _, ok := cfg.Repository(alias); !ok {
			return fmt.Errorf("template repository '%s' not found\nRun: noter template status", alias)
		}
		ui.Info(fmt.Sprintf("Checking %s...", ui.Noun(alias)))
		result, err := f.Install(ctx, cfg, alias, templateForce)
		if err != nil {
			return err
		}
		if result.Skipped {
			ui.Success(fmt.Sprintf("%s is up to date (%s %s)", alias, result.Package, result.Version))
			continue
		}
		if err := cfg.SetRepositoryVersion(alias, result.Version); err != nil {
			return err
		}
		changed = true
		ui.Success(fmt.Sprintf("Installed %s %s", result.Package, result.Version))
		ui.KeyValue("Package", result.PackageDir)
		ui.KeyValue("Template", result.TemplateDir)
	}

	if changed {
		return saveConfig(cfg)
	}
	return nil
}

func runTemplateAdd(cmd *cobra.Command, args []string) error {
	alias := args[0]
	source, err := fetch.ParseSource(args[1])
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.AddRepository(alias, source, templatePackage); err != nil {
		return err
	}
	if err := saveConfig(cfg); err != nil {
		return err
	}
	repo, _ := cfg.Repository(alias)
	ui.Success(fmt.Sprintf("Added template repository %s (%s, package %s)", ui.Noun(alias), repo.Source, repo.Package))
	fmt.Printf("\nNext: noter template update %s\n", alias)
	return nil
}

func runTemplateCreate(cmd *cobra.Command, args []string) error {
	docType := template.ParseDocType(args[1])
	title := strings.TrimSpace(strings.Join(args[2:], " "))
	return generateDocument(cmd, args[0], docType, title, &createFlags)
}
