package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/byterings/noter/internal/notes"
	"github.com/byterings/noter/internal/ui"
)

var coursesYes bool

var coursesCmd = &cobra.Command{
	Use:     "courses",
	Aliases: []string{"course", "c"},
	Short:   "Manage the course list",
}

var coursesListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List configured courses",
	Args:    cobra.NoArgs,
	RunE:    runCoursesList,
}

var coursesAddCmd = &cobra.Command{
	Use:   "add <course-id> [name...]",
	Short: "Add a course",
	Long:  `Add a course. Without a name you are asked for one.`,
	Example: `  noter courses add 02105 "Algorithms and Data Structures 1"
  noter courses add 02105`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCoursesAdd,
}

var coursesRemoveCmd = &cobra.Command{
	Use:     "remove <course-id>",
	Aliases: []string{"rm", "delete"},
	Short:   "Remove a course (notes on disk are kept)",
	Args:    cobra.ExactArgs(1),
	RunE:    runCoursesRemove,
}

var coursesBindCmd = &cobra.Command{
	Use:   "bind <course-id> <repository-alias>",
	Short: "Generate a course's documents from another template repository",
	Long: `Bind a course to a template repository other than default_repository.
Binding to the default repository removes the binding.`,
	Example: `  noter courses bind 02101 thesis`,
	Args:    cobra.ExactArgs(2),
	RunE:    runCoursesBind,
}

func init() {
	rootCmd.AddCommand(coursesCmd)
	coursesCmd.AddCommand(coursesListCmd, coursesAddCmd, coursesRemoveCmd, coursesBindCmd)
	coursesRemoveCmd.Flags().BoolVarP(&coursesYes, "yes", "y", false, "Do not ask for confirmation")
}

func runCoursesList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	courses := cfg.ListCourses()
	if len(courses) == 0 {
		fmt.Println("No courses configured")
		fmt.Println("Add one with: noter courses add <id> \"<name>\"")
		return nil
	}

	paths, err := cfg.ExpandedPaths()
	if err != nil {
		return err
	}
	found, err := notes.Scan(paths.NotesDir, "")
	if err != nil {
		return err
	}
	counts := map[string]int{}
	for _, n := range found {
		counts[n.CourseID]++
	}

	rows := [][]string{{"ID", "NAME", "NOTES", "TEMPLATE"}}
	for _, c := range courses {
		rows = append(rows, []string{ui.Noun(c.ID), c.Name, fmt.Sprint(counts[c.ID]), cfg.RepositoryAliasFor(c.ID)})
	}
	fmt.Println()
	ui.Table(rows)
	fmt.Println()
	return nil
}

func runCoursesAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	id := strings.TrimSpace(args[0])
	name := strings.TrimSpace(strings.Join(args[1:], " "))
	if name == "" {
		if name, err = ui.PromptCourseName(id); err != nil {
			return err
		}
	}

	if err := cfg.AddCourse(id, name); err != nil {
		return err
	}
	if err := saveConfig(cfg); err != nil {
		return err
	}
	ui.Success(fmt.Sprintf("Added %s %s", ui.Noun(id), name))
	return nil
}

func runCoursesRemove(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	id := args[0]
	name, ok := cfg.CourseName(id)
	if !ok {
		return fmt.Errorf("course '%s' not found\nRun: noter courses list", id)
	}

	if !coursesYes {
		confirmed, err := ui.PromptConfirmation(fmt.Sprintf("Remove course %s (%s)?", id, name))
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Cancelled")
			return nil
		}
	}

	cfg.RemoveCourse(id)
	if err := saveConfig(cfg); err != nil {
		return err
	}
	ui.Success(fmt.Sprintf("Removed %s", id))
	return nil
}

func runCoursesBind(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.BindCourse(args[0], args[1]); err != nil {
		return err
	}
	if err := saveConfig(cfg); err != nil {
		return err
	}
	ui.Success(fmt.Sprintf("%s now uses template repository %s", ui.Noun(args[0]), ui.Noun(args[1])))
	return nil
}
