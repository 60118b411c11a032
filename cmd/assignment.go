package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/byterings/noter/internal/template"
)

var assignmentFlags docFlags

var assignmentCmd = &cobra.Command{
	Use:     "assignment <course-id> <title...>",
	Aliases: []string{"a", "hw"},
	Short:   "Create an assignment for a course",
	Long: `Create an assignment from the course's template package.

Sections follow the course's subject: mathematics courses (01xxx) get a proof
layout, programming courses (02xxx) an implementation layout, and so on.
--sections replaces them.

Examples:
  noter assignment 01005 "Problem Set 3"
  noter assignment 02101 Lab 2 --sections Task,Solution`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAssignment,
}

func init() {
	rootCmd.AddCommand(assignmentCmd)
	assignmentFlags.register(assignmentCmd)
}

func runAssignment(cmd *cobra.Command, args []string) error {
	title := strings.TrimSpace(strings.Join(args[1:], " "))
	return generateDocument(cmd, args[0], template.Assignment, title, &assignmentFlags)
}
