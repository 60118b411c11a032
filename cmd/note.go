package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/byterings/noter/internal/template"
)

var noteFlags docFlags

var noteCmd = &cobra.Command{
	Use:     "note <course-id> [title...]",
	Aliases: []string{"lecture", "n"},
	Short:   "Create lecture notes for a course",
	Long: `Create lecture notes from the course's template package.

Without a title the note is named after today's date. The file is written to
<notes_dir>/<course-id>/lectures/ and opened in your editor.

Examples:
  noter note 02101
  noter note 02101 Recursion and induction
  noter note 02101 --sections Summary,Questions --no-open
  noter note 02101 --field room=B306 --print`,
	Args: cobra.MinimumNArgs(1),
	RunE: runNote,
}

func init() {
	rootCmd.AddCommand(noteCmd)
	noteFlags.register(noteCmd)
}

func runNote(cmd *cobra.Command, args []string) error {
	title := strings.TrimSpace(strings.Join(args[1:], " "))
	return generateDocument(cmd, args[0], template.Lecture, title, &noteFlags)
}
