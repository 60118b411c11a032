package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byterings/noter/internal/apperr"
	"github.com/byterings/noter/internal/config"
	"github.com/byterings/noter/internal/search"
	"github.com/byterings/noter/internal/template"
	"github.com/byterings/noter/internal/ui"
	"github.com/byterings/noter/internal/version"
)

var testNow = time.Date(2024, time.March, 10, 14, 0, 0, 0, time.UTC)

type cli struct {
	root       string
	configPath string
	out        *bytes.Buffer
}

// newCLI writes a config whose paths all live in a temp dir and installs
// dtu-template 1.2.0 as the official repository
func newCLI(t *testing.T) *cli {
	t.Helper()
	root := t.TempDir()

	cfg := config.NewConfig(testNow)
	cfg.Author = "Ada Lovelace"
	cfg.Paths = config.Paths{
		NotesDir:         filepath.Join(root, "notes"),
		ObsidianDir:      filepath.Join(root, "vault"),
		TemplatesDir:     filepath.Join(root, "templates"),
		TypstPackagesDir: filepath.Join(root, "packages"),
	}
	cfg.NotePreferences.AutoOpenFile = false

	c := &cli{root: root, configPath: filepath.Join(root, "config.toml"), out: &bytes.Buffer{}}
	require.NoError(t, (&config.Store{Path: c.configPath}).Save(cfg))

	pkg := filepath.Join(cfg.Paths.TemplatesDir, "official")
	require.NoError(t, os.MkdirAll(pkg, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, version.ManifestFileName),
		[]byte("[package]\nname = \"dtu-template\"\nversion = \"1.2.0\"\n"), 0644))

	prevNow, prevOut, prevInteractive := timeNow, ui.Out, isInteractive
	timeNow = func() time.Time { return testNow }
	ui.Out = c.out
	isInteractive = func() bool { return false }
	t.Cleanup(func() { timeNow, ui.Out, isInteractive = prevNow, prevOut, prevInteractive })
	return c
}

// run executes the root command with --config pointing at the temp config
func (c *cli) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	c.out.Reset()
	rootCmd.SetOut(c.out)
	rootCmd.SetErr(c.out)
	rootCmd.SetArgs(append([]string{"--config", c.configPath}, args...))
	err := rootCmd.Execute()
	return c.out.String(), err
}

func (c *cli) load(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadAndMigrate(c.configPath)
	require.NoError(t, err)
	return cfg
}

// resetFlags clears values and Changed marks left by a previous Execute
func resetFlags() {
	noteFlags, assignmentFlags, createFlags = docFlags{}, docFlags{}, docFlags{}
	flagConfig, flagStrict, flagVerbose = "", false, false
	coursesYes, configYes, configFormat = false, false, "toml"
	checkDetailed = false
	searchCourse, searchCaseSensitive, searchLimit, searchContext = "", false, 0, 0
	searchNoIndex, searchRebuild = false, false

	var visit func(*cobra.Command)
	visit = func(c *cobra.Command) {
		reset := func(f *pflag.Flag) { f.Changed = false }
		c.Flags().VisitAll(reset)
		c.PersistentFlags().VisitAll(reset)
		for _, sub := range c.Commands() {
			visit(sub)
		}
	}
	visit(rootCmd)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{errors.New("boom"), ExitGeneral},
		{&apperr.Error{Kind: apperr.ErrConfigCorrupt}, ExitConfigCorrupt},
		{&apperr.Error{Kind: apperr.ErrUnsupportedSchema}, ExitConfigCorrupt},
		{fmt.Errorf("build context for 02101: %w", &apperr.Error{Kind: apperr.ErrVersionNotFound}), ExitVersionNotFound},
		{&apperr.Error{Kind: apperr.ErrMissingRequiredToken}, ExitTemplate},
		{&apperr.Error{Kind: apperr.ErrUnknownCourse}, ExitUnknownCourse},
		{&apperr.Error{Kind: apperr.ErrInvalidCourseID}, ExitUnknownCourse},
		{apperr.IO("write note", "/tmp/x", os.ErrPermission), ExitIO},
	}

	for _, tt := range tests {
		name := "nil"
		if tt.err != nil {
			name = tt.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestRenderConfig(t *testing.T) {
	cfg := config.NewConfig(testNow)
	cfg.Author = "Ada Lovelace"

	for format, want := range map[string]string{
		"toml": `author = "Ada Lovelace"`,
		"yaml": "author: Ada Lovelace",
		"json": `"author": "Ada Lovelace"`,
	} {
		t.Run(format, func(t *testing.T) {
			out, err := renderConfig(cfg, format)
			require.NoError(t, err)
			assert.Contains(t, out, want)
		})
	}

	_, err := renderConfig(cfg, "xml")
	assert.Error(t, err)
}

func TestNoteCommand_Print(t *testing.T) {
	c := newCLI(t)

	out, err := c.run(t, "note", "02101", "--print")
	require.NoError(t, err)
	assert.Contains(t, out, `#import "@local/dtu-template:1.2.0": *`)
	assert.Contains(t, out, `course-name: "Introduction to Programming"`)
	assert.Contains(t, out, `author: "Ada Lovelace"`)
	assert.NoDirExists(t, filepath.Join(c.root, "notes", "02101"))
}

func TestAssignmentCommand_WritesFile(t *testing.T) {
	c := newCLI(t)

	_, err := c.run(t, "assignment", "02101", "Lab", "One", "--no-open")
	require.NoError(t, err)

	name := template.Filename("2024-03-10", "02101", template.Assignment, "Lab One")
	path := filepath.Join(c.root, "notes", "02101", "assignments", name)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `title: "Lab One"`)
	assert.Contains(t, string(data), "= Problem Description")

	// a second run with backups on keeps the first file aside
	_, err = c.run(t, "assignment", "02101", "Lab", "One", "--no-open")
	require.NoError(t, err)
	assert.FileExists(t, path+".bak."+testNow.Format("20060102-150405"))
}

func TestNoteCommand_StrictUnknownCourse(t *testing.T) {
	c := newCLI(t)
	t.Setenv("NOTER_STRICT", "true")

	_, err := c.run(t, "note", "99999", "--print")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrUnknownCourse)
	assert.Equal(t, ExitUnknownCourse, exitCode(err))
}

func TestNoteCommand_RejectsPathLikeCourseID(t *testing.T) {
	c := newCLI(t)

	_, err := c.run(t, "note", "../../outside", "--no-open")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalidCourseID)
	assert.Equal(t, ExitUnknownCourse, exitCode(err))
	assert.NoDirExists(t, filepath.Join(c.root, "notes"))
	assert.NoDirExists(t, filepath.Join(filepath.Dir(c.root), "outside"))
}

func TestNoteCommand_VersionNotFound(t *testing.T) {
	c := newCLI(t)
	require.NoError(t, os.RemoveAll(filepath.Join(c.root, "templates")))

	_, err := c.run(t, "note", "02101", "--print")
	require.Error(t, err)
	assert.Equal(t, ExitVersionNotFound, exitCode(err))
	assert.Contains(t, apperr.HintOf(err), "noter template update")
}

func TestCoursesCommands(t *testing.T) {
	c := newCLI(t)

	_, err := c.run(t, "courses", "add", "02105", "Algorithms", "and", "Data", "Structures")
	require.NoError(t, err)
	assert.Equal(t, "Algorithms and Data Structures", c.load(t).Courses["02105"])

	_, err = c.run(t, "courses", "add", "02105", "Again")
	assert.Error(t, err)

	_, err = c.run(t, "courses", "remove", "02105", "--yes")
	require.NoError(t, err)
	assert.NotContains(t, c.load(t).Courses, "02105")
}

func TestConfigSetters(t *testing.T) {
	c := newCLI(t)

	_, err := c.run(t, "config", "set-author", "Grace", "Hopper")
	require.NoError(t, err)
	_, err = c.run(t, "config", "strict", "on")
	require.NoError(t, err)

	cfg := c.load(t)
	assert.Equal(t, "Grace Hopper", cfg.Author)
	assert.True(t, cfg.StrictCourses)

	_, err = c.run(t, "config", "strict", "maybe")
	assert.Error(t, err)
}

// writeLegacyConfig replaces the config with a schema 1 record
func (c *cli) writeLegacyConfig(t *testing.T) string {
	t.Helper()
	legacy := `author = "Ada Lovelace"
template_version = "1"
semester_format = "{} {season}"
legacy_theme = "dark"

[paths]
notes_dir = "` + filepath.ToSlash(filepath.Join(c.root, "notes")) + `"
obsidian_dir = "vault"
templates_dir = "templates"
typst_packages_dir = "packages"

[courses]
"02101" = "Introduction to Programming"

[template_repositories]
official = "HollowNumber/dtu-note-template"
`
	require.NoError(t, os.WriteFile(c.configPath, []byte(legacy), 0600))
	return legacy
}

func TestConfigMigrate_SchemaOne(t *testing.T) {
	c := newCLI(t)
	c.writeLegacyConfig(t)

	out, err := c.run(t, "config", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema 1 to 2")
	assert.FileExists(t, config.BackupPathFor(c.configPath))

	cfg := c.load(t)
	assert.Equal(t, config.CurrentSchema, cfg.TemplateVersion)
	assert.Equal(t, config.SemesterFormat("{year} {season}"), cfg.SemesterFormat)
	assert.Equal(t, "dtu-template", cfg.TemplateRepositories["official"].Package)
}

func TestCoursesAdd_KeepsUnbackedLegacyConfig(t *testing.T) {
	c := newCLI(t)
	legacy := c.writeLegacyConfig(t)

	// a directory in the backup's place makes every backup write fail
	backup := config.BackupPathFor(c.configPath)
	require.NoError(t, os.MkdirAll(filepath.Join(backup, "occupied"), 0700))

	_, err := c.run(t, "courses", "add", "02450", "Machine", "Learning")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrIO)
	assert.Equal(t, ExitIO, exitCode(err))

	data, err := os.ReadFile(c.configPath)
	require.NoError(t, err)
	assert.Equal(t, legacy, string(data))
}

func TestSemesterCommand(t *testing.T) {
	c := newCLI(t)

	out, err := c.run(t, "semester")
	require.NoError(t, err)
	assert.Equal(t, "2024 Spring\n", out)
}

func TestSearchCommand(t *testing.T) {
	c := newCLI(t)
	notesDir := filepath.Join(c.root, "notes")
	for rel, content := range map[string]string{
		"02101/lectures/a.typ": "= Iteration\nA for loop repeats.\nDone.\n",
		"01005/b.md":           "Loop invariants\n",
		"01005/c.pdf":          "loop",
	} {
		path := filepath.Join(notesDir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	out, err := c.run(t, "search", "loop")
	require.NoError(t, err)
	assert.Contains(t, out, "02101/lectures/a.typ")
	assert.Contains(t, out, "01005/b.md")
	assert.Contains(t, out, "A for loop repeats.")
	assert.Contains(t, out, "2 matches in 2 files")

	out, err = c.run(t, "search", "-c", "02101", "loop")
	require.NoError(t, err)
	assert.NotContains(t, out, "01005")
	assert.Contains(t, out, "1 match in 1 file")

	out, err = c.run(t, "search", "--case-sensitive", "Loop")
	require.NoError(t, err)
	assert.Contains(t, out, "01005/b.md")
	assert.NotContains(t, out, "02101")

	out, err = c.run(t, "search", "--limit", "1", "loop")
	require.NoError(t, err)
	assert.Contains(t, out, "Stopped at 1 matches")

	out, err = c.run(t, "search", "nowhere", "to", "be", "found")
	require.NoError(t, err)
	assert.Contains(t, out, `No matches for "nowhere to be found" in 2 files`)

	out, err = c.run(t, "search", "--rebuild-index")
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 2 files")
	assert.FileExists(t, filepath.Join(notesDir, search.IndexFileName))

	_, err = c.run(t, "search")
	assert.Error(t, err)

	_, err = c.run(t, "search", "--limit", "0", "loop")
	assert.Error(t, err)

	_, err = c.run(t, "search", "-c", "../x", "loop")
	assert.ErrorIs(t, err, apperr.ErrInvalidCourseID)
}

func TestPrintMatches_SharedContext(t *testing.T) {
	var buf bytes.Buffer
	prev := ui.Out
	ui.Out = &buf
	t.Cleanup(func() { ui.Out = prev })

	printMatches([]search.Match{
		{Rel: "a.typ", Line: 2, Text: "hit one", Start: 0, End: 3, Before: []string{"intro"}, After: []string{"hit two"}},
		{Rel: "a.typ", Line: 3, Text: "hit two", Start: 0, End: 3, Before: []string{"hit one"}, After: []string{"outro"}},
	})

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "hit one"))
	assert.Equal(t, 1, strings.Count(out, "hit two"))
	assert.Equal(t, 1, strings.Count(out, "a.typ"))
	assert.Contains(t, out, "4- outro")
}
