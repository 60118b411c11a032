package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byterings/noter/internal/apperr"
)

var fixedNow = time.Date(2024, time.March, 10, 9, 30, 0, 0, time.UTC)

const schemaOneConfig = `author = "Ada Lovelace"
template_version = "1"
semester_format = "{} {season}"
preferred_editor = "nvim"
legacy_theme = "dark"

[paths]
notes_dir = "~/uni/notes"
obsidian_dir = "~/uni/vault"
templates_dir = "~/uni/templates"
typst_packages_dir = "~/.local/share/typst/packages/local"

[courses]
"02101" = "Introduction to Programming"
"01005" = "Advanced Engineering Mathematics 1"

[template_repositories]
official = "HollowNumber/dtu-note-template"
mine = "ada/analytical-engine-notes.git"

[note_preferences]
auto_open_file = false
include_date_in_title = true
lecture_sections = ["Summary", "Details"]
assignment_sections = ["Task 1"]
create_backups = true

[obsidian_integration]
enabled = false
create_course_index = true
link_format = "markdown"
tag_format = "#c/{{course_id}}"
`

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return &Store{
		Path:   filepath.Join(t.TempDir(), ".noter", ConfigFileName),
		Logger: log.New(io.Discard),
		Now:    func() time.Time { return fixedNow },
	}
}

func writeConfig(t *testing.T, s *Store, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path), 0700))
	require.NoError(t, os.WriteFile(s.Path, []byte(content), 0600))
}

func TestLoad_MissingFileWritesDefaults(t *testing.T) {
	s := newTestStore(t)

	result, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, StateCurrent, result.State)
	assert.Equal(t, CurrentSchema, result.Config.TemplateVersion)
	assert.FileExists(t, s.Path)
	assert.NoFileExists(t, s.BackupPath())
}

func TestLoad_SchemaOneMigrates(t *testing.T) {
	s := newTestStore(t)
	writeConfig(t, s, schemaOneConfig)

	result, err := s.Load()
	require.NoError(t, err)
	require.NoError(t, result.MigrationErr)
	assert.Equal(t, StateMigrated, result.State)

	cfg := result.Config
	assert.Equal(t, CurrentSchema, cfg.TemplateVersion)
	assert.False(t, cfg.NotePreferences.AutoOpenDir)
	assert.Contains(t, result.Report.Added, "note_preferences.auto_open_dir")

	// user values survive
	assert.Equal(t, "Ada Lovelace", cfg.Author)
	assert.Equal(t, "nvim", cfg.PreferredEditor)
	assert.False(t, cfg.NotePreferences.AutoOpenFile)
	assert.Equal(t, []string{"Summary", "Details"}, cfg.NotePreferences.LectureSections)
	assert.Equal(t, "~/uni/notes", cfg.Paths.NotesDir)
	assert.Equal(t, "Introduction to Programming", cfg.Courses["02101"])
	assert.Equal(t, "markdown", cfg.ObsidianIntegration.LinkFormat)

	// shape changes
	assert.Equal(t, SemesterFormat("{year} {season}"), cfg.SemesterFormat)
	assert.Equal(t, TemplateRepository{
		Source:  "HollowNumber/dtu-note-template",
		Package: "dtu-template",
		Enabled: true,
	}, cfg.TemplateRepositories["official"])
	assert.Equal(t, "analytical-engine-notes", cfg.TemplateRepositories["mine"].Package)
	assert.ElementsMatch(t, []string{"semester_format", "template_repositories"}, result.Report.Transformed)
	assert.Equal(t, []string{"legacy_theme"}, result.Report.Dropped)

	// new fields get defaults
	assert.Equal(t, DefaultRepositoryAlias, cfg.DefaultRepository)
	assert.False(t, cfg.StrictCourses)
	assert.Equal(t, fixedNow.Format(time.RFC3339), cfg.Metadata.LastUpdated)
	assert.Equal(t, "migrated from schema 1 to 2", cfg.Metadata.MigrationNotes)

	backup, err := os.ReadFile(s.BackupPath())
	require.NoError(t, err)
	assert.Equal(t, schemaOneConfig, string(backup))

	again, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, StateCurrent, again.State)
	assert.Equal(t, cfg, again.Config)
}

func TestLoad_CurrentWithoutSearchValues(t *testing.T) {
	s := newTestStore(t)
	writeConfig(t, s, `template_version = "2"
author = "Ada"

[search]
context_lines = 0
case_sensitive = true
`)

	result, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, StateCurrent, result.State)
	assert.Equal(t, Search{
		FileExtensions: []string{"typ", "md"},
		MaxResults:     50,
		ContextLines:   0,
		CaseSensitive:  true,
	}, result.Config.Search)
}

func TestLoad_MissingSchemaTagIsSchemaOne(t *testing.T) {
	s := newTestStore(t)
	writeConfig(t, s, "author = \"Grace\"\n")

	result, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, StateMigrated, result.State)
	assert.Equal(t, "1", result.Report.From)
	assert.Equal(t, "Grace", result.Config.Author)
	assert.NotEmpty(t, result.Config.Courses)
}

func TestLoad_CorruptFileUntouched(t *testing.T) {
	s := newTestStore(t)
	const broken = "author = [\n"
	writeConfig(t, s, broken)

	result, err := s.Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConfigCorrupt)
	assert.Equal(t, StateCorrupt, result.State)
	assert.Contains(t, err.Error(), s.Path)

	data, readErr := os.ReadFile(s.Path)
	require.NoError(t, readErr)
	assert.Equal(t, broken, string(data))
	assert.NoFileExists(t, s.BackupPath())
}

func TestLoad_NewerSchemaRejected(t *testing.T) {
	s := newTestStore(t)
	const future = "template_version = \"3\"\nauthor = \"Future\"\n"
	writeConfig(t, s, future)

	_, err := s.Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrUnsupportedSchema)

	data, readErr := os.ReadFile(s.Path)
	require.NoError(t, readErr)
	assert.Equal(t, future, string(data))
}

func TestLoad_BackupFailureKeepsStaleFile(t *testing.T) {
	s := newTestStore(t)
	writeConfig(t, s, schemaOneConfig)

	// a directory in the backup's place makes the backup write fail
	require.NoError(t, os.MkdirAll(filepath.Join(s.BackupPath(), "occupied"), 0700))

	result, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, StateStale, result.State)
	require.Error(t, result.MigrationErr)
	assert.ErrorIs(t, result.MigrationErr, apperr.ErrIO)

	assert.Equal(t, CurrentSchema, result.Config.TemplateVersion)
	assert.Equal(t, "Ada Lovelace", result.Config.Author)

	data, readErr := os.ReadFile(s.Path)
	require.NoError(t, readErr)
	assert.Equal(t, schemaOneConfig, string(data))

	// saving the upgraded record must not replace the unbacked original
	assert.True(t, s.BackupPending())
	err = s.Save(result.Config)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrIO)
	data, readErr = os.ReadFile(s.Path)
	require.NoError(t, readErr)
	assert.Equal(t, schemaOneConfig, string(data))

	// once the backup can be written the save goes through
	require.NoError(t, os.RemoveAll(s.BackupPath()))
	require.NoError(t, s.Save(result.Config))
	assert.False(t, s.BackupPending())
	backup, readErr := os.ReadFile(s.BackupPath())
	require.NoError(t, readErr)
	assert.Equal(t, schemaOneConfig, string(backup))
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	first, err := s.Load()
	require.NoError(t, err)

	cfg := first.Config
	cfg.Author = "Edsger"
	require.NoError(t, cfg.AddCourse("02450", "Machine Learning"))
	cfg.CourseRepositories["02450"] = DefaultRepositoryAlias
	cfg.Typst.CompileArgs = []string{"--root", "."}
	require.NoError(t, s.Save(cfg))

	loaded, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, StateCurrent, loaded.State)
	require.NoError(t, s.Save(loaded.Config))

	again, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, loaded.Config, again.Config)
	assert.Equal(t, cfg, again.Config)
}

func TestCleanse_RepairsCurrentRecord(t *testing.T) {
	s := newTestStore(t)
	writeConfig(t, s, "template_version = \"2\"\nauthor = 42\nstray = true\n")

	_, err := s.Load()
	require.ErrorIs(t, err, apperr.ErrConfigCorrupt)

	cfg, report, err := s.Cleanse()
	require.NoError(t, err)
	assert.Contains(t, report.Reset, "author")
	assert.Equal(t, []string{"stray"}, report.Dropped)
	assert.Equal(t, "Your Name", cfg.Author)
	assert.Equal(t, []string{"author"}, cfg.Metadata.ResetFields)
	assert.FileExists(t, s.BackupPath())

	result, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, StateCurrent, result.State)
}

func TestReset_BacksUpExisting(t *testing.T) {
	s := newTestStore(t)
	writeConfig(t, s, "template_version = \"2\"\nauthor = \"Old\"\n")

	cfg, err := s.Reset()
	require.NoError(t, err)
	assert.Equal(t, "Your Name", cfg.Author)

	backup, err := os.ReadFile(s.BackupPath())
	require.NoError(t, err)
	assert.Contains(t, string(backup), "Old")
}
