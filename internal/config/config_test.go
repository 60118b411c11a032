package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byterings/noter/internal/apperr"
)

func TestNewConfig_IsValid(t *testing.T) {
	cfg := NewConfig(fixedNow)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, CurrentSchema, cfg.TemplateVersion)
	assert.Equal(t, "Introduction to Programming", cfg.Courses["02101"])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty author", func(c *Config) { c.Author = "" }},
		{"bad course id", func(c *Config) { c.Courses["bad id"] = "Spaces" }},
		{"empty course name", func(c *Config) { c.Courses["02450"] = "" }},
		{"unknown semester format", func(c *Config) { c.SemesterFormat = "{year}" }},
		{"missing default repository", func(c *Config) { c.DefaultRepository = "nope" }},
		{"course mapped to unknown repository", func(c *Config) { c.CourseRepositories["02101"] = "nope" }},
		{"repository without source", func(c *Config) {
			c.TemplateRepositories["x"] = TemplateRepository{Package: "x"}
		}},
		{"empty notes dir", func(c *Config) { c.Paths.NotesDir = "" }},
		{"no search extensions", func(c *Config) { c.Search.FileExtensions = []string{} }},
		{"dotted search extension", func(c *Config) { c.Search.FileExtensions = []string{".typ"} }},
		{"zero max results", func(c *Config) { c.Search.MaxResults = 0 }},
		{"too much context", func(c *Config) { c.Search.ContextLines = MaxContextLines + 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(fixedNow)
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrInvalidConfig)
		})
	}
}

func TestCourses(t *testing.T) {
	cfg := NewConfig(fixedNow)

	require.NoError(t, cfg.AddCourse(" 02450 ", " Machine Learning "))
	name, ok := cfg.CourseName("02450")
	assert.True(t, ok)
	assert.Equal(t, "Machine Learning", name)

	assert.Error(t, cfg.AddCourse("02450", "Again"))
	assert.Error(t, cfg.AddCourse("", "Empty"))
	assert.Error(t, cfg.AddCourse("02451", " "))

	cfg.CourseRepositories["02450"] = DefaultRepositoryAlias
	assert.True(t, cfg.RemoveCourse("02450"))
	assert.False(t, cfg.RemoveCourse("02450"))
	assert.NotContains(t, cfg.CourseRepositories, "02450")

	courses := cfg.ListCourses()
	require.NotEmpty(t, courses)
	for i := 1; i < len(courses); i++ {
		assert.Less(t, courses[i-1].ID, courses[i].ID)
	}
}

func TestRepositoryAliasFor(t *testing.T) {
	cfg := NewConfig(fixedNow)
	cfg.TemplateRepositories["thesis"] = TemplateRepository{Source: "me/thesis", Package: "thesis", Enabled: true}
	cfg.CourseRepositories["02101"] = "thesis"

	assert.Equal(t, "thesis", cfg.RepositoryAliasFor("02101"))
	assert.Equal(t, DefaultRepositoryAlias, cfg.RepositoryAliasFor("01005"))

	require.NoError(t, cfg.SetRepositoryVersion("thesis", "0.2.0"))
	repo, ok := cfg.Repository("thesis")
	require.True(t, ok)
	assert.Equal(t, "0.2.0", repo.Version)
	assert.Error(t, cfg.SetRepositoryVersion("missing", "1.0.0"))
	assert.Equal(t, []string{"official", "thesis"}, cfg.RepositoryAliases())
}

func TestAddRepositoryAndBind(t *testing.T) {
	cfg := NewConfig(fixedNow)

	require.NoError(t, cfg.AddRepository("thesis", "https://github.com/me/thesis-template.git", ""))
	repo, ok := cfg.Repository("thesis")
	require.True(t, ok)
	assert.Equal(t, "thesis-template", repo.Package)
	assert.True(t, repo.Enabled)
	assert.Error(t, cfg.AddRepository("thesis", "me/other", ""))
	assert.Error(t, cfg.AddRepository("", "me/other", ""))

	require.NoError(t, cfg.BindCourse("02101", "thesis"))
	assert.Equal(t, "thesis", cfg.RepositoryAliasFor("02101"))

	require.NoError(t, cfg.BindCourse("02101", DefaultRepositoryAlias))
	assert.NotContains(t, cfg.CourseRepositories, "02101")

	assert.Error(t, cfg.BindCourse("99999", "thesis"))
	assert.Error(t, cfg.BindCourse("02101", "missing"))
}

func TestClone_DoesNotAlias(t *testing.T) {
	cfg := NewConfig(fixedNow)
	clone := cfg.Clone()
	assert.Equal(t, cfg, clone)

	clone.Courses["99999"] = "Other"
	clone.NotePreferences.LectureSections[0] = "Changed"
	assert.NotContains(t, cfg.Courses, "99999")
	assert.NotEqual(t, "Changed", cfg.NotePreferences.LectureSections[0])
}

func TestResolveSettings(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("NOTER_CONFIG", "")
		os.Unsetenv("NOTER_CONFIG")
		s, err := ResolveSettings(nil)
		require.NoError(t, err)
		assert.Equal(t, SourceDefault, s.ConfigPathSource)
		assert.Equal(t, SourceConfig, s.StrictSource)
		assert.Equal(t, ConfigFileName, filepath.Base(s.ConfigPath))
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("NOTER_CONFIG", "/tmp/noter.toml")
		t.Setenv("NOTER_STRICT", "true")
		s, err := ResolveSettings(nil)
		require.NoError(t, err)
		assert.Equal(t, "/tmp/noter.toml", s.ConfigPath)
		assert.Equal(t, SourceEnv, s.ConfigPathSource)
		assert.True(t, s.Strict)
		assert.Equal(t, SourceEnv, s.StrictSource)
	})

	t.Run("empty env is not an override", func(t *testing.T) {
		t.Setenv("NOTER_STRICT", "")
		s, err := ResolveSettings(nil)
		require.NoError(t, err)
		assert.Equal(t, SourceConfig, s.StrictSource)

		cfg := NewConfig(fixedNow)
		cfg.StrictCourses = true
		assert.True(t, s.StrictFor(cfg))
	})

	t.Run("flag beats env", func(t *testing.T) {
		t.Setenv("NOTER_STRICT", "true")
		flags := pflag.NewFlagSet("noter", pflag.ContinueOnError)
		flags.String("config", "", "")
		flags.Bool("strict", false, "")
		flags.Bool("verbose", false, "")
		require.NoError(t, flags.Parse([]string{"--strict=false", "--config", "/etc/noter.toml"}))

		s, err := ResolveSettings(flags)
		require.NoError(t, err)
		assert.False(t, s.Strict)
		assert.Equal(t, SourceFlag, s.StrictSource)
		assert.Equal(t, "/etc/noter.toml", s.ConfigPath)
	})
}

func TestSettings_StrictFor(t *testing.T) {
	cfg := NewConfig(fixedNow)
	cfg.StrictCourses = true

	assert.True(t, (&Settings{StrictSource: SourceConfig}).StrictFor(cfg))
	assert.False(t, (&Settings{Strict: false, StrictSource: SourceFlag}).StrictFor(cfg))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, LoadDotEnv(filepath.Join(dir, ".env")))

	t.Setenv("NOTER_DOTENV_TEST", "")
	os.Unsetenv("NOTER_DOTENV_TEST")
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("NOTER_DOTENV_TEST=from-file\n"), 0600))
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("NOTER_DOTENV_TEST"))
}
