package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/byterings/noter/internal/platform"
)

const (
	ConfigFileName = "config.toml"
	BackupSuffix   = ".backup"

	// DefaultRepositoryAlias is the alias of the repository seeded into new configs
	DefaultRepositoryAlias = "official"
)

var (
	courseIDPattern  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)
	extensionPattern = regexp.MustCompile(`^[a-z0-9]+$`)
)

// defaultCourses are seeded into a fresh config so the first note works without setup
var defaultCourses = map[string]string{
	"01005": "Advanced Engineering Mathematics 1",
	"01006": "Advanced Engineering Mathematics 2",
	"01017": "Discrete Mathematics",
	"02101": "Introduction to Programming",
	"02102": "Algorithms and Data Structures",
	"25200": "Classical Physics 1",
	"22100": "Electronics 1",
}

var defaultLectureSections = []string{
	"Key Concepts",
	"Mathematical Framework",
	"Examples",
	"Important Points",
	"Questions & Follow-up",
	"Connections to Previous Material",
	"Next Class Preview",
}

var defaultAssignmentSections = []string{"Problem 1", "Problem 2", "Problem 3"}

// GetConfigDirName returns the config directory name
func GetConfigDirName() string {
	return platform.GetConfigDirName()
}

// GetConfigDir returns the path to the noter config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, GetConfigDirName()), nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigFileName), nil
}

// BackupPathFor returns the sibling path a pre-migration copy is written to
func BackupPathFor(configPath string) string {
	return configPath + BackupSuffix
}

// NewConfig creates a config populated with the documented defaults
func NewConfig(now time.Time) *Config {
	packagesDir := "~/.local/share/typst/packages/local"
	if dataDir, err := platform.DataLocalDir(); err == nil {
		packagesDir = filepath.Join(dataDir, "typst", "packages", "local")
	}

	stamp := now.UTC().Format(time.RFC3339)
	courses := make(map[string]string, len(defaultCourses))
	for id, name := range defaultCourses {
		courses[id] = name
	}

	cfg := &Config{
		TemplateVersion:   CurrentSchema,
		Author:            "Your Name",
		SemesterFormat:    SemesterYearSeason,
		DefaultRepository: DefaultRepositoryAlias,
		Paths: Paths{
			NotesDir:         "~/noter/notes",
			ObsidianDir:      "~/noter/obsidian-vault",
			TemplatesDir:     "~/noter/templates",
			TypstPackagesDir: packagesDir,
		},
		Courses: courses,
		TemplateRepositories: map[string]TemplateRepository{
			DefaultRepositoryAlias: {
				Source:  "HollowNumber/dtu-note-template",
				Package: "dtu-template",
				Enabled: true,
			},
		},
		CourseRepositories: map[string]string{},
		NotePreferences: NotePreferences{
			AutoOpenFile:       true,
			IncludeDateInTitle: true,
			LectureSections:    append([]string(nil), defaultLectureSections...),
			AssignmentSections: append([]string(nil), defaultAssignmentSections...),
			CreateBackups:      true,
		},
		ObsidianIntegration: ObsidianIntegration{
			Enabled:           true,
			CreateCourseIndex: true,
			LinkFormat:        "wiki",
			TagFormat:         "#course/{{course_id}}",
		},
		Search: defaultSearch(),
		Metadata: Metadata{
			CreatedAt:   stamp,
			LastUpdated: stamp,
		},
	}
	cfg.normalize()
	return cfg
}

// normalize replaces nil collections with empty ones so a decoded record
// compares equal to the record it was encoded from
func (c *Config) normalize() {
	if c.Courses == nil {
		c.Courses = map[string]string{}
	}
	if c.TemplateRepositories == nil {
		c.TemplateRepositories = map[string]TemplateRepository{}
	}
	if c.CourseRepositories == nil {
		c.CourseRepositories = map[string]string{}
	}
	if c.NotePreferences.LectureSections == nil {
		c.NotePreferences.LectureSections = []string{}
	}
	if c.NotePreferences.AssignmentSections == nil {
		c.NotePreferences.AssignmentSections = []string{}
	}
	if c.Typst.CompileArgs == nil {
		c.Typst.CompileArgs = []string{}
	}
	if c.Typst.WatchArgs == nil {
		c.Typst.WatchArgs = []string{}
	}
	if c.Metadata.ResetFields == nil {
		c.Metadata.ResetFields = []string{}
	}
	if c.Search.FileExtensions == nil {
		c.Search.FileExtensions = []string{}
	}
}

func defaultSearch() Search {
	return Search{
		FileExtensions: []string{"typ", "md"},
		MaxResults:     50,
		ContextLines:   2,
	}
}

// Clone returns a deep copy of the config
func (c *Config) Clone() *Config {
	out := *c
	out.Courses = make(map[string]string, len(c.Courses))
	for k, v := range c.Courses {
		out.Courses[k] = v
	}
	out.TemplateRepositories = make(map[string]TemplateRepository, len(c.TemplateRepositories))
	for k, v := range c.TemplateRepositories {
		out.TemplateRepositories[k] = v
	}
	out.CourseRepositories = make(map[string]string, len(c.CourseRepositories))
	for k, v := range c.CourseRepositories {
		out.CourseRepositories[k] = v
	}
	out.NotePreferences.LectureSections = append([]string{}, c.NotePreferences.LectureSections...)
	out.NotePreferences.AssignmentSections = append([]string{}, c.NotePreferences.AssignmentSections...)
	out.Typst.CompileArgs = append([]string{}, c.Typst.CompileArgs...)
	out.Typst.WatchArgs = append([]string{}, c.Typst.WatchArgs...)
	out.Metadata.ResetFields = append([]string{}, c.Metadata.ResetFields...)
	out.Search.FileExtensions = append([]string{}, c.Search.FileExtensions...)
	return &out
}

// ValidCourseID reports whether id is an acceptable course id
func ValidCourseID(id string) bool {
	return courseIDPattern.MatchString(id)
}

func validExtension(ext string) bool {
	return extensionPattern.MatchString(ext)
}

// CourseName returns the display name for a course id
func (c *Config) CourseName(id string) (string, bool) {
	name, ok := c.Courses[id]
	return name, ok
}

// AddCourse adds a new course to the config
func (c *Config) AddCourse(id, name string) error {
	id = strings.TrimSpace(id)
	if !ValidCourseID(id) {
		return fmt.Errorf("invalid course id '%s'", id)
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("course name for '%s' is empty", id)
	}
	if _, exists := c.Courses[id]; exists {
		return fmt.Errorf("course '%s' already exists", id)
	}
	if c.Courses == nil {
		c.Courses = map[string]string{}
	}
	c.Courses[id] = strings.TrimSpace(name)
	return nil
}

// RemoveCourse removes a course by id
func (c *Config) RemoveCourse(id string) bool {
	if _, exists := c.Courses[id]; !exists {
		return false
	}
	delete(c.Courses, id)
	delete(c.CourseRepositories, id)
	return true
}

// ListCourses returns all courses sorted by id
func (c *Config) ListCourses() []Course {
	courses := make([]Course, 0, len(c.Courses))
	for id, name := range c.Courses {
		courses = append(courses, Course{ID: id, Name: name})
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	return courses
}

// RepositoryAliasFor returns the repository alias a course generates against
func (c *Config) RepositoryAliasFor(courseID string) string {
	if alias, ok := c.CourseRepositories[courseID]; ok && alias != "" {
		return alias
	}
	return c.DefaultRepository
}

// Repository finds a template repository by alias
func (c *Config) Repository(alias string) (TemplateRepository, bool) {
	repo, ok := c.TemplateRepositories[alias]
	return repo, ok
}

// RepositoryAliases returns all repository aliases sorted
func (c *Config) RepositoryAliases() []string {
	aliases := make([]string, 0, len(c.TemplateRepositories))
	for alias := range c.TemplateRepositories {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

// SetRepositoryVersion records the installed version of a repository
func (c *Config) SetRepositoryVersion(alias, version string) error {
	repo, ok := c.TemplateRepositories[alias]
	if !ok {
		return fmt.Errorf("template repository '%s' not found", alias)
	}
	repo.Version = version
	c.TemplateRepositories[alias] = repo
	return nil
}

// AddRepository registers a template repository. An empty pkg is derived from the source.
func (c *Config) AddRepository(alias, source, pkg string) error {
	alias, source = strings.TrimSpace(alias), strings.TrimSpace(source)
	if alias == "" || source == "" {
		return fmt.Errorf("repository alias and source are required")
	}
	if _, exists := c.TemplateRepositories[alias]; exists {
		return fmt.Errorf("template repository '%s' already exists", alias)
	}
	if pkg = strings.TrimSpace(pkg); pkg == "" {
		pkg = packageFromSource(source)
	}
	if c.TemplateRepositories == nil {
		c.TemplateRepositories = map[string]TemplateRepository{}
	}
	c.TemplateRepositories[alias] = TemplateRepository{Source: source, Package: pkg, Enabled: true}
	return nil
}

// BindCourse makes a course generate against a repository other than the default.
// Binding to the default repository removes the entry.
func (c *Config) BindCourse(courseID, alias string) error {
	if _, ok := c.Courses[courseID]; !ok {
		return fmt.Errorf("course '%s' not found", courseID)
	}
	if _, ok := c.TemplateRepositories[alias]; !ok {
		return fmt.Errorf("template repository '%s' not found", alias)
	}
	if c.CourseRepositories == nil {
		c.CourseRepositories = map[string]string{}
	}
	if alias == c.DefaultRepository {
		delete(c.CourseRepositories, courseID)
		return nil
	}
	c.CourseRepositories[courseID] = alias
	return nil
}

// Touch records a modification time in the metadata
func (c *Config) Touch(now time.Time) {
	c.Metadata.LastUpdated = now.UTC().Format(time.RFC3339)
}

// ExpandedPaths returns Paths with ~ expanded
func (c *Config) ExpandedPaths() (Paths, error) {
	var (
		out Paths
		err error
	)
	if out.NotesDir, err = platform.ExpandTilde(c.Paths.NotesDir); err != nil {
		return Paths{}, err
	}
	if out.ObsidianDir, err = platform.ExpandTilde(c.Paths.ObsidianDir); err != nil {
		return Paths{}, err
	}
	if out.TemplatesDir, err = platform.ExpandTilde(c.Paths.TemplatesDir); err != nil {
		return Paths{}, err
	}
	if out.TypstPackagesDir, err = platform.ExpandTilde(c.Paths.TypstPackagesDir); err != nil {
		return Paths{}, err
	}
	return out, nil
}
