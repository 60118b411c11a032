package config

// CurrentSchema is the config schema tag written by this binary.
//
// Schema history:
//   - "1": initial layout; template_repositories maps alias -> "owner/repo"
//   - "2": repositories become tables, adds note_preferences.auto_open_dir,
//     strict_courses, default_repository, course_repositories, typst, metadata
const CurrentSchema = "2"

// Paths holds the filesystem locations noter reads and writes.
// Values may start with ~ and are expanded on use.
type Paths struct {
	NotesDir         string `toml:"notes_dir" json:"notes_dir" yaml:"notes_dir"`
	ObsidianDir      string `toml:"obsidian_dir" json:"obsidian_dir" yaml:"obsidian_dir"`
	TemplatesDir     string `toml:"templates_dir" json:"templates_dir" yaml:"templates_dir"`
	TypstPackagesDir string `toml:"typst_packages_dir" json:"typst_packages_dir" yaml:"typst_packages_dir"`
}

// TemplateRepository describes where a template package comes from
type TemplateRepository struct {
	Source  string `toml:"source" json:"source" yaml:"source"`                                // owner/repo or URL
	Package string `toml:"package" json:"package" yaml:"package"`                             // Typst package name used in #import
	Version string `toml:"version,omitempty" json:"version,omitempty" yaml:"version,omitempty"` // Last installed version
	Enabled bool   `toml:"enabled" json:"enabled" yaml:"enabled"`
}

// NotePreferences controls how notes are generated and opened
type NotePreferences struct {
	AutoOpenFile       bool     `toml:"auto_open_file" json:"auto_open_file" yaml:"auto_open_file"`
	AutoOpenDir        bool     `toml:"auto_open_dir" json:"auto_open_dir" yaml:"auto_open_dir"` // Added in schema 2
	IncludeDateInTitle bool     `toml:"include_date_in_title" json:"include_date_in_title" yaml:"include_date_in_title"`
	LectureSections    []string `toml:"lecture_sections" json:"lecture_sections" yaml:"lecture_sections"`
	AssignmentSections []string `toml:"assignment_sections" json:"assignment_sections" yaml:"assignment_sections"`
	CreateBackups      bool     `toml:"create_backups" json:"create_backups" yaml:"create_backups"`
}

// ObsidianIntegration controls the Obsidian vault helpers
type ObsidianIntegration struct {
	Enabled           bool   `toml:"enabled" json:"enabled" yaml:"enabled"`
	CreateCourseIndex bool   `toml:"create_course_index" json:"create_course_index" yaml:"create_course_index"`
	LinkFormat        string `toml:"link_format" json:"link_format" yaml:"link_format"`
	TagFormat         string `toml:"tag_format" json:"tag_format" yaml:"tag_format"`
}

// Typst holds compiler invocation settings
type Typst struct {
	CompileArgs []string `toml:"compile_args" json:"compile_args" yaml:"compile_args"`
	WatchArgs   []string `toml:"watch_args" json:"watch_args" yaml:"watch_args"`
	OutputDir   string   `toml:"output_dir,omitempty" json:"output_dir,omitempty" yaml:"output_dir,omitempty"` // Relative to the source file
}

// Search controls noter search
type Search struct {
	FileExtensions []string `toml:"file_extensions" json:"file_extensions" yaml:"file_extensions"` // Without the leading dot
	MaxResults     int      `toml:"max_results" json:"max_results" yaml:"max_results"`
	ContextLines   int      `toml:"context_lines" json:"context_lines" yaml:"context_lines"`
	CaseSensitive  bool     `toml:"case_sensitive" json:"case_sensitive" yaml:"case_sensitive"`
}

// Metadata is maintained by noter, not by the user
type Metadata struct {
	CreatedAt      string   `toml:"created_at" json:"created_at" yaml:"created_at"`
	LastUpdated    string   `toml:"last_updated" json:"last_updated" yaml:"last_updated"`
	MigrationNotes string   `toml:"migration_notes,omitempty" json:"migration_notes,omitempty" yaml:"migration_notes,omitempty"`
	ResetFields    []string `toml:"reset_fields,omitempty" json:"reset_fields,omitempty" yaml:"reset_fields,omitempty"`
}

// Config represents the noter configuration
type Config struct {
	TemplateVersion      string                        `toml:"template_version" json:"template_version" yaml:"template_version"` // Schema tag, not a package version
	Author               string                        `toml:"author" json:"author" yaml:"author"`
	PreferredEditor      string                        `toml:"preferred_editor,omitempty" json:"preferred_editor,omitempty" yaml:"preferred_editor,omitempty"`
	SemesterFormat       SemesterFormat                `toml:"semester_format" json:"semester_format" yaml:"semester_format"`
	StrictCourses        bool                          `toml:"strict_courses" json:"strict_courses" yaml:"strict_courses"`
	DefaultRepository    string                        `toml:"default_repository" json:"default_repository" yaml:"default_repository"`
	Paths                Paths                         `toml:"paths" json:"paths" yaml:"paths"`
	Courses              map[string]string             `toml:"courses" json:"courses" yaml:"courses"`
	TemplateRepositories map[string]TemplateRepository `toml:"template_repositories" json:"template_repositories" yaml:"template_repositories"`
	CourseRepositories   map[string]string             `toml:"course_repositories" json:"course_repositories" yaml:"course_repositories"` // Course id -> repository alias
	NotePreferences      NotePreferences               `toml:"note_preferences" json:"note_preferences" yaml:"note_preferences"`
	ObsidianIntegration  ObsidianIntegration           `toml:"obsidian_integration" json:"obsidian_integration" yaml:"obsidian_integration"`
	Typst                Typst                         `toml:"typst" json:"typst" yaml:"typst"`
	Search               Search                        `toml:"search" json:"search" yaml:"search"`
	Metadata             Metadata                      `toml:"metadata" json:"metadata" yaml:"metadata"`
}

// Course is a single entry of Config.Courses
type Course struct {
	ID   string
	Name string
}
