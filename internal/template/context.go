package template

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/byterings/noter/internal/apperr"
	"github.com/byterings/noter/internal/config"
	"github.com/byterings/noter/internal/version"
)

// DateFormat is the layout of the date token and filename prefix
const DateFormat = "2006-01-02"

// VersionResolver resolves the installed template package for a repository alias
type VersionResolver interface {
	Resolve(cfg *config.Config, alias string) (*version.Resolution, error)
}

// Context holds the substitution values for one generation call
type Context struct {
	CourseID        string
	CourseName      string
	KnownCourse     bool // false when CourseName fell back to the raw id
	Title           string
	TitleOverridden bool
	Author          string
	Date            string
	Semester        string
	TemplateVersion string // Installed package version, not the config schema tag
	Package         string
	Sections        []string
	// SectionsOverridden keeps the assignment rule table from replacing Sections
	SectionsOverridden bool
	CustomFields       map[string]string
	Time               time.Time
	Resolution         *version.Resolution
}

// Overrides are caller-supplied values that win over computed defaults.
// Zero values mean "not set"; a non-nil empty Sections is an explicit empty list.
type Overrides struct {
	Title        string
	Sections     []string
	CustomFields map[string]string
}

// ContextBuilder assembles a Context from config and call parameters
type ContextBuilder struct {
	Resolver VersionResolver
	Now      func() time.Time
	Strict   bool // unknown course ids are an error instead of a warning
	Logger   *log.Logger
}

func (b *ContextBuilder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

func (b *ContextBuilder) logger() *log.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return log.Default()
}

// Build resolves course name, date, semester and package version for a course
func (b *ContextBuilder) Build(courseID string, docType DocType, o Overrides, cfg *config.Config) (*Context, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return nil, &apperr.Error{Kind: apperr.ErrUnknownCourse, Op: "build context", Field: "course_id", Err: fmt.Errorf("course id is empty")}
	}
	if err := checkCourseID("build context", courseID); err != nil {
		return nil, err
	}

	name, known := cfg.CourseName(courseID)
	if !known {
		if b.Strict {
			return nil, &apperr.Error{
				Kind:  apperr.ErrUnknownCourse,
				Op:    "build context",
				Field: "courses." + courseID,
				Hint:  fmt.Sprintf("add it with: noter courses add %s \"<name>\"", courseID),
			}
		}
		b.logger().Warn("course not in config, using id as name", "course", courseID)
		name = courseID
	}

	alias := cfg.RepositoryAliasFor(courseID)
	res, err := b.Resolver.Resolve(cfg, alias)
	if err != nil {
		return nil, fmt.Errorf("build context for %s: %w", courseID, err)
	}

	now := b.now()
	ctx := &Context{
		CourseID:        courseID,
		CourseName:      name,
		KnownCourse:     known,
		Title:           o.Title,
		TitleOverridden: o.Title != "",
		Author:          cfg.Author,
		Date:            now.Format(DateFormat),
		Semester:        cfg.Semester(now),
		TemplateVersion: res.Version,
		Package:         res.Package,
		CustomFields:    map[string]string{},
		Time:            now,
		Resolution:      res,
	}

	if !ctx.TitleOverridden {
		ctx.Title = defaultTitle(docType, cfg, now)
	}

	switch {
	case o.Sections != nil:
		ctx.Sections = append([]string{}, o.Sections...)
		ctx.SectionsOverridden = true
	case docType == Lecture:
		ctx.Sections = append([]string{}, cfg.NotePreferences.LectureSections...)
	case docType == Assignment:
		ctx.Sections = append([]string{}, cfg.NotePreferences.AssignmentSections...)
	}

	for k, v := range o.CustomFields {
		ctx.CustomFields[k] = v
	}

	return ctx, nil
}

// checkCourseID rejects ids that are not a single safe path segment. Both
// strict and permissive lookups go through it.
func checkCourseID(op, courseID string) error {
	if config.ValidCourseID(courseID) {
		return nil
	}
	return &apperr.Error{
		Kind:  apperr.ErrInvalidCourseID,
		Op:    op,
		Field: "course_id",
		Err:   fmt.Errorf("%q may only contain letters, digits, '-' and '_', starting with a letter or digit", courseID),
	}
}

func defaultTitle(docType DocType, cfg *config.Config, now time.Time) string {
	switch docType {
	case Lecture:
		if cfg.NotePreferences.IncludeDateInTitle {
			return "Lecture - " + now.Format("January 02, 2006")
		}
		return "Lecture Notes"
	case Assignment:
		return "Assignment"
	}
	name := docType.String()
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// tokens returns the value of every required built-in token
func (c *Context) tokens() map[string]string {
	return map[string]string{
		"course_id":        c.CourseID,
		"course_name":      c.CourseName,
		"title":            c.Title,
		"author":           c.Author,
		"date":             c.Date,
		"semester":         c.Semester,
		"template_version": c.TemplateVersion,
		"package":          c.Package,
		"year":             fmt.Sprintf("%d", c.Time.Year()),
		"month":            fmt.Sprintf("%d", int(c.Time.Month())),
		"day":              fmt.Sprintf("%d", c.Time.Day()),
	}
}

// defaults returns token defaults declared by the template package
func (c *Context) defaults() map[string]string {
	if c.Resolution == nil || c.Resolution.Manifest == nil {
		return nil
	}
	return c.Resolution.Manifest.Tool.Noter.Defaults
}

// packageDir returns the directory skeleton overrides are read from
func (c *Context) packageDir() string {
	if c.Resolution == nil {
		return ""
	}
	return c.Resolution.PackageDir
}
