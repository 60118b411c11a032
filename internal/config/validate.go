package config

import (
	"errors"
	"fmt"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/byterings/noter/internal/apperr"
)

// Validate checks the config for values noter cannot work with
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Author, validation.Required),
		validation.Field(&c.SemesterFormat, validation.Required, validation.By(semesterFormatRule)),
		validation.Field(&c.Paths),
		validation.Field(&c.Courses, validation.By(courseIDsRule), validation.Each(validation.Required)),
		validation.Field(&c.TemplateRepositories, validation.Required, validation.Each(validation.By(repositoryRule))),
		validation.Field(&c.DefaultRepository, validation.Required, validation.By(c.knownRepositoryRule)),
		validation.Field(&c.CourseRepositories, validation.Each(validation.By(c.knownRepositoryRule))),
		validation.Field(&c.Search),
	)
	if err != nil {
		return &apperr.Error{
			Kind: apperr.ErrInvalidConfig,
			Op:   "validate config",
			Err:  err,
			Hint: "edit the config or run: noter config cleanse",
		}
	}
	return nil
}

// Validate implements validation.Validatable
func (p Paths) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.NotesDir, validation.Required),
		validation.Field(&p.TemplatesDir, validation.Required),
		validation.Field(&p.TypstPackagesDir, validation.Required),
	)
}

// Validate implements validation.Validatable
func (s Search) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.FileExtensions, validation.Required, validation.Each(validation.By(extensionRule))),
		validation.Field(&s.MaxResults, validation.Required, validation.Min(1)),
		validation.Field(&s.ContextLines, validation.Min(0), validation.Max(MaxContextLines)),
	)
}

func extensionRule(value any) error {
	ext, _ := value.(string)
	if !validExtension(ext) {
		return fmt.Errorf("%q must be lower-case letters and digits without the dot", ext)
	}
	return nil
}

func semesterFormatRule(value any) error {
	f, _ := value.(SemesterFormat)
	if !f.Valid() {
		return fmt.Errorf("unknown format %q: use year-season, season-year, short or a pattern with {season} or {s}", string(f))
	}
	return nil
}

func courseIDsRule(value any) error {
	courses, _ := value.(map[string]string)
	var bad []string
	for id := range courses {
		if !ValidCourseID(id) {
			bad = append(bad, id)
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return fmt.Errorf("invalid course ids: %v", bad)
	}
	return nil
}

func repositoryRule(value any) error {
	repo, _ := value.(TemplateRepository)
	if repo.Source == "" {
		return errors.New("source is required")
	}
	if repo.Package == "" {
		return errors.New("package is required")
	}
	return nil
}

func (c *Config) knownRepositoryRule(value any) error {
	alias, _ := value.(string)
	if _, ok := c.TemplateRepositories[alias]; !ok {
		return fmt.Errorf("template repository %q is not configured", alias)
	}
	return nil
}
