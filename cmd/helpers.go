package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/byterings/noter/internal/apperr"
	"github.com/byterings/noter/internal/config"
	"github.com/byterings/noter/internal/notes"
	"github.com/byterings/noter/internal/template"
	"github.com/byterings/noter/internal/ui"
)

// timeNow is replaced in tests
var timeNow = time.Now

// docFlags are shared by every command that generates a document
type docFlags struct {
	sections     []string
	fields       map[string]string
	noOpen       bool
	print        bool
	strictFields bool
}

func (f *docFlags) register(c *cobra.Command) {
	c.Flags().StringSliceVar(&f.sections, "sections", nil, "Section headings, replacing the defaults")
	c.Flags().StringToStringVar(&f.fields, "field", nil, "Value for a {{custom.<key>}} token (key=value)")
	c.Flags().BoolVar(&f.noOpen, "no-open", false, "Do not open the new file or its directory")
	c.Flags().BoolVar(&f.print, "print", false, "Print the document instead of writing it")
	c.Flags().BoolVar(&f.strictFields, "strict-fields", false, "Fail when a --field is not used by the template")
}

func (f *docFlags) apply(cmd *cobra.Command, b template.Builder) template.Builder {
	if cmd.Flags().Changed("sections") {
		b = b.WithSections(f.sections...)
	}
	for k, v := range f.fields {
		b = b.WithCustomField(k, v)
	}
	return b
}

func newGenerator(cfg *config.Config, strictFields bool) (*template.Generator, error) {
	return template.NewGenerator(cfg, template.Options{
		Strict:       settings.StrictFor(cfg),
		StrictFields: strictFields,
		Now:          timeNow,
		Logger:       ui.Logger,
	})
}

// generateDocument renders one document, writes it under the notes directory and opens it
func generateDocument(cmd *cobra.Command, courseID string, docType template.DocType, title string, f *docFlags) error {
	cfg, err := loadValidConfig()
	if err != nil {
		return err
	}
	gen, err := newGenerator(cfg, f.strictFields)
	if err != nil {
		return err
	}

	build := func() (*template.Document, error) {
		b := gen.Builder(courseID, cfg).WithType(docType).WithTitle(title)
		return f.apply(cmd, b).BuildDocument()
	}

	doc, err := build()
	if errors.Is(err, apperr.ErrUnknownCourse) {
		added, perr := offerAddCourse(cfg, strings.TrimSpace(courseID))
		if perr != nil {
			return perr
		}
		if added {
			doc, err = build()
		}
	}
	if err != nil {
		return err
	}

	if f.print {
		fmt.Fprint(cmd.OutOrStdout(), doc.Content)
		return nil
	}
	return writeDocument(cfg, doc, f.noOpen)
}

// offerAddCourse asks whether to add an unknown course when a terminal is attached
func offerAddCourse(cfg *config.Config, courseID string) (bool, error) {
	if !config.ValidCourseID(courseID) || !isInteractive() {
		return false, nil
	}
	ok, err := ui.PromptConfirmation(fmt.Sprintf("Course %s is not in your config. Add it now?", courseID))
	if err != nil || !ok {
		return false, err
	}
	name, err := ui.PromptCourseName(courseID)
	if err != nil {
		return false, err
	}
	if err := cfg.AddCourse(courseID, name); err != nil {
		return false, err
	}
	if err := saveConfig(cfg); err != nil {
		return false, err
	}
	ui.Success(fmt.Sprintf("Added course %s", ui.Noun(courseID)))
	return true, nil
}

// isInteractive reports whether prompts can be shown; replaced in tests
var isInteractive = func() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func writeDocument(cfg *config.Config, doc *template.Document, noOpen bool) error {
	paths, err := cfg.ExpandedPaths()
	if err != nil {
		return err
	}
	ctx := doc.Context
	dir := notes.CourseDir(paths.NotesDir, ctx.CourseID, notes.KindDir(doc.DocType.String()))
	path := filepath.Join(dir, doc.Filename)

	w := &notes.Writer{
		CreateBackups: cfg.NotePreferences.CreateBackups,
		Now:           timeNow,
		Logger:        ui.Logger,
	}
	backup, err := w.CreateFileWithContent(path, doc.Content)
	if err != nil {
		return err
	}

	ui.Success(fmt.Sprintf("Created %s", ui.Noun(path)))
	if backup != "" {
		ui.Info(fmt.Sprintf("Previous version saved to %s", backup))
	}
	ui.KeyValue("Course", fmt.Sprintf("%s %s", ctx.CourseID, ctx.CourseName))
	ui.KeyValue("Title", ctx.Title)
	ui.KeyValue("Template", fmt.Sprintf("%s %s (%s)", ctx.Package, ctx.TemplateVersion, ctx.Resolution.Source))
	if len(doc.Sections) > 0 {
		ui.KeyValue("Sections", strings.Join(doc.Sections, ", "))
	}

	if noOpen {
		return nil
	}
	if cfg.NotePreferences.AutoOpenFile {
		editor, err := notes.OpenInEditor(path, cfg.PreferredEditor)
		if err != nil {
			ui.Warning(err.Error())
		} else {
			ui.Info(fmt.Sprintf("Opened in %s", editor))
		}
	}
	if cfg.NotePreferences.AutoOpenDir {
		if err := notes.OpenDir(dir); err != nil {
			ui.Warning(fmt.Sprintf("Could not open %s: %v", dir, err))
		}
	}
	return nil
}
