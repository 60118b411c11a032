package template

import (
	"github.com/byterings/noter/internal/config"
)

// Document is a rendered document ready to be written
type Document struct {
	DocType  DocType
	Content  string
	Filename string
	Sections []string
	Context  *Context
}

// Builder accumulates overrides for one generation call. It is a value:
// every With method returns a new Builder and never touches the receiver,
// so chains derived from the same Builder do not share state.
type Builder struct {
	courseID string
	docType  DocType
	title    string
	sections []string
	fields   map[string]string

	cfg      *config.Config
	contexts *ContextBuilder
	engine   *Engine
}

// NewBuilder starts a lecture builder for courseID
func NewBuilder(courseID string, cfg *config.Config, contexts *ContextBuilder, engine *Engine) Builder {
	return Builder{
		courseID: courseID,
		docType:  Lecture,
		cfg:      cfg,
		contexts: contexts,
		engine:   engine,
	}
}

// WithTitle sets the document title
func (b Builder) WithTitle(title string) Builder {
	b.title = title
	return b
}

// WithType sets the document type
func (b Builder) WithType(docType DocType) Builder {
	b.docType = docType
	return b
}

// WithSections replaces the section list, bypassing config defaults and the rule table
func (b Builder) WithSections(sections ...string) Builder {
	b.sections = append(make([]string, 0, len(sections)), sections...)
	return b
}

// WithCustomField sets a value for a {{custom.<key>}} token
func (b Builder) WithCustomField(key, value string) Builder {
	fields := make(map[string]string, len(b.fields)+1)
	for k, v := range b.fields {
		fields[k] = v
	}
	fields[key] = value
	b.fields = fields
	return b
}

// Build renders the document content
func (b Builder) Build() (string, error) {
	doc, err := b.BuildDocument()
	if err != nil {
		return "", err
	}
	return doc.Content, nil
}

// BuildWithFilename renders the document content and its filename
func (b Builder) BuildWithFilename() (string, string, error) {
	doc, err := b.BuildDocument()
	if err != nil {
		return "", "", err
	}
	return doc.Content, doc.Filename, nil
}

// BuildDocument renders the document along with the context it was built from
func (b Builder) BuildDocument() (*Document, error) {
	ctx, err := b.contexts.Build(b.courseID, b.docType, b.overrides(), b.cfg)
	if err != nil {
		return nil, err
	}
	content, filename, err := b.engine.Generate(b.docType, ctx)
	if err != nil {
		return nil, err
	}
	return &Document{
		DocType:  b.docType,
		Content:  content,
		Filename: filename,
		Sections: b.engine.Sections(b.docType, ctx),
		Context:  ctx,
	}, nil
}

func (b Builder) overrides() Overrides {
	return Overrides{Title: b.title, Sections: b.sections, CustomFields: b.fields}
}
