package template

import (
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/byterings/noter/internal/config"
	"github.com/byterings/noter/internal/version"
)

// Generator wires a ContextBuilder and Engine together for the common calls
type Generator struct {
	Contexts *ContextBuilder
	Engine   *Engine
}

// Options configures NewGenerator
type Options struct {
	Strict       bool
	StrictFields bool
	Now          func() time.Time
	Logger       *log.Logger
}

// NewGenerator creates a generator resolving versions under cfg's paths
func NewGenerator(cfg *config.Config, opts Options) (*Generator, error) {
	resolver, err := version.NewResolver(cfg)
	if err != nil {
		return nil, err
	}
	resolver.Logger = opts.Logger

	engine := NewEngine()
	engine.StrictFields = opts.StrictFields
	engine.Logger = opts.Logger

	return &Generator{
		Contexts: &ContextBuilder{
			Resolver: resolver,
			Now:      opts.Now,
			Strict:   opts.Strict,
			Logger:   opts.Logger,
		},
		Engine: engine,
	}, nil
}

// Builder starts a fluent builder for courseID
func (g *Generator) Builder(courseID string, cfg *config.Config) Builder {
	return NewBuilder(courseID, cfg, g.Contexts, g.Engine)
}

// GenerateLecture renders lecture notes. An empty title uses the default lecture title.
func (g *Generator) GenerateLecture(courseID string, cfg *config.Config, title string) (string, error) {
	return g.Builder(courseID, cfg).WithType(Lecture).WithTitle(title).Build()
}

// GenerateAssignment renders an assignment
func (g *Generator) GenerateAssignment(courseID, title string, cfg *config.Config) (string, error) {
	return g.Builder(courseID, cfg).WithType(Assignment).WithTitle(title).Build()
}

// GenerateFilename returns the filename a document generated now would get
func (g *Generator) GenerateFilename(courseID string, docType DocType, title string) (string, error) {
	courseID = strings.TrimSpace(courseID)
	if err := checkCourseID("generate filename", courseID); err != nil {
		return "", err
	}
	return Filename(g.Contexts.now().Format(DateFormat), courseID, docType, title), nil
}
