package template

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/byterings/noter/internal/apperr"
)

const customPrefix = "custom."

var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)

var typstEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// headingEscaper keeps section names literal in Typst markup. Line breaks
// are folded so a name cannot start a new block.
var headingEscaper = strings.NewReplacer(
	`\`, `\\`, `#`, `\#`, `$`, `\$`, `*`, `\*`, `_`, `\_`, "`", "\\`",
	`<`, `\<`, `@`, `\@`, `[`, `\[`, `]`, `\]`, "\r\n", " ", "\n", " ", "\r", " ",
)

// Engine renders a Context into document content and a filename
type Engine struct {
	Rules []SectionRule

	// StrictFields makes custom fields that no token consumes an error
	StrictFields bool

	Logger *log.Logger
}

// NewEngine creates an engine using the default assignment rules
func NewEngine() *Engine {
	return &Engine{Rules: AssignmentRules}
}

func (e *Engine) logger() *log.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.Default()
}

// Generate renders the document and computes its filename
func (e *Engine) Generate(docType DocType, ctx *Context) (string, string, error) {
	content, err := e.Render(docType, ctx)
	if err != nil {
		return "", "", err
	}
	return content, e.Filename(docType, ctx), nil
}

// Filename returns the file name for ctx. The title is only part of the
// name when the caller supplied it.
func (e *Engine) Filename(docType DocType, ctx *Context) string {
	title := ""
	if ctx.TitleOverridden {
		title = ctx.Title
	}
	return Filename(ctx.Date, ctx.CourseID, docType, title)
}

// Sections returns the section list a document will contain
func (e *Engine) Sections(docType DocType, ctx *Context) []string {
	if ctx.SectionsOverridden || docType != Assignment {
		return ctx.Sections
	}
	if rule, ok := MatchRule(e.Rules, ctx.CourseID); ok {
		return rule.Sections
	}
	return ctx.Sections
}

// Render substitutes tokens in the skeleton for docType and appends one
// heading per section
func (e *Engine) Render(docType DocType, ctx *Context) (string, error) {
	skeleton, err := LoadSkeleton(docType, ctx.packageDir())
	if err != nil {
		return "", err
	}

	body, err := e.substitute(skeleton, ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(body, "\n"))
	b.WriteString("\n\n")
	for _, section := range e.Sections(docType, ctx) {
		b.WriteString("= ")
		b.WriteString(headingEscaper.Replace(section))
		b.WriteString("\n\n")
	}
	return b.String(), nil
}

func (e *Engine) substitute(skeleton *Skeleton, ctx *Context) (string, error) {
	values := ctx.tokens()
	defaults := ctx.defaults()
	used := map[string]bool{}
	var missing []string

	out := tokenPattern.ReplaceAllStringFunc(skeleton.Text, func(match string) string {
		name := tokenPattern.FindStringSubmatch(match)[1]

		if key, ok := strings.CutPrefix(name, customPrefix); ok {
			used[key] = true
			if v, ok := ctx.CustomFields[key]; ok {
				return typstEscaper.Replace(v)
			}
			return typstEscaper.Replace(defaults[name])
		}

		v, required := values[name]
		if !required {
			return match
		}
		if v == "" {
			v = defaults[name]
		}
		if v == "" {
			missing = append(missing, name)
			return match
		}
		return typstEscaper.Replace(v)
	})

	if len(missing) > 0 {
		return "", &apperr.Error{
			Kind:  apperr.ErrMissingRequiredToken,
			Op:    "render " + skeleton.DocType.String(),
			Path:  skeleton.Path,
			Field: strings.Join(missing, ", "),
			Hint:  "set it in the config or under [tool.noter.defaults] in the package manifest",
		}
	}

	var unused []string
	for key := range ctx.CustomFields {
		if !used[key] {
			unused = append(unused, key)
		}
	}
	if len(unused) > 0 {
		sort.Strings(unused)
		if e.StrictFields {
			return "", &apperr.Error{
				Kind:  apperr.ErrUnusedCustomField,
				Op:    "render " + skeleton.DocType.String(),
				Field: strings.Join(unused, ", "),
				Err:   fmt.Errorf("no {{%s<name>}} token consumes them", customPrefix),
			}
		}
		e.logger().Debug("custom fields not used by skeleton", "fields", unused)
	}

	return out, nil
}
