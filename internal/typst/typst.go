// Package typst drives the external typst compiler over the notes tree.
package typst

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"

	"github.com/byterings/noter/internal/apperr"
	"github.com/byterings/noter/internal/config"
)

// DefaultBinary is looked up on PATH
const DefaultBinary = "typst"

const installHint = "install Typst: https://github.com/typst/typst#installation"

// Status compares a source file with its compiled PDF
type Status int

const (
	UpToDate Status = iota
	OutOfDate
	NotCompiled
	SourceNotFound
)

func (s Status) String() string {
	switch s {
	case UpToDate:
		return "up to date"
	case OutOfDate:
		return "out of date"
	case NotCompiled:
		return "not compiled"
	case SourceNotFound:
		return "source not found"
	}
	return "unknown"
}

// Result describes one compilation
type Result struct {
	Input    string
	Output   string
	Size     int64
	Duration time.Duration
}

// Runner executes the compiler and returns its combined output
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Compiler invokes typst with the configured arguments
type Compiler struct {
	Binary      string
	CompileArgs []string
	// OutputDir is relative to the source file unless absolute; empty means next to it
	OutputDir string
	Run       Runner
	Logger    *log.Logger
}

// New creates a compiler from the [typst] config section
func New(cfg *config.Config) *Compiler {
	return &Compiler{
		Binary:      DefaultBinary,
		CompileArgs: append([]string(nil), cfg.Typst.CompileArgs...),
		OutputDir:   cfg.Typst.OutputDir,
		Run:         execRunner,
	}
}

func (c *Compiler) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

func (c *Compiler) binary() string {
	if c.Binary != "" {
		return c.Binary
	}
	return DefaultBinary
}

func (c *Compiler) runner() Runner {
	if c.Run != nil {
		return c.Run
	}
	return execRunner
}

// SourcePath appends .typ when path has no extension
func SourcePath(path string) string {
	if filepath.Ext(path) == "" {
		return path + ".typ"
	}
	return path
}

// OutputPath is the PDF a source compiles to
func (c *Compiler) OutputPath(source string) string {
	name := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source)) + ".pdf"
	switch {
	case c.OutputDir == "":
		return filepath.Join(filepath.Dir(source), name)
	case filepath.IsAbs(c.OutputDir):
		return filepath.Join(c.OutputDir, name)
	default:
		return filepath.Join(filepath.Dir(source), c.OutputDir, name)
	}
}

// Status compares modification times of source and output
func (c *Compiler) Status(path string) (Status, error) {
	source := SourcePath(path)
	src, err := os.Stat(source)
	if errors.Is(err, fs.ErrNotExist) {
		return SourceNotFound, nil
	}
	if err != nil {
		return SourceNotFound, apperr.IO("stat source", source, err)
	}

	out, err := os.Stat(c.OutputPath(source))
	if errors.Is(err, fs.ErrNotExist) {
		return NotCompiled, nil
	}
	if err != nil {
		return NotCompiled, apperr.IO("stat output", c.OutputPath(source), err)
	}

	if src.ModTime().After(out.ModTime()) {
		return OutOfDate, nil
	}
	return UpToDate, nil
}

// Available returns the typst version string
func (c *Compiler) Available(ctx context.Context) (string, error) {
	out, err := c.runner()(ctx, c.binary(), "--version")
	if err != nil {
		return "", &apperr.Error{Kind: apperr.ErrCompile, Op: "typst --version", Err: err, Hint: installHint}
	}
	return strings.TrimSpace(string(out)), nil
}

// Compile runs typst compile <source> <output> [compile_args...]
func (c *Compiler) Compile(ctx context.Context, path string) (*Result, error) {
	source := SourcePath(path)
	if _, err := os.Stat(source); err != nil {
		return nil, apperr.IO("compile", source, err)
	}

	output := c.OutputPath(source)
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return nil, apperr.IO("create output directory", filepath.Dir(output), err)
	}

	args := append([]string{"compile", source, output}, c.CompileArgs...)
	start := time.Now()
	out, err := c.runner()(ctx, c.binary(), args...)
	if err != nil {
		e := &apperr.Error{Kind: apperr.ErrCompile, Op: "compile", Path: source, Err: err}
		if msg := strings.TrimSpace(string(out)); msg != "" {
			e.Err = fmt.Errorf("%w\n%s", err, msg)
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			e.Hint = installHint
		}
		return nil, e
	}

	result := &Result{Input: source, Output: output, Duration: time.Since(start)}
	if info, err := os.Stat(output); err == nil {
		result.Size = info.Size()
	}
	c.logger().Debug("compiled", "source", source, "output", output, "took", result.Duration)
	return result, nil
}

// Sources lists every .typ file under the given roots, sorted
func Sources(roots ...string) ([]string, error) {
	return glob("**/*.typ", roots)
}

// Clean removes every compiled PDF under the given roots and returns how many were removed
func Clean(roots ...string) (int, error) {
	pdfs, err := glob("**/*.pdf", roots)
	if err != nil {
		return 0, err
	}
	for i, pdf := range pdfs {
		if err := os.Remove(pdf); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return i, apperr.IO("remove compiled file", pdf, err)
		}
	}
	return len(pdfs), nil
}

func glob(pattern string, roots []string) ([]string, error) {
	var found []string
	for _, root := range roots {
		if root == "" {
			continue
		}
		if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, apperr.IO("scan", root, err)
		}
		for _, m := range matches {
			found = append(found, filepath.Join(root, filepath.FromSlash(m)))
		}
	}
	sort.Strings(found)
	return found, nil
}
