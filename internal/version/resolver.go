// Package version resolves the installed version of template packages.
package version

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"golang.org/x/mod/semver"

	"github.com/byterings/noter/internal/apperr"
	"github.com/byterings/noter/internal/config"
)

// ManifestFileName is the Typst package manifest
const ManifestFileName = "typst.toml"

// Source indicates how a version was resolved
type Source string

const (
	SourceManifest  Source = "manifest"
	SourceDirectory Source = "directory"
	SourceConfig    Source = "config"
)

// Manifest is the subset of typst.toml noter reads
type Manifest struct {
	Package struct {
		Name        string   `toml:"name"`
		Version     string   `toml:"version"`
		Entrypoint  string   `toml:"entrypoint"`
		Authors     []string `toml:"authors"`
		Description string   `toml:"description"`
	} `toml:"package"`
	Tool struct {
		Noter struct {
			Defaults map[string]string `toml:"defaults"` // Token defaults
		} `toml:"noter"`
	} `toml:"tool"`
}

// Resolution contains the resolved version and where it came from
type Resolution struct {
	Alias      string
	Package    string
	Version    string
	Source     Source
	Path       string // Manifest file or version directory that matched (empty for config)
	PackageDir string // Directory holding the package files (empty for config)
	Manifest   *Manifest
}

// Attempt records what one resolution level found
type Attempt struct {
	Source     Source
	Resolution *Resolution // nil when the level had no evidence
	Err        error
}

// strategy is one level of the fallback chain. It returns nil, nil when its
// source is absent; an error stops the chain.
type strategy struct {
	source  Source
	resolve func(r *Resolver, alias string, repo config.TemplateRepository) (*Resolution, error)
}

var strategies = []strategy{
	{SourceManifest, (*Resolver).fromManifest},
	{SourceDirectory, (*Resolver).fromDirectory},
	{SourceConfig, (*Resolver).fromConfig},
}

// Resolver looks up installed template package versions
type Resolver struct {
	TemplatesDir string // <alias>/typst.toml
	PackagesDir  string // <package>/<version>/
	Logger       *log.Logger
}

// NewResolver creates a resolver over the config's expanded paths
func NewResolver(cfg *config.Config) (*Resolver, error) {
	paths, err := cfg.ExpandedPaths()
	if err != nil {
		return nil, fmt.Errorf("expanding template paths: %w", err)
	}
	return &Resolver{TemplatesDir: paths.TemplatesDir, PackagesDir: paths.TypstPackagesDir}, nil
}

func (r *Resolver) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Default()
}

// Resolve returns the installed version of the repository's package.
// Priority: 1. manifest in templates_dir 2. version-named directory 3. version recorded in config
func (r *Resolver) Resolve(cfg *config.Config, alias string) (*Resolution, error) {
	repo, ok := cfg.Repository(alias)
	if !ok {
		return nil, &apperr.Error{
			Kind:  apperr.ErrVersionNotFound,
			Op:    "resolve template version",
			Field: "template_repositories." + alias,
			Err:   fmt.Errorf("repository '%s' is not configured", alias),
			Hint:  "run: noter config show to list repositories",
		}
	}

	for _, s := range strategies {
		res, err := s.resolve(r, alias, repo)
		if err != nil {
			return nil, fmt.Errorf("resolve template version for '%s': %w", alias, err)
		}
		if res != nil {
			r.logger().Debug("template version resolved", "alias", alias, "version", res.Version, "source", res.Source)
			return res, nil
		}
	}

	return nil, &apperr.Error{
		Kind:  apperr.ErrVersionNotFound,
		Op:    "resolve template version",
		Path:  filepath.Join(r.PackagesDir, repo.Package),
		Field: "template_repositories." + alias,
		Hint:  "run: noter template update",
	}
}

// Inspect runs every level without stopping, for status reporting
func (r *Resolver) Inspect(cfg *config.Config, alias string) []Attempt {
	repo, ok := cfg.Repository(alias)
	if !ok {
		return nil
	}
	attempts := make([]Attempt, 0, len(strategies))
	for _, s := range strategies {
		res, err := s.resolve(r, alias, repo)
		attempts = append(attempts, Attempt{Source: s.source, Resolution: res, Err: err})
	}
	return attempts
}

func (r *Resolver) fromManifest(alias string, repo config.TemplateRepository) (*Resolution, error) {
	dir := filepath.Join(r.TemplatesDir, alias)
	path := filepath.Join(dir, ManifestFileName)

	manifest, err := ReadManifest(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	pkg := manifest.Package.Name
	if pkg == "" {
		pkg = repo.Package
	}
	return &Resolution{
		Alias:      alias,
		Package:    pkg,
		Version:    manifest.Package.Version,
		Source:     SourceManifest,
		Path:       path,
		PackageDir: dir,
		Manifest:   manifest,
	}, nil
}

func (r *Resolver) fromDirectory(alias string, repo config.TemplateRepository) (*Resolution, error) {
	if repo.Package == "" {
		return nil, nil
	}
	root := filepath.Join(r.PackagesDir, repo.Package)
	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.IO("list package versions", root, err)
	}

	best := ""
	for _, entry := range entries {
		if !entry.IsDir() || Canonical(entry.Name()) == "" {
			continue
		}
		if best == "" || semver.Compare(Canonical(entry.Name()), Canonical(best)) > 0 {
			best = entry.Name()
		}
	}
	if best == "" {
		return nil, nil
	}

	dir := filepath.Join(root, best)
	res := &Resolution{
		Alias:      alias,
		Package:    repo.Package,
		Version:    strings.TrimPrefix(best, "v"),
		Source:     SourceDirectory,
		Path:       dir,
		PackageDir: dir,
	}

	// the packaged manifest only contributes token defaults here
	manifest, err := ReadManifest(filepath.Join(dir, ManifestFileName))
	switch {
	case err == nil:
		res.Manifest = manifest
	case !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}
	return res, nil
}

func (r *Resolver) fromConfig(alias string, repo config.TemplateRepository) (*Resolution, error) {
	if repo.Version == "" {
		return nil, nil
	}
	return &Resolution{
		Alias:   alias,
		Package: repo.Package,
		Version: repo.Version,
		Source:  SourceConfig,
	}, nil
}

// ReadManifest parses a typst.toml. A file that exists but cannot be parsed,
// or has no valid package version, is ErrManifestCorrupt.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, apperr.IO("read template manifest", path, err)
	}

	var m Manifest
	if _, err := toml.Decode(string(data), &m); err != nil {
		return nil, &apperr.Error{Kind: apperr.ErrManifestCorrupt, Op: "read template manifest", Path: path, Err: err}
	}
	if Canonical(m.Package.Version) == "" {
		return nil, &apperr.Error{
			Kind:  apperr.ErrManifestCorrupt,
			Op:    "read template manifest",
			Path:  path,
			Field: "package.version",
			Err:   fmt.Errorf("invalid version %q", m.Package.Version),
			Hint:  "reinstall with: noter template update",
		}
	}
	return &m, nil
}

// Canonical returns the semver form of a version or directory name
// ("1.2" -> "v1.2.0"), or "" when it is not a version
func Canonical(v string) string {
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.Canonical(v)
}

// Newer reports whether version a is newer than b
func Newer(a, b string) bool {
	ca, cb := Canonical(a), Canonical(b)
	if ca == "" {
		return false
	}
	if cb == "" {
		return true
	}
	return semver.Compare(ca, cb) > 0
}
