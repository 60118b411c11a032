// Package fetch installs template packages from GitHub releases.
package fetch

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/byterings/noter/internal/apperr"
	"github.com/byterings/noter/internal/config"
	"github.com/byterings/noter/internal/version"
)

const (
	DefaultAPIBase = "https://api.github.com"

	APITimeout      = 10 * time.Second
	DownloadTimeout = 60 * time.Second

	// maxArchiveSize bounds a downloaded zipball
	maxArchiveSize = 100 << 20
)

// Release is the subset of the GitHub release payload noter reads
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	ZipballURL  string    `json:"zipball_url"`
	PublishedAt time.Time `json:"published_at"`
}

// Result describes one install
type Result struct {
	Alias       string
	Package     string
	Version     string
	PackageDir  string // <typst_packages_dir>/<package>/<version>
	TemplateDir string // <templates_dir>/<alias>
	Skipped     bool   // already at the latest version
}

// Fetcher downloads and unpacks template packages
type Fetcher struct {
	APIBase        string
	APIClient      *http.Client
	DownloadClient *http.Client
	Token          string // Optional GitHub token for rate limits
	Logger         *log.Logger
}

// New creates a fetcher against the public GitHub API
func New() *Fetcher {
	return &Fetcher{
		APIBase:        DefaultAPIBase,
		APIClient:      &http.Client{Timeout: APITimeout},
		DownloadClient: &http.Client{Timeout: DownloadTimeout},
		Token:          os.Getenv("GITHUB_TOKEN"),
	}
}

func (f *Fetcher) logger() *log.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return log.Default()
}

// ParseSource normalizes "owner/repo" or a github.com URL to "owner/repo"
func ParseSource(source string) (string, error) {
	s := strings.TrimSpace(source)
	for _, prefix := range []string{"https://github.com/", "http://github.com/", "github.com/", "git@github.com:"} {
		s = strings.TrimPrefix(s, prefix)
	}
	s = strings.TrimSuffix(strings.TrimRight(s, "/"), ".git")

	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("invalid repository source %q: expected owner/repo", source)
	}
	return s, nil
}

// LatestRelease looks up the newest release of a repository
func (f *Fetcher) LatestRelease(ctx context.Context, source string) (*Release, error) {
	repo, err := ParseSource(source)
	if err != nil {
		return nil, &apperr.Error{Kind: apperr.ErrFetch, Op: "find latest release", Err: err}
	}

	url := strings.TrimRight(f.APIBase, "/") + "/repos/" + repo + "/releases/latest"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "noter")
	if f.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.Token)
	}

	resp, err := f.APIClient.Do(req)
	if err != nil {
		return nil, &apperr.Error{Kind: apperr.ErrFetch, Op: "find latest release", Path: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &apperr.Error{
			Kind: apperr.ErrFetch,
			Op:   "find latest release",
			Path: url,
			Err:  fmt.Errorf("GitHub returned %s", resp.Status),
			Hint: "check the repository source, or set GITHUB_TOKEN if rate limited",
		}
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, &apperr.Error{Kind: apperr.ErrFetch, Op: "decode release", Path: url, Err: err}
	}
	if release.ZipballURL == "" || release.TagName == "" {
		return nil, &apperr.Error{Kind: apperr.ErrFetch, Op: "decode release", Path: url, Err: errors.New("release has no tag or zipball")}
	}
	return &release, nil
}

// Install downloads the latest release for alias and unpacks it into both the
// Typst local package directory and the templates directory. An install of
// the version already recorded in cfg is skipped unless force is set.
// cfg is not modified; callers record Result.Version.
func (f *Fetcher) Install(ctx context.Context, cfg *config.Config, alias string, force bool) (*Result, error) {
	repo, ok := cfg.Repository(alias)
	if !ok {
		return nil, fmt.Errorf("template repository '%s' not found", alias)
	}
	paths, err := cfg.ExpandedPaths()
	if err != nil {
		return nil, err
	}

	release, err := f.LatestRelease(ctx, repo.Source)
	if err != nil {
		return nil, err
	}
	tagVersion := strings.TrimPrefix(release.TagName, "v")

	result := &Result{
		Alias:       alias,
		Package:     repo.Package,
		Version:     tagVersion,
		PackageDir:  filepath.Join(paths.TypstPackagesDir, repo.Package, tagVersion),
		TemplateDir: filepath.Join(paths.TemplatesDir, alias),
	}
	if !force && repo.Version == tagVersion && dirExists(result.PackageDir) {
		result.Skipped = true
		return result, nil
	}

	archive, err := f.download(ctx, release.ZipballURL)
	if err != nil {
		return nil, err
	}
	defer os.Remove(archive)

	staging := filepath.Join(paths.TypstPackagesDir, repo.Package, ".staging-"+tagVersion)
	if err := os.RemoveAll(staging); err != nil {
		return nil, apperr.IO("clear staging directory", staging, err)
	}
	defer os.RemoveAll(staging)

	if err := Extract(archive, staging); err != nil {
		return nil, err
	}

	// the manifest version is what #import must reference
	if m, err := version.ReadManifest(filepath.Join(staging, version.ManifestFileName)); err == nil {
		result.Version = m.Package.Version
		if m.Package.Name != "" {
			result.Package = m.Package.Name
		}
		result.PackageDir = filepath.Join(paths.TypstPackagesDir, result.Package, result.Version)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	if err := replaceDir(staging, result.PackageDir); err != nil {
		return nil, err
	}
	if err := os.RemoveAll(result.TemplateDir); err != nil {
		return nil, apperr.IO("clear template directory", result.TemplateDir, err)
	}
	if err := Extract(archive, result.TemplateDir); err != nil {
		return nil, err
	}

	f.logger().Info("template installed", "alias", alias, "package", result.Package, "version", result.Version)
	return result, nil
}

func (f *Fetcher) download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "noter")
	if f.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.Token)
	}

	resp, err := f.DownloadClient.Do(req)
	if err != nil {
		return "", &apperr.Error{Kind: apperr.ErrFetch, Op: "download release", Path: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &apperr.Error{Kind: apperr.ErrFetch, Op: "download release", Path: url, Err: fmt.Errorf("server returned %s", resp.Status)}
	}

	tmp, err := os.CreateTemp("", "noter-template-*.zip")
	if err != nil {
		return "", apperr.IO("create download file", os.TempDir(), err)
	}
	defer tmp.Close()

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, maxArchiveSize+1))
	if err != nil {
		os.Remove(tmp.Name())
		return "", &apperr.Error{Kind: apperr.ErrFetch, Op: "download release", Path: url, Err: err}
	}
	if n > maxArchiveSize {
		os.Remove(tmp.Name())
		return "", &apperr.Error{Kind: apperr.ErrFetch, Op: "download release", Path: url, Err: errors.New("archive too large")}
	}
	f.logger().Debug("release downloaded", "url", url, "bytes", n)
	return tmp.Name(), nil
}

// Extract unpacks a zip archive into dest. GitHub zipballs wrap everything in
// a single top-level folder, which is stripped.
func Extract(archive, dest string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return &apperr.Error{Kind: apperr.ErrFetch, Op: "open archive", Path: archive, Err: err}
	}
	defer r.Close()

	root := commonRoot(r.File)
	for _, file := range r.File {
		name := strings.TrimPrefix(file.Name, root)
		if name == "" {
			continue
		}
		target := filepath.Join(dest, filepath.FromSlash(name))
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
			return &apperr.Error{Kind: apperr.ErrFetch, Op: "extract archive", Path: file.Name, Err: errors.New("entry escapes destination")}
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return apperr.IO("extract archive", target, err)
			}
			continue
		}
		if err := extractFile(file, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(file *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return apperr.IO("extract archive", filepath.Dir(target), err)
	}
	src, err := file.Open()
	if err != nil {
		return &apperr.Error{Kind: apperr.ErrFetch, Op: "extract archive", Path: file.Name, Err: err}
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return apperr.IO("extract archive", target, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(src, maxArchiveSize)); err != nil {
		return apperr.IO("extract archive", target, err)
	}
	return nil
}

// commonRoot returns "folder/" when every entry lives under one top-level folder
func commonRoot(files []*zip.File) string {
	root := ""
	for _, f := range files {
		i := strings.Index(f.Name, "/")
		if i < 0 {
			return ""
		}
		prefix := f.Name[:i+1]
		if prefix == "../" || prefix == "./" {
			return ""
		}
		if root == "" {
			root = prefix
		} else if prefix != root {
			return ""
		}
	}
	return root
}

func replaceDir(src, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return apperr.IO("replace package directory", dst, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return apperr.IO("replace package directory", filepath.Dir(dst), err)
	}
	if err := os.Rename(src, dst); err != nil {
		return apperr.IO("replace package directory", dst, err)
	}
	return nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
