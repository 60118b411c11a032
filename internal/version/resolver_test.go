package version

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byterings/noter/internal/apperr"
	"github.com/byterings/noter/internal/config"
)

func setup(t *testing.T) (*Resolver, *config.Config) {
	t.Helper()
	root := t.TempDir()
	cfg := config.NewConfig(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	cfg.Paths.TemplatesDir = filepath.Join(root, "templates")
	cfg.Paths.TypstPackagesDir = filepath.Join(root, "packages")

	r, err := NewResolver(cfg)
	require.NoError(t, err)
	r.Logger = log.New(io.Discard)
	return r, cfg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func manifest(name, version string) string {
	return "[package]\nname = \"" + name + "\"\nversion = \"" + version + "\"\nentrypoint = \"lib.typ\"\n"
}

func TestResolve_ManifestWins(t *testing.T) {
	r, cfg := setup(t)
	require.NoError(t, cfg.SetRepositoryVersion("official", "0.9.0"))
	writeFile(t, filepath.Join(r.TemplatesDir, "official", ManifestFileName), manifest("dtu-template", "1.2.0")+
		"\n[tool.noter.defaults]\nauthor = \"Template Author\"\n")
	require.NoError(t, os.MkdirAll(filepath.Join(r.PackagesDir, "dtu-template", "2.0.0"), 0755))

	res, err := r.Resolve(cfg, "official")
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", res.Version)
	assert.Equal(t, SourceManifest, res.Source)
	assert.Equal(t, "dtu-template", res.Package)
	assert.Equal(t, filepath.Join(r.TemplatesDir, "official"), res.PackageDir)
	assert.Equal(t, "Template Author", res.Manifest.Tool.Noter.Defaults["author"])
}

func TestResolve_HighestVersionDirectory(t *testing.T) {
	r, cfg := setup(t)
	require.NoError(t, cfg.SetRepositoryVersion("official", "0.1.0"))
	for _, dir := range []string{"0.9.0", "v1.10.0", "1.2.0", "latest", "1.9"} {
		require.NoError(t, os.MkdirAll(filepath.Join(r.PackagesDir, "dtu-template", dir), 0755))
	}
	writeFile(t, filepath.Join(r.PackagesDir, "dtu-template", "notes.txt"), "not a version")

	res, err := r.Resolve(cfg, "official")
	require.NoError(t, err)
	assert.Equal(t, "1.10.0", res.Version)
	assert.Equal(t, SourceDirectory, res.Source)
	assert.Nil(t, res.Manifest)
}

func TestResolve_ConfigFallback(t *testing.T) {
	r, cfg := setup(t)
	require.NoError(t, cfg.SetRepositoryVersion("official", "0.4.2"))

	res, err := r.Resolve(cfg, "official")
	require.NoError(t, err)
	assert.Equal(t, "0.4.2", res.Version)
	assert.Equal(t, SourceConfig, res.Source)
	assert.Empty(t, res.PackageDir)
}

func TestResolve_MalformedManifestDoesNotFallBack(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unparseable", "[package\nversion = "},
		{"missing version", "[package]\nname = \"dtu-template\"\n"},
		{"bad version", manifest("dtu-template", "one point two")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, cfg := setup(t)
			require.NoError(t, cfg.SetRepositoryVersion("official", "1.0.0"))
			require.NoError(t, os.MkdirAll(filepath.Join(r.PackagesDir, "dtu-template", "1.0.0"), 0755))
			writeFile(t, filepath.Join(r.TemplatesDir, "official", ManifestFileName), tt.content)

			_, err := r.Resolve(cfg, "official")
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrManifestCorrupt)
			assert.NotErrorIs(t, err, apperr.ErrVersionNotFound)
		})
	}
}

func TestResolve_NothingInstalled(t *testing.T) {
	r, cfg := setup(t)

	_, err := r.Resolve(cfg, "official")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrVersionNotFound)
	assert.Equal(t, "run: noter template update", apperr.HintOf(err))
}

func TestResolve_UnknownAlias(t *testing.T) {
	r, cfg := setup(t)

	_, err := r.Resolve(cfg, "missing")
	assert.ErrorIs(t, err, apperr.ErrVersionNotFound)
}

func TestInspect_ReportsEveryLevel(t *testing.T) {
	r, cfg := setup(t)
	require.NoError(t, cfg.SetRepositoryVersion("official", "0.4.2"))
	require.NoError(t, os.MkdirAll(filepath.Join(r.PackagesDir, "dtu-template", "0.5.0"), 0755))

	attempts := r.Inspect(cfg, "official")
	require.Len(t, attempts, 3)
	assert.Nil(t, attempts[0].Resolution)
	assert.Equal(t, "0.5.0", attempts[1].Resolution.Version)
	assert.Equal(t, "0.4.2", attempts[2].Resolution.Version)
}

func TestCanonicalAndNewer(t *testing.T) {
	assert.Equal(t, "v1.2.0", Canonical("1.2"))
	assert.Equal(t, "v1.2.3", Canonical("v1.2.3"))
	assert.Empty(t, Canonical("latest"))
	assert.Empty(t, Canonical(""))

	assert.True(t, Newer("1.10.0", "1.9.0"))
	assert.False(t, Newer("1.0.0", "1.0.0"))
	assert.True(t, Newer("0.1.0", ""))
	assert.False(t, Newer("junk", "1.0.0"))
}
