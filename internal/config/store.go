package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/natefinch/atomic"

	"github.com/byterings/noter/internal/apperr"
	"github.com/byterings/noter/internal/platform"
)

// LoadResult is the outcome of Store.Load
type LoadResult struct {
	Config     *Config
	State      LoadState
	Report     *Report
	BackupPath string

	// MigrationErr is set when a stale record was upgraded in memory but
	// could not be written back. Config still holds the upgraded record.
	MigrationErr error
}

// Store reads and writes one config file
type Store struct {
	Path   string
	Logger *log.Logger
	Now    func() time.Time

	// unbacked holds a pre-migration record whose backup could not be written.
	// Save refuses to overwrite the file until that backup exists.
	unbacked []byte
}

// NewStore creates a store for path, or for the default location when path is empty
func NewStore(path string) (*Store, error) {
	if path == "" {
		var err error
		if path, err = GetConfigPath(); err != nil {
			return nil, err
		}
	}
	return &Store{Path: path}, nil
}

func (s *Store) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Store) migrator() *Migrator {
	return &Migrator{Now: s.Now, Logger: s.Logger}
}

// BackupPath returns the sibling backup path
func (s *Store) BackupPath() string {
	return BackupPathFor(s.Path)
}

// Exists checks if the config file exists
func (s *Store) Exists() (bool, error) {
	_, err := os.Stat(s.Path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, apperr.IO("stat config", s.Path, err)
}

// LoadAndMigrate loads the config at path, upgrading it when it is stale
func LoadAndMigrate(path string) (*Config, error) {
	store, err := NewStore(path)
	if err != nil {
		return nil, err
	}
	result, err := store.Load()
	if err != nil {
		return nil, err
	}
	return result.Config, nil
}

// Load reads the config, writing defaults when none exists and migrating
// older schemas after backing up the original
func (s *Store) Load() (*LoadResult, error) {
	s.unbacked = nil
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg := NewConfig(s.now())
		if err := s.Save(cfg); err != nil {
			return nil, err
		}
		s.logger().Info("created default config", "path", s.Path)
		return &LoadResult{Config: cfg, State: StateCurrent}, nil
	}
	if err != nil {
		return nil, apperr.IO("read config", s.Path, err)
	}

	raw := map[string]any{}
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return &LoadResult{State: StateCorrupt}, s.corrupt(err)
	}

	schema := SchemaOf(raw)
	switch CompareSchema(schema, CurrentSchema) {
	case 1:
		return &LoadResult{State: StateCorrupt}, &apperr.Error{
			Kind:  apperr.ErrUnsupportedSchema,
			Op:    "load config",
			Path:  s.Path,
			Field: "template_version",
			Err:   fmt.Errorf("schema %s is newer than %s", schema, CurrentSchema),
			Hint:  "upgrade noter to read this config",
		}
	case 0:
		return s.decodeCurrent(data)
	}

	cfg, report, err := s.migrator().Migrate(raw)
	if err != nil {
		return &LoadResult{State: StateCorrupt}, s.corrupt(err)
	}

	result := &LoadResult{Config: cfg, State: StateStale, Report: report, BackupPath: s.BackupPath()}
	if err := atomic.WriteFile(result.BackupPath, bytes.NewReader(data)); err != nil {
		result.MigrationErr = apperr.IO("write config backup", result.BackupPath, err)
		s.unbacked = data
		s.logger().Warn("config migration aborted, using upgraded config for this run", "err", result.MigrationErr)
		return result, nil
	}
	if err := s.Save(cfg); err != nil {
		result.MigrationErr = err
		s.logger().Warn("config migration aborted, using upgraded config for this run", "err", err)
		return result, nil
	}

	result.State = StateMigrated
	s.logger().Info("config upgraded", "from", report.From, "to", report.To, "backup", result.BackupPath)
	return result, nil
}

func (s *Store) decodeCurrent(data []byte) (*LoadResult, error) {
	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return &LoadResult{State: StateCorrupt}, s.corrupt(err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		s.logger().Debug("ignoring unknown config keys", "keys", undecoded)
	}
	fillSearchDefaults(md, &cfg)
	cfg.normalize()
	return &LoadResult{Config: &cfg, State: StateCurrent}, nil
}

// fillSearchDefaults covers schema 2 files written before the search table existed
func fillSearchDefaults(md toml.MetaData, cfg *Config) {
	def := defaultSearch()
	if !md.IsDefined("search", "file_extensions") {
		cfg.Search.FileExtensions = def.FileExtensions
	}
	if !md.IsDefined("search", "max_results") {
		cfg.Search.MaxResults = def.MaxResults
	}
	if !md.IsDefined("search", "context_lines") {
		cfg.Search.ContextLines = def.ContextLines
	}
}

func (s *Store) corrupt(err error) error {
	return &apperr.Error{
		Kind: apperr.ErrConfigCorrupt,
		Op:   "load config",
		Path: s.Path,
		Err:  err,
		Hint: "fix the file by hand, or run: noter config reset",
	}
}

// BackupPending reports whether a migrated record is held in memory while
// the original file still lacks its backup
func (s *Store) BackupPending() bool {
	return s.unbacked != nil
}

// Save writes the config atomically. Timestamps are left as they are.
// After a failed migration backup it retries the backup first and leaves the
// original untouched if that fails again.
func (s *Store) Save(cfg *Config) error {
	if s.unbacked != nil {
		if err := atomic.WriteFile(s.BackupPath(), bytes.NewReader(s.unbacked)); err != nil {
			return &apperr.Error{
				Kind: apperr.ErrIO,
				Op:   "back up config before saving",
				Path: s.BackupPath(),
				Err:  err,
				Hint: fmt.Sprintf("%s was not changed; make %s writable and retry", s.Path, s.BackupPath()),
			}
		}
		s.logger().Info("config backup written", "backup", s.BackupPath())
		s.unbacked = nil
	}

	if err := platform.MkdirSecure(filepath.Dir(s.Path)); err != nil {
		return apperr.IO("create config directory", filepath.Dir(s.Path), err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := atomic.WriteFile(s.Path, &buf); err != nil {
		return apperr.IO("write config", s.Path, err)
	}
	if err := platform.FixFilePermissions(s.Path); err != nil {
		return apperr.IO("set config permissions", s.Path, err)
	}
	return nil
}

// Backup copies the current file to the sibling backup path
func (s *Store) Backup() (string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", apperr.IO("read config", s.Path, err)
	}
	if err := atomic.WriteFile(s.BackupPath(), bytes.NewReader(data)); err != nil {
		return "", apperr.IO("write config backup", s.BackupPath(), err)
	}
	return s.BackupPath(), nil
}

// Reset backs up the existing file, if any, and writes defaults
func (s *Store) Reset() (*Config, error) {
	exists, err := s.Exists()
	if err != nil {
		return nil, err
	}
	if exists {
		if _, err := s.Backup(); err != nil {
			return nil, err
		}
	}
	cfg := NewConfig(s.now())
	if err := s.Save(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Cleanse rewrites the config through every field rule, dropping unknown
// keys and resetting malformed values. The original is backed up first.
func (s *Store) Cleanse() (*Config, *Report, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, nil, apperr.IO("read config", s.Path, err)
	}
	raw := map[string]any{}
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, nil, s.corrupt(err)
	}
	if CompareSchema(SchemaOf(raw), CurrentSchema) > 0 {
		return nil, nil, &apperr.Error{Kind: apperr.ErrUnsupportedSchema, Op: "cleanse config", Path: s.Path}
	}

	cfg, report, err := s.migrator().Cleanse(raw)
	if err != nil {
		return nil, nil, s.corrupt(err)
	}
	if _, err := s.Backup(); err != nil {
		return nil, nil, err
	}
	if err := s.Save(cfg); err != nil {
		return nil, nil, err
	}
	return cfg, report, nil
}
