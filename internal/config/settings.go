package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/byterings/noter/internal/platform"
)

// Environment variable prefix for runtime settings
const envPrefix = "NOTER"

// Source indicates where a runtime setting came from
type Source string

const (
	SourceFlag    Source = "flag"
	SourceEnv     Source = "env"
	SourceConfig  Source = "config"
	SourceDefault Source = "default"
)

// Settings are per-invocation values that sit outside the config file
type Settings struct {
	ConfigPath       string
	ConfigPathSource Source
	Strict           bool
	StrictSource     Source
	Verbose          bool
}

// LoadDotEnv loads a .env file into the environment. A missing file is not an error
// and variables already set are kept.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ResolveSettings resolves runtime settings with precedence flag > NOTER_* env > default.
// flags may be nil.
func ResolveSettings(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	defaultPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	v.SetDefault("config", defaultPath)

	for _, name := range []string{"config", "strict", "verbose"} {
		if flags == nil {
			break
		}
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(name, f); err != nil {
				return nil, fmt.Errorf("binding --%s: %w", name, err)
			}
		}
	}

	configPath, err := platform.ExpandTilde(v.GetString("config"))
	if err != nil {
		return nil, err
	}

	return &Settings{
		ConfigPath:       configPath,
		ConfigPathSource: sourceOf(flags, "config", SourceDefault),
		Strict:           v.GetBool("strict"),
		StrictSource:     sourceOf(flags, "strict", SourceConfig),
		Verbose:          v.GetBool("verbose"),
	}, nil
}

// StrictFor returns the unknown-course policy: a flag or env override wins,
// otherwise the config's strict_courses
func (s *Settings) StrictFor(cfg *Config) bool {
	if s.StrictSource == SourceFlag || s.StrictSource == SourceEnv {
		return s.Strict
	}
	return cfg.StrictCourses
}

// Log records where each setting came from at debug level
func (s *Settings) Log(logger *log.Logger) {
	logger.Debug("setting resolved", "key", "config", "value", s.ConfigPath, "source", s.ConfigPathSource)
	logger.Debug("setting resolved", "key", "strict", "value", s.Strict, "source", s.StrictSource)
}

func sourceOf(flags *pflag.FlagSet, name string, fallback Source) Source {
	if flags != nil {
		if f := flags.Lookup(name); f != nil && f.Changed {
			return SourceFlag
		}
	}
	// an empty variable is unset, matching how viper reads it
	if v, ok := os.LookupEnv(envPrefix + "_" + strings.ToUpper(name)); ok && v != "" {
		return SourceEnv
	}
	return fallback
}
