// Package config loads composer configuration.
//
// Precedence (highest first):
//  1. Environment variables, COMPOSER_<SECTION>_<FIELD> (COMPOSER_X_ACCESS_TOKEN -> x.access_token)
//  2. YAML file
//  3. Defaults
package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/mikequentel/threadcomposer/internal/budget"
	cerrors "github.com/mikequentel/threadcomposer/internal/errors"
)

const (
	EnvPrefix         = "COMPOSER_"
	maxConfigFileSize = 1024 * 1024
)

type Config struct {
	Instance InstanceConfig `koanf:"instance"`
	X        XConfig        `koanf:"x"`
	DB       DBConfig       `koanf:"db"`
	Post     PostConfig     `koanf:"post"`
	Log      LogConfig      `koanf:"log"`
	Editor   EditorConfig   `koanf:"editor"`
}

type InstanceConfig struct {
	// URL of a Mastodon-compatible instance for limits and custom emojis.
	// Empty means X limits apply.
	URL           string `koanf:"url"`
	MaxCharacters int    `koanf:"max_characters"`
	URLLength     int    `koanf:"url_length"`
}

type XConfig struct {
	ConsumerKey    string `koanf:"consumer_key"`
	ConsumerSecret string `koanf:"consumer_secret"`
	AccessToken    string `koanf:"access_token"`
	AccessSecret   string `koanf:"access_secret"`
}

type DBConfig struct {
	Path string `koanf:"path"`
}

type PostConfig struct {
	DryRun bool `koanf:"dry_run"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type EditorConfig struct {
	StrictFocus bool `koanf:"strict_focus"`
}

// Load reads path (optional; "" skips the file) and applies env overrides.
func Load(path string) (*Config, error) {
	const op cerrors.Op = "config.Load"
	k := koanf.New(".")

	if path != "" {
		content, err := readFile(path)
		if err != nil {
			return nil, cerrors.E(op, cerrors.KindConfig, err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, cerrors.E(op, cerrors.KindConfig, fmt.Sprintf("parse %s", path), err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, cerrors.E(op, cerrors.KindConfig, "load environment", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, cerrors.E(op, cerrors.KindConfig, "unmarshal", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps COMPOSER_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return io.ReadAll(f)
}

func applyDefaults(cfg *Config) {
	if cfg.DB.Path == "" {
		cfg.DB.Path = "./composer.sqlite"
	}
	if cfg.Instance.URLLength == 0 {
		cfg.Instance.URLLength = budget.DefaultURLLength
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
}

func (c *Config) Validate() error {
	const op cerrors.Op = "config.Validate"
	if c.Instance.MaxCharacters < 0 {
		return cerrors.E(op, cerrors.KindConfig, "instance.max_characters must not be negative")
	}
	if c.Instance.URLLength < 0 {
		return cerrors.E(op, cerrors.KindConfig, "instance.url_length must not be negative")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return cerrors.E(op, cerrors.KindConfig, fmt.Sprintf("log.format must be console or json, got %q", c.Log.Format))
	}
	return nil
}
