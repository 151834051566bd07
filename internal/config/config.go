package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default values for the configuration.
const (
	DefaultHost         = "localhost"
	DefaultPort         = 8000
	DefaultStaticDir    = "."
	DefaultMaxBodyBytes = 10 << 20
	DefaultProjectsDir  = "projects"
	DefaultExtension    = ".fountain"
	DefaultOpenPolicy   = "basename"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "json"
)

// Config is the top-level scripthub configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Projects ProjectsConfig `yaml:"projects"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	// Host is the interface to bind. The service is meant for local use.
	Host string `yaml:"host"`

	// Port is the HTTP port (default 8000).
	Port int `yaml:"port"`

	// StaticDir is served for every GET that is not a project endpoint.
	StaticDir string `yaml:"static_dir"`

	// MaxBodyBytes caps the size of a save request body.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ProjectsConfig controls the on-disk project store.
type ProjectsConfig struct {
	// Dir is the project directory. It is created if missing.
	Dir string `yaml:"dir"`

	// Extension is the suffix a file needs to appear in the project list.
	Extension string `yaml:"extension"`

	// OpenPolicy is one of: basename | raw.
	// "raw" joins the requested name unmodified and echoes it back, so nested
	// and parent paths open as given (including outside Dir). Use it when
	// clients rely on opening "sub/name.fountain".
	OpenPolicy string `yaml:"open_policy"`

	// AtomicWrites saves through a temporary file and a rename, serializing
	// saves to the same name. Pointer so an explicit false survives defaults.
	AtomicWrites *bool `yaml:"atomic_writes"`
}

// Atomic reports whether atomic writes are enabled (default true).
func (p ProjectsConfig) Atomic() bool {
	return p.AtomicWrites == nil || *p.AtomicWrites
}

// LogConfig controls the process logger.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`

	// Format is one of: json | text.
	Format string `yaml:"format"`
}

// SlogLevel converts Level to a slog.Level. Validation guarantees it parses.
func (l LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Default returns a Config populated with default values only.
func Default() *Config {
	return defaults()
}

// Load reads and parses the config file at path. When optional is true a
// missing file is not an error and the defaults are returned.
func Load(path string, optional bool) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
		resolveDirs(cfg, filepath.Dir(path))
	case optional && errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         DefaultHost,
			Port:         DefaultPort,
			StaticDir:    DefaultStaticDir,
			MaxBodyBytes: DefaultMaxBodyBytes,
		},
		Projects: ProjectsConfig{
			Dir:        DefaultProjectsDir,
			Extension:  DefaultExtension,
			OpenPolicy: DefaultOpenPolicy,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// resolveDirs makes relative directories in a loaded file relative to base.
func resolveDirs(cfg *Config, base string) {
	if cfg.Projects.Dir != "" && !filepath.IsAbs(cfg.Projects.Dir) {
		cfg.Projects.Dir = filepath.Join(base, cfg.Projects.Dir)
	}
	if cfg.Server.StaticDir != "" && !filepath.IsAbs(cfg.Server.StaticDir) {
		cfg.Server.StaticDir = filepath.Join(base, cfg.Server.StaticDir)
	}
}

// Validate checks structural constraints on cfg. It is exported so flag
// overrides applied after Load can be checked again.
func Validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", cfg.Server.Port)
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("config: server.max_body_bytes must be positive")
	}
	if cfg.Projects.Dir == "" {
		return fmt.Errorf("config: projects.dir must not be empty")
	}
	if !strings.HasPrefix(cfg.Projects.Extension, ".") || len(cfg.Projects.Extension) < 2 {
		return fmt.Errorf("config: projects.extension %q must start with a dot", cfg.Projects.Extension)
	}
	switch cfg.Projects.OpenPolicy {
	case "basename", "raw":
	default:
		return fmt.Errorf("config: projects.open_policy %q unknown: want basename|raw", cfg.Projects.OpenPolicy)
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return fmt.Errorf("config: log.level %q unknown: want debug|info|warn|error", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("config: log.format %q unknown: want json|text", cfg.Log.Format)
	}
	return nil
}
