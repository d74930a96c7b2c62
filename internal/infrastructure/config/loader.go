package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/sgpt-go/assets"
	"github.com/doeshing/sgpt-go/internal/domain"
	"github.com/doeshing/sgpt-go/internal/pkg/filesystem"
	"github.com/doeshing/sgpt-go/internal/ports"
)

// FileLoader loads YAML configuration from <state dir>/config.yaml
// (overridable via SGPT_CONFIG).
type FileLoader struct {
	overridePath string
	stateDir     string
}

// NewFileLoader builds a new loader. An empty path selects the default
// location under stateDir.
func NewFileLoader(path, stateDir string) *FileLoader {
	return &FileLoader{overridePath: path, stateDir: stateDir}
}

// Path returns the file Load reads.
func (l *FileLoader) Path() string {
	if l.overridePath != "" {
		return filesystem.ExpandPath(l.overridePath)
	}
	if custom := os.Getenv("SGPT_CONFIG"); custom != "" {
		return filesystem.ExpandPath(custom)
	}
	return filepath.Join(l.stateDir, "config.yaml")
}

// Load implements ports.ConfigProvider. On first run the embedded default
// is written to disk and returned.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	path := l.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return domain.Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := writeDefault(path); err != nil {
			return domain.Config{}, err
		}
		data = assets.DefaultConfigYAML
	}

	cfg, err := Parse(data)
	if err != nil {
		return domain.Config{}, &domain.ConfigError{Key: path, Err: err}
	}
	return cfg, nil
}

// Parse decodes a config document and fills omitted values.
func Parse(data []byte) (domain.Config, error) {
	var cfg domain.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, err
	}
	cfg = hydrateDefaults(cfg)
	if err := cfg.ValidateConsistency(); err != nil {
		return domain.Config{}, err
	}
	return cfg, nil
}

// Default returns the embedded default configuration.
func Default() domain.Config {
	cfg, err := Parse(assets.DefaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded config is invalid: %v", err))
	}
	return cfg
}

func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, assets.DefaultConfigYAML, domain.SecureFilePermissions); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}

func hydrateDefaults(cfg domain.Config) domain.Config {
	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = "1"
	}
	if cfg.Preferences.DefaultModel == "" && len(cfg.Models) > 0 {
		cfg.Preferences.DefaultModel = cfg.Models[0].Name
	}
	if cfg.Preferences.OSName == "" {
		cfg.Preferences.OSName = domain.AutoValue
	}
	if cfg.Preferences.ShellName == "" {
		cfg.Preferences.ShellName = domain.AutoValue
	}
	if cfg.Preferences.TimeoutSeconds == 0 {
		cfg.Preferences.TimeoutSeconds = int(domain.DefaultRequestTimeout.Seconds())
	}
	if cfg.Preferences.MaxAttempts == 0 {
		cfg.Preferences.MaxAttempts = domain.DefaultMaxAttempts
	}
	if cfg.Preferences.TopP == 0 {
		cfg.Preferences.TopP = 1
	}
	if cfg.Chat.Backend == "" {
		cfg.Chat.Backend = string(domain.SessionBackendSQLite)
	}
	if cfg.Chat.HistoryLimit == 0 {
		cfg.Chat.HistoryLimit = domain.DefaultHistoryLimit
	}
	if cfg.Chat.ContextBudget == 0 {
		cfg.Chat.ContextBudget = domain.DefaultContextBudget
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = domain.DefaultMaxCacheEntries
	}
	return cfg
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
