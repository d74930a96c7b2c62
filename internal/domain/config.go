package domain

import (
	"fmt"
	"time"
)

// AutoValue asks the resolver to detect a setting from the live host.
const AutoValue = "auto"

// Config mirrors <state dir>/config.yaml.
type Config struct {
	ConfigFormatVersion string            `yaml:"config_format_version"`
	Preferences         Preferences       `yaml:"preferences"`
	Models              []ModelDefinition `yaml:"models"`
	Chat                ChatSettings      `yaml:"chat"`
	Cache               CacheSettings     `yaml:"cache"`
	Security            SecuritySettings  `yaml:"security"`
}

// Preferences captures user level toggles.
type Preferences struct {
	DefaultModel     string  `yaml:"default_model"`
	ShellInteraction bool    `yaml:"shell_interaction"`
	PrettifyMarkdown bool    `yaml:"prettify_markdown"`
	DefaultExecute   bool    `yaml:"default_execute_shell_cmd"`
	OSName           string  `yaml:"os_name"`
	ShellName        string  `yaml:"shell_name"`
	Temperature      float64 `yaml:"temperature"`
	TopP             float64 `yaml:"top_p"`
	TimeoutSeconds   int     `yaml:"timeout"`
	MaxAttempts      int     `yaml:"max_attempts"`
}

// ChatSettings controls session persistence and prompt history.
type ChatSettings struct {
	Backend       string `yaml:"backend"`
	RedisURL      string `yaml:"redis_url,omitempty"`
	RedisTTLHours int    `yaml:"redis_ttl_hours,omitempty"`
	HistoryLimit  int    `yaml:"history_limit"`
	ContextBudget int    `yaml:"context_budget"`
}

// CacheSettings controls the response cache.
type CacheSettings struct {
	Enabled    bool   `yaml:"enabled"`
	MaxEntries int    `yaml:"max_entries"`
	TTL        string `yaml:"ttl,omitempty"`
}

// SecuritySettings defines guardrail behavior.
type SecuritySettings struct {
	Enabled   bool   `yaml:"enabled"`
	RulesFile string `yaml:"rules_file,omitempty"`
}

// FindModelByName searches for a model by its name.
func (c *Config) FindModelByName(name string) (ModelDefinition, bool) {
	for _, model := range c.Models {
		if model.Name == name {
			return model, true
		}
	}
	return ModelDefinition{}, false
}

// ValidateConsistency checks the internal consistency of the configuration.
func (c *Config) ValidateConsistency() error {
	seen := make(map[string]bool, len(c.Models))
	for _, model := range c.Models {
		if model.Name == "" {
			return fmt.Errorf("model without a name")
		}
		if seen[model.Name] {
			return fmt.Errorf("model %s declared twice", model.Name)
		}
		seen[model.Name] = true
	}
	if c.Preferences.DefaultModel != "" && !seen[c.Preferences.DefaultModel] {
		return fmt.Errorf("default model %s does not exist in models list", c.Preferences.DefaultModel)
	}
	return nil
}

// SamplingParams are the generation parameters forwarded to a backend.
type SamplingParams struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	MaxTokens   int     `json:"max_tokens"`
}

// SessionBackend names a Chat Session Store implementation.
type SessionBackend string

const (
	SessionBackendSQLite SessionBackend = "sqlite"
	SessionBackendRedis  SessionBackend = "redis"
)

// SessionSettings selects and parameterises the session store.
type SessionSettings struct {
	Backend  SessionBackend
	RedisURL string
	RedisTTL time.Duration
}

// RunConfig is the resolved configuration of one invocation. It is built once
// by the resolver and passed by value; OSName and ShellName never hold "auto".
type RunConfig struct {
	ShellInteraction bool
	PrettifyMarkdown bool
	DefaultExecute   bool
	OSName           string
	ShellName        string
	StateDir         string

	Model  ModelDefinition
	Params SamplingParams

	Caching         bool
	CacheMaxEntries int
	CacheTTL        time.Duration

	RequestTimeout time.Duration
	MaxAttempts    int

	HistoryLimit  int
	ContextBudget int

	Session SessionSettings
	Guard   SecuritySettings
}
