package config

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/doeshing/sgpt-go/internal/domain"
	"github.com/doeshing/sgpt-go/internal/pkg/filesystem"
	"github.com/doeshing/sgpt-go/internal/ports"
)

// Environment keys recognised by the resolver.
const (
	EnvShellInteraction = "SHELL_INTERACTION"
	EnvPrettify         = "PRETTIFY_MARKDOWN"
	EnvDefaultExecute   = "DEFAULT_EXECUTE_SHELL_CMD"
	EnvCache            = "CACHE"
	EnvOSName           = "OS_NAME"
	EnvShellName        = "SHELL_NAME"
	EnvDefaultModel     = "DEFAULT_MODEL"
	EnvRequestTimeout   = "REQUEST_TIMEOUT"
	EnvMaxAttempts      = "MAX_ATTEMPTS"
	EnvChatCacheLength  = "CHAT_CACHE_LENGTH"
	EnvCacheLength      = "CACHE_LENGTH"
	EnvContextBudget    = "CONTEXT_BUDGET"
	EnvTemperature      = "TEMPERATURE"
	EnvTopP             = "TOP_P"
)

// Overrides carries command-line flags. Nil pointers and empty strings leave
// the file and environment values in place.
type Overrides struct {
	Model       string
	Temperature *float64
	TopP        *float64
	Prettify    *bool
	Interaction *bool
	Cache       *bool
}

// HostProbe reads facts about the live host. Tests substitute their own.
type HostProbe struct {
	GOOS     string
	Getenv   func(string) string
	ReadFile func(string) ([]byte, error)
}

// SystemProbe inspects the running process.
func SystemProbe() HostProbe {
	return HostProbe{GOOS: runtime.GOOS, Getenv: os.Getenv, ReadFile: os.ReadFile}
}

// Resolver merges file, environment and flags into a domain.RunConfig.
type Resolver struct {
	provider ports.ConfigProvider
	stateDir string
	probe    HostProbe
}

// NewResolver builds a resolver over provider.
func NewResolver(provider ports.ConfigProvider, stateDir string, probe HostProbe) *Resolver {
	if probe.Getenv == nil {
		probe.Getenv = func(string) string { return "" }
	}
	if probe.ReadFile == nil {
		probe.ReadFile = os.ReadFile
	}
	return &Resolver{provider: provider, stateDir: stateDir, probe: probe}
}

// Resolve produces the configuration of one invocation. It fails only with
// *domain.ConfigError.
func (r *Resolver) Resolve(ctx context.Context, ov Overrides) (domain.RunConfig, error) {
	cfg, err := r.provider.Load(ctx)
	if err != nil {
		if domain.IsConfigError(err) {
			return domain.RunConfig{}, err
		}
		return domain.RunConfig{}, &domain.ConfigError{Key: "config", Err: err}
	}
	env := envReader{get: r.probe.Getenv}
	prefs := cfg.Preferences

	run := domain.RunConfig{
		ShellInteraction: env.boolean(EnvShellInteraction, prefs.ShellInteraction),
		PrettifyMarkdown: env.boolean(EnvPrettify, prefs.PrettifyMarkdown),
		DefaultExecute:   env.boolean(EnvDefaultExecute, prefs.DefaultExecute),
		OSName:           env.str(EnvOSName, prefs.OSName),
		ShellName:        env.str(EnvShellName, prefs.ShellName),
		StateDir:         r.stateDir,
		Caching:          env.boolean(EnvCache, cfg.Cache.Enabled),
		CacheMaxEntries:  env.integer(EnvCacheLength, cfg.Cache.MaxEntries),
		RequestTimeout:   time.Duration(env.integer(EnvRequestTimeout, prefs.TimeoutSeconds)) * time.Second,
		MaxAttempts:      env.integer(EnvMaxAttempts, prefs.MaxAttempts),
		HistoryLimit:     env.integer(EnvChatCacheLength, cfg.Chat.HistoryLimit),
		ContextBudget:    env.integer(EnvContextBudget, cfg.Chat.ContextBudget),
		Params: domain.SamplingParams{
			Temperature: env.float(EnvTemperature, prefs.Temperature),
			TopP:        env.float(EnvTopP, prefs.TopP),
		},
		Guard: cfg.Security,
	}
	if env.err != nil {
		return domain.RunConfig{}, env.err
	}

	applyOverrides(&run, ov)

	modelName := env.str(EnvDefaultModel, prefs.DefaultModel)
	if ov.Model != "" {
		modelName = ov.Model
	}
	model, ok := cfg.FindModelByName(modelName)
	if !ok {
		return domain.RunConfig{}, &domain.ConfigError{Key: "model", Value: modelName, Err: fmt.Errorf("not declared in %d configured models", len(cfg.Models))}
	}
	run.Model = model
	run.Params.MaxTokens = model.MaxTokens
	if run.Params.MaxTokens <= 0 {
		run.Params.MaxTokens = domain.DefaultMaxTokens
	}

	if cfg.Cache.TTL != "" {
		ttl, err := time.ParseDuration(cfg.Cache.TTL)
		if err != nil {
			return domain.RunConfig{}, &domain.ConfigError{Key: "cache.ttl", Value: cfg.Cache.TTL, Err: err}
		}
		run.CacheTTL = ttl
	}

	session, err := resolveSession(cfg.Chat)
	if err != nil {
		return domain.RunConfig{}, err
	}
	run.Session = session

	if run.Guard.RulesFile != "" {
		run.Guard.RulesFile = filesystem.ExpandPath(run.Guard.RulesFile)
	}

	if err := validate(run); err != nil {
		return domain.RunConfig{}, err
	}

	if strings.EqualFold(run.OSName, domain.AutoValue) || run.OSName == "" {
		run.OSName = DetectOS(r.probe)
	}
	if strings.EqualFold(run.ShellName, domain.AutoValue) || run.ShellName == "" {
		run.ShellName = DetectShell(r.probe)
	}
	return run, nil
}

func applyOverrides(run *domain.RunConfig, ov Overrides) {
	if ov.Temperature != nil {
		run.Params.Temperature = *ov.Temperature
	}
	if ov.TopP != nil {
		run.Params.TopP = *ov.TopP
	}
	if ov.Prettify != nil {
		run.PrettifyMarkdown = *ov.Prettify
	}
	if ov.Interaction != nil {
		run.ShellInteraction = *ov.Interaction
	}
	if ov.Cache != nil {
		run.Caching = *ov.Cache
	}
}

func resolveSession(chat domain.ChatSettings) (domain.SessionSettings, error) {
	settings := domain.SessionSettings{
		Backend:  domain.SessionBackend(strings.ToLower(chat.Backend)),
		RedisURL: chat.RedisURL,
		RedisTTL: domain.DefaultRedisSessionTTL,
	}
	if chat.RedisTTLHours > 0 {
		settings.RedisTTL = time.Duration(chat.RedisTTLHours) * time.Hour
	}
	switch settings.Backend {
	case domain.SessionBackendSQLite:
	case domain.SessionBackendRedis:
		if settings.RedisURL == "" {
			return settings, &domain.ConfigError{Key: "chat.redis_url", Err: fmt.Errorf("required for the redis backend")}
		}
	default:
		return settings, &domain.ConfigError{Key: "chat.backend", Value: chat.Backend, Err: fmt.Errorf("expected sqlite or redis")}
	}
	return settings, nil
}

func validate(run domain.RunConfig) error {
	switch {
	case run.Params.Temperature < 0 || run.Params.Temperature > 2:
		return &domain.ConfigError{Key: EnvTemperature, Value: strconv.FormatFloat(run.Params.Temperature, 'f', -1, 64), Err: fmt.Errorf("must be within [0, 2]")}
	case run.Params.TopP < 0 || run.Params.TopP > 1:
		return &domain.ConfigError{Key: EnvTopP, Value: strconv.FormatFloat(run.Params.TopP, 'f', -1, 64), Err: fmt.Errorf("must be within [0, 1]")}
	case run.RequestTimeout <= 0:
		return &domain.ConfigError{Key: EnvRequestTimeout, Value: run.RequestTimeout.String(), Err: fmt.Errorf("must be positive")}
	case run.MaxAttempts < 1:
		return &domain.ConfigError{Key: EnvMaxAttempts, Value: strconv.Itoa(run.MaxAttempts), Err: fmt.Errorf("must be at least 1")}
	case run.HistoryLimit < 0:
		return &domain.ConfigError{Key: EnvChatCacheLength, Value: strconv.Itoa(run.HistoryLimit), Err: fmt.Errorf("must not be negative")}
	case run.ContextBudget < 0:
		return &domain.ConfigError{Key: EnvContextBudget, Value: strconv.Itoa(run.ContextBudget), Err: fmt.Errorf("must not be negative")}
	case run.CacheMaxEntries < 0:
		return &domain.ConfigError{Key: EnvCacheLength, Value: strconv.Itoa(run.CacheMaxEntries), Err: fmt.Errorf("must not be negative")}
	}
	return nil
}

// envReader overlays environment values, keeping the first parse error.
type envReader struct {
	get func(string) string
	err error
}

func (e *envReader) lookup(key string) (string, bool) {
	raw := strings.TrimSpace(e.get(key))
	return raw, raw != ""
}

func (e *envReader) fail(key, raw string, err error) {
	if e.err == nil {
		e.err = &domain.ConfigError{Key: key, Value: raw, Err: err}
	}
}

func (e *envReader) str(key, fallback string) string {
	if raw, ok := e.lookup(key); ok {
		return raw
	}
	return fallback
}

func (e *envReader) boolean(key string, fallback bool) bool {
	raw, ok := e.lookup(key)
	if !ok {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		e.fail(key, raw, fmt.Errorf("expected a boolean"))
		return fallback
	}
	return v
}

func (e *envReader) integer(key string, fallback int) int {
	raw, ok := e.lookup(key)
	if !ok {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		e.fail(key, raw, fmt.Errorf("expected an integer"))
		return fallback
	}
	return v
}

func (e *envReader) float(key string, fallback float64) float64 {
	raw, ok := e.lookup(key)
	if !ok {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		e.fail(key, raw, fmt.Errorf("expected a number"))
		return fallback
	}
	return v
}

// DetectOS names the host operating system for prompts.
func DetectOS(probe HostProbe) string {
	switch probe.GOOS {
	case "linux":
		if name := prettyName(probe); name != "" {
			return "Linux/" + name
		}
		return "Linux"
	case "darwin":
		return "Darwin/MacOS"
	case "windows":
		return "Windows"
	case "":
		return "Unknown"
	default:
		return strings.ToUpper(probe.GOOS[:1]) + probe.GOOS[1:]
	}
}

func prettyName(probe HostProbe) string {
	data, err := probe.ReadFile("/etc/os-release")
	if err != nil {
		return ""
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if value, ok := strings.CutPrefix(line, "PRETTY_NAME="); ok {
			return strings.Trim(value, `"'`)
		}
	}
	return ""
}

// DetectShell names the user's shell. On Windows PowerShell is recognised by
// the module path it exports; elsewhere $SHELL decides, falling back to sh.
func DetectShell(probe HostProbe) string {
	if probe.GOOS == "windows" {
		if len(strings.Split(probe.Getenv("PSModulePath"), ";")) >= 3 {
			return "powershell.exe"
		}
		return "cmd.exe"
	}
	if shell := probe.Getenv("SHELL"); shell != "" {
		return filepath.Base(shell)
	}
	return "sh"
}
