package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/sgpt-go/internal/domain"
)

type staticProvider struct {
	cfg domain.Config
	err error
}

func (s staticProvider) Load(context.Context) (domain.Config, error) { return s.cfg, s.err }

func envProbe(goos string, env map[string]string) HostProbe {
	return HostProbe{
		GOOS:   goos,
		Getenv: func(key string) string { return env[key] },
		ReadFile: func(path string) ([]byte, error) {
			if path == "/etc/os-release" {
				return []byte("NAME=\"Debian GNU/Linux\"\nPRETTY_NAME=\"Debian GNU/Linux 12 (bookworm)\"\n"), nil
			}
			return nil, os.ErrNotExist
		},
	}
}

func TestResolveDefaults(t *testing.T) {
	r := NewResolver(staticProvider{cfg: Default()}, "/state", envProbe("linux", map[string]string{"SHELL": "/bin/zsh"}))

	run, err := r.Resolve(context.Background(), Overrides{})
	require.NoError(t, err)

	assert.Equal(t, "Linux/Debian GNU/Linux 12 (bookworm)", run.OSName)
	assert.Equal(t, "zsh", run.ShellName)
	assert.Equal(t, "/state", run.StateDir)
	assert.Equal(t, "gpt-4o-mini", run.Model.Name)
	assert.True(t, run.ShellInteraction)
	assert.True(t, run.PrettifyMarkdown)
	assert.False(t, run.DefaultExecute)
	assert.True(t, run.Caching)
	assert.Equal(t, 60*time.Second, run.RequestTimeout)
	assert.Equal(t, domain.DefaultMaxAttempts, run.MaxAttempts)
	assert.Equal(t, 1024, run.Params.MaxTokens)
	assert.Equal(t, domain.SessionBackendSQLite, run.Session.Backend)
}

func TestResolveEnvironmentOverlay(t *testing.T) {
	env := map[string]string{
		EnvShellInteraction: "false",
		EnvPrettify:         "0",
		EnvDefaultExecute:   "true",
		EnvOSName:           "Plan9",
		EnvShellName:        "rc",
		EnvDefaultModel:     "offline",
		EnvRequestTimeout:   "5",
		EnvMaxAttempts:      "7",
		EnvChatCacheLength:  "4",
		EnvTemperature:      "0.7",
	}
	r := NewResolver(staticProvider{cfg: Default()}, "/state", envProbe("linux", env))

	run, err := r.Resolve(context.Background(), Overrides{})
	require.NoError(t, err)

	assert.False(t, run.ShellInteraction)
	assert.False(t, run.PrettifyMarkdown)
	assert.True(t, run.DefaultExecute)
	assert.Equal(t, "Plan9", run.OSName)
	assert.Equal(t, "rc", run.ShellName)
	assert.Equal(t, "offline", run.Model.Name)
	assert.Equal(t, 5*time.Second, run.RequestTimeout)
	assert.Equal(t, 7, run.MaxAttempts)
	assert.Equal(t, 4, run.HistoryLimit)
	assert.InDelta(t, 0.7, run.Params.Temperature, 1e-9)
}

func TestResolveFlagsWinOverEnvironment(t *testing.T) {
	env := map[string]string{EnvPrettify: "true", EnvDefaultModel: "offline"}
	r := NewResolver(staticProvider{cfg: Default()}, "/state", envProbe("darwin", env))
	off := false
	temp := 1.5

	run, err := r.Resolve(context.Background(), Overrides{Model: "claude-sonnet", Prettify: &off, Temperature: &temp})
	require.NoError(t, err)

	assert.False(t, run.PrettifyMarkdown)
	assert.Equal(t, "claude-sonnet", run.Model.Name)
	assert.InDelta(t, 1.5, run.Params.Temperature, 1e-9)
	assert.Equal(t, "Darwin/MacOS", run.OSName)
}

func TestResolveRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		key  string
	}{
		{name: "boolean", env: map[string]string{EnvShellInteraction: "maybe"}, key: EnvShellInteraction},
		{name: "integer", env: map[string]string{EnvRequestTimeout: "soon"}, key: EnvRequestTimeout},
		{name: "float", env: map[string]string{EnvTopP: "high"}, key: EnvTopP},
		{name: "range", env: map[string]string{EnvTopP: "3"}, key: EnvTopP},
		{name: "attempts", env: map[string]string{EnvMaxAttempts: "0"}, key: EnvMaxAttempts},
		{name: "unknown model", env: map[string]string{EnvDefaultModel: "nope"}, key: "model"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(staticProvider{cfg: Default()}, "/state", envProbe("linux", tt.env))
			_, err := r.Resolve(context.Background(), Overrides{})
			var cfgErr *domain.ConfigError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.key, cfgErr.Key)
		})
	}
}

func TestResolveRedisRequiresURL(t *testing.T) {
	cfg := Default()
	cfg.Chat.Backend = "redis"
	r := NewResolver(staticProvider{cfg: cfg}, "/state", envProbe("linux", nil))
	_, err := r.Resolve(context.Background(), Overrides{})
	require.True(t, domain.IsConfigError(err))

	cfg.Chat.RedisURL = "redis://localhost:6379/0"
	cfg.Chat.RedisTTLHours = 2
	r = NewResolver(staticProvider{cfg: cfg}, "/state", envProbe("linux", nil))
	run, err := r.Resolve(context.Background(), Overrides{})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, run.Session.RedisTTL)
}

func TestResolveWrapsLoaderFailure(t *testing.T) {
	r := NewResolver(staticProvider{err: errors.New("disk gone")}, "/state", envProbe("linux", nil))
	_, err := r.Resolve(context.Background(), Overrides{})
	assert.True(t, domain.IsConfigError(err))
}

func TestDetectShell(t *testing.T) {
	tests := []struct {
		name string
		goos string
		env  map[string]string
		want string
	}{
		{name: "bash", goos: "linux", env: map[string]string{"SHELL": "/usr/bin/bash"}, want: "bash"},
		{name: "fallback", goos: "linux", want: "sh"},
		{name: "powershell", goos: "windows", env: map[string]string{"PSModulePath": `a;b;c`}, want: "powershell.exe"},
		{name: "cmd", goos: "windows", env: map[string]string{"PSModulePath": `a`}, want: "cmd.exe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectShell(envProbe(tt.goos, tt.env)))
		})
	}
}

func TestDetectOS(t *testing.T) {
	assert.Equal(t, "Windows", DetectOS(envProbe("windows", nil)))
	assert.Equal(t, "Freebsd", DetectOS(envProbe("freebsd", nil)))

	probe := envProbe("linux", nil)
	probe.ReadFile = func(string) ([]byte, error) { return nil, os.ErrNotExist }
	assert.Equal(t, "Linux", DetectOS(probe))
}

func TestFileLoaderWritesDefaultOnFirstRun(t *testing.T) {
	t.Setenv("SGPT_CONFIG", "")
	dir := t.TempDir()
	loader := NewFileLoader("", dir)

	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cfg.Preferences.DefaultModel)

	info, err := os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(domain.SecureFilePermissions), info.Mode().Perm())
}

func TestFileLoaderRejectsInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("models: [name: {"), 0o600))

	_, err := NewFileLoader(path, dir).Load(context.Background())
	assert.True(t, domain.IsConfigError(err))
}

func TestParseHydratesOmittedValues(t *testing.T) {
	cfg, err := Parse([]byte("models:\n  - name: local\n    model_id: llama\n"))
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Preferences.DefaultModel)
	assert.Equal(t, domain.AutoValue, cfg.Preferences.OSName)
	assert.Equal(t, domain.DefaultHistoryLimit, cfg.Chat.HistoryLimit)
	assert.Equal(t, "sqlite", cfg.Chat.Backend)
}
