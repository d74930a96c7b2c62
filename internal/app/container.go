package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/doeshing/sgpt-go/internal/application/doctor"
	"github.com/doeshing/sgpt-go/internal/application/prompt"
	"github.com/doeshing/sgpt-go/internal/application/query"
	"github.com/doeshing/sgpt-go/internal/domain"
	"github.com/doeshing/sgpt-go/internal/infrastructure/ai"
	"github.com/doeshing/sgpt-go/internal/infrastructure/cache"
	"github.com/doeshing/sgpt-go/internal/infrastructure/config"
	"github.com/doeshing/sgpt-go/internal/infrastructure/roles"
	"github.com/doeshing/sgpt-go/internal/infrastructure/security"
	"github.com/doeshing/sgpt-go/internal/infrastructure/session"
	"github.com/doeshing/sgpt-go/internal/pkg/filesystem"
	"github.com/doeshing/sgpt-go/internal/pkg/logger"
	"github.com/doeshing/sgpt-go/internal/ports"
)

// Options selects the state directory and logging of one process.
type Options struct {
	StateDir   string
	ConfigPath string
	Verbose    bool
}

// Container holds the adapters that do not depend on per-invocation flags.
// RolesErr is set when user role files failed to load; Roles then holds
// only the built-in roles.
type Container struct {
	StateDir     string
	RunID        string
	Logger       *logger.ZapLogger
	ConfigLoader *config.FileLoader
	Resolver     *config.Resolver
	Roles        *roles.Registry
	RolesErr     error
	Backends     ports.BackendFactory
}

// BuildContainer constructs the dependency graph.
func BuildContainer(opts Options) (*Container, error) {
	stateDir := opts.StateDir
	if stateDir == "" {
		stateDir = filesystem.StateDir()
	}

	runID := uuid.NewString()
	log := logger.New(opts.Verbose).Named("sgpt", map[string]interface{}{"run": runID[:8]})

	loader := config.NewFileLoader(opts.ConfigPath, stateDir)
	rolesDir := filepath.Join(stateDir, "roles")
	registry, rolesErr := roles.NewRegistry(rolesDir)
	if rolesErr != nil {
		log.Warn("user roles not loaded", map[string]interface{}{"error": rolesErr.Error()})
		var err error
		if registry, err = roles.NewBuiltinRegistry(rolesDir); err != nil {
			return nil, err
		}
	}

	return &Container{
		StateDir:     stateDir,
		RunID:        runID,
		Logger:       log,
		ConfigLoader: loader,
		Resolver:     config.NewResolver(loader, stateDir, config.SystemProbe()),
		Roles:        registry,
		RolesErr:     rolesErr,
		Backends:     ai.NewFactory(http.DefaultClient),
	}, nil
}

// Runtime is the graph of one invocation once its configuration is known.
type Runtime struct {
	Config   domain.RunConfig
	Query    *query.Service
	Cache    *cache.FileCache
	Sessions ports.SessionStore
	Guard    ports.SecurityService
}

// CacheDir is where cached responses live.
func (c *Container) CacheDir() string {
	return filepath.Join(c.StateDir, "cache", "responses")
}

// NewCache opens the response cache under the state directory.
func (c *Container) NewCache(cfg domain.RunConfig) *cache.FileCache {
	return cache.NewFileCache(c.CacheDir(), cfg.CacheMaxEntries, cfg.CacheTTL)
}

// OpenSessions opens the configured chat session store.
func (c *Container) OpenSessions(ctx context.Context, cfg domain.RunConfig) (ports.SessionStore, error) {
	store, err := session.Open(ctx, cfg.Session, c.StateDir)
	if err != nil {
		return nil, fmt.Errorf("open chat sessions: %w", err)
	}
	return store, nil
}

// Runtime resolves configuration with ov and wires the query service. The
// session store is opened only when withSessions is set.
func (c *Container) Runtime(ctx context.Context, ov config.Overrides, withSessions bool) (*Runtime, error) {
	cfg, err := c.Resolver.Resolve(ctx, ov)
	if err != nil {
		return nil, err
	}

	backend, err := c.Backends.ForModel(cfg.Model)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("configuration resolved", map[string]interface{}{
		"model":   cfg.Model.Name,
		"backend": backend.Name(),
		"os":      cfg.OSName,
		"shell":   cfg.ShellName,
		"cache":   cfg.Caching,
	})

	rt := &Runtime{Config: cfg, Cache: c.NewCache(cfg)}
	if cfg.Guard.Enabled {
		guard, err := security.NewGuardrail(cfg.Guard.RulesFile, cfg.ShellName)
		if err != nil {
			return nil, err
		}
		rt.Guard = guard
	}
	if withSessions {
		rt.Sessions, err = c.OpenSessions(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	rt.Query = &query.Service{
		Config:   cfg,
		Roles:    c.Roles,
		Builder:  prompt.NewBuilder(),
		Cache:    rt.Cache,
		Client:   ai.NewClient(backend, ai.ClientOptions{MaxAttempts: cfg.MaxAttempts, IdleTimeout: cfg.RequestTimeout}, c.Logger),
		Sessions: rt.Sessions,
		Logger:   c.Logger,
	}
	return rt, nil
}

// Doctor builds the diagnostics service over the container's adapters.
func (c *Container) Doctor() *doctor.Service {
	return &doctor.Service{
		Resolve: func(ctx context.Context) (domain.RunConfig, error) {
			return c.Resolver.Resolve(ctx, config.Overrides{})
		},
		Roles:    c.Roles,
		RolesErr: c.RolesErr,
		Backends: c.Backends,
		Guard: func(cfg domain.RunConfig) (ports.SecurityService, error) {
			return security.NewGuardrail(cfg.Guard.RulesFile, cfg.ShellName)
		},
		Cache: func(cfg domain.RunConfig) ports.CacheRepository {
			return c.NewCache(cfg)
		},
		OpenSessions: c.OpenSessions,
		Getenv:       os.Getenv,
	}
}

// Close releases the session store.
func (r *Runtime) Close() error {
	if r.Sessions == nil {
		return nil
	}
	return r.Sessions.Close()
}

// Close flushes the logger. Sync fails on terminals (EINVAL), which is
// ignored.
func (c *Container) Close() {
	_ = c.Logger.Sync()
}
