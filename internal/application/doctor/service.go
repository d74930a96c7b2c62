// Package doctor runs environment diagnostics for the assistant.
package doctor

import (
	"context"
	"fmt"

	"github.com/doeshing/sgpt-go/internal/domain"
	"github.com/doeshing/sgpt-go/internal/ports"
)

// Service runs environment diagnostics. The function fields open the
// adapters under test with the resolved configuration; nil ones are skipped.
// RolesErr reports user role files that failed to load.
type Service struct {
	Resolve      func(context.Context) (domain.RunConfig, error)
	Roles        ports.RoleRepository
	RolesErr     error
	Backends     ports.BackendFactory
	Guard        func(domain.RunConfig) (ports.SecurityService, error)
	Cache        func(domain.RunConfig) ports.CacheRepository
	OpenSessions func(context.Context, domain.RunConfig) (ports.SessionStore, error)
	Getenv       func(string) string
}

// Run executes checks and returns a report. Only a configuration failure is
// returned as an error; every other problem becomes a failed check.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.Resolve(ctx)
	if err != nil {
		checks = append(checks, fail("Configuration", err.Error()))
		return domain.HealthReport{Checks: checks}, err
	}
	checks = append(checks,
		ok("Configuration", fmt.Sprintf("model %s, os %s, shell %s", cfg.Model.Name, cfg.OSName, cfg.ShellName)),
		s.modelCheck(cfg.Model),
	)

	switch {
	case s.RolesErr != nil:
		checks = append(checks, fail("Roles", s.RolesErr.Error()))
	case s.Roles != nil:
		checks = append(checks, ok("Roles", fmt.Sprintf("%d available", len(s.Roles.List()))))
	}
	if s.Guard != nil {
		checks = append(checks, s.guardCheck(cfg))
	}
	if s.Cache != nil {
		checks = append(checks, s.cacheCheck(cfg))
	}
	if s.OpenSessions != nil {
		checks = append(checks, s.sessionCheck(ctx, cfg))
	}

	return domain.HealthReport{Checks: checks}, nil
}

func (s *Service) modelCheck(model domain.ModelDefinition) domain.HealthCheck {
	const name = "Model"
	if s.Backends != nil {
		if _, err := s.Backends.ForModel(model); err != nil {
			return fail(name, err.Error())
		}
	}
	switch model.Kind() {
	case domain.ProviderKindHeuristic, domain.ProviderKindUnknown:
		return warn(name, fmt.Sprintf("%s answers offline from built-in heuristics", model.Name))
	case domain.ProviderKindOllama:
		return ok(name, fmt.Sprintf("%s via local ollama", model.Name))
	}
	if model.AuthEnvVar == "" {
		return warn(name, fmt.Sprintf("%s has no auth_env_var configured", model.Name))
	}
	if s.getenv(model.AuthEnvVar) == "" {
		return fail(name, fmt.Sprintf("%s is not set", model.AuthEnvVar))
	}
	return ok(name, fmt.Sprintf("%s (%s) with key from %s", model.Name, model.Kind(), model.AuthEnvVar))
}

func (s *Service) guardCheck(cfg domain.RunConfig) domain.HealthCheck {
	const name = "Guardrail"
	if !cfg.Guard.Enabled {
		return warn(name, "disabled")
	}
	guard, err := s.Guard(cfg)
	if err != nil {
		return fail(name, err.Error())
	}
	if _, err := guard.Evaluate("ls"); err != nil {
		return fail(name, err.Error())
	}
	return ok(name, "rules loaded")
}

func (s *Service) cacheCheck(cfg domain.RunConfig) domain.HealthCheck {
	const name = "Cache"
	if !cfg.Caching {
		return warn(name, "disabled")
	}
	store := s.Cache(cfg)
	entries, err := store.Entries()
	if err != nil {
		return fail(name, err.Error())
	}
	return ok(name, fmt.Sprintf("%d entries in %s", len(entries), store.Dir()))
}

func (s *Service) sessionCheck(ctx context.Context, cfg domain.RunConfig) domain.HealthCheck {
	const name = "Chat sessions"
	store, err := s.OpenSessions(ctx, cfg)
	if err != nil {
		return fail(name, err.Error())
	}
	defer store.Close()
	sessions, err := store.List(ctx)
	if err != nil {
		return fail(name, err.Error())
	}
	return ok(name, fmt.Sprintf("%s backend, %d sessions", cfg.Session.Backend, len(sessions)))
}

func (s *Service) getenv(key string) string {
	if s.Getenv == nil {
		return ""
	}
	return s.Getenv(key)
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
