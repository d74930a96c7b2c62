package doctor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/sgpt-go/internal/domain"
	"github.com/doeshing/sgpt-go/internal/ports"
)

type stubGuard struct{ err error }

func (g stubGuard) Evaluate(string) (domain.RiskAssessment, error) {
	return domain.RiskAssessment{Level: domain.RiskSafe}, g.err
}

func statusOf(report domain.HealthReport, name string) domain.HealthStatus {
	for _, check := range report.Checks {
		if check.Name == name {
			return check.Status
		}
	}
	return ""
}

func baseConfig(model domain.ModelDefinition) domain.RunConfig {
	return domain.RunConfig{
		Model:   model,
		OSName:  "Linux",
		Guard:   domain.SecuritySettings{Enabled: true},
		Caching: false,
	}
}

func TestModelCredentials(t *testing.T) {
	remote := domain.ModelDefinition{Name: "gpt", Provider: domain.ProviderKindOpenAI, AuthEnvVar: "OPENAI_API_KEY"}
	tests := []struct {
		name  string
		model domain.ModelDefinition
		env   map[string]string
		want  domain.HealthStatus
	}{
		{name: "key present", model: remote, env: map[string]string{"OPENAI_API_KEY": "sk"}, want: domain.HealthOK},
		{name: "key missing", model: remote, want: domain.HealthError},
		{name: "offline model", model: domain.ModelDefinition{Name: "offline", Provider: domain.ProviderKindHeuristic}, want: domain.HealthWarn},
		{name: "ollama needs no key", model: domain.ModelDefinition{Name: "ollama", Provider: domain.ProviderKindOllama}, want: domain.HealthOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &Service{
				Resolve: func(context.Context) (domain.RunConfig, error) { return baseConfig(tt.model), nil },
				Getenv:  func(k string) string { return tt.env[k] },
			}
			report, err := svc.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, statusOf(report, "Model"))
		})
	}
}

func TestConfigurationFailureStopsChecks(t *testing.T) {
	cfgErr := &domain.ConfigError{Key: "model", Value: "nope"}
	svc := &Service{
		Resolve: func(context.Context) (domain.RunConfig, error) { return domain.RunConfig{}, cfgErr },
	}
	report, err := svc.Run(context.Background())
	assert.ErrorIs(t, err, cfgErr)
	require.Len(t, report.Checks, 1)
	assert.False(t, report.Healthy())
}

func TestGuardAndCacheChecks(t *testing.T) {
	model := domain.ModelDefinition{Name: "offline", Provider: domain.ProviderKindHeuristic}

	svc := &Service{
		Resolve: func(context.Context) (domain.RunConfig, error) { return baseConfig(model), nil },
		Guard: func(domain.RunConfig) (ports.SecurityService, error) {
			return nil, errors.New("bad rules file")
		},
		Cache: func(domain.RunConfig) ports.CacheRepository { return nil },
	}
	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.HealthError, statusOf(report, "Guardrail"))
	assert.Equal(t, domain.HealthWarn, statusOf(report, "Cache"))
	assert.False(t, report.Healthy())

	svc.Guard = func(domain.RunConfig) (ports.SecurityService, error) { return stubGuard{}, nil }
	report, err = svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.HealthOK, statusOf(report, "Guardrail"))
	assert.True(t, report.Healthy())
}

func TestBrokenRoleFilesFailRolesCheck(t *testing.T) {
	model := domain.ModelDefinition{Name: "offline", Provider: domain.ProviderKindHeuristic}
	svc := &Service{
		Resolve:  func(context.Context) (domain.RunConfig, error) { return baseConfig(model), nil },
		RolesErr: &domain.ConfigError{Key: "roles/bad.yaml", Err: errors.New("yaml: line 1")},
	}
	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.HealthError, statusOf(report, "Roles"))
	assert.False(t, report.Healthy())
}
