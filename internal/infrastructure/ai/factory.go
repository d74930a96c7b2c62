package ai

import (
	"fmt"
	"net/http"

	"github.com/doeshing/sgpt-go/internal/domain"
	"github.com/doeshing/sgpt-go/internal/ports"
)

// Factory creates backends from model definitions. It shares one HTTP
// client across backends; request deadlines come from the Client's idle
// watchdog, so the HTTP client itself has no overall timeout.
type Factory struct {
	httpClient *http.Client
}

// NewFactory creates a factory. A nil client selects a default one.
func NewFactory(client *http.Client) *Factory {
	if client == nil {
		client = &http.Client{}
	}
	return &Factory{httpClient: client}
}

// ForModel picks the backend for the model's provider kind.
func (f *Factory) ForModel(model domain.ModelDefinition) (ports.Backend, error) {
	switch kind := model.Kind(); kind {
	case domain.ProviderKindOpenAI:
		return newHTTPBackend("openai", model, f.httpClient, openaiAdapter()), nil
	case domain.ProviderKindOllama:
		return newHTTPBackend("ollama", model, f.httpClient, ollamaAdapter()), nil
	case domain.ProviderKindAnthropic:
		return newHTTPBackend("anthropic", model, f.httpClient, anthropicAdapter()), nil
	case domain.ProviderKindGemini:
		return newGeminiBackend(model, f.httpClient), nil
	case domain.ProviderKindHeuristic, domain.ProviderKindUnknown:
		return newHeuristicBackend(model), nil
	default:
		return nil, &domain.ConfigError{Key: "models." + model.Name + ".provider", Value: string(kind), Err: fmt.Errorf("unsupported provider")}
	}
}

var _ ports.BackendFactory = (*Factory)(nil)
