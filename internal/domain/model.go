// Package domain defines core entities and value objects for sgpt.
//
// The domain layer is independent of infrastructure concerns: configuration,
// roles, prompt requests, cache entries, session turns, command candidates and
// the error taxonomy shared by every adapter.
package domain

import "strings"

// ProviderKind identifies which backend implementation serves a model.
type ProviderKind string

const (
	ProviderKindOpenAI    ProviderKind = "openai"
	ProviderKindAnthropic ProviderKind = "anthropic"
	ProviderKindOllama    ProviderKind = "ollama"
	ProviderKindGemini    ProviderKind = "gemini"
	ProviderKindHeuristic ProviderKind = "heuristic"
	ProviderKindUnknown   ProviderKind = ""
)

// ModelDefinition describes an LLM backend declared in the config file.
type ModelDefinition struct {
	Name       string       `yaml:"name"`
	Provider   ProviderKind `yaml:"provider,omitempty"`
	Endpoint   string       `yaml:"endpoint,omitempty"`
	AuthEnvVar string       `yaml:"auth_env_var,omitempty"`
	OrgEnvVar  string       `yaml:"org_env_var,omitempty"`
	ModelID    string       `yaml:"model_id"`
	MaxTokens  int          `yaml:"max_tokens,omitempty"`
}

// Kind returns the explicit provider, falling back to endpoint/name inference.
func (m ModelDefinition) Kind() ProviderKind {
	if m.Provider != ProviderKindUnknown {
		return ProviderKind(strings.ToLower(string(m.Provider)))
	}
	name := strings.ToLower(m.Name)
	switch {
	case strings.Contains(m.Endpoint, "anthropic.com"):
		return ProviderKindAnthropic
	case strings.Contains(m.Endpoint, "generativelanguage.googleapis.com"), strings.HasPrefix(strings.ToLower(m.ModelID), "gemini"):
		return ProviderKindGemini
	case strings.Contains(name, "ollama"), strings.Contains(m.Endpoint, "11434"):
		return ProviderKindOllama
	case strings.Contains(m.Endpoint, "openai.com"), m.Endpoint != "":
		return ProviderKindOpenAI
	default:
		return ProviderKindUnknown
	}
}

// Message follows the role/content pair required by most chat APIs.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat message roles.
const (
	MessageRoleSystem    = "system"
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)
