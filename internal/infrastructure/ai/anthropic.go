package ai

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/doeshing/sgpt-go/internal/domain"
)

const (
	anthropicEndpoint = "https://api.anthropic.com/v1/messages"
	anthropicVersion  = "2023-06-01"
)

func anthropicAdapter() providerAdapter {
	return providerAdapter{
		defaultEndpoint: anthropicEndpoint,
		buildRequest:    buildAnthropicRequest,
		setHeaders:      setAnthropicHeaders,
		parseEvent:      parseAnthropicEvent,
	}
}

type anthropicRequest struct {
	Model       string           `json:"model"`
	MaxTokens   int              `json:"max_tokens"`
	System      string           `json:"system,omitempty"`
	Messages    []domain.Message `json:"messages"`
	Temperature float64          `json:"temperature"`
	TopP        float64          `json:"top_p"`
	Stream      bool             `json:"stream"`
}

func buildAnthropicRequest(req domain.PromptRequest) ([]byte, error) {
	return json.Marshal(anthropicRequest{
		Model:       defaultString(req.Model.ModelID, "claude-3-5-sonnet-20240620"),
		MaxTokens:   defaultInt(req.Params.MaxTokens, domain.DefaultMaxTokens),
		System:      req.SystemPrompt(),
		Messages:    req.Conversation(),
		Temperature: req.Params.Temperature,
		TopP:        req.Params.TopP,
		Stream:      true,
	})
}

type anthropicEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func parseAnthropicEvent(ev sseEvent) (string, bool, error) {
	var payload anthropicEvent
	if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
		return "", false, &domain.FatalError{Backend: "anthropic", Err: fmt.Errorf("decode stream event: %w", err)}
	}
	switch payload.Type {
	case "content_block_delta":
		if payload.Delta.Type == "text_delta" {
			return payload.Delta.Text, false, nil
		}
	case "message_stop":
		return "", true, nil
	case "error":
		err := fmt.Errorf("%s: %s", payload.Error.Type, payload.Error.Message)
		if payload.Error.Type == "overloaded_error" || strings.HasPrefix(payload.Error.Type, "api_error") {
			return "", false, &domain.TransientError{Backend: "anthropic", Err: err}
		}
		return "", false, &domain.FatalError{Backend: "anthropic", Err: err}
	}
	return "", false, nil
}

func setAnthropicHeaders(req *http.Request, model domain.ModelDefinition) error {
	apiKey := getEnv(model.AuthEnvVar, "ANTHROPIC_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("missing API key: set %s or ANTHROPIC_API_KEY", defaultString(model.AuthEnvVar, "ANTHROPIC_API_KEY"))
	}
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	return nil
}
