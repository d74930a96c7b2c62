package ai

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/doeshing/sgpt-go/internal/domain"
)

const openAIEndpoint = "https://api.openai.com/v1/chat/completions"

func openaiAdapter() providerAdapter {
	return providerAdapter{
		defaultEndpoint: openAIEndpoint,
		buildRequest:    buildChatCompletionRequest,
		setHeaders:      setOpenAIHeaders,
		parseEvent:      parseChatCompletionEvent("openai"),
	}
}

// ollamaAdapter targets Ollama's OpenAI-compatible endpoint, which needs no
// credentials.
func ollamaAdapter() providerAdapter {
	return providerAdapter{
		defaultEndpoint: "http://localhost:11434/v1/chat/completions",
		buildRequest:    buildChatCompletionRequest,
		setHeaders:      setOllamaHeaders,
		parseEvent:      parseChatCompletionEvent("ollama"),
	}
}

type chatCompletionRequest struct {
	Model       string           `json:"model"`
	Messages    []domain.Message `json:"messages"`
	Temperature float64          `json:"temperature"`
	TopP        float64          `json:"top_p"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Stream      bool             `json:"stream"`
}

func buildChatCompletionRequest(req domain.PromptRequest) ([]byte, error) {
	return json.Marshal(chatCompletionRequest{
		Model:       req.Model.ModelID,
		Messages:    req.Messages,
		Temperature: req.Params.Temperature,
		TopP:        req.Params.TopP,
		MaxTokens:   req.Params.MaxTokens,
		Stream:      true,
	})
}

type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func parseChatCompletionEvent(backend string) func(sseEvent) (string, bool, error) {
	return func(ev sseEvent) (string, bool, error) {
		data := strings.TrimSpace(ev.Data)
		if data == "[DONE]" {
			return "", true, nil
		}
		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return "", false, &domain.FatalError{Backend: backend, Err: fmt.Errorf("decode stream event: %w", err)}
		}
		if chunk.Error != nil {
			return "", false, &domain.FatalError{Backend: backend, Err: fmt.Errorf("%s: %s", chunk.Error.Type, chunk.Error.Message)}
		}
		var delta strings.Builder
		for _, choice := range chunk.Choices {
			delta.WriteString(choice.Delta.Content)
		}
		return delta.String(), false, nil
	}
}

func setOpenAIHeaders(req *http.Request, model domain.ModelDefinition) error {
	apiKey := getEnv(model.AuthEnvVar, "OPENAI_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("missing API key: set %s or OPENAI_API_KEY", defaultString(model.AuthEnvVar, "OPENAI_API_KEY"))
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	if org := getEnv(model.OrgEnvVar, "OPENAI_ORG_ID"); org != "" {
		req.Header.Set("OpenAI-Organization", org)
	}
	return nil
}

func setOllamaHeaders(req *http.Request, model domain.ModelDefinition) error {
	if model.AuthEnvVar != "" {
		if key := getEnv(model.AuthEnvVar, ""); key != "" {
			req.Header.Set("Authorization", "Bearer "+key)
		}
	}
	return nil
}
