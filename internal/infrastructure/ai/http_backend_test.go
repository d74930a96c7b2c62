package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/sgpt-go/internal/domain"
)

func shellRequest(model domain.ModelDefinition) domain.PromptRequest {
	return domain.PromptRequest{
		Role:     domain.Role{Name: domain.RoleShell, Output: domain.OutputShell},
		UserText: "list files",
		Model:    model,
		Params:   domain.SamplingParams{Temperature: 0.2, TopP: 1, MaxTokens: 64},
		Messages: []domain.Message{
			{Role: domain.MessageRoleSystem, Content: "Only bash."},
			{Role: domain.MessageRoleUser, Content: "list files"},
		},
	}
}

func drain(t *testing.T, ch <-chan domain.Chunk) (string, domain.Chunk) {
	t.Helper()
	var b strings.Builder
	var last domain.Chunk
	for chunk := range ch {
		b.WriteString(chunk.Delta)
		if chunk.Done || chunk.Err != nil {
			last = chunk
		}
	}
	return b.String(), last
}

func TestOpenAIBackendStreams(t *testing.T) {
	t.Setenv("SGPT_TEST_KEY", "sk-test")
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"ls \"}}]}\n\n")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"-la\"},\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	model := domain.ModelDefinition{Name: "gpt", Provider: domain.ProviderKindOpenAI, Endpoint: server.URL, AuthEnvVar: "SGPT_TEST_KEY", ModelID: "gpt-4o-mini"}
	backend, err := NewFactory(server.Client()).ForModel(model)
	require.NoError(t, err)

	stream, err := backend.Stream(context.Background(), shellRequest(model))
	require.NoError(t, err)
	text, last := drain(t, stream)

	assert.Equal(t, "ls -la", text)
	assert.True(t, last.Done)
	assert.Equal(t, "ls -la", last.Final)
	assert.Equal(t, true, body["stream"])
	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.Len(t, body["messages"], 2)
}

func TestAnthropicBackendStreams(t *testing.T) {
	t.Setenv("SGPT_TEST_KEY", "ak-test")
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ak-test", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))
		fmt.Fprint(w, "event: message_start\ndata: {\"type\":\"message_start\"}\n\n")
		fmt.Fprint(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"df \"}}\n\n")
		fmt.Fprint(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"-h\"}}\n\n")
		fmt.Fprint(w, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
	}))
	defer server.Close()

	model := domain.ModelDefinition{Name: "claude", Provider: domain.ProviderKindAnthropic, Endpoint: server.URL, AuthEnvVar: "SGPT_TEST_KEY", ModelID: "claude-x"}
	backend, err := NewFactory(server.Client()).ForModel(model)
	require.NoError(t, err)

	stream, err := backend.Stream(context.Background(), shellRequest(model))
	require.NoError(t, err)
	text, last := drain(t, stream)

	assert.Equal(t, "df -h", text)
	assert.True(t, last.Done)
	assert.Equal(t, "Only bash.", body["system"])
	assert.Len(t, body["messages"], 1)
}

func TestHTTPBackendStatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		body      string
		transient bool
	}{
		{status: http.StatusUnauthorized, body: `{"error":"bad key"}`},
		{status: http.StatusBadRequest, body: `{"error":"bad request"}`},
		{status: http.StatusTooManyRequests, body: `{"error":{"type":"insufficient_quota"}}`},
		{status: http.StatusTooManyRequests, body: `{"error":"slow down"}`, transient: true},
		{status: http.StatusBadGateway, body: "upstream", transient: true},
		{status: http.StatusServiceUnavailable, transient: true},
	}
	t.Setenv("SGPT_TEST_KEY", "sk-test")
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d %s", tt.status, tt.body), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			model := domain.ModelDefinition{Name: "gpt", Provider: domain.ProviderKindOpenAI, Endpoint: server.URL, AuthEnvVar: "SGPT_TEST_KEY"}
			backend, err := NewFactory(server.Client()).ForModel(model)
			require.NoError(t, err)

			_, err = backend.Stream(context.Background(), shellRequest(model))
			require.Error(t, err)
			assert.Equal(t, tt.transient, domain.IsTransient(err), "%v", err)
			assert.Equal(t, !tt.transient, domain.IsFatal(err), "%v", err)
		})
	}
}

func TestHTTPBackendIncompleteStreamIsTransient(t *testing.T) {
	t.Setenv("SGPT_TEST_KEY", "sk-test")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"ls\"}}]}\n\n")
	}))
	defer server.Close()

	model := domain.ModelDefinition{Name: "gpt", Provider: domain.ProviderKindOpenAI, Endpoint: server.URL, AuthEnvVar: "SGPT_TEST_KEY"}
	backend, err := NewFactory(server.Client()).ForModel(model)
	require.NoError(t, err)
	stream, err := backend.Stream(context.Background(), shellRequest(model))
	require.NoError(t, err)

	_, last := drain(t, stream)
	assert.True(t, domain.IsTransient(last.Err))
}

func TestMissingAPIKeyIsFatal(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("SGPT_TEST_KEY", "")
	model := domain.ModelDefinition{Name: "gpt", Provider: domain.ProviderKindOpenAI, Endpoint: "http://127.0.0.1:1", AuthEnvVar: "SGPT_TEST_KEY"}
	backend, err := NewFactory(nil).ForModel(model)
	require.NoError(t, err)

	_, err = backend.Stream(context.Background(), shellRequest(model))
	assert.True(t, domain.IsFatal(err))
}

func TestFactorySelectsBackend(t *testing.T) {
	tests := []struct {
		model domain.ModelDefinition
		want  string
	}{
		{domain.ModelDefinition{Name: "a", Endpoint: "https://api.openai.com/v1/chat/completions"}, "openai"},
		{domain.ModelDefinition{Name: "b", Endpoint: "https://api.anthropic.com/v1/messages"}, "anthropic"},
		{domain.ModelDefinition{Name: "c", ModelID: "gemini-2.0-flash"}, "gemini"},
		{domain.ModelDefinition{Name: "ollama-local", Endpoint: "http://localhost:11434/v1/chat/completions"}, "ollama"},
		{domain.ModelDefinition{Name: "d"}, "heuristic"},
	}
	for _, tt := range tests {
		backend, err := NewFactory(nil).ForModel(tt.model)
		require.NoError(t, err)
		assert.Equal(t, tt.want, backend.Name(), tt.model.Name)
	}

	_, err := NewFactory(nil).ForModel(domain.ModelDefinition{Name: "x", Provider: "bard"})
	assert.True(t, domain.IsConfigError(err))
}

func TestHeuristicBackend(t *testing.T) {
	backend := newHeuristicBackend(domain.ModelDefinition{Name: "offline"})
	stream, err := backend.Stream(context.Background(), shellRequest(domain.ModelDefinition{}))
	require.NoError(t, err)
	text, last := drain(t, stream)
	assert.Equal(t, "ls -la", text)
	assert.Equal(t, "ls -la", last.Final)
}

func TestGeminiRequestMapsRoles(t *testing.T) {
	req := shellRequest(domain.ModelDefinition{ModelID: "gemini-2.0-flash"})
	req.Messages = append(req.Messages,
		domain.Message{Role: domain.MessageRoleAssistant, Content: "ls"},
		domain.Message{Role: domain.MessageRoleUser, Content: "with hidden files"},
	)
	contents, config := geminiRequest(req)

	require.Len(t, contents, 3)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, int32(64), config.MaxOutputTokens)
	require.NotNil(t, config.SystemInstruction)
	assert.Equal(t, "Only bash.", config.SystemInstruction.Parts[0].Text)
}

func TestReadSSEJoinsMultilineData(t *testing.T) {
	input := "event: x\ndata: one\ndata: two\n\ndata: tail"
	var got []sseEvent
	require.NoError(t, readSSE(strings.NewReader(input), func(ev sseEvent) bool {
		got = append(got, ev)
		return true
	}))
	assert.Equal(t, []sseEvent{{Event: "x", Data: "one\ntwo"}, {Data: "tail"}}, got)
}
