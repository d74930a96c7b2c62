package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/doeshing/sgpt-go/internal/domain"
	"github.com/doeshing/sgpt-go/internal/ports"
)

// geminiBackend streams from the Gemini API through the genai SDK.
type geminiBackend struct {
	model      domain.ModelDefinition
	httpClient *http.Client

	once   sync.Once
	client *genai.Client
	err    error
}

func newGeminiBackend(model domain.ModelDefinition, client *http.Client) ports.Backend {
	return &geminiBackend{model: model, httpClient: client}
}

func (g *geminiBackend) Name() string {
	return "gemini"
}

func (g *geminiBackend) connect(ctx context.Context) (*genai.Client, error) {
	g.once.Do(func() {
		apiKey := getEnv(g.model.AuthEnvVar, "GEMINI_API_KEY")
		if apiKey == "" {
			g.err = &domain.FatalError{Backend: g.Name(), Err: fmt.Errorf("missing API key: set %s or GEMINI_API_KEY", defaultString(g.model.AuthEnvVar, "GEMINI_API_KEY"))}
			return
		}
		cfg := &genai.ClientConfig{
			APIKey:     apiKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: g.httpClient,
		}
		if g.model.Endpoint != "" {
			cfg.HTTPOptions = genai.HTTPOptions{BaseURL: g.model.Endpoint}
		}
		client, err := genai.NewClient(ctx, cfg)
		if err != nil {
			g.err = &domain.FatalError{Backend: g.Name(), Err: fmt.Errorf("create genai client: %w", err)}
			return
		}
		g.client = client
	})
	return g.client, g.err
}

func (g *geminiBackend) Stream(ctx context.Context, req domain.PromptRequest) (<-chan domain.Chunk, error) {
	client, err := g.connect(ctx)
	if err != nil {
		return nil, err
	}
	contents, config := geminiRequest(req)
	modelID := defaultString(req.Model.ModelID, "gemini-2.0-flash")

	out := make(chan domain.Chunk)
	go func() {
		defer close(out)
		var full strings.Builder
		for resp, err := range client.Models.GenerateContentStream(ctx, modelID, contents, config) {
			if err != nil {
				send(ctx, out, domain.Chunk{Err: classifyGenaiError(ctx, err)})
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			full.WriteString(text)
			if !send(ctx, out, domain.Chunk{Delta: text}) {
				return
			}
		}
		send(ctx, out, domain.Chunk{Done: true, Final: full.String()})
	}()
	return out, nil
}

func geminiRequest(req domain.PromptRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	conversation := req.Conversation()
	contents := make([]*genai.Content, 0, len(conversation))
	for _, msg := range conversation {
		role := genai.Role(genai.RoleUser)
		if msg.Role == domain.MessageRoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Params.Temperature)),
		TopP:            genai.Ptr(float32(req.Params.TopP)),
		MaxOutputTokens: int32(defaultInt(req.Params.MaxTokens, domain.DefaultMaxTokens)),
	}
	if system := req.SystemPrompt(); system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	return contents, config
}

func classifyGenaiError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus("gemini", apiErr.Code, []byte(apiErr.Message))
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return classifyStatus("gemini", apiErrPtr.Code, []byte(apiErrPtr.Message))
	}
	return classifyTransport(ctx, "gemini", err)
}
