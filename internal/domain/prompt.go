package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// PromptRequest is a fully composed request for a model backend.
type PromptRequest struct {
	Role      Role
	UserText  string
	SessionID string
	Model     ModelDefinition
	Params    SamplingParams
	Messages  []Message
}

// Fingerprint returns a stable hash over every field of the request. Fields
// are placed in a map so the JSON encoder emits them with sorted keys.
func (r PromptRequest) Fingerprint() string {
	canonical := map[string]any{
		"role": map[string]any{
			"name":     r.Role.Name,
			"prompt":   r.Role.Prompt,
			"output":   string(r.Role.Output),
			"markdown": r.Role.Markdown,
		},
		"user_text":  r.UserText,
		"session_id": r.SessionID,
		"model": map[string]any{
			"name":       r.Model.Name,
			"provider":   string(r.Model.Kind()),
			"endpoint":   r.Model.Endpoint,
			"model_id":   r.Model.ModelID,
			"max_tokens": r.Model.MaxTokens,
		},
		"params": map[string]any{
			"temperature": r.Params.Temperature,
			"top_p":       r.Params.TopP,
			"max_tokens":  r.Params.MaxTokens,
		},
		"messages": r.Messages,
	}
	// Only strings, numbers, bools, maps and Message slices: cannot fail.
	data, _ := json.Marshal(canonical)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SystemPrompt returns the leading system message content, if any.
func (r PromptRequest) SystemPrompt() string {
	if len(r.Messages) > 0 && r.Messages[0].Role == MessageRoleSystem {
		return r.Messages[0].Content
	}
	return ""
}

// Conversation returns the messages after the system prompt.
func (r PromptRequest) Conversation() []Message {
	if len(r.Messages) > 0 && r.Messages[0].Role == MessageRoleSystem {
		return r.Messages[1:]
	}
	return r.Messages
}

// Chunk is one element of a streamed model response. A stream ends with
// exactly one chunk that has Done set (carrying the full text in Final) or
// Err set.
type Chunk struct {
	Delta string
	Done  bool
	Final string
	Err   error
}
