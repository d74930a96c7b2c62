// Package prompt composes model requests from a role, the user's text and
// the replayed chat history.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/doeshing/sgpt-go/internal/domain"
)

// Builder renders role templates and replays history. It keeps no state
// between calls, so identical inputs always yield identical requests.
type Builder struct{}

// NewBuilder returns a Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

type templateData struct {
	OS    string
	Shell string
}

// Build composes the request for one user turn. History is replayed oldest
// first as user/assistant pairs, dropping the oldest turns until both the
// turn limit and the token budget hold. The system message and the current
// user turn are never dropped.
func (b *Builder) Build(role domain.Role, userText, sessionID string, history []domain.Turn, cfg domain.RunConfig) (domain.PromptRequest, error) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return domain.PromptRequest{}, domain.ErrEmptyPrompt
	}

	system, err := RenderRole(role, cfg.OSName, cfg.ShellName)
	if err != nil {
		return domain.PromptRequest{}, err
	}

	systemMsg := domain.Message{Role: domain.MessageRoleSystem, Content: system}
	userMsg := domain.Message{Role: domain.MessageRoleUser, Content: userText}
	kept := truncate(history, cfg.HistoryLimit, cfg.ContextBudget, domain.EstimateMessageTokens([]domain.Message{systemMsg, userMsg}))

	messages := make([]domain.Message, 0, 2+2*len(kept))
	messages = append(messages, systemMsg)
	for _, turn := range kept {
		messages = append(messages, turnMessages(turn)...)
	}
	messages = append(messages, userMsg)

	return domain.PromptRequest{
		Role:      role,
		UserText:  userText,
		SessionID: sessionID,
		Model:     cfg.Model,
		Params:    cfg.Params,
		Messages:  messages,
	}, nil
}

// RenderRole expands the role template with the host facts.
func RenderRole(role domain.Role, osName, shellName string) (string, error) {
	tmpl, err := template.New(role.Name).Option("missingkey=error").Parse(role.Prompt)
	if err != nil {
		return "", fmt.Errorf("parse role %q: %w", role.Name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, templateData{OS: osName, Shell: shellName}); err != nil {
		return "", fmt.Errorf("render role %q: %w", role.Name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func turnMessages(turn domain.Turn) []domain.Message {
	return []domain.Message{
		{Role: domain.MessageRoleUser, Content: turn.UserText},
		{Role: domain.MessageRoleAssistant, Content: turn.ResponseText},
	}
}

// truncate keeps at most limit of the newest turns, then drops the oldest
// until the estimate fits budget. A zero budget disables the token check.
func truncate(history []domain.Turn, limit, budget, fixed int) []domain.Turn {
	if limit <= 0 {
		return nil
	}
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	if budget <= 0 {
		return history
	}

	total := fixed
	for _, turn := range history {
		total += domain.EstimateMessageTokens(turnMessages(turn))
	}
	for len(history) > 0 && total > budget {
		total -= domain.EstimateMessageTokens(turnMessages(history[0]))
		history = history[1:]
	}
	return history
}
