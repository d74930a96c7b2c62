package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/doeshing/sgpt-go/internal/domain"
	"github.com/doeshing/sgpt-go/internal/ports"
)

// heuristicBackend answers offline from a small keyword table. It keeps the
// assistant usable without credentials and gives tests a deterministic model.
type heuristicBackend struct {
	model domain.ModelDefinition
}

func newHeuristicBackend(model domain.ModelDefinition) ports.Backend {
	return &heuristicBackend{model: model}
}

func (p *heuristicBackend) Name() string {
	return "heuristic"
}

func (p *heuristicBackend) Stream(ctx context.Context, req domain.PromptRequest) (<-chan domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	answer := heuristicAnswer(req)
	out := make(chan domain.Chunk)
	go func() {
		defer close(out)
		for _, word := range splitKeepingSpaces(answer) {
			if !send(ctx, out, domain.Chunk{Delta: word}) {
				return
			}
		}
		send(ctx, out, domain.Chunk{Done: true, Final: answer})
	}()
	return out, nil
}

func heuristicAnswer(req domain.PromptRequest) string {
	switch req.Role.Output {
	case domain.OutputShell:
		return guessCommand(req.UserText)
	case domain.OutputDescribe:
		return fmt.Sprintf("`%s` runs the command shown. No model is configured, so no detailed description is available.", strings.TrimSpace(req.UserText))
	case domain.OutputCode:
		return "# No AI provider configured"
	default:
		return "No AI provider is configured. Set a model in config.yaml to get real answers."
	}
}

func guessCommand(prompt string) string {
	prompt = strings.ToLower(prompt)
	switch {
	case strings.Contains(prompt, "docker"):
		return "docker ps"
	case strings.Contains(prompt, "git status"):
		return "git status"
	case strings.Contains(prompt, "list") && strings.Contains(prompt, "file"):
		return "ls -la"
	case strings.Contains(prompt, "disk") && (strings.Contains(prompt, "usage") || strings.Contains(prompt, "space")):
		return "df -h"
	case strings.Contains(prompt, "kubernetes") || strings.Contains(prompt, "pod"):
		return "kubectl get pods"
	default:
		return "echo \"No AI provider configured\""
	}
}

// splitKeepingSpaces cuts text into words that concatenate back to text.
func splitKeepingSpaces(text string) []string {
	var parts []string
	start := 0
	for i, r := range text {
		if r == ' ' && i > start {
			parts = append(parts, text[start:i])
			start = i
		}
	}
	if start < len(text) {
		parts = append(parts, text[start:])
	}
	return parts
}
