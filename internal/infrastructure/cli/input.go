package cli

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

const defaultEditor = "vi"

// maxStdinBytes bounds how much piped input is folded into a prompt.
const maxStdinBytes = 1 << 20

// composePrompt joins piped stdin and the positional prompt. Piped content
// comes first, separated by a blank line.
func composePrompt(piped, prompt string) string {
	piped = strings.TrimSpace(piped)
	prompt = strings.TrimSpace(prompt)
	switch {
	case piped == "":
		return prompt
	case prompt == "":
		return piped
	default:
		return piped + "\n\n" + prompt
	}
}

// readPiped returns stdin's content when it is not a terminal.
func readPiped(stdin io.Reader) (string, error) {
	if stdin == nil || isTerminal(stdin) {
		return "", nil
	}
	if f, ok := stdin.(*os.File); ok {
		info, err := f.Stat()
		if err != nil || info.Mode()&os.ModeCharDevice != 0 {
			return "", nil
		}
	}
	data, err := io.ReadAll(io.LimitReader(stdin, maxStdinBytes))
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

// editorCommand returns $EDITOR, falling back to vi.
func editorCommand() string {
	if editor := strings.TrimSpace(os.Getenv("EDITOR")); editor != "" {
		return editor
	}
	return defaultEditor
}

// promptFromEditor opens the editor on a temporary file seeded with initial
// and returns what the user saved.
func promptFromEditor(initial string) (string, error) {
	f, err := os.CreateTemp("", "sgpt-*.md")
	if err != nil {
		return "", fmt.Errorf("create prompt file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(initial); err != nil {
		f.Close()
		return "", fmt.Errorf("write prompt file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	fields := strings.Fields(editorCommand())
	cmd := exec.Command(fields[0], append(fields[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("run editor %s: %w", fields[0], err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read prompt file: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("empty prompt from editor")
	}
	return text, nil
}
