// Package executor runs accepted shell commands on the host.
package executor

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/doeshing/sgpt-go/internal/domain"
	"github.com/doeshing/sgpt-go/internal/infrastructure/security"
	"github.com/doeshing/sgpt-go/internal/ports"
)

// waitDelay bounds how long output copying may outlive a killed shell.
const waitDelay = time.Second

// LocalExecutor runs commands through the user's shell with the terminal's
// standard streams attached.
type LocalExecutor struct {
	shell  string
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger ports.Logger
}

// NewLocalExecutor builds an executor for shell (a name like "zsh" or a
// path). An empty shell falls back to $SHELL, then /bin/sh.
func NewLocalExecutor(shell string, stdin io.Reader, stdout, stderr io.Writer, logger ports.Logger) *LocalExecutor {
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/sh"
	}
	return &LocalExecutor{shell: shell, stdin: stdin, stdout: stdout, stderr: stderr, logger: logger}
}

// Execute implements ports.CommandExecutor. The exit code is reported,
// never returned as a Go error of this call; cancellation of ctx kills the
// child and marks the result Interrupted.
func (e *LocalExecutor) Execute(ctx context.Context, command string) domain.ExecutionResult {
	c := exec.CommandContext(ctx, e.shell, ShellArgs(e.shell, command)...)
	c.Stdin = e.stdin
	c.Stdout = e.stdout
	c.Stderr = e.stderr
	c.WaitDelay = waitDelay

	e.logger.Debug("executing command", map[string]interface{}{
		"shell":   e.shell,
		"command": security.RedactCommand(command),
	})

	start := time.Now()
	err := c.Run()
	result := domain.ExecutionResult{
		Command:  command,
		Duration: time.Since(start),
	}

	switch {
	case ctx.Err() != nil:
		result.Interrupted = true
		result.ExitCode = -1
		result.Err = &domain.ExecutionError{Command: command, ExitCode: -1, Err: ctx.Err()}
	case err == nil:
		result.ExitCode = 0
	default:
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		result.Err = &domain.ExecutionError{Command: command, ExitCode: result.ExitCode, Err: err}
	}

	e.logger.Debug("command finished", map[string]interface{}{
		"exit_code":   result.ExitCode,
		"duration_ms": result.Duration.Milliseconds(),
		"interrupted": result.Interrupted,
	})
	return result
}

// ShellArgs returns the arguments that make shell run command.
func ShellArgs(shell, command string) []string {
	name := strings.ToLower(filepath.Base(strings.ReplaceAll(shell, `\`, "/")))
	switch strings.TrimSuffix(name, ".exe") {
	case "cmd":
		return []string{"/c", command}
	case "powershell", "pwsh":
		return []string{"-NoProfile", "-Command", command}
	default:
		return []string{"-c", command}
	}
}

var _ ports.CommandExecutor = (*LocalExecutor)(nil)
