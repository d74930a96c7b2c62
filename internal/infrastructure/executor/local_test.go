//go:build !windows

package executor

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/sgpt-go/internal/domain"
	"github.com/doeshing/sgpt-go/internal/pkg/logger"
)

func newTestExecutor(stdout, stderr *bytes.Buffer) *LocalExecutor {
	return NewLocalExecutor("/bin/sh", nil, stdout, stderr, logger.NewNop())
}

func TestExecutePassesOutputThrough(t *testing.T) {
	var stdout, stderr bytes.Buffer
	result := newTestExecutor(&stdout, &stderr).Execute(context.Background(), "echo out; echo err >&2")

	assert.Equal(t, 0, result.ExitCode)
	assert.NoError(t, result.Err)
	assert.False(t, result.Interrupted)
	assert.Equal(t, "out\n", stdout.String())
	assert.Equal(t, "err\n", stderr.String())
}

func TestExecuteReportsExitCode(t *testing.T) {
	var stdout, stderr bytes.Buffer
	result := newTestExecutor(&stdout, &stderr).Execute(context.Background(), "exit 3")

	assert.Equal(t, 3, result.ExitCode)
	var execErr *domain.ExecutionError
	require.True(t, errors.As(result.Err, &execErr))
	assert.Equal(t, 3, execErr.ExitCode)
}

func TestExecuteInterrupted(t *testing.T) {
	var stdout, stderr bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	result := newTestExecutor(&stdout, &stderr).Execute(ctx, "sleep 5")

	assert.True(t, result.Interrupted)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestShellArgs(t *testing.T) {
	tests := []struct {
		shell string
		want  []string
	}{
		{"bash", []string{"-c", "ls"}},
		{"/usr/bin/zsh", []string{"-c", "ls"}},
		{"cmd.exe", []string{"/c", "ls"}},
		{`C:\Windows\System32\WindowsPowerShell\v1.0\powershell.exe`, []string{"-NoProfile", "-Command", "ls"}},
		{"pwsh", []string{"-NoProfile", "-Command", "ls"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ShellArgs(tt.shell, "ls"), tt.shell)
	}
}
