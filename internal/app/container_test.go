package app

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/sgpt-go/internal/domain"
	"github.com/doeshing/sgpt-go/internal/infrastructure/config"
)

type collectSink struct{ b strings.Builder }

func (s *collectSink) WriteChunk(text string) { s.b.WriteString(text) }
func (s *collectSink) Done()                  {}

func TestRuntimeAnswersWithOfflineModel(t *testing.T) {
	t.Setenv("SGPT_CONFIG", "")
	t.Setenv("DEFAULT_MODEL", "")
	dir := t.TempDir()

	c, err := BuildContainer(Options{StateDir: dir})
	require.NoError(t, err)
	defer c.Close()
	assert.NotEmpty(t, c.RunID)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), c.ConfigLoader.Path())

	rt, err := c.Runtime(context.Background(), config.Overrides{Model: "offline"}, true)
	require.NoError(t, err)
	defer rt.Close()

	require.NotNil(t, rt.Sessions)
	require.NotNil(t, rt.Guard)
	assert.Equal(t, filepath.Join(dir, "cache", "responses"), rt.Cache.Dir())

	var sink collectSink
	answer, err := rt.Query.Ask(domain.AskRequest{
		Context:   context.Background(),
		RoleName:  domain.RoleShell,
		Text:      "list files here",
		SessionID: "s1",
	}, &sink)
	require.NoError(t, err)
	assert.Equal(t, "ls -la", answer.Text)
	assert.Equal(t, "ls -la", sink.b.String())

	turns, err := rt.Sessions.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, turns, 1)
	assert.FileExists(t, filepath.Join(dir, "chat", "sessions.db"))
}

func TestRuntimeWithoutSessions(t *testing.T) {
	t.Setenv("SGPT_CONFIG", "")
	c, err := BuildContainer(Options{StateDir: t.TempDir()})
	require.NoError(t, err)

	rt, err := c.Runtime(context.Background(), config.Overrides{Model: "offline"}, false)
	require.NoError(t, err)
	assert.Nil(t, rt.Sessions)
	assert.NoError(t, rt.Close())
}

func TestRuntimeRejectsUnknownModel(t *testing.T) {
	t.Setenv("SGPT_CONFIG", "")
	c, err := BuildContainer(Options{StateDir: t.TempDir()})
	require.NoError(t, err)

	_, err = c.Runtime(context.Background(), config.Overrides{Model: "missing"}, false)
	assert.True(t, domain.IsConfigError(err))
}
