// Package session stores chat turns per session id.
package session

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/doeshing/sgpt-go/internal/domain"
	"github.com/doeshing/sgpt-go/internal/ports"
)

// Open builds the store selected by settings. SQLite databases live under
// <stateDir>/chat.
func Open(ctx context.Context, settings domain.SessionSettings, stateDir string) (ports.SessionStore, error) {
	switch settings.Backend {
	case domain.SessionBackendRedis:
		return OpenRedisStore(ctx, settings.RedisURL, settings.RedisTTL)
	case domain.SessionBackendSQLite, "":
		return NewSQLiteStore(filepath.Join(stateDir, "chat", "sessions.db"))
	default:
		return nil, &domain.ConfigError{Key: "chat.backend", Value: string(settings.Backend), Err: fmt.Errorf("unsupported session backend")}
	}
}
