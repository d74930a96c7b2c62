package filesystem

import (
	"os"
	"path/filepath"
	"strings"
)

// UserHomeDir returns the current user's home directory.
// If the home directory cannot be determined, it returns "." as a fallback.
func UserHomeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

// StateDir returns the directory holding config, roles, cache and chats.
// Resolution order: $SGPT_STATE_DIR > $XDG_CONFIG_HOME/sgpt > ~/.config/sgpt
func StateDir() string {
	if dir := os.Getenv("SGPT_STATE_DIR"); dir != "" {
		return ExpandPath(dir)
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "sgpt")
	}
	return filepath.Join(UserHomeDir(), ".config", "sgpt")
}

// ExpandPath resolves a leading "~/" against the home directory.
func ExpandPath(path string) string {
	if path == "~" {
		return UserHomeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(UserHomeDir(), path[2:])
	}
	return filepath.Clean(path)
}
