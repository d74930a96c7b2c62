package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
	// FilePermissions is the permission for regular state files (rw-r--r--)
	FilePermissions = 0o644
)

// Timeout and retry constants
const (
	// DefaultRequestTimeout bounds how long one model attempt may stay silent
	DefaultRequestTimeout = 60 * time.Second
	// DefaultMaxAttempts is the attempt ceiling for transient backend failures
	DefaultMaxAttempts = 3
	// DefaultRetryBaseDelay is the first backoff step
	DefaultRetryBaseDelay = 500 * time.Millisecond
	// DefaultRetryMaxDelay caps a single backoff step
	DefaultRetryMaxDelay = 8 * time.Second
)

// Limit constants
const (
	// DefaultMaxCacheEntries is the maximum number of cache entries
	DefaultMaxCacheEntries = 100
	// DefaultHistoryLimit is the number of prior turns replayed into a prompt
	DefaultHistoryLimit = 100
	// DefaultContextBudget is the estimated token budget for replayed history
	DefaultContextBudget = 6000
	// DefaultMaxTokens is the default maximum number of completion tokens
	DefaultMaxTokens = 1024
	// DefaultRedisSessionTTL is how long an idle redis session survives
	DefaultRedisSessionTTL = 7 * 24 * time.Hour
)

// Time formats
const (
	// TimestampFormat is the standard timestamp format
	TimestampFormat = time.RFC3339
)
