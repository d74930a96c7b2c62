package domain

import "time"

// Turn is one exchange persisted in a chat session.
type Turn struct {
	Role         string    `json:"role"`
	UserText     string    `json:"user_text"`
	ResponseText string    `json:"response_text"`
	Timestamp    time.Time `json:"timestamp"`
}

// SessionSummary describes a stored session for listing.
type SessionSummary struct {
	ID        string
	Turns     int
	UpdatedAt time.Time
}

// CacheEntry stores a cached model response addressed by request fingerprint.
type CacheEntry struct {
	Key       string    `json:"key"`
	Response  string    `json:"response"`
	Role      string    `json:"role"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}
