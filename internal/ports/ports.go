// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the application core and external
// adapters (infrastructure). The application layer (prompt building, query
// orchestration, command mediation) depends only on these abstractions; the
// infrastructure layer supplies model backends, stores, executors and terminal
// adapters.
package ports

import (
	"context"

	"github.com/doeshing/sgpt-go/internal/domain"
)

// ConfigProvider loads the raw configuration from persistent storage.
// Implementations typically read <state dir>/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// RoleRepository resolves roles by name. Names are unique.
type RoleRepository interface {
	Get(name string) (domain.Role, error)
	List() []domain.Role
	Create(role domain.Role) error
}

// Backend is the narrow capability every model provider implements. Stream
// returns once the request is accepted; the channel then yields deltas and
// is closed after a final Done or Err chunk. Errors returned directly or in
// the stream are *domain.TransientError or *domain.FatalError.
type Backend interface {
	Name() string
	Stream(ctx context.Context, req domain.PromptRequest) (<-chan domain.Chunk, error)
}

// BackendFactory builds backend instances from model definitions.
type BackendFactory interface {
	ForModel(domain.ModelDefinition) (Backend, error)
}

// ModelClient sends a prompt and streams the response, applying retry,
// timeout and cancellation policy around a Backend.
type ModelClient interface {
	Send(ctx context.Context, req domain.PromptRequest) <-chan domain.Chunk
}

// ResponseCache maps request fingerprints to previously obtained responses.
type ResponseCache interface {
	Get(key string) (domain.CacheEntry, bool, error)
	Put(entry domain.CacheEntry) error
}

// CacheRepository adds inspection operations used by the CLI.
type CacheRepository interface {
	ResponseCache
	Entries() ([]domain.CacheEntry, error)
	Clear() error
	Dir() string
	Size() (int64, error)
}

// SessionStore persists chat turns. Append is the only mutation; Load of an
// unknown id yields an empty slice.
type SessionStore interface {
	Append(ctx context.Context, sessionID string, turn domain.Turn) error
	Load(ctx context.Context, sessionID string) ([]domain.Turn, error)
	List(ctx context.Context) ([]domain.SessionSummary, error)
	Close() error
}

// StreamSink receives response text as it arrives.
type StreamSink interface {
	WriteChunk(text string)
	Done()
}

// SecurityService evaluates commands against guardrail rules. The result is
// advisory: it is shown to the user and influences the default choice.
type SecurityService interface {
	Evaluate(command string) (domain.RiskAssessment, error)
}

// CommandExecutor runs shell commands in the configured shell environment,
// passing stdout/stderr through to the user.
type CommandExecutor interface {
	Execute(ctx context.Context, command string) domain.ExecutionResult
}

// ChoicePrompter collects the user's decision on a command candidate.
type ChoicePrompter interface {
	Choose(candidate domain.CommandCandidate, risk domain.RiskAssessment, def domain.Choice) (domain.Choice, error)
	ReadReplacement(current string) (string, error)
}

// Describer explains a command candidate to the user.
type Describer interface {
	Describe(ctx context.Context, candidate domain.CommandCandidate) error
}

// OutcomeReporter tells the user how a mediated command ended, or why a
// step failed without ending it.
type OutcomeReporter interface {
	ReportExecution(result domain.ExecutionResult)
	ReportAbort(candidate domain.CommandCandidate)
	ReportError(step string, err error)
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (stdout, files, external services).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
