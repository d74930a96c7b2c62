package domain

import (
	"context"
	"time"
)

// CommandCandidate is a generated shell command awaiting user disposition.
type CommandCandidate struct {
	Text   string
	Origin PromptRequest
}

// MediatorState enumerates the command mediator's states.
type MediatorState string

const (
	StateGenerated MediatorState = "generated"
	StateCompleted MediatorState = "completed"
	StateAborted   MediatorState = "aborted"
)

// Terminal reports whether no further choice is accepted.
func (s MediatorState) Terminal() bool {
	return s == StateCompleted || s == StateAborted
}

// Choice is a user decision on a candidate.
type Choice string

const (
	ChoiceExecute  Choice = "execute"
	ChoiceDescribe Choice = "describe"
	ChoiceEdit     Choice = "edit"
	ChoiceAbort    Choice = "abort"
)

// ExecutionResult wraps details from the command executor.
type ExecutionResult struct {
	Command     string
	ExitCode    int
	Duration    time.Duration
	Interrupted bool
	Err         error
}

// AskRequest is one user question routed through the query service.
type AskRequest struct {
	Context   context.Context
	RoleName  string
	Text      string
	SessionID string
	NoCache   bool
}

// Answer is the outcome of an AskRequest.
type Answer struct {
	Request   PromptRequest
	Text      string
	FromCache bool
}

// Candidate returns the answer as a command candidate.
func (a Answer) Candidate() CommandCandidate {
	return CommandCandidate{Text: a.Text, Origin: a.Request}
}
