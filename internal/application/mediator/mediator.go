// Package mediator drives the confirm/describe/edit/abort loop around a
// generated shell command.
package mediator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/doeshing/sgpt-go/internal/domain"
	"github.com/doeshing/sgpt-go/internal/ports"
)

// Outcome records how a mediation ended.
type Outcome struct {
	State     domain.MediatorState
	Candidate domain.CommandCandidate
	Result    *domain.ExecutionResult
}

// Mediator holds the collaborators of the command loop. Security may be nil
// when guardrails are disabled.
type Mediator struct {
	Prompter       ports.ChoicePrompter
	Executor       ports.CommandExecutor
	Describer      ports.Describer
	Reporter       ports.OutcomeReporter
	Security       ports.SecurityService
	DefaultExecute bool
	Logger         ports.Logger
}

// Run presents candidate until the user executes or aborts it. Describe and
// Edit return to the Generated state; Execute ends in Completed whatever the
// exit code; Abort, or end of input, ends in Aborted.
func (m *Mediator) Run(ctx context.Context, candidate domain.CommandCandidate) (Outcome, error) {
	if m.Prompter == nil || m.Executor == nil || m.Describer == nil || m.Reporter == nil || m.Logger == nil {
		return Outcome{}, errors.New("mediator dependencies not satisfied")
	}
	outcome := Outcome{State: domain.StateGenerated, Candidate: candidate}

	for !outcome.State.Terminal() {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		risk := m.assess(outcome.Candidate.Text)
		choice, err := m.Prompter.Choose(outcome.Candidate, risk, m.defaultChoice(risk))
		if err != nil {
			if errors.Is(err, io.EOF) {
				choice = domain.ChoiceAbort
			} else {
				return outcome, fmt.Errorf("read choice: %w", err)
			}
		}
		m.Logger.Debug("mediator choice", map[string]interface{}{"choice": string(choice), "risk": string(risk.Level)})

		if err := m.apply(ctx, &outcome, choice); err != nil {
			return outcome, err
		}
	}
	return outcome, nil
}

func (m *Mediator) apply(ctx context.Context, outcome *Outcome, choice domain.Choice) error {
	switch choice {
	case domain.ChoiceExecute:
		result := m.Executor.Execute(ctx, outcome.Candidate.Text)
		m.Reporter.ReportExecution(result)
		outcome.Result = &result
		outcome.State = domain.StateCompleted

	case domain.ChoiceDescribe:
		if err := m.Describer.Describe(ctx, outcome.Candidate); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.Reporter.ReportError("describe", err)
		}

	case domain.ChoiceEdit:
		text, err := m.Prompter.ReadReplacement(outcome.Candidate.Text)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read replacement: %w", err)
		}
		if text = strings.TrimSpace(text); text != "" {
			outcome.Candidate.Text = text
		}

	case domain.ChoiceAbort:
		m.Reporter.ReportAbort(outcome.Candidate)
		outcome.State = domain.StateAborted

	default:
		return fmt.Errorf("unknown choice %q", choice)
	}
	return nil
}

func (m *Mediator) assess(command string) domain.RiskAssessment {
	if m.Security == nil {
		return domain.RiskAssessment{Level: domain.RiskSafe}
	}
	risk, err := m.Security.Evaluate(command)
	if err != nil {
		m.Logger.Warn("guardrail evaluation failed", map[string]interface{}{"error": err.Error()})
		return domain.RiskAssessment{Level: domain.RiskSafe}
	}
	return risk
}

// defaultChoice is Abort for elevated risk, otherwise per DefaultExecute.
func (m *Mediator) defaultChoice(risk domain.RiskAssessment) domain.Choice {
	if risk.Elevated() || !m.DefaultExecute {
		return domain.ChoiceAbort
	}
	return domain.ChoiceExecute
}
