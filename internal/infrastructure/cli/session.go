package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/doeshing/sgpt-go/internal/app"
	"github.com/doeshing/sgpt-go/internal/application/mediator"
	"github.com/doeshing/sgpt-go/internal/application/query"
	"github.com/doeshing/sgpt-go/internal/domain"
	"github.com/doeshing/sgpt-go/internal/infrastructure/executor"
)

// session runs questions for one invocation against a resolved runtime.
type session struct {
	container *app.Container
	rt        *app.Runtime
	role      domain.Role
	opts      Options
	renderer  *Renderer
}

func newSession(container *app.Container, rt *app.Runtime, role domain.Role, opts Options) *session {
	return &session{
		container: container,
		rt:        rt,
		role:      role,
		opts:      opts,
		renderer:  NewRenderer(terminalWidth(opts.Stdout), ""),
	}
}

func (s *session) prettify(role domain.Role) bool {
	return s.rt.Config.PrettifyMarkdown && role.Markdown
}

// sink builds a stream writer for role, stopping spinner on first output.
func (s *session) sink(role domain.Role, spinner *Spinner) *StreamWriter {
	return NewStreamWriter(s.opts.Stdout, s.renderer, s.prettify(role), spinner.Stop)
}

// ask answers text once and, for command roles, hands the candidate to the
// mediator when interaction is possible.
func (s *session) ask(ctx context.Context, text, sessionID string, noCache bool) error {
	answer, err := s.send(ctx, text, sessionID, noCache)
	if err != nil {
		return err
	}
	if !s.role.ProducesCommand() || !s.rt.Config.ShellInteraction {
		return nil
	}

	in, closeTTY, ok := openTTY(s.opts.Stdin)
	if !ok {
		return nil
	}
	defer closeTTY()
	_, err = s.mediate(ctx, answer.Candidate(), in, in)
	return err
}

func (s *session) send(ctx context.Context, text, sessionID string, noCache bool) (domain.Answer, error) {
	spinner := NewSpinner(s.opts.Stderr)
	spinner.Start()
	defer spinner.Stop()

	return s.rt.Query.Ask(domain.AskRequest{
		Context:   ctx,
		RoleName:  s.role.Name,
		Text:      text,
		SessionID: sessionID,
		NoCache:   noCache,
	}, s.sink(s.role, spinner))
}

// mediate runs the confirm loop for candidate, reading choices from choices.
// stdin is handed to the executed command.
func (s *session) mediate(ctx context.Context, candidate domain.CommandCandidate, choices, stdin io.Reader) (mediator.Outcome, error) {
	m := s.newMediator(choices, stdin)
	outcome, err := m.Run(ctx, candidate)
	if err != nil {
		return outcome, fmt.Errorf("command %q: %w", outcome.Candidate.Text, err)
	}
	return outcome, nil
}

func (s *session) newMediator(choices, stdin io.Reader) *mediator.Mediator {
	return &mediator.Mediator{
		Prompter:       NewPrompter(choices, s.opts.Stderr),
		Executor:       s.newExecutor(stdin),
		Describer:      s.describer(),
		Reporter:       NewReporter(s.opts.Stderr),
		Security:       s.rt.Guard,
		DefaultExecute: s.rt.Config.DefaultExecute,
		Logger:         s.container.Logger,
	}
}

func (s *session) newExecutor(in io.Reader) *executor.LocalExecutor {
	return executor.NewLocalExecutor(s.rt.Config.ShellName, in, s.opts.Stdout, s.opts.Stderr, s.container.Logger)
}

func (s *session) describer() query.Describer {
	role, err := s.container.Roles.Get(domain.RoleDescribeShell)
	if err != nil {
		role = domain.Role{Name: domain.RoleDescribeShell, Markdown: true}
	}
	return query.Describer{
		Service: s.rt.Query,
		Sink:    NewStreamWriter(s.opts.Stdout, s.renderer, s.prettify(role), nil),
	}
}
