package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/doeshing/sgpt-go/internal/domain"
)

const (
	replExit       = "exit()"
	replMultiline  = `"""`
	replExecute    = "e"
	replDescribe   = "d"
	replPromptText = ">>> "
)

// repl answers prompts in a loop within chat session id. initial, if set,
// is answered before the first read.
func (s *session) repl(ctx context.Context, id, initial string) error {
	in, closeTTY, ok := openTTY(s.opts.Stdin)
	if !ok {
		return errors.New("--repl needs an interactive terminal")
	}
	defer closeTTY()
	return s.replLoop(ctx, id, initial, in)
}

// commandShortcuts reports whether "e" and "d" act on the last generated
// command. Without shell interaction they are sent as ordinary prompts.
func (s *session) commandShortcuts() bool {
	return s.role.ProducesCommand() && s.rt.Config.ShellInteraction
}

// replLoop reads prompts from in until exit() or end of input. With command
// shortcuts, "e" hands the last command to the mediator and "d" describes
// it. Executed commands get in itself as stdin.
func (s *session) replLoop(ctx context.Context, id, initial string, in io.Reader) error {
	reader := bufio.NewReader(in)
	fmt.Fprintf(s.opts.Stderr, "Entering REPL mode (session %s). Type %s to quit, %s for multiline input.\n", id, replExit, replMultiline)
	if s.commandShortcuts() {
		fmt.Fprintf(s.opts.Stderr, "Type %q to execute or %q to describe the last command.\n", replExecute, replDescribe)
	}

	var last *domain.CommandCandidate
	if initial != "" {
		answer, err := s.send(ctx, initial, id, false)
		if err != nil {
			return err
		}
		candidate := answer.Candidate()
		last = &candidate
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(s.opts.Stderr, styleCommand.Render(replPromptText))
		text, err := readReplInput(reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		switch {
		case text == "":
			continue
		case text == replExit:
			return nil
		case last != nil && s.commandShortcuts() && text == replExecute:
			if _, err := s.mediate(ctx, *last, reader, in); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				NewReporter(s.opts.Stderr).ReportError("execute", err)
			}
			continue
		case last != nil && s.commandShortcuts() && text == replDescribe:
			if err := s.describer().Describe(ctx, *last); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				NewReporter(s.opts.Stderr).ReportError("describe", err)
			}
			continue
		}

		answer, err := s.send(ctx, text, id, false)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// A failed turn leaves the session intact; keep the loop alive.
			NewReporter(s.opts.Stderr).ReportError("request", err)
			continue
		}
		candidate := answer.Candidate()
		last = &candidate
	}
}

// readReplInput reads one prompt. A line of `"""` starts a block that ends
// at the next `"""` line.
func readReplInput(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	trimmed := strings.TrimSpace(line)
	if trimmed != replMultiline {
		if err != nil && trimmed != "" {
			return trimmed, nil
		}
		return trimmed, err
	}

	var lines []string
	for {
		line, err := r.ReadString('\n')
		if strings.TrimSpace(line) == replMultiline {
			break
		}
		lines = append(lines, strings.TrimRight(line, "\r\n"))
		if err != nil {
			return strings.TrimSpace(strings.Join(lines, "\n")), nil
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}
