package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/doeshing/sgpt-go/internal/app"
	"github.com/doeshing/sgpt-go/internal/infrastructure/config"
	"github.com/doeshing/sgpt-go/internal/ports"
)

// NewChatCommand creates the chat command with list/show subcommands
func NewChatCommand(container *app.Container) *cobra.Command {
	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Inspect stored chat sessions",
	}

	chatCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List chat sessions, most recent first",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSessions(cmd.Context(), container, func(store ports.SessionStore) error {
					return listSessions(cmd.Context(), cmd.OutOrStdout(), store)
				})
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Print every turn of a chat session",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSessions(cmd.Context(), container, func(store ports.SessionStore) error {
					return showSession(cmd.Context(), cmd.OutOrStdout(), store, args[0])
				})
			},
		},
	)

	return chatCmd
}

// withSessions opens the configured session store for the duration of fn.
func withSessions(ctx context.Context, container *app.Container, fn func(ports.SessionStore) error) error {
	cfg, err := container.Resolver.Resolve(ctx, config.Overrides{})
	if err != nil {
		return err
	}
	store, err := container.OpenSessions(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// listSessions prints one line per session
func listSessions(ctx context.Context, out io.Writer, store ports.SessionStore) error {
	sessions, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list chat sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(out, msgNoSessions)
		return nil
	}
	for _, s := range sessions {
		fmt.Fprintf(out, "%s | %d turns | %s\n", s.ID, s.Turns, humanize.Time(s.UpdatedAt))
	}
	return nil
}

// showSession prints a session's turns in order
func showSession(ctx context.Context, out io.Writer, store ports.SessionStore, id string) error {
	turns, err := store.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load chat session %s: %w", id, err)
	}
	if len(turns) == 0 {
		return fmt.Errorf("chat session %s not found", id)
	}
	for _, turn := range turns {
		fmt.Fprintf(out, "user (%s): %s\n", turn.Role, turn.UserText)
		fmt.Fprintf(out, "assistant: %s\n\n", turn.ResponseText)
	}
	return nil
}
