package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/sgpt-go/internal/app"
	"github.com/doeshing/sgpt-go/internal/infrastructure/config"
	"github.com/doeshing/sgpt-go/internal/infrastructure/security"
)

// NewGuardrailCommand creates the guardrail command
func NewGuardrailCommand(container *app.Container) *cobra.Command {
	guardrailCmd := &cobra.Command{
		Use:   "guardrail",
		Short: "Inspect command guardrails",
	}

	guardrailCmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show guardrail status",
			RunE: func(cmd *cobra.Command, args []string) error {
				return showGuardrailStatus(cmd.Context(), cmd.OutOrStdout(), container)
			},
		},
		&cobra.Command{
			Use:   "check <command>",
			Short: "Assess the risk of a shell command without running it",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return checkCommand(cmd.Context(), cmd.OutOrStdout(), container, strings.Join(args, " "))
			},
		},
	)

	return guardrailCmd
}

// showGuardrailStatus displays the current guardrail status
func showGuardrailStatus(ctx context.Context, out io.Writer, container *app.Container) error {
	cfg, err := container.Resolver.Resolve(ctx, config.Overrides{})
	if err != nil {
		return err
	}

	status := "disabled"
	if cfg.Guard.Enabled {
		status = "enabled"
	}
	fmt.Fprintf(out, "Guardrails are currently %s.\n", status)

	rules := cfg.Guard.RulesFile
	if rules == "" {
		rules = "built-in"
	}
	fmt.Fprintf(out, "Rules: %s\nShell: %s\n", rules, cfg.ShellName)
	return nil
}

// checkCommand evaluates command with the configured rules
func checkCommand(ctx context.Context, out io.Writer, container *app.Container, command string) error {
	cfg, err := container.Resolver.Resolve(ctx, config.Overrides{})
	if err != nil {
		return err
	}
	guard, err := security.NewGuardrail(cfg.Guard.RulesFile, cfg.ShellName)
	if err != nil {
		return err
	}
	risk, err := guard.Evaluate(command)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Risk: %s\n", strings.ToUpper(string(risk.Level)))
	for _, reason := range risk.Reasons {
		fmt.Fprintf(out, " - %s\n", reason)
	}
	return nil
}
