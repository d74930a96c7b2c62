package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/sgpt-go/internal/app"
	"github.com/doeshing/sgpt-go/internal/application/prompt"
	"github.com/doeshing/sgpt-go/internal/domain"
	"github.com/doeshing/sgpt-go/internal/infrastructure/ai"
	"github.com/doeshing/sgpt-go/internal/infrastructure/config"
)

const modelTestTimeout = 30 * time.Second

// NewModelsCommand creates the models command with all subcommands
func NewModelsCommand(container *app.Container) *cobra.Command {
	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect configured models",
	}

	modelsCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List configured models",
			RunE: func(cmd *cobra.Command, args []string) error {
				return listModels(cmd.Context(), cmd.OutOrStdout(), container)
			},
		},
		&cobra.Command{
			Use:   "test <name>",
			Short: "Send a short request to a model",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return testModel(cmd.Context(), cmd.OutOrStdout(), container, args[0])
			},
		},
	)

	return modelsCmd
}

// listModels lists all configured models
func listModels(ctx context.Context, out io.Writer, container *app.Container) error {
	cfg, err := container.ConfigLoader.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPROVIDER\tMODEL ID\tDEFAULT")
	for _, model := range cfg.Models {
		defaultMarker := ""
		if cfg.Preferences.DefaultModel == model.Name {
			defaultMarker = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", model.Name, model.Kind(), model.ModelID, defaultMarker)
	}
	return tw.Flush()
}

// testModel sends a one-shot shell request through the model's backend
func testModel(ctx context.Context, out io.Writer, container *app.Container, modelName string) error {
	cfg, err := container.Resolver.Resolve(ctx, config.Overrides{Model: modelName})
	if err != nil {
		return err
	}
	backend, err := container.Backends.ForModel(cfg.Model)
	if err != nil {
		return fmt.Errorf("failed to create backend for model %s: %w", modelName, err)
	}
	role, err := container.Roles.Get(domain.RoleShell)
	if err != nil {
		return err
	}
	req, err := prompt.NewBuilder().Build(role, "print the word testing", "", nil, cfg)
	if err != nil {
		return err
	}

	testCtx, cancel := context.WithTimeout(ctx, modelTestTimeout)
	defer cancel()

	client := ai.NewClient(backend, ai.ClientOptions{MaxAttempts: 1, IdleTimeout: cfg.RequestTimeout}, container.Logger)
	for chunk := range client.Send(testCtx, req) {
		switch {
		case chunk.Err != nil:
			return fmt.Errorf("model %s test failed: %w", modelName, chunk.Err)
		case chunk.Done:
			fmt.Fprintf(out, "Model %s (%s) responded: %s\n", modelName, backend.Name(), strings.TrimSpace(chunk.Final))
			return nil
		}
	}
	if err := testCtx.Err(); err != nil {
		return fmt.Errorf("model %s test failed: %w", modelName, err)
	}
	return fmt.Errorf("model %s closed the stream without an answer", modelName)
}
