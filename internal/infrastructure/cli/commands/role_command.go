package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/sgpt-go/internal/app"
	"github.com/doeshing/sgpt-go/internal/domain"
)

// NewRoleCommand creates the role command with list/show/create subcommands
func NewRoleCommand(container *app.Container) *cobra.Command {
	roleCmd := &cobra.Command{
		Use:   "role",
		Short: "Manage system roles",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			return container.RolesErr
		},
	}

	roleCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List available roles",
			RunE: func(cmd *cobra.Command, args []string) error {
				listRoles(cmd.OutOrStdout(), container)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show <name>",
			Short: "Print a role's prompt template",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return showRole(cmd.OutOrStdout(), container, args[0])
			},
		},
		newRoleCreateCommand(container),
	)

	return roleCmd
}

// newRoleCreateCommand creates the 'role create' subcommand
func newRoleCreateCommand(container *app.Container) *cobra.Command {
	var (
		prompt   string
		output   string
		markdown bool
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a custom role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(prompt) == "" {
				return fmt.Errorf("--prompt is required")
			}
			role := domain.Role{
				Name:     args[0],
				Prompt:   prompt,
				Output:   domain.OutputKind(output),
				Markdown: markdown,
			}.Normalize()
			if err := container.Roles.Create(role); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Role %q created.\n", role.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "System prompt; may use {{.OS}} and {{.Shell}}")
	cmd.Flags().StringVar(&output, "output", string(domain.OutputText), "Output kind: text, shell, describe or code")
	cmd.Flags().BoolVar(&markdown, "markdown", true, "Render answers as markdown")
	return cmd
}

// listRoles prints role names with their output kind
func listRoles(out io.Writer, container *app.Container) {
	for _, role := range container.Roles.List() {
		fmt.Fprintf(out, "%s\t%s\n", role.Name, role.Output)
	}
}

// showRole prints a role
func showRole(out io.Writer, container *app.Container, name string) error {
	role, err := container.Roles.Get(name)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Name: %s\nOutput: %s\nMarkdown: %t\n\n%s\n", role.Name, role.Output, role.Markdown, role.Prompt)
	return nil
}
