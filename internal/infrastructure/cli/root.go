package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/sgpt-go/internal/app"
	"github.com/doeshing/sgpt-go/internal/domain"
	"github.com/doeshing/sgpt-go/internal/infrastructure/cli/commands"
	"github.com/doeshing/sgpt-go/internal/infrastructure/config"
)

// Exit codes of the sgpt process.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitConfig      = 2
	ExitInterrupted = 130
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose    bool
	StateDir   string
	ConfigPath string
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
}

type queryFlags struct {
	model       string
	temperature float64
	topP        float64
	md          bool
	noMD        bool
	interaction bool
	noInteract  bool
	cache       bool
	noCache     bool

	shell    bool
	describe bool
	code     bool
	role     string

	chat   string
	repl   string
	editor bool
	debug  bool
}

// NewRootCmd wires the cobra root command. The container is built once flags
// are parsed, so --debug reaches the logger; subcommands share it through
// the pointer handed to them here.
func NewRootCmd(opts Options) *cobra.Command {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	container := &app.Container{}
	var flags queryFlags

	root := &cobra.Command{
		Use:   "sgpt [prompt]",
		Short: "sgpt - shell assistant powered by language models",
		Long:  "sgpt turns natural language into shell commands, code and answers, with optional confirmation before anything runs.",
		Args:  cobra.ArbitraryArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			built, err := app.BuildContainer(app.Options{
				StateDir:   opts.StateDir,
				ConfigPath: opts.ConfigPath,
				Verbose:    opts.Verbose || flags.debug,
			})
			if err != nil {
				return err
			}
			*container = *built
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if container.Logger != nil {
				container.Close()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, container, opts, flags, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(opts.Stdin)
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)

	f := root.Flags()
	f.StringVarP(&flags.model, "model", "m", "", "Model name from config.yaml")
	f.Float64Var(&flags.temperature, "temperature", 0, "Randomness of generated output (0.0 - 2.0)")
	f.Float64Var(&flags.topP, "top-p", 0, "Limits highest probable tokens (0.0 - 1.0)")
	f.BoolVar(&flags.md, "md", false, "Prettify markdown output")
	f.BoolVar(&flags.noMD, "no-md", false, "Print markdown output verbatim")
	f.BoolVar(&flags.interaction, "interaction", false, "Ask before running generated shell commands")
	f.BoolVar(&flags.noInteract, "no-interaction", false, "Print generated shell commands without asking")
	f.BoolVar(&flags.cache, "cache", false, "Use the response cache")
	f.BoolVar(&flags.noCache, "no-cache", false, "Bypass the response cache")
	f.BoolVarP(&flags.shell, "shell", "s", false, "Generate and run a shell command")
	f.BoolVarP(&flags.describe, "describe-shell", "d", false, "Describe a shell command")
	f.BoolVarP(&flags.code, "code", "c", false, "Generate only code")
	f.StringVar(&flags.role, "role", "", "System role for the model")
	f.StringVar(&flags.chat, "chat", "", "Continue the chat session with this id")
	f.StringVar(&flags.repl, "repl", "", "Start an interactive session with this id")
	f.BoolVarP(&flags.editor, "editor", "e", false, "Write the prompt in $EDITOR")
	root.MarkFlagsMutuallyExclusive("shell", "describe-shell", "code", "role")
	root.MarkFlagsMutuallyExclusive("md", "no-md")
	root.MarkFlagsMutuallyExclusive("interaction", "no-interaction")
	root.MarkFlagsMutuallyExclusive("cache", "no-cache")
	root.MarkFlagsMutuallyExclusive("chat", "repl")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Log diagnostics to stderr")

	root.AddCommand(
		commands.NewChatCommand(container),
		commands.NewRoleCommand(container),
		commands.NewCacheCommand(container),
		commands.NewConfigCommand(container),
		commands.NewModelsCommand(container),
		commands.NewGuardrailCommand(container),
		commands.NewDoctorCommand(container),
		commands.NewVersionCommand(),
	)
	return root
}

// overrides maps explicitly set flags onto config.Overrides.
func (f queryFlags) overrides(cmd *cobra.Command) config.Overrides {
	ov := config.Overrides{Model: f.model}
	changed := cmd.Flags().Changed
	if changed("temperature") {
		ov.Temperature = &f.temperature
	}
	if changed("top-p") {
		ov.TopP = &f.topP
	}
	ov.Prettify = pair(changed("md"), changed("no-md"))
	ov.Interaction = pair(changed("interaction"), changed("no-interaction"))
	ov.Cache = pair(changed("cache"), changed("no-cache"))
	return ov
}

func pair(on, off bool) *bool {
	switch {
	case on:
		v := true
		return &v
	case off:
		v := false
		return &v
	default:
		return nil
	}
}

// roleName picks the role from the role flags.
func (f queryFlags) roleName() string {
	switch {
	case f.shell:
		return domain.RoleShell
	case f.describe:
		return domain.RoleDescribeShell
	case f.code:
		return domain.RoleCode
	case f.role != "":
		return f.role
	default:
		return domain.RoleDefault
	}
}

func runQuery(cmd *cobra.Command, container *app.Container, opts Options, flags queryFlags, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	piped, err := readPiped(opts.Stdin)
	if err != nil {
		return err
	}
	if flags.editor && strings.TrimSpace(piped) != "" {
		return &domain.ConfigError{Key: "editor", Err: errors.New("--editor cannot be used with stdin")}
	}
	text := composePrompt(piped, strings.Join(args, " "))
	if flags.editor {
		if text, err = promptFromEditor(text); err != nil {
			return err
		}
	}
	if text == "" && flags.repl == "" {
		return cmd.Help()
	}

	if container.RolesErr != nil {
		return container.RolesErr
	}
	role, err := container.Roles.Get(flags.roleName())
	if err != nil {
		return &domain.ConfigError{Key: "role", Value: flags.roleName(), Err: err}
	}

	rt, err := container.Runtime(ctx, flags.overrides(cmd), flags.chat != "" || flags.repl != "")
	if err != nil {
		return err
	}
	defer rt.Close()

	s := newSession(container, rt, role, opts)
	if flags.repl != "" {
		return s.repl(ctx, flags.repl, text)
	}
	return s.ask(ctx, text, flags.chat, flags.noCache)
}

// ExitCode maps an error returned by the root command to a process status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case domain.IsConfigError(err):
		return ExitConfig
	default:
		return ExitFailure
	}
}

// PrintError writes err on w in the CLI's error format.
func PrintError(w io.Writer, err error) {
	fmt.Fprintln(w, styleDanger.Render("error:"), err)
}
