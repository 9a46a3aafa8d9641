package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"repobranch/internal/app"
	"repobranch/internal/state"
)

type appRunner interface {
	SetVerbose(verbose bool)
	RunInit(opts app.InitOptions) (int, error)
	RunNew(opts app.NewOptions) (int, error)
	RunResolve(opts app.ResolveOptions) (int, error)
	RunRepoAdd(projectDir string, path string) (int, error)
	RunRepoRM(projectDir string, path string) (int, error)
	RunRepoList(projectDir string) (int, error)
	RunSyncSetting(projectDir string, value string) (int, error)
}

type runDeps struct {
	userHomeDir func() (string, error)
	newApp      func(paths state.Paths, stdout io.Writer, stderr io.Writer) appRunner
}

type runtimeState struct {
	stdout  io.Writer
	stderr  io.Writer
	quiet   bool
	project string

	deps runDeps
	app  appRunner
}

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit code %d", e.code)
}

func (e *exitError) Unwrap() error {
	return e.err
}

func defaultRunDeps() runDeps {
	return runDeps{
		userHomeDir: os.UserHomeDir,
		newApp: func(paths state.Paths, stdout io.Writer, stderr io.Writer) appRunner {
			return app.New(paths, stdout, stderr)
		},
	}
}

func Run(args []string, stdout io.Writer, stderr io.Writer) int {
	return runWithDeps(args, stdout, stderr, defaultRunDeps())
}

func NewRootCommand(stdout io.Writer, stderr io.Writer) *cobra.Command {
	runtime := &runtimeState{
		stdout: stdout,
		stderr: stderr,
		deps:   defaultRunDeps(),
	}
	cmd := newRootCommand(runtime)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd
}

func runWithDeps(args []string, stdout io.Writer, stderr io.Writer, deps runDeps) int {
	runtime := &runtimeState{
		stdout: stdout,
		stderr: stderr,
		deps:   deps,
	}

	cmd := newRootCommand(runtime)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	if err == nil {
		return 0
	}

	var codedErr *exitError
	if errors.As(err, &codedErr) {
		if codedErr.err != nil {
			fmt.Fprintln(stderr, codedErr.err)
		}
		if codedErr.code == 0 {
			return 2
		}
		return codedErr.code
	}

	fmt.Fprintln(stderr, err)
	return 2
}

func (r *runtimeState) appRunner() (appRunner, error) {
	if r.app != nil {
		return r.app, nil
	}

	home, err := r.deps.userHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home: %w", err)
	}

	a := r.deps.newApp(state.NewPaths(home), r.stdout, r.stderr)
	a.SetVerbose(!r.quiet)
	r.app = a
	return r.app, nil
}

func newRootCommand(runtime *runtimeState) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "rb",
		Short:         "Create branches across the repositories of a project.",
		Long:          "rb resolves what you selected (a commit, a file, or nothing) into a branch action and creates the branch in one or all repositories of the project.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cmd.Help(); err != nil {
				return withExitCode(2, err)
			}
			return withExitCode(2, errors.New("a command is required"))
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return withExitCode(2, err)
	})

	cmd.PersistentFlags().BoolVarP(&runtime.quiet, "quiet", "q", false, "Suppress verbose rb logs.")
	cmd.PersistentFlags().StringVar(&runtime.project, "project", "", "Directory inside the project (default: working directory or $"+app.ProjectEnv+").")

	cmd.AddCommand(
		newInitCommand(runtime),
		newNewCommand(runtime),
		newResolveCommand(runtime),
		newRepoCommand(runtime),
		newSyncSettingCommand(runtime),
	)
	cmd.AddCommand(newCompletionCommand(runtime, cmd))

	return cmd
}

func withExitCode(code int, err error) error {
	if err == nil {
		if code == 0 {
			return nil
		}
		return &exitError{code: code}
	}
	if code == 0 {
		code = 2
	}
	return &exitError{code: code, err: err}
}

func newInitCommand(runtime *runtimeState) *cobra.Command {
	var opts app.InitOptions
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a project file in the working directory.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			runner, err := runtime.appRunner()
			if err != nil {
				return withExitCode(2, err)
			}
			code, err := runner.RunInit(opts)
			return withExitCode(code, err)
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "Project name (default: directory name).")
	cmd.Flags().StringVar(&opts.Sync, "sync", "", "Synchronized branch operations (sync|dont_sync|not_decided).")
	cmd.Flags().BoolVar(&opts.AutoDiscover, "auto-discover", false, "Discover repositories on every run instead of declaring them.")
	return cmd
}

// selectionFlags are shared by commands that resolve a selection.
type selectionFlags struct {
	commits []string
	log     bool
	file    string
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.commits, "commit", nil, "Selected commit as <revision>[@<repository>] (repeatable).")
	cmd.Flags().BoolVar(&f.log, "log", false, "Treat the commit log as active even with no --commit.")
	cmd.Flags().StringVar(&f.file, "file", "", "Focused file used to infer the repository.")
}

func (f *selectionFlags) options(runtime *runtimeState) app.SelectionOptions {
	return app.SelectionOptions{
		Project: runtime.project,
		Commits: append([]string(nil), f.commits...),
		Log:     f.log,
		File:    f.file,
	}
}

func newNewCommand(runtime *runtimeState) *cobra.Command {
	var selection selectionFlags
	var name string
	var checkout bool
	var noCheckout bool
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a new branch for the current selection.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if checkout && noCheckout {
				return withExitCode(2, errors.New("--checkout and --no-checkout are mutually exclusive"))
			}
			runner, err := runtime.appRunner()
			if err != nil {
				return withExitCode(2, err)
			}
			opts := app.NewOptions{
				Selection: selection.options(runtime),
				Name:      name,
			}
			if checkout || noCheckout {
				opts.Checkout = &checkout
			}
			code, err := runner.RunNew(opts)
			return withExitCode(code, err)
		},
	}
	selection.register(cmd)
	cmd.Flags().StringVar(&name, "name", "", "Branch name; skips the interactive prompt.")
	cmd.Flags().BoolVar(&checkout, "checkout", false, "Check out the new branch.")
	cmd.Flags().BoolVar(&noCheckout, "no-checkout", false, "Create the branch without checking it out.")
	return cmd
}

func newResolveCommand(runtime *runtimeState) *cobra.Command {
	var selection selectionFlags
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show which branch action the current selection resolves to.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			runner, err := runtime.appRunner()
			if err != nil {
				return withExitCode(2, err)
			}
			code, err := runner.RunResolve(app.ResolveOptions{
				Selection: selection.options(runtime),
				JSON:      jsonOut,
			})
			return withExitCode(code, err)
		},
	}
	selection.register(cmd)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the resolution as JSON.")
	return cmd
}

func newRepoCommand(runtime *runtimeState) *cobra.Command {
	repoCmd := &cobra.Command{
		Use:           "repo",
		Short:         "Manage the repositories declared by the project.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cmd.Help(); err != nil {
				return withExitCode(2, err)
			}
			return withExitCode(2, errors.New("repo subcommand is required"))
		},
	}

	addCmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Declare a git repository as part of the project.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			runner, err := runtime.appRunner()
			if err != nil {
				return withExitCode(2, err)
			}
			code, err := runner.RunRepoAdd(runtime.project, args[0])
			return withExitCode(code, err)
		},
	}

	rmCmd := &cobra.Command{
		Use:   "rm <path>",
		Short: "Remove a repository from the project.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			runner, err := runtime.appRunner()
			if err != nil {
				return withExitCode(2, err)
			}
			code, err := runner.RunRepoRM(runtime.project, args[0])
			return withExitCode(code, err)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List project repositories with their current branch.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			runner, err := runtime.appRunner()
			if err != nil {
				return withExitCode(2, err)
			}
			code, err := runner.RunRepoList(runtime.project)
			return withExitCode(code, err)
		},
	}

	repoCmd.AddCommand(addCmd, rmCmd, listCmd)
	return repoCmd
}

func newSyncSettingCommand(runtime *runtimeState) *cobra.Command {
	return &cobra.Command{
		Use:       "sync-setting [sync|dont_sync|not_decided]",
		Short:     "Show or set synchronized branch operations for the project.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"sync", "dont_sync", "not_decided"},
		RunE: func(_ *cobra.Command, args []string) error {
			runner, err := runtime.appRunner()
			if err != nil {
				return withExitCode(2, err)
			}
			value := ""
			if len(args) == 1 {
				value = args[0]
			}
			code, err := runner.RunSyncSetting(runtime.project, value)
			return withExitCode(code, err)
		},
	}
}

func newCompletionCommand(runtime *runtimeState, root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:       "completion [bash|zsh|fish|powershell]",
		Short:     "Generate shell completion scripts.",
		Args:      cobra.ExactValidArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(_ *cobra.Command, args []string) error {
			var err error
			switch args[0] {
			case "bash":
				err = root.GenBashCompletionV2(runtime.stdout, true)
			case "zsh":
				err = root.GenZshCompletion(runtime.stdout)
			case "fish":
				err = root.GenFishCompletion(runtime.stdout, true)
			case "powershell":
				err = root.GenPowerShellCompletionWithDesc(runtime.stdout)
			default:
				err = fmt.Errorf("unsupported shell %q", args[0])
			}
			return withExitCode(0, err)
		},
	}
}
