package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"repobranch/internal/domain"
	"repobranch/internal/gitx"
	"repobranch/internal/repo"
	"repobranch/internal/state"
)

// ProjectEnv overrides the directory project discovery starts from.
const ProjectEnv = "RB_PROJECT"

type App struct {
	Paths   state.Paths
	Stdout  io.Writer
	Stderr  io.Writer
	Verbose bool
	Getwd   func() (string, error)
	Getenv  func(string) string
	Git     gitx.Runner

	IsInteractiveTerminal func() bool
	RunNamePrompt         NamePromptRunner

	logMu sync.Mutex
}

type SelectionOptions struct {
	// Project is a directory inside the project; empty means the working
	// directory or RB_PROJECT.
	Project string
	// Commits are `<revision>[@<repository root>]` selections.
	Commits []string
	// Log marks the commit log as active even when Commits is empty.
	Log  bool
	File string
}

type NewOptions struct {
	Selection SelectionOptions
	Name      string
	// Checkout overrides prompt.checkout_by_default when set.
	Checkout *bool
}

type ResolveOptions struct {
	Selection SelectionOptions
	JSON      bool
}

type InitOptions struct {
	Name         string
	Sync         string
	AutoDiscover bool
}

func New(paths state.Paths, stdout io.Writer, stderr io.Writer) *App {
	return &App{
		Paths:                 paths,
		Stdout:                stdout,
		Stderr:                stderr,
		Verbose:               true,
		Getwd:                 os.Getwd,
		Getenv:                os.Getenv,
		Git:                   gitx.Runner{},
		IsInteractiveTerminal: defaultIsInteractiveTerminal,
		RunNamePrompt:         runNamePromptInteractive,
	}
}

func (a *App) SetVerbose(verbose bool) {
	a.Verbose = verbose
}

func (a *App) logf(format string, args ...any) {
	if !a.Verbose {
		return
	}
	a.logMu.Lock()
	defer a.logMu.Unlock()
	fmt.Fprintf(a.Stderr, "rb: "+format+"\n", args...)
}

// workspace is everything one invocation knows about the current project.
// Project and Manager are nil when no project file was found.
type workspace struct {
	Config     domain.ConfigFile
	WorkingDir string

	Root    string
	File    domain.ProjectFile
	Project *domain.Project
	Manager *repo.Manager
}

func (w workspace) resolver() domain.Resolver {
	return domain.Resolver{
		Repositories: w.Manager,
		Settings:     state.Settings{Config: w.Config, Project: w.File},
		Roots:        w.guesser(),
	}
}

func (w workspace) guesser() repo.RootGuesser {
	return repo.RootGuesser{Manager: w.Manager, WorkingDir: w.WorkingDir}
}

func (a *App) workingDir() (string, error) {
	wd, err := a.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}
	return wd, nil
}

func (a *App) projectSearchDir(explicit string, wd string) string {
	if dir := strings.TrimSpace(explicit); dir != "" {
		return absFrom(wd, dir)
	}
	if a.Getenv != nil {
		if dir := strings.TrimSpace(a.Getenv(ProjectEnv)); dir != "" {
			return absFrom(wd, dir)
		}
	}
	return wd
}

// loadWorkspace reads the global config and, when a project file is found,
// the project and a snapshot of its repositories.
func (a *App) loadWorkspace(ctx context.Context, projectDir string) (workspace, error) {
	ws, err := a.locateWorkspace(projectDir)
	if err != nil || ws.Project == nil {
		return ws, err
	}
	manager, err := repo.Load(ctx, *ws.Project, ws.File.Repositories, repo.LoadOptions{
		AutoDiscover: ws.File.AutoDiscover,
		MaxDepth:     ws.Config.Discovery.MaxDepth,
		Logf:         a.logf,
	})
	if err != nil {
		return workspace{}, err
	}
	a.logf("loaded %d repository(ies)", len(manager.Repositories()))
	ws.Manager = manager
	return ws, nil
}

// locateWorkspace is loadWorkspace without inspecting repositories, for
// commands that only edit the project file.
func (a *App) locateWorkspace(projectDir string) (workspace, error) {
	a.logf("loading config from %s", a.Paths.ConfigPath())
	cfg, err := state.LoadConfig(a.Paths)
	if err != nil {
		return workspace{}, err
	}
	wd, err := a.workingDir()
	if err != nil {
		return workspace{}, err
	}
	ws := workspace{Config: cfg, WorkingDir: wd}

	searchDir := a.projectSearchDir(projectDir, wd)
	root, found, err := state.FindProjectRoot(searchDir)
	if err != nil {
		return workspace{}, fmt.Errorf("locate project from %s: %w", searchDir, err)
	}
	if !found {
		a.logf("no %s found from %s", domain.ProjectFileName, searchDir)
		return ws, nil
	}

	pf, err := state.LoadProject(root)
	if err != nil {
		return workspace{}, err
	}
	project := domain.Project{Name: pf.Name, Root: repo.CanonicalRoot(root)}
	a.logf("project %q at %s", project.Name, project.Root)
	ws.Root = root
	ws.File = pf
	ws.Project = &project
	return ws, nil
}

// requireProject is loadWorkspace for commands that are meaningless outside
// a project.
func (a *App) requireProject(ctx context.Context, projectDir string) (workspace, error) {
	ws, err := a.loadWorkspace(ctx, projectDir)
	if err != nil {
		return workspace{}, err
	}
	if ws.Project == nil {
		return workspace{}, errNoProject
	}
	return ws, nil
}

func (a *App) requireProjectFile(projectDir string) (workspace, error) {
	ws, err := a.locateWorkspace(projectDir)
	if err != nil {
		return workspace{}, err
	}
	if ws.Project == nil {
		return workspace{}, errNoProject
	}
	return ws, nil
}

var errNoProject = errors.New("no " + domain.ProjectFileName + " found; run `rb init` in the project directory")

func (a *App) withLock(label string, fn func() (int, error)) (int, error) {
	a.logf("%s: acquiring global lock", label)
	lock, err := state.AcquireLock(a.Paths, label)
	if err != nil {
		return 2, err
	}
	defer func() {
		_ = lock.Release()
		a.logf("%s: released global lock", label)
	}()
	return fn()
}
