package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"repobranch/internal/domain"
	"repobranch/internal/repo"
	"repobranch/internal/state"
)

// RunInit writes a project file into the working directory, declaring the
// git repositories found below it.
func (a *App) RunInit(opts InitOptions) (int, error) {
	return a.withLock("init", func() (int, error) {
		return a.runInit(opts)
	})
}

func (a *App) runInit(opts InitOptions) (int, error) {
	cfg, err := state.LoadConfig(a.Paths)
	if err != nil {
		return 2, err
	}
	wd, err := a.workingDir()
	if err != nil {
		return 2, err
	}
	path := state.ProjectFilePath(wd)
	if _, err := os.Stat(path); err == nil {
		return 2, fmt.Errorf("%s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return 2, err
	}

	pf := domain.ProjectFile{
		Version:      domain.Version,
		Name:         strings.TrimSpace(opts.Name),
		AutoDiscover: opts.AutoDiscover,
	}
	if pf.Name == "" {
		pf.Name = filepath.Base(wd)
	}
	if strings.TrimSpace(opts.Sync) != "" {
		setting, err := domain.ParseSyncSetting(opts.Sync)
		if err != nil {
			return 2, err
		}
		pf.Sync = setting
	}

	if !opts.AutoDiscover {
		found, err := repo.Discover(wd, cfg.Discovery.MaxDepth)
		if err != nil {
			return 2, fmt.Errorf("discover repositories under %s: %w", wd, err)
		}
		for _, root := range found {
			pf.Repositories = append(pf.Repositories, domain.ProjectRepository{Path: projectRelative(wd, root)})
		}
		a.logf("init: declared %d repository(ies)", len(pf.Repositories))
	}

	if err := state.SaveProject(wd, pf); err != nil {
		return 2, err
	}
	fmt.Fprintf(a.Stdout, "initialized project %q at %s\n", pf.Name, wd)
	return 0, nil
}

func (a *App) RunRepoAdd(projectDir string, path string) (int, error) {
	return a.withLock("repo add", func() (int, error) {
		ctx := context.Background()
		ws, err := a.requireProjectFile(projectDir)
		if err != nil {
			return 2, err
		}
		target := absFrom(ws.WorkingDir, path)
		if !a.Git.IsGitRepo(ctx, target) {
			return 2, fmt.Errorf("%s is not a git repository", target)
		}
		top, err := a.Git.TopLevel(ctx, target)
		if err != nil {
			return 2, err
		}
		root := repo.CanonicalRoot(top)
		for _, existing := range ws.File.Repositories {
			if declaredRoot(ws, existing) == root {
				return 2, fmt.Errorf("repository %s is already declared", root)
			}
		}
		ws.File.Repositories = append(ws.File.Repositories, domain.ProjectRepository{Path: projectRelative(ws.Root, root)})
		if err := state.SaveProject(ws.Root, ws.File); err != nil {
			return 2, err
		}
		a.logf("repo add: declared %s", root)
		return 0, nil
	})
}

func (a *App) RunRepoRM(projectDir string, path string) (int, error) {
	return a.withLock("repo rm", func() (int, error) {
		ws, err := a.requireProjectFile(projectDir)
		if err != nil {
			return 2, err
		}
		target := repo.CanonicalRoot(absFrom(ws.WorkingDir, path))
		out := make([]domain.ProjectRepository, 0, len(ws.File.Repositories))
		for _, existing := range ws.File.Repositories {
			if declaredRoot(ws, existing) == target || strings.TrimSpace(existing.Path) == strings.TrimSpace(path) {
				continue
			}
			out = append(out, existing)
		}
		if len(out) == len(ws.File.Repositories) {
			return 2, fmt.Errorf("repository %q is not declared", path)
		}
		ws.File.Repositories = out
		if err := state.SaveProject(ws.Root, ws.File); err != nil {
			return 2, err
		}
		a.logf("repo rm: removed %s", target)
		return 0, nil
	})
}

func (a *App) RunRepoList(projectDir string) (int, error) {
	a.logf("repo list: loading project")
	ws, err := a.requireProject(context.Background(), projectDir)
	if err != nil {
		return 2, err
	}
	repos := ws.Manager.Repositories()
	for _, r := range repos {
		branch := r.Branch
		if r.Fresh {
			branch = "(no commits)"
		}
		fmt.Fprintf(a.Stdout, "%s\t%s\t%s\n", r.Name, branch, r.Root)
	}
	a.logf("repo list: reported %d repository(ies)", len(repos))
	return 0, nil
}

// RunSyncSetting prints the effective sync setting, or stores a new project
// value when one is given.
func (a *App) RunSyncSetting(projectDir string, value string) (int, error) {
	if strings.TrimSpace(value) == "" {
		ws, err := a.requireProjectFile(projectDir)
		if err != nil {
			return 2, err
		}
		source := "project"
		if strings.TrimSpace(string(ws.File.Sync)) == "" {
			source = "default"
		}
		setting := state.Settings{Config: ws.Config, Project: ws.File}.SyncSetting(*ws.Project)
		fmt.Fprintf(a.Stdout, "%s\t(%s)\n", setting, source)
		return 0, nil
	}

	setting, err := domain.ParseSyncSetting(value)
	if err != nil {
		return 2, err
	}
	return a.withLock("sync-setting", func() (int, error) {
		ws, err := a.requireProjectFile(projectDir)
		if err != nil {
			return 2, err
		}
		ws.File.Sync = setting
		if err := state.SaveProject(ws.Root, ws.File); err != nil {
			return 2, err
		}
		a.logf("sync-setting: set %s for project %q", setting, ws.Project.Name)
		return 0, nil
	})
}

func declaredRoot(ws workspace, pr domain.ProjectRepository) string {
	return repo.CanonicalRoot(absFrom(ws.Root, strings.TrimSpace(pr.Path)))
}

// projectRelative stores repositories inside the project relative to its
// root so the project directory can move.
func projectRelative(projectRoot string, root string) string {
	rel, err := filepath.Rel(repo.CanonicalRoot(projectRoot), repo.CanonicalRoot(root))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return root
	}
	return filepath.ToSlash(rel)
}
