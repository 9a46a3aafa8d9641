package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"repobranch/internal/domain"
	"repobranch/internal/repo"
)

// buildSelection turns command-line selection flags into the immutable
// selection context the resolver consumes.
func (a *App) buildSelection(ctx context.Context, ws workspace, opts SelectionOptions) (domain.SelectionContext, error) {
	sel := domain.SelectionContext{Project: ws.Project}
	if file := strings.TrimSpace(opts.File); file != "" {
		sel.File = absFrom(ws.WorkingDir, file)
	}
	if !opts.Log && len(opts.Commits) == 0 {
		return sel, nil
	}

	sel.Log = &domain.LogSelection{Commits: make([]domain.CommitRecord, 0, len(opts.Commits))}
	if ws.Project == nil || len(opts.Commits) > 1 {
		// Resolution depends only on the commit count here.
		for _, raw := range opts.Commits {
			sel.Log.Commits = append(sel.Log.Commits, unresolvedCommit(ws, raw))
		}
		return sel, nil
	}
	for _, raw := range opts.Commits {
		record, err := a.resolveCommitSelection(ctx, ws, sel.File, raw)
		if err != nil {
			return domain.SelectionContext{}, err
		}
		sel.Log.Commits = append(sel.Log.Commits, record)
	}
	return sel, nil
}

func (a *App) resolveCommitSelection(ctx context.Context, ws workspace, file string, raw string) (domain.CommitRecord, error) {
	revision, root := splitCommitSelection(raw)
	if revision == "" {
		return domain.CommitRecord{}, fmt.Errorf("invalid --commit %q: revision is empty", raw)
	}

	if root == "" {
		guessed, err := a.defaultCommitRoot(ctx, ws, file)
		if err != nil {
			return domain.CommitRecord{}, fmt.Errorf("invalid --commit %q: %w", raw, err)
		}
		root = guessed
	} else {
		root = repo.CanonicalRoot(absFrom(ws.WorkingDir, root))
	}

	var (
		hash domain.Hash
		err  error
	)
	if known, ok := repositoryForRoot(ws, root); ok {
		hash, err = ws.Manager.ResolveCommit(known, revision)
	} else {
		a.logf("selection: %s is not a project repository", root)
		hash, err = repo.ResolveCommitAt(root, revision)
	}
	if err != nil {
		return domain.CommitRecord{}, fmt.Errorf("invalid --commit %q: %w", raw, err)
	}
	a.logf("selection: commit %s in %s", hash.Short(), root)
	return domain.CommitRecord{Root: root, Hash: hash}, nil
}

// unresolvedCommit records a commit selection without touching any
// repository. Only an explicit root is kept.
func unresolvedCommit(ws workspace, raw string) domain.CommitRecord {
	_, root := splitCommitSelection(raw)
	if root == "" {
		return domain.CommitRecord{}
	}
	return domain.CommitRecord{Root: repo.CanonicalRoot(absFrom(ws.WorkingDir, root))}
}

// defaultCommitRoot picks the repository a commit without an explicit root
// belongs to: the project repository holding the focused file or working
// directory, else the git working tree around the working directory.
func (a *App) defaultCommitRoot(ctx context.Context, ws workspace, file string) (string, error) {
	if ws.Project != nil {
		if root := ws.guesser().GuessRoot(*ws.Project, file); root != "" {
			return root, nil
		}
	}
	top, err := a.Git.TopLevel(ctx, ws.WorkingDir)
	if err != nil {
		return "", fmt.Errorf("cannot infer repository, use <revision>@<root>: %w", err)
	}
	return repo.CanonicalRoot(top), nil
}

func repositoryForRoot(ws workspace, root string) (domain.Repository, bool) {
	if ws.Manager == nil {
		return domain.Repository{}, false
	}
	return ws.Manager.RepositoryForRoot(root)
}

// splitCommitSelection splits `<revision>@<root>`. An `@` that starts a
// reflog suffix such as `HEAD@{1}` belongs to the revision.
func splitCommitSelection(raw string) (revision string, root string) {
	raw = strings.TrimSpace(raw)
	idx := strings.LastIndex(raw, "@")
	if idx < 0 {
		return raw, ""
	}
	suffix := raw[idx+1:]
	if suffix == "" || strings.HasPrefix(suffix, "{") {
		return raw, ""
	}
	return strings.TrimSpace(raw[:idx]), strings.TrimSpace(suffix)
}

func absFrom(base string, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}
