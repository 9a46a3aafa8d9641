package domain

type RepositoryManager interface {
	RepositoryForRoot(root string) (Repository, bool)
	Repositories() []Repository
	MoreThanOneRoot() bool
}

type SettingsStore interface {
	SyncSetting(project Project) SyncSetting
}

// RootGuesser infers the repository root a file belongs to. An empty result
// means no root could be inferred.
type RootGuesser interface {
	GuessRoot(project Project, file string) string
}

type Resolver struct {
	Repositories RepositoryManager
	Settings     SettingsStore
	Roots        RootGuesser
}

func (r Resolver) Resolve(ctx SelectionContext) Intent {
	if ctx.Project == nil {
		return Invisible{}
	}
	project := *ctx.Project

	if ctx.Log != nil {
		commits := ctx.Log.Commits
		if len(commits) == 0 {
			return Invisible{}
		}
		if len(commits) > 1 {
			return Disabled{}
		}
		commit := commits[0]
		if repo, ok := r.Repositories.RepositoryForRoot(commit.Root); ok {
			return FromCommit{Repository: repo, Hash: commit.Hash}
		}
		// Unknown root: fall back to the repository candidates below.
	}

	candidates, ok := r.candidates(project, ctx.File)
	if !ok {
		return Invisible{}
	}
	for _, repo := range candidates {
		if repo.Fresh {
			return Invisible{}
		}
	}
	return FromRepositories{Project: project, Repositories: candidates}
}

func (r Resolver) candidates(project Project, file string) ([]Repository, bool) {
	all := r.Repositories.Repositories()
	if len(all) == 0 {
		return nil, false
	}
	if !r.Repositories.MoreThanOneRoot() {
		return []Repository{all[0]}, true
	}
	if r.Settings.SyncSetting(project).IsSync() {
		out := make([]Repository, len(all))
		copy(out, all)
		return out, true
	}
	root := r.Roots.GuessRoot(project, file)
	if root == "" {
		return nil, false
	}
	repo, ok := r.Repositories.RepositoryForRoot(root)
	if !ok {
		return nil, false
	}
	return []Repository{repo}, true
}
