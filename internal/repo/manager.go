package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"repobranch/internal/domain"
)

type LoadOptions struct {
	AutoDiscover bool
	MaxDepth     int
	Logf         func(format string, args ...any)
}

// Manager is an in-memory snapshot of the repositories of one project.
// Lookups never touch the filesystem after Load returns.
type Manager struct {
	repos  []domain.Repository
	byRoot map[string]int

	mu      sync.Mutex
	handles map[string]*gogit.Repository
}

func Load(ctx context.Context, project domain.Project, declared []domain.ProjectRepository, opts LoadOptions) (*Manager, error) {
	logf := opts.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	roots := make([]string, 0, len(declared))
	for _, d := range declared {
		path := strings.TrimSpace(d.Path)
		if path == "" {
			continue
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(project.Root, path)
		}
		roots = append(roots, path)
	}
	if opts.AutoDiscover {
		discovered, err := discoverRepos(project.Root, opts.MaxDepth)
		if err != nil {
			return nil, fmt.Errorf("discover repositories under %s: %w", project.Root, err)
		}
		logf("repo: discovered %d git repo(s) under %s", len(discovered), project.Root)
		roots = append(roots, discovered...)
	}
	roots = dedupeRoots(roots)

	m := &Manager{
		repos:   make([]domain.Repository, len(roots)),
		byRoot:  make(map[string]int, len(roots)),
		handles: make(map[string]*gogit.Repository, len(roots)),
	}

	type inspectResult struct {
		Index  int
		Repo   domain.Repository
		Handle *gogit.Repository
		Err    error
	}

	workerCount := inspectWorkerCount(len(roots))
	jobs := make(chan int)
	results := make(chan inspectResult, len(roots))
	for worker := 0; worker < workerCount; worker++ {
		go func() {
			for idx := range jobs {
				root := roots[idx]
				logf("repo: inspecting %s", root)
				repo, handle, err := inspect(root)
				if err != nil {
					results <- inspectResult{Index: idx, Err: fmt.Errorf("inspect repository %s: %w", root, err)}
					continue
				}
				results <- inspectResult{Index: idx, Repo: repo, Handle: handle}
			}
		}()
	}
	go func() {
		defer close(jobs)
		for idx := range roots {
			select {
			case jobs <- idx:
			case <-ctx.Done():
				return
			}
		}
	}()

	var firstErr error
	for i := 0; i < len(roots); i++ {
		var result inspectResult
		select {
		case result = <-results:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if result.Err != nil {
			if firstErr == nil {
				firstErr = result.Err
			}
			continue
		}
		m.repos[result.Index] = result.Repo
		m.handles[result.Repo.Root] = result.Handle
	}
	if firstErr != nil {
		return nil, firstErr
	}
	for idx, repo := range m.repos {
		m.byRoot[repo.Root] = idx
	}
	return m, nil
}

func inspect(root string) (domain.Repository, *gogit.Repository, error) {
	handle, err := gogit.PlainOpen(root)
	if err != nil {
		return domain.Repository{}, nil, err
	}
	repo := domain.Repository{
		Root: CanonicalRoot(root),
		Name: filepath.Base(root),
	}
	head, err := handle.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		repo.Fresh = true
		return repo, handle, nil
	}
	if err != nil {
		return domain.Repository{}, nil, err
	}
	repo.Head = domain.Hash(head.Hash().String())
	if head.Name().IsBranch() {
		repo.Branch = head.Name().Short()
	} else {
		repo.Branch = domain.HeadRef
	}
	return repo, handle, nil
}

func (m *Manager) RepositoryForRoot(root string) (domain.Repository, bool) {
	if strings.TrimSpace(root) == "" {
		return domain.Repository{}, false
	}
	idx, ok := m.byRoot[CanonicalRoot(root)]
	if !ok {
		return domain.Repository{}, false
	}
	return m.repos[idx], true
}

func (m *Manager) Repositories() []domain.Repository {
	out := make([]domain.Repository, len(m.repos))
	copy(out, m.repos)
	return out
}

func (m *Manager) MoreThanOneRoot() bool {
	return len(m.repos) > 1
}

// RootContaining returns the deepest known repository root that contains
// path, or an empty string.
func (m *Manager) RootContaining(path string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	target := CanonicalRoot(path)
	best := ""
	for _, repo := range m.repos {
		if !pathWithin(target, repo.Root) {
			continue
		}
		if len(repo.Root) > len(best) {
			best = repo.Root
		}
	}
	return best
}

func (m *Manager) BranchExists(repo domain.Repository, branch string) (bool, error) {
	handle, err := m.handle(repo.Root)
	if err != nil {
		return false, err
	}
	_, err = handle.Reference(plumbing.NewBranchReferenceName(branch), false)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ResolveCommit resolves a revision (full or abbreviated hash, branch, tag)
// to the commit hash it names.
func (m *Manager) ResolveCommit(repo domain.Repository, revision string) (domain.Hash, error) {
	handle, err := m.handle(repo.Root)
	if err != nil {
		return "", err
	}
	return resolveRevision(handle, revision)
}

// ResolveCommitAt opens the repository at root directly. It serves commit
// selections whose root is not part of the project.
func ResolveCommitAt(root string, revision string) (domain.Hash, error) {
	handle, err := gogit.PlainOpen(root)
	if err != nil {
		return "", fmt.Errorf("open repository %s: %w", root, err)
	}
	return resolveRevision(handle, revision)
}

func resolveRevision(handle *gogit.Repository, revision string) (domain.Hash, error) {
	hash, err := handle.ResolveRevision(plumbing.Revision(strings.TrimSpace(revision)))
	if err != nil {
		return "", fmt.Errorf("resolve revision %q: %w", revision, err)
	}
	return domain.ParseHash(hash.String())
}

func (m *Manager) handle(root string) (*gogit.Repository, error) {
	key := CanonicalRoot(root)
	m.mu.Lock()
	defer m.mu.Unlock()
	if handle, ok := m.handles[key]; ok {
		return handle, nil
	}
	handle, err := gogit.PlainOpen(key)
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", key, err)
	}
	m.handles[key] = handle
	return handle, nil
}

// CanonicalRoot returns an absolute, cleaned path with symlinks resolved
// when possible, so roots reported by git and by configuration compare equal.
func CanonicalRoot(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

func pathWithin(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func dedupeRoots(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, root := range in {
		key := CanonicalRoot(root)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, root)
	}
	return out
}

func inspectWorkerCount(repoCount int) int {
	if repoCount <= 0 {
		return 0
	}
	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}
	if workers > repoCount {
		workers = repoCount
	}
	return workers
}

// Discover lists git working trees under root, descending at most maxDepth
// directory levels. A working tree is not searched for nested ones.
func Discover(root string, maxDepth int) ([]string, error) {
	return discoverRepos(root, maxDepth)
}

func discoverRepos(root string, maxDepth int) ([]string, error) {
	out := []string{}
	if _, err := os.Stat(root); errors.Is(err, os.ErrNotExist) {
		return out, nil
	}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" {
			return filepath.SkipDir
		}
		if isGitDir(path) {
			out = append(out, path)
			return filepath.SkipDir
		}
		if maxDepth > 0 && depthBelow(root, path) >= maxDepth {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func depthBelow(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return len(strings.Split(rel, string(filepath.Separator)))
}

func isGitDir(path string) bool {
	_, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil
}
