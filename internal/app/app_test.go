package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"repobranch/internal/domain"
	"repobranch/internal/gitx"
	"repobranch/internal/repo"
	"repobranch/internal/state"
)

var testGit = gitx.Runner{Env: []string{
	"GIT_CONFIG_GLOBAL=/dev/null",
	"GIT_CONFIG_NOSYSTEM=1",
	"GIT_AUTHOR_NAME=rb-test",
	"GIT_AUTHOR_EMAIL=rb-test@example.com",
	"GIT_COMMITTER_NAME=rb-test",
	"GIT_COMMITTER_EMAIL=rb-test@example.com",
}}

type testApp struct {
	*App
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	home   string
	env    map[string]string
}

func newTestApp(t *testing.T, wd string) *testApp {
	t.Helper()
	var stdout, stderr bytes.Buffer
	home := t.TempDir()
	ta := &testApp{
		App:    New(state.NewPaths(home), &stdout, &stderr),
		stdout: &stdout,
		stderr: &stderr,
		home:   home,
		env:    map[string]string{},
	}
	ta.Git = testGit
	ta.Getwd = func() (string, error) { return wd, nil }
	ta.Getenv = func(key string) string { return ta.env[key] }
	ta.IsInteractiveTerminal = func() bool { return false }
	ta.RunNamePrompt = func(NamePromptInput) (NamePromptResult, error) {
		t.Fatal("unexpected name prompt")
		return NamePromptResult{}, nil
	}
	return ta
}

func (ta *testApp) chdir(wd string) {
	ta.Getwd = func() (string, error) { return wd, nil }
}

func mustInitRepo(t *testing.T, path string, withCommit bool) string {
	t.Helper()
	ctx := context.Background()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if _, err := testGit.RunGit(ctx, path, "init", "-b", "main"); err != nil {
		t.Fatalf("init %s: %v", path, err)
	}
	if !withCommit {
		return ""
	}
	return mustCommit(t, path, "init")
}

func mustCommit(t *testing.T, path string, message string) string {
	t.Helper()
	ctx := context.Background()
	file := filepath.Join(path, "CHANGES")
	prev, _ := os.ReadFile(file)
	if err := os.WriteFile(file, append(prev, []byte(message+"\n")...), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := testGit.RunGit(ctx, path, "add", "-A"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := testGit.RunGit(ctx, path, "commit", "-m", message); err != nil {
		t.Fatalf("commit: %v", err)
	}
	head, err := testGit.HeadSHA(ctx, path)
	if err != nil || head == "" {
		t.Fatalf("head: %q %v", head, err)
	}
	return head
}

// newTestProject creates a project with the named repositories, each with
// one commit, and returns its root.
func newTestProject(t *testing.T, sync domain.SyncSetting, names ...string) string {
	t.Helper()
	root := t.TempDir()
	pf := domain.ProjectFile{Version: 1, Name: "work", Sync: sync}
	for _, name := range names {
		mustInitRepo(t, filepath.Join(root, name), true)
		pf.Repositories = append(pf.Repositories, domain.ProjectRepository{Path: name})
	}
	if err := state.SaveProject(root, pf); err != nil {
		t.Fatalf("save project: %v", err)
	}
	return root
}

func branchExists(t *testing.T, path string, branch string) bool {
	t.Helper()
	_, err := testGit.RunGit(context.Background(), path, "rev-parse", "--verify", "--quiet", "refs/heads/"+branch)
	return err == nil
}

func currentBranch(t *testing.T, path string) string {
	t.Helper()
	branch, _ := testGit.CurrentBranch(context.Background(), path)
	return branch
}

func canonical(path string) string {
	return repo.CanonicalRoot(path)
}

func TestLogfPrefixesAndRespectsQuiet(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, t.TempDir())
	ta.logf("loaded %d", 2)
	if got := ta.stderr.String(); got != "rb: loaded 2\n" {
		t.Fatalf("stderr = %q", got)
	}

	ta.stderr.Reset()
	ta.SetVerbose(false)
	ta.logf("hidden")
	if ta.stderr.Len() != 0 {
		t.Fatalf("quiet app logged %q", ta.stderr.String())
	}
}

func TestLoadWorkspaceHonorsProjectEnv(t *testing.T) {
	t.Parallel()

	root := newTestProject(t, "", "api")
	ta := newTestApp(t, t.TempDir())
	ta.env[ProjectEnv] = root

	ws, err := ta.loadWorkspace(context.Background(), "")
	if err != nil {
		t.Fatalf("loadWorkspace() error = %v", err)
	}
	if ws.Project == nil || ws.Project.Root != canonical(root) {
		t.Fatalf("project = %+v, want root %s", ws.Project, canonical(root))
	}
	if got := len(ws.Manager.Repositories()); got != 1 {
		t.Fatalf("repositories = %d, want 1", got)
	}
}

func TestLoadWorkspaceWithoutProject(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, t.TempDir())
	ws, err := ta.loadWorkspace(context.Background(), "")
	if err != nil {
		t.Fatalf("loadWorkspace() error = %v", err)
	}
	if ws.Project != nil || ws.Manager != nil {
		t.Fatalf("expected no project, got %+v", ws)
	}
	if !strings.Contains(ta.stderr.String(), "no "+domain.ProjectFileName+" found") {
		t.Fatalf("stderr = %q", ta.stderr.String())
	}
	if _, err := ta.requireProject(context.Background(), ""); err == nil {
		t.Fatal("requireProject() expected error outside a project")
	}
}
