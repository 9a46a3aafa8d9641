package e2e

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"repobranch/internal/testharness"
)

func setupUser(t *testing.T) (*testharness.Harness, *testharness.User) {
	t.Helper()
	h := testharness.NewHarness(t)
	return h, h.AddUser("dev")
}

// setupProject runs `rb init` over a directory holding the named
// repositories and returns the project root.
func setupProject(t *testing.T, u *testharness.User, sync string, repos ...string) string {
	t.Helper()
	root := u.ProjectDir("work")
	for _, name := range repos {
		u.MustInitRepo(filepath.Join(root, name))
	}
	args := []string{"init", "--name", "work"}
	if sync != "" {
		args = append(args, "--sync", sync)
	}
	if out, err := u.RunRB(root, args...); err != nil {
		t.Fatalf("rb init failed: %v\n%s", err, out)
	}
	return root
}

type resolution struct {
	Intent       string `json:"intent"`
	Visible      bool   `json:"visible"`
	Enabled      bool   `json:"enabled"`
	Title        string `json:"title"`
	Commit       string `json:"commit"`
	Repositories []struct {
		Name string `json:"name"`
		Root string `json:"root"`
	} `json:"repositories"`
}

func (r resolution) names() string {
	names := make([]string, 0, len(r.Repositories))
	for _, repo := range r.Repositories {
		names = append(names, repo.Name)
	}
	return strings.Join(names, ",")
}

func mustResolve(t *testing.T, u *testharness.User, dir string, args ...string) resolution {
	t.Helper()
	stdout, stderr, err := u.RunRBSplit(dir, append([]string{"resolve", "--json"}, args...)...)
	if err != nil {
		t.Fatalf("rb resolve failed: %v\n%s%s", err, stdout, stderr)
	}
	var r resolution
	if err := json.Unmarshal([]byte(stdout), &r); err != nil {
		t.Fatalf("decode resolve output: %v\n%s", err, stdout)
	}
	return r
}

func currentBranch(t *testing.T, u *testharness.User, dir string) string {
	t.Helper()
	return strings.TrimSpace(u.MustRunGit(dir, "rev-parse", "--abbrev-ref", "HEAD"))
}

func hasBranch(u *testharness.User, dir string, branch string) bool {
	_, err := u.RunGit(dir, "rev-parse", "--verify", "--quiet", "refs/heads/"+branch)
	return err == nil
}
