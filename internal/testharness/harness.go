package testharness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"
)

var (
	buildOnce sync.Once
	buildPath string
	buildErr  error
)

type Harness struct {
	t          *testing.T
	Root       string
	BinaryPath string
	Users      map[string]*User
}

// User is one home directory running rb with its own config and lock.
type User struct {
	t       *testing.T
	Harness *Harness
	Name    string
	Home    string
}

func NewHarness(t *testing.T) *Harness {
	t.Helper()

	root := t.TempDir()
	bin := buildBinary(t)
	return &Harness{t: t, Root: root, BinaryPath: bin, Users: map[string]*User{}}
}

func buildBinary(t *testing.T) string {
	t.Helper()

	buildOnce.Do(func() {
		path := filepath.Join(os.TempDir(), fmt.Sprintf("rb-test-%d", time.Now().UnixNano()))
		if runtime.GOOS == "windows" {
			path += ".exe"
		}
		cmd := exec.Command("go", "build", "-o", path, "./cmd/rb")
		cmd.Dir = repoRootFromWD(t)
		cmd.Env = append(os.Environ(), "GOCACHE=/tmp/go-cache", "GOMODCACHE=/tmp/go-mod")
		out, err := cmd.CombinedOutput()
		if err != nil {
			buildErr = fmt.Errorf("build rb: %w: %s", err, string(out))
			return
		}
		buildPath = path
	})

	if buildErr != nil {
		t.Fatal(buildErr)
	}
	return buildPath
}

func repoRootFromWD(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(wd, "go.mod")); err == nil {
			return wd
		}
		parent := filepath.Dir(wd)
		if parent == wd {
			t.Fatalf("could not find go.mod from %q", wd)
		}
		wd = parent
	}
}

func (h *Harness) AddUser(name string) *User {
	h.t.Helper()

	home := filepath.Join(h.Root, "users", name, "home")
	mustMkdirAll(h.t, home)
	u := &User{t: h.t, Harness: h, Name: name, Home: home}
	h.Users[name] = u
	u.MustWriteFile(u.ConfigPath(), defaultConfigYAML())
	return u
}

func defaultConfigYAML() string {
	return strings.TrimSpace(`
version: 1
default_sync: not_decided
prompt:
  checkout_by_default: true
discovery:
  max_depth: 3
`) + "\n"
}

func (u *User) ConfigRoot() string {
	return filepath.Join(u.Home, ".config", "repobranch")
}

func (u *User) ConfigPath() string {
	return filepath.Join(u.ConfigRoot(), "config.yaml")
}

func (u *User) LocalStateRoot() string {
	return filepath.Join(u.Home, ".local", "state", "repobranch")
}

// ProjectDir returns a fresh directory for a project owned by u.
func (u *User) ProjectDir(name string) string {
	u.t.Helper()
	dir := filepath.Join(u.Harness.Root, "users", u.Name, "src", name)
	mustMkdirAll(u.t, dir)
	return dir
}

func (u *User) env() []string {
	return append(os.Environ(),
		"HOME="+u.Home,
		"RB_PROJECT=",
		"GOCACHE=/tmp/go-cache",
		"GOMODCACHE=/tmp/go-mod",
		"GIT_CONFIG_GLOBAL=/dev/null",
		"GIT_CONFIG_NOSYSTEM=1",
		"GIT_AUTHOR_NAME=rb-test",
		"GIT_AUTHOR_EMAIL=rb-test@example.com",
		"GIT_COMMITTER_NAME=rb-test",
		"GIT_COMMITTER_EMAIL=rb-test@example.com",
	)
}

// RunRB runs rb in dir and returns stdout followed by stderr.
func (u *User) RunRB(dir string, args ...string) (string, error) {
	u.t.Helper()
	stdout, stderr, err := u.RunRBSplit(dir, args...)
	return stdout + stderr, err
}

func (u *User) RunRBSplit(dir string, args ...string) (string, string, error) {
	u.t.Helper()

	cmd := exec.Command(u.Harness.BinaryPath, args...)
	cmd.Dir = dir
	cmd.Env = u.env()
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func (u *User) RunGit(dir string, args ...string) (string, error) {
	u.t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = u.env()
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func (u *User) MustRunGit(dir string, args ...string) string {
	u.t.Helper()
	out, err := u.RunGit(dir, args...)
	if err != nil {
		u.t.Fatalf("git %v in %s failed: %v\n%s", args, dir, err, out)
	}
	return out
}

// MustInitRepo creates a repository at dir with a single commit and returns
// its head hash.
func (u *User) MustInitRepo(dir string) string {
	u.t.Helper()
	mustMkdirAll(u.t, dir)
	u.MustRunGit(dir, "init", "-b", "main")
	u.MustWriteFile(filepath.Join(dir, "README.md"), filepath.Base(dir)+"\n")
	u.MustRunGit(dir, "add", "-A")
	u.MustRunGit(dir, "commit", "-m", "init")
	return strings.TrimSpace(u.MustRunGit(dir, "rev-parse", "HEAD"))
}

func (u *User) MustWriteFile(path, contents string) {
	u.t.Helper()
	mustMkdirAll(u.t, filepath.Dir(path))
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		u.t.Fatalf("write file %s: %v", path, err)
	}
}

func (u *User) MustReadFile(path string) string {
	u.t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		u.t.Fatalf("read file %s: %v", path, err)
	}
	return string(b)
}

// ExitCode returns the process exit code carried by err, 0 for nil.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func mustMkdirAll(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
}
