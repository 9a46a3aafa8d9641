package gitx

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

type Runner struct {
	// Env is appended to the process environment of every git invocation.
	Env []string
}

type Result struct {
	Stdout string
	Stderr string
}

func (r Runner) run(ctx context.Context, dir string, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), r.Env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		return Result{Stdout: stdout.String(), Stderr: stderr.String()}, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return Result{Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

func (r Runner) RunGit(ctx context.Context, dir string, args ...string) (string, error) {
	res, err := r.run(ctx, dir, "git", args...)
	return strings.TrimSpace(res.Stdout), err
}

func (r Runner) IsGitRepo(ctx context.Context, path string) bool {
	_, err := r.RunGit(ctx, path, "rev-parse", "--is-inside-work-tree")
	return err == nil
}

// TopLevel returns the root of the working tree containing path.
func (r Runner) TopLevel(ctx context.Context, path string) (string, error) {
	out, err := r.RunGit(ctx, path, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("not in a git repository: %w", err)
	}
	return out, nil
}


// CurrentBranch returns the checked out branch, or "HEAD" when detached.
// It fails on a repository without commits.
func (r Runner) CurrentBranch(ctx context.Context, path string) (string, error) {
	out, err := r.RunGit(ctx, path, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("current branch: %w", err)
	}
	return out, nil
}

func (r Runner) HeadSHA(ctx context.Context, path string) (string, error) {
	out, err := r.RunGit(ctx, path, "rev-parse", "--verify", "HEAD")
	if err != nil {
		return "", fmt.Errorf("head commit: %w", err)
	}
	return out, nil
}

func (r Runner) CreateBranch(ctx context.Context, path, branch, startPoint string) error {
	args := []string{"branch", "--no-track", branch}
	if startPoint != "" {
		args = append(args, startPoint)
	}
	_, err := r.RunGit(ctx, path, args...)
	return err
}

func (r Runner) CheckoutNewBranch(ctx context.Context, path, branch, startPoint string) error {
	args := []string{"checkout", "--no-track", "-b", branch}
	if startPoint != "" {
		args = append(args, startPoint)
	}
	_, err := r.RunGit(ctx, path, args...)
	return err
}

func (r Runner) Checkout(ctx context.Context, path, ref string) error {
	_, err := r.RunGit(ctx, path, "checkout", ref)
	return err
}

func (r Runner) DeleteBranch(ctx context.Context, path, branch string) error {
	_, err := r.RunGit(ctx, path, "branch", "-D", branch)
	return err
}
