package brancher

import (
	"context"
	"errors"
	"fmt"

	"repobranch/internal/domain"
	"repobranch/internal/gitx"
)

// GitBrancher applies branch operations repository by repository in the
// given order. When one repository fails, repositories already changed are
// rolled back so the set stays consistent.
type GitBrancher struct {
	Git  gitx.Runner
	Logf func(format string, args ...any)
}

func (b GitBrancher) logf(format string, args ...any) {
	if b.Logf != nil {
		b.Logf(format, args...)
	}
}

func (b GitBrancher) CreateBranch(ctx context.Context, name string, starts []domain.StartPoint) error {
	done := make([]domain.Repository, 0, len(starts))
	for _, start := range starts {
		b.logf("brancher: creating %q at %s in %s", name, start.Ref, start.Repository.Root)
		if err := b.Git.CreateBranch(ctx, start.Repository.Root, name, start.Ref); err != nil {
			failure := fmt.Errorf("create branch %q in %s: %w", name, start.Repository.Name, err)
			return errors.Join(failure, b.rollbackCreate(ctx, name, done))
		}
		done = append(done, start.Repository)
	}
	return nil
}

func (b GitBrancher) CreateBranchAt(ctx context.Context, name string, repo domain.Repository, hash domain.Hash) error {
	return b.CreateBranch(ctx, name, []domain.StartPoint{{Repository: repo, Ref: hash.String()}})
}

func (b GitBrancher) CheckoutNewBranch(ctx context.Context, name string, repos []domain.Repository) error {
	return b.checkoutNew(ctx, name, "", repos)
}

func (b GitBrancher) CheckoutNewBranchFrom(ctx context.Context, name string, startPoint string, repos []domain.Repository) error {
	return b.checkoutNew(ctx, name, startPoint, repos)
}

type checkedOut struct {
	repo     domain.Repository
	previous string
}

func (b GitBrancher) checkoutNew(ctx context.Context, name string, startPoint string, repos []domain.Repository) error {
	done := make([]checkedOut, 0, len(repos))
	for _, repo := range repos {
		previous, err := b.previousRef(ctx, repo)
		if err != nil {
			return errors.Join(err, b.rollbackCheckout(ctx, name, done))
		}
		b.logf("brancher: checking out new branch %q in %s", name, repo.Root)
		if err := b.Git.CheckoutNewBranch(ctx, repo.Root, name, startPoint); err != nil {
			failure := fmt.Errorf("checkout new branch %q in %s: %w", name, repo.Name, err)
			return errors.Join(failure, b.rollbackCheckout(ctx, name, done))
		}
		done = append(done, checkedOut{repo: repo, previous: previous})
	}
	return nil
}

func (b GitBrancher) previousRef(ctx context.Context, repo domain.Repository) (string, error) {
	branch, err := b.Git.CurrentBranch(ctx, repo.Root)
	if err != nil {
		return "", fmt.Errorf("repository %s: %w", repo.Name, err)
	}
	if branch != domain.HeadRef {
		return branch, nil
	}
	head, err := b.Git.HeadSHA(ctx, repo.Root)
	if err != nil {
		return "", fmt.Errorf("repository %s: %w", repo.Name, err)
	}
	return head, nil
}

func (b GitBrancher) rollbackCreate(ctx context.Context, name string, done []domain.Repository) error {
	var errs []error
	for i := len(done) - 1; i >= 0; i-- {
		repo := done[i]
		b.logf("brancher: rolling back %q in %s", name, repo.Root)
		if err := b.Git.DeleteBranch(ctx, repo.Root, name); err != nil {
			errs = append(errs, fmt.Errorf("rollback branch %q in %s: %w", name, repo.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (b GitBrancher) rollbackCheckout(ctx context.Context, name string, done []checkedOut) error {
	var errs []error
	for i := len(done) - 1; i >= 0; i-- {
		entry := done[i]
		b.logf("brancher: rolling back checkout of %q in %s", name, entry.repo.Root)
		if err := b.Git.Checkout(ctx, entry.repo.Root, entry.previous); err != nil {
			errs = append(errs, fmt.Errorf("rollback checkout in %s: %w", entry.repo.Name, err))
			continue
		}
		if err := b.Git.DeleteBranch(ctx, entry.repo.Root, name); err != nil {
			errs = append(errs, fmt.Errorf("rollback branch %q in %s: %w", name, entry.repo.Name, err))
		}
	}
	return errors.Join(errs...)
}
