package brancher

import (
	"context"
	"fmt"

	"repobranch/internal/domain"
)

const (
	TitleCreateBranch     = "Create New Branch"
	titleCreateBranchFrom = "Create New Branch From %s"
)

type Service interface {
	CreateBranch(ctx context.Context, name string, starts []domain.StartPoint) error
	CheckoutNewBranch(ctx context.Context, name string, repos []domain.Repository) error
	CreateBranchAt(ctx context.Context, name string, repo domain.Repository, hash domain.Hash) error
	CheckoutNewBranchFrom(ctx context.Context, name string, startPoint string, repos []domain.Repository) error
}

// NamePrompter asks for a new branch name. ok is false when the user
// cancelled.
type NamePrompter interface {
	PromptForBranchName(ctx context.Context, project domain.Project, repos []domain.Repository, title string) (opts domain.BranchOptions, ok bool, err error)
}

type Executor struct {
	Project domain.Project
	Prompt  NamePrompter
	Service Service
}

type Result struct {
	Performed    bool
	Branch       string
	Checkout     bool
	StartPoint   string
	Repositories []domain.Repository
}

func CommitTitle(hash domain.Hash) string {
	return fmt.Sprintf(titleCreateBranchFrom, hash.Short())
}

func (e Executor) Execute(ctx context.Context, in domain.Intent) (Result, error) {
	switch in := in.(type) {
	case domain.FromCommit:
		return e.fromCommit(ctx, in)
	case domain.FromRepositories:
		return e.fromRepositories(ctx, in)
	default:
		return Result{}, nil
	}
}

func (e Executor) fromCommit(ctx context.Context, in domain.FromCommit) (Result, error) {
	repos := []domain.Repository{in.Repository}
	opts, ok, err := e.Prompt.PromptForBranchName(ctx, e.Project, repos, CommitTitle(in.Hash))
	if err != nil {
		return Result{}, fmt.Errorf("prompt for branch name: %w", err)
	}
	if !ok {
		return Result{}, nil
	}

	result := Result{Performed: true, Branch: opts.Name, Checkout: opts.Checkout, StartPoint: in.Hash.String(), Repositories: repos}
	if opts.Checkout {
		err = e.Service.CheckoutNewBranchFrom(ctx, opts.Name, in.Hash.String(), repos)
	} else {
		err = e.Service.CreateBranchAt(ctx, opts.Name, in.Repository, in.Hash)
	}
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

func (e Executor) fromRepositories(ctx context.Context, in domain.FromRepositories) (Result, error) {
	project := in.Project
	opts, ok, err := e.Prompt.PromptForBranchName(ctx, project, in.Repositories, TitleCreateBranch)
	if err != nil {
		return Result{}, fmt.Errorf("prompt for branch name: %w", err)
	}
	if !ok {
		return Result{}, nil
	}

	result := Result{Performed: true, Branch: opts.Name, Checkout: opts.Checkout, StartPoint: domain.HeadRef, Repositories: in.Repositories}
	if opts.Checkout {
		err = e.Service.CheckoutNewBranch(ctx, opts.Name, in.Repositories)
	} else {
		starts := make([]domain.StartPoint, 0, len(in.Repositories))
		for _, repo := range in.Repositories {
			starts = append(starts, domain.StartPoint{Repository: repo, Ref: domain.HeadRef})
		}
		err = e.Service.CreateBranch(ctx, opts.Name, starts)
	}
	if err != nil {
		return Result{}, err
	}
	return result, nil
}
