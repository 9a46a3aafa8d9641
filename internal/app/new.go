package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"repobranch/internal/brancher"
	"repobranch/internal/domain"
)

func (a *App) RunNew(opts NewOptions) (int, error) {
	return a.withLock("new", func() (int, error) {
		return a.runNew(context.Background(), opts)
	})
}

func (a *App) runNew(ctx context.Context, opts NewOptions) (int, error) {
	ws, err := a.loadWorkspace(ctx, opts.Selection.Project)
	if err != nil {
		return 2, err
	}
	sel, err := a.buildSelection(ctx, ws, opts.Selection)
	if err != nil {
		return 2, err
	}

	intent := ws.resolver().Resolve(sel)
	a.logf("new: resolved intent %s", domain.IntentName(intent))
	switch intent.(type) {
	case domain.Invisible:
		return 1, errors.New(invisibleReason(sel))
	case domain.Disabled:
		return 1, errors.New("cannot branch from a selection of more than one commit")
	}

	checkout := ws.Config.Prompt.CheckoutByDefault
	if opts.Checkout != nil {
		checkout = *opts.Checkout
	}
	validate := func(name string, repos []domain.Repository) error {
		return a.validateNewBranch(ws, name, repos)
	}

	var prompt brancher.NamePrompter
	switch {
	case strings.TrimSpace(opts.Name) != "":
		name := strings.TrimSpace(opts.Name)
		if err := validate(name, intentRepositories(intent)); err != nil {
			return 2, err
		}
		prompt = fixedPrompter{options: domain.BranchOptions{Name: name, Checkout: checkout}}
	case a.IsInteractiveTerminal != nil && a.IsInteractiveTerminal() && a.RunNamePrompt != nil:
		prompt = terminalPrompter{run: a.RunNamePrompt, checkout: checkout, validate: validate}
	default:
		return 2, errors.New("--name is required when not running in an interactive terminal")
	}

	project := domain.Project{}
	if sel.Project != nil {
		project = *sel.Project
	}
	executor := brancher.Executor{
		Project: project,
		Prompt:  prompt,
		Service: brancher.GitBrancher{Git: a.Git, Logf: a.logf},
	}
	result, err := executor.Execute(ctx, intent)
	if err != nil {
		return 1, err
	}
	if !result.Performed {
		a.logf("new: cancelled")
		return 0, nil
	}

	verb := "created"
	if result.Checkout {
		verb = "checked out"
	}
	for _, r := range result.Repositories {
		fmt.Fprintf(a.Stdout, "%s\t%s\t%s\n", r.Name, verb, result.Branch)
	}
	a.logf("new: %s %q in %d repository(ies)", verb, result.Branch, len(result.Repositories))
	return 0, nil
}

// validateNewBranch rejects malformed names and names that already exist in
// any target repository.
func (a *App) validateNewBranch(ws workspace, name string, repos []domain.Repository) error {
	if err := domain.ValidateBranchName(name); err != nil {
		return err
	}
	if ws.Manager == nil {
		return nil
	}
	var conflicts []string
	for _, r := range repos {
		exists, err := ws.Manager.BranchExists(r, name)
		if err != nil {
			return fmt.Errorf("check branch %q in %s: %w", name, r.Name, err)
		}
		if exists {
			conflicts = append(conflicts, r.Name)
		}
	}
	if len(conflicts) > 0 {
		return fmt.Errorf("branch %q already exists in %s", name, strings.Join(conflicts, ", "))
	}
	return nil
}

func intentRepositories(in domain.Intent) []domain.Repository {
	switch in := in.(type) {
	case domain.FromCommit:
		return []domain.Repository{in.Repository}
	case domain.FromRepositories:
		return in.Repositories
	default:
		return nil
	}
}

func invisibleReason(sel domain.SelectionContext) string {
	switch {
	case sel.Project == nil:
		return errNoProject.Error()
	case sel.Log != nil && len(sel.Log.Commits) == 0:
		return "no commit selected"
	default:
		return "no repository to branch: none resolved for this selection, or one has no commits yet"
	}
}
