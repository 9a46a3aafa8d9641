package app

import (
	"context"
	"encoding/json"
	"fmt"

	"repobranch/internal/brancher"
	"repobranch/internal/domain"
)

type resolveReport struct {
	Intent       string             `json:"intent"`
	Visible      bool               `json:"visible"`
	Enabled      bool               `json:"enabled"`
	Title        string             `json:"title,omitempty"`
	Project      *projectReport     `json:"project,omitempty"`
	Commit       string             `json:"commit,omitempty"`
	Repositories []repositoryReport `json:"repositories"`
}

type projectReport struct {
	Name string `json:"name"`
	Root string `json:"root"`
}

type repositoryReport struct {
	Name   string `json:"name"`
	Root   string `json:"root"`
	Branch string `json:"branch,omitempty"`
	Head   string `json:"head,omitempty"`
	Fresh  bool   `json:"fresh,omitempty"`
}

// RunResolve reports the intent a selection resolves to without acting on it.
func (a *App) RunResolve(opts ResolveOptions) (int, error) {
	ctx := context.Background()
	ws, err := a.loadWorkspace(ctx, opts.Selection.Project)
	if err != nil {
		return 2, err
	}
	sel, err := a.buildSelection(ctx, ws, opts.Selection)
	if err != nil {
		return 2, err
	}

	intent := ws.resolver().Resolve(sel)
	report := newResolveReport(intent)
	a.logf("resolve: %s (visible=%t enabled=%t)", report.Intent, report.Visible, report.Enabled)

	if opts.JSON {
		b, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return 2, err
		}
		fmt.Fprintln(a.Stdout, string(b))
		return 0, nil
	}

	fmt.Fprintln(a.Stdout, intentBadge(intent))
	fmt.Fprintf(a.Stdout, "visible\t%t\n", report.Visible)
	fmt.Fprintf(a.Stdout, "enabled\t%t\n", report.Enabled)
	if report.Title != "" {
		fmt.Fprintf(a.Stdout, "action\t%s\n", report.Title)
	}
	if report.Project != nil {
		fmt.Fprintf(a.Stdout, "project\t%s\t%s\n", report.Project.Name, report.Project.Root)
	}
	for _, r := range report.Repositories {
		fmt.Fprintf(a.Stdout, "repository\t%s\t%s\n", r.Name, r.Root)
	}
	return 0, nil
}

func newResolveReport(in domain.Intent) resolveReport {
	p := domain.Enablement(in)
	report := resolveReport{
		Intent:       domain.IntentName(in),
		Visible:      p.Visible,
		Enabled:      p.Enabled,
		Repositories: []repositoryReport{},
	}
	switch in := in.(type) {
	case domain.FromCommit:
		report.Title = brancher.CommitTitle(in.Hash)
		report.Commit = in.Hash.String()
		report.Repositories = append(report.Repositories, newRepositoryReport(in.Repository))
	case domain.FromRepositories:
		report.Title = brancher.TitleCreateBranch
		report.Project = &projectReport{Name: in.Project.Name, Root: in.Project.Root}
		for _, r := range in.Repositories {
			report.Repositories = append(report.Repositories, newRepositoryReport(r))
		}
	}
	return report
}

func newRepositoryReport(r domain.Repository) repositoryReport {
	return repositoryReport{
		Name:   r.Name,
		Root:   r.Root,
		Branch: r.Branch,
		Head:   r.Head.String(),
		Fresh:  r.Fresh,
	}
}
