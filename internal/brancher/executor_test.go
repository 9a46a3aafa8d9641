package brancher

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"repobranch/internal/domain"
)

type promptCall struct {
	project domain.Project
	repos   []domain.Repository
	title   string
}

type fakePrompt struct {
	opts  domain.BranchOptions
	ok    bool
	err   error
	calls []promptCall
}

func (p *fakePrompt) PromptForBranchName(_ context.Context, project domain.Project, repos []domain.Repository, title string) (domain.BranchOptions, bool, error) {
	p.calls = append(p.calls, promptCall{project: project, repos: repos, title: title})
	return p.opts, p.ok, p.err
}

type serviceCall struct {
	op         string
	name       string
	starts     []domain.StartPoint
	repos      []domain.Repository
	startPoint string
	hash       domain.Hash
}

type recordingService struct {
	err   error
	calls []serviceCall
}

func (s *recordingService) CreateBranch(_ context.Context, name string, starts []domain.StartPoint) error {
	s.calls = append(s.calls, serviceCall{op: "create", name: name, starts: starts})
	return s.err
}

func (s *recordingService) CheckoutNewBranch(_ context.Context, name string, repos []domain.Repository) error {
	s.calls = append(s.calls, serviceCall{op: "checkout", name: name, repos: repos})
	return s.err
}

func (s *recordingService) CreateBranchAt(_ context.Context, name string, repo domain.Repository, hash domain.Hash) error {
	s.calls = append(s.calls, serviceCall{op: "create-at", name: name, repos: []domain.Repository{repo}, hash: hash})
	return s.err
}

func (s *recordingService) CheckoutNewBranchFrom(_ context.Context, name string, startPoint string, repos []domain.Repository) error {
	s.calls = append(s.calls, serviceCall{op: "checkout-from", name: name, startPoint: startPoint, repos: repos})
	return s.err
}

var (
	testProject = domain.Project{Name: "work", Root: "/work"}
	testAPI     = domain.Repository{Root: "/work/api", Name: "api"}
	testWeb     = domain.Repository{Root: "/work/web", Name: "web"}
	testHash    = domain.Hash("0123456789abcdef0123456789abcdef01234567")
)

func TestExecuteFromCommit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		checkout bool
		want     serviceCall
	}{
		{
			name:     "checkout",
			checkout: true,
			want:     serviceCall{op: "checkout-from", name: "fix", startPoint: testHash.String(), repos: []domain.Repository{testAPI}},
		},
		{
			name: "create only",
			want: serviceCall{op: "create-at", name: "fix", repos: []domain.Repository{testAPI}, hash: testHash},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			prompt := &fakePrompt{opts: domain.BranchOptions{Name: "fix", Checkout: tt.checkout}, ok: true}
			service := &recordingService{}
			exec := Executor{Project: testProject, Prompt: prompt, Service: service}

			result, err := exec.Execute(context.Background(), domain.FromCommit{Repository: testAPI, Hash: testHash})
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if !result.Performed || result.Branch != "fix" || result.Checkout != tt.checkout {
				t.Fatalf("Execute() result = %+v", result)
			}
			if len(prompt.calls) != 1 {
				t.Fatalf("prompt calls = %d, want 1", len(prompt.calls))
			}
			if got := prompt.calls[0].title; got != "Create New Branch From 01234567" {
				t.Fatalf("prompt title = %q", got)
			}
			if !reflect.DeepEqual(prompt.calls[0].repos, []domain.Repository{testAPI}) {
				t.Fatalf("prompt repos = %+v", prompt.calls[0].repos)
			}
			if !reflect.DeepEqual(service.calls, []serviceCall{tt.want}) {
				t.Fatalf("service calls = %+v, want %+v", service.calls, tt.want)
			}
		})
	}
}

func TestExecuteFromRepositories(t *testing.T) {
	t.Parallel()

	repos := []domain.Repository{testAPI, testWeb}
	tests := []struct {
		name     string
		checkout bool
		want     serviceCall
	}{
		{
			name:     "checkout",
			checkout: true,
			want:     serviceCall{op: "checkout", name: "feature", repos: repos},
		},
		{
			name: "create at each head",
			want: serviceCall{op: "create", name: "feature", starts: []domain.StartPoint{
				{Repository: testAPI, Ref: "HEAD"},
				{Repository: testWeb, Ref: "HEAD"},
			}},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			prompt := &fakePrompt{opts: domain.BranchOptions{Name: "feature", Checkout: tt.checkout}, ok: true}
			service := &recordingService{}
			exec := Executor{Prompt: prompt, Service: service}

			if _, err := exec.Execute(context.Background(), domain.FromRepositories{Project: testProject, Repositories: repos}); err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if len(prompt.calls) != 1 || prompt.calls[0].title != TitleCreateBranch {
				t.Fatalf("prompt calls = %+v", prompt.calls)
			}
			if prompt.calls[0].project != testProject {
				t.Fatalf("prompt project = %+v, want %+v", prompt.calls[0].project, testProject)
			}
			if !reflect.DeepEqual(service.calls, []serviceCall{tt.want}) {
				t.Fatalf("service calls = %+v, want %+v", service.calls, tt.want)
			}
		})
	}
}

func TestExecuteCancelledPromptDoesNothing(t *testing.T) {
	t.Parallel()

	for _, intent := range []domain.Intent{
		domain.FromCommit{Repository: testAPI, Hash: testHash},
		domain.FromRepositories{Project: testProject, Repositories: []domain.Repository{testAPI}},
	} {
		prompt := &fakePrompt{ok: false}
		service := &recordingService{}
		result, err := Executor{Prompt: prompt, Service: service}.Execute(context.Background(), intent)
		if err != nil {
			t.Fatalf("Execute(%s) error = %v", domain.IntentName(intent), err)
		}
		if result.Performed {
			t.Fatalf("Execute(%s) performed after cancel", domain.IntentName(intent))
		}
		if len(service.calls) != 0 {
			t.Fatalf("Execute(%s) service calls = %+v, want none", domain.IntentName(intent), service.calls)
		}
	}
}

func TestExecuteNoOpIntents(t *testing.T) {
	t.Parallel()

	for _, intent := range []domain.Intent{domain.Invisible{}, domain.Disabled{}} {
		prompt := &fakePrompt{ok: true, opts: domain.BranchOptions{Name: "x"}}
		service := &recordingService{}
		result, err := Executor{Prompt: prompt, Service: service}.Execute(context.Background(), intent)
		if err != nil || result.Performed {
			t.Fatalf("Execute(%s) = %+v, %v", domain.IntentName(intent), result, err)
		}
		if len(prompt.calls) != 0 || len(service.calls) != 0 {
			t.Fatalf("Execute(%s) touched collaborators", domain.IntentName(intent))
		}
	}
}

func TestExecutePropagatesErrors(t *testing.T) {
	t.Parallel()

	promptErr := errors.New("terminal closed")
	_, err := Executor{Prompt: &fakePrompt{err: promptErr}, Service: &recordingService{}}.
		Execute(context.Background(), domain.FromCommit{Repository: testAPI, Hash: testHash})
	if !errors.Is(err, promptErr) {
		t.Fatalf("Execute() error = %v, want wrapped prompt error", err)
	}

	serviceErr := errors.New("git failed")
	_, err = Executor{Prompt: &fakePrompt{ok: true, opts: domain.BranchOptions{Name: "x"}}, Service: &recordingService{err: serviceErr}}.
		Execute(context.Background(), domain.FromRepositories{Project: testProject, Repositories: []domain.Repository{testAPI}})
	if !errors.Is(err, serviceErr) {
		t.Fatalf("Execute() error = %v, want service error", err)
	}
}
