package domain

import (
	"reflect"
	"testing"
)

type fakeManager struct {
	repos []Repository
}

func (m fakeManager) RepositoryForRoot(root string) (Repository, bool) {
	for _, repo := range m.repos {
		if repo.Root == root {
			return repo, true
		}
	}
	return Repository{}, false
}

func (m fakeManager) Repositories() []Repository {
	return m.repos
}

func (m fakeManager) MoreThanOneRoot() bool {
	return len(m.repos) > 1
}

type fakeSettings SyncSetting

func (s fakeSettings) SyncSetting(Project) SyncSetting {
	return SyncSetting(s)
}

type fakeGuesser map[string]string

func (g fakeGuesser) GuessRoot(_ Project, file string) string {
	return g[file]
}

const (
	hashA = Hash("1111111111111111111111111111111111111111")
	hashB = Hash("2222222222222222222222222222222222222222")
)

func TestResolverResolve(t *testing.T) {
	t.Parallel()

	project := &Project{Name: "workspace", Root: "/work"}
	api := Repository{Root: "/work/api", Name: "api", Branch: "main", Head: hashA}
	web := Repository{Root: "/work/web", Name: "web", Branch: "main", Head: hashB}
	fresh := Repository{Root: "/work/fresh", Name: "fresh", Fresh: true}
	guesser := fakeGuesser{"/work/web/index.html": "/work/web", "/work/docs/readme.md": "/work/docs"}

	tests := []struct {
		name  string
		repos []Repository
		sync  SyncSetting
		ctx   SelectionContext
		want  Intent
	}{
		{
			name:  "no project",
			repos: []Repository{api},
			ctx:   SelectionContext{Log: &LogSelection{Commits: []CommitRecord{{Root: api.Root, Hash: hashA}}}},
			want:  Invisible{},
		},
		{
			name:  "empty log selection",
			repos: []Repository{api},
			ctx:   SelectionContext{Project: project, Log: &LogSelection{}},
			want:  Invisible{},
		},
		{
			name:  "multiple commits selected",
			repos: []Repository{api},
			ctx: SelectionContext{Project: project, Log: &LogSelection{Commits: []CommitRecord{
				{Root: api.Root, Hash: hashA},
				{Root: api.Root, Hash: hashB},
			}}},
			want: Disabled{},
		},
		{
			name:  "single commit in known repository",
			repos: []Repository{api, web},
			sync:  SyncSettingDontSync,
			ctx:   SelectionContext{Project: project, Log: &LogSelection{Commits: []CommitRecord{{Root: web.Root, Hash: hashA}}}},
			want:  FromCommit{Repository: web, Hash: hashA},
		},
		{
			name:  "single commit ignores sync and fresh siblings",
			repos: []Repository{api, fresh},
			sync:  SyncSettingSync,
			ctx:   SelectionContext{Project: project, Log: &LogSelection{Commits: []CommitRecord{{Root: api.Root, Hash: hashB}}}},
			want:  FromCommit{Repository: api, Hash: hashB},
		},
		{
			name:  "single commit in unknown root falls through to single repository",
			repos: []Repository{api},
			ctx:   SelectionContext{Project: project, Log: &LogSelection{Commits: []CommitRecord{{Root: "/elsewhere", Hash: hashA}}}},
			want:  FromRepositories{Project: *project, Repositories: []Repository{api}},
		},
		{
			name:  "single commit in unknown root falls through to sync",
			repos: []Repository{api, web},
			sync:  SyncSettingSync,
			ctx:   SelectionContext{Project: project, Log: &LogSelection{Commits: []CommitRecord{{Root: "/elsewhere", Hash: hashA}}}},
			want:  FromRepositories{Project: *project, Repositories: []Repository{api, web}},
		},
		{
			name:  "single commit in unknown root with nothing to guess",
			repos: []Repository{api, web},
			sync:  SyncSettingDontSync,
			ctx:   SelectionContext{Project: project, Log: &LogSelection{Commits: []CommitRecord{{Root: "/elsewhere", Hash: hashA}}}},
			want:  Invisible{},
		},
		{
			name:  "single fresh repository",
			repos: []Repository{fresh},
			ctx:   SelectionContext{Project: project},
			want:  Invisible{},
		},
		{
			name:  "single repository",
			repos: []Repository{api},
			ctx:   SelectionContext{Project: project},
			want:  FromRepositories{Project: *project, Repositories: []Repository{api}},
		},
		{
			name:  "no repositories",
			ctx:   SelectionContext{Project: project},
			want:  Invisible{},
		},
		{
			name:  "sync keeps manager order",
			repos: []Repository{web, api},
			sync:  SyncSettingSync,
			ctx:   SelectionContext{Project: project},
			want:  FromRepositories{Project: *project, Repositories: []Repository{web, api}},
		},
		{
			name:  "sync with fresh repository",
			repos: []Repository{api, fresh, web},
			sync:  SyncSettingSync,
			ctx:   SelectionContext{Project: project},
			want:  Invisible{},
		},
		{
			name:  "dont sync resolves focused file",
			repos: []Repository{api, web},
			sync:  SyncSettingDontSync,
			ctx:   SelectionContext{Project: project, File: "/work/web/index.html"},
			want:  FromRepositories{Project: *project, Repositories: []Repository{web}},
		},
		{
			name:  "not decided behaves like dont sync",
			repos: []Repository{api, web},
			sync:  SyncSettingNotDecided,
			ctx:   SelectionContext{Project: project, File: "/work/web/index.html"},
			want:  FromRepositories{Project: *project, Repositories: []Repository{web}},
		},
		{
			name:  "dont sync focused file outside known repositories",
			repos: []Repository{api, web},
			sync:  SyncSettingDontSync,
			ctx:   SelectionContext{Project: project, File: "/work/docs/readme.md"},
			want:  Invisible{},
		},
		{
			name:  "dont sync without focused file",
			repos: []Repository{api, web},
			sync:  SyncSettingDontSync,
			ctx:   SelectionContext{Project: project},
			want:  Invisible{},
		},
		{
			name:  "dont sync focused fresh repository",
			repos: []Repository{api, {Root: "/work/web", Name: "web", Fresh: true}},
			sync:  SyncSettingDontSync,
			ctx:   SelectionContext{Project: project, File: "/work/web/index.html"},
			want:  Invisible{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resolver := Resolver{
				Repositories: fakeManager{repos: tt.repos},
				Settings:     fakeSettings(tt.sync),
				Roots:        guesser,
			}
			got := resolver.Resolve(tt.ctx)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Resolve() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestResolverSyncCandidatesAreACopy(t *testing.T) {
	t.Parallel()

	repos := []Repository{{Root: "/a", Name: "a"}, {Root: "/b", Name: "b"}}
	resolver := Resolver{
		Repositories: fakeManager{repos: repos},
		Settings:     fakeSettings(SyncSettingSync),
		Roots:        fakeGuesser{},
	}

	got, ok := resolver.Resolve(SelectionContext{Project: &Project{Name: "p"}}).(FromRepositories)
	if !ok {
		t.Fatal("expected FromRepositories intent")
	}
	got.Repositories[0].Name = "changed"
	if repos[0].Name != "a" {
		t.Fatalf("manager repositories mutated through intent: %q", repos[0].Name)
	}
}
