package domain

const Version = 1

const (
	ProjectFileName = ".repobranch.yaml"

	// HeadRef is the symbolic start point used when every repository
	// branches from its own current head.
	HeadRef = "HEAD"
)

type Project struct {
	Name string
	Root string
}

type Repository struct {
	Root   string
	Name   string
	Branch string
	Head   Hash
	Fresh  bool
}

type CommitRecord struct {
	Root string
	Hash Hash
}

// LogSelection is the commit selection of a log view. A non-nil selection
// with no commits means the view is active but nothing is selected.
type LogSelection struct {
	Commits []CommitRecord
}

type SelectionContext struct {
	Project *Project
	Log     *LogSelection
	File    string
}

type StartPoint struct {
	Repository Repository
	Ref        string
}

type BranchOptions struct {
	Name     string
	Checkout bool
}

type ConfigFile struct {
	Version     int             `yaml:"version"`
	DefaultSync SyncSetting     `yaml:"default_sync"`
	Prompt      PromptConfig    `yaml:"prompt"`
	Discovery   DiscoveryConfig `yaml:"discovery"`
}

type PromptConfig struct {
	CheckoutByDefault bool `yaml:"checkout_by_default"`
}

type DiscoveryConfig struct {
	MaxDepth int `yaml:"max_depth"`
}

type ProjectFile struct {
	Version      int                 `yaml:"version"`
	Name         string              `yaml:"name"`
	Sync         SyncSetting         `yaml:"sync,omitempty"`
	AutoDiscover bool                `yaml:"auto_discover"`
	Repositories []ProjectRepository `yaml:"repositories"`
}

type ProjectRepository struct {
	Path string `yaml:"path"`
}
