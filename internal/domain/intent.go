package domain

// Intent is the outcome of resolving a selection context. The set of
// variants is closed: Invisible, Disabled, FromCommit and FromRepositories.
type Intent interface {
	intent()
}

type Invisible struct{}

type Disabled struct{}

// FromCommit branches a single repository from a selected commit.
type FromCommit struct {
	Repository Repository
	Hash       Hash
}

// FromRepositories branches every listed repository from its own head.
// Repositories is never empty.
type FromRepositories struct {
	Project      Project
	Repositories []Repository
}

func (Invisible) intent()        {}
func (Disabled) intent()         {}
func (FromCommit) intent()       {}
func (FromRepositories) intent() {}

func IntentName(in Intent) string {
	switch in.(type) {
	case Invisible:
		return "invisible"
	case Disabled:
		return "disabled"
	case FromCommit:
		return "from-commit"
	case FromRepositories:
		return "from-repositories"
	default:
		return "unknown"
	}
}

type Presentation struct {
	Visible bool
	Enabled bool
}

func Enablement(in Intent) Presentation {
	switch in.(type) {
	case Invisible:
		return Presentation{}
	case Disabled:
		return Presentation{Visible: true}
	default:
		return Presentation{Visible: true, Enabled: true}
	}
}
