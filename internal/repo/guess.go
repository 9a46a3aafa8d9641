package repo

import (
	"path/filepath"
	"strings"

	"repobranch/internal/domain"
)

// RootGuesser infers the repository a focused file belongs to. Without a
// file it falls back to the working directory, then to the project root.
type RootGuesser struct {
	Manager    *Manager
	WorkingDir string
}

func (g RootGuesser) GuessRoot(project domain.Project, file string) string {
	for _, candidate := range []string{file, g.WorkingDir, project.Root} {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(g.base(project), candidate)
		}
		if root := g.Manager.RootContaining(candidate); root != "" {
			return root
		}
		if file != "" {
			// An explicit file outside every repository names no root.
			return ""
		}
	}
	return ""
}

func (g RootGuesser) base(project domain.Project) string {
	if strings.TrimSpace(g.WorkingDir) != "" {
		return g.WorkingDir
	}
	return project.Root
}
