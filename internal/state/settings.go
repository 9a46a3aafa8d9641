package state

import (
	"strings"

	"repobranch/internal/domain"
)

// Settings resolves the sync setting of the loaded project, falling back to
// the global default when the project file leaves it unset.
type Settings struct {
	Config  domain.ConfigFile
	Project domain.ProjectFile
}

func (s Settings) SyncSetting(domain.Project) domain.SyncSetting {
	if strings.TrimSpace(string(s.Project.Sync)) != "" {
		return domain.NormalizeSyncSetting(s.Project.Sync)
	}
	return domain.NormalizeSyncSetting(s.Config.DefaultSync)
}
