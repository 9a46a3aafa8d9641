package domain

import (
	"fmt"
	"strings"
)

type SyncSetting string

const (
	SyncSettingSync       SyncSetting = "sync"
	SyncSettingDontSync   SyncSetting = "dont_sync"
	SyncSettingNotDecided SyncSetting = "not_decided"
)

func ParseSyncSetting(raw string) (SyncSetting, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_")
	switch normalized {
	case string(SyncSettingSync):
		return SyncSettingSync, nil
	case string(SyncSettingDontSync):
		return SyncSettingDontSync, nil
	case string(SyncSettingNotDecided):
		return SyncSettingNotDecided, nil
	default:
		return SyncSettingNotDecided, fmt.Errorf("invalid sync setting %q", raw)
	}
}

// NormalizeSyncSetting maps unknown or empty values to not_decided.
func NormalizeSyncSetting(setting SyncSetting) SyncSetting {
	parsed, err := ParseSyncSetting(string(setting))
	if err != nil {
		return SyncSettingNotDecided
	}
	return parsed
}

// IsSync reports whether branch operations apply to every repository.
// Both dont_sync and not_decided scope operations to a single repository.
func (s SyncSetting) IsSync() bool {
	return NormalizeSyncSetting(s) == SyncSettingSync
}
