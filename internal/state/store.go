package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"repobranch/internal/domain"
)

const (
	ConfigDirName  = ".config/repobranch"
	LocalStateDir  = ".local/state/repobranch"
	ConfigFileName = "config.yaml"
	LockFileName   = "lock"
)

type Paths struct {
	Home string
}

func NewPaths(home string) Paths {
	return Paths{Home: home}
}

func (p Paths) ConfigRoot() string {
	return filepath.Join(p.Home, ConfigDirName)
}

func (p Paths) LocalStateRoot() string {
	return filepath.Join(p.Home, LocalStateDir)
}

func (p Paths) ConfigPath() string {
	return filepath.Join(p.ConfigRoot(), ConfigFileName)
}

func (p Paths) LockPath() string {
	return filepath.Join(p.LocalStateRoot(), LockFileName)
}

func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

func DefaultConfig() domain.ConfigFile {
	return domain.ConfigFile{
		Version:     1,
		DefaultSync: domain.SyncSettingNotDecided,
		Prompt:      domain.PromptConfig{CheckoutByDefault: true},
		Discovery:   domain.DiscoveryConfig{MaxDepth: 3},
	}
}

func LoadConfig(paths Paths) (domain.ConfigFile, error) {
	cfgPath := paths.ConfigPath()
	if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()
		if err := SaveConfig(paths, cfg); err != nil {
			return domain.ConfigFile{}, err
		}
		return cfg, nil
	}

	cfg := DefaultConfig()
	if err := LoadYAML(cfgPath, &cfg); err != nil {
		return domain.ConfigFile{}, fmt.Errorf("parse %s: %w", cfgPath, err)
	}
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if strings.TrimSpace(string(cfg.DefaultSync)) == "" {
		cfg.DefaultSync = domain.SyncSettingNotDecided
	} else if _, err := domain.ParseSyncSetting(string(cfg.DefaultSync)); err != nil {
		return domain.ConfigFile{}, fmt.Errorf("parse %s: %w", cfgPath, err)
	}
	cfg.DefaultSync = domain.NormalizeSyncSetting(cfg.DefaultSync)
	if cfg.Discovery.MaxDepth <= 0 {
		cfg.Discovery.MaxDepth = 3
	}
	return cfg, nil
}

func SaveConfig(paths Paths, cfg domain.ConfigFile) error {
	cfg.Version = 1
	return SaveYAML(paths.ConfigPath(), cfg)
}

func ProjectFilePath(projectRoot string) string {
	return filepath.Join(projectRoot, domain.ProjectFileName)
}

// FindProjectRoot walks up from dir to the nearest directory holding a
// project file. The boolean is false when no project file exists.
func FindProjectRoot(dir string) (string, bool, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", false, err
	}
	for {
		info, err := os.Stat(ProjectFilePath(abs))
		if err == nil && !info.IsDir() {
			return abs, true, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", false, err
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", false, nil
		}
		abs = parent
	}
}

func LoadProject(projectRoot string) (domain.ProjectFile, error) {
	path := ProjectFilePath(projectRoot)
	var pf domain.ProjectFile
	if err := LoadYAML(path, &pf); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.ProjectFile{}, err
		}
		return domain.ProjectFile{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if pf.Version == 0 {
		pf.Version = 1
	}
	if strings.TrimSpace(pf.Name) == "" {
		pf.Name = filepath.Base(projectRoot)
	}
	if strings.TrimSpace(string(pf.Sync)) != "" {
		setting, err := domain.ParseSyncSetting(string(pf.Sync))
		if err != nil {
			return domain.ProjectFile{}, fmt.Errorf("parse %s: %w", path, err)
		}
		pf.Sync = setting
	}
	return pf, nil
}

func SaveProject(projectRoot string, pf domain.ProjectFile) error {
	pf.Version = 1
	return SaveYAML(ProjectFilePath(projectRoot), pf)
}

func LoadYAML(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, out); err != nil {
		return err
	}
	return nil
}

func SaveYAML(path string, in any) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	b, err := yaml.Marshal(in)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
