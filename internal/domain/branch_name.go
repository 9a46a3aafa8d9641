package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ValidateBranchName applies the rules of git check-ref-format --branch.
func ValidateBranchName(name string) error {
	if name == "" {
		return errors.New("branch name is required")
	}
	if name != strings.TrimSpace(name) {
		return fmt.Errorf("branch name %q has leading or trailing whitespace", name)
	}
	if name == "HEAD" || name == "@" {
		return fmt.Errorf("%q is not a valid branch name", name)
	}
	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("branch name %q must not start with '-'", name)
	}
	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return fmt.Errorf("branch name %q must not start or end with '/'", name)
	}
	if strings.HasSuffix(name, ".") {
		return fmt.Errorf("branch name %q must not end with '.'", name)
	}
	for _, seq := range []string{"..", "//", "@{"} {
		if strings.Contains(name, seq) {
			return fmt.Errorf("branch name %q must not contain %q", name, seq)
		}
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f || r == ' ' {
			return fmt.Errorf("branch name %q must not contain spaces or control characters", name)
		}
		if strings.ContainsRune(`~^:?*[\`, r) {
			return fmt.Errorf("branch name %q must not contain %q", name, string(r))
		}
	}
	for _, component := range strings.Split(name, "/") {
		if strings.HasPrefix(component, ".") {
			return fmt.Errorf("branch name %q has a component starting with '.'", name)
		}
		if strings.HasSuffix(component, ".lock") {
			return fmt.Errorf("branch name %q has a component ending with '.lock'", name)
		}
	}
	return nil
}
