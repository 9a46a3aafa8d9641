package domain

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const ShortHashLength = 8

type Hash string

// ParseHash accepts a full SHA-1 or SHA-256 object name.
func ParseHash(raw string) (Hash, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if len(value) != 40 && len(value) != 64 {
		return "", fmt.Errorf("invalid commit hash %q: want 40 or 64 hex characters", raw)
	}
	if _, err := hex.DecodeString(value); err != nil {
		return "", fmt.Errorf("invalid commit hash %q: %w", raw, err)
	}
	return Hash(value), nil
}

func (h Hash) String() string {
	return string(h)
}

func (h Hash) Short() string {
	if len(h) <= ShortHashLength {
		return string(h)
	}
	return string(h[:ShortHashLength])
}
