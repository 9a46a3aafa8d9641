package state

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"
)

// LockMaxAge is how long a lock is honoured when its owner cannot be checked.
const LockMaxAge = 24 * time.Hour

// LockOwner is the yaml payload of the lock file.
type LockOwner struct {
	PID       int       `yaml:"pid"`
	Hostname  string    `yaml:"hostname"`
	Command   string    `yaml:"command"`
	CreatedAt time.Time `yaml:"created_at"`
}

// LockHeldError is returned when another live rb process owns the lock.
// Owner is zero when the lock file could not be parsed.
type LockHeldError struct {
	Owner LockOwner
}

func (e *LockHeldError) Error() string {
	if e.Owner.PID == 0 {
		return "another rb process holds the lock"
	}
	command := "rb"
	if e.Owner.Command != "" {
		command = "rb " + e.Owner.Command
	}
	return fmt.Sprintf("another rb process holds the lock: %s (pid %d on %s since %s)",
		command, e.Owner.PID, e.Owner.Hostname, e.Owner.CreatedAt.Format(time.RFC3339))
}

type Lock struct {
	Owner LockOwner
	path  string
	file  *os.File
}

// AcquireLock takes the per-user lock for command. A lock left behind by a
// dead process on this host, or one older than LockMaxAge, is replaced.
func AcquireLock(paths Paths, command string) (*Lock, error) {
	if err := EnsureDir(paths.LocalStateRoot()); err != nil {
		return nil, err
	}
	hostname, err := os.Hostname()
	if err != nil {
		return nil, err
	}
	owner := LockOwner{
		PID:       os.Getpid(),
		Hostname:  hostname,
		Command:   command,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	path := paths.LockPath()
	var held LockOwner
	for attempt := 0; attempt < 2; attempt++ {
		lock, err := createLock(path, owner)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, err
		}

		var stale bool
		held, stale, err = inspectLock(path, time.Now().UTC(), hostname)
		if err != nil {
			return nil, err
		}
		if !stale {
			break
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	return nil, &LockHeldError{Owner: held}
}

func createLock(path string, owner LockOwner) (*Lock, error) {
	payload, err := yaml.Marshal(owner)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	if _, err := f.Write(payload); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, err
	}
	return &Lock{Owner: owner, path: path, file: f}, nil
}

func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if l.file != nil {
		_ = l.file.Close()
	}
	return os.Remove(l.path)
}

// inspectLock reads the current lock owner and reports whether the lock may
// be taken over.
func inspectLock(path string, now time.Time, hostname string) (LockOwner, bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return LockOwner{}, true, nil
	}
	if err != nil {
		return LockOwner{}, false, err
	}
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return LockOwner{}, true, nil
	}
	if err != nil {
		return LockOwner{}, false, err
	}

	var owner LockOwner
	if err := yaml.Unmarshal(content, &owner); err != nil || owner.PID <= 0 || owner.CreatedAt.IsZero() {
		return LockOwner{}, nonNegative(now.Sub(info.ModTime())) >= LockMaxAge, nil
	}
	return owner, lockIsStale(owner, info.ModTime(), now, hostname, isProcessAlive), nil
}

func lockIsStale(owner LockOwner, modTime time.Time, now time.Time, hostname string, alive func(int) bool) bool {
	if nonNegative(now.Sub(owner.CreatedAt)) >= LockMaxAge || nonNegative(now.Sub(modTime)) >= LockMaxAge {
		return true
	}
	return strings.EqualFold(hostname, owner.Hostname) && !alive(owner.PID)
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	if runtime.GOOS == "windows" {
		// No signal 0 on windows; the age limit applies instead.
		return true
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	switch err := proc.Signal(syscall.Signal(0)); {
	case err == nil:
		return true
	case errors.Is(err, os.ErrProcessDone):
		return false
	default:
		return os.IsPermission(err)
	}
}
