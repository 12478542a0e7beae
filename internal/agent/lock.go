package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/pulseplan/pulseplan/internal/constants"
)

// AcquireLock claims the single-runner lockfile. A lockfile pointing at a
// live process means another runner owns the schedule; a stale one (process
// gone) is reclaimed. Returns the lockfile path for later release.
func AcquireLock() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}
	dir := filepath.Join(configDir, constants.AppName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, constants.RunnerLockfileName)

	if content, err := os.ReadFile(path); err == nil {
		pid, perr := strconv.Atoi(strings.TrimSpace(string(content)))
		if perr == nil {
			if process, ferr := ps.FindProcess(pid); ferr == nil && process != nil {
				return "", fmt.Errorf("another runner is already active (pid %d)", pid)
			}
		}
		// Stale lock, previous runner died without cleanup.
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// ReleaseLock removes the lockfile written by AcquireLock.
func ReleaseLock(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
}
