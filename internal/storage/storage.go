package storage

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pulseplan/pulseplan/internal/constants"
	"github.com/pulseplan/pulseplan/internal/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAnalysisExists guards the immutability of performance analyses:
	// once written for a date, an analysis is never overwritten.
	ErrAnalysisExists = errors.New("analysis already exists for date")
)

// HasEmbeddedCredentials reports whether a PostgreSQL connection string
// carries an inline password. Such strings are rejected; credentials belong
// in the OS keyring, the environment, or .pgpass.
func HasEmbeddedCredentials(connStr string) bool {
	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		u, err := url.Parse(connStr)
		if err != nil {
			return false
		}
		if u.User != nil {
			if _, set := u.User.Password(); set {
				return true
			}
		}
		return false
	}
	// DSN format: key=value pairs
	for _, part := range strings.Fields(connStr) {
		if strings.HasPrefix(part, "password=") {
			return true
		}
	}
	return false
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// DefaultSettings returns the settings written on first init.
func DefaultSettings() models.Settings {
	return models.Settings{
		DayStart:              constants.DefaultDayStart,
		DayEnd:                constants.DefaultDayEnd,
		SlotDurationMin:       constants.SlotDurationMin,
		Timezone:              constants.DefaultTimezone,
		PremiumAccount:        constants.DefaultPremiumAccount,
		PollIntervalSec:       constants.DefaultPollIntervalSec,
		SignificanceThreshold: constants.DefaultSignificanceThreshold,
		MaxAdjustmentsPerRun:  constants.DefaultMaxAdjustmentsPerRun,
		MaxDistributionDelta:  constants.DefaultMaxDistributionDelta,
	}
}
