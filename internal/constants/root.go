package constants

import "time"

const (
	AppName            = "pulseplan"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/pulseplan/pulseplan.db"
	Version            = "v0.2.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// Runner constants
	RunnerLockfileName  = "pulseplan-runner.lock"
	DefaultPollInterval = 30 * time.Second
	// WaitGranularity bounds shutdown latency: the inter-tick wait is sliced
	// into increments of this size so a stop request is observed quickly.
	WaitGranularity = 250 * time.Millisecond
	MaxBackoff      = 5 * time.Minute

	// Executor daemon discovery
	ExecutorLockfileName = "pulseplan-executor.lock"
	ExecutorSecretHeader = "X-Pulseplan-Secret"
	DispatchTimeout      = 10 * time.Minute
)
