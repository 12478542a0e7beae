package constants

const (
	// General Settings
	SettingDayStart        = "day_start"
	SettingDayEnd          = "day_end"
	SettingSlotDurationMin = "slot_duration_min"
	SettingTimezone        = "timezone"
	SettingPremiumAccount  = "premium_account"
	SettingPollIntervalSec = "poll_interval_sec"

	// Optimizer Settings
	SettingSignificanceThreshold = "significance_threshold"
	SettingMaxAdjustmentsPerRun  = "max_adjustments_per_run"
	SettingMaxDistributionDelta  = "max_distribution_delta"

	// Default Settings Values
	DefaultDayStart        = "00:00"
	DefaultDayEnd          = "24:00"
	DefaultTimezone        = "Local" // Use system local timezone by default
	DefaultPremiumAccount  = false
	DefaultPollIntervalSec = 30

	// Optimizer defaults. The threshold and per-run cap are configuration
	// inputs, not derived values; these are the shipped defaults.
	DefaultSignificanceThreshold = 0.10
	DefaultMaxAdjustmentsPerRun  = 5
	DefaultMaxDistributionDelta  = 0.20
	DefaultMaxTimeShiftHours     = 2
	DefaultMaxContentDelta       = 0.15
	DefaultMinAnalysisDays       = 3
)
