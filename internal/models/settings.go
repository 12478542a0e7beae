package models

// Settings represents application-wide settings
type Settings struct {
	DayStart              string         `json:"day_start"`               // earliest time slots may start, e.g. "08:00"
	DayEnd                string         `json:"day_end"`                 // latest time slots may end, "24:00" for full day
	SlotDurationMin       int            `json:"slot_duration_min"`       // fixed slot width in minutes
	Timezone              string         `json:"timezone"`                // IANA timezone name, or "Local" for system timezone
	PremiumAccount        bool           `json:"premium_account"`         // unlocks premium-gated activity kinds
	PollIntervalSec       int            `json:"poll_interval_sec"`       // control loop tick interval
	SignificanceThreshold float64        `json:"significance_threshold"`  // min projected improvement before applying an adjustment
	MaxAdjustmentsPerRun  int            `json:"max_adjustments_per_run"` // cap on applied adjustments per optimization run
	MaxDistributionDelta  float64        `json:"max_distribution_delta"`  // cap on a single activity-share shift
	DisabledActivities    []ActivityKind `json:"disabled_activities,omitempty"`
}
