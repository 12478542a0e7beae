package storage

import "github.com/pulseplan/pulseplan/internal/models"

// Provider is the single shared mutable resource of the system. All slot
// writes are keyed by slot id; the control loop and manual dashboard edits
// both go through this API so neither silently overwrites the other.
type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Settings
	GetSettings() (models.Settings, error)
	SaveSettings(models.Settings) error

	// Slots
	SaveSlot(models.ScheduleSlot) error
	GetSlot(id string) (models.ScheduleSlot, error)
	GetSlotsForDate(date string) ([]models.ScheduleSlot, error)
	DeleteSlot(id string) error
	DeleteSlotsForDate(date string) error
	// DeleteSlotsForPlatform purges only the date's slots attributed to the
	// given platform, preserving the rest.
	DeleteSlotsForPlatform(date string, platform models.Platform) error
	// UpdateSlotStatus persists a status transition together with its
	// result payload and log entry in one write.
	UpdateSlotStatus(id string, status models.SlotStatus, result *models.ActivityResult, entry models.LogEntry) error

	// Schedules
	SaveSchedule(models.DailySchedule) error
	GetSchedule(date string) (models.DailySchedule, error)
	DeleteSchedule(date string) error

	// Strategy templates
	GetActiveTemplate() (models.StrategyTemplate, error)
	GetTemplate(name string) (models.StrategyTemplate, error)
	// SaveTemplate persists the template atomically; when tpl.Active is set
	// it also deactivates every other template in the same transaction.
	SaveTemplate(tpl models.StrategyTemplate) error

	// Optimization rules
	GetRules() ([]models.OptimizationRule, error)
	SaveRule(models.OptimizationRule) error

	// Performance analyses (immutable once written for a date)
	SaveAnalysis(models.PerformanceAnalysis) error
	GetAnalysis(date string) (models.PerformanceAnalysis, error)
	GetAnalysesRange(fromDate, toDate string) ([]models.PerformanceAnalysis, error)

	// Utils
	GetConfigPath() string
}
