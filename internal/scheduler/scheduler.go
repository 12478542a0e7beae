package scheduler

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pulseplan/pulseplan/internal/constants"
	"github.com/pulseplan/pulseplan/internal/logger"
	"github.com/pulseplan/pulseplan/internal/models"
	"github.com/pulseplan/pulseplan/internal/storage"
	"github.com/pulseplan/pulseplan/internal/utils"
	"github.com/pulseplan/pulseplan/internal/validation"
)

// Service builds and maintains daily schedules: it walks the grid, asks the
// weight engine for an activity per free boundary, validates each slot and
// persists the result.
type Service struct {
	store     storage.Provider
	validator *validation.Validator
	clock     func() time.Time
	rng       *rand.Rand
}

func New(store storage.Provider) *Service {
	return &Service{
		store:     store,
		validator: validation.New(),
		clock:     time.Now,
	}
}

// CreateDailySchedule returns the existing schedule for date unchanged if
// one exists (idempotent), otherwise builds a fresh one. Kinds listed in
// disabled are excluded from the candidate set before scoring.
func (s *Service) CreateDailySchedule(date string, disabled []models.ActivityKind) (models.DailySchedule, error) {
	return s.GetOrCreateDailySchedule(date, false, disabled)
}

// GetOrCreateDailySchedule returns the schedule for date, building it if
// missing. With forceRecreate the date's slots are purged first and the day
// is rebuilt from scratch.
func (s *Service) GetOrCreateDailySchedule(date string, forceRecreate bool, disabled []models.ActivityKind) (models.DailySchedule, error) {
	if !utils.ValidateDateFormat(date) {
		return models.DailySchedule{}, fmt.Errorf("invalid date format: %q", date)
	}

	existing, err := s.store.GetSchedule(date)
	if err == nil && !forceRecreate {
		return existing, nil
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return models.DailySchedule{}, err
	}

	if forceRecreate {
		if err := s.store.DeleteSlotsForDate(date); err != nil {
			return models.DailySchedule{}, fmt.Errorf("failed to purge slots: %w", err)
		}
		if err := s.store.DeleteSchedule(date); err != nil {
			return models.DailySchedule{}, fmt.Errorf("failed to purge schedule: %w", err)
		}
	}

	return s.build(date, disabled)
}

// RegenerateForPlatform purges only the date's slots attributed to platform,
// keeps the rest, and rebuilds the gaps. The resulting schedule supersedes
// the previous one; preserved slots carry over untouched.
func (s *Service) RegenerateForPlatform(date string, platform models.Platform) (models.DailySchedule, error) {
	if !utils.ValidateDateFormat(date) {
		return models.DailySchedule{}, fmt.Errorf("invalid date format: %q", date)
	}
	if err := s.store.DeleteSlotsForPlatform(date, platform); err != nil {
		return models.DailySchedule{}, fmt.Errorf("failed to purge %s slots: %w", platform, err)
	}
	return s.build(date, nil)
}

// build fills every free grid boundary of date with a scored activity slot,
// skipping boundaries covered by preserved slots.
func (s *Service) build(date string, disabled []models.ActivityKind) (models.DailySchedule, error) {
	settings, err := s.store.GetSettings()
	if err != nil {
		return models.DailySchedule{}, fmt.Errorf("failed to load settings: %w", err)
	}
	loc, err := utils.LoadLocation(settings.Timezone)
	if err != nil {
		return models.DailySchedule{}, err
	}

	template, err := s.activeTemplate()
	if err != nil {
		return models.DailySchedule{}, err
	}

	now := s.clock().In(loc)
	grid := Grid{SlotMin: settings.SlotDurationMin}
	boundaries, err := grid.Boundaries(date, now, settings.DayStart, settings.DayEnd)
	if err != nil {
		return models.DailySchedule{}, err
	}

	preserved, err := s.store.GetSlotsForDate(date)
	if err != nil {
		return models.DailySchedule{}, err
	}

	excluded := make(map[models.ActivityKind]bool)
	for _, k := range disabled {
		excluded[k] = true
	}
	for _, k := range settings.DisabledActivities {
		excluded[k] = true
	}

	engine := NewEngine(settings.PremiumAccount, s.rng)

	// Every slot on the day, preserved and newly built; each boundary's
	// recency window sees only the slots that start before it, so preserved
	// slots later in the day never skew an earlier gap. Daily caps count
	// the whole day.
	var assigned []placedKind
	dayCounts := make(map[models.ActivityKind]int)
	for _, slot := range preserved {
		dayCounts[slot.Kind]++
		min, err := utils.ParseTimeToMinutes(slot.Start)
		if err != nil {
			continue
		}
		assigned = append(assigned, placedKind{startMin: min, kind: slot.Kind})
	}

	nowStr := now.Format(time.RFC3339)
	built := 0
	for _, t := range boundaries {
		if coveredBy(preserved, t) {
			continue
		}

		kind := engine.Select(t/60, recentBefore(assigned, t), withCapped(excluded, dayCounts))
		profile, err := models.ProfileFor(kind)
		if err != nil {
			return models.DailySchedule{}, err
		}

		slot := models.ScheduleSlot{
			ID:        uuid.NewString(),
			Date:      date,
			Start:     utils.FormatMinutes(t),
			End:       utils.FormatMinutes(t + settings.SlotDurationMin),
			Kind:      kind,
			Platform:  profile.Platform,
			Config:    models.DefaultConfigFor(kind),
			Priority:  profile.Priority,
			Flexible:  profile.Flexible,
			Status:    models.SlotStatusScheduled,
			CreatedAt: nowStr,
			UpdatedAt: nowStr,
		}

		if result := s.validator.ValidateSlot(slot, settings.SlotDurationMin); result.HasConflicts() {
			return models.DailySchedule{}, fmt.Errorf("generated invalid slot: %s", result.FormatReport())
		}

		if err := s.store.SaveSlot(slot); err != nil {
			return models.DailySchedule{}, fmt.Errorf("failed to save slot: %w", err)
		}
		assigned = append(assigned, placedKind{startMin: t, kind: kind})
		dayCounts[kind]++
		built++
	}

	slots, err := s.store.GetSlotsForDate(date)
	if err != nil {
		return models.DailySchedule{}, err
	}
	sortSlots(slots)

	schedule := models.DailySchedule{
		Date:       date,
		Focus:      template.Name,
		DailyGoals: dailyGoals(template, len(slots)),
		Targets:    template.Targets,
		Slots:      slots,
		CreatedAt:  nowStr,
		UpdatedAt:  nowStr,
	}
	if err := s.store.SaveSchedule(schedule); err != nil {
		return models.DailySchedule{}, fmt.Errorf("failed to save schedule: %w", err)
	}

	logger.Info("Built daily schedule", "date", date, "slots", len(slots), "new", built)
	return schedule, nil
}

// activeTemplate returns the active strategy template, seeding the default
// one on first use.
func (s *Service) activeTemplate() (models.StrategyTemplate, error) {
	template, err := s.store.GetActiveTemplate()
	if errors.Is(err, storage.ErrNotFound) {
		template = models.DefaultTemplate(s.clock())
		if err := s.store.SaveTemplate(template); err != nil {
			return models.StrategyTemplate{}, fmt.Errorf("failed to seed default template: %w", err)
		}
		return template, nil
	}
	if err != nil {
		return models.StrategyTemplate{}, err
	}
	return template, nil
}

// GetCurrentActivity returns the slot whose [start, end) window contains
// now, or nil if none does.
func (s *Service) GetCurrentActivity() (*models.ScheduleSlot, error) {
	settings, err := s.store.GetSettings()
	if err != nil {
		return nil, err
	}
	loc, err := utils.LoadLocation(settings.Timezone)
	if err != nil {
		return nil, err
	}
	now := s.clock().In(loc)

	slots, err := s.store.GetSlotsForDate(now.Format(constants.DateFormat))
	if err != nil {
		return nil, err
	}

	for i := range slots {
		start, err := utils.CombineDateAndTime(slots[i].Date, slots[i].Start, loc)
		if err != nil {
			continue
		}
		// end = start + duration keeps the day's last slot, which ends at
		// midnight, inside the [start, end) check.
		end := start.Add(time.Duration(settings.SlotDurationMin) * time.Minute)
		if !now.Before(start) && now.Before(end) {
			return &slots[i], nil
		}
	}
	return nil, nil
}

// GetNextActivity returns the first scheduled slot starting after now, or
// nil if the day has none left.
func (s *Service) GetNextActivity() (*models.ScheduleSlot, error) {
	settings, err := s.store.GetSettings()
	if err != nil {
		return nil, err
	}
	loc, err := utils.LoadLocation(settings.Timezone)
	if err != nil {
		return nil, err
	}
	now := s.clock().In(loc)

	slots, err := s.store.GetSlotsForDate(now.Format(constants.DateFormat))
	if err != nil {
		return nil, err
	}
	sortSlots(slots)

	minutes := utils.MinutesOfDay(now)
	for i := range slots {
		start, err := utils.ParseTimeToMinutes(slots[i].Start)
		if err != nil {
			continue
		}
		if start > minutes && slots[i].Status == models.SlotStatusScheduled {
			return &slots[i], nil
		}
	}
	return nil, nil
}

// UpdateSlotActivity is the manual override: swap a slot's activity kind
// and configuration. Slots in a terminal status are rejected unless force
// is set.
func (s *Service) UpdateSlotActivity(id string, kind models.ActivityKind, config *models.ActivityConfig, force bool) error {
	slot, err := s.store.GetSlot(id)
	if err != nil {
		return err
	}
	if slot.Status.Terminal() && !force {
		return fmt.Errorf("slot %s is %s; use force to override", id, slot.Status)
	}

	profile, err := models.ProfileFor(kind)
	if err != nil {
		return err
	}

	previous := slot.Kind
	slot.Kind = kind
	slot.Platform = profile.Platform
	slot.Priority = profile.Priority
	if config != nil {
		slot.Config = *config
	} else {
		slot.Config = models.DefaultConfigFor(kind)
	}
	now := s.clock()
	slot.AppendLog(now, fmt.Sprintf("activity swapped from %s to %s", previous, kind))
	slot.UpdatedAt = now.Format(time.RFC3339)

	return s.store.SaveSlot(slot)
}

// Summary aggregates one date's slots for dashboards and the CLI.
type Summary struct {
	Date                 string                      `json:"date"`
	TotalSlots           int                         `json:"total_slots"`
	CompletionRate       float64                     `json:"completion_rate"`
	ActivityDistribution map[models.ActivityKind]int `json:"activity_distribution"`
	StatusDistribution   map[models.SlotStatus]int   `json:"status_distribution"`
}

// GetScheduleSummary recomputes completion and distribution figures from
// the stored slots; nothing here is authoritative state.
func (s *Service) GetScheduleSummary(date string) (Summary, error) {
	slots, err := s.store.GetSlotsForDate(date)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		Date:                 date,
		TotalSlots:           len(slots),
		ActivityDistribution: make(map[models.ActivityKind]int),
		StatusDistribution:   make(map[models.SlotStatus]int),
	}
	completed := 0
	for _, slot := range slots {
		summary.ActivityDistribution[slot.Kind]++
		summary.StatusDistribution[slot.Status]++
		if slot.Status == models.SlotStatusCompleted {
			completed++
		}
	}
	if len(slots) > 0 {
		summary.CompletionRate = float64(completed) / float64(len(slots))
	}
	return summary, nil
}

// helpers

// coveredBy reports whether boundary t falls inside any existing slot's
// closed-open [start, end) window.
func coveredBy(slots []models.ScheduleSlot, t int) bool {
	for _, slot := range slots {
		start, err := utils.ParseTimeToMinutes(slot.Start)
		if err != nil {
			continue
		}
		end, err := utils.ParseTimeToMinutes(slot.End)
		if err != nil {
			continue
		}
		if start <= t && t < end {
			return true
		}
	}
	return false
}

// recentWindow returns the tail of history the engine's recency rules see.
func recentWindow(history []models.ActivityKind) []models.ActivityKind {
	if len(history) <= constants.RecentWindowSlots {
		return history
	}
	return history[len(history)-constants.RecentWindowSlots:]
}

// placedKind is one assigned activity and its slot start, in minutes from
// midnight.
type placedKind struct {
	startMin int
	kind     models.ActivityKind
}

// recentBefore returns the recency window for boundary t: the kinds of the
// assigned slots starting before t, in chronological order.
func recentBefore(assigned []placedKind, t int) []models.ActivityKind {
	var before []placedKind
	for _, p := range assigned {
		if p.startMin < t {
			before = append(before, p)
		}
	}
	sort.Slice(before, func(i, j int) bool { return before[i].startMin < before[j].startMin })
	kinds := make([]models.ActivityKind, len(before))
	for i, p := range before {
		kinds[i] = p.kind
	}
	return recentWindow(kinds)
}

// withCapped extends the exclusion set with kinds that hit their daily cap.
func withCapped(excluded map[models.ActivityKind]bool, dayCounts map[models.ActivityKind]int) map[models.ActivityKind]bool {
	out := make(map[models.ActivityKind]bool, len(excluded))
	for k, v := range excluded {
		out[k] = v
	}
	for _, p := range models.Catalog() {
		if p.DailyCap > 0 && dayCounts[p.Kind] >= p.DailyCap {
			out[p.Kind] = true
		}
	}
	return out
}

// dailyGoals splits the day's slot count across kinds by the template's
// relative distribution weights.
func dailyGoals(template models.StrategyTemplate, totalSlots int) map[models.ActivityKind]int {
	goals := make(map[models.ActivityKind]int)
	var totalWeight float64
	for _, w := range template.Distribution {
		if w > 0 {
			totalWeight += w
		}
	}
	if totalWeight == 0 || totalSlots == 0 {
		return goals
	}
	for kind, w := range template.Distribution {
		if w <= 0 {
			continue
		}
		if n := int(float64(totalSlots) * w / totalWeight); n > 0 {
			goals[kind] = n
		}
	}
	return goals
}

func sortSlots(slots []models.ScheduleSlot) {
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].Start < slots[j].Start
	})
}
