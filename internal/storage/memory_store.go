package storage

import (
	"sort"
	"sync"

	"github.com/pulseplan/pulseplan/internal/models"
)

// MemoryStore is an in-process Provider with no persistence. It backs unit
// tests and ad-hoc experiments; the durable stores share its semantics,
// including ErrNotFound and analysis immutability.
type MemoryStore struct {
	mu        sync.RWMutex
	settings  *models.Settings
	slots     map[string]models.ScheduleSlot
	schedules map[string]models.DailySchedule
	templates map[string]models.StrategyTemplate
	rules     map[string]models.OptimizationRule
	analyses  map[string]models.PerformanceAnalysis
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		slots:     make(map[string]models.ScheduleSlot),
		schedules: make(map[string]models.DailySchedule),
		templates: make(map[string]models.StrategyTemplate),
		rules:     make(map[string]models.OptimizationRule),
		analyses:  make(map[string]models.PerformanceAnalysis),
	}
}

func (s *MemoryStore) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		defaults := DefaultSettings()
		s.settings = &defaults
	}
	return nil
}

func (s *MemoryStore) Load() error { return s.Init() }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) GetConfigPath() string { return ":memory:" }

func (s *MemoryStore) GetSettings() (models.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings == nil {
		return DefaultSettings(), nil
	}
	return *s.settings, nil
}

func (s *MemoryStore) SaveSettings(settings models.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = &settings
	return nil
}

func (s *MemoryStore) SaveSlot(slot models.ScheduleSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[slot.ID] = slot
	return nil
}

func (s *MemoryStore) GetSlot(id string) (models.ScheduleSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.slots[id]
	if !ok {
		return models.ScheduleSlot{}, ErrNotFound
	}
	return slot, nil
}

func (s *MemoryStore) GetSlotsForDate(date string) ([]models.ScheduleSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ScheduleSlot
	for _, slot := range s.slots {
		if slot.Date == date {
			out = append(out, slot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

func (s *MemoryStore) DeleteSlot(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, id)
	return nil
}

func (s *MemoryStore) DeleteSlotsForDate(date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, slot := range s.slots {
		if slot.Date == date {
			delete(s.slots, id)
		}
	}
	return nil
}

func (s *MemoryStore) DeleteSlotsForPlatform(date string, platform models.Platform) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, slot := range s.slots {
		if slot.Date == date && slot.Platform == platform {
			delete(s.slots, id)
		}
	}
	return nil
}

func (s *MemoryStore) UpdateSlotStatus(id string, status models.SlotStatus, result *models.ActivityResult, entry models.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	if !ok {
		return ErrNotFound
	}
	slot.Status = status
	if result != nil {
		slot.Result = result
	}
	slot.Log = append(slot.Log, entry)
	slot.UpdatedAt = entry.At
	s.slots[id] = slot
	return nil
}

func (s *MemoryStore) SaveSchedule(schedule models.DailySchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules[schedule.Date] = schedule
	return nil
}

func (s *MemoryStore) GetSchedule(date string) (models.DailySchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	schedule, ok := s.schedules[date]
	if !ok {
		return models.DailySchedule{}, ErrNotFound
	}
	return schedule, nil
}

func (s *MemoryStore) DeleteSchedule(date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.schedules, date)
	return nil
}

func (s *MemoryStore) GetActiveTemplate() (models.StrategyTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tpl := range s.templates {
		if tpl.Active {
			return tpl, nil
		}
	}
	return models.StrategyTemplate{}, ErrNotFound
}

func (s *MemoryStore) GetTemplate(name string) (models.StrategyTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tpl, ok := s.templates[name]
	if !ok {
		return models.StrategyTemplate{}, ErrNotFound
	}
	return tpl, nil
}

func (s *MemoryStore) SaveTemplate(tpl models.StrategyTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tpl.Active {
		for name, other := range s.templates {
			if name != tpl.Name && other.Active {
				other.Active = false
				s.templates[name] = other
			}
		}
	}
	s.templates[tpl.Name] = tpl
	return nil
}

func (s *MemoryStore) GetRules() ([]models.OptimizationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.OptimizationRule, 0, len(s.rules))
	for _, rule := range s.rules {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

func (s *MemoryStore) SaveRule(rule models.OptimizationRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rule.ID] = rule
	return nil
}

func (s *MemoryStore) SaveAnalysis(analysis models.PerformanceAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.analyses[analysis.Date]; exists {
		return ErrAnalysisExists
	}
	s.analyses[analysis.Date] = analysis
	return nil
}

func (s *MemoryStore) GetAnalysis(date string) (models.PerformanceAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	analysis, ok := s.analyses[date]
	if !ok {
		return models.PerformanceAnalysis{}, ErrNotFound
	}
	return analysis, nil
}

func (s *MemoryStore) GetAnalysesRange(fromDate, toDate string) ([]models.PerformanceAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.PerformanceAnalysis
	for date, analysis := range s.analyses {
		if date >= fromDate && date <= toDate {
			out = append(out, analysis)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}
