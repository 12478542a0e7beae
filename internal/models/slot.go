package models

import "time"

type SlotStatus string

const (
	SlotStatusScheduled  SlotStatus = "scheduled"
	SlotStatusInProgress SlotStatus = "in_progress"
	SlotStatusCompleted  SlotStatus = "completed"
	SlotStatusFailed     SlotStatus = "failed"
	SlotStatusSkipped    SlotStatus = "skipped"
)

// Terminal reports whether the status admits no further transitions.
func (s SlotStatus) Terminal() bool {
	return s == SlotStatusCompleted || s == SlotStatusFailed || s == SlotStatusSkipped
}

func (s SlotStatus) Valid() bool {
	switch s {
	case SlotStatusScheduled, SlotStatusInProgress, SlotStatusCompleted,
		SlotStatusFailed, SlotStatusSkipped:
		return true
	}
	return false
}

// ActivityResult is the executor's report for one dispatched slot.
type ActivityResult struct {
	Success      bool               `json:"success"`
	Interactions int                `json:"interactions"`
	Detail       string             `json:"detail,omitempty"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
}

// LogEntry is one timestamped note in a slot's execution log.
type LogEntry struct {
	At   string `json:"at"` // RFC3339 timestamp
	Note string `json:"note"`
}

// ScheduleSlot is a single fixed-duration unit of planned work.
type ScheduleSlot struct {
	ID        string          `json:"id"`
	Date      string          `json:"date"`  // YYYY-MM-DD format
	Start     string          `json:"start"` // HH:MM format
	End       string          `json:"end"`   // HH:MM format
	Kind      ActivityKind    `json:"kind"`
	Platform  Platform        `json:"platform"`
	Config    ActivityConfig  `json:"config"`
	Priority  int             `json:"priority"` // 1 (highest) to 5
	Flexible  bool            `json:"flexible"`
	Status    SlotStatus      `json:"status"`
	Result    *ActivityResult `json:"result,omitempty"`
	Log       []LogEntry      `json:"log,omitempty"`
	CreatedAt string          `json:"created_at"` // RFC3339 timestamp
	UpdatedAt string          `json:"updated_at"` // RFC3339 timestamp
}

// AppendLog records a timestamped note; transitions append rather than
// overwrite history.
func (s *ScheduleSlot) AppendLog(now time.Time, note string) {
	s.Log = append(s.Log, LogEntry{At: now.Format(time.RFC3339), Note: note})
}

// DailySchedule is the ordered set of slots covering one calendar date.
// Slot order is chronological by start time.
type DailySchedule struct {
	Date       string               `json:"date"` // YYYY-MM-DD format
	Focus      string               `json:"focus,omitempty"`
	DailyGoals map[ActivityKind]int `json:"daily_goals,omitempty"`
	Targets    map[string]float64   `json:"targets,omitempty"`
	Slots      []ScheduleSlot       `json:"slots"`
	CreatedAt  string               `json:"created_at"`
	UpdatedAt  string               `json:"updated_at"`
}

// CompletionRate is derived from slot statuses, never stored authoritatively.
func (d *DailySchedule) CompletionRate() float64 {
	if len(d.Slots) == 0 {
		return 0
	}
	done := 0
	for _, s := range d.Slots {
		if s.Status == SlotStatusCompleted {
			done++
		}
	}
	return float64(done) / float64(len(d.Slots))
}
