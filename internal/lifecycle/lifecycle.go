package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/pulseplan/pulseplan/internal/models"
	"github.com/pulseplan/pulseplan/internal/storage"
)

// ErrInvalidTransition is the domain error for a disallowed status change.
// Attempting a transition from a terminal state is reported through it and
// leaves the stored status unchanged; it is never a silent success.
var ErrInvalidTransition = errors.New("invalid slot transition")

// Manager drives a slot through its status state machine and persists each
// transition. Transitions append to the slot's execution log rather than
// overwriting history.
//
//	SCHEDULED -> IN_PROGRESS -> COMPLETED | FAILED
//	SCHEDULED -> SKIPPED
type Manager struct {
	store storage.Provider
	clock func() time.Time
}

func New(store storage.Provider) *Manager {
	return &Manager{
		store: store,
		clock: time.Now,
	}
}

// Start moves a slot from SCHEDULED to IN_PROGRESS.
func (m *Manager) Start(id string) error {
	slot, err := m.store.GetSlot(id)
	if err != nil {
		return err
	}
	if slot.Status != models.SlotStatusScheduled {
		return m.reject(slot, models.SlotStatusInProgress)
	}
	return m.transition(slot, models.SlotStatusInProgress, nil, "execution started")
}

// Complete moves a slot from IN_PROGRESS to COMPLETED, recording the
// executor's result.
func (m *Manager) Complete(id string, result *models.ActivityResult) error {
	slot, err := m.store.GetSlot(id)
	if err != nil {
		return err
	}
	if slot.Status != models.SlotStatusInProgress {
		return m.reject(slot, models.SlotStatusCompleted)
	}
	return m.transition(slot, models.SlotStatusCompleted, result, "execution completed")
}

// Fail moves a slot from IN_PROGRESS to FAILED, preserving the error reason.
func (m *Manager) Fail(id string, reason string) error {
	slot, err := m.store.GetSlot(id)
	if err != nil {
		return err
	}
	if slot.Status != models.SlotStatusInProgress {
		return m.reject(slot, models.SlotStatusFailed)
	}
	result := &models.ActivityResult{Success: false, Detail: reason}
	return m.transition(slot, models.SlotStatusFailed, result, fmt.Sprintf("execution failed: %s", reason))
}

// Skip moves a slot from SCHEDULED to SKIPPED.
func (m *Manager) Skip(id string) error {
	slot, err := m.store.GetSlot(id)
	if err != nil {
		return err
	}
	if slot.Status != models.SlotStatusScheduled {
		return m.reject(slot, models.SlotStatusSkipped)
	}
	return m.transition(slot, models.SlotStatusSkipped, nil, "slot skipped")
}

func (m *Manager) transition(slot models.ScheduleSlot, to models.SlotStatus, result *models.ActivityResult, note string) error {
	entry := models.LogEntry{
		At:   m.clock().Format(time.RFC3339),
		Note: note,
	}
	return m.store.UpdateSlotStatus(slot.ID, to, result, entry)
}

func (m *Manager) reject(slot models.ScheduleSlot, to models.SlotStatus) error {
	return fmt.Errorf("%w: slot %s is %s, cannot become %s", ErrInvalidTransition, slot.ID, slot.Status, to)
}
