package validation

import (
	"fmt"
	"sort"

	"github.com/pulseplan/pulseplan/internal/models"
	"github.com/pulseplan/pulseplan/internal/utils"
)

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	ConflictUnknownKind      ConflictType = "unknown_kind"
	ConflictInvalidDateTime  ConflictType = "invalid_datetime"
	ConflictInvertedRange    ConflictType = "inverted_range"
	ConflictWrongDuration    ConflictType = "wrong_duration"
	ConflictCrossesMidnight  ConflictType = "crosses_midnight"
	ConflictOverlappingSlots ConflictType = "overlapping_slots"
	ConflictUnknownStatus    ConflictType = "unknown_status"
)

// Conflict represents a detected problem in a slot or schedule
type Conflict struct {
	Type        ConflictType
	Description string
	Date        string   // YYYY-MM-DD format (if applicable)
	SlotIDs     []string // IDs of slots involved
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	report := "Conflicts detected:\n"
	for _, conflict := range vr.Conflicts {
		report += fmt.Sprintf("- %s\n", conflict.Description)
	}
	return report
}

// Validator validates slots and schedules
type Validator struct{}

// New creates a new Validator
func New() *Validator {
	return &Validator{}
}

// ValidateSlot checks a single slot: recognized kind and status, parseable
// times, start strictly before end, and a duration exactly matching the
// configured slot width. Malformed slots are rejected before persistence,
// never coerced.
func (v *Validator) ValidateSlot(slot models.ScheduleSlot, slotMin int) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	if !slot.Kind.Valid() {
		result.Conflicts = append(result.Conflicts, Conflict{
			Type:        ConflictUnknownKind,
			Description: fmt.Sprintf("slot %s has unknown activity kind %q", slot.ID, slot.Kind),
			Date:        slot.Date,
			SlotIDs:     []string{slot.ID},
		})
	}

	if !slot.Status.Valid() {
		result.Conflicts = append(result.Conflicts, Conflict{
			Type:        ConflictUnknownStatus,
			Description: fmt.Sprintf("slot %s has unknown status %q", slot.ID, slot.Status),
			Date:        slot.Date,
			SlotIDs:     []string{slot.ID},
		})
	}

	if !utils.ValidateDateFormat(slot.Date) {
		result.Conflicts = append(result.Conflicts, Conflict{
			Type:        ConflictInvalidDateTime,
			Description: fmt.Sprintf("slot %s has invalid date %q", slot.ID, slot.Date),
			SlotIDs:     []string{slot.ID},
		})
		return result
	}

	start, errStart := utils.ParseTimeToMinutes(slot.Start)
	end, errEnd := utils.ParseTimeToMinutes(slot.End)
	if errStart != nil || errEnd != nil {
		result.Conflicts = append(result.Conflicts, Conflict{
			Type:        ConflictInvalidDateTime,
			Description: fmt.Sprintf("slot %s has invalid time range %s-%s", slot.ID, slot.Start, slot.End),
			Date:        slot.Date,
			SlotIDs:     []string{slot.ID},
		})
		return result
	}

	if start >= end {
		result.Conflicts = append(result.Conflicts, Conflict{
			Type:        ConflictInvertedRange,
			Description: fmt.Sprintf("slot %s starts at or after its end (%s-%s)", slot.ID, slot.Start, slot.End),
			Date:        slot.Date,
			SlotIDs:     []string{slot.ID},
		})
		return result
	}

	if end-start != slotMin {
		result.Conflicts = append(result.Conflicts, Conflict{
			Type:        ConflictWrongDuration,
			Description: fmt.Sprintf("slot %s spans %d minutes, expected %d", slot.ID, end-start, slotMin),
			Date:        slot.Date,
			SlotIDs:     []string{slot.ID},
		})
	}

	// end == 1440 lands exactly on midnight and stays within the date.
	if end > 24*60 {
		result.Conflicts = append(result.Conflicts, Conflict{
			Type:        ConflictCrossesMidnight,
			Description: fmt.Sprintf("slot %s ends past midnight (%s)", slot.ID, slot.End),
			Date:        slot.Date,
			SlotIDs:     []string{slot.ID},
		})
	}

	return result
}

// ValidateSchedule checks every slot of one date plus the pairwise
// no-overlap invariant over closed-open [start, end) windows.
func (v *Validator) ValidateSchedule(slots []models.ScheduleSlot, slotMin int) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	for _, slot := range slots {
		r := v.ValidateSlot(slot, slotMin)
		result.Conflicts = append(result.Conflicts, r.Conflicts...)
	}

	// Sort by start time, then scan adjacent pairs for overlap.
	sorted := make([]models.ScheduleSlot, len(slots))
	copy(sorted, slots)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if prev.Date != cur.Date {
			continue
		}
		prevEnd, err := utils.ParseTimeToMinutes(prev.End)
		if err != nil {
			continue
		}
		curStart, err := utils.ParseTimeToMinutes(cur.Start)
		if err != nil {
			continue
		}
		if curStart < prevEnd {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type: ConflictOverlappingSlots,
				Description: fmt.Sprintf("slots %s (%s-%s) and %s (%s-%s) overlap",
					prev.ID, prev.Start, prev.End, cur.ID, cur.Start, cur.End),
				Date:    cur.Date,
				SlotIDs: []string{prev.ID, cur.ID},
			})
		}
	}

	return result
}
