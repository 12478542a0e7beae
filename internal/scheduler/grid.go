package scheduler

import (
	"fmt"
	"time"

	"github.com/pulseplan/pulseplan/internal/constants"
	"github.com/pulseplan/pulseplan/internal/utils"
)

// Grid partitions a calendar date into fixed-duration slot boundaries.
type Grid struct {
	SlotMin int
}

// Boundaries returns the ordered slot start times for date, as minutes from
// midnight, aligned to multiples of the slot duration.
//
// When date is today (relative to now), the first boundary is the next grid
// multiple strictly after now, so a slot never starts in the past; minute
// overflow rolls into the next hour. Future dates start at midnight (or the
// configured day start, whichever is later). Past dates yield no boundaries.
// The last boundary never starts later than one slot before midnight, so no
// slot crosses into the next calendar date.
func (g Grid) Boundaries(date string, now time.Time, dayStart, dayEnd string) ([]int, error) {
	if g.SlotMin <= 0 {
		return nil, fmt.Errorf("invalid slot duration: %d", g.SlotMin)
	}

	startMin, err := utils.ParseTimeToMinutes(dayStart)
	if err != nil {
		return nil, fmt.Errorf("invalid day start time: %w", err)
	}
	endMin, err := utils.ParseTimeToMinutes(dayEnd)
	if err != nil {
		return nil, fmt.Errorf("invalid day end time: %w", err)
	}

	today := now.Format(constants.DateFormat)
	if date < today {
		return nil, nil
	}

	// Align the first boundary up to the next grid multiple.
	first := alignUp(startMin, g.SlotMin)

	if date == today {
		// Next multiple strictly after now; a boundary equal to now is
		// already in the past by the time the slot would be persisted.
		nowMin := utils.MinutesOfDay(now)
		anchor := (nowMin/g.SlotMin + 1) * g.SlotMin
		if anchor > first {
			first = anchor
		}
	}

	last := endMin - g.SlotMin
	if max := 24*60 - g.SlotMin; last > max {
		last = max
	}

	var boundaries []int
	for t := first; t <= last; t += g.SlotMin {
		boundaries = append(boundaries, t)
	}
	return boundaries, nil
}

func alignUp(minutes, slotMin int) int {
	if minutes%slotMin == 0 {
		return minutes
	}
	return (minutes/slotMin + 1) * slotMin
}
