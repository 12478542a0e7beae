package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pulseplan/pulseplan/internal/lifecycle"
	"github.com/pulseplan/pulseplan/internal/models"
	"github.com/pulseplan/pulseplan/internal/scheduler"
	"github.com/pulseplan/pulseplan/internal/storage"
	"github.com/pulseplan/pulseplan/internal/utils"
)

type Context struct {
	Store     storage.Provider
	Scheduler *scheduler.Service
	Lifecycle *lifecycle.Manager
}

var (
	HeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	WarnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// ResolveDate turns "today" or a YYYY-MM-DD string into a concrete date in
// the configured timezone.
func (c *Context) ResolveDate(date string) (string, error) {
	if date == "today" || date == "" {
		settings, err := c.Store.GetSettings()
		if err != nil {
			return "", fmt.Errorf("failed to get settings: %w", err)
		}
		return utils.GetTodayFromSettings(settings)
	}
	if !utils.ValidateDateFormat(date) {
		return "", fmt.Errorf("invalid date format, use YYYY-MM-DD or 'today': %s", date)
	}
	return date, nil
}

// StatusIcon maps a slot status to its one-character display marker.
func StatusIcon(status models.SlotStatus) string {
	switch status {
	case models.SlotStatusCompleted:
		return SuccessStyle.Render("✓")
	case models.SlotStatusFailed:
		return ErrorStyle.Render("✗")
	case models.SlotStatusInProgress:
		return WarnStyle.Render("▶")
	case models.SlotStatusSkipped:
		return DimStyle.Render("–")
	default:
		return " "
	}
}

// FormatSlot renders one schedule line: time range, marker, activity, platform.
func FormatSlot(slot models.ScheduleSlot) string {
	line := fmt.Sprintf("%s–%s %s %-16s %s", slot.Start, slot.End, StatusIcon(slot.Status), slot.Kind, DimStyle.Render(string(slot.Platform)))
	return strings.TrimRight(line, " ")
}
