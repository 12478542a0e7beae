package system

import (
	"errors"
	"fmt"

	"github.com/pulseplan/pulseplan/internal/cli"
	"github.com/pulseplan/pulseplan/internal/storage"
	"github.com/pulseplan/pulseplan/internal/validation"
)

type ValidateCmd struct {
	Date string `arg:"" help:"Date to validate (YYYY-MM-DD or 'today')." default:"today"`
}

func (c *ValidateCmd) Run(ctx *cli.Context) error {
	date, err := ctx.ResolveDate(c.Date)
	if err != nil {
		return err
	}

	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	slots, err := ctx.Store.GetSlotsForDate(date)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fmt.Printf("No schedule for %s.\n", date)
			return nil
		}
		return err
	}
	if len(slots) == 0 {
		fmt.Printf("No slots scheduled for %s.\n", date)
		return nil
	}

	validator := validation.New()
	result := validator.ValidateSchedule(slots, settings.SlotDurationMin)

	if !result.HasConflicts() {
		fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Schedule for %s is valid (%d slots).", date, len(slots))))
		return nil
	}

	fmt.Println(cli.WarnStyle.Render(fmt.Sprintf("Found %d conflict(s) for %s:", len(result.Conflicts), date)))
	fmt.Print(result.FormatReport())
	return nil
}
