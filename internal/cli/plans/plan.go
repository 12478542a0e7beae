package plans

import (
	"fmt"

	"github.com/pulseplan/pulseplan/internal/cli"
	"github.com/pulseplan/pulseplan/internal/models"
)

type PlanCmd struct {
	Date  string `arg:"" help:"Date to schedule (YYYY-MM-DD or 'today')." default:"today"`
	Force bool   `help:"Discard any existing schedule for the date and rebuild from scratch."`
}

func (c *PlanCmd) Run(ctx *cli.Context) error {
	date, err := ctx.ResolveDate(c.Date)
	if err != nil {
		return err
	}

	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	schedule, err := ctx.Scheduler.GetOrCreateDailySchedule(date, c.Force, settings.DisabledActivities)
	if err != nil {
		return err
	}

	fmt.Println(cli.HeaderStyle.Render(fmt.Sprintf("Schedule for %s (%d slots)", schedule.Date, len(schedule.Slots))))
	if schedule.Focus != "" {
		fmt.Printf("Focus: %s\n", schedule.Focus)
	}
	fmt.Println()
	for _, slot := range schedule.Slots {
		fmt.Println("  " + cli.FormatSlot(slot))
	}
	if len(schedule.DailyGoals) > 0 {
		fmt.Println()
		fmt.Println("Daily goals:")
		for _, kind := range models.AllKinds() {
			if n, ok := schedule.DailyGoals[kind]; ok && n > 0 {
				fmt.Printf("  %-16s %d\n", kind, n)
			}
		}
	}
	return nil
}

type RegenerateCmd struct {
	Date     string `arg:"" help:"Date to regenerate (YYYY-MM-DD or 'today')." default:"today"`
	Platform string `help:"Only rebuild slots for this platform (twitter or linkedin)." required:""`
}

func (c *RegenerateCmd) Run(ctx *cli.Context) error {
	date, err := ctx.ResolveDate(c.Date)
	if err != nil {
		return err
	}

	platform := models.Platform(c.Platform)
	if platform != models.PlatformTwitter && platform != models.PlatformLinkedIn {
		return fmt.Errorf("unknown platform: %s", c.Platform)
	}

	schedule, err := ctx.Scheduler.RegenerateForPlatform(date, platform)
	if err != nil {
		return err
	}

	fmt.Printf("Regenerated %s slots for %s:\n\n", platform, date)
	for _, slot := range schedule.Slots {
		fmt.Println("  " + cli.FormatSlot(slot))
	}
	return nil
}
