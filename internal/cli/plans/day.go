package plans

import (
	"errors"
	"fmt"

	"github.com/pulseplan/pulseplan/internal/cli"
	"github.com/pulseplan/pulseplan/internal/storage"
)

type DayCmd struct {
	Date string `arg:"" help:"Date to show (YYYY-MM-DD or 'today')." default:"today"`
	Log  bool   `help:"Include each slot's execution log."`
}

func (c *DayCmd) Run(ctx *cli.Context) error {
	date, err := ctx.ResolveDate(c.Date)
	if err != nil {
		return err
	}

	schedule, err := ctx.Store.GetSchedule(date)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fmt.Printf("No schedule for %s. Run 'pulseplan plan %s' to create one.\n", date, date)
			return nil
		}
		return err
	}

	fmt.Println(cli.HeaderStyle.Render(fmt.Sprintf("Schedule for %s", date)))
	fmt.Printf("Completion: %.0f%%\n\n", schedule.CompletionRate()*100)
	for _, slot := range schedule.Slots {
		fmt.Println("  " + cli.FormatSlot(slot))
		if slot.Result != nil && slot.Result.Detail != "" {
			fmt.Printf("      %s\n", cli.DimStyle.Render(slot.Result.Detail))
		}
		if c.Log {
			for _, entry := range slot.Log {
				fmt.Printf("      %s %s\n", cli.DimStyle.Render(entry.At), entry.Note)
			}
		}
	}
	return nil
}
