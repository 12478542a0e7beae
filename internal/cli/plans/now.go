package plans

import (
	"fmt"

	"github.com/pulseplan/pulseplan/internal/cli"
)

type NowCmd struct{}

func (c *NowCmd) Run(ctx *cli.Context) error {
	slot, err := ctx.Scheduler.GetCurrentActivity()
	if err != nil {
		return err
	}
	if slot == nil {
		fmt.Println("No activity scheduled right now.")
		next, err := ctx.Scheduler.GetNextActivity()
		if err != nil {
			return err
		}
		if next != nil {
			fmt.Printf("Next up at %s: %s\n", next.Start, next.Kind)
		}
		return nil
	}

	fmt.Println(cli.HeaderStyle.Render("Current activity"))
	fmt.Println("  " + cli.FormatSlot(*slot))
	if slot.Config.TargetKeyword != "" {
		fmt.Printf("  Target: %s\n", slot.Config.TargetKeyword)
	}
	fmt.Printf("  Slot ID: %s\n", cli.DimStyle.Render(slot.ID))
	return nil
}

type NextCmd struct{}

func (c *NextCmd) Run(ctx *cli.Context) error {
	slot, err := ctx.Scheduler.GetNextActivity()
	if err != nil {
		return err
	}
	if slot == nil {
		fmt.Println("No more scheduled activities today.")
		return nil
	}

	fmt.Println(cli.HeaderStyle.Render("Next activity"))
	fmt.Println("  " + cli.FormatSlot(*slot))
	fmt.Printf("  Slot ID: %s\n", cli.DimStyle.Render(slot.ID))
	return nil
}
