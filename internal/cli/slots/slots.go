package slots

import (
	"fmt"

	"github.com/pulseplan/pulseplan/internal/cli"
	"github.com/pulseplan/pulseplan/internal/models"
)

type StartCmd struct {
	ID string `arg:"" help:"Slot ID to start."`
}

func (c *StartCmd) Run(ctx *cli.Context) error {
	if err := ctx.Lifecycle.Start(c.ID); err != nil {
		return err
	}
	fmt.Println(cli.SuccessStyle.Render("Slot started."))
	return nil
}

type CompleteCmd struct {
	ID           string `arg:"" help:"Slot ID to complete."`
	Interactions int    `help:"Number of interactions performed." default:"0"`
	Detail       string `help:"Optional result note."`
}

func (c *CompleteCmd) Run(ctx *cli.Context) error {
	result := &models.ActivityResult{
		Success:      true,
		Interactions: c.Interactions,
		Detail:       c.Detail,
	}
	if err := ctx.Lifecycle.Complete(c.ID, result); err != nil {
		return err
	}
	fmt.Println(cli.SuccessStyle.Render("Slot completed."))
	return nil
}

type FailCmd struct {
	ID     string `arg:"" help:"Slot ID to fail."`
	Reason string `arg:"" help:"Why the activity failed."`
}

func (c *FailCmd) Run(ctx *cli.Context) error {
	if err := ctx.Lifecycle.Fail(c.ID, c.Reason); err != nil {
		return err
	}
	fmt.Println(cli.WarnStyle.Render("Slot marked failed."))
	return nil
}

type SkipCmd struct {
	ID string `arg:"" help:"Slot ID to skip."`
}

func (c *SkipCmd) Run(ctx *cli.Context) error {
	if err := ctx.Lifecycle.Skip(c.ID); err != nil {
		return err
	}
	fmt.Println("Slot skipped.")
	return nil
}

type SwapCmd struct {
	ID    string `arg:"" help:"Slot ID to change."`
	Kind  string `arg:"" help:"New activity kind."`
	Force bool   `help:"Allow changing a slot that already finished."`
}

func (c *SwapCmd) Run(ctx *cli.Context) error {
	kind, err := models.ParseKind(c.Kind)
	if err != nil {
		return err
	}
	if err := ctx.Scheduler.UpdateSlotActivity(c.ID, kind, nil, c.Force); err != nil {
		return err
	}
	fmt.Printf("Slot activity changed to %s.\n", kind)
	return nil
}
