package plans

import (
	"fmt"

	"github.com/pulseplan/pulseplan/internal/cli"
	"github.com/pulseplan/pulseplan/internal/models"
)

type SummaryCmd struct {
	Date string `arg:"" help:"Date to summarize (YYYY-MM-DD or 'today')." default:"today"`
}

func (c *SummaryCmd) Run(ctx *cli.Context) error {
	date, err := ctx.ResolveDate(c.Date)
	if err != nil {
		return err
	}

	summary, err := ctx.Scheduler.GetScheduleSummary(date)
	if err != nil {
		return err
	}

	fmt.Println(cli.HeaderStyle.Render(fmt.Sprintf("Summary for %s", summary.Date)))
	fmt.Printf("  Total slots: %d\n", summary.TotalSlots)
	fmt.Printf("  Completion:  %.0f%%\n", summary.CompletionRate*100)

	if len(summary.ActivityDistribution) > 0 {
		fmt.Println("\n  Activity distribution:")
		for _, kind := range models.AllKinds() {
			if n, ok := summary.ActivityDistribution[kind]; ok {
				fmt.Printf("    %-16s %d\n", kind, n)
			}
		}
	}
	if len(summary.StatusDistribution) > 0 {
		fmt.Println("\n  Status distribution:")
		for status, n := range summary.StatusDistribution {
			fmt.Printf("    %-12s %d\n", status, n)
		}
	}
	return nil
}
