package optimize

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/pulseplan/pulseplan/internal/cli"
	"github.com/pulseplan/pulseplan/internal/optimizer"
)

type OptimizeCmd struct {
	Template       string   `help:"Template to optimize (defaults to the active one)."`
	Days           int      `help:"Number of trailing days of performance data to analyze." default:"7"`
	DryRun         bool     `help:"Show proposed adjustments without applying them."`
	Interactive    bool     `help:"Interactively review and select which adjustments to apply."`
	AutoApply      bool     `help:"Apply all significant adjustments without confirmation."`
	Threshold      *float64 `help:"Override the significance threshold for this run."`
	MaxAdjustments *int     `help:"Override the per-run adjustment cap for this run."`
}

func (c *OptimizeCmd) Run(ctx *cli.Context) error {
	opt := c.newOptimizer(ctx)

	fmt.Printf("Analyzing the last %d days of performance data...\n", c.Days)
	report, tpl, err := opt.Plan(c.Template, c.Days)
	if err != nil {
		if errors.Is(err, optimizer.ErrInsufficientData) {
			fmt.Println(cli.WarnStyle.Render(err.Error()))
			fmt.Println("Ingest more daily analyses with 'pulseplan perf ingest' and retry.")
			return nil
		}
		return err
	}

	if len(report.Candidates) == 0 {
		fmt.Println(cli.SuccessStyle.Render("No significant adjustments found. Strategy is holding up."))
		return nil
	}

	fmt.Printf("\n%s\n\n", cli.HeaderStyle.Render(fmt.Sprintf("%d proposed adjustment(s) for template %q", len(report.Candidates), report.Template)))
	for i, adj := range report.Candidates {
		displayAdjustment(i+1, adj)
	}

	if c.DryRun {
		fmt.Println("\nDry run: nothing was applied. Use --auto-apply or --interactive to apply.")
		return nil
	}

	selected := report.Candidates
	if c.Interactive {
		selected, err = pickAdjustments(report.Candidates)
		if err != nil {
			return err
		}
		if len(selected) == 0 {
			fmt.Println("Nothing selected; template unchanged.")
			return nil
		}
	} else if !c.AutoApply {
		fmt.Println("\nTo apply these adjustments:")
		fmt.Println("  --interactive to review and select which to apply")
		fmt.Println("  --auto-apply to apply all of them")
		return nil
	}

	applied, err := opt.Apply(tpl, selected)
	if err != nil {
		return err
	}
	fmt.Printf("\n%s\n", cli.SuccessStyle.Render(fmt.Sprintf("Applied %d adjustment(s) to %q.", len(applied), tpl.Name)))
	return nil
}

// newOptimizer honors per-run flag overrides; without them the optimizer
// falls back to the tunables stored in Settings.
func (c *OptimizeCmd) newOptimizer(ctx *cli.Context) *optimizer.Optimizer {
	if c.Threshold == nil && c.MaxAdjustments == nil {
		return optimizer.New(ctx.Store)
	}
	cfg := optimizer.DefaultConfig()
	if c.Threshold != nil {
		cfg.SignificanceThreshold = *c.Threshold
	}
	if c.MaxAdjustments != nil {
		cfg.MaxAdjustments = *c.MaxAdjustments
	}
	return optimizer.NewWithConfig(ctx.Store, cfg)
}

func pickAdjustments(candidates []optimizer.Adjustment) ([]optimizer.Adjustment, error) {
	options := make([]huh.Option[int], len(candidates))
	for i, adj := range candidates {
		options[i] = huh.NewOption(fmt.Sprintf("%s (impact %.2f)", adj.Description, adj.Impact), i)
	}

	var picked []int
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[int]().
				Title("Select adjustments to apply").
				Options(options...).
				Value(&picked),
		),
	)
	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("interactive form error: %w", err)
	}

	out := make([]optimizer.Adjustment, 0, len(picked))
	for _, idx := range picked {
		out = append(out, candidates[idx])
	}
	return out, nil
}

func displayAdjustment(num int, adj optimizer.Adjustment) {
	fmt.Printf("%d. %s\n", num, adj.Description)
	fmt.Printf("   Rule:   %s\n", adj.RuleID)
	fmt.Printf("   Impact: %.2f\n\n", adj.Impact)
}
