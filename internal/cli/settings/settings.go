package settings

import (
	"fmt"
	"strings"

	"github.com/pulseplan/pulseplan/internal/cli"
	"github.com/pulseplan/pulseplan/internal/models"
	"github.com/pulseplan/pulseplan/internal/utils"
)

type SettingsCmd struct {
	List bool `help:"List current settings."`

	DayStart              *string  `help:"Earliest time slots may start (HH:MM)."`
	DayEnd                *string  `help:"Latest time slots may end (HH:MM, '24:00' for full day)."`
	SlotDuration          *int     `help:"Slot width in minutes; must divide a day evenly."`
	Timezone              *string  `help:"IANA timezone name, or 'Local'."`
	PremiumAccount        *bool    `help:"Whether the account has premium features."`
	PollIntervalSec       *int     `help:"Control loop tick interval in seconds."`
	SignificanceThreshold *float64 `help:"Minimum improvement ratio before an adjustment is applied."`
	MaxAdjustmentsPerRun  *int     `help:"Cap on adjustments applied per optimization run."`
	DisabledActivities    *string  `help:"Comma-separated activity kinds to exclude from scheduling (empty string clears)."`
}

func (c *SettingsCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	if c.List {
		fmt.Println("Current Settings:")
		fmt.Printf("  Day Start:              %s\n", settings.DayStart)
		fmt.Printf("  Day End:                %s\n", settings.DayEnd)
		fmt.Printf("  Slot Duration:          %d min\n", settings.SlotDurationMin)
		fmt.Printf("  Timezone:               %s\n", settings.Timezone)
		fmt.Printf("  Premium Account:        %v\n", settings.PremiumAccount)
		fmt.Printf("  Poll Interval:          %d sec\n", settings.PollIntervalSec)
		fmt.Println("\nOptimizer Settings:")
		fmt.Printf("  Significance Threshold: %.2f\n", settings.SignificanceThreshold)
		fmt.Printf("  Max Adjustments/Run:    %d\n", settings.MaxAdjustmentsPerRun)
		fmt.Printf("  Max Distribution Delta: %.2f\n", settings.MaxDistributionDelta)
		if len(settings.DisabledActivities) > 0 {
			kinds := make([]string, len(settings.DisabledActivities))
			for i, k := range settings.DisabledActivities {
				kinds[i] = string(k)
			}
			fmt.Printf("  Disabled Activities:    %s\n", strings.Join(kinds, ", "))
		}
		return nil
	}

	updated := false
	if c.DayStart != nil {
		if !utils.ValidateTimeFormat(*c.DayStart) {
			return fmt.Errorf("invalid day start time: %s", *c.DayStart)
		}
		settings.DayStart = *c.DayStart
		updated = true
	}
	if c.DayEnd != nil {
		if *c.DayEnd != "24:00" && !utils.ValidateTimeFormat(*c.DayEnd) {
			return fmt.Errorf("invalid day end time: %s", *c.DayEnd)
		}
		settings.DayEnd = *c.DayEnd
		updated = true
	}
	if c.SlotDuration != nil {
		if *c.SlotDuration <= 0 || 1440%*c.SlotDuration != 0 {
			return fmt.Errorf("slot duration must be a positive divisor of 1440 minutes, got %d", *c.SlotDuration)
		}
		settings.SlotDurationMin = *c.SlotDuration
		updated = true
	}
	if c.Timezone != nil {
		if !utils.ValidateTimezone(*c.Timezone) {
			return fmt.Errorf("invalid timezone: %s", *c.Timezone)
		}
		settings.Timezone = *c.Timezone
		updated = true
	}
	if c.PremiumAccount != nil {
		settings.PremiumAccount = *c.PremiumAccount
		updated = true
	}
	if c.PollIntervalSec != nil {
		if *c.PollIntervalSec < 1 {
			return fmt.Errorf("poll interval must be at least 1 second")
		}
		settings.PollIntervalSec = *c.PollIntervalSec
		updated = true
	}
	if c.SignificanceThreshold != nil {
		settings.SignificanceThreshold = *c.SignificanceThreshold
		updated = true
	}
	if c.MaxAdjustmentsPerRun != nil {
		settings.MaxAdjustmentsPerRun = *c.MaxAdjustmentsPerRun
		updated = true
	}
	if c.DisabledActivities != nil {
		kinds, err := parseKindList(*c.DisabledActivities)
		if err != nil {
			return err
		}
		settings.DisabledActivities = kinds
		updated = true
	}

	if updated {
		if err := ctx.Store.SaveSettings(settings); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
		fmt.Println("Settings updated successfully.")
	} else {
		fmt.Println("No changes specified. Use --list to view settings or flags to update them.")
	}

	return nil
}

func parseKindList(s string) ([]models.ActivityKind, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var kinds []models.ActivityKind
	for _, part := range strings.Split(s, ",") {
		kind, err := models.ParseKind(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}
