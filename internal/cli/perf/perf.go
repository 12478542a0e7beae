package perf

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/pulseplan/pulseplan/internal/cli"
	"github.com/pulseplan/pulseplan/internal/models"
	"github.com/pulseplan/pulseplan/internal/storage"
	"github.com/pulseplan/pulseplan/internal/utils"
)

type IngestCmd struct {
	File string `arg:"" help:"Path to a JSON performance analysis exported by the collector."`
}

func (c *IngestCmd) Run(ctx *cli.Context) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("failed to read analysis file: %w", err)
	}

	var analysis models.PerformanceAnalysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		return fmt.Errorf("failed to parse analysis file: %w", err)
	}
	if !utils.ValidateDateFormat(analysis.Date) {
		return fmt.Errorf("analysis has invalid date: %q", analysis.Date)
	}
	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = time.Now()
	}

	if err := ctx.Store.SaveAnalysis(analysis); err != nil {
		if errors.Is(err, storage.ErrAnalysisExists) {
			return fmt.Errorf("an analysis for %s already exists; analyses are immutable once written", analysis.Date)
		}
		return err
	}

	fmt.Printf("Ingested performance analysis for %s (score %.2f).\n", analysis.Date, analysis.Score)
	return nil
}

type ShowCmd struct {
	Date string `arg:"" help:"Date to show (YYYY-MM-DD or 'today')." default:"today"`
}

func (c *ShowCmd) Run(ctx *cli.Context) error {
	date, err := ctx.ResolveDate(c.Date)
	if err != nil {
		return err
	}

	analysis, err := ctx.Store.GetAnalysis(date)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fmt.Printf("No performance analysis for %s.\n", date)
			return nil
		}
		return err
	}

	fmt.Println(cli.HeaderStyle.Render(fmt.Sprintf("Performance for %s (score %.2f)", analysis.Date, analysis.Score)))

	if len(analysis.Metrics) > 0 {
		fmt.Println("\n  Metrics:")
		metrics := make([]string, 0, len(analysis.Metrics))
		for m := range analysis.Metrics {
			metrics = append(metrics, m)
		}
		sort.Strings(metrics)
		for _, m := range metrics {
			fmt.Printf("    %-18s %.2f\n", m, analysis.Metrics[m])
		}
	}

	if len(analysis.ActivityStats) > 0 {
		fmt.Println("\n  Activity effectiveness:")
		for _, kind := range models.AllKinds() {
			if stat, ok := analysis.ActivityStats[kind]; ok {
				fmt.Printf("    %-16s %d sessions, %d interactions, %.2f effective\n", kind, stat.Sessions, stat.Interactions, stat.Effectiveness())
			}
		}
	}

	if len(analysis.Insights) > 0 {
		fmt.Println("\n  Insights:")
		for _, in := range analysis.Insights {
			fmt.Printf("    - %s\n", in)
		}
	}
	if len(analysis.Recommendations) > 0 {
		fmt.Println("\n  Recommendations:")
		for _, rec := range analysis.Recommendations {
			fmt.Printf("    - %s\n", rec)
		}
	}
	return nil
}
