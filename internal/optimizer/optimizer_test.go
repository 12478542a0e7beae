package optimizer

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/pulseplan/pulseplan/internal/models"
	"github.com/pulseplan/pulseplan/internal/storage"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestOptimizer(t *testing.T) (*Optimizer, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	if err := store.Init(); err != nil {
		t.Fatalf("store init failed: %v", err)
	}
	settings, _ := store.GetSettings()
	settings.Timezone = "UTC"
	if err := store.SaveSettings(settings); err != nil {
		t.Fatalf("save settings failed: %v", err)
	}

	tpl := models.DefaultTemplate(testNow.AddDate(0, 0, -30))
	if err := store.SaveTemplate(tpl); err != nil {
		t.Fatalf("save template failed: %v", err)
	}

	opt := New(store)
	opt.clock = func() time.Time { return testNow }
	return opt, store
}

// seedAnalyses writes n consecutive daily analyses ending today, each built
// by mutate over a blank analysis.
func seedAnalyses(t *testing.T, store *storage.MemoryStore, n int, mutate func(a *models.PerformanceAnalysis)) {
	t.Helper()
	for i := 0; i < n; i++ {
		a := models.PerformanceAnalysis{
			Date:      testNow.AddDate(0, 0, -i).Format("2006-01-02"),
			Metrics:   map[string]float64{},
			Score:     0.5,
			CreatedAt: testNow,
		}
		mutate(&a)
		if err := store.SaveAnalysis(a); err != nil {
			t.Fatalf("save analysis failed: %v", err)
		}
	}
}

func TestOptimize_InsufficientData(t *testing.T) {
	opt, store := newTestOptimizer(t)
	seedAnalyses(t, store, 2, func(a *models.PerformanceAnalysis) {})

	_, err := opt.Optimize("", 7, false)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData with 2 days of data, got %v", err)
	}
}

func TestOptimize_DistributionShiftTowardEffectiveKind(t *testing.T) {
	opt, store := newTestOptimizer(t)
	seedAnalyses(t, store, 3, func(a *models.PerformanceAnalysis) {
		a.ActivityStats = map[models.ActivityKind]models.ActivityStat{
			models.KindTweet:  {Sessions: 1, Interactions: 10, Quality: 1.0},
			models.KindFollow: {Sessions: 1, Interactions: 2, Quality: 1.0},
		}
	})

	before, _ := store.GetActiveTemplate()
	report, err := opt.Optimize("", 7, false)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if len(report.Applied) != 1 {
		t.Fatalf("expected exactly one applied adjustment, got %d", len(report.Applied))
	}
	adj := report.Applied[0]
	if adj.Action != models.RuleShiftDistribution {
		t.Fatalf("expected a distribution shift, got %s", adj.Action)
	}
	if adj.Impact != 5.0 {
		t.Errorf("expected impact 5.0 (10 vs 2), got %f", adj.Impact)
	}

	after, _ := store.GetActiveTemplate()
	gained := after.Distribution[models.KindTweet] - before.Distribution[models.KindTweet]
	lost := before.Distribution[models.KindFollow] - after.Distribution[models.KindFollow]
	if gained <= 0 || lost <= 0 {
		t.Fatalf("expected weight moved from follow to tweet, got gained=%f lost=%f", gained, lost)
	}
	if math.Abs(gained-lost) > 1e-9 {
		t.Errorf("shift not weight-preserving: gained %f, lost %f", gained, lost)
	}
	if gained > 0.20+1e-9 {
		t.Errorf("shift %f exceeds the 0.20 bound", gained)
	}
}

func TestOptimize_DistributionShiftIsBounded(t *testing.T) {
	opt, store := newTestOptimizer(t)

	tpl, _ := store.GetActiveTemplate()
	tpl.Distribution = map[models.ActivityKind]float64{
		models.KindTweet:  1.0,
		models.KindFollow: 1.0,
	}
	if err := store.SaveTemplate(tpl); err != nil {
		t.Fatalf("save template failed: %v", err)
	}

	seedAnalyses(t, store, 3, func(a *models.PerformanceAnalysis) {
		a.ActivityStats = map[models.ActivityKind]models.ActivityStat{
			models.KindTweet:  {Sessions: 1, Interactions: 10, Quality: 1.0},
			models.KindFollow: {Sessions: 1, Interactions: 1, Quality: 1.0},
		}
	})

	report, err := opt.Optimize("", 7, false)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if len(report.Applied) != 1 {
		t.Fatalf("expected one applied adjustment, got %d", len(report.Applied))
	}

	after, _ := store.GetActiveTemplate()
	if got := after.Distribution[models.KindTweet]; math.Abs(got-1.2) > 1e-9 {
		t.Errorf("expected tweet weight capped at 1.2, got %f", got)
	}
	if got := after.Distribution[models.KindFollow]; math.Abs(got-0.8) > 1e-9 {
		t.Errorf("expected follow weight reduced to 0.8, got %f", got)
	}
}

func TestOptimize_BelowThresholdDoesNothing(t *testing.T) {
	opt, store := newTestOptimizer(t)
	seedAnalyses(t, store, 3, func(a *models.PerformanceAnalysis) {
		a.ActivityStats = map[models.ActivityKind]models.ActivityStat{
			models.KindTweet:  {Sessions: 10, Interactions: 105, Quality: 1.0},
			models.KindFollow: {Sessions: 10, Interactions: 100, Quality: 1.0},
		}
	})

	before, _ := store.GetActiveTemplate()
	report, err := opt.Optimize("", 7, false)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if len(report.Candidates) != 0 {
		t.Fatalf("expected no candidates below the significance threshold, got %d", len(report.Candidates))
	}

	after, _ := store.GetActiveTemplate()
	if !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Error("template was touched despite no significant adjustments")
	}
}

func TestOptimize_CapsAdjustmentsPerRun(t *testing.T) {
	opt, store := newTestOptimizer(t)

	tpl, _ := store.GetActiveTemplate()
	tpl.Targets = map[string]float64{}
	for i := 0; i < 8; i++ {
		tpl.Targets[fmt.Sprintf("metric_%d", i)] = 100
	}
	if err := store.SaveTemplate(tpl); err != nil {
		t.Fatalf("save template failed: %v", err)
	}

	seedAnalyses(t, store, 3, func(a *models.PerformanceAnalysis) {
		for i := 0; i < 8; i++ {
			a.Metrics[fmt.Sprintf("metric_%d", i)] = 200 // 2.0x achievement
		}
	})

	report, err := opt.Optimize("", 7, false)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if len(report.Applied) != 5 {
		t.Errorf("expected applied adjustments capped at 5, got %d", len(report.Applied))
	}
}

func TestOptimize_TargetReanchoring(t *testing.T) {
	opt, store := newTestOptimizer(t)

	tpl, _ := store.GetActiveTemplate()
	tpl.Targets = map[string]float64{
		"impressions":   1000, // will overachieve at 2x
		"new_followers": 100,  // will underachieve at 0.5x
	}
	if err := store.SaveTemplate(tpl); err != nil {
		t.Fatalf("save template failed: %v", err)
	}

	seedAnalyses(t, store, 3, func(a *models.PerformanceAnalysis) {
		a.Metrics["impressions"] = 2000
		a.Metrics["new_followers"] = 50
	})

	_, err := opt.Optimize("", 7, false)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	after, _ := store.GetActiveTemplate()
	if got := after.Targets["impressions"]; math.Abs(got-1100) > 1e-9 {
		t.Errorf("expected impressions target raised to 1100, got %f", got)
	}
	if got := after.Targets["new_followers"]; math.Abs(got-90) > 1e-9 {
		t.Errorf("expected followers target lowered to 90, got %f", got)
	}
}

func TestOptimize_TimingShiftIsBounded(t *testing.T) {
	opt, store := newTestOptimizer(t)

	tpl, _ := store.GetActiveTemplate()
	tpl.OptimalTimes = []string{"09:00"}
	if err := store.SaveTemplate(tpl); err != nil {
		t.Fatalf("save template failed: %v", err)
	}

	seedAnalyses(t, store, 3, func(a *models.PerformanceAnalysis) {
		a.HourlyEngagement = map[int]float64{
			9:  1.0,
			15: 10.0, // peak far from the single optimal time
		}
	})

	_, err := opt.Optimize("", 7, false)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	after, _ := store.GetActiveTemplate()
	// 09:00 toward 15:00, capped at a 2-hour shift.
	if len(after.OptimalTimes) != 1 || after.OptimalTimes[0] != "11:00" {
		t.Errorf("expected optimal time shifted to 11:00, got %v", after.OptimalTimes)
	}
}

func TestOptimize_TimingShiftMovesWorstPerformingTime(t *testing.T) {
	opt, store := newTestOptimizer(t)

	tpl, _ := store.GetActiveTemplate()
	tpl.OptimalTimes = []string{"09:00", "14:00"}
	if err := store.SaveTemplate(tpl); err != nil {
		t.Fatalf("save template failed: %v", err)
	}

	// 14:00 sits closest to the 15:00 peak but performs well; 09:00 is the
	// weak entry and is the one that must move.
	seedAnalyses(t, store, 3, func(a *models.PerformanceAnalysis) {
		a.HourlyEngagement = map[int]float64{
			9:  0.5,
			14: 6.0,
			15: 10.0,
		}
	})

	_, err := opt.Optimize("", 7, false)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	after, _ := store.GetActiveTemplate()
	want := []string{"11:00", "14:00"} // 09:00 toward 15:00, 2-hour cap
	if len(after.OptimalTimes) != len(want) {
		t.Fatalf("unexpected optimal times %v", after.OptimalTimes)
	}
	for i, ts := range want {
		if after.OptimalTimes[i] != ts {
			t.Fatalf("expected optimal times %v, got %v", want, after.OptimalTimes)
		}
	}
}

func TestOptimize_DryRunLeavesTemplateUntouched(t *testing.T) {
	opt, store := newTestOptimizer(t)
	seedAnalyses(t, store, 3, func(a *models.PerformanceAnalysis) {
		a.ActivityStats = map[models.ActivityKind]models.ActivityStat{
			models.KindTweet:  {Sessions: 1, Interactions: 10, Quality: 1.0},
			models.KindFollow: {Sessions: 1, Interactions: 2, Quality: 1.0},
		}
	})

	before, _ := store.GetActiveTemplate()
	report, err := opt.Optimize("", 7, true)
	if err != nil {
		t.Fatalf("dry-run Optimize failed: %v", err)
	}
	if len(report.Candidates) == 0 {
		t.Fatal("expected candidates in the dry-run report")
	}
	if len(report.Applied) != 0 {
		t.Errorf("dry run applied %d adjustments", len(report.Applied))
	}

	after, _ := store.GetActiveTemplate()
	if after.Distribution[models.KindTweet] != before.Distribution[models.KindTweet] {
		t.Error("dry run mutated the template")
	}
}

func TestOptimize_RecordsRuleBookkeeping(t *testing.T) {
	opt, store := newTestOptimizer(t)
	seedAnalyses(t, store, 3, func(a *models.PerformanceAnalysis) {
		a.ActivityStats = map[models.ActivityKind]models.ActivityStat{
			models.KindTweet:  {Sessions: 1, Interactions: 10, Quality: 1.0},
			models.KindFollow: {Sessions: 1, Interactions: 2, Quality: 1.0},
		}
	})

	if _, err := opt.Optimize("", 7, false); err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	rules, err := store.GetRules()
	if err != nil {
		t.Fatalf("get rules failed: %v", err)
	}
	found := false
	for _, rule := range rules {
		if rule.ID == "rule-distribution" {
			found = true
			if rule.SuccessCount != 1 {
				t.Errorf("expected success count 1, got %d", rule.SuccessCount)
			}
			if rule.LastApplied == nil {
				t.Error("expected last applied timestamp set")
			}
		}
	}
	if !found {
		t.Fatal("distribution rule missing after run")
	}
}

func TestOptimize_MissingTemplate(t *testing.T) {
	opt, store := newTestOptimizer(t)
	seedAnalyses(t, store, 3, func(a *models.PerformanceAnalysis) {})

	if _, err := opt.Optimize("no-such-template", 7, false); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown template, got %v", err)
	}
}
