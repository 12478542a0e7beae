package optimizer

import (
	"github.com/pulseplan/pulseplan/internal/models"
)

// Aggregate is a multi-day rollup of performance analyses. All values are
// per-day averages over the days that reported the dimension.
type Aggregate struct {
	Days              int
	KindEffectiveness map[models.ActivityKind]float64
	HourlyEngagement  map[int]float64
	ContentEngagement map[string]float64
	MetricAverages    map[string]float64
	AverageScore      float64
}

// Analyze rolls a window of daily analyses into per-dimension averages.
func Analyze(analyses []models.PerformanceAnalysis) Aggregate {
	agg := Aggregate{
		Days:              len(analyses),
		KindEffectiveness: make(map[models.ActivityKind]float64),
		HourlyEngagement:  make(map[int]float64),
		ContentEngagement: make(map[string]float64),
		MetricAverages:    make(map[string]float64),
	}
	if len(analyses) == 0 {
		return agg
	}

	kindDays := make(map[models.ActivityKind]int)
	hourDays := make(map[int]int)
	contentDays := make(map[string]int)
	metricDays := make(map[string]int)

	for _, a := range analyses {
		agg.AverageScore += a.Score
		for kind, stat := range a.ActivityStats {
			agg.KindEffectiveness[kind] += stat.Effectiveness()
			kindDays[kind]++
		}
		for hour, eng := range a.HourlyEngagement {
			agg.HourlyEngagement[hour] += eng
			hourDays[hour]++
		}
		for ct, eng := range a.ContentEngagement {
			agg.ContentEngagement[ct] += eng
			contentDays[ct]++
		}
		for metric, val := range a.Metrics {
			agg.MetricAverages[metric] += val
			metricDays[metric]++
		}
	}

	agg.AverageScore /= float64(len(analyses))
	for kind, n := range kindDays {
		agg.KindEffectiveness[kind] /= float64(n)
	}
	for hour, n := range hourDays {
		agg.HourlyEngagement[hour] /= float64(n)
	}
	for ct, n := range contentDays {
		agg.ContentEngagement[ct] /= float64(n)
	}
	for metric, n := range metricDays {
		agg.MetricAverages[metric] /= float64(n)
	}
	return agg
}

// AchievementRates compares the averaged metrics against the template's
// targets. A rate of 1.0 means the target was hit exactly; metrics without a
// target are omitted.
func (a Aggregate) AchievementRates(targets map[string]float64) map[string]float64 {
	rates := make(map[string]float64)
	for metric, target := range targets {
		if target == 0 {
			continue
		}
		if actual, ok := a.MetricAverages[metric]; ok {
			rates[metric] = actual / target
		}
	}
	return rates
}

// BestKind returns the highest-effectiveness activity kind in the window.
func (a Aggregate) BestKind() (models.ActivityKind, float64, bool) {
	return extremeKind(a.KindEffectiveness, func(v, best float64) bool { return v > best })
}

// WorstKind returns the lowest-effectiveness activity kind in the window.
func (a Aggregate) WorstKind() (models.ActivityKind, float64, bool) {
	return extremeKind(a.KindEffectiveness, func(v, best float64) bool { return v < best })
}

// PeakHour returns the hour of day with the highest average engagement.
func (a Aggregate) PeakHour() (int, float64, bool) {
	found := false
	bestHour, bestVal := 0, 0.0
	for hour, val := range a.HourlyEngagement {
		if !found || val > bestVal || (val == bestVal && hour < bestHour) {
			bestHour, bestVal = hour, val
			found = true
		}
	}
	return bestHour, bestVal, found
}

// MeanHourlyEngagement averages engagement across reported hours.
func (a Aggregate) MeanHourlyEngagement() float64 {
	if len(a.HourlyEngagement) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range a.HourlyEngagement {
		sum += v
	}
	return sum / float64(len(a.HourlyEngagement))
}

// BestContent returns the content type with the highest average engagement.
func (a Aggregate) BestContent() (string, float64, bool) {
	return extremeContent(a.ContentEngagement, func(v, best float64) bool { return v > best })
}

// WorstContent returns the content type with the lowest average engagement.
func (a Aggregate) WorstContent() (string, float64, bool) {
	return extremeContent(a.ContentEngagement, func(v, best float64) bool { return v < best })
}

func extremeKind(m map[models.ActivityKind]float64, better func(v, best float64) bool) (models.ActivityKind, float64, bool) {
	found := false
	var bestKind models.ActivityKind
	bestVal := 0.0
	for kind, val := range m {
		if !found || better(val, bestVal) || (val == bestVal && kind < bestKind) {
			bestKind, bestVal = kind, val
			found = true
		}
	}
	return bestKind, bestVal, found
}

func extremeContent(m map[string]float64, better func(v, best float64) bool) (string, float64, bool) {
	found := false
	bestCT := ""
	bestVal := 0.0
	for ct, val := range m {
		if !found || better(val, bestVal) || (val == bestVal && ct < bestCT) {
			bestCT, bestVal = ct, val
			found = true
		}
	}
	return bestCT, bestVal, found
}
