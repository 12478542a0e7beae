package models

import "time"

// ActivityStat aggregates one day's executions of a single activity kind.
type ActivityStat struct {
	Sessions     int     `json:"sessions"`
	Interactions int     `json:"interactions"`
	Quality      float64 `json:"quality"` // 0..1 outcome quality score
}

// Effectiveness is interactions-per-session weighted by quality.
func (s ActivityStat) Effectiveness() float64 {
	if s.Sessions == 0 {
		return 0
	}
	return float64(s.Interactions) / float64(s.Sessions) * s.Quality
}

// TopItem references a top-performing post or interaction for the day.
type TopItem struct {
	Ref         string  `json:"ref"`
	ContentType string  `json:"content_type,omitempty"`
	Engagement  float64 `json:"engagement"`
}

// PerformanceAnalysis is the external collector's read-mostly snapshot for
// one date. Immutable once written.
type PerformanceAnalysis struct {
	Date              string                        `json:"date"` // YYYY-MM-DD format
	Metrics           map[string]float64            `json:"metrics"`
	ActivityStats     map[ActivityKind]ActivityStat `json:"activity_stats,omitempty"`
	HourlyEngagement  map[int]float64               `json:"hourly_engagement,omitempty"`
	ContentEngagement map[string]float64            `json:"content_engagement,omitempty"`
	TopItems          []TopItem                     `json:"top_items,omitempty"`
	Insights          []string                      `json:"insights,omitempty"`
	Recommendations   []string                      `json:"recommendations,omitempty"`
	Score             float64                       `json:"score"`
	CreatedAt         time.Time                     `json:"created_at"`
}
