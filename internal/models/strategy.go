package models

import "time"

// StrategyTemplate is the tunable policy consulted by the schedule builder
// and adjusted by the optimizer. Distribution values are relative weights,
// not strict probabilities; they must be non-negative but need not sum to 1.
type StrategyTemplate struct {
	Name         string                   `json:"name"`
	Active       bool                     `json:"active"`
	Distribution map[ActivityKind]float64 `json:"distribution"`
	OptimalTimes []string                 `json:"optimal_times"` // HH:MM, ordered
	ContentMix   map[string]float64       `json:"content_mix"`
	Targets      map[string]float64       `json:"targets"`
	Hashtags     []string                 `json:"hashtags,omitempty"`
	Tone         string                   `json:"tone,omitempty"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

// Clone deep-copies the template so candidate adjustments can be staged
// without mutating the persisted policy.
func (t StrategyTemplate) Clone() StrategyTemplate {
	out := t
	out.Distribution = make(map[ActivityKind]float64, len(t.Distribution))
	for k, v := range t.Distribution {
		out.Distribution[k] = v
	}
	out.ContentMix = make(map[string]float64, len(t.ContentMix))
	for k, v := range t.ContentMix {
		out.ContentMix[k] = v
	}
	out.Targets = make(map[string]float64, len(t.Targets))
	for k, v := range t.Targets {
		out.Targets[k] = v
	}
	out.OptimalTimes = append([]string(nil), t.OptimalTimes...)
	out.Hashtags = append([]string(nil), t.Hashtags...)
	return out
}

// DefaultTemplate seeds the policy used when no template exists yet.
func DefaultTemplate(now time.Time) StrategyTemplate {
	return StrategyTemplate{
		Name:   "balanced-growth",
		Active: true,
		Distribution: map[ActivityKind]float64{
			KindTweet:          0.25,
			KindThread:         0.05,
			KindReply:          0.20,
			KindEngage:         0.30,
			KindFollow:         0.08,
			KindAnalytics:      0.02,
			KindLinkedInPost:   0.04,
			KindLinkedInEngage: 0.06,
		},
		OptimalTimes: []string{"09:00", "12:30", "18:00", "21:00"},
		ContentMix: map[string]float64{
			"original":       0.35,
			"educational":    0.15,
			"conversational": 0.30,
			"engagement":     0.20,
		},
		Targets: map[string]float64{
			"impressions":     5000,
			"engagement_rate": 0.03,
			"new_followers":   10,
			"replies":         15,
		},
		Hashtags:  []string{"buildinpublic", "indiehackers"},
		Tone:      "curious, direct, no hard selling",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// OptimizationRule is a condition/action pair with bounded parameters. Rules
// are seeded once and mutated only by application bookkeeping.
type OptimizationRule struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Condition    string             `json:"condition"`
	Action       string             `json:"action"`
	Params       map[string]float64 `json:"params,omitempty"`
	Priority     int                `json:"priority"` // 1 (highest) to 5
	Enabled      bool               `json:"enabled"`
	SuccessCount int                `json:"success_count"`
	FailureCount int                `json:"failure_count"`
	LastApplied  *time.Time         `json:"last_applied,omitempty"`
}

// Rule actions understood by the optimizer.
const (
	RuleShiftDistribution = "shift_distribution"
	RuleShiftOptimalTime  = "shift_optimal_time"
	RuleShiftContentMix   = "shift_content_mix"
	RuleAdjustTargets     = "adjust_targets"
)

// DefaultRules seeds the optimizer's rule set.
func DefaultRules() []OptimizationRule {
	return []OptimizationRule{
		{
			ID:        "rule-distribution",
			Name:      "Rebalance activity distribution",
			Condition: "effectiveness spread between best and worst activity kind",
			Action:    RuleShiftDistribution,
			Params:    map[string]float64{"max_delta": 0.20},
			Priority:  1,
			Enabled:   true,
		},
		{
			ID:        "rule-timing",
			Name:      "Shift posting times toward observed peaks",
			Condition: "hourly engagement peak differs from optimal times",
			Action:    RuleShiftOptimalTime,
			Params:    map[string]float64{"max_shift_hours": 2},
			Priority:  2,
			Enabled:   true,
		},
		{
			ID:        "rule-content",
			Name:      "Rebalance content mix",
			Condition: "engagement spread between best and worst content type",
			Action:    RuleShiftContentMix,
			Params:    map[string]float64{"max_delta": 0.15},
			Priority:  3,
			Enabled:   true,
		},
		{
			ID:        "rule-targets",
			Name:      "Re-anchor metric targets",
			Condition: "sustained achievement above 1.2x or below 0.7x target",
			Action:    RuleAdjustTargets,
			Params:    map[string]float64{"raise_factor": 1.1, "lower_factor": 0.9},
			Priority:  4,
			Enabled:   true,
		},
	}
}
