package optimizer

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/pulseplan/pulseplan/internal/constants"
	"github.com/pulseplan/pulseplan/internal/logger"
	"github.com/pulseplan/pulseplan/internal/models"
	"github.com/pulseplan/pulseplan/internal/storage"
	"github.com/pulseplan/pulseplan/internal/utils"
)

// ErrInsufficientData means the analysis window holds fewer days than the
// minimum required. Optimization is a no-op in that case, never a guess.
var ErrInsufficientData = errors.New("not enough performance data")

// Config bounds how far a single optimization run may move the strategy.
type Config struct {
	MinDays               int
	SignificanceThreshold float64
	MaxAdjustments        int
	MaxDistributionDelta  float64
	MaxTimeShiftHours     int
	MaxContentDelta       float64
}

func DefaultConfig() Config {
	return Config{
		MinDays:               constants.DefaultMinAnalysisDays,
		SignificanceThreshold: constants.DefaultSignificanceThreshold,
		MaxAdjustments:        constants.DefaultMaxAdjustmentsPerRun,
		MaxDistributionDelta:  constants.DefaultMaxDistributionDelta,
		MaxTimeShiftHours:     constants.DefaultMaxTimeShiftHours,
		MaxContentDelta:       constants.DefaultMaxContentDelta,
	}
}

// Adjustment is one bounded change the optimizer proposes or applied.
type Adjustment struct {
	RuleID      string  `json:"rule_id"`
	Action      string  `json:"action"`
	Description string  `json:"description"`
	Impact      float64 `json:"impact"` // ratio driving the change; must beat 1+threshold
	apply       func(t *models.StrategyTemplate)
}

// Report is the outcome of one optimization run. Candidates holds every
// proposal that cleared the significance threshold; Applied is the subset
// actually written (empty on a dry run).
type Report struct {
	Template   string       `json:"template"`
	Days       int          `json:"days"`
	Aggregate  Aggregate    `json:"-"`
	Candidates []Adjustment `json:"candidates"`
	Applied    []Adjustment `json:"applied"`
}

// Optimizer turns accumulated performance analyses into bounded template
// adjustments. All applied changes land in a single template save so a
// crashed run never leaves the policy half-adjusted.
type Optimizer struct {
	store storage.Provider
	clock func() time.Time
	cfg   Config

	// cfgExplicit marks a caller-supplied Config, which then wins over the
	// tunables stored in Settings.
	cfgExplicit bool
}

func New(store storage.Provider) *Optimizer {
	return &Optimizer{
		store: store,
		clock: time.Now,
		cfg:   DefaultConfig(),
	}
}

func NewWithConfig(store storage.Provider, cfg Config) *Optimizer {
	o := New(store)
	o.cfg = cfg
	o.cfgExplicit = true
	return o
}

// Plan analyzes the trailing window and proposes adjustments without
// touching the template. templateName empty means the active template.
func (o *Optimizer) Plan(templateName string, days int) (Report, models.StrategyTemplate, error) {
	tpl, err := o.loadTemplate(templateName)
	if err != nil {
		return Report{}, models.StrategyTemplate{}, err
	}

	settings, err := o.store.GetSettings()
	if err != nil {
		return Report{}, models.StrategyTemplate{}, err
	}
	loc, err := utils.LoadLocation(settings.Timezone)
	if err != nil {
		return Report{}, models.StrategyTemplate{}, err
	}
	if !o.cfgExplicit {
		o.applySettings(settings)
	}

	now := o.clock().In(loc)
	to := now.Format(constants.DateFormat)
	from := now.AddDate(0, 0, -days+1).Format(constants.DateFormat)
	analyses, err := o.store.GetAnalysesRange(from, to)
	if err != nil {
		return Report{}, models.StrategyTemplate{}, err
	}
	if len(analyses) < o.cfg.MinDays {
		return Report{}, models.StrategyTemplate{}, fmt.Errorf("%w: have %d days, need %d", ErrInsufficientData, len(analyses), o.cfg.MinDays)
	}

	agg := Analyze(analyses)
	rules, err := o.loadRules()
	if err != nil {
		return Report{}, models.StrategyTemplate{}, err
	}

	candidates := o.propose(tpl, agg, rules)
	report := Report{
		Template:   tpl.Name,
		Days:       len(analyses),
		Aggregate:  agg,
		Candidates: candidates,
	}
	return report, tpl, nil
}

// Optimize plans and, unless dryRun is set, applies the winning adjustments
// in one atomic template save.
func (o *Optimizer) Optimize(templateName string, days int, dryRun bool) (Report, error) {
	report, tpl, err := o.Plan(templateName, days)
	if err != nil {
		return Report{}, err
	}
	if dryRun || len(report.Candidates) == 0 {
		return report, nil
	}
	applied, err := o.Apply(tpl, report.Candidates)
	if err != nil {
		return Report{}, err
	}
	report.Applied = applied
	return report, nil
}

// Apply stages the given adjustments onto a clone of tpl and persists the
// result with a single save. Rule bookkeeping is best-effort afterwards.
func (o *Optimizer) Apply(tpl models.StrategyTemplate, adjustments []Adjustment) ([]Adjustment, error) {
	if len(adjustments) == 0 {
		return nil, nil
	}

	staged := tpl.Clone()
	for i := range adjustments {
		adjustments[i].apply(&staged)
	}
	staged.UpdatedAt = o.clock()
	if err := o.store.SaveTemplate(staged); err != nil {
		for _, adj := range adjustments {
			o.recordRuleOutcome(adj.RuleID, false)
		}
		return nil, fmt.Errorf("failed to save adjusted template: %w", err)
	}

	now := o.clock()
	for _, adj := range adjustments {
		o.recordRuleOutcomeAt(adj.RuleID, true, now)
		logger.Info("Applied strategy adjustment", "rule", adj.RuleID, "impact", adj.Impact, "change", adj.Description)
	}
	return adjustments, nil
}

// propose builds the candidate list: one proposal per firing rule (targets
// may fire per metric), filtered by the significance threshold, ordered by
// impact, and capped per run.
func (o *Optimizer) propose(tpl models.StrategyTemplate, agg Aggregate, rules []models.OptimizationRule) []Adjustment {
	var candidates []Adjustment
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		switch rule.Action {
		case models.RuleShiftDistribution:
			if adj, ok := o.distributionCandidate(rule, tpl, agg); ok {
				candidates = append(candidates, adj)
			}
		case models.RuleShiftOptimalTime:
			if adj, ok := o.timingCandidate(rule, tpl, agg); ok {
				candidates = append(candidates, adj)
			}
		case models.RuleShiftContentMix:
			if adj, ok := o.contentCandidate(rule, tpl, agg); ok {
				candidates = append(candidates, adj)
			}
		case models.RuleAdjustTargets:
			candidates = append(candidates, o.targetCandidates(rule, tpl, agg)...)
		}
	}

	cutoff := 1 + o.cfg.SignificanceThreshold
	significant := candidates[:0]
	for _, c := range candidates {
		if c.Impact > cutoff {
			significant = append(significant, c)
		}
	}

	sort.SliceStable(significant, func(i, j int) bool {
		return significant[i].Impact > significant[j].Impact
	})
	if len(significant) > o.cfg.MaxAdjustments {
		significant = significant[:o.cfg.MaxAdjustments]
	}
	return significant
}

func (o *Optimizer) distributionCandidate(rule models.OptimizationRule, tpl models.StrategyTemplate, agg Aggregate) (Adjustment, bool) {
	best, bestEff, ok := agg.BestKind()
	if !ok {
		return Adjustment{}, false
	}
	worst, worstEff, _ := agg.WorstKind()
	if best == worst || worstEff <= 0 {
		return Adjustment{}, false
	}

	maxDelta := o.cfg.MaxDistributionDelta
	if v, ok := rule.Params["max_delta"]; ok {
		maxDelta = v
	}
	// Move at most half the loser's weight, never more than the cap.
	delta := math.Min(maxDelta, tpl.Distribution[worst]/2)
	if delta <= 0 {
		return Adjustment{}, false
	}

	bestKind, worstKind := best, worst
	return Adjustment{
		RuleID:      rule.ID,
		Action:      rule.Action,
		Impact:      bestEff / worstEff,
		Description: fmt.Sprintf("shift %.2f weight from %s to %s", delta, worst, best),
		apply: func(t *models.StrategyTemplate) {
			t.Distribution[worstKind] -= delta
			t.Distribution[bestKind] += delta
		},
	}, true
}

func (o *Optimizer) timingCandidate(rule models.OptimizationRule, tpl models.StrategyTemplate, agg Aggregate) (Adjustment, bool) {
	peakHour, peakVal, ok := agg.PeakHour()
	if !ok || len(tpl.OptimalTimes) == 0 {
		return Adjustment{}, false
	}
	mean := agg.MeanHourlyEngagement()
	if mean <= 0 {
		return Adjustment{}, false
	}

	maxShift := o.cfg.MaxTimeShiftHours
	if v, ok := rule.Params["max_shift_hours"]; ok {
		maxShift = int(v)
	}

	// The entry to move is the worst-performing optimal time: the one whose
	// hour shows the lowest observed engagement. Hours with no data count as
	// zero engagement; ties resolve to the earlier time.
	peakMin := peakHour * 60
	worstIdx, worstMin := -1, 0
	var worstEng float64
	for i, ts := range tpl.OptimalTimes {
		min, err := utils.ParseTimeToMinutes(ts)
		if err != nil {
			continue
		}
		eng := agg.HourlyEngagement[min/60]
		if worstIdx == -1 || eng < worstEng || (eng == worstEng && min < worstMin) {
			worstIdx, worstMin, worstEng = i, min, eng
		}
	}
	if worstIdx == -1 {
		return Adjustment{}, false
	}

	shift := peakMin - worstMin
	if shift == 0 {
		return Adjustment{}, false
	}
	bound := maxShift * 60
	if shift > bound {
		shift = bound
	} else if shift < -bound {
		shift = -bound
	}
	shifted := utils.FormatMinutes(worstMin + shift)

	idx := worstIdx
	old := tpl.OptimalTimes[worstIdx]
	return Adjustment{
		RuleID:      rule.ID,
		Action:      rule.Action,
		Impact:      peakVal / mean,
		Description: fmt.Sprintf("move posting time %s to %s toward %02d:00 peak", old, shifted, peakHour),
		apply: func(t *models.StrategyTemplate) {
			t.OptimalTimes[idx] = shifted
			sort.Strings(t.OptimalTimes)
		},
	}, true
}

func (o *Optimizer) contentCandidate(rule models.OptimizationRule, tpl models.StrategyTemplate, agg Aggregate) (Adjustment, bool) {
	best, bestEng, ok := agg.BestContent()
	if !ok {
		return Adjustment{}, false
	}
	worst, worstEng, _ := agg.WorstContent()
	if best == worst || worstEng <= 0 {
		return Adjustment{}, false
	}

	maxDelta := o.cfg.MaxContentDelta
	if v, ok := rule.Params["max_delta"]; ok {
		maxDelta = v
	}
	delta := math.Min(maxDelta, tpl.ContentMix[worst]/2)
	if delta <= 0 {
		return Adjustment{}, false
	}

	bestCT, worstCT := best, worst
	return Adjustment{
		RuleID:      rule.ID,
		Action:      rule.Action,
		Impact:      bestEng / worstEng,
		Description: fmt.Sprintf("shift %.2f of content mix from %s to %s", delta, worst, best),
		apply: func(t *models.StrategyTemplate) {
			t.ContentMix[worstCT] -= delta
			t.ContentMix[bestCT] += delta
		},
	}, true
}

// targetCandidates re-anchors metric targets that drifted well away from
// reality: sustained overachievement raises the bar, sustained shortfall
// lowers it.
func (o *Optimizer) targetCandidates(rule models.OptimizationRule, tpl models.StrategyTemplate, agg Aggregate) []Adjustment {
	raise := rule.Params["raise_factor"]
	if raise == 0 {
		raise = 1.1
	}
	lower := rule.Params["lower_factor"]
	if lower == 0 {
		lower = 0.9
	}

	var out []Adjustment
	for metric, rate := range agg.AchievementRates(tpl.Targets) {
		metric := metric
		switch {
		case rate > 1.2:
			factor := raise
			out = append(out, Adjustment{
				RuleID:      rule.ID,
				Action:      rule.Action,
				Impact:      rate,
				Description: fmt.Sprintf("raise %s target by %.0f%% (achieving %.0f%% of target)", metric, (factor-1)*100, rate*100),
				apply: func(t *models.StrategyTemplate) {
					t.Targets[metric] *= factor
				},
			})
		case rate < 0.7 && rate > 0:
			factor := lower
			out = append(out, Adjustment{
				RuleID:      rule.ID,
				Action:      rule.Action,
				Impact:      1 / rate,
				Description: fmt.Sprintf("lower %s target by %.0f%% (achieving %.0f%% of target)", metric, (1-factor)*100, rate*100),
				apply: func(t *models.StrategyTemplate) {
					t.Targets[metric] *= factor
				},
			})
		}
	}
	return out
}

// applySettings folds the user-tunable bounds from Settings into the run
// configuration. Zero values mean "not set" and keep the shipped defaults.
func (o *Optimizer) applySettings(settings models.Settings) {
	if settings.SignificanceThreshold > 0 {
		o.cfg.SignificanceThreshold = settings.SignificanceThreshold
	}
	if settings.MaxAdjustmentsPerRun > 0 {
		o.cfg.MaxAdjustments = settings.MaxAdjustmentsPerRun
	}
	if settings.MaxDistributionDelta > 0 {
		o.cfg.MaxDistributionDelta = settings.MaxDistributionDelta
	}
}

func (o *Optimizer) loadTemplate(name string) (models.StrategyTemplate, error) {
	if name == "" {
		tpl, err := o.store.GetActiveTemplate()
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return models.StrategyTemplate{}, fmt.Errorf("no active strategy template: %w", err)
			}
			return models.StrategyTemplate{}, err
		}
		return tpl, nil
	}
	return o.store.GetTemplate(name)
}

// loadRules returns the persisted rule set, seeding the defaults on first use.
func (o *Optimizer) loadRules() ([]models.OptimizationRule, error) {
	rules, err := o.store.GetRules()
	if err != nil {
		return nil, err
	}
	if len(rules) > 0 {
		return rules, nil
	}
	rules = models.DefaultRules()
	for _, rule := range rules {
		if err := o.store.SaveRule(rule); err != nil {
			return nil, err
		}
	}
	return rules, nil
}

func (o *Optimizer) recordRuleOutcome(id string, success bool) {
	o.recordRuleOutcomeAt(id, success, o.clock())
}

func (o *Optimizer) recordRuleOutcomeAt(id string, success bool, now time.Time) {
	rules, err := o.store.GetRules()
	if err != nil {
		logger.Warn("Could not load rules for bookkeeping", "error", err)
		return
	}
	for _, rule := range rules {
		if rule.ID != id {
			continue
		}
		if success {
			rule.SuccessCount++
			rule.LastApplied = &now
		} else {
			rule.FailureCount++
		}
		if err := o.store.SaveRule(rule); err != nil {
			logger.Warn("Could not persist rule bookkeeping", "rule", id, "error", err)
		}
		return
	}
}
