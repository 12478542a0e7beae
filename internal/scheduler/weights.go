package scheduler

import (
	"math/rand"
	"time"

	"github.com/pulseplan/pulseplan/internal/models"
)

// Engine scores candidate activity kinds for a slot time against the
// recently-assigned history and picks the arg-max. The scoring rules are
// small pure functions composed here so each can be tested with fixed
// inputs; the random component is isolated behind an injectable source.
type Engine struct {
	profiles []models.ActivityProfile
	premium  bool
	rng      *rand.Rand
}

// NewEngine builds an engine over the static activity catalog. A nil rng
// gets a time-seeded source; tests inject a fixed seed for reproducibility.
func NewEngine(premium bool, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		profiles: models.Catalog(),
		premium:  premium,
		rng:      rng,
	}
}

// Select scores every candidate kind for the given hour and returns the
// top-scoring one. excluded kinds are dropped before scoring; if nothing
// scores above zero the always-available fallback kind is returned.
func (e *Engine) Select(hour int, recent []models.ActivityKind, excluded map[models.ActivityKind]bool) models.ActivityKind {
	counts := recentCounts(recent)

	best := models.FallbackKind
	bestScore := 0.0
	for _, p := range e.profiles {
		if excluded[p.Kind] {
			continue
		}
		score := e.score(p, hour, counts[p.Kind], trailingStreak(recent, p.Kind))
		if score > bestScore {
			best = p.Kind
			bestScore = score
		}
	}
	return best
}

func (e *Engine) score(p models.ActivityProfile, hour, recentCount, streak int) float64 {
	// Premium-gated kinds resolve to weight 0 when the capability is absent.
	if p.RequiresPremium && !e.premium {
		return 0
	}
	return p.BaseWeight *
		timeOfDayMultiplier(p, hour) *
		recencyPenalty(p, recentCount, streak) *
		varietyBonus(recentCount) *
		jitter(e.rng)
}

// timeOfDayMultiplier boosts or suppresses a kind by hour of day, per its
// catalog profile. Avoid ranges win over boost ranges.
func timeOfDayMultiplier(p models.ActivityProfile, hour int) float64 {
	for _, r := range p.AvoidHours {
		if r.Contains(hour) {
			return p.AvoidFactor
		}
	}
	for _, r := range p.BoostHours {
		if r.Contains(hour) {
			return p.BoostFactor
		}
	}
	return 1.0
}

// recencyPenalty multiplies a kind's weight down as its count in the recent
// window grows, strictly decreasing with count. Kinds with a streak cap
// collapse toward zero once the cap is reached consecutively.
func recencyPenalty(p models.ActivityProfile, recentCount, streak int) float64 {
	if p.StreakCap > 0 && streak >= p.StreakCap {
		return 0.01
	}
	return 1.0 / (1.0 + 0.8*float64(recentCount))
}

// varietyBonus rewards kinds absent from the recent window and dampens
// kinds seen twice or more, independently of the kind-specific penalty.
func varietyBonus(recentCount int) float64 {
	switch {
	case recentCount == 0:
		return 1.25
	case recentCount >= 2:
		return 0.8
	default:
		return 1.0
	}
}

// jitter returns a bounded multiplicative factor in [0.7, 1.3) so ties do
// not always resolve identically, without overriding a strong signal.
func jitter(rng *rand.Rand) float64 {
	return 0.7 + rng.Float64()*0.6
}

func recentCounts(recent []models.ActivityKind) map[models.ActivityKind]int {
	counts := make(map[models.ActivityKind]int, len(recent))
	for _, k := range recent {
		counts[k]++
	}
	return counts
}

// trailingStreak counts how many consecutive entries at the end of recent
// equal kind.
func trailingStreak(recent []models.ActivityKind, kind models.ActivityKind) int {
	streak := 0
	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i] != kind {
			break
		}
		streak++
	}
	return streak
}
