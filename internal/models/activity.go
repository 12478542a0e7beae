package models

import "fmt"

// ActivityKind is one value from the closed set of schedulable actions.
// Persistence and all map lookups go through this type, never raw strings.
type ActivityKind string

const (
	KindTweet          ActivityKind = "tweet"
	KindThread         ActivityKind = "thread"
	KindReply          ActivityKind = "reply"
	KindEngage         ActivityKind = "engage" // scroll-and-engage
	KindFollow         ActivityKind = "follow"
	KindAnalytics      ActivityKind = "analytics"
	KindLinkedInPost   ActivityKind = "linkedin_post"
	KindLinkedInEngage ActivityKind = "linkedin_engage"
)

// FallbackKind is the always-available kind the builder falls back to when
// filtering empties the candidate set.
const FallbackKind = KindEngage

type Platform string

const (
	PlatformTwitter  Platform = "twitter"
	PlatformLinkedIn Platform = "linkedin"
)

// AllKinds returns the enumeration in catalog order.
func AllKinds() []ActivityKind {
	return []ActivityKind{
		KindTweet, KindThread, KindReply, KindEngage,
		KindFollow, KindAnalytics, KindLinkedInPost, KindLinkedInEngage,
	}
}

// ParseKind converts a stored string into an ActivityKind, rejecting values
// outside the enumeration.
func ParseKind(s string) (ActivityKind, error) {
	k := ActivityKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown activity kind %q", s)
	}
	return k, nil
}

func (k ActivityKind) Valid() bool {
	switch k {
	case KindTweet, KindThread, KindReply, KindEngage,
		KindFollow, KindAnalytics, KindLinkedInPost, KindLinkedInEngage:
		return true
	}
	return false
}

func (k ActivityKind) String() string { return string(k) }

// HourRange is a half-open [Start, End) range of hours in a day.
type HourRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (r HourRange) Contains(hour int) bool {
	return hour >= r.Start && hour < r.End
}

// ActivityProfile holds the static defaults for one activity kind.
type ActivityProfile struct {
	Kind            ActivityKind
	Platform        Platform
	BaseWeight      float64
	Priority        int // 1 (highest) to 5
	Flexible        bool
	DailyCap        int
	BoostHours      []HourRange
	BoostFactor     float64 // applied within BoostHours, 1.2-1.8
	AvoidHours      []HourRange
	AvoidFactor     float64 // applied within AvoidHours, 0.1-0.7
	RequiresPremium bool
	StreakCap       int // 0 = no streak rule
	ContentType     string
}

var catalog = []ActivityProfile{
	{
		Kind: KindTweet, Platform: PlatformTwitter,
		BaseWeight: 1.0, Priority: 2, Flexible: true, DailyCap: 8,
		BoostHours:  []HourRange{{Start: 9, End: 12}, {Start: 18, End: 21}},
		BoostFactor: 1.5,
		AvoidHours:  []HourRange{{Start: 0, End: 6}},
		AvoidFactor: 0.3,
		ContentType: "original",
	},
	{
		Kind: KindThread, Platform: PlatformTwitter,
		BaseWeight: 0.4, Priority: 1, Flexible: true, DailyCap: 2,
		BoostHours:  []HourRange{{Start: 10, End: 12}},
		BoostFactor: 1.8,
		AvoidHours:  []HourRange{{Start: 0, End: 8}, {Start: 22, End: 24}},
		AvoidFactor: 0.2,
		ContentType: "educational",
	},
	{
		Kind: KindReply, Platform: PlatformTwitter,
		BaseWeight: 0.9, Priority: 3, Flexible: true, DailyCap: 12,
		BoostHours:  []HourRange{{Start: 8, End: 10}, {Start: 12, End: 14}, {Start: 19, End: 22}},
		BoostFactor: 1.3,
		AvoidHours:  []HourRange{{Start: 2, End: 6}},
		AvoidFactor: 0.4,
		ContentType: "conversational",
	},
	{
		Kind: KindEngage, Platform: PlatformTwitter,
		BaseWeight: 1.1, Priority: 4, Flexible: true, DailyCap: 0,
		BoostHours:  []HourRange{{Start: 7, End: 9}, {Start: 12, End: 13}, {Start: 20, End: 23}},
		BoostFactor: 1.2,
		StreakCap:   3,
		ContentType: "engagement",
	},
	{
		Kind: KindFollow, Platform: PlatformTwitter,
		BaseWeight: 0.5, Priority: 4, Flexible: true, DailyCap: 4,
		BoostHours:  []HourRange{{Start: 14, End: 17}},
		BoostFactor: 1.3,
		AvoidHours:  []HourRange{{Start: 0, End: 7}},
		AvoidFactor: 0.5,
		ContentType: "growth",
	},
	{
		Kind: KindAnalytics, Platform: PlatformTwitter,
		BaseWeight: 0.3, Priority: 5, Flexible: true, DailyCap: 1,
		BoostHours:      []HourRange{{Start: 21, End: 23}},
		BoostFactor:     1.6,
		RequiresPremium: true,
		ContentType:     "analysis",
	},
	{
		Kind: KindLinkedInPost, Platform: PlatformLinkedIn,
		BaseWeight: 0.35, Priority: 2, Flexible: true, DailyCap: 2,
		BoostHours:  []HourRange{{Start: 8, End: 10}, {Start: 17, End: 19}},
		BoostFactor: 1.5,
		AvoidHours:  []HourRange{{Start: 0, End: 7}, {Start: 21, End: 24}},
		AvoidFactor: 0.2,
		ContentType: "professional",
	},
	{
		Kind: KindLinkedInEngage, Platform: PlatformLinkedIn,
		BaseWeight: 0.45, Priority: 4, Flexible: true, DailyCap: 6,
		BoostHours:  []HourRange{{Start: 8, End: 11}},
		BoostFactor: 1.2,
		AvoidHours:  []HourRange{{Start: 22, End: 24}},
		AvoidFactor: 0.5,
		ContentType: "engagement",
	},
}

// Catalog returns the full activity catalog.
func Catalog() []ActivityProfile {
	out := make([]ActivityProfile, len(catalog))
	copy(out, catalog)
	return out
}

// ProfileFor returns the static profile for a kind.
func ProfileFor(kind ActivityKind) (ActivityProfile, error) {
	for _, p := range catalog {
		if p.Kind == kind {
			return p, nil
		}
	}
	return ActivityProfile{}, fmt.Errorf("unknown activity kind %q", kind)
}

// PlatformFor resolves the platform a kind is attributed to.
func PlatformFor(kind ActivityKind) Platform {
	p, err := ProfileFor(kind)
	if err != nil {
		return PlatformTwitter
	}
	return p.Platform
}

// ActivityConfig carries kind-specific execution parameters. Common fields
// are typed; Extra holds rarely-validated kind-specific strings.
type ActivityConfig struct {
	ContentType   string            `json:"content_type,omitempty"`
	TargetKeyword string            `json:"target_keyword,omitempty"`
	DurationMin   int               `json:"duration_min,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// DefaultConfigFor builds the default execution config for a kind.
func DefaultConfigFor(kind ActivityKind) ActivityConfig {
	p, err := ProfileFor(kind)
	if err != nil {
		return ActivityConfig{}
	}
	cfg := ActivityConfig{ContentType: p.ContentType}
	switch kind {
	case KindEngage, KindLinkedInEngage:
		cfg.DurationMin = 10
		cfg.TargetKeyword = "timeline"
	case KindReply:
		cfg.DurationMin = 10
		cfg.TargetKeyword = "mentions"
	case KindFollow:
		cfg.DurationMin = 5
		cfg.TargetKeyword = "suggested"
	case KindAnalytics:
		cfg.DurationMin = 10
	default:
		cfg.DurationMin = 15
	}
	return cfg
}
