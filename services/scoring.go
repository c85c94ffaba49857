package services

import (
	"math"
	"strings"
	"time"

	"bargain-hunter/models"
)

const (
	// unscoredBaseline is returned when price or reference price is missing.
	unscoredBaseline = 20

	maxDiscount     = 0.7
	unknownAgeScore = 0.8
	minAgeScore     = 0.3
	maxAgeScore     = 1.0
	maxQualityShift = 0.1
	qualityStep     = 0.05

	discountWeight = 0.7
	ageWeight      = 0.25
	qualityWeight  = 0.05
)

var (
	positiveHintTokens = []string{"like new", "excellent", "refurbished"}
	negativeHintTokens = []string{"for parts", "broken", "has scratches"}
)

var postedAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ScoreCalculator computes the 0-100 bargain score of a listing.
type ScoreCalculator struct {
	now func() time.Time
}

// NewScoreCalculator creates a calculator using the given clock, or
// time.Now when nil.
func NewScoreCalculator(now func() time.Time) *ScoreCalculator {
	if now == nil {
		now = time.Now
	}
	return &ScoreCalculator{now: now}
}

// Score returns the bargain score for sc. Out-of-range inputs are clamped,
// never rejected.
func (c *ScoreCalculator) Score(sc models.ScoreContext) int {
	if !finite(sc.Listing.Price) || !finite(sc.EstimatedMsrp) || *sc.EstimatedMsrp <= 0 {
		return unscoredBaseline
	}

	msrp := *sc.EstimatedMsrp
	discount := clamp((msrp-*sc.Listing.Price)/msrp, 0, maxDiscount)
	age := clamp(c.AgeFactor(sc.Listing.PostedAt), minAgeScore, maxAgeScore)
	quality := QualityModifier(sc.Analysis)

	raw := discount*discountWeight + age*ageWeight + quality*qualityWeight
	return int(math.Round(clamp(raw, 0, 1) * 100))
}

// AgeFactor maps the age of a listing to a decay multiplier in [0.3, 1.0].
// Missing or unparseable dates yield 0.8.
func (c *ScoreCalculator) AgeFactor(postedAt string) float64 {
	days, ok := DaysSince(postedAt, c.now())
	if !ok {
		return unknownAgeScore
	}

	switch {
	case days <= 2:
		return 1
	case days >= 90:
		return 0.3
	case days >= 30:
		return lerp(float64(days), 30, 90, 0.6, 0.3)
	default:
		return lerp(float64(days), 2, 30, 1, 0.6)
	}
}

// QualityModifier sums +/-0.05 per hint carrying a positive or negative
// condition token and clamps the total to [-0.1, 0.1]. A hint carrying both
// kinds of token contributes both.
func QualityModifier(analysis models.ListingAnalysis) float64 {
	modifier := 0.0
	for _, hint := range analysis.QualityHints {
		normalized := strings.ToLower(hint)
		if containsAny(normalized, positiveHintTokens) {
			modifier += qualityStep
		}
		if containsAny(normalized, negativeHintTokens) {
			modifier -= qualityStep
		}
	}
	return clamp(modifier, -maxQualityShift, maxQualityShift)
}

// DaysSince returns the whole days elapsed between postedAt and now. Future
// timestamps count as zero days. ok is false for empty or unparseable input.
func DaysSince(postedAt string, now time.Time) (days int, ok bool) {
	postedAt = strings.TrimSpace(postedAt)
	if postedAt == "" {
		return 0, false
	}

	for _, layout := range postedAtLayouts {
		t, err := time.Parse(layout, postedAt)
		if err != nil {
			continue
		}
		diff := now.Sub(t)
		if diff < 0 {
			return 0, true
		}
		return int(diff / (24 * time.Hour)), true
	}
	return 0, false
}

func finite(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// lerp linearly interpolates v from [fromLo, fromHi] onto [toLo, toHi].
func lerp(v, fromLo, fromHi, toLo, toHi float64) float64 {
	if fromHi == fromLo {
		return toLo
	}
	t := (v - fromLo) / (fromHi - fromLo)
	return toLo + t*(toHi-toLo)
}
