package services

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"bargain-hunter/models"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func postedDaysAgo(days int) string {
	return fixedNow.AddDate(0, 0, -days).Format(time.RFC3339)
}

func scoreContext(price, msrp *float64, postedAt string, hints ...string) models.ScoreContext {
	return models.ScoreContext{
		Listing:       models.RawListing{ID: "l1", Title: "listing", Price: price, PostedAt: postedAt},
		Analysis:      models.ListingAnalysis{QualityHints: hints},
		EstimatedMsrp: msrp,
	}
}

func TestScoreScenarios(t *testing.T) {
	calc := NewScoreCalculator(fixedClock)
	fresh := fixedNow.Add(-time.Hour).Format(time.RFC3339)

	tests := []struct {
		name string
		sc   models.ScoreContext
		want int
	}{
		{"deep discount fresh", scoreContext(models.Float64(200), models.Float64(500), fresh), 67},
		{"small discount fresh", scoreContext(models.Float64(200), models.Float64(250), fresh), 39},
		{"deep discount five weeks old", scoreContext(models.Float64(200), models.Float64(500), postedDaysAgo(35)), 56},
		{"unknown posting date", scoreContext(models.Float64(200), models.Float64(500), ""), 62},
		{"free item discount capped", scoreContext(models.Float64(0), models.Float64(500), fresh), 74},
		{"above reference price", scoreContext(models.Float64(800), models.Float64(500), fresh), 25},
		{"missing price", scoreContext(nil, models.Float64(500), fresh), 20},
		{"missing reference price", scoreContext(models.Float64(200), nil, fresh), 20},
		{"zero reference price", scoreContext(models.Float64(200), models.Float64(0), fresh), 20},
		{"negative reference price", scoreContext(models.Float64(200), models.Float64(-10), fresh), 20},
		{"nan price", scoreContext(models.Float64(math.NaN()), models.Float64(500), fresh), 20},
		{"infinite reference price", scoreContext(models.Float64(200), models.Float64(math.Inf(1)), fresh), 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calc.Score(tt.sc))
		})
	}
}

func TestScoreOlderListingScoresLower(t *testing.T) {
	calc := NewScoreCalculator(fixedClock)
	price, msrp := models.Float64(200), models.Float64(500)

	freshScore := calc.Score(scoreContext(price, msrp, postedDaysAgo(0)))
	oldScore := calc.Score(scoreContext(price, msrp, postedDaysAgo(35)))

	assert.Equal(t, 67, freshScore)
	assert.Less(t, oldScore, freshScore)

	age := calc.AgeFactor(postedDaysAgo(35))
	assert.Greater(t, age, 0.3)
	assert.Less(t, age, 1.0)
}

func TestScoreQualityHintsShiftScore(t *testing.T) {
	calc := NewScoreCalculator(fixedClock)
	price, msrp := models.Float64(300), models.Float64(500)
	posted := postedDaysAgo(10)

	plain := calc.Score(scoreContext(price, msrp, posted))
	good := calc.Score(scoreContext(price, msrp, posted, "like new", "excellent condition"))
	bad := calc.Score(scoreContext(price, msrp, posted, "for parts or broken", "has scratches"))

	assert.GreaterOrEqual(t, good, plain)
	assert.LessOrEqual(t, bad, plain)
	assert.LessOrEqual(t, good-bad, 1)
}

func TestScoreStaysInRange(t *testing.T) {
	calc := NewScoreCalculator(fixedClock)
	prices := []float64{-100, 0, 1, 50, 499, 500, 5000}
	msrps := []float64{1, 10, 500, 100000}
	ages := []string{"", "not a date", postedDaysAgo(0), postedDaysAgo(45), postedDaysAgo(400), "2999-01-01"}

	for _, p := range prices {
		for _, m := range msrps {
			for _, a := range ages {
				got := calc.Score(scoreContext(models.Float64(p), models.Float64(m), a, "like new", "broken"))
				assert.GreaterOrEqual(t, got, 0)
				assert.LessOrEqual(t, got, 100)
			}
		}
	}
}

func TestAgeFactor(t *testing.T) {
	calc := NewScoreCalculator(fixedClock)

	assert.Equal(t, 1.0, calc.AgeFactor(postedDaysAgo(0)))
	assert.Equal(t, 1.0, calc.AgeFactor(postedDaysAgo(2)))
	assert.InDelta(t, 0.8, calc.AgeFactor(postedDaysAgo(16)), 1e-9)
	assert.InDelta(t, 0.6, calc.AgeFactor(postedDaysAgo(30)), 1e-9)
	assert.InDelta(t, 0.575, calc.AgeFactor(postedDaysAgo(35)), 1e-9)
	assert.InDelta(t, 0.3, calc.AgeFactor(postedDaysAgo(90)), 1e-9)
	assert.Equal(t, 0.3, calc.AgeFactor(postedDaysAgo(365)))
	assert.Equal(t, 0.8, calc.AgeFactor(""))
	assert.Equal(t, 0.8, calc.AgeFactor("yesterday"))
	assert.Equal(t, 1.0, calc.AgeFactor("2999-01-01T00:00:00Z"))
}

func TestAgeFactorIsNonIncreasing(t *testing.T) {
	calc := NewScoreCalculator(fixedClock)
	prev := calc.AgeFactor(postedDaysAgo(0))
	for d := 1; d <= 120; d++ {
		cur := calc.AgeFactor(postedDaysAgo(d))
		assert.LessOrEqual(t, cur, prev+1e-12, "day %d", d)
		assert.GreaterOrEqual(t, cur, 0.3)
		prev = cur
	}
}

func TestQualityModifier(t *testing.T) {
	tests := []struct {
		hints []string
		want  float64
	}{
		{nil, 0},
		{[]string{"like new"}, 0.05},
		{[]string{"like new", "excellent condition"}, 0.1},
		{[]string{"like new", "excellent condition", "refurbished"}, 0.1},
		{[]string{"for parts or broken"}, -0.05},
		{[]string{"has scratches", "for parts or broken", "broken screen"}, -0.1},
		{[]string{"Like New but broken hinge"}, 0},
		{[]string{"original box"}, 0},
	}

	for _, tt := range tests {
		got := QualityModifier(models.ListingAnalysis{QualityHints: tt.hints})
		assert.InDelta(t, tt.want, got, 1e-9, "%v", tt.hints)
	}
}

func TestDaysSince(t *testing.T) {
	tests := []struct {
		postedAt string
		days     int
		ok       bool
	}{
		{"2024-05-30", 2, true},
		{"2024-05-25T12:00:00", 7, true},
		{"2024-05-31T13:00:00Z", 0, true},
		{"2024-05-01T12:00:00.000Z", 31, true},
		{"2024-05-31T12:00:00-02:00", 0, true},
		{"2025-01-01T00:00:00Z", 0, true},
		{"", 0, false},
		{"   ", 0, false},
		{"last week", 0, false},
	}

	for _, tt := range tests {
		days, ok := DaysSince(tt.postedAt, fixedNow)
		assert.Equal(t, tt.ok, ok, tt.postedAt)
		assert.Equal(t, tt.days, days, tt.postedAt)
	}
}
