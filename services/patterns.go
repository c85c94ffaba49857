package services

import "regexp"

// Matcher reports whether a piece of listing text matches a pattern.
type Matcher interface {
	Match(text string) bool
}

// MatcherFunc adapts a plain function to the Matcher interface.
type MatcherFunc func(text string) bool

func (f MatcherFunc) Match(text string) bool { return f(text) }

// RegexpMatcher matches text against a compiled regular expression.
type RegexpMatcher struct {
	re *regexp.Regexp
}

// MustRegexp compiles a case-insensitive RegexpMatcher and panics on a bad pattern.
func MustRegexp(pattern string) RegexpMatcher {
	return RegexpMatcher{re: regexp.MustCompile(`(?i)` + pattern)}
}

func (m RegexpMatcher) Match(text string) bool { return m.re.MatchString(text) }

// ModelPattern maps a matcher to a canonical model name and optional category.
type ModelPattern struct {
	Matcher  Matcher
	Model    string
	Category string
}

// QualityPattern maps a matcher to a condition label.
type QualityPattern struct {
	Matcher Matcher
	Label   string
}

// PatternLibrary is the ordered set of model and quality patterns used by the
// heuristic analyzer. Model patterns are evaluated first-match-wins; quality
// patterns are evaluated independently.
type PatternLibrary struct {
	models  []ModelPattern
	quality []QualityPattern
}

// NewPatternLibrary copies the given patterns into an immutable library.
func NewPatternLibrary(models []ModelPattern, quality []QualityPattern) *PatternLibrary {
	return &PatternLibrary{
		models:  append([]ModelPattern(nil), models...),
		quality: append([]QualityPattern(nil), quality...),
	}
}

// ModelPatterns returns a copy of the ordered model patterns.
func (p *PatternLibrary) ModelPatterns() []ModelPattern {
	return append([]ModelPattern(nil), p.models...)
}

// QualityPatterns returns a copy of the quality patterns.
func (p *PatternLibrary) QualityPatterns() []QualityPattern {
	return append([]QualityPattern(nil), p.quality...)
}

var defaultLibrary = NewPatternLibrary(
	[]ModelPattern{
		{Matcher: MustRegexp(`wh[-\s]?1000xm4`), Model: "Sony WH-1000XM4", Category: "headphones"},
		{Matcher: MustRegexp(`iphone\s?13\s?pro`), Model: "Apple iPhone 13 Pro", Category: "smartphone"},
		{Matcher: MustRegexp(`rockhopper`), Model: "Specialized Rockhopper", Category: "bike"},
		{Matcher: MustRegexp(`lg\s?c1`), Model: "LG C1", Category: "television"},
		{Matcher: MustRegexp(`macbook\s?air\s?m2`), Model: "Apple MacBook Air M2", Category: "laptop"},
		{Matcher: MustRegexp(`switch\s?oled`), Model: "Nintendo Switch OLED", Category: "gaming console"},
	},
	[]QualityPattern{
		{Matcher: MustRegexp(`like new`), Label: "like new"},
		{Matcher: MustRegexp(`excellent`), Label: "excellent condition"},
		{Matcher: MustRegexp(`scratches?`), Label: "has scratches"},
		{Matcher: MustRegexp(`broken|for parts`), Label: "for parts or broken"},
		{Matcher: MustRegexp(`refurbished`), Label: "refurbished"},
	},
)

// DefaultPatternLibrary returns the process-wide built-in pattern library.
func DefaultPatternLibrary() *PatternLibrary {
	return defaultLibrary
}
