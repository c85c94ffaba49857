package services

import (
	"bargain-hunter/models"
)

// HeuristicAnalyzer derives a ListingAnalysis from listing text using a
// PatternLibrary. It has no side effects.
type HeuristicAnalyzer struct {
	library *PatternLibrary
}

// NewHeuristicAnalyzer creates an analyzer over the given library, or the
// default library when nil.
func NewHeuristicAnalyzer(library *PatternLibrary) *HeuristicAnalyzer {
	if library == nil {
		library = DefaultPatternLibrary()
	}
	return &HeuristicAnalyzer{library: library}
}

// DetectModelAndCategory returns the model and category of the first pattern
// that matches text, or two empty strings when none does.
func (h *HeuristicAnalyzer) DetectModelAndCategory(text string) (model, category string) {
	for _, p := range h.library.models {
		if p.Matcher.Match(text) {
			return p.Model, p.Category
		}
	}
	return "", ""
}

// DetectQualityHints returns every matching quality label in library order,
// without duplicates. The result is nil when nothing matches.
func (h *HeuristicAnalyzer) DetectQualityHints(text string) []string {
	var hints []string
	seen := make(map[string]struct{})
	for _, p := range h.library.quality {
		if !p.Matcher.Match(text) {
			continue
		}
		if _, dup := seen[p.Label]; dup {
			continue
		}
		seen[p.Label] = struct{}{}
		hints = append(hints, p.Label)
	}
	return hints
}

// Analyze builds the heuristic analysis of a listing from its title and description.
func (h *HeuristicAnalyzer) Analyze(listing models.RawListing) models.ListingAnalysis {
	body := listing.Title + "\n" + listing.Description
	model, category := h.DetectModelAndCategory(body)

	analysis := models.ListingAnalysis{
		DetectedModel:    model,
		InferredCategory: category,
		QualityHints:     h.DetectQualityHints(body),
	}
	if model != "" {
		analysis.Notes = "Detected via heuristic: " + model
	}
	return analysis
}
