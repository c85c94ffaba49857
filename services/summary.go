package services

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"bargain-hunter/models"
)

// SummaryGenerator renders a short justification for a listing's score.
type SummaryGenerator struct {
	heuristic *HeuristicAnalyzer
}

// NewSummaryGenerator creates a generator that re-detects quality hints with
// heuristic when an analysis carries none.
func NewSummaryGenerator(heuristic *HeuristicAnalyzer) *SummaryGenerator {
	if heuristic == nil {
		heuristic = NewHeuristicAnalyzer(nil)
	}
	return &SummaryGenerator{heuristic: heuristic}
}

// Summarize returns the price, model and quality clauses joined by spaces.
func (g *SummaryGenerator) Summarize(sc models.ScoreContext) string {
	hints := sc.Analysis.QualityHints
	if hints == nil {
		hints = g.heuristic.DetectQualityHints(sc.Listing.Title + " " + sc.Listing.Description)
	}

	clauses := make([]string, 0, 3)
	if sc.Listing.Price != nil && sc.EstimatedMsrp != nil {
		clauses = append(clauses, "Priced at $"+g.money(*sc.Listing.Price)+
			" vs. estimated MSRP $"+g.money(*sc.EstimatedMsrp)+".")
	} else {
		clauses = append(clauses, "Limited pricing data available.")
	}

	if sc.Analysis.DetectedModel != "" {
		clauses = append(clauses, "Model detected: "+sc.Analysis.DetectedModel+".")
	} else {
		clauses = append(clauses, "Model uncertain.")
	}

	if len(hints) > 0 {
		clauses = append(clauses, "Quality hints: "+strings.Join(hints, ", ")+".")
	}
	return strings.Join(clauses, " ")
}

// money formats v with grouped thousands and at most three fraction digits.
func (g *SummaryGenerator) money(v float64) string {
	return message.NewPrinter(language.English).Sprint(number.Decimal(v, number.MaxFractionDigits(3)))
}
