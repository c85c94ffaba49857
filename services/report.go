package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"bargain-hunter/models"
	"bargain-hunter/utils"
)

// ReportService aggregates and prints enriched search results.
type ReportService struct {
	logger *utils.Logger
}

// NewReportService creates a ReportService.
func NewReportService(logger *utils.Logger) *ReportService {
	return &ReportService{logger: logger}
}

// Generate computes summary statistics over listings.
func (s *ReportService) Generate(listings []models.EnrichedListing) *models.SearchReport {
	report := &models.SearchReport{
		ListingsByCategory: make(map[string]int),
	}

	if len(listings) == 0 {
		return report
	}

	report.TotalListings = len(listings)

	var total int
	for i := range listings {
		l := &listings[i]
		total += l.BargainScore
		if l.Price != nil {
			report.PricedListings++
		}
		if IsDegraded(l.Analysis) {
			report.DegradedAnalyses++
		}
		category := l.Analysis.InferredCategory
		if category == "" {
			category = "uncategorised"
		}
		report.ListingsByCategory[category]++

		if report.TopBargain == nil || l.BargainScore > report.TopBargain.BargainScore {
			report.TopBargain = l
		}
	}
	report.AverageScore = round2(float64(total) / float64(len(listings)))

	return report
}

// Print writes the ranked listings followed by the aggregate report.
func (s *ReportService) Print(w io.Writer, listings []models.EnrichedListing, r *models.SearchReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  BARGAIN SEARCH RESULTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Ranked Listings\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(listings) == 0 {
		fmt.Fprintf(w, "  No listings matched\n")
	}
	for i, l := range listings {
		fmt.Fprintf(w, "  \033[1m%d.\033[0m %-38s %s \033[1;32m%3d\033[0m\n",
			i+1, truncate(l.Title, 38), formatPrice(l.Price), l.BargainScore)
		if l.ReasoningSummary != "" {
			fmt.Fprintf(w, "     %s\n", l.ReasoningSummary)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Listings ranked        : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  With known price       : \033[1m%d\033[0m\n", r.PricedListings)
	fmt.Fprintf(w, "  Heuristic-only analyses: \033[1m%d\033[0m\n", r.DegradedAnalyses)
	fmt.Fprintf(w, "  Average bargain score  : \033[1m%.2f\033[0m\n", r.AverageScore)
	if r.TopBargain != nil {
		fmt.Fprintf(w, "  Top bargain            : %s (\033[1;32m%d\033[0m)\n",
			truncate(r.TopBargain.Title, 40), r.TopBargain.BargainScore)
	}
	fmt.Fprintln(w)

	if len(r.ListingsByCategory) > 0 {
		fmt.Fprintf(w, "\033[1;33m  Listings by Category\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)

		type catCount struct {
			cat   string
			count int
		}
		var cats []catCount
		for cat, cnt := range r.ListingsByCategory {
			cats = append(cats, catCount{cat, cnt})
		}
		sort.Slice(cats, func(i, j int) bool {
			if cats[i].count != cats[j].count {
				return cats[i].count > cats[j].count
			}
			return cats[i].cat < cats[j].cat
		})
		for _, cc := range cats {
			bar := strings.Repeat("█", cc.count)
			fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(cc.cat, 28), bar, cc.count)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func formatPrice(p *float64) string {
	if p == nil {
		return "   n/a"
	}
	return fmt.Sprintf("$%5.0f", *p)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
