package models

// ListingSource identifies where a raw listing came from.
type ListingSource string

// SourceMarketplace is the only listing source currently produced.
const SourceMarketplace ListingSource = "marketplace"

// RawListing is a marketplace listing as supplied by the listing source.
// It is read-only to the enrichment pipeline.
type RawListing struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	URL         string        `json:"url"`
	Price       *float64      `json:"price"` // nil when unknown
	Location    string        `json:"location,omitempty"`
	PostedAt    string        `json:"postedAt,omitempty"` // ISO-8601
	Description string        `json:"description,omitempty"`
	Source      ListingSource `json:"source"`
}

// CatalogRecord is an uncleaned catalog row as read from a CSV file.
type CatalogRecord struct {
	ID          string
	Title       string
	URL         string
	RawPrice    string
	Location    string
	PostedAt    string
	Description string
}

// ListingAnalysis is the product identification derived from listing text.
type ListingAnalysis struct {
	DetectedModel    string   `json:"detectedModel,omitempty"`
	InferredCategory string   `json:"inferredCategory,omitempty"`
	QualityHints     []string `json:"qualityHints,omitempty"` // nil when absent
	Notes            string   `json:"notes,omitempty"`
}

// EnrichedListing is the terminal output record of the pipeline.
type EnrichedListing struct {
	RawListing
	Analysis         ListingAnalysis `json:"analysis"`
	EstimatedMsrp    *float64        `json:"estimatedMsrp"`
	BargainScore     int             `json:"bargainScore"`
	ReasoningSummary string          `json:"reasoningSummary,omitempty"`
}

// ScoreContext groups the inputs shared by scoring and summary generation.
type ScoreContext struct {
	Listing       RawListing
	Analysis      ListingAnalysis
	EstimatedMsrp *float64
}

// SearchMeta describes a completed search.
type SearchMeta struct {
	TotalListingsFetched  int          `json:"totalListingsFetched"`
	TotalListingsReturned int          `json:"totalListingsReturned"`
	SearchParams          SearchParams `json:"searchParams"`
	ExecutionTimeMs       int64        `json:"executionTimeMs"`
}

// SearchResult is the response of a bargain search.
type SearchResult struct {
	Results []EnrichedListing `json:"results"`
	Meta    SearchMeta        `json:"meta"`
}

// SearchReport holds aggregate figures over a set of enriched listings.
type SearchReport struct {
	TotalListings      int
	PricedListings     int
	DegradedAnalyses   int
	AverageScore       float64
	TopBargain         *EnrichedListing
	ListingsByCategory map[string]int
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 {
	return &v
}
