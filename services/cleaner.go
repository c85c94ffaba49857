package services

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"bargain-hunter/models"
	"bargain-hunter/utils"
)

var (
	// priceRegexp captures the first numeric amount in a raw price string
	priceRegexp = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// Cleaner transforms catalog records into RawListings ready for enrichment.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean drops records without a URL or title, de-duplicates ids and
// normalises text. Records without an id get a fresh uuid.
func (c *Cleaner) Clean(records []*models.CatalogRecord) []models.RawListing {
	seen := utils.NewKeySet()
	result := make([]models.RawListing, 0, len(records))

	for _, r := range records {
		url := strings.TrimSpace(r.URL)
		if url == "" {
			c.logger.Warn("[cleaner] Dropping listing with empty URL: %s", r.Title)
			continue
		}

		title := normaliseText(r.Title)
		if title == "" {
			c.logger.Warn("[cleaner] Dropping listing with empty title: %s", url)
			continue
		}

		id := strings.TrimSpace(r.ID)
		if id == "" {
			id = uuid.NewString()
		}
		if !seen.Add(id) {
			c.logger.Debug("[cleaner] Duplicate id skipped: %s", id)
			continue
		}

		result = append(result, models.RawListing{
			ID:          id,
			Title:       title,
			URL:         url,
			Price:       c.parsePrice(r.RawPrice),
			Location:    normaliseText(r.Location),
			PostedAt:    strings.TrimSpace(r.PostedAt),
			Description: normaliseText(r.Description),
			Source:      models.SourceMarketplace,
		})
	}

	c.logger.Info("[cleaner] Cleaned %d → %d listings (dropped %d)",
		len(records), len(result), len(records)-len(result))
	return result
}

// parsePrice extracts the first amount from a raw price string.
// Examples:
//
//	"$180"      → 180
//	"$1,200.50" → 1200.5
//	"USD 99"    → 99
//	"", "N/A"   → nil (unknown)
func (c *Cleaner) parsePrice(raw string) *float64 {
	cleaned := strings.ReplaceAll(raw, ",", "")
	match := priceRegexp.FindString(cleaned)
	if match == "" {
		return nil
	}

	price, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &price
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}
