package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrInvalidRequest = errors.New("invalid request body")
	ErrQueryRequired  = errors.New("query is required")
	ErrZipRequired    = errors.New("ZIP code is required")
	ErrInvalidRadius  = errors.New("radius must be a positive number")
	ErrInvalidNumber  = errors.New("value must be a number")
	ErrNegativePrice  = errors.New("price bounds must not be negative")
	ErrPriceRange     = errors.New("min price cannot be greater than max price")
)

// SearchParams is the normalised search request. The pipeline never mutates it.
type SearchParams struct {
	Query       string   `json:"query"`
	ZipCode     string   `json:"zipCode"`
	RadiusMiles float64  `json:"radiusMiles"`
	MinPrice    *float64 `json:"minPrice,omitempty"`
	MaxPrice    *float64 `json:"maxPrice,omitempty"`
	Category    string   `json:"category,omitempty"`
}

// SearchRequest is the body accepted by the search endpoint.
type SearchRequest struct {
	SearchParams *RawSearchParams `json:"searchParams"`
}

// RawSearchParams is the loosely-typed form of SearchParams as received from
// clients: numbers may arrive as JSON numbers or numeric strings.
type RawSearchParams struct {
	Query       json.RawMessage `json:"query"`
	ZipCode     json.RawMessage `json:"zipCode"`
	RadiusMiles json.RawMessage `json:"radiusMiles"`
	MinPrice    json.RawMessage `json:"minPrice"`
	MaxPrice    json.RawMessage `json:"maxPrice"`
	Category    json.RawMessage `json:"category"`
}

// DecodeSearchRequest parses and normalises a search request body.
func DecodeSearchRequest(body []byte) (SearchParams, error) {
	var req SearchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return SearchParams{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if req.SearchParams == nil {
		return SearchParams{}, ErrInvalidRequest
	}
	return NormalizeSearchParams(*req.SearchParams)
}

// NormalizeSearchParams validates raw parameters and returns the trimmed,
// typed SearchParams.
func NormalizeSearchParams(raw RawSearchParams) (SearchParams, error) {
	query, ok := rawString(raw.Query)
	if !ok || strings.TrimSpace(query) == "" {
		return SearchParams{}, ErrQueryRequired
	}

	zip, ok := rawString(raw.ZipCode)
	if !ok || strings.TrimSpace(zip) == "" {
		return SearchParams{}, ErrZipRequired
	}

	radius, err := optionalNumber(raw.RadiusMiles)
	if err != nil || radius == nil || *radius <= 0 {
		return SearchParams{}, ErrInvalidRadius
	}

	minPrice, err := optionalNumber(raw.MinPrice)
	if err != nil {
		return SearchParams{}, fmt.Errorf("minPrice: %w", err)
	}
	maxPrice, err := optionalNumber(raw.MaxPrice)
	if err != nil {
		return SearchParams{}, fmt.Errorf("maxPrice: %w", err)
	}
	if (minPrice != nil && *minPrice < 0) || (maxPrice != nil && *maxPrice < 0) {
		return SearchParams{}, ErrNegativePrice
	}
	if minPrice != nil && maxPrice != nil && *minPrice > *maxPrice {
		return SearchParams{}, ErrPriceRange
	}

	category, _ := rawString(raw.Category)

	return SearchParams{
		Query:       strings.TrimSpace(query),
		ZipCode:     strings.TrimSpace(zip),
		RadiusMiles: *radius,
		MinPrice:    minPrice,
		MaxPrice:    maxPrice,
		Category:    strings.TrimSpace(category),
	}, nil
}

// rawString reports the value of a JSON string; any other JSON type is rejected.
func rawString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// optionalNumber accepts a JSON number or numeric string. Absent, null and
// empty-string values are reported as nil.
func optionalNumber(raw json.RawMessage) (*float64, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var n float64
	if err := json.Unmarshal(trimmed, &n); err == nil {
		return &n, nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return nil, ErrInvalidNumber
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return nil, ErrInvalidNumber
	}
	return &n, nil
}
