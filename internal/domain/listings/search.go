package listings

import (
	"strings"
)

// CatalogSort defines a supported ordering.
type CatalogSort string

const (
	SortByNewest    CatalogSort = "newest"
	SortByPriceAsc  CatalogSort = "price_asc"
	SortByPriceDesc CatalogSort = "price_desc"
	SortByRating    CatalogSort = "rating_desc"

	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// SearchParams describe catalog filters and paging options.
type SearchParams struct {
	Host       HostID
	City       string
	Country    string
	MinGuests  int
	PriceMin   int64
	PriceMax   int64
	Sort       CatalogSort
	Limit      int
	Offset     int
	OnlyActive bool
}

// Normalized returns a sanitized copy of params.
func (p SearchParams) Normalized() SearchParams {
	normalized := p
	normalized.City = strings.TrimSpace(strings.ToLower(normalized.City))
	normalized.Country = strings.TrimSpace(strings.ToLower(normalized.Country))
	if normalized.MinGuests < 0 {
		normalized.MinGuests = 0
	}
	if normalized.PriceMin < 0 {
		normalized.PriceMin = 0
	}
	if normalized.PriceMax > 0 && normalized.PriceMax < normalized.PriceMin {
		normalized.PriceMax = 0
	}
	if normalized.Limit <= 0 {
		normalized.Limit = defaultSearchLimit
	}
	if normalized.Limit > maxSearchLimit {
		normalized.Limit = maxSearchLimit
	}
	if normalized.Offset < 0 {
		normalized.Offset = 0
	}
	switch normalized.Sort {
	case SortByPriceAsc, SortByPriceDesc, SortByRating, SortByNewest:
	default:
		normalized.Sort = SortByNewest
	}
	return normalized
}

// Matches applies the non-paging filters of normalized params to one listing.
func (p SearchParams) Matches(l *Listing) bool {
	if p.OnlyActive && !l.IsActive() {
		return false
	}
	if p.Host != "" && l.Host != p.Host {
		return false
	}
	if p.City != "" && !strings.EqualFold(l.City, p.City) {
		return false
	}
	if p.Country != "" && !strings.EqualFold(l.Country, p.Country) {
		return false
	}
	if p.MinGuests > 0 && l.MaxGuests < p.MinGuests {
		return false
	}
	if p.PriceMin > 0 && l.PricePerNight.Amount < p.PriceMin {
		return false
	}
	if p.PriceMax > 0 && l.PricePerNight.Amount > p.PriceMax {
		return false
	}
	return true
}

// SearchResult wraps search hits with meta.
type SearchResult struct {
	Items []*Listing
	Total int
}
