package listings

import (
	"context"
	"errors"
	"strings"

	"reservations/internal/app/apperr"
	"reservations/internal/app/dto"
	"reservations/internal/app/handlers/support"
	"reservations/internal/app/queries"
	domainlistings "reservations/internal/domain/listings"
)

const (
	searchCatalogKey = "listings.catalog"
	getListingKey    = "listings.get"
)

const msgListingNotFound = "Listing not found"

// SearchCatalogQuery describes public catalog filters.
type SearchCatalogQuery struct {
	City      string
	Country   string
	MinGuests int
	PriceMin  int64
	PriceMax  int64
	Sort      string
	Page      int
	Limit     int
}

func (q SearchCatalogQuery) Key() string { return searchCatalogKey }

// SearchCatalogHandler lists active listings only.
type SearchCatalogHandler struct {
	Listings domainlistings.ListingRepository
}

func (h *SearchCatalogHandler) Handle(ctx context.Context, q SearchCatalogQuery) (dto.ListingPage, error) {
	paging := support.NewPaging(q.Page, q.Limit)
	params := domainlistings.SearchParams{
		City:       q.City,
		Country:    q.Country,
		MinGuests:  q.MinGuests,
		PriceMin:   q.PriceMin,
		PriceMax:   q.PriceMax,
		Sort:       domainlistings.CatalogSort(q.Sort),
		Limit:      paging.Limit,
		Offset:     paging.Offset(),
		OnlyActive: true,
	}
	return search(ctx, h.Listings, params, paging)
}

func search(ctx context.Context, repo domainlistings.ListingRepository, params domainlistings.SearchParams, paging support.Paging) (dto.ListingPage, error) {
	result, err := repo.Search(ctx, params)
	if err != nil {
		return dto.ListingPage{}, apperr.Internal(err)
	}
	items := make([]dto.Listing, 0, len(result.Items))
	for _, l := range result.Items {
		items = append(items, dto.MapListing(l))
	}
	return dto.ListingPage{Items: items, Total: result.Total, Page: paging.Page, Limit: paging.Limit}, nil
}

type GetListingQuery struct {
	ListingID string
}

func (q GetListingQuery) Key() string { return getListingKey }

func (q GetListingQuery) Validate() error {
	if strings.TrimSpace(q.ListingID) == "" {
		return errors.New("listing id is required")
	}
	return nil
}

// GetListingHandler returns an active listing; suspended ones read as missing.
type GetListingHandler struct {
	Listings domainlistings.ListingRepository
}

func (h *GetListingHandler) Handle(ctx context.Context, q GetListingQuery) (*dto.Listing, error) {
	l, err := h.Listings.ByID(ctx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		if errors.Is(err, domainlistings.ErrNotFound) {
			return nil, apperr.NotFound(msgListingNotFound)
		}
		return nil, apperr.Internal(err)
	}
	if !l.IsActive() {
		return nil, apperr.NotFound(msgListingNotFound)
	}
	out := dto.MapListing(l)
	return &out, nil
}

var (
	_ queries.Handler[SearchCatalogQuery, dto.ListingPage] = (*SearchCatalogHandler)(nil)
	_ queries.Handler[GetListingQuery, *dto.Listing]       = (*GetListingHandler)(nil)
)
