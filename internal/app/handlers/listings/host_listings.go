package listings

import (
	"context"
	"strings"

	"reservations/internal/app/apperr"
	"reservations/internal/app/dto"
	"reservations/internal/app/handlers/support"
	"reservations/internal/app/queries"
	domainlistings "reservations/internal/domain/listings"
)

const hostListingsKey = "host.listings.list"

// HostListingsQuery lists every listing of a host, suspended ones included.
type HostListingsQuery struct {
	HostID string
	Page   int
	Limit  int
}

func (q HostListingsQuery) Key() string { return hostListingsKey }

func (q HostListingsQuery) Validate() error {
	if strings.TrimSpace(q.HostID) == "" {
		return apperr.Unauthorized("Authentication required")
	}
	return nil
}

type HostListingsHandler struct {
	Listings domainlistings.ListingRepository
}

func (h *HostListingsHandler) Handle(ctx context.Context, q HostListingsQuery) (dto.ListingPage, error) {
	paging := support.NewPaging(q.Page, q.Limit)
	params := domainlistings.SearchParams{
		Host:   domainlistings.HostID(q.HostID),
		Sort:   domainlistings.SortByNewest,
		Limit:  paging.Limit,
		Offset: paging.Offset(),
	}
	return search(ctx, h.Listings, params, paging)
}

var _ queries.Handler[HostListingsQuery, dto.ListingPage] = (*HostListingsHandler)(nil)
