package reviews

import (
	"context"
	"errors"
	"strings"

	"reservations/internal/app/apperr"
	"reservations/internal/app/dto"
	"reservations/internal/app/handlers/support"
	"reservations/internal/app/queries"
	domainlistings "reservations/internal/domain/listings"
	domainreviews "reservations/internal/domain/reviews"
)

const listListingReviewsKey = "reviews.listing"

type ListListingReviewsQuery struct {
	ListingID string
	Page      int
	Limit     int
}

func (q ListListingReviewsQuery) Key() string { return listListingReviewsKey }

func (q ListListingReviewsQuery) Validate() error {
	if strings.TrimSpace(q.ListingID) == "" {
		return errors.New("listing id is required")
	}
	return nil
}

// ListListingReviewsHandler pages a listing's reviews, newest first.
type ListListingReviewsHandler struct {
	Reviews domainreviews.Repository
}

func (h *ListListingReviewsHandler) Handle(ctx context.Context, q ListListingReviewsQuery) (dto.ReviewPage, error) {
	paging := support.NewPaging(q.Page, q.Limit)
	items, total, err := h.Reviews.ListByListing(ctx, domainlistings.ListingID(q.ListingID), paging.Limit, paging.Offset())
	if err != nil {
		return dto.ReviewPage{}, apperr.Internal(err)
	}
	out := make([]dto.Review, 0, len(items))
	for _, r := range items {
		out = append(out, *dto.MapReview(r))
	}
	return dto.ReviewPage{Items: out, Total: total, Page: paging.Page, Limit: paging.Limit}, nil
}

var _ queries.Handler[ListListingReviewsQuery, dto.ReviewPage] = (*ListListingReviewsHandler)(nil)
