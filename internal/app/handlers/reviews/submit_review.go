package reviews

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"reservations/internal/app/apperr"
	"reservations/internal/app/commands"
	"reservations/internal/app/dto"
	"reservations/internal/app/handlers/support"
	"reservations/internal/app/outbox"
	"reservations/internal/app/policies"
	domainbooking "reservations/internal/domain/booking"
	domainlistings "reservations/internal/domain/listings"
	domainreviews "reservations/internal/domain/reviews"
)

const submitReviewKey = "reviews.submit"

const (
	msgBookingNotFound   = "Booking not found"
	msgBookingNotConfirm = "Booking not confirmed"
	msgBookingNotEnded   = "Booking has not ended"
	msgForbidden         = "Forbidden"
	msgListingNotFound   = "Listing not found"
	msgAlreadyReviewed   = "Review already exists for this booking"
	msgInvalidRating     = "Rating must be between 1 and 5"
	msgCommentTooLong    = "Comment is too long"
)

// Deps are shared by the review commands.
type Deps struct {
	Bookings domainbooking.Repository
	Listings domainlistings.ListingRepository
	Reviews  domainreviews.Repository
	Cache    policies.CacheInvalidator
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Logger   *slog.Logger
	Now      func() time.Time
	NewID    func() string
}

// refreshStats recomputes the listing's rating aggregate. The review write has
// committed already, so a failure here is only logged.
func (d Deps) refreshStats(ctx context.Context, listingID domainlistings.ListingID) {
	stats, err := d.Reviews.StatsForListing(ctx, listingID)
	if err == nil {
		err = d.Listings.UpdateReviewStats(ctx, listingID, stats.Count, stats.Average)
	}
	if err != nil && d.Logger != nil {
		d.Logger.WarnContext(ctx, "listing review stats refresh failed", "listing_id", listingID, "error", err)
	}
}

func (d Deps) afterWrite(ctx context.Context, listingID domainlistings.ListingID, src *domainreviews.Review) {
	d.refreshStats(ctx, listingID)
	if d.Cache != nil {
		d.Cache.Invalidate(ctx, policies.BucketReviews)
		d.Cache.Invalidate(ctx, policies.BucketListings)
	}
	outbox.Relay(ctx, d.Outbox, d.Encoder, d.Logger, src)
}

// SubmitReviewCommand reviews a finished stay.
type SubmitReviewCommand struct {
	BookingID string
	AuthorID  string
	Rating    int
	Comment   string
}

func (c SubmitReviewCommand) Key() string { return submitReviewKey }

func (c SubmitReviewCommand) Validate() error {
	if strings.TrimSpace(c.AuthorID) == "" {
		return apperr.Unauthorized("Authentication required")
	}
	if strings.TrimSpace(c.BookingID) == "" {
		return errors.New("bookingId is required")
	}
	return nil
}

type SubmitReviewHandler struct {
	Deps
}

func (h *SubmitReviewHandler) Handle(ctx context.Context, cmd SubmitReviewCommand) (*dto.Review, error) {
	now := support.Now(h.Now)
	b, err := h.Bookings.ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		if errors.Is(err, domainbooking.ErrBookingNotFound) {
			return nil, apperr.NotFound(msgBookingNotFound)
		}
		return nil, apperr.Internal(err)
	}
	if b.Status != domainbooking.StatusConfirmed {
		return nil, apperr.Forbidden(msgBookingNotConfirm)
	}
	if !b.Ended(now) {
		return nil, apperr.Forbidden(msgBookingNotEnded)
	}
	if b.GuestID != cmd.AuthorID {
		return nil, apperr.Forbidden(msgForbidden)
	}

	listing, err := h.Listings.ByID(ctx, b.ListingID)
	if err != nil {
		if errors.Is(err, domainlistings.ErrNotFound) {
			return nil, apperr.NotFound(msgListingNotFound)
		}
		return nil, apperr.Internal(err)
	}

	review, err := domainreviews.Submit(domainreviews.SubmitParams{
		ID:        domainreviews.ReviewID(support.NewID(h.NewID)),
		BookingID: b.ID,
		ListingID: listing.ID,
		HostID:    listing.Host,
		AuthorID:  cmd.AuthorID,
		Rating:    cmd.Rating,
		Comment:   cmd.Comment,
		CreatedAt: now,
	})
	switch {
	case errors.Is(err, domainreviews.ErrInvalidRating):
		return nil, apperr.Wrap(apperr.KindBadRequest, msgInvalidRating, err)
	case errors.Is(err, domainreviews.ErrCommentTooLong):
		return nil, apperr.Wrap(apperr.KindBadRequest, msgCommentTooLong, err)
	case err != nil:
		return nil, apperr.Internal(err)
	}

	if err := h.Reviews.Create(ctx, review); err != nil {
		if errors.Is(err, domainreviews.ErrAlreadyReviewed) {
			return nil, apperr.Conflict(msgAlreadyReviewed)
		}
		return nil, apperr.Internal(err)
	}
	h.afterWrite(ctx, listing.ID, review)

	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "review submitted", "booking_id", b.ID, "listing_id", listing.ID, "rating", review.Rating)
	}
	return dto.MapReview(review), nil
}

var _ commands.Handler[SubmitReviewCommand, *dto.Review] = (*SubmitReviewHandler)(nil)
