package reviews

import (
	"context"
	"errors"
	"strings"

	"reservations/internal/app/apperr"
	"reservations/internal/app/commands"
	"reservations/internal/app/dto"
	"reservations/internal/app/handlers/support"
	domainbooking "reservations/internal/domain/booking"
	domainreviews "reservations/internal/domain/reviews"
)

const deleteReviewKey = "reviews.delete"

type DeleteReviewCommand struct {
	BookingID string
	AuthorID  string
}

func (c DeleteReviewCommand) Key() string { return deleteReviewKey }

func (c DeleteReviewCommand) Validate() error {
	if strings.TrimSpace(c.AuthorID) == "" {
		return apperr.Unauthorized("Authentication required")
	}
	if strings.TrimSpace(c.BookingID) == "" {
		return errors.New("bookingId is required")
	}
	return nil
}

// DeleteReviewHandler removes the author's own review of a booking.
type DeleteReviewHandler struct {
	Deps
}

func (h *DeleteReviewHandler) Handle(ctx context.Context, cmd DeleteReviewCommand) (dto.ReviewDeleted, error) {
	review, err := h.Reviews.Delete(ctx, domainbooking.BookingID(cmd.BookingID), cmd.AuthorID)
	if err != nil {
		if errors.Is(err, domainreviews.ErrNotFound) {
			return dto.ReviewDeleted{}, apperr.NotFound("Review not found for this booking and user")
		}
		return dto.ReviewDeleted{}, apperr.Internal(err)
	}
	review.MarkDeleted(support.Now(h.Now))
	h.afterWrite(ctx, review.ListingID, review)

	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "review deleted", "booking_id", cmd.BookingID, "listing_id", review.ListingID)
	}
	return dto.ReviewDeleted{Deleted: true}, nil
}

var _ commands.Handler[DeleteReviewCommand, dto.ReviewDeleted] = (*DeleteReviewHandler)(nil)
