package me

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"reservations/internal/app/apperr"
	"reservations/internal/app/dto"
	"reservations/internal/app/handlers/support"
	"reservations/internal/app/queries"
	domainbooking "reservations/internal/domain/booking"
	domainlistings "reservations/internal/domain/listings"
	domainreviews "reservations/internal/domain/reviews"
)

const listReservationsKey = "me.bookings.list"

type ListReservationsQuery struct {
	GuestID string
	Page    int
	Limit   int
}

func (q ListReservationsQuery) Key() string { return listReservationsKey }

func (q ListReservationsQuery) Validate() error {
	if strings.TrimSpace(q.GuestID) == "" {
		return apperr.Unauthorized("Authentication required")
	}
	return nil
}

// ListReservationsHandler pages a guest's bookings, newest first, each with
// the guest's own review when one exists.
type ListReservationsHandler struct {
	Bookings domainbooking.Repository
	Listings domainlistings.ListingRepository
	Reviews  domainreviews.Repository
	Logger   *slog.Logger
}

func (h *ListReservationsHandler) Handle(ctx context.Context, q ListReservationsQuery) (dto.GuestReservationPage, error) {
	paging := support.NewPaging(q.Page, q.Limit)
	bookings, total, err := h.Bookings.ListByGuest(ctx, q.GuestID, paging.Limit, paging.Offset())
	if err != nil {
		return dto.GuestReservationPage{}, apperr.Internal(err)
	}

	listingCache := make(map[domainlistings.ListingID]*domainlistings.Listing)
	items := make([]dto.GuestReservation, 0, len(bookings))
	for _, b := range bookings {
		item := dto.GuestReservation{Reservation: dto.MapReservation(b)}
		item.Listing = dto.MapListingSummary(h.listing(ctx, b.ListingID, listingCache))
		item.MyReview = h.review(ctx, b.ID, q.GuestID)
		items = append(items, item)
	}

	if h.Logger != nil {
		h.Logger.DebugContext(ctx, "guest bookings listed", "guest_id", q.GuestID, "count", len(items), "total", total)
	}
	return dto.GuestReservationPage{Items: items, Total: total, Page: paging.Page, Limit: paging.Limit}, nil
}

// listing is best-effort: a missing snapshot leaves the summary empty.
func (h *ListReservationsHandler) listing(ctx context.Context, id domainlistings.ListingID, seen map[domainlistings.ListingID]*domainlistings.Listing) *domainlistings.Listing {
	if h.Listings == nil {
		return nil
	}
	if l, ok := seen[id]; ok {
		return l
	}
	l, err := h.Listings.ByID(ctx, id)
	if err != nil {
		if h.Logger != nil && !errors.Is(err, domainlistings.ErrNotFound) {
			h.Logger.WarnContext(ctx, "listing lookup failed", "listing_id", id, "error", err)
		}
		l = nil
	}
	seen[id] = l
	return l
}

func (h *ListReservationsHandler) review(ctx context.Context, bookingID domainbooking.BookingID, guestID string) *dto.Review {
	if h.Reviews == nil {
		return nil
	}
	r, err := h.Reviews.ByBooking(ctx, bookingID, guestID)
	if err != nil {
		if h.Logger != nil && !errors.Is(err, domainreviews.ErrNotFound) {
			h.Logger.WarnContext(ctx, "review lookup failed", "booking_id", bookingID, "error", err)
		}
		return nil
	}
	return dto.MapReview(r)
}

var _ queries.Handler[ListReservationsQuery, dto.GuestReservationPage] = (*ListReservationsHandler)(nil)
