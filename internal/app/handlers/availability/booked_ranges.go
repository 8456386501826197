package availability

import (
	"context"
	"errors"
	"strings"
	"time"

	"reservations/internal/app/apperr"
	"reservations/internal/app/dto"
	"reservations/internal/app/handlers/support"
	"reservations/internal/app/queries"
	domainbooking "reservations/internal/domain/booking"
	domainlistings "reservations/internal/domain/listings"
	"reservations/internal/domain/shared/daterange"
)

const bookedRangesKey = "availability.booked"

const (
	DefaultWindow = 365 * 24 * time.Hour
	MaxWindow     = 2 * DefaultWindow
)

// BookedRangesQuery asks for occupied spans in [From, To). Zero bounds default
// to now and now+DefaultWindow.
type BookedRangesQuery struct {
	ListingID string
	From      time.Time
	To        time.Time
}

func (q BookedRangesQuery) Key() string { return bookedRangesKey }

func (q BookedRangesQuery) Validate() error {
	if strings.TrimSpace(q.ListingID) == "" {
		return errors.New("listing id is required")
	}
	return nil
}

type BookedRangesHandler struct {
	Bookings domainbooking.Repository
	Listings domainlistings.ListingRepository
	Now      func() time.Time
}

func (h *BookedRangesHandler) Handle(ctx context.Context, q BookedRangesQuery) (dto.Availability, error) {
	if _, err := h.Listings.ByID(ctx, domainlistings.ListingID(q.ListingID)); err != nil {
		if errors.Is(err, domainlistings.ErrNotFound) {
			return dto.Availability{}, apperr.NotFound("Listing not found")
		}
		return dto.Availability{}, apperr.Internal(err)
	}

	from := q.From.UTC()
	if q.From.IsZero() {
		from = support.Now(h.Now)
	}
	to := q.To.UTC()
	if q.To.IsZero() {
		to = from.Add(DefaultWindow)
	}
	window, err := daterange.New(from, to)
	if err != nil {
		return dto.Availability{}, apperr.Wrap(apperr.KindBadRequest, "Invalid date range", err)
	}
	if to.Sub(from) > MaxWindow {
		return dto.Availability{}, apperr.BadRequest("Date window too large")
	}

	bookings, err := h.Bookings.ListActiveByListing(ctx, domainlistings.ListingID(q.ListingID), window)
	if err != nil {
		return dto.Availability{}, apperr.Internal(err)
	}
	return dto.Availability{
		ListingID: q.ListingID,
		From:      window.CheckIn,
		To:        window.CheckOut,
		Booked:    mergeSpans(bookings),
	}, nil
}

// mergeSpans joins touching or overlapping ranges; bookings arrive sorted by check-in.
func mergeSpans(bookings []*domainbooking.Booking) []dto.BookedSpan {
	spans := make([]dto.BookedSpan, 0, len(bookings))
	var current daterange.DateRange
	open := false
	for _, b := range bookings {
		if open {
			if merged, ok := current.Merge(b.Range); ok {
				current = merged
				continue
			}
			spans = append(spans, dto.BookedSpan{CheckIn: current.CheckIn, CheckOut: current.CheckOut})
		}
		current, open = b.Range, true
	}
	if open {
		spans = append(spans, dto.BookedSpan{CheckIn: current.CheckIn, CheckOut: current.CheckOut})
	}
	return spans
}

var _ queries.Handler[BookedRangesQuery, dto.Availability] = (*BookedRangesHandler)(nil)
