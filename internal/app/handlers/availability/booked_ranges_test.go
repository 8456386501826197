package availability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reservations/internal/app/apperr"
	domainbooking "reservations/internal/domain/booking"
	domainlistings "reservations/internal/domain/listings"
	"reservations/internal/domain/shared/daterange"
	"reservations/internal/domain/shared/money"
	"reservations/internal/infra/storage/memory"
)

var base = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

func d(n int) time.Time { return base.AddDate(0, 0, n) }

func seed(t *testing.T) (*BookedRangesHandler, *memory.BookingRepository) {
	t.Helper()
	ctx := context.Background()
	listingsRepo := memory.NewListingRepository()
	l, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID: "l1", Host: "h1", Title: "Flat", City: "Rome",
		PricePerNight: money.Must(80, money.DefaultCurrency), MaxGuests: 2, Now: base,
	})
	require.NoError(t, err)
	require.NoError(t, listingsRepo.Save(ctx, l))

	bookings := memory.NewBookingRepository()
	add := func(id string, in, out int, cancel bool) {
		b, err := domainbooking.NewBooking(domainbooking.CreateParams{
			ID: domainbooking.BookingID(id), ListingID: "l1", GuestID: "g-" + id,
			Range: daterange.DateRange{CheckIn: d(in), CheckOut: d(out)}, Guests: 1,
			PricePerNight: money.Must(80, money.DefaultCurrency), CreatedAt: base,
		})
		require.NoError(t, err)
		if cancel {
			_, err = b.Cancel(b.GuestID, "", base, domainbooking.DefaultRefundPolicy)
			require.NoError(t, err)
		}
		require.NoError(t, bookings.Create(ctx, b))
	}
	add("a", 2, 4, false)
	add("b", 4, 6, false)
	add("c", 10, 12, false)
	add("x", 20, 22, true)
	add("late", 400, 402, false)

	return &BookedRangesHandler{Bookings: bookings, Listings: listingsRepo, Now: func() time.Time { return base }}, bookings
}

func TestBookedRangesMergesAndSkipsCancelled(t *testing.T) {
	h, _ := seed(t)
	got, err := h.Handle(context.Background(), BookedRangesQuery{ListingID: "l1"})
	require.NoError(t, err)

	assert.Equal(t, base, got.From)
	assert.Equal(t, base.Add(DefaultWindow), got.To)
	require.Len(t, got.Booked, 2)
	assert.Equal(t, d(2), got.Booked[0].CheckIn)
	assert.Equal(t, d(6), got.Booked[0].CheckOut)
	assert.Equal(t, d(10), got.Booked[1].CheckIn)
}

func TestBookedRangesWindow(t *testing.T) {
	h, _ := seed(t)
	got, err := h.Handle(context.Background(), BookedRangesQuery{ListingID: "l1", From: d(5), To: d(11)})
	require.NoError(t, err)
	require.Len(t, got.Booked, 2)

	_, err = h.Handle(context.Background(), BookedRangesQuery{ListingID: "l1", From: d(5), To: d(5)})
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	_, err = h.Handle(context.Background(), BookedRangesQuery{ListingID: "l1", From: d(0), To: d(1000)})
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
}

func TestBookedRangesUnknownListing(t *testing.T) {
	h, _ := seed(t)
	_, err := h.Handle(context.Background(), BookedRangesQuery{ListingID: "nope"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
