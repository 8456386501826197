package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reservations/internal/domain/shared/daterange"
	"reservations/internal/domain/shared/money"
)

var refundNow = time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)

func newTestBooking(t *testing.T, checkIn time.Time, nights int, price int64) *Booking {
	t.Helper()
	dr, err := daterange.New(checkIn, checkIn.Add(time.Duration(nights)*24*time.Hour))
	require.NoError(t, err)
	b, err := NewBooking(CreateParams{
		ID:            "b-1",
		ListingID:     "l-1",
		GuestID:       "guest-1",
		Range:         dr,
		Guests:        2,
		PricePerNight: money.Must(price, "USD"),
		CreatedAt:     refundNow,
	})
	require.NoError(t, err)
	return b
}

func TestNewBookingIsConfirmedAndPriced(t *testing.T) {
	b := newTestBooking(t, refundNow.Add(10*24*time.Hour), 3, 100)

	assert.Equal(t, StatusConfirmed, b.Status)
	assert.Equal(t, int64(300), b.Total.Amount)
	assert.Nil(t, b.Cancellation)

	evs := b.PullEvents()
	require.Len(t, evs, 1)
	assert.Equal(t, "booking.confirmed", evs[0].EventName())
	assert.Empty(t, b.PendingEvents())
}

func TestNewBookingRejectsBadParams(t *testing.T) {
	dr, _ := daterange.New(refundNow, refundNow.Add(24*time.Hour))
	_, err := NewBooking(CreateParams{ListingID: "l", GuestID: "g", Range: dr, Guests: 0})
	assert.ErrorIs(t, err, ErrInvalidGuests)

	_, err = NewBooking(CreateParams{ListingID: "l", Range: dr, Guests: 1})
	assert.ErrorIs(t, err, ErrGuestRequired)

	_, err = NewBooking(CreateParams{ListingID: "l", GuestID: "g", Guests: 1})
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)
}

func TestRefundBoundaries(t *testing.T) {
	total := money.Must(1000, "USD")
	cases := []struct {
		name    string
		checkIn time.Time
		want    int64
	}{
		{"eight days ahead", time.Date(2025, time.January, 9, 12, 0, 0, 0, time.UTC), 1000},
		{"exactly seven days", refundNow.Add(7 * 24 * time.Hour), 1000},
		{"four days ahead", time.Date(2025, time.January, 5, 12, 0, 0, 0, time.UTC), 500},
		{"exactly three days", refundNow.Add(3 * 24 * time.Hour), 500},
		{"just under three days", refundNow.Add(3*24*time.Hour - time.Second), 0},
		{"one day ahead", time.Date(2025, time.January, 2, 12, 0, 0, 0, time.UTC), 0},
		{"already started", refundNow.Add(-time.Hour), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DefaultRefundPolicy.Refund(total, tc.checkIn, refundNow)
			assert.Equal(t, tc.want, got.Amount)
			assert.Equal(t, "USD", got.Currency)
		})
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	b := newTestBooking(t, refundNow.Add(5*24*time.Hour), 3, 100)
	b.ClearEvents()

	changed, err := b.Cancel("guest-1", " plans changed ", refundNow, DefaultRefundPolicy)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusCancelled, b.Status)
	require.NotNil(t, b.Cancellation)
	assert.Equal(t, int64(150), b.Cancellation.Refund.Amount)
	assert.Equal(t, "plans changed", b.Cancellation.Reason)
	assert.Equal(t, "guest-1", b.Cancellation.By)
	assert.Len(t, b.PullEvents(), 1)

	first := *b.Cancellation
	changed, err = b.Cancel("guest-1", "again", refundNow.Add(time.Hour), DefaultRefundPolicy)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, first, *b.Cancellation)
	assert.Empty(t, b.PendingEvents())
}

func TestCancelRejectsPending(t *testing.T) {
	b := newTestBooking(t, refundNow.Add(5*24*time.Hour), 1, 100)
	b.Status = StatusPending
	_, err := b.Cancel("guest-1", "", refundNow, DefaultRefundPolicy)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCloneIsIndependent(t *testing.T) {
	b := newTestBooking(t, refundNow.Add(10*24*time.Hour), 2, 100)
	_, err := b.Cancel("guest-1", "", refundNow, DefaultRefundPolicy)
	require.NoError(t, err)

	c := b.Clone()
	c.Cancellation.Reason = "changed"
	assert.NotEqual(t, b.Cancellation.Reason, c.Cancellation.Reason)
	assert.Empty(t, c.PendingEvents())
}
