package booking

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reservations/internal/app/apperr"
	"reservations/internal/app/policies"
	domainbooking "reservations/internal/domain/booking"
	domainlistings "reservations/internal/domain/listings"
	"reservations/internal/domain/shared/money"
	"reservations/internal/infra/cache"
	"reservations/internal/infra/lock"
	"reservations/internal/infra/storage/memory"
)

var now0 = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	bookings *memory.BookingRepository
	listings *memory.ListingRepository
	outbox   *memory.Outbox
	cache    *cache.Store
	create   *CreateReservationHandler
	cancel   *CancelReservationHandler
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		bookings: memory.NewBookingRepository(),
		listings: memory.NewListingRepository(),
		outbox:   memory.NewOutbox(),
		cache:    cache.NewStore(memory.NewKV(nil), time.Minute, nil),
		now:      now0,
	}
	clock := func() time.Time { return f.now }
	var seq atomic.Int64
	invalidator := cache.NewInvalidator(f.cache, nil)
	f.create = &CreateReservationHandler{
		Bookings:    f.bookings,
		Listings:    f.listings,
		Locker:      lock.NewInMemory(nil),
		LockOptions: policies.LockOptions{TTL: 3 * time.Second, WaitTimeout: 0, RetryInterval: 10 * time.Millisecond},
		Cache:       invalidator,
		Outbox:      f.outbox,
		Now:         clock,
		NewID: func() string {
			return fmt.Sprintf("b%d", seq.Add(1))
		},
	}
	f.cancel = &CancelReservationHandler{
		Bookings: f.bookings,
		Cache:    invalidator,
		Outbox:   f.outbox,
		Now:      clock,
	}
	f.addListing(t, "l1", "h1", 100, 4)
	return f
}

func (f *fixture) addListing(t *testing.T, id, host string, price int64, maxGuests int) {
	t.Helper()
	l, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:            domainlistings.ListingID(id),
		Host:          domainlistings.HostID(host),
		Title:         "Listing " + id,
		City:          "Lisbon",
		PricePerNight: money.Must(price, money.DefaultCurrency),
		MaxGuests:     maxGuests,
		Now:           now0,
	})
	require.NoError(t, err)
	require.NoError(t, f.listings.Save(context.Background(), l))
}

func at(days int) time.Time {
	return now0.AddDate(0, 0, days)
}

func createCmd(listing, guest string, in, out time.Time) CreateReservationCommand {
	return CreateReservationCommand{ListingID: listing, GuestID: guest, CheckIn: in, CheckOut: out, Guests: 2}
}

func TestCreateReservationPricesNights(t *testing.T) {
	f := newFixture(t)
	res, err := f.create.Handle(context.Background(), createCmd("l1", "g1", at(10), at(12)))
	require.NoError(t, err)
	assert.Equal(t, int64(200), res.TotalPrice)
	assert.Equal(t, "USD", res.Currency)
	assert.Equal(t, "confirmed", res.Status)
	assert.Nil(t, res.RefundAmount)

	stored, err := f.bookings.ByID(context.Background(), domainbooking.BookingID(res.ID))
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusConfirmed, stored.Status)

	records := f.outbox.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "booking.confirmed", records[0].Name)
}

func TestCreateReservationPartialNightRoundsUp(t *testing.T) {
	f := newFixture(t)
	res, err := f.create.Handle(context.Background(), createCmd("l1", "g1", at(10), at(11).Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, int64(200), res.TotalPrice)
}

func TestCreateReservationRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l2, _ := f.listings.ByID(ctx, "l1")
	l2.ID = "l2"
	l2.Suspend(now0, "")
	require.NoError(t, f.listings.Save(ctx, l2))

	cases := []struct {
		name string
		cmd  CreateReservationCommand
		kind apperr.Kind
		msg  string
	}{
		{"missing listing", createCmd("nope", "g1", at(1), at(2)), apperr.KindNotFound, "Listing not found"},
		{"inactive listing", createCmd("l2", "g1", at(1), at(2)), apperr.KindNotFound, "Listing not found"},
		{"own listing", createCmd("l1", "h1", at(1), at(2)), apperr.KindForbidden, "Hosts cannot book their own listings"},
		{"inverted range", createCmd("l1", "g1", at(2), at(1)), apperr.KindBadRequest, "Invalid date range"},
		{"empty range", createCmd("l1", "g1", at(2), at(2)), apperr.KindBadRequest, "Invalid date range"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.create.Handle(ctx, tc.cmd)
			require.Error(t, err)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
			assert.Equal(t, tc.msg, apperr.MessageOf(err))
		})
	}

	tooMany := createCmd("l1", "g1", at(1), at(2))
	tooMany.Guests = 5
	_, err := f.create.Handle(ctx, tooMany)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	none := createCmd("l1", "g1", at(1), at(2))
	none.Guests = 0
	_, err = f.create.Handle(ctx, none)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
}

func TestCreateReservationOverlapAndAdjacency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.create.Handle(ctx, createCmd("l1", "g1", at(10), at(12)))
	require.NoError(t, err)

	_, err = f.create.Handle(ctx, createCmd("l1", "g2", at(11), at(13)))
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, "Dates not available", apperr.MessageOf(err))

	_, err = f.create.Handle(ctx, createCmd("l1", "g2", at(12), at(14)))
	assert.NoError(t, err, "checkout day is bookable")
}

type busyLocker struct{}

func (busyLocker) Acquire(context.Context, string, policies.LockOptions) (policies.LockHandle, bool) {
	return policies.LockHandle{}, false
}
func (busyLocker) Release(context.Context, policies.LockHandle) bool { return false }

func TestCreateReservationLockContention(t *testing.T) {
	f := newFixture(t)
	f.create.Locker = busyLocker{}
	_, err := f.create.Handle(context.Background(), createCmd("l1", "g1", at(1), at(2)))
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, "Concurrent booking in progress. Please retry.", apperr.MessageOf(err))
}

func TestCreateReservationReleasesLockOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.create.Handle(ctx, createCmd("l1", "g1", at(10), at(12)))
	require.NoError(t, err)
	_, err = f.create.Handle(ctx, createCmd("l1", "g2", at(10), at(12)))
	require.Error(t, err)

	// WaitTimeout is zero: a leaked lock would surface as lock contention here.
	_, err = f.create.Handle(ctx, createCmd("l1", "g2", at(20), at(22)))
	assert.NoError(t, err)
}

func TestConcurrentCreateYieldsSingleWinner(t *testing.T) {
	f := newFixture(t)
	f.create.LockOptions = policies.LockOptions{TTL: 3 * time.Second, WaitTimeout: 2 * time.Second, RetryInterval: time.Millisecond}
	const n = 16
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := f.create.Handle(context.Background(), createCmd("l1", "guest", at(10), at(12)))
			switch {
			case err == nil:
				successes.Add(1)
			case apperr.KindOf(err) == apperr.KindConflict:
				conflicts.Add(1)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(n-1), conflicts.Load())

	items, total, err := f.bookings.ListByGuest(context.Background(), "guest", 100, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, items, 1)
}

func TestCreateReservationInvalidatesBookingBucket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cache.Set(ctx, "booking:/api/v1/listings/l1/availability", cache.Entry{Status: 200}, 0))
	require.NoError(t, f.cache.Set(ctx, "listing:/api/v1/listings/l1", cache.Entry{Status: 200}, 0))

	_, err := f.create.Handle(ctx, createCmd("l1", "g1", at(10), at(12)))
	require.NoError(t, err)

	_, ok := f.cache.Get(ctx, "booking:/api/v1/listings/l1/availability")
	assert.False(t, ok)
	_, ok = f.cache.Get(ctx, "listing:/api/v1/listings/l1")
	assert.True(t, ok)
}

func TestCancelReservationRefundsAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.create.Handle(ctx, createCmd("l1", "g1", at(10), at(12)))
	require.NoError(t, err)

	_, err = f.cancel.Handle(ctx, CancelReservationCommand{BookingID: res.ID, GuestID: "intruder"})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = f.cancel.Handle(ctx, CancelReservationCommand{BookingID: "missing", GuestID: "g1"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "Booking not found", apperr.MessageOf(err))

	first, err := f.cancel.Handle(ctx, CancelReservationCommand{BookingID: res.ID, GuestID: "g1", Reason: " plans "})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", first.Status)
	require.NotNil(t, first.RefundAmount)
	assert.Equal(t, int64(200), *first.RefundAmount)
	assert.Equal(t, "plans", first.CancelReason)
	assert.Equal(t, "g1", first.CancelledBy)

	f.now = f.now.Add(48 * time.Hour)
	second, err := f.cancel.Handle(ctx, CancelReservationCommand{BookingID: res.ID, GuestID: "g1"})
	require.NoError(t, err)
	assert.Equal(t, *first.RefundAmount, *second.RefundAmount)
	assert.Equal(t, first.CancelledAt, second.CancelledAt)

	names := []string{}
	for _, rec := range f.outbox.Records() {
		names = append(names, rec.Name)
	}
	assert.Equal(t, []string{"booking.confirmed", "booking.cancelled"}, names)

	_, err = f.create.Handle(ctx, createCmd("l1", "g2", at(10), at(12)))
	assert.NoError(t, err, "cancelled dates are released")
}

// racingRepo lets another cancel land between the read and the CAS write.
type racingRepo struct {
	*memory.BookingRepository
	once sync.Once
	race func()
}

func (r *racingRepo) CancelIfConfirmed(ctx context.Context, b *domainbooking.Booking) (bool, error) {
	r.once.Do(r.race)
	return r.BookingRepository.CancelIfConfirmed(ctx, b)
}

func TestCancelReservationLosingCASReturnsStoredState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.create.Handle(ctx, createCmd("l1", "g1", at(10), at(12)))
	require.NoError(t, err)

	repo := &racingRepo{BookingRepository: f.bookings}
	repo.race = func() {
		winner, err := f.bookings.ByID(ctx, domainbooking.BookingID(res.ID))
		require.NoError(t, err)
		_, err = winner.Cancel("g1", "winner", now0, domainbooking.DefaultRefundPolicy)
		require.NoError(t, err)
		applied, err := f.bookings.CancelIfConfirmed(ctx, winner)
		require.NoError(t, err)
		require.True(t, applied)
	}
	f.cancel.Bookings = repo
	f.now = at(8) // a cancel decided now would refund nothing

	got, err := f.cancel.Handle(ctx, CancelReservationCommand{BookingID: res.ID, GuestID: "g1", Reason: "loser"})
	require.NoError(t, err)
	assert.Equal(t, "winner", got.CancelReason)
	assert.Equal(t, int64(200), *got.RefundAmount)
}

func TestEndToEndScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.create.Handle(ctx, createCmd("l1", "A", at(10), at(12)))
	require.NoError(t, err)
	assert.Equal(t, int64(200), a.TotalPrice)

	_, err = f.create.Handle(ctx, createCmd("l1", "B", at(11), at(13)))
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	cancelled, err := f.cancel.Handle(ctx, CancelReservationCommand{BookingID: a.ID, GuestID: "A"})
	require.NoError(t, err)
	assert.Equal(t, int64(200), *cancelled.RefundAmount)

	_, err = f.create.Handle(ctx, createCmd("l1", "B", at(11), at(13)))
	require.NoError(t, err)

	c, err := f.create.Handle(ctx, createCmd("l1", "C", at(20), at(23)))
	require.NoError(t, err)
	assert.Equal(t, int64(300), c.TotalPrice)

	f.now = at(16) // four days before check-in
	partial, err := f.cancel.Handle(ctx, CancelReservationCommand{BookingID: c.ID, GuestID: "C"})
	require.NoError(t, err)
	assert.Equal(t, int64(150), *partial.RefundAmount)
}
