package reviews

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reservations/internal/app/apperr"
	"reservations/internal/app/policies"
	domainbooking "reservations/internal/domain/booking"
	domainlistings "reservations/internal/domain/listings"
	"reservations/internal/domain/shared/daterange"
	"reservations/internal/domain/shared/money"
	"reservations/internal/infra/storage/memory"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type recordingInvalidator struct{ buckets []policies.CacheBucket }

func (r *recordingInvalidator) Invalidate(_ context.Context, b policies.CacheBucket) {
	r.buckets = append(r.buckets, b)
}

type env struct {
	deps     Deps
	inv      *recordingInvalidator
	bookings *memory.BookingRepository
	listings *memory.ListingRepository
	outbox   *memory.Outbox
	now      time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	e := &env{
		inv:      &recordingInvalidator{},
		bookings: memory.NewBookingRepository(),
		listings: memory.NewListingRepository(),
		outbox:   memory.NewOutbox(),
		now:      base.AddDate(0, 0, 30),
	}
	e.deps = Deps{
		Bookings: e.bookings,
		Listings: e.listings,
		Reviews:  memory.NewReviewRepository(),
		Cache:    e.inv,
		Outbox:   e.outbox,
		Now:      func() time.Time { return e.now },
	}
	l, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID: "l1", Host: "h1", Title: "Villa", City: "Nice",
		PricePerNight: money.Must(90, money.DefaultCurrency), MaxGuests: 4, Now: base,
	})
	require.NoError(t, err)
	require.NoError(t, e.listings.Save(ctx, l))

	e.addBooking(t, "past1", "g1", 1, 3)
	e.addBooking(t, "past2", "g2", 5, 7)
	e.addBooking(t, "future", "g1", 60, 62)
	return e
}

func (e *env) addBooking(t *testing.T, id, guest string, in, out int) *domainbooking.Booking {
	t.Helper()
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID: domainbooking.BookingID(id), ListingID: "l1", GuestID: guest,
		Range:  daterange.DateRange{CheckIn: base.AddDate(0, 0, in), CheckOut: base.AddDate(0, 0, out)},
		Guests: 1, PricePerNight: money.Must(90, money.DefaultCurrency), CreatedAt: base,
	})
	require.NoError(t, err)
	require.NoError(t, e.bookings.Create(context.Background(), b))
	return b
}

func TestSubmitReviewUpdatesStats(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	h := &SubmitReviewHandler{Deps: e.deps}

	r, err := h.Handle(ctx, SubmitReviewCommand{BookingID: "past1", AuthorID: "g1", Rating: 5, Comment: " lovely "})
	require.NoError(t, err)
	assert.Equal(t, "lovely", r.Comment)
	assert.Equal(t, []policies.CacheBucket{policies.BucketReviews, policies.BucketListings}, e.inv.buckets)

	_, err = h.Handle(ctx, SubmitReviewCommand{BookingID: "past2", AuthorID: "g2", Rating: 2})
	require.NoError(t, err)

	l, err := e.listings.ByID(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, 2, l.ReviewCount)
	assert.InDelta(t, 3.5, l.AverageRating, 0.0001)

	_, err = h.Handle(ctx, SubmitReviewCommand{BookingID: "past1", AuthorID: "g1", Rating: 4})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, "Review already exists for this booking", apperr.MessageOf(err))

	names := []string{}
	for _, rec := range e.outbox.Records() {
		names = append(names, rec.Name)
	}
	assert.Equal(t, []string{"review.submitted", "review.submitted"}, names)
}

func TestSubmitReviewRejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	cancelled := e.addBooking(t, "cancelled", "g1", 2, 4)
	_, err := cancelled.Cancel("g1", "", base, domainbooking.DefaultRefundPolicy)
	require.NoError(t, err)
	_, err = e.bookings.CancelIfConfirmed(ctx, cancelled)
	require.NoError(t, err)

	h := &SubmitReviewHandler{Deps: e.deps}
	cases := []struct {
		name string
		cmd  SubmitReviewCommand
		kind apperr.Kind
		msg  string
	}{
		{"missing booking", SubmitReviewCommand{BookingID: "nope", AuthorID: "g1", Rating: 5}, apperr.KindNotFound, "Booking not found"},
		{"not confirmed", SubmitReviewCommand{BookingID: "cancelled", AuthorID: "g1", Rating: 5}, apperr.KindForbidden, "Booking not confirmed"},
		{"not ended", SubmitReviewCommand{BookingID: "future", AuthorID: "g1", Rating: 5}, apperr.KindForbidden, "Booking has not ended"},
		{"other guest", SubmitReviewCommand{BookingID: "past1", AuthorID: "g2", Rating: 5}, apperr.KindForbidden, "Forbidden"},
		{"rating", SubmitReviewCommand{BookingID: "past1", AuthorID: "g1", Rating: 6}, apperr.KindBadRequest, "Rating must be between 1 and 5"},
		{"comment", SubmitReviewCommand{BookingID: "past1", AuthorID: "g1", Rating: 3, Comment: strings.Repeat("x", 1001)}, apperr.KindBadRequest, "Comment is too long"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.Handle(ctx, tc.cmd)
			require.Error(t, err)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
			assert.Equal(t, tc.msg, apperr.MessageOf(err))
		})
	}
	assert.Empty(t, e.inv.buckets)
}

func TestDeleteReviewRecomputesStats(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	submit := &SubmitReviewHandler{Deps: e.deps}
	_, err := submit.Handle(ctx, SubmitReviewCommand{BookingID: "past1", AuthorID: "g1", Rating: 4})
	require.NoError(t, err)

	del := &DeleteReviewHandler{Deps: e.deps}
	_, err = del.Handle(ctx, DeleteReviewCommand{BookingID: "past1", AuthorID: "g2"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	out, err := del.Handle(ctx, DeleteReviewCommand{BookingID: "past1", AuthorID: "g1"})
	require.NoError(t, err)
	assert.True(t, out.Deleted)

	l, err := e.listings.ByID(ctx, "l1")
	require.NoError(t, err)
	assert.Zero(t, l.ReviewCount)
	assert.Zero(t, l.AverageRating)

	_, err = del.Handle(ctx, DeleteReviewCommand{BookingID: "past1", AuthorID: "g1"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	records := e.outbox.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "review.deleted", records[1].Name)
}

func TestListListingReviews(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	submit := &SubmitReviewHandler{Deps: e.deps}
	_, err := submit.Handle(ctx, SubmitReviewCommand{BookingID: "past1", AuthorID: "g1", Rating: 4})
	require.NoError(t, err)
	e.now = e.now.Add(time.Minute)
	_, err = submit.Handle(ctx, SubmitReviewCommand{BookingID: "past2", AuthorID: "g2", Rating: 5})
	require.NoError(t, err)

	list := &ListListingReviewsHandler{Reviews: e.deps.Reviews}
	page, err := list.Handle(ctx, ListListingReviewsQuery{ListingID: "l1", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "past2", page.Items[0].BookingID)
}
