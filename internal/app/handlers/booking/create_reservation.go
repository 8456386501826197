package booking

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
	"reservations/internal/app/middleware"
	"reservations/internal/app/outbox"
	"reservations/internal/app/policies"
	domainbooking "reservations/internal/domain/booking"
	domainlistings "reservations/internal/domain/listings"
	domainrange "reservations/internal/domain/shared/daterange"
)

const createReservationKey = "booking.create"

const (
	msgListingNotFound   = "Listing not found"
	msgOwnListing        = "Hosts cannot book their own listings"
	msgInvalidRange      = "Invalid date range"
	msgInvalidGuests     = "Guests count must be at least 1"
	msgTooManyGuests     = "Too many guests for this listing"
	msgLockContention    = "Concurrent booking in progress. Please retry."
	msgDatesNotAvailable = "Dates not available"
)

type CreateReservationCommand struct {
	ListingID       string
	GuestID         string
	CheckIn         time.Time
	CheckOut        time.Time
	Guests          int
	IdempotencyKeyV string
}

func (c CreateReservationCommand) Key() string { return createReservationKey }

// IdempotencyKey is scoped to the guest so two users cannot collide on a client key.
func (c CreateReservationCommand) IdempotencyKey() string {
	if c.IdempotencyKeyV == "" {
		return ""
	}
	return createReservationKey + ":" + c.GuestID + ":" + c.IdempotencyKeyV
}

func (c CreateReservationCommand) ResultPrototype() any { return &dto.Reservation{} }

func (c CreateReservationCommand) Validate() error {
	if strings.TrimSpace(c.ListingID) == "" {
		return errors.New("listingId is required")
	}
	if strings.TrimSpace(c.GuestID) == "" {
		return apperr.Unauthorized("Authentication required")
	}
	return nil
}

// CreateReservationHandler books a listing for a guest. The overlap check and
// the insert run under the listing's availability lock so that concurrent
// requests for intersecting dates cannot both commit.
type CreateReservationHandler struct {
	Bookings    domainbooking.Repository
	Listings    domainlistings.ListingRepository
	Locker      policies.AvailabilityLocker
	LockOptions policies.LockOptions
	Cache       policies.CacheInvalidator
	Outbox      outbox.Outbox
	Encoder     outbox.EventEncoder
	Logger      *slog.Logger
	Now         func() time.Time
	NewID       func() string
}

func (h *CreateReservationHandler) Handle(ctx context.Context, cmd CreateReservationCommand) (*dto.Reservation, error) {
	listing, err := h.Listings.ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		if errors.Is(err, domainlistings.ErrNotFound) {
			return nil, apperr.NotFound(msgListingNotFound)
		}
		return nil, apperr.Internal(err)
	}
	if !listing.IsActive() {
		return nil, apperr.NotFound(msgListingNotFound)
	}
	if listing.OwnedBy(cmd.GuestID) {
		return nil, apperr.Forbidden(msgOwnListing)
	}
	dr, err := domainrange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindBadRequest, msgInvalidRange, err)
	}
	if cmd.Guests < 1 {
		return nil, apperr.BadRequest(msgInvalidGuests)
	}
	if cmd.Guests > listing.MaxGuests {
		return nil, apperr.BadRequest(msgTooManyGuests)
	}

	handle, ok := h.Locker.Acquire(ctx, policies.ListingLockKey(string(listing.ID)), h.lockOptions())
	if !ok {
		return nil, apperr.Conflict(msgLockContention)
	}
	// Release must run even if the request context is already cancelled.
	defer h.Locker.Release(context.WithoutCancel(ctx), handle)

	overlap, err := h.Bookings.HasOverlap(ctx, listing.ID, dr)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if overlap {
		return nil, apperr.Conflict(msgDatesNotAvailable)
	}

	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:            domainbooking.BookingID(support.NewID(h.NewID)),
		ListingID:     listing.ID,
		GuestID:       cmd.GuestID,
		Range:         dr,
		Guests:        cmd.Guests,
		PricePerNight: listing.PricePerNight,
		CreatedAt:     support.Now(h.Now),
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindBadRequest, err.Error(), err)
	}
	if err := h.Bookings.Create(ctx, b); err != nil {
		return nil, apperr.Internal(err)
	}

	h.invalidator().Invalidate(ctx, policies.BucketBookings)
	outbox.Relay(ctx, h.Outbox, h.Encoder, h.Logger, b)

	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "booking confirmed", "booking_id", b.ID, "listing_id", b.ListingID, "nights", dr.Nights(), "total", b.Total.Amount)
	}
	res := dto.MapReservation(b)
	return &res, nil
}

func (h *CreateReservationHandler) lockOptions() policies.LockOptions {
	if h.LockOptions.TTL <= 0 {
		return policies.DefaultLockOptions
	}
	return h.LockOptions
}

func (h *CreateReservationHandler) invalidator() policies.CacheInvalidator {
	if h.Cache == nil {
		return policies.NopInvalidator{}
	}
	return h.Cache
}

var _ commands.Handler[CreateReservationCommand, *dto.Reservation] = (*CreateReservationHandler)(nil)
var _ middleware.IdempotentCommand = (*CreateReservationCommand)(nil)
