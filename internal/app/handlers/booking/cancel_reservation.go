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
	"reservations/internal/app/outbox"
	"reservations/internal/app/policies"
	domainbooking "reservations/internal/domain/booking"
)

const cancelReservationKey = "booking.cancel"

const (
	msgBookingNotFound = "Booking not found"
	msgForbidden       = "Forbidden"
	msgNotCancellable  = "Booking cannot be cancelled"
)

type CancelReservationCommand struct {
	BookingID string
	GuestID   string
	Reason    string
}

func (c CancelReservationCommand) Key() string { return cancelReservationKey }

func (c CancelReservationCommand) Validate() error {
	if strings.TrimSpace(c.BookingID) == "" {
		return errors.New("booking id is required")
	}
	return nil
}

// CancelReservationHandler cancels a guest's own booking. Repeating the call
// returns the stored cancellation unchanged.
type CancelReservationHandler struct {
	Bookings domainbooking.Repository
	Policy   *domainbooking.RefundPolicy
	Cache    policies.CacheInvalidator
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Logger   *slog.Logger
	Now      func() time.Time
}

func (h *CancelReservationHandler) Handle(ctx context.Context, cmd CancelReservationCommand) (*dto.Reservation, error) {
	b, err := h.load(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	if b.GuestID != cmd.GuestID {
		return nil, apperr.Forbidden(msgForbidden)
	}

	changed, err := b.Cancel(cmd.GuestID, cmd.Reason, support.Now(h.Now), h.policy())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindBadRequest, msgNotCancellable, err)
	}
	if !changed {
		res := dto.MapReservation(b)
		return &res, nil
	}

	applied, err := h.Bookings.CancelIfConfirmed(ctx, b)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !applied {
		// A concurrent cancel won; report what it stored.
		current, err := h.load(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		res := dto.MapReservation(current)
		return &res, nil
	}

	if h.Cache != nil {
		h.Cache.Invalidate(ctx, policies.BucketBookings)
	}
	outbox.Relay(ctx, h.Outbox, h.Encoder, h.Logger, b)

	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "booking cancelled", "booking_id", b.ID, "refund", b.Cancellation.Refund.Amount)
	}
	res := dto.MapReservation(b)
	return &res, nil
}

func (h *CancelReservationHandler) load(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	b, err := h.Bookings.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, domainbooking.ErrBookingNotFound) {
			return nil, apperr.NotFound(msgBookingNotFound)
		}
		return nil, apperr.Internal(err)
	}
	return b, nil
}

func (h *CancelReservationHandler) policy() domainbooking.RefundPolicy {
	if h.Policy == nil {
		return domainbooking.DefaultRefundPolicy
	}
	return *h.Policy
}

var _ commands.Handler[CancelReservationCommand, *dto.Reservation] = (*CancelReservationHandler)(nil)
