package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"reservations/internal/domain/listings"
	"reservations/internal/domain/shared/daterange"
	"reservations/internal/domain/shared/events"
	"reservations/internal/domain/shared/money"
)

var (
	ErrInvalidGuests   = errors.New("booking: guests count must be positive")
	ErrInvalidState    = errors.New("booking: invalid state transition")
	ErrBookingNotFound = errors.New("booking: not found")
	ErrGuestRequired   = errors.New("booking: guest id required")
	ErrListingRequired = errors.New("booking: listing id required")
)

type BookingID string

type Status string

const (
	// StatusPending is part of the stored vocabulary but no operation produces it.
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Cancellation is set exactly once, when a confirmed booking is cancelled.
type Cancellation struct {
	At     time.Time
	By     string
	Reason string
	Refund money.Money
}

type Booking struct {
	ID           BookingID
	ListingID    listings.ListingID
	GuestID      string
	Range        daterange.DateRange
	Guests       int
	Total        money.Money
	Status       Status
	Cancellation *Cancellation
	CreatedAt    time.Time
	UpdatedAt    time.Time
	events.EventRecorder
}

// Repository persists bookings. HasOverlap and Create are only safe against
// double booking while the caller holds the listing's availability lock.
type Repository interface {
	Create(ctx context.Context, booking *Booking) error
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	// HasOverlap reports whether a non-cancelled booking of the listing intersects dr.
	HasOverlap(ctx context.Context, listingID listings.ListingID, dr daterange.DateRange) (bool, error)
	// CancelIfConfirmed writes the cancellation only while the stored status is
	// still confirmed and reports whether the write was applied.
	CancelIfConfirmed(ctx context.Context, booking *Booking) (bool, error)
	ListByGuest(ctx context.Context, guestID string, limit, offset int) ([]*Booking, int, error)
	ListActiveByListing(ctx context.Context, listingID listings.ListingID, window daterange.DateRange) ([]*Booking, error)
}

type CreateParams struct {
	ID            BookingID
	ListingID     listings.ListingID
	GuestID       string
	Range         daterange.DateRange
	Guests        int
	PricePerNight money.Money
	CreatedAt     time.Time
}

// NewBooking builds a confirmed booking priced at nights x price per night.
func NewBooking(params CreateParams) (*Booking, error) {
	if params.Guests <= 0 {
		return nil, ErrInvalidGuests
	}
	if strings.TrimSpace(params.GuestID) == "" {
		return nil, ErrGuestRequired
	}
	if strings.TrimSpace(string(params.ListingID)) == "" {
		return nil, ErrListingRequired
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:        params.ID,
		ListingID: params.ListingID,
		GuestID:   params.GuestID,
		Range:     params.Range,
		Guests:    params.Guests,
		Total:     params.PricePerNight.Multiply(params.Range.Nights()),
		Status:    StatusConfirmed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.Record(BookingConfirmed{BookingID: b.ID, ListingID: b.ListingID, GuestID: b.GuestID, Range: b.Range, Total: b.Total, At: now})
	return b, nil
}

// Cancel moves a confirmed booking to cancelled and stamps the refund.
// It returns false without error when the booking is already cancelled.
func (b *Booking) Cancel(by, reason string, now time.Time, policy RefundPolicy) (bool, error) {
	switch b.Status {
	case StatusCancelled:
		return false, nil
	case StatusConfirmed:
	default:
		return false, ErrInvalidState
	}
	now = now.UTC()
	refund := policy.Refund(b.Total, b.Range.CheckIn, now)
	b.Status = StatusCancelled
	b.Cancellation = &Cancellation{At: now, By: by, Reason: strings.TrimSpace(reason), Refund: refund}
	b.UpdatedAt = now
	b.Record(BookingCancelled{BookingID: b.ID, ListingID: b.ListingID, Refund: refund, Reason: b.Cancellation.Reason, At: now})
	return true, nil
}

// Ended reports whether the stay is over at now.
func (b *Booking) Ended(now time.Time) bool {
	return b.Range.CheckOut.Before(now)
}

// Clone returns a deep copy without pending events.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	out := &Booking{
		ID:        b.ID,
		ListingID: b.ListingID,
		GuestID:   b.GuestID,
		Range:     b.Range,
		Guests:    b.Guests,
		Total:     b.Total,
		Status:    b.Status,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if b.Cancellation != nil {
		c := *b.Cancellation
		out.Cancellation = &c
	}
	return out
}
