package dto

import (
	"time"

	domainbooking "reservations/internal/domain/booking"
)

// Reservation is the wire shape of a booking.
type Reservation struct {
	ID           string     `json:"id"`
	ListingID    string     `json:"listing"`
	GuestID      string     `json:"guest"`
	CheckIn      time.Time  `json:"checkIn"`
	CheckOut     time.Time  `json:"checkOut"`
	GuestsCount  int        `json:"guestsCount"`
	TotalPrice   int64      `json:"totalPrice"`
	Currency     string     `json:"currency"`
	Status       string     `json:"status"`
	CancelledAt  *time.Time `json:"cancelledAt,omitempty"`
	CancelledBy  string     `json:"cancelledBy,omitempty"`
	CancelReason string     `json:"cancelReason,omitempty"`
	RefundAmount *int64     `json:"refundAmount,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func MapReservation(b *domainbooking.Booking) Reservation {
	out := Reservation{
		ID:          string(b.ID),
		ListingID:   string(b.ListingID),
		GuestID:     b.GuestID,
		CheckIn:     b.Range.CheckIn,
		CheckOut:    b.Range.CheckOut,
		GuestsCount: b.Guests,
		TotalPrice:  b.Total.Amount,
		Currency:    b.Total.Currency,
		Status:      string(b.Status),
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
	if c := b.Cancellation; c != nil {
		at := c.At
		refund := c.Refund.Amount
		out.CancelledAt = &at
		out.CancelledBy = c.By
		out.CancelReason = c.Reason
		out.RefundAmount = &refund
	}
	return out
}

// GuestReservation is one row of a guest's own bookings.
type GuestReservation struct {
	Reservation
	Listing  *ListingSummary `json:"listingSummary,omitempty"`
	MyReview *Review         `json:"myReview"`
}

type GuestReservationPage struct {
	Items []GuestReservation `json:"items"`
	Total int                `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

// BookedSpan is an occupied half-open interval, without guest data.
type BookedSpan struct {
	CheckIn  time.Time `json:"checkIn"`
	CheckOut time.Time `json:"checkOut"`
}

type Availability struct {
	ListingID string       `json:"listing"`
	From      time.Time    `json:"from"`
	To        time.Time    `json:"to"`
	Booked    []BookedSpan `json:"booked"`
}
