package listings

import (
	"time"

	"reservations/internal/domain/shared/money"
)

// ListingCreated carries the bookable terms a new listing starts with.
type ListingCreated struct {
	ListingID     ListingID
	Host          HostID
	City          string
	Country       string
	PricePerNight money.Money
	MaxGuests     int
	At            time.Time
}

func (e ListingCreated) EventName() string     { return "listing.created" }
func (e ListingCreated) AggregateID() string   { return string(e.ListingID) }
func (e ListingCreated) OccurredAt() time.Time { return e.At }

// ListingUpdated reports the terms after an edit. Changed names the fields
// that differ from before; price and guest limit changes affect new bookings only.
type ListingUpdated struct {
	ListingID     ListingID
	PricePerNight money.Money
	MaxGuests     int
	Changed       []string
	At            time.Time
}

func (e ListingUpdated) EventName() string     { return "listing.updated" }
func (e ListingUpdated) AggregateID() string   { return string(e.ListingID) }
func (e ListingUpdated) OccurredAt() time.Time { return e.At }

type ListingActivated struct {
	ListingID ListingID
	Host      HostID
	At        time.Time
}

func (e ListingActivated) EventName() string     { return "listing.activated" }
func (e ListingActivated) AggregateID() string   { return string(e.ListingID) }
func (e ListingActivated) OccurredAt() time.Time { return e.At }

// ListingSuspended closes a listing to new bookings; existing ones stay.
type ListingSuspended struct {
	ListingID ListingID
	Host      HostID
	Reason    string
	At        time.Time
}

func (e ListingSuspended) EventName() string     { return "listing.suspended" }
func (e ListingSuspended) AggregateID() string   { return string(e.ListingID) }
func (e ListingSuspended) OccurredAt() time.Time { return e.At }
