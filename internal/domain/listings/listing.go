package listings

import (
	"context"
	"errors"
	"strings"
	"time"

	"reservations/internal/domain/shared/events"
	"reservations/internal/domain/shared/money"
)

var (
	ErrNotFound       = errors.New("listings: not found")
	ErrGuestsLimit    = errors.New("listings: max guests must be at least 1")
	ErrTitleRequired  = errors.New("listings: title is required")
	ErrHostRequired   = errors.New("listings: host is required")
	ErrIDRequired     = errors.New("listings: id is required")
	ErrCityRequired   = errors.New("listings: city is required")
	ErrNightlyRate    = errors.New("listings: price per night must be positive")
	ErrRatingOutRange = errors.New("listings: average rating must be between 0 and 5")
)

type ListingID string
type HostID string

type ListingState string

const (
	ListingActive         ListingState = "ACTIVE"
	ListingStateSuspended ListingState = "SUSPENDED"
)

// Listing is the snapshot of a bookable unit as seen by reservations.
type Listing struct {
	ID            ListingID
	Host          HostID
	Title         string
	Description   string
	City          string
	Country       string
	PricePerNight money.Money
	MaxGuests     int
	State         ListingState
	ReviewCount   int
	AverageRating float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
	events.EventRecorder
}

type ListingRepository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
	Search(ctx context.Context, params SearchParams) (SearchResult, error)
	// UpdateReviewStats overwrites only the denormalized rating fields.
	UpdateReviewStats(ctx context.Context, id ListingID, count int, average float64) error
}

type CreateListingParams struct {
	ID            ListingID
	Host          HostID
	Title         string
	Description   string
	City          string
	Country       string
	PricePerNight money.Money
	MaxGuests     int
	Now           time.Time
}

func NewListing(params CreateListingParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.Host)) == "" {
		return nil, ErrHostRequired
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if strings.TrimSpace(params.City) == "" {
		return nil, ErrCityRequired
	}
	if params.MaxGuests < 1 {
		return nil, ErrGuestsLimit
	}
	if params.PricePerNight.Amount <= 0 {
		return nil, ErrNightlyRate
	}
	now := params.Now.UTC()
	listing := &Listing{
		ID:            params.ID,
		Host:          params.Host,
		Title:         strings.TrimSpace(params.Title),
		Description:   strings.TrimSpace(params.Description),
		City:          strings.TrimSpace(params.City),
		Country:       strings.TrimSpace(params.Country),
		PricePerNight: params.PricePerNight,
		MaxGuests:     params.MaxGuests,
		State:         ListingActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	listing.Record(ListingCreated{
		ListingID:     listing.ID,
		Host:          listing.Host,
		City:          listing.City,
		Country:       listing.Country,
		PricePerNight: listing.PricePerNight,
		MaxGuests:     listing.MaxGuests,
		At:            now,
	})
	return listing, nil
}

func (l *Listing) IsActive() bool {
	return l.State == ListingActive
}

func (l *Listing) OwnedBy(userID string) bool {
	return string(l.Host) == userID
}

// UpdateListingParams carries a partial update; nil fields are left untouched.
type UpdateListingParams struct {
	Title         *string
	Description   *string
	City          *string
	Country       *string
	PricePerNight *int64
	MaxGuests     *int
	Now           time.Time
}

func (l *Listing) Update(params UpdateListingParams) error {
	next := *l
	if params.Title != nil {
		if strings.TrimSpace(*params.Title) == "" {
			return ErrTitleRequired
		}
		next.Title = strings.TrimSpace(*params.Title)
	}
	if params.Description != nil {
		next.Description = strings.TrimSpace(*params.Description)
	}
	if params.City != nil {
		if strings.TrimSpace(*params.City) == "" {
			return ErrCityRequired
		}
		next.City = strings.TrimSpace(*params.City)
	}
	if params.Country != nil {
		next.Country = strings.TrimSpace(*params.Country)
	}
	if params.PricePerNight != nil {
		if *params.PricePerNight <= 0 {
			return ErrNightlyRate
		}
		next.PricePerNight = money.Money{Amount: *params.PricePerNight, Currency: l.PricePerNight.Currency}
	}
	if params.MaxGuests != nil {
		if *params.MaxGuests < 1 {
			return ErrGuestsLimit
		}
		next.MaxGuests = *params.MaxGuests
	}
	now := params.Now.UTC()
	changed := changedFields(l, &next)
	l.Title, l.Description, l.City, l.Country = next.Title, next.Description, next.City, next.Country
	l.PricePerNight, l.MaxGuests = next.PricePerNight, next.MaxGuests
	l.UpdatedAt = now
	l.Record(ListingUpdated{
		ListingID:     l.ID,
		PricePerNight: l.PricePerNight,
		MaxGuests:     l.MaxGuests,
		Changed:       changed,
		At:            now,
	})
	return nil
}

func changedFields(before, after *Listing) []string {
	var out []string
	if before.Title != after.Title {
		out = append(out, "title")
	}
	if before.Description != after.Description {
		out = append(out, "description")
	}
	if before.City != after.City {
		out = append(out, "city")
	}
	if before.Country != after.Country {
		out = append(out, "country")
	}
	if before.PricePerNight != after.PricePerNight {
		out = append(out, "pricePerNight")
	}
	if before.MaxGuests != after.MaxGuests {
		out = append(out, "maxGuests")
	}
	return out
}

func (l *Listing) Activate(now time.Time) {
	if l.State == ListingActive {
		return
	}
	l.State = ListingActive
	l.UpdatedAt = now.UTC()
	l.Record(ListingActivated{ListingID: l.ID, Host: l.Host, At: l.UpdatedAt})
}

func (l *Listing) Suspend(now time.Time, reason string) {
	if l.State == ListingStateSuspended {
		return
	}
	l.State = ListingStateSuspended
	l.UpdatedAt = now.UTC()
	l.Record(ListingSuspended{ListingID: l.ID, Host: l.Host, Reason: reason, At: l.UpdatedAt})
}

// Clone returns a copy without pending events.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	out := *l
	out.EventRecorder = events.EventRecorder{}
	return &out
}
