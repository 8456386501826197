package listings

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
	domainlistings "reservations/internal/domain/listings"
	"reservations/internal/domain/shared/money"
)

const (
	createHostListingKey    = "host.listings.create"
	updateHostListingKey    = "host.listings.update"
	setHostListingActiveKey = "host.listings.set_active"
)

var validationMessages = map[error]string{
	domainlistings.ErrTitleRequired: "Title is required",
	domainlistings.ErrCityRequired:  "City is required",
	domainlistings.ErrGuestsLimit:   "Max guests must be at least 1",
	domainlistings.ErrNightlyRate:   "Price per night must be positive",
	domainlistings.ErrHostRequired:  "Host is required",
	domainlistings.ErrIDRequired:    "Listing id is required",
}

func validationError(err error) error {
	for sentinel, msg := range validationMessages {
		if errors.Is(err, sentinel) {
			return apperr.Wrap(apperr.KindBadRequest, msg, err)
		}
	}
	if errors.Is(err, money.ErrInvalidCurrency) || errors.Is(err, money.ErrNegativeAmount) {
		return apperr.Wrap(apperr.KindBadRequest, "Invalid price", err)
	}
	return apperr.Internal(err)
}

// HostDeps are shared by every host listing command.
type HostDeps struct {
	Listings domainlistings.ListingRepository
	Cache    policies.CacheInvalidator
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Logger   *slog.Logger
	Now      func() time.Time
	NewID    func() string
}

func (d HostDeps) invalidate(ctx context.Context, buckets ...policies.CacheBucket) {
	if d.Cache == nil {
		return
	}
	for _, b := range buckets {
		d.Cache.Invalidate(ctx, b)
	}
}

// ownedListing loads a listing the host may modify.
func (d HostDeps) ownedListing(ctx context.Context, hostID, listingID string) (*domainlistings.Listing, error) {
	l, err := d.Listings.ByID(ctx, domainlistings.ListingID(listingID))
	if err != nil {
		if errors.Is(err, domainlistings.ErrNotFound) {
			return nil, apperr.NotFound(msgListingNotFound)
		}
		return nil, apperr.Internal(err)
	}
	if !l.OwnedBy(hostID) {
		return nil, apperr.Forbidden("Forbidden")
	}
	return l, nil
}

func (d HostDeps) commit(ctx context.Context, l *domainlistings.Listing, buckets ...policies.CacheBucket) (*dto.Listing, error) {
	if err := d.Listings.Save(ctx, l); err != nil {
		return nil, apperr.Internal(err)
	}
	d.invalidate(ctx, buckets...)
	outbox.Relay(ctx, d.Outbox, d.Encoder, d.Logger, l)
	out := dto.MapListing(l)
	return &out, nil
}

type CreateHostListingCommand struct {
	HostID        string
	Title         string
	Description   string
	City          string
	Country       string
	PricePerNight int64
	Currency      string
	MaxGuests     int
}

func (c CreateHostListingCommand) Key() string { return createHostListingKey }

func (c CreateHostListingCommand) Validate() error {
	if strings.TrimSpace(c.HostID) == "" {
		return apperr.Unauthorized("Authentication required")
	}
	return nil
}

type CreateHostListingHandler struct {
	HostDeps
}

func (h *CreateHostListingHandler) Handle(ctx context.Context, cmd CreateHostListingCommand) (*dto.Listing, error) {
	currency := cmd.Currency
	if currency == "" {
		currency = money.DefaultCurrency
	}
	price, err := money.New(cmd.PricePerNight, currency)
	if err != nil {
		return nil, validationError(err)
	}
	listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:            domainlistings.ListingID(support.NewID(h.NewID)),
		Host:          domainlistings.HostID(cmd.HostID),
		Title:         cmd.Title,
		Description:   cmd.Description,
		City:          cmd.City,
		Country:       cmd.Country,
		PricePerNight: price,
		MaxGuests:     cmd.MaxGuests,
		Now:           support.Now(h.Now),
	})
	if err != nil {
		return nil, validationError(err)
	}
	out, err := h.commit(ctx, listing, policies.BucketListings)
	if err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "host listing created", "listing_id", listing.ID, "host_id", cmd.HostID)
	}
	return out, nil
}

// UpdateHostListingCommand carries a partial update; nil fields are kept.
type UpdateHostListingCommand struct {
	HostID        string
	ListingID     string
	Title         *string
	Description   *string
	City          *string
	Country       *string
	PricePerNight *int64
	MaxGuests     *int
}

func (c UpdateHostListingCommand) Key() string { return updateHostListingKey }

func (c UpdateHostListingCommand) Validate() error {
	if strings.TrimSpace(c.HostID) == "" {
		return apperr.Unauthorized("Authentication required")
	}
	if strings.TrimSpace(c.ListingID) == "" {
		return errors.New("listing id is required")
	}
	return nil
}

type UpdateHostListingHandler struct {
	HostDeps
}

// Handle applies the update. Existing bookings keep their price snapshot.
func (h *UpdateHostListingHandler) Handle(ctx context.Context, cmd UpdateHostListingCommand) (*dto.Listing, error) {
	listing, err := h.ownedListing(ctx, cmd.HostID, cmd.ListingID)
	if err != nil {
		return nil, err
	}
	err = listing.Update(domainlistings.UpdateListingParams{
		Title:         cmd.Title,
		Description:   cmd.Description,
		City:          cmd.City,
		Country:       cmd.Country,
		PricePerNight: cmd.PricePerNight,
		MaxGuests:     cmd.MaxGuests,
		Now:           support.Now(h.Now),
	})
	if err != nil {
		return nil, validationError(err)
	}
	return h.commit(ctx, listing, policies.BucketListings)
}

type SetHostListingActiveCommand struct {
	HostID    string
	ListingID string
	Active    bool
	Reason    string
}

func (c SetHostListingActiveCommand) Key() string { return setHostListingActiveKey }

func (c SetHostListingActiveCommand) Validate() error {
	if strings.TrimSpace(c.HostID) == "" {
		return apperr.Unauthorized("Authentication required")
	}
	if strings.TrimSpace(c.ListingID) == "" {
		return errors.New("listing id is required")
	}
	return nil
}

type SetHostListingActiveHandler struct {
	HostDeps
}

// Handle toggles bookability. Deactivation also drops cached availability so
// the listing stops looking bookable.
func (h *SetHostListingActiveHandler) Handle(ctx context.Context, cmd SetHostListingActiveCommand) (*dto.Listing, error) {
	listing, err := h.ownedListing(ctx, cmd.HostID, cmd.ListingID)
	if err != nil {
		return nil, err
	}
	now := support.Now(h.Now)
	if cmd.Active {
		listing.Activate(now)
		return h.commit(ctx, listing, policies.BucketListings)
	}
	listing.Suspend(now, strings.TrimSpace(cmd.Reason))
	return h.commit(ctx, listing, policies.BucketListings, policies.BucketBookings)
}

var (
	_ commands.Handler[CreateHostListingCommand, *dto.Listing]    = (*CreateHostListingHandler)(nil)
	_ commands.Handler[UpdateHostListingCommand, *dto.Listing]    = (*UpdateHostListingHandler)(nil)
	_ commands.Handler[SetHostListingActiveCommand, *dto.Listing] = (*SetHostListingActiveHandler)(nil)
)
