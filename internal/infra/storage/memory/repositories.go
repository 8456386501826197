package memory

import (
	"context"
	"sort"
	"sync"

	domainbooking "reservations/internal/domain/booking"
	domainlistings "reservations/internal/domain/listings"
	domainreviews "reservations/internal/domain/reviews"
	"reservations/internal/domain/shared/daterange"
	"reservations/internal/domain/shared/events"
)

// ListingRepository is an in-memory implementation for tests and local runs.
type ListingRepository struct {
	mu    sync.RWMutex
	items map[domainlistings.ListingID]*domainlistings.Listing
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{
		items: make(map[domainlistings.ListingID]*domainlistings.Listing),
	}
}

// ByID returns a copy of the listing or domainlistings.ErrNotFound.
func (r *ListingRepository) ByID(_ context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	listing, ok := r.items[id]
	if !ok {
		return nil, domainlistings.ErrNotFound
	}
	return listing.Clone(), nil
}

func (r *ListingRepository) Save(_ context.Context, listing *domainlistings.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[listing.ID] = listing.Clone()
	return nil
}

func (r *ListingRepository) UpdateReviewStats(_ context.Context, id domainlistings.ListingID, count int, average float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	listing, ok := r.items[id]
	if !ok {
		return domainlistings.ErrNotFound
	}
	listing.ReviewCount = count
	listing.AverageRating = average
	return nil
}

// Search filters, sorts and pages listings.
func (r *ListingRepository) Search(ctx context.Context, params domainlistings.SearchParams) (domainlistings.SearchResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	opts := params.Normalized()
	matches := make([]*domainlistings.Listing, 0, len(r.items))
	for _, listing := range r.items {
		if err := ctx.Err(); err != nil {
			return domainlistings.SearchResult{}, err
		}
		if !opts.Matches(listing) {
			continue
		}
		matches = append(matches, listing)
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		switch opts.Sort {
		case domainlistings.SortByPriceAsc:
			if a.PricePerNight.Amount != b.PricePerNight.Amount {
				return a.PricePerNight.Amount < b.PricePerNight.Amount
			}
		case domainlistings.SortByPriceDesc:
			if a.PricePerNight.Amount != b.PricePerNight.Amount {
				return a.PricePerNight.Amount > b.PricePerNight.Amount
			}
		case domainlistings.SortByRating:
			if a.AverageRating != b.AverageRating {
				return a.AverageRating > b.AverageRating
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	total := len(matches)
	items := make([]*domainlistings.Listing, 0, opts.Limit)
	for _, listing := range page(matches, opts.Offset, opts.Limit) {
		items = append(items, listing.Clone())
	}
	return domainlistings.SearchResult{Items: items, Total: total}, nil
}

// BookingRepository keeps bookings in memory. Writes copy the aggregate so
// callers never share state with the store.
type BookingRepository struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]*domainbooking.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{
		items: make(map[domainbooking.BookingID]*domainbooking.Booking),
	}
}

func (r *BookingRepository) Create(_ context.Context, booking *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[booking.ID] = booking.Clone()
	return nil
}

func (r *BookingRepository) ByID(_ context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return b.Clone(), nil
}

func (r *BookingRepository) HasOverlap(ctx context.Context, listingID domainlistings.ListingID, dr daterange.DateRange) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.items {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if b.ListingID != listingID || b.Status == domainbooking.StatusCancelled {
			continue
		}
		if b.Range.Overlaps(dr) {
			return true, nil
		}
	}
	return false, nil
}

func (r *BookingRepository) CancelIfConfirmed(_ context.Context, booking *domainbooking.Booking) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[booking.ID]
	if !ok {
		return false, domainbooking.ErrBookingNotFound
	}
	if stored.Status != domainbooking.StatusConfirmed {
		return false, nil
	}
	r.items[booking.ID] = booking.Clone()
	return true, nil
}

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID string, limit, offset int) ([]*domainbooking.Booking, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matches []*domainbooking.Booking
	for _, b := range r.items {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		if b.GuestID == guestID {
			matches = append(matches, b)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].ID > matches[j].ID
	})
	out := make([]*domainbooking.Booking, 0, limit)
	for _, b := range page(matches, offset, limit) {
		out = append(out, b.Clone())
	}
	return out, len(matches), nil
}

func (r *BookingRepository) ListActiveByListing(ctx context.Context, listingID domainlistings.ListingID, window daterange.DateRange) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainbooking.Booking
	for _, b := range r.items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if b.ListingID != listingID || b.Status == domainbooking.StatusCancelled {
			continue
		}
		if b.Range.Overlaps(window) {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Range.CheckIn.Before(out[j].Range.CheckIn)
	})
	return out, nil
}

type reviewKey struct {
	booking domainbooking.BookingID
	author  string
}

// ReviewRepository enforces one review per (booking, author).
type ReviewRepository struct {
	mu    sync.RWMutex
	items map[reviewKey]*domainreviews.Review
}

func NewReviewRepository() *ReviewRepository {
	return &ReviewRepository{items: make(map[reviewKey]*domainreviews.Review)}
}

func cloneReview(r *domainreviews.Review) *domainreviews.Review {
	out := *r
	out.EventRecorder = events.EventRecorder{}
	return &out
}

func (r *ReviewRepository) Create(_ context.Context, review *domainreviews.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := reviewKey{booking: review.BookingID, author: review.AuthorID}
	if _, exists := r.items[key]; exists {
		return domainreviews.ErrAlreadyReviewed
	}
	r.items[key] = cloneReview(review)
	return nil
}

func (r *ReviewRepository) ByBooking(_ context.Context, bookingID domainbooking.BookingID, authorID string) (*domainreviews.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	review, ok := r.items[reviewKey{booking: bookingID, author: authorID}]
	if !ok {
		return nil, domainreviews.ErrNotFound
	}
	return cloneReview(review), nil
}

func (r *ReviewRepository) Delete(_ context.Context, bookingID domainbooking.BookingID, authorID string) (*domainreviews.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := reviewKey{booking: bookingID, author: authorID}
	review, ok := r.items[key]
	if !ok {
		return nil, domainreviews.ErrNotFound
	}
	delete(r.items, key)
	return review, nil
}

func (r *ReviewRepository) ListByListing(_ context.Context, listingID domainlistings.ListingID, limit, offset int) ([]*domainreviews.Review, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matches []*domainreviews.Review
	for _, review := range r.items {
		if review.ListingID == listingID {
			matches = append(matches, review)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].ID > matches[j].ID
	})
	out := make([]*domainreviews.Review, 0, limit)
	for _, review := range page(matches, offset, limit) {
		out = append(out, cloneReview(review))
	}
	return out, len(matches), nil
}

func (r *ReviewRepository) StatsForListing(_ context.Context, listingID domainlistings.ListingID) (domainreviews.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ratings []int
	for _, review := range r.items {
		if review.ListingID == listingID {
			ratings = append(ratings, review.Rating)
		}
	}
	return domainreviews.ComputeStats(ratings), nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

var (
	_ domainlistings.ListingRepository = (*ListingRepository)(nil)
	_ domainbooking.Repository         = (*BookingRepository)(nil)
	_ domainreviews.Repository         = (*ReviewRepository)(nil)
)
