package reviews

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"reservations/internal/domain/booking"
	"reservations/internal/domain/listings"
	"reservations/internal/domain/shared/events"
)

const MaxCommentLength = 1000

var (
	ErrInvalidRating   = errors.New("reviews: rating must be between 1 and 5")
	ErrCommentTooLong  = errors.New("reviews: comment is too long")
	ErrNotFound        = errors.New("reviews: not found")
	ErrAlreadyReviewed = errors.New("reviews: booking already reviewed by author")
)

type ReviewID string

type Review struct {
	ID        ReviewID
	BookingID booking.BookingID
	ListingID listings.ListingID
	HostID    listings.HostID
	AuthorID  string
	Rating    int
	Comment   string
	CreatedAt time.Time
	events.EventRecorder
}

// Stats is the aggregate rating of one listing.
type Stats struct {
	Count   int
	Average float64
}

type Repository interface {
	// Create fails with ErrAlreadyReviewed when (booking, author) already has a review.
	Create(ctx context.Context, review *Review) error
	ByBooking(ctx context.Context, bookingID booking.BookingID, authorID string) (*Review, error)
	Delete(ctx context.Context, bookingID booking.BookingID, authorID string) (*Review, error)
	ListByListing(ctx context.Context, listingID listings.ListingID, limit, offset int) ([]*Review, int, error)
	StatsForListing(ctx context.Context, listingID listings.ListingID) (Stats, error)
}

type SubmitParams struct {
	ID        ReviewID
	BookingID booking.BookingID
	ListingID listings.ListingID
	HostID    listings.HostID
	AuthorID  string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

func Submit(params SubmitParams) (*Review, error) {
	if params.Rating < 1 || params.Rating > 5 {
		return nil, ErrInvalidRating
	}
	comment := strings.TrimSpace(params.Comment)
	if utf8.RuneCountInString(comment) > MaxCommentLength {
		return nil, ErrCommentTooLong
	}
	review := &Review{
		ID:        params.ID,
		BookingID: params.BookingID,
		ListingID: params.ListingID,
		HostID:    params.HostID,
		AuthorID:  params.AuthorID,
		Rating:    params.Rating,
		Comment:   comment,
		CreatedAt: params.CreatedAt.UTC(),
	}
	review.Record(ReviewSubmitted{ReviewID: review.ID, BookingID: review.BookingID, ListingID: review.ListingID, Rating: review.Rating, At: review.CreatedAt})
	return review, nil
}

// MarkDeleted records the removal so it can be relayed.
func (r *Review) MarkDeleted(now time.Time) {
	r.Record(ReviewDeleted{ReviewID: r.ID, BookingID: r.BookingID, ListingID: r.ListingID, At: now.UTC()})
}

// ComputeStats averages ratings; an empty slice yields zero stats.
func ComputeStats(ratings []int) Stats {
	if len(ratings) == 0 {
		return Stats{}
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return Stats{Count: len(ratings), Average: float64(sum) / float64(len(ratings))}
}
