package dto

import (
	"time"

	domainreviews "reservations/internal/domain/reviews"
)

type Review struct {
	ID        string    `json:"id"`
	BookingID string    `json:"booking"`
	ListingID string    `json:"listing"`
	AuthorID  string    `json:"author"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func MapReview(r *domainreviews.Review) *Review {
	if r == nil {
		return nil
	}
	return &Review{
		ID:        string(r.ID),
		BookingID: string(r.BookingID),
		ListingID: string(r.ListingID),
		AuthorID:  r.AuthorID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}

type ReviewPage struct {
	Items []Review `json:"items"`
	Total int      `json:"total"`
	Page  int      `json:"page"`
	Limit int      `json:"limit"`
}

type ReviewDeleted struct {
	Deleted bool `json:"deleted"`
}
