package dto

import (
	"time"

	domainlistings "reservations/internal/domain/listings"
)

type Listing struct {
	ID            string    `json:"id"`
	HostID        string    `json:"host"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	City          string    `json:"city"`
	Country       string    `json:"country,omitempty"`
	PricePerNight int64     `json:"pricePerNight"`
	Currency      string    `json:"currency"`
	MaxGuests     int       `json:"maxGuests"`
	IsActive      bool      `json:"isActive"`
	ReviewCount   int       `json:"reviewCount"`
	AverageRating float64   `json:"averageRating"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func MapListing(l *domainlistings.Listing) Listing {
	return Listing{
		ID:            string(l.ID),
		HostID:        string(l.Host),
		Title:         l.Title,
		Description:   l.Description,
		City:          l.City,
		Country:       l.Country,
		PricePerNight: l.PricePerNight.Amount,
		Currency:      l.PricePerNight.Currency,
		MaxGuests:     l.MaxGuests,
		IsActive:      l.IsActive(),
		ReviewCount:   l.ReviewCount,
		AverageRating: l.AverageRating,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	}
}

type ListingSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	City  string `json:"city"`
}

func MapListingSummary(l *domainlistings.Listing) *ListingSummary {
	if l == nil {
		return nil
	}
	return &ListingSummary{ID: string(l.ID), Title: l.Title, City: l.City}
}

type ListingPage struct {
	Items []Listing `json:"items"`
	Total int       `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}
