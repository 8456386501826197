package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"reservations/internal/domain/listings"
	"reservations/internal/domain/shared/money"
)

type listingFixture struct {
	ID            string `json:"id"`
	Host          string `json:"host"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	City          string `json:"city"`
	Country       string `json:"country"`
	PricePerNight int64  `json:"price_per_night"`
	Currency      string `json:"currency"`
	MaxGuests     int    `json:"max_guests"`
	Suspended     bool   `json:"suspended"`
}

type listingSaver interface {
	Save(ctx context.Context, listing *listings.Listing) error
}

// loadListingFixtures seeds the in-memory catalog. Invalid entries are logged
// and skipped; a missing file is not an error.
func loadListingFixtures(ctx context.Context, repo listingSaver, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("listing fixtures not found", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}

	var fixtures []listingFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now().UTC()
	imported := 0
	for _, fx := range fixtures {
		price, err := money.New(fx.PricePerNight, fx.Currency)
		if err != nil {
			logger.Error("fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		listing, err := listings.NewListing(listings.CreateListingParams{
			ID:            listings.ListingID(fx.ID),
			Host:          listings.HostID(fx.Host),
			Title:         fx.Title,
			Description:   fx.Description,
			City:          fx.City,
			Country:       fx.Country,
			PricePerNight: price,
			MaxGuests:     fx.MaxGuests,
			Now:           now,
		})
		if err != nil {
			logger.Error("fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		if fx.Suspended {
			listing.Suspend(now, "fixture")
		}
		listing.PullEvents()
		if err := repo.Save(ctx, listing); err != nil {
			logger.Error("cannot store fixture listing", "listing_id", fx.ID, "error", err)
			continue
		}
		imported++
	}
	logger.Info("listing fixtures imported", "count", imported, "path", path)
	return nil
}

func defaultListingFixturesPath() string {
	candidates := []string{
		filepath.Join("data", "listings.json"),
		filepath.Join("..", "..", "data", "listings.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}
