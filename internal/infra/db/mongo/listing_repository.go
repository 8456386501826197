package mongo

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"reservations/internal/domain/listings"
	"reservations/internal/domain/shared/money"
)

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(ctx context.Context, db *mongo.Database) (*ListingRepository, error) {
	col := db.Collection("listings")
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "host_id", Value: 1}}},
		{Keys: bson.D{{Key: "state", Value: 1}, {Key: "city", Value: 1}, {Key: "price_per_night", Value: 1}}},
	})
	if err != nil {
		return nil, err
	}
	return &ListingRepository{col: col}, nil
}

func (r *ListingRepository) ByID(ctx context.Context, id listings.ListingID) (*listings.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, listings.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// Save upserts everything except the review aggregates, which only
// UpdateReviewStats writes.
func (r *ListingRepository) Save(ctx context.Context, l *listings.Listing) error {
	doc := newListingDocument(l)
	update := bson.M{
		"$set": bson.M{
			"host_id":         doc.HostID,
			"title":           doc.Title,
			"description":     doc.Description,
			"city":            doc.City,
			"country":         doc.Country,
			"price_per_night": doc.PricePerNight,
			"currency":        doc.Currency,
			"max_guests":      doc.MaxGuests,
			"state":           doc.State,
			"updated_at":      doc.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"created_at":     doc.CreatedAt,
			"review_count":   doc.ReviewCount,
			"average_rating": doc.AverageRating,
		},
	}
	_, err := r.col.UpdateByID(ctx, doc.ID, update, options.Update().SetUpsert(true))
	return err
}

func (r *ListingRepository) UpdateReviewStats(ctx context.Context, id listings.ListingID, count int, average float64) error {
	res, err := r.col.UpdateByID(ctx, string(id), bson.M{"$set": bson.M{"review_count": count, "average_rating": average}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return listings.ErrNotFound
	}
	return nil
}

func (r *ListingRepository) Search(ctx context.Context, params listings.SearchParams) (listings.SearchResult, error) {
	opts := params.Normalized()
	filter := bson.M{}
	if opts.OnlyActive {
		filter["state"] = string(listings.ListingActive)
	}
	if opts.Host != "" {
		filter["host_id"] = string(opts.Host)
	}
	if opts.City != "" {
		filter["city"] = exactFold(opts.City)
	}
	if opts.Country != "" {
		filter["country"] = exactFold(opts.Country)
	}
	if opts.MinGuests > 0 {
		filter["max_guests"] = bson.M{"$gte": opts.MinGuests}
	}
	price := bson.M{}
	if opts.PriceMin > 0 {
		price["$gte"] = opts.PriceMin
	}
	if opts.PriceMax > 0 {
		price["$lte"] = opts.PriceMax
	}
	if len(price) > 0 {
		filter["price_per_night"] = price
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return listings.SearchResult{}, err
	}
	find := options.Find().
		SetSort(sortFor(opts.Sort)).
		SetSkip(int64(opts.Offset)).
		SetLimit(int64(opts.Limit))
	cur, err := r.col.Find(ctx, filter, find)
	if err != nil {
		return listings.SearchResult{}, err
	}
	defer cur.Close(ctx)
	var docs []listingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return listings.SearchResult{}, err
	}
	items := make([]*listings.Listing, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.toAggregate())
	}
	return listings.SearchResult{Items: items, Total: int(total)}, nil
}

func exactFold(s string) bson.M {
	return bson.M{"$regex": "^" + regexp.QuoteMeta(s) + "$", "$options": "i"}
}

func sortFor(s listings.CatalogSort) bson.D {
	tail := bson.E{Key: "created_at", Value: -1}
	switch s {
	case listings.SortByPriceAsc:
		return bson.D{{Key: "price_per_night", Value: 1}, tail}
	case listings.SortByPriceDesc:
		return bson.D{{Key: "price_per_night", Value: -1}, tail}
	case listings.SortByRating:
		return bson.D{{Key: "average_rating", Value: -1}, tail}
	}
	return bson.D{tail, {Key: "_id", Value: 1}}
}

type listingDocument struct {
	ID            string    `bson:"_id"`
	HostID        string    `bson:"host_id"`
	Title         string    `bson:"title"`
	Description   string    `bson:"description"`
	City          string    `bson:"city"`
	Country       string    `bson:"country"`
	PricePerNight int64     `bson:"price_per_night"`
	Currency      string    `bson:"currency"`
	MaxGuests     int       `bson:"max_guests"`
	State         string    `bson:"state"`
	ReviewCount   int       `bson:"review_count"`
	AverageRating float64   `bson:"average_rating"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func newListingDocument(l *listings.Listing) listingDocument {
	return listingDocument{
		ID:            string(l.ID),
		HostID:        string(l.Host),
		Title:         l.Title,
		Description:   l.Description,
		City:          l.City,
		Country:       l.Country,
		PricePerNight: l.PricePerNight.Amount,
		Currency:      l.PricePerNight.Currency,
		MaxGuests:     l.MaxGuests,
		State:         string(l.State),
		ReviewCount:   l.ReviewCount,
		AverageRating: l.AverageRating,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	}
}

func (d listingDocument) toAggregate() *listings.Listing {
	currency := d.Currency
	if currency == "" {
		currency = money.DefaultCurrency
	}
	return &listings.Listing{
		ID:            listings.ListingID(d.ID),
		Host:          listings.HostID(d.HostID),
		Title:         d.Title,
		Description:   d.Description,
		City:          d.City,
		Country:       d.Country,
		PricePerNight: money.Money{Amount: d.PricePerNight, Currency: currency},
		MaxGuests:     d.MaxGuests,
		State:         listings.ListingState(d.State),
		ReviewCount:   d.ReviewCount,
		AverageRating: d.AverageRating,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
}

var _ listings.ListingRepository = (*ListingRepository)(nil)
