package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"reservations/internal/domain/booking"
	"reservations/internal/domain/listings"
	"reservations/internal/domain/reviews"
)

type ReviewRepository struct {
	col *mongo.Collection
}

func NewReviewRepository(ctx context.Context, db *mongo.Database) (*ReviewRepository, error) {
	col := db.Collection("reviews")
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "booking_id", Value: 1}, {Key: "author_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return nil, err
	}
	return &ReviewRepository{col: col}, nil
}

func (r *ReviewRepository) Create(ctx context.Context, review *reviews.Review) error {
	_, err := r.col.InsertOne(ctx, newReviewDocument(review))
	if mongo.IsDuplicateKeyError(err) {
		return reviews.ErrAlreadyReviewed
	}
	return err
}

func (r *ReviewRepository) ByBooking(ctx context.Context, bookingID booking.BookingID, authorID string) (*reviews.Review, error) {
	var doc reviewDocument
	err := r.col.FindOne(ctx, bson.M{"booking_id": string(bookingID), "author_id": authorID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, reviews.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ReviewRepository) Delete(ctx context.Context, bookingID booking.BookingID, authorID string) (*reviews.Review, error) {
	var doc reviewDocument
	err := r.col.FindOneAndDelete(ctx, bson.M{"booking_id": string(bookingID), "author_id": authorID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, reviews.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ReviewRepository) ListByListing(ctx context.Context, listingID listings.ListingID, limit, offset int) ([]*reviews.Review, int, error) {
	filter := bson.M{"listing_id": string(listingID)}
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	var docs []reviewDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, err
	}
	out := make([]*reviews.Review, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, int(total), nil
}

func (r *ReviewRepository) StatsForListing(ctx context.Context, listingID listings.ListingID) (reviews.Stats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"listing_id": string(listingID)}}},
		{{Key: "$group", Value: bson.M{
			"_id":     nil,
			"count":   bson.M{"$sum": 1},
			"average": bson.M{"$avg": "$rating"},
		}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return reviews.Stats{}, err
	}
	defer cur.Close(ctx)
	var rows []struct {
		Count   int     `bson:"count"`
		Average float64 `bson:"average"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return reviews.Stats{}, err
	}
	if len(rows) == 0 {
		return reviews.Stats{}, nil
	}
	return reviews.Stats{Count: rows[0].Count, Average: rows[0].Average}, nil
}

type reviewDocument struct {
	ID        string    `bson:"_id"`
	BookingID string    `bson:"booking_id"`
	ListingID string    `bson:"listing_id"`
	HostID    string    `bson:"host_id"`
	AuthorID  string    `bson:"author_id"`
	Rating    int       `bson:"rating"`
	Comment   string    `bson:"comment,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

func newReviewDocument(r *reviews.Review) reviewDocument {
	return reviewDocument{
		ID:        string(r.ID),
		BookingID: string(r.BookingID),
		ListingID: string(r.ListingID),
		HostID:    string(r.HostID),
		AuthorID:  r.AuthorID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}

func (d reviewDocument) toAggregate() *reviews.Review {
	return &reviews.Review{
		ID:        reviews.ReviewID(d.ID),
		BookingID: booking.BookingID(d.BookingID),
		ListingID: listings.ListingID(d.ListingID),
		HostID:    listings.HostID(d.HostID),
		AuthorID:  d.AuthorID,
		Rating:    d.Rating,
		Comment:   d.Comment,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

var _ reviews.Repository = (*ReviewRepository)(nil)
