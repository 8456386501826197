package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "reservations/internal/domain/booking"
	"reservations/internal/domain/listings"
	domainrange "reservations/internal/domain/shared/daterange"
	"reservations/internal/domain/shared/money"
)

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(ctx context.Context, db *mongo.Database) (*BookingRepository, error) {
	col := db.Collection("reservations")
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "status", Value: 1}, {Key: "check_in", Value: 1}, {Key: "check_out", Value: 1}}},
		{Keys: bson.D{{Key: "guest_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return nil, err
	}
	return &BookingRepository{col: col}, nil
}

func (r *BookingRepository) Create(ctx context.Context, b *domainbooking.Booking) error {
	_, err := r.col.InsertOne(ctx, newBookingDocument(b))
	return err
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func activeOverlapFilter(listingID listings.ListingID, dr domainrange.DateRange) bson.M {
	return bson.M{
		"listing_id": string(listingID),
		"status":     bson.M{"$ne": string(domainbooking.StatusCancelled)},
		"check_in":   bson.M{"$lt": dr.CheckOut},
		"check_out":  bson.M{"$gt": dr.CheckIn},
	}
}

func (r *BookingRepository) HasOverlap(ctx context.Context, listingID listings.ListingID, dr domainrange.DateRange) (bool, error) {
	err := r.col.FindOne(ctx, activeOverlapFilter(listingID, dr), options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CancelIfConfirmed only matches a document whose stored status is still confirmed.
func (r *BookingRepository) CancelIfConfirmed(ctx context.Context, b *domainbooking.Booking) (bool, error) {
	if b.Cancellation == nil {
		return false, domainbooking.ErrInvalidState
	}
	filter := bson.M{"_id": string(b.ID), "status": string(domainbooking.StatusConfirmed)}
	update := bson.M{"$set": bson.M{
		"status":       string(b.Status),
		"cancellation": newCancellationDocument(b.Cancellation),
		"updated_at":   b.UpdatedAt,
	}}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID string, limit, offset int) ([]*domainbooking.Booking, int, error) {
	filter := bson.M{"guest_id": guestID}
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	items, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return items, int(total), nil
}

func (r *BookingRepository) ListActiveByListing(ctx context.Context, listingID listings.ListingID, window domainrange.DateRange) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "check_in", Value: 1}})
	return r.find(ctx, activeOverlapFilter(listingID, window), opts)
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domainbooking.Booking, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []bookingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainbooking.Booking, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, nil
}

type bookingDocument struct {
	ID           string                `bson:"_id"`
	ListingID    string                `bson:"listing_id"`
	GuestID      string                `bson:"guest_id"`
	CheckIn      time.Time             `bson:"check_in"`
	CheckOut     time.Time             `bson:"check_out"`
	Guests       int                   `bson:"guests_count"`
	TotalPrice   int64                 `bson:"total_price"`
	Currency     string                `bson:"currency"`
	Status       string                `bson:"status"`
	Cancellation *cancellationDocument `bson:"cancellation,omitempty"`
	CreatedAt    time.Time             `bson:"created_at"`
	UpdatedAt    time.Time             `bson:"updated_at"`
}

type cancellationDocument struct {
	At           time.Time `bson:"at"`
	By           string    `bson:"by"`
	Reason       string    `bson:"reason,omitempty"`
	RefundAmount int64     `bson:"refund_amount"`
}

func newCancellationDocument(c *domainbooking.Cancellation) *cancellationDocument {
	if c == nil {
		return nil
	}
	return &cancellationDocument{At: c.At, By: c.By, Reason: c.Reason, RefundAmount: c.Refund.Amount}
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:           string(b.ID),
		ListingID:    string(b.ListingID),
		GuestID:      b.GuestID,
		CheckIn:      b.Range.CheckIn,
		CheckOut:     b.Range.CheckOut,
		Guests:       b.Guests,
		TotalPrice:   b.Total.Amount,
		Currency:     b.Total.Currency,
		Status:       string(b.Status),
		Cancellation: newCancellationDocument(b.Cancellation),
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	b := &domainbooking.Booking{
		ID:        domainbooking.BookingID(d.ID),
		ListingID: listings.ListingID(d.ListingID),
		GuestID:   d.GuestID,
		Range:     domainrange.DateRange{CheckIn: d.CheckIn.UTC(), CheckOut: d.CheckOut.UTC()},
		Guests:    d.Guests,
		Total:     money.Money{Amount: d.TotalPrice, Currency: d.Currency},
		Status:    domainbooking.Status(d.Status),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
	if c := d.Cancellation; c != nil {
		b.Cancellation = &domainbooking.Cancellation{
			At:     c.At.UTC(),
			By:     c.By,
			Reason: c.Reason,
			Refund: money.Money{Amount: c.RefundAmount, Currency: d.Currency},
		}
	}
	return b
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
