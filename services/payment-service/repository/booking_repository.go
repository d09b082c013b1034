package repository

import (
	"context"

	"github.com/filipfilip1/instytut-saunowy/services/payment-service/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type BookingRepository interface {
	ExistsForSession(ctx context.Context, sessionID string) (bool, error)
	Create(ctx context.Context, booking *models.TrainingBooking) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.TrainingBooking, error)
	// UpdateStatus returns ErrStatusChanged when the booking no longer holds from.
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.BookingStatus) error
	SetInvoice(ctx context.Context, id primitive.ObjectID, invoiceID, invoiceURL string) error
}

type mongoBookingRepo struct {
	collection *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) BookingRepository {
	return &mongoBookingRepo{collection: db.Collection(BookingsCollection)}
}

func (r *mongoBookingRepo) ExistsForSession(ctx context.Context, sessionID string) (bool, error) {
	err := r.collection.FindOne(ctx, bson.M{"stripeSessionId": sessionID},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	return err == nil, err
}

func (r *mongoBookingRepo) Create(ctx context.Context, booking *models.TrainingBooking) error {
	if booking.ID.IsZero() {
		booking.ID = primitive.NewObjectID()
	}
	ts := now()
	booking.CreatedAt, booking.UpdatedAt = ts, ts

	if _, err := r.collection.InsertOne(ctx, booking); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateSession
		}
		return err
	}
	return nil
}

func (r *mongoBookingRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.TrainingBooking, error) {
	var booking models.TrainingBooking
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&booking); err != nil {
		return nil, notFound(err)
	}
	return &booking, nil
}

func (r *mongoBookingRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.BookingStatus) error {
	return setStatus(ctx, r.collection, id, string(from), string(to))
}

func (r *mongoBookingRepo) SetInvoice(ctx context.Context, id primitive.ObjectID, invoiceID, invoiceURL string) error {
	return r.set(ctx, id, bson.M{"invoiceId": invoiceID, "invoiceUrl": invoiceURL})
}

func (r *mongoBookingRepo) set(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	fields["updatedAt"] = now()
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
