package repository

import (
	"context"

	"github.com/filipfilip1/instytut-saunowy/services/payment-service/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type OrderFilter struct {
	Status models.OrderStatus
	Page   int
	Limit  int
}

// Normalized clamps paging to page >= 1 and 1..100 items, defaulting to 20.
func (f OrderFilter) Normalized() OrderFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
	return f
}

type OrderRepository interface {
	ExistsForSession(ctx context.Context, sessionID string) (bool, error)
	// Create inserts the order. A second order for the same session returns ErrDuplicateSession.
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus) error
	SetTracking(ctx context.Context, id primitive.ObjectID, trackingNumber string) error
	SetInvoice(ctx context.Context, id primitive.ObjectID, invoiceID, invoiceURL string) error
}

type mongoOrderRepo struct {
	collection *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) OrderRepository {
	return &mongoOrderRepo{collection: db.Collection(OrdersCollection)}
}

func (r *mongoOrderRepo) ExistsForSession(ctx context.Context, sessionID string) (bool, error) {
	err := r.collection.FindOne(ctx, bson.M{"stripeSessionId": sessionID},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	return err == nil, err
}

func (r *mongoOrderRepo) Create(ctx context.Context, order *models.Order) error {
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	ts := now()
	order.CreatedAt, order.UpdatedAt = ts, ts

	if _, err := r.collection.InsertOne(ctx, order); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateSession
		}
		return err
	}
	return nil
}

func (r *mongoOrderRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order); err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

func (r *mongoOrderRepo) List(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	query := bson.M{}
	if f.Status != "" {
		query["status"] = f.Status
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((f.Page - 1) * f.Limit)).
		SetLimit(int64(f.Limit))
	cursor, err := r.collection.Find(ctx, query, findOpts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *mongoOrderRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus) error {
	return setStatus(ctx, r.collection, id, string(from), string(to))
}

func (r *mongoOrderRepo) SetTracking(ctx context.Context, id primitive.ObjectID, trackingNumber string) error {
	return r.set(ctx, id, bson.M{"trackingNumber": trackingNumber})
}

func (r *mongoOrderRepo) SetInvoice(ctx context.Context, id primitive.ObjectID, invoiceID, invoiceURL string) error {
	return r.set(ctx, id, bson.M{"invoiceId": invoiceID, "invoiceUrl": invoiceURL})
}

func (r *mongoOrderRepo) set(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
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
