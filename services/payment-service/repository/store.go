package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"
)

const (
	ProductsCollection  = "products"
	OrdersCollection    = "orders"
	TrainingsCollection = "trainings"
	BookingsCollection  = "trainingbookings"
)

var (
	ErrNotFound          = errors.New("document not found")
	ErrDuplicateSession  = errors.New("record for checkout session already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrTrainingFull      = errors.New("training is fully booked")
	ErrStatusChanged     = errors.New("status changed by another request")
)

// Store runs a group of repository calls as one unit of work.
type Store interface {
	// WithUnitOfWork calls fn with a context that carries the transaction when
	// the deployment supports one. Repositories must be called with that ctx.
	// Any error returned by fn aborts the transaction.
	WithUnitOfWork(ctx context.Context, fn func(ctx context.Context) error) error
	Atomic() bool
}

type MongoStore struct {
	client *mongo.Client
	atomic bool
	logger *zap.Logger
}

// NewMongoStore returns a store. With atomic=false there is no rollback: a
// failure part way through fn leaves earlier writes in place.
func NewMongoStore(client *mongo.Client, atomic bool, logger *zap.Logger) *MongoStore {
	if !atomic {
		logger.Warn("MongoDB transactions disabled: reconciliation failures may leave partial stock and booking updates behind")
	}
	return &MongoStore{client: client, atomic: atomic, logger: logger}
}

func (s *MongoStore) Atomic() bool { return s.atomic }

func (s *MongoStore) WithUnitOfWork(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.atomic {
		return fn(ctx)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, txnOpts)
	return err
}

// EnsureIndexes creates the unique session indexes that back idempotency.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := mongo.IndexModel{
		Keys:    bson.D{{Key: "stripeSessionId", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_stripe_session"),
	}
	for _, coll := range []string{OrdersCollection, BookingsCollection} {
		if _, err := db.Collection(coll).Indexes().CreateOne(ctx, unique); err != nil {
			return fmt.Errorf("create index on %s: %w", coll, err)
		}
	}

	_, err := db.Collection(OrdersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	return err
}

func now() time.Time { return time.Now().UTC() }

// setStatus moves the document from one status to another only if it still
// holds the expected one.
func setStatus(ctx context.Context, coll *mongo.Collection, id interface{}, from, to string) error {
	res, err := coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrStatusChanged
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
