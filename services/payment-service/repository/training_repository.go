package repository

import (
	"context"
	"errors"

	"github.com/filipfilip1/instytut-saunowy/services/payment-service/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TrainingRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Training, error)
	// IncrementParticipants adds one participant in a single update that also
	// checks capacity. Returns ErrTrainingFull when no spot is left.
	IncrementParticipants(ctx context.Context, id primitive.ObjectID) (*models.Training, error)
	// DecrementParticipants releases one spot; the counter never drops below zero.
	DecrementParticipants(ctx context.Context, id primitive.ObjectID) error
}

type mongoTrainingRepo struct {
	collection *mongo.Collection
}

func NewTrainingRepository(db *mongo.Database) TrainingRepository {
	return &mongoTrainingRepo{collection: db.Collection(TrainingsCollection)}
}

func (r *mongoTrainingRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Training, error) {
	var training models.Training
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&training); err != nil {
		return nil, notFound(err)
	}
	return &training, nil
}

func (r *mongoTrainingRepo) IncrementParticipants(ctx context.Context, id primitive.ObjectID) (*models.Training, error) {
	filter := bson.M{
		"_id":   id,
		"$expr": bson.M{"$lt": bson.A{"$currentParticipants", "$maxParticipants"}},
	}
	update := bson.M{"$inc": bson.M{"currentParticipants": 1}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var training models.Training
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&training)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, findErr := r.FindByID(ctx, id); findErr != nil {
			return nil, findErr
		}
		return nil, ErrTrainingFull
	}
	if err != nil {
		return nil, err
	}
	return &training, nil
}

func (r *mongoTrainingRepo) DecrementParticipants(ctx context.Context, id primitive.ObjectID) error {
	filter := bson.M{"_id": id, "currentParticipants": bson.M{"$gt": 0}}
	_, err := r.collection.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"currentParticipants": -1}})
	return err
}
