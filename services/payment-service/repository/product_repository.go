package repository

import (
	"context"

	"github.com/filipfilip1/instytut-saunowy/services/payment-service/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ProductRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	// DecrementOptionStock subtracts qty from one option's stock only if the
	// option currently holds at least qty. Otherwise returns ErrInsufficientStock.
	DecrementOptionStock(ctx context.Context, productID, variantID, optionID primitive.ObjectID, qty int) error
	SetOptionStock(ctx context.Context, productID, variantID, optionID primitive.ObjectID, stock int) error
}

type mongoProductRepo struct {
	collection *mongo.Collection
}

func NewProductRepository(db *mongo.Database) ProductRepository {
	return &mongoProductRepo{collection: db.Collection(ProductsCollection)}
}

func (r *mongoProductRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var product models.Product
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		return nil, notFound(err)
	}
	return &product, nil
}

func (r *mongoProductRepo) DecrementOptionStock(ctx context.Context, productID, variantID, optionID primitive.ObjectID, qty int) error {
	filter := bson.M{
		"_id":      productID,
		"variants": bson.M{"$elemMatch": bson.M{
			"_id":     variantID,
			"options": bson.M{"$elemMatch": bson.M{
				"_id":   optionID,
				"stock": bson.M{"$gte": qty},
			}},
		}},
	}
	res, err := r.collection.UpdateOne(ctx, filter, optionUpdate("$inc", -qty), optionArrayFilters(variantID, optionID))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (r *mongoProductRepo) SetOptionStock(ctx context.Context, productID, variantID, optionID primitive.ObjectID, stock int) error {
	filter := bson.M{
		"_id":                  productID,
		"variants._id":         variantID,
		"variants.options._id": optionID,
	}
	res, err := r.collection.UpdateOne(ctx, filter, optionUpdate("$set", stock), optionArrayFilters(variantID, optionID))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func optionUpdate(op string, value int) bson.M {
	return bson.M{
		op:             bson.M{"variants.$[v].options.$[o].stock": value},
		"$currentDate": bson.M{"updatedAt": true},
	}
}

func optionArrayFilters(variantID, optionID primitive.ObjectID) *options.UpdateOptions {
	return options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"v._id": variantID},
			bson.M{"o._id": optionID},
		},
	})
}
