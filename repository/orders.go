package repository

import (
	"context"
	"errors"
	"fmt"

	"eventtts/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type OrderRepository struct {
	Collection *mongo.Collection
}

func NewOrderRepository(collection *mongo.Collection) *OrderRepository {
	return &OrderRepository{Collection: collection}
}

func (repo *OrderRepository) InsertOrder(ctx context.Context, o *models.Order) error {
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	_, err := repo.Collection.InsertOne(ctx, o)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("order for payment %s: %w", o.StripeID, models.ErrConflict)
	}
	return err
}

func (repo *OrderRepository) findOne(ctx context.Context, filter bson.M, ref string) (*models.Order, error) {
	var o models.Order
	err := repo.Collection.FindOne(ctx, filter).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("order %s: %w", ref, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (repo *OrderRepository) FindOrderByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return repo.findOne(ctx, bson.M{"_id": id}, id.Hex())
}

func (repo *OrderRepository) FindOrderByPaymentRef(ctx context.Context, ref string) (*models.Order, error) {
	return repo.findOne(ctx, bson.M{"stripeId": ref}, ref)
}

func (repo *OrderRepository) FindOrdersByBuyer(ctx context.Context, buyerID primitive.ObjectID, skip, limit int64) ([]models.Order, error) {
	opts := options.Find().SetSort(newestFirst).SetSkip(skip)
	if limit > 0 {
		opts.SetLimit(limit)
	}
	var out []models.Order
	if err := findAll(ctx, repo.Collection, bson.M{"buyer": buyerID}, opts, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (repo *OrderRepository) CountOrdersByBuyer(ctx context.Context, buyerID primitive.ObjectID) (int64, error) {
	return repo.Collection.CountDocuments(ctx, bson.M{"buyer": buyerID})
}

func (repo *OrderRepository) FindOrdersByEvent(ctx context.Context, eventID primitive.ObjectID) ([]models.Order, error) {
	var out []models.Order
	if err := findAll(ctx, repo.Collection, eventOrLedger(eventID), options.Find().SetSort(newestFirst), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func eventOrLedger(eventID primitive.ObjectID) bson.M {
	return bson.M{"$or": bson.A{bson.M{"event": eventID}, bson.M{"ledgerEvent": eventID}}}
}

func (repo *OrderRepository) StatsForEvent(ctx context.Context, eventID primitive.ObjectID) (models.OrderStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: eventOrLedger(eventID)}},
		{{Key: "$group", Value: bson.M{
			"_id":          nil,
			"totalOrders":  bson.M{"$sum": 1},
			"totalTickets": bson.M{"$sum": "$totalTickets"},
			"totalRevenue": bson.M{"$sum": "$totalAmount"},
		}}},
	}

	var stats models.OrderStats
	cursor, err := repo.Collection.Aggregate(ctx, pipeline)
	if err != nil {
		return stats, err
	}
	defer cursor.Close(ctx)

	if cursor.Next(ctx) {
		if err := cursor.Decode(&stats); err != nil {
			return stats, err
		}
	}
	return stats, cursor.Err()
}

func (repo *OrderRepository) DeleteOrdersByEvents(ctx context.Context, eventIDs []primitive.ObjectID) error {
	if len(eventIDs) == 0 {
		return nil
	}
	_, err := repo.Collection.DeleteMany(ctx, bson.M{"event": bson.M{"$in": eventIDs}})
	return err
}

func (repo *OrderRepository) DeleteOrdersByBuyer(ctx context.Context, buyerID primitive.ObjectID) error {
	_, err := repo.Collection.DeleteMany(ctx, bson.M{"buyer": buyerID})
	return err
}
