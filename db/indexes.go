package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the repositories rely on. The unique
// ones are what make taxonomy upserts and webhook order creation safe under
// concurrent requests.
func EnsureIndexes(ctx context.Context, c *Collections) error {
	unique := options.Index().SetUnique(true)

	specs := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{c.Categories, mongo.IndexModel{Keys: bson.D{{Key: "key", Value: 1}}, Options: unique}},
		{c.Tags, mongo.IndexModel{Keys: bson.D{{Key: "key", Value: 1}}, Options: unique}},
		{c.Users, mongo.IndexModel{Keys: bson.D{{Key: "clerkId", Value: 1}}, Options: unique}},
		{c.Orders, mongo.IndexModel{Keys: bson.D{{Key: "stripeId", Value: 1}}, Options: unique}},
		{c.Orders, mongo.IndexModel{Keys: bson.D{{Key: "buyer", Value: 1}, {Key: "createdAt", Value: -1}}}},
		{c.Orders, mongo.IndexModel{Keys: bson.D{{Key: "event", Value: 1}}}},
		{c.Events, mongo.IndexModel{Keys: bson.D{{Key: "parentEvent", Value: 1}}}},
		{c.Events, mongo.IndexModel{Keys: bson.D{{Key: "organizer", Value: 1}, {Key: "createdAt", Value: -1}}}},
		{c.Events, mongo.IndexModel{Keys: bson.D{{Key: "category", Value: 1}, {Key: "createdAt", Value: -1}}}},
		{c.Events, mongo.IndexModel{Keys: bson.D{{Key: "status", Value: 1}, {Key: "endDate", Value: 1}}}},
		{c.Reports, mongo.IndexModel{Keys: bson.D{{Key: "event", Value: 1}}}},
	}

	for _, s := range specs {
		if _, err := s.coll.Indexes().CreateOne(ctx, s.model); err != nil {
			return fmt.Errorf("index on %s: %w", s.coll.Name(), err)
		}
	}
	return nil
}

// NormalizeLegacyCapacity stamps an explicit capacityMode on events written
// before the field existed: a positive totalCapacity becomes a finite pool,
// and a missing ticketsLeft starts at totalCapacity.
func NormalizeLegacyCapacity(ctx context.Context, c *Collections) (int64, error) {
	filter := bson.M{"capacityMode": bson.M{"$exists": false}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"capacityMode": bson.M{"$cond": bson.A{
				bson.M{"$gt": bson.A{bson.M{"$ifNull": bson.A{"$totalCapacity", 0}}, 0}},
				"finite",
				"untracked",
			}},
			"ticketsLeft": bson.M{"$ifNull": bson.A{"$ticketsLeft", bson.M{"$ifNull": bson.A{"$totalCapacity", 0}}}},
		}}},
		{{Key: "$set", Value: bson.M{
			"soldOut": bson.M{"$and": bson.A{
				bson.M{"$eq": bson.A{"$capacityMode", "finite"}},
				bson.M{"$lte": bson.A{"$ticketsLeft", 0}},
			}},
		}}},
	}
	res, err := c.Events.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("normalize capacity: %w", err)
	}
	return res.ModifiedCount, nil
}
