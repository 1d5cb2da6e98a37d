package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventtts/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type EventRepository struct {
	Collection *mongo.Collection
}

func NewEventRepository(collection *mongo.Collection) *EventRepository {
	return &EventRepository{Collection: collection}
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

func eventNotFound(id primitive.ObjectID) error {
	return fmt.Errorf("event %s: %w", id.Hex(), models.ErrNotFound)
}

func (repo *EventRepository) InsertEvent(ctx context.Context, e *models.Event) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	_, err := repo.Collection.InsertOne(ctx, e)
	return err
}

func (repo *EventRepository) FindEventByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error) {
	var event models.Event
	err := repo.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&event)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, eventNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (repo *EventRepository) FindEventsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return repo.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetSort(newestFirst))
}

func (repo *EventRepository) FindEvents(ctx context.Context, q models.EventQuery) ([]models.Event, error) {
	opts := options.Find().SetSort(newestFirst)
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	return repo.find(ctx, buildEventFilter(q), opts)
}

func (repo *EventRepository) CountEvents(ctx context.Context, q models.EventQuery) (int64, error) {
	return repo.Collection.CountDocuments(ctx, buildEventFilter(q))
}

func (repo *EventRepository) FindSubEvents(ctx context.Context, parentID primitive.ObjectID) ([]models.Event, error) {
	return repo.find(ctx, bson.M{"parentEvent": parentID},
		options.Find().SetSort(bson.D{{Key: "startDate", Value: 1}, {Key: "_id", Value: 1}}))
}

func (repo *EventRepository) find(ctx context.Context, filter any, opts *options.FindOptions) ([]models.Event, error) {
	cursor, err := repo.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []models.Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (repo *EventRepository) SetSubEvents(ctx context.Context, parentID primitive.ObjectID, subIDs []primitive.ObjectID) error {
	res, err := repo.Collection.UpdateByID(ctx, parentID, bson.M{"$set": bson.M{
		"subEvents": subIDs,
		"updatedAt": time.Now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return eventNotFound(parentID)
	}
	return nil
}

func (repo *EventRepository) UpdateEventFields(ctx context.Context, id primitive.ObjectID, u models.EventUpdate) error {
	set := buildEventSet(u)
	set["updatedAt"] = time.Now()
	res, err := repo.Collection.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return eventNotFound(id)
	}
	return nil
}

// ResizeCapacity keeps the sold count when a finite pool changes size, and
// starts a fresh pool when an event becomes finite.
func (repo *EventRepository) ResizeCapacity(ctx context.Context, id primitive.ObjectID, c models.Capacity) (*models.Event, error) {
	var update any
	if c.Tracked() {
		update = mongo.Pipeline{
			{{Key: "$set", Value: bson.M{
				"ticketsLeft": bson.M{"$cond": bson.A{
					bson.M{"$eq": bson.A{"$capacityMode", string(models.CapacityFinite)}},
					bson.M{"$max": bson.A{0, bson.M{"$add": bson.A{
						bson.M{"$ifNull": bson.A{"$ticketsLeft", "$totalCapacity"}},
						bson.M{"$subtract": bson.A{c.Total, "$totalCapacity"}},
					}}}},
					c.Total,
				}},
			}}},
			{{Key: "$set", Value: bson.M{
				"capacityMode":  string(models.CapacityFinite),
				"totalCapacity": c.Total,
				"soldOut":       bson.M{"$lte": bson.A{"$ticketsLeft", 0}},
				"updatedAt":     "$$NOW",
			}}},
		}
	} else {
		update = bson.M{"$set": bson.M{
			"capacityMode":  c.Mode,
			"totalCapacity": 0,
			"ticketsLeft":   0,
			"soldOut":       false,
			"updatedAt":     time.Now(),
		}}
	}

	var event models.Event
	err := repo.Collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&event)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, eventNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (repo *EventRepository) DeleteEvent(ctx context.Context, id primitive.ObjectID) error {
	res, err := repo.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return eventNotFound(id)
	}
	return nil
}

func (repo *EventRepository) DeleteSubEvents(ctx context.Context, parentID primitive.ObjectID) ([]primitive.ObjectID, error) {
	subs, err := repo.FindSubEvents(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, nil
	}
	ids := make([]primitive.ObjectID, len(subs))
	for i, s := range subs {
		ids[i] = s.ID
	}
	if _, err := repo.Collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return nil, err
	}
	return ids, nil
}

func (repo *EventRepository) PromoteSubEvents(ctx context.Context, parent models.Event) error {
	children := bson.M{"parentEvent": parent.ID}
	if parent.Photo != "" {
		if _, err := repo.Collection.UpdateMany(ctx,
			bson.M{"parentEvent": parent.ID, "photo": ""},
			bson.M{"$set": bson.M{"photo": parent.Photo}}); err != nil {
			return err
		}
	}
	_, err := repo.Collection.UpdateMany(ctx, children, bson.M{
		"$unset": bson.M{"parentEvent": ""},
		"$set": bson.M{
			"eventType":     models.EventTypeMain,
			"price":         parent.Price,
			"isFree":        parent.IsFree,
			"capacityMode":  models.CapacityUntracked,
			"totalCapacity": 0,
			"ticketsLeft":   0,
			"soldOut":       false,
			"updatedAt":     time.Now(),
		},
	})
	return err
}

func (repo *EventRepository) FindEventIDsByOrganizer(ctx context.Context, organizerID primitive.ObjectID) ([]primitive.ObjectID, error) {
	events, err := repo.find(ctx, bson.M{"organizer": organizerID},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	return ids, nil
}

func (repo *EventRepository) DeleteEventsByIDs(ctx context.Context, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := repo.Collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return err
}

func (repo *EventRepository) DecrementTickets(ctx context.Context, id primitive.ObjectID, qty int) (*models.Event, error) {
	filter := bson.M{
		"_id":          id,
		"capacityMode": string(models.CapacityFinite),
		"ticketsLeft":  bson.M{"$gte": qty}, // prevent oversell
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"ticketsLeft": bson.M{"$subtract": bson.A{"$ticketsLeft", qty}},
			"updatedAt":   "$$NOW",
		}}},
		{{Key: "$set", Value: bson.M{
			"soldOut": bson.M{"$lte": bson.A{"$ticketsLeft", 0}},
		}}},
	}

	var event models.Event
	err := repo.Collection.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&event)
	if err == nil {
		return &event, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	current, ferr := repo.FindEventByID(ctx, id)
	if ferr != nil {
		return nil, ferr
	}
	if !current.Capacity().Tracked() {
		return current, nil
	}
	return nil, fmt.Errorf("event %s has %d tickets left, %d requested: %w",
		id.Hex(), current.TicketsLeft, qty, models.ErrInsufficientInventory)
}

func (repo *EventRepository) ReleaseTickets(ctx context.Context, id primitive.ObjectID, qty int) (*models.Event, error) {
	filter := bson.M{"_id": id, "capacityMode": string(models.CapacityFinite)}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"ticketsLeft": bson.M{"$min": bson.A{"$totalCapacity", bson.M{"$add": bson.A{"$ticketsLeft", qty}}}},
			"updatedAt":   "$$NOW",
		}}},
		{{Key: "$set", Value: bson.M{
			"soldOut": bson.M{"$lte": bson.A{"$ticketsLeft", 0}},
		}}},
	}

	var event models.Event
	err := repo.Collection.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&event)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, eventNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (repo *EventRepository) MirrorTickets(ctx context.Context, parentID primitive.ObjectID, ticketsLeft int, soldOut bool) error {
	_, err := repo.Collection.UpdateMany(ctx, bson.M{"parentEvent": parentID}, bson.M{"$set": bson.M{
		"ticketsLeft": ticketsLeft,
		"soldOut":     soldOut,
	}})
	return err
}

// LowerMirroredTickets mirrors a count reached by a decrement. A child only
// moves down, so mirrors finishing out of order cannot raise it again. A
// child never mirrored before (0 left, not sold out) always takes the value.
func (repo *EventRepository) LowerMirroredTickets(ctx context.Context, parentID primitive.ObjectID, ticketsLeft int, soldOut bool) error {
	filter := bson.M{
		"parentEvent": parentID,
		"$or": bson.A{
			bson.M{"ticketsLeft": bson.M{"$gt": ticketsLeft}},
			bson.M{"ticketsLeft": bson.M{"$lte": 0}, "soldOut": false},
		},
	}
	_, err := repo.Collection.UpdateMany(ctx, filter, bson.M{"$set": bson.M{
		"ticketsLeft": ticketsLeft,
		"soldOut":     soldOut,
	}})
	return err
}

func (repo *EventRepository) AddAttendee(ctx context.Context, eventID, userID primitive.ObjectID) error {
	_, err := repo.Collection.UpdateByID(ctx, eventID, bson.M{"$addToSet": bson.M{"attendees": userID}})
	return err
}

func (repo *EventRepository) MarkCompleted(ctx context.Context, endedBefore time.Time) (int64, error) {
	res, err := repo.Collection.UpdateMany(ctx,
		bson.M{"status": models.StatusPublished, "endDate": bson.M{"$lt": endedBefore}},
		bson.M{"$set": bson.M{"status": models.StatusCompleted, "updatedAt": time.Now()}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
