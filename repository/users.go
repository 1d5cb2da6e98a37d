package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"eventtts/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepository struct {
	Collection *mongo.Collection
}

func NewUserRepository(collection *mongo.Collection) *UserRepository {
	return &UserRepository{Collection: collection}
}

func userNotFound(ref string) error {
	return fmt.Errorf("user %s: %w", ref, models.ErrNotFound)
}

// UpsertUser creates or refreshes the profile keyed by ClerkID. Liked events
// survive a refresh.
func (repo *UserRepository) UpsertUser(ctx context.Context, u *models.User) (*models.User, error) {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"email":     u.Email,
			"username":  u.Username,
			"firstName": u.FirstName,
			"lastName":  u.LastName,
			"photo":     u.Photo,
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{
			"clerkId":     u.ClerkID,
			"likedEvents": bson.A{},
			"createdAt":   now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var out models.User
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = repo.Collection.FindOneAndUpdate(ctx, bson.M{"clerkId": u.ClerkID}, update, opts).Decode(&out)
		if err == nil {
			return &out, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			break
		}
	}
	return nil, err
}

func (repo *UserRepository) findOne(ctx context.Context, filter bson.M, ref string) (*models.User, error) {
	var u models.User
	err := repo.Collection.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, userNotFound(ref)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (repo *UserRepository) FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return repo.findOne(ctx, bson.M{"_id": id}, id.Hex())
}

func (repo *UserRepository) FindUserByClerkID(ctx context.Context, clerkID string) (*models.User, error) {
	return repo.findOne(ctx, bson.M{"clerkId": clerkID}, clerkID)
}

func (repo *UserRepository) FindUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	var out []models.User
	if len(ids) == 0 {
		return out, nil
	}
	if err := findAll(ctx, repo.Collection, bson.M{"_id": bson.M{"$in": ids}}, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (repo *UserRepository) UpdateUserByClerkID(ctx context.Context, clerkID string, u models.UserUpdate) (*models.User, error) {
	set := bson.M{"updatedAt": time.Now()}
	if u.Username != nil {
		set["username"] = *u.Username
	}
	if u.FirstName != nil {
		set["firstName"] = *u.FirstName
	}
	if u.LastName != nil {
		set["lastName"] = *u.LastName
	}
	if u.Photo != nil {
		set["photo"] = *u.Photo
	}
	if u.Email != nil {
		set["email"] = *u.Email
	}

	var out models.User
	err := repo.Collection.FindOneAndUpdate(ctx, bson.M{"clerkId": clerkID}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, userNotFound(clerkID)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (repo *UserRepository) DeleteUserByClerkID(ctx context.Context, clerkID string) (*models.User, error) {
	var out models.User
	err := repo.Collection.FindOneAndDelete(ctx, bson.M{"clerkId": clerkID}).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, userNotFound(clerkID)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ToggleLike flips membership in one pipeline update so two concurrent
// toggles cannot both observe the same starting state.
func (repo *UserRepository) ToggleLike(ctx context.Context, userID, eventID primitive.ObjectID) (bool, error) {
	liked := bson.M{"$ifNull": bson.A{"$likedEvents", bson.A{}}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"likedEvents": bson.M{"$cond": bson.A{
				bson.M{"$in": bson.A{eventID, liked}},
				bson.M{"$filter": bson.M{
					"input": liked,
					"cond":  bson.M{"$ne": bson.A{"$$this", eventID}},
				}},
				bson.M{"$concatArrays": bson.A{liked, bson.A{eventID}}},
			}},
			"updatedAt": "$$NOW",
		}}},
	}

	var out models.User
	err := repo.Collection.FindOneAndUpdate(ctx, bson.M{"_id": userID}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, userNotFound(userID.Hex())
	}
	if err != nil {
		return false, err
	}
	return slices.Contains(out.LikedEvents, eventID), nil
}

func (repo *UserRepository) PullLikedEvents(ctx context.Context, eventIDs []primitive.ObjectID) error {
	if len(eventIDs) == 0 {
		return nil
	}
	_, err := repo.Collection.UpdateMany(ctx,
		bson.M{"likedEvents": bson.M{"$in": eventIDs}},
		bson.M{"$pull": bson.M{"likedEvents": bson.M{"$in": eventIDs}}})
	return err
}
