package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"eventtts/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TaxonomyRepository struct {
	Categories *mongo.Collection
	Tags       *mongo.Collection
}

func NewTaxonomyRepository(categories, tags *mongo.Collection) *TaxonomyRepository {
	return &TaxonomyRepository{Categories: categories, Tags: tags}
}

// upsertByKey returns the document whose key matches name, creating it if
// needed. Two racing inserts collide on the unique key index; the loser
// retries and reads the winner's document.
func upsertByKey(ctx context.Context, coll *mongo.Collection, name string, onInsert bson.M, out any) error {
	key := models.TaxonomyKey(name)
	if key == "" {
		return fmt.Errorf("%w: empty name", models.ErrValidation)
	}
	onInsert["name"] = strings.TrimSpace(name)
	onInsert["key"] = key

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = coll.FindOneAndUpdate(ctx, bson.M{"key": key}, bson.M{"$setOnInsert": onInsert}, opts).Decode(out)
		if err == nil || !mongo.IsDuplicateKeyError(err) {
			return err
		}
	}
	return err
}

func (repo *TaxonomyRepository) UpsertCategory(ctx context.Context, name string) (*models.Category, error) {
	var c models.Category
	if err := upsertByKey(ctx, repo.Categories, name, bson.M{}, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (repo *TaxonomyRepository) UpsertTag(ctx context.Context, name string) (*models.Tag, error) {
	var t models.Tag
	if err := upsertByKey(ctx, repo.Tags, name, bson.M{"events": bson.A{}}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (repo *TaxonomyRepository) FindCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	var c models.Category
	err := repo.Categories.FindOne(ctx, bson.M{"key": models.TaxonomyKey(name)}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("category %q: %w", name, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (repo *TaxonomyRepository) FindCategoriesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Category, error) {
	var out []models.Category
	if len(ids) == 0 {
		return out, nil
	}
	if err := findAll(ctx, repo.Categories, bson.M{"_id": bson.M{"$in": ids}}, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (repo *TaxonomyRepository) FindTagsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Tag, error) {
	var out []models.Tag
	if len(ids) == 0 {
		return out, nil
	}
	if err := findAll(ctx, repo.Tags, bson.M{"_id": bson.M{"$in": ids}}, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (repo *TaxonomyRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	if err := findAll(ctx, repo.Categories, bson.M{}, options.Find().SetSort(bson.M{"key": 1}), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (repo *TaxonomyRepository) ListTags(ctx context.Context) ([]models.Tag, error) {
	var out []models.Tag
	if err := findAll(ctx, repo.Tags, bson.M{}, options.Find().SetSort(bson.M{"key": 1}), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (repo *TaxonomyRepository) AddTagEvent(ctx context.Context, tagIDs []primitive.ObjectID, eventID primitive.ObjectID) error {
	if len(tagIDs) == 0 {
		return nil
	}
	_, err := repo.Tags.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": tagIDs}},
		bson.M{"$addToSet": bson.M{"events": eventID}})
	return err
}

func (repo *TaxonomyRepository) PullTagEvents(ctx context.Context, eventIDs []primitive.ObjectID) error {
	if len(eventIDs) == 0 {
		return nil
	}
	_, err := repo.Tags.UpdateMany(ctx,
		bson.M{"events": bson.M{"$in": eventIDs}},
		bson.M{"$pull": bson.M{"events": bson.M{"$in": eventIDs}}})
	return err
}

func findAll(ctx context.Context, coll *mongo.Collection, filter any, opts *options.FindOptions, out any) error {
	if opts == nil {
		opts = options.Find()
	}
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}
