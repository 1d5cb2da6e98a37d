package taxonomy

import (
	"context"
	"fmt"

	"eventtts/models"
	"eventtts/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Resolver finds or creates categories and tags by name.
type Resolver struct {
	store repository.TaxonomyStore
}

func NewResolver(store repository.TaxonomyStore) *Resolver {
	return &Resolver{store: store}
}

func (r *Resolver) ResolveCategory(ctx context.Context, name string) (*models.Category, error) {
	if models.TaxonomyKey(name) == "" {
		return nil, fmt.Errorf("%w: category is required", models.ErrValidation)
	}
	c, err := r.store.UpsertCategory(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("resolve category %q: %w", name, err)
	}
	return c, nil
}

// ResolveTags skips blank names and resolves each distinct key once, in
// input order.
func (r *Resolver) ResolveTags(ctx context.Context, names []string) ([]models.Tag, error) {
	seen := make(map[string]bool, len(names))
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		key := models.TaxonomyKey(name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		t, err := r.store.UpsertTag(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("resolve tag %q: %w", name, err)
		}
		tags = append(tags, *t)
	}
	return tags, nil
}

// FindCategory looks a category up by name without creating it.
func (r *Resolver) FindCategory(ctx context.Context, name string) (*models.Category, error) {
	return r.store.FindCategoryByName(ctx, name)
}

// Link records eventID on each tag's back-reference list.
func (r *Resolver) Link(ctx context.Context, tags []primitive.ObjectID, eventID primitive.ObjectID) error {
	return r.store.AddTagEvent(ctx, tags, eventID)
}

// Unlink drops eventIDs from every tag.
func (r *Resolver) Unlink(ctx context.Context, eventIDs ...primitive.ObjectID) error {
	return r.store.PullTagEvents(ctx, eventIDs)
}

func (r *Resolver) Categories(ctx context.Context) ([]models.Category, error) {
	return r.store.ListCategories(ctx)
}

func (r *Resolver) Tags(ctx context.Context) ([]models.Tag, error) {
	return r.store.ListTags(ctx)
}

func (r *Resolver) CategoriesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Category, error) {
	return r.store.FindCategoriesByIDs(ctx, ids)
}

func (r *Resolver) TagsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Tag, error) {
	return r.store.FindTagsByIDs(ctx, ids)
}

func TagIDs(tags []models.Tag) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, len(tags))
	for i, t := range tags {
		ids[i] = t.ID
	}
	return ids
}
