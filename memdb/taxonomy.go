package memdb

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"eventtts/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (d *DB) UpsertCategory(_ context.Context, name string) (*models.Category, error) {
	key := models.TaxonomyKey(name)
	if key == "" {
		return nil, fmt.Errorf("%w: empty name", models.ErrValidation)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.categories {
		if c.Key == key {
			out := *c
			return &out, nil
		}
	}
	c := &models.Category{ID: primitive.NewObjectID(), Name: strings.TrimSpace(name), Key: key}
	d.categories[c.ID] = c
	out := *c
	return &out, nil
}

func cloneTag(t *models.Tag) models.Tag {
	out := *t
	out.Events = cloneIDs(t.Events)
	return out
}

func (d *DB) UpsertTag(_ context.Context, name string) (*models.Tag, error) {
	key := models.TaxonomyKey(name)
	if key == "" {
		return nil, fmt.Errorf("%w: empty name", models.ErrValidation)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.tags {
		if t.Key == key {
			out := cloneTag(t)
			return &out, nil
		}
	}
	t := &models.Tag{ID: primitive.NewObjectID(), Name: strings.TrimSpace(name), Key: key, Events: []primitive.ObjectID{}}
	d.tags[t.ID] = t
	out := cloneTag(t)
	return &out, nil
}

func (d *DB) FindCategoryByName(_ context.Context, name string) (*models.Category, error) {
	key := models.TaxonomyKey(name)
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.categories {
		if c.Key == key {
			out := *c
			return &out, nil
		}
	}
	return nil, fmt.Errorf("category %q: %w", name, models.ErrNotFound)
}

func (d *DB) FindCategoriesByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Category, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := []models.Category{}
	for _, id := range ids {
		if c, ok := d.categories[id]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (d *DB) FindTagsByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Tag, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := []models.Tag{}
	for _, id := range ids {
		if t, ok := d.tags[id]; ok {
			out = append(out, cloneTag(t))
		}
	}
	return out, nil
}

func (d *DB) ListCategories(_ context.Context) ([]models.Category, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.Category, 0, len(d.categories))
	for _, c := range d.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (d *DB) ListTags(_ context.Context) ([]models.Tag, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.Tag, 0, len(d.tags))
	for _, t := range d.tags {
		out = append(out, cloneTag(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (d *DB) AddTagEvent(_ context.Context, tagIDs []primitive.ObjectID, eventID primitive.ObjectID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range tagIDs {
		if t, ok := d.tags[id]; ok && !slices.Contains(t.Events, eventID) {
			t.Events = append(t.Events, eventID)
		}
	}
	return nil
}

func (d *DB) PullTagEvents(_ context.Context, eventIDs []primitive.ObjectID) error {
	gone := idSet(eventIDs)
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.tags {
		t.Events = slices.DeleteFunc(t.Events, func(id primitive.ObjectID) bool { return gone[id] })
	}
	return nil
}
