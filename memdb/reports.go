package memdb

import (
	"context"
	"fmt"
	"sort"

	"eventtts/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (d *DB) InsertReport(_ context.Context, r *models.Report) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	stored := *r
	d.reports[r.ID] = &stored
	return nil
}

func (d *DB) FindReportByID(_ context.Context, id primitive.ObjectID) (*models.Report, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.reports[id]
	if !ok {
		return nil, fmt.Errorf("report %s: %w", id.Hex(), models.ErrNotFound)
	}
	out := *r
	return &out, nil
}

func (d *DB) FindReportsByEvent(_ context.Context, eventID primitive.ObjectID) ([]models.Report, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []models.Report
	for _, r := range d.reports {
		if r.Event == eventID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
