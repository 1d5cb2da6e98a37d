package memdb

import (
	"context"
	"fmt"
	"sort"

	"eventtts/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (d *DB) InsertOrder(_ context.Context, o *models.Order) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.orders {
		if existing.StripeID == o.StripeID {
			return fmt.Errorf("order for payment %s: %w", o.StripeID, models.ErrConflict)
		}
	}
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	stored := *o
	d.orders[o.ID] = &stored
	return nil
}

func (d *DB) FindOrderByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	o, ok := d.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id.Hex(), models.ErrNotFound)
	}
	out := *o
	return &out, nil
}

func (d *DB) FindOrderByPaymentRef(_ context.Context, ref string) (*models.Order, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, o := range d.orders {
		if o.StripeID == ref {
			out := *o
			return &out, nil
		}
	}
	return nil, fmt.Errorf("order %s: %w", ref, models.ErrNotFound)
}

func (d *DB) selectOrders(keep func(*models.Order) bool) []models.Order {
	var out []models.Order
	for _, o := range d.orders {
		if keep(o) {
			out = append(out, *o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out
}

func (d *DB) FindOrdersByBuyer(_ context.Context, buyerID primitive.ObjectID, skip, limit int64) ([]models.Order, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.selectOrders(func(o *models.Order) bool { return o.Buyer == buyerID })
	if skip >= int64(len(out)) {
		return nil, nil
	}
	out = out[skip:]
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (d *DB) CountOrdersByBuyer(_ context.Context, buyerID primitive.ObjectID) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var n int64
	for _, o := range d.orders {
		if o.Buyer == buyerID {
			n++
		}
	}
	return n, nil
}

func (d *DB) FindOrdersByEvent(_ context.Context, eventID primitive.ObjectID) ([]models.Order, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selectOrders(func(o *models.Order) bool {
		return o.Event == eventID || o.LedgerEvent == eventID
	}), nil
}

func (d *DB) StatsForEvent(_ context.Context, eventID primitive.ObjectID) (models.OrderStats, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var s models.OrderStats
	for _, o := range d.orders {
		if o.Event == eventID || o.LedgerEvent == eventID {
			s.TotalOrders++
			s.TotalTickets += o.TotalTickets
			s.TotalRevenue += o.TotalAmount
		}
	}
	return s, nil
}

func (d *DB) DeleteOrdersByEvents(_ context.Context, eventIDs []primitive.ObjectID) error {
	gone := idSet(eventIDs)
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, o := range d.orders {
		if gone[o.Event] {
			delete(d.orders, id)
		}
	}
	return nil
}

func (d *DB) DeleteOrdersByBuyer(_ context.Context, buyerID primitive.ObjectID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, o := range d.orders {
		if o.Buyer == buyerID {
			delete(d.orders, id)
		}
	}
	return nil
}
