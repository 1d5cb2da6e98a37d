// Package memdb keeps every store in process memory. It backs the memory
// store driver and the service tests, and follows the same atomicity rules as
// the Mongo repositories: each method holds the lock for its whole write.
package memdb

import (
	"sync"

	"eventtts/models"
	"eventtts/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DB struct {
	mu         sync.Mutex
	events     map[primitive.ObjectID]*models.Event
	categories map[primitive.ObjectID]*models.Category
	tags       map[primitive.ObjectID]*models.Tag
	users      map[primitive.ObjectID]*models.User
	orders     map[primitive.ObjectID]*models.Order
	reports    map[primitive.ObjectID]*models.Report
}

func New() *DB {
	return &DB{
		events:     make(map[primitive.ObjectID]*models.Event),
		categories: make(map[primitive.ObjectID]*models.Category),
		tags:       make(map[primitive.ObjectID]*models.Tag),
		users:      make(map[primitive.ObjectID]*models.User),
		orders:     make(map[primitive.ObjectID]*models.Order),
		reports:    make(map[primitive.ObjectID]*models.Report),
	}
}

func (d *DB) Stores() repository.Stores {
	return repository.Stores{
		Events:   d,
		Taxonomy: d,
		Users:    d,
		Orders:   d,
		Reports:  d,
	}
}

var (
	_ repository.EventStore    = (*DB)(nil)
	_ repository.TaxonomyStore = (*DB)(nil)
	_ repository.UserStore     = (*DB)(nil)
	_ repository.OrderStore    = (*DB)(nil)
	_ repository.ReportStore   = (*DB)(nil)
)

func cloneIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	if ids == nil {
		return nil
	}
	out := make([]primitive.ObjectID, len(ids))
	copy(out, ids)
	return out
}

func cloneEvent(e *models.Event) models.Event {
	out := *e
	out.Tags = cloneIDs(e.Tags)
	out.SubEvents = cloneIDs(e.SubEvents)
	out.Attendees = cloneIDs(e.Attendees)
	if e.ParentEvent != nil {
		p := *e.ParentEvent
		out.ParentEvent = &p
	}
	return out
}

func idSet(ids []primitive.ObjectID) map[primitive.ObjectID]bool {
	set := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
