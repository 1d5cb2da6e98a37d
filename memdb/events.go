package memdb

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"eventtts/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func eventNotFound(id primitive.ObjectID) error {
	return fmt.Errorf("event %s: %w", id.Hex(), models.ErrNotFound)
}

func (d *DB) InsertEvent(_ context.Context, e *models.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if _, ok := d.events[e.ID]; ok {
		return fmt.Errorf("event %s: %w", e.ID.Hex(), models.ErrConflict)
	}
	stored := cloneEvent(e)
	d.events[e.ID] = &stored
	return nil
}

func (d *DB) FindEventByID(_ context.Context, id primitive.ObjectID) (*models.Event, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.events[id]
	if !ok {
		return nil, eventNotFound(id)
	}
	out := cloneEvent(e)
	return &out, nil
}

func (d *DB) FindEventsByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Event, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []models.Event
	for _, id := range ids {
		if e, ok := d.events[id]; ok {
			out = append(out, cloneEvent(e))
		}
	}
	sortNewest(out)
	return out, nil
}

func matchesSearch(e *models.Event, search string) bool {
	needle := strings.ToLower(search)
	for _, field := range []string{e.Title, e.Description, e.Location, e.Landmark} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func matches(e *models.Event, q models.EventQuery) bool {
	if q.MainOnly && e.IsSubEvent() {
		return false
	}
	if q.CategoryID != nil && e.Category != *q.CategoryID {
		return false
	}
	if q.OrganizerID != nil && e.Organizer != *q.OrganizerID {
		return false
	}
	if q.ExcludeID != nil && e.ID == *q.ExcludeID {
		return false
	}
	if q.Search != "" && !matchesSearch(e, q.Search) {
		return false
	}
	if q.Related != nil {
		related := e.Category == q.Related.CategoryID
		for _, t := range q.Related.TagIDs {
			if slices.Contains(e.Tags, t) {
				related = true
				break
			}
		}
		if !related {
			return false
		}
	}
	return true
}

func sortNewest(events []models.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].CreatedAt.After(events[j].CreatedAt)
		}
		return events[i].ID.Hex() > events[j].ID.Hex()
	})
}

func (d *DB) selectEvents(q models.EventQuery) []models.Event {
	var out []models.Event
	for _, e := range d.events {
		if matches(e, q) {
			out = append(out, cloneEvent(e))
		}
	}
	sortNewest(out)
	return out
}

func (d *DB) FindEvents(_ context.Context, q models.EventQuery) ([]models.Event, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.selectEvents(q)
	if q.Skip > 0 {
		if q.Skip >= int64(len(out)) {
			return nil, nil
		}
		out = out[q.Skip:]
	}
	if q.Limit > 0 && int64(len(out)) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (d *DB) CountEvents(_ context.Context, q models.EventQuery) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.selectEvents(q))), nil
}

func (d *DB) subEventsLocked(parentID primitive.ObjectID) []models.Event {
	var out []models.Event
	for _, e := range d.events {
		if e.ParentEvent != nil && *e.ParentEvent == parentID {
			out = append(out, cloneEvent(e))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out
}

func (d *DB) FindSubEvents(_ context.Context, parentID primitive.ObjectID) ([]models.Event, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.subEventsLocked(parentID), nil
}

func (d *DB) SetSubEvents(_ context.Context, parentID primitive.ObjectID, subIDs []primitive.ObjectID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.events[parentID]
	if !ok {
		return eventNotFound(parentID)
	}
	e.SubEvents = cloneIDs(subIDs)
	e.UpdatedAt = time.Now()
	return nil
}

func (d *DB) UpdateEventFields(_ context.Context, id primitive.ObjectID, u models.EventUpdate) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.events[id]
	if !ok {
		return eventNotFound(id)
	}
	applyUpdate(e, u)
	e.UpdatedAt = time.Now()
	return nil
}

func applyUpdate(e *models.Event, u models.EventUpdate) {
	if u.Title != nil {
		e.Title = *u.Title
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	if u.Photo != nil {
		e.Photo = *u.Photo
	}
	if u.Slug != nil {
		e.Slug = *u.Slug
	}
	if u.IsOnline != nil {
		e.IsOnline = *u.IsOnline
	}
	if u.Location != nil {
		e.Location = *u.Location
	}
	if u.Landmark != nil {
		e.Landmark = *u.Landmark
	}
	if u.URL != nil {
		e.URL = *u.URL
	}
	if u.StartDate != nil {
		e.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		e.EndDate = *u.EndDate
	}
	if u.StartTime != nil {
		e.StartTime = *u.StartTime
	}
	if u.EndTime != nil {
		e.EndTime = *u.EndTime
	}
	if u.Duration != nil {
		e.Duration = *u.Duration
	}
	if u.IsFree != nil {
		e.IsFree = *u.IsFree
	}
	if u.Price != nil {
		e.Price = *u.Price
	}
	if u.Category != nil {
		e.Category = *u.Category
	}
	if u.Tags != nil {
		e.Tags = cloneIDs(*u.Tags)
	}
	if u.Status != nil {
		e.Status = *u.Status
	}
}

func (d *DB) ResizeCapacity(_ context.Context, id primitive.ObjectID, c models.Capacity) (*models.Event, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.events[id]
	if !ok {
		return nil, eventNotFound(id)
	}
	if c.Tracked() && e.Capacity().Tracked() {
		e.TicketsLeft = models.Rebase(e.TicketsLeft, e.TotalCapacity, c.Total)
		e.TotalCapacity = c.Total
		e.CapacityMode = c.Mode
		e.SoldOut = models.IsSoldOut(c, e.TicketsLeft)
	} else {
		e.SetCapacity(c)
	}
	e.UpdatedAt = time.Now()
	out := cloneEvent(e)
	return &out, nil
}

func (d *DB) DeleteEvent(_ context.Context, id primitive.ObjectID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.events[id]; !ok {
		return eventNotFound(id)
	}
	delete(d.events, id)
	return nil
}

func (d *DB) DeleteSubEvents(_ context.Context, parentID primitive.ObjectID) ([]primitive.ObjectID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var ids []primitive.ObjectID
	for _, s := range d.subEventsLocked(parentID) {
		delete(d.events, s.ID)
		ids = append(ids, s.ID)
	}
	return ids, nil
}

func (d *DB) PromoteSubEvents(_ context.Context, parent models.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.events {
		if e.ParentEvent != nil && *e.ParentEvent == parent.ID {
			e.ParentEvent = nil
			e.EventType = models.EventTypeMain
			e.Price = parent.Price
			e.IsFree = parent.IsFree
			if e.Photo == "" {
				e.Photo = parent.Photo
			}
			e.SetCapacity(models.Untracked())
			e.UpdatedAt = time.Now()
		}
	}
	return nil
}

func (d *DB) FindEventIDsByOrganizer(_ context.Context, organizerID primitive.ObjectID) ([]primitive.ObjectID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var ids []primitive.ObjectID
	for id, e := range d.events {
		if e.Organizer == organizerID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (d *DB) DeleteEventsByIDs(_ context.Context, ids []primitive.ObjectID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range ids {
		delete(d.events, id)
	}
	return nil
}

func (d *DB) DecrementTickets(_ context.Context, id primitive.ObjectID, qty int) (*models.Event, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.events[id]
	if !ok {
		return nil, eventNotFound(id)
	}
	c := e.Capacity()
	if !c.Tracked() {
		out := cloneEvent(e)
		return &out, nil
	}
	if e.TicketsLeft < qty {
		return nil, fmt.Errorf("event %s has %d tickets left, %d requested: %w",
			id.Hex(), e.TicketsLeft, qty, models.ErrInsufficientInventory)
	}
	e.TicketsLeft -= qty
	e.SoldOut = models.IsSoldOut(c, e.TicketsLeft)
	e.UpdatedAt = time.Now()
	out := cloneEvent(e)
	return &out, nil
}

func (d *DB) ReleaseTickets(_ context.Context, id primitive.ObjectID, qty int) (*models.Event, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.events[id]
	if !ok || !e.Capacity().Tracked() {
		return nil, eventNotFound(id)
	}
	e.TicketsLeft = min(e.TotalCapacity, e.TicketsLeft+qty)
	e.SoldOut = models.IsSoldOut(e.Capacity(), e.TicketsLeft)
	e.UpdatedAt = time.Now()
	out := cloneEvent(e)
	return &out, nil
}

func (d *DB) MirrorTickets(_ context.Context, parentID primitive.ObjectID, ticketsLeft int, soldOut bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.events {
		if e.ParentEvent != nil && *e.ParentEvent == parentID {
			e.TicketsLeft = ticketsLeft
			e.SoldOut = soldOut
		}
	}
	return nil
}

func (d *DB) LowerMirroredTickets(_ context.Context, parentID primitive.ObjectID, ticketsLeft int, soldOut bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.events {
		if e.ParentEvent == nil || *e.ParentEvent != parentID {
			continue
		}
		fresh := e.TicketsLeft <= 0 && !e.SoldOut
		if e.TicketsLeft > ticketsLeft || fresh {
			e.TicketsLeft = ticketsLeft
			e.SoldOut = soldOut
		}
	}
	return nil
}

func (d *DB) AddAttendee(_ context.Context, eventID, userID primitive.ObjectID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.events[eventID]
	if !ok {
		return nil
	}
	if !slices.Contains(e.Attendees, userID) {
		e.Attendees = append(e.Attendees, userID)
	}
	return nil
}

func (d *DB) MarkCompleted(_ context.Context, endedBefore time.Time) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var n int64
	for _, e := range d.events {
		if e.Status == models.StatusPublished && e.EndDate.Before(endedBefore) {
			e.Status = models.StatusCompleted
			e.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}
