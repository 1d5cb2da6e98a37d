package events

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"eventtts/models"
	"eventtts/rdx"
	"eventtts/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Get returns the populated event. A sub-event is overlaid with its
// parent's commercial fields; a main event comes with its overlaid children.
func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*models.EventView, error) {
	key := rdx.EventKey(id.Hex())
	var cached models.EventView
	if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	} else if hit {
		return &cached, nil
	}

	ev, err := s.events.FindEventByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var view models.EventView
	if ev.IsSubEvent() {
		self := *ev
		parent, err := s.events.FindEventByID(ctx, *ev.ParentEvent)
		switch {
		case err == nil:
			self = models.Overlay(self, *parent)
		case errors.Is(err, models.ErrNotFound):
			s.log.Warn("sub-event has no parent", zap.String("eventId", id.Hex()))
		default:
			return nil, err
		}
		views, err := s.populate(ctx, []models.Event{self})
		if err != nil {
			return nil, err
		}
		view = views[0]
	} else {
		subs, err := s.events.FindSubEvents(ctx, ev.ID)
		if err != nil {
			return nil, err
		}
		for i := range subs {
			subs[i] = models.Overlay(subs[i], *ev)
		}
		views, err := s.populate(ctx, append([]models.Event{*ev}, subs...))
		if err != nil {
			return nil, err
		}
		view = views[0]
		view.SubEvents = views[1:]
	}

	if err := s.cache.Set(ctx, key, view, s.cacheTTL); err != nil {
		s.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return &view, nil
}

// ListParams are the query-string filters of the public listing.
type ListParams struct {
	Search   string
	Category string
	Page     int
	Limit    int
}

func (p *ListParams) normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageSize
	}
}

// List returns main events matching the search text and category name.
// An unknown category name yields an empty page.
func (s *Service) List(ctx context.Context, p ListParams) (*models.EventPage, error) {
	p.normalize()
	q := models.EventQuery{
		Search:   p.Search,
		MainOnly: true,
		Skip:     int64((p.Page - 1) * p.Limit),
		Limit:    int64(p.Limit),
	}
	if p.Category != "" {
		cat, err := s.taxonomy.FindCategory(ctx, p.Category)
		if errors.Is(err, models.ErrNotFound) {
			return &models.EventPage{Events: []models.EventView{}}, nil
		}
		if err != nil {
			return nil, err
		}
		q.CategoryID = &cat.ID
	}
	return s.page(ctx, q, p.Limit)
}

// ByOrganizer lists the main events a user organizes, newest first.
func (s *Service) ByOrganizer(ctx context.Context, organizerID primitive.ObjectID, page, limit int) (*models.EventPage, error) {
	p := ListParams{Page: page, Limit: limit}
	p.normalize()
	q := models.EventQuery{
		OrganizerID: &organizerID,
		MainOnly:    true,
		Skip:        int64((p.Page - 1) * p.Limit),
		Limit:       int64(p.Limit),
	}
	return s.page(ctx, q, p.Limit)
}

func (s *Service) page(ctx context.Context, q models.EventQuery, limit int) (*models.EventPage, error) {
	count, err := s.events.CountEvents(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	found, err := s.events.FindEvents(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	views, err := s.populate(ctx, found)
	if err != nil {
		return nil, err
	}
	return &models.EventPage{Events: views, TotalPages: utils.TotalPages(count, limit)}, nil
}

// ByCategory returns every event in a category, sub-events included.
func (s *Service) ByCategory(ctx context.Context, categoryID primitive.ObjectID) ([]models.EventView, error) {
	found, err := s.events.FindEvents(ctx, models.EventQuery{CategoryID: &categoryID})
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	if found, err = s.overlayAll(ctx, found); err != nil {
		return nil, err
	}
	return s.populate(ctx, found)
}

// Related returns up to three other main events sharing the category or a tag.
func (s *Service) Related(ctx context.Context, id primitive.ObjectID) ([]models.EventView, error) {
	ev, err := s.events.FindEventByID(ctx, id)
	if err != nil {
		return nil, err
	}
	found, err := s.events.FindEvents(ctx, models.EventQuery{
		MainOnly:  true,
		ExcludeID: &ev.ID,
		Related:   &models.RelatedFilter{CategoryID: ev.Category, TagIDs: ev.Tags},
		Limit:     relatedLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("find related: %w", err)
	}
	return s.populate(ctx, found)
}

// Views populates events by id, overlaying sub-events. Missing ids are skipped.
func (s *Service) Views(ctx context.Context, ids []primitive.ObjectID) ([]models.EventView, error) {
	found, err := s.events.FindEventsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if found, err = s.overlayAll(ctx, found); err != nil {
		return nil, err
	}
	return s.populate(ctx, found)
}

// overlayAll applies each sub-event's parent, fetching all parents at once.
func (s *Service) overlayAll(ctx context.Context, evs []models.Event) ([]models.Event, error) {
	var parentIDs []primitive.ObjectID
	for i := range evs {
		if evs[i].IsSubEvent() {
			parentIDs = append(parentIDs, *evs[i].ParentEvent)
		}
	}
	if len(parentIDs) == 0 {
		return evs, nil
	}
	parents, err := s.events.FindEventsByIDs(ctx, parentIDs)
	if err != nil {
		return nil, fmt.Errorf("find parents: %w", err)
	}
	byID := make(map[primitive.ObjectID]models.Event, len(parents))
	for _, p := range parents {
		byID[p.ID] = p
	}
	for i := range evs {
		if !evs[i].IsSubEvent() {
			continue
		}
		if p, ok := byID[*evs[i].ParentEvent]; ok {
			evs[i] = models.Overlay(evs[i], p)
		}
	}
	return evs, nil
}

// populate resolves category, tag and organizer references in three batched
// lookups.
func (s *Service) populate(ctx context.Context, evs []models.Event) ([]models.EventView, error) {
	views := make([]models.EventView, len(evs))
	if len(evs) == 0 {
		return views, nil
	}

	var catIDs, tagIDs, userIDs []primitive.ObjectID
	for _, e := range evs {
		if !e.Category.IsZero() {
			catIDs = append(catIDs, e.Category)
		}
		tagIDs = append(tagIDs, e.Tags...)
		userIDs = append(userIDs, e.Organizer)
	}

	cats, err := s.taxonomy.CategoriesByIDs(ctx, catIDs)
	if err != nil {
		return nil, fmt.Errorf("populate categories: %w", err)
	}
	tags, err := s.taxonomy.TagsByIDs(ctx, tagIDs)
	if err != nil {
		return nil, fmt.Errorf("populate tags: %w", err)
	}
	users, err := s.users.FindUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("populate organizers: %w", err)
	}

	catByID := make(map[primitive.ObjectID]*models.CategoryRef, len(cats))
	for _, c := range cats {
		catByID[c.ID] = &models.CategoryRef{ID: c.ID, Name: c.Name}
	}
	tagByID := make(map[primitive.ObjectID]models.TagRef, len(tags))
	for _, t := range tags {
		tagByID[t.ID] = models.TagRef{ID: t.ID, Name: t.Name}
	}
	userByID := make(map[primitive.ObjectID]*models.UserSummary, len(users))
	for i := range users {
		userByID[users[i].ID] = users[i].Summary()
	}

	for i, e := range evs {
		v := models.EventView{
			Event:     e,
			Category:  catByID[e.Category],
			Tags:      make([]models.TagRef, 0, len(e.Tags)),
			Organizer: userByID[e.Organizer],
		}
		for _, id := range e.Tags {
			if t, ok := tagByID[id]; ok {
				v.Tags = append(v.Tags, t)
			}
		}
		views[i] = v
	}
	return views, nil
}

// LikedBy reports whether userID has the event in their likes.
func (s *Service) LikedBy(ctx context.Context, userID, eventID primitive.ObjectID) (bool, error) {
	u, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return slices.Contains(u.LikedEvents, eventID), nil
}
