package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eventtts/models"
	"eventtts/taxonomy"

	"github.com/gosimple/slug"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// makeSlug suffixes the title slug with the tail of the id, which keeps it
// unique without a lookup.
func makeSlug(title string, id primitive.ObjectID) string {
	hex := id.Hex()
	base := slug.Make(title)
	if base == "" {
		return hex[len(hex)-8:]
	}
	return base + "-" + hex[len(hex)-8:]
}

// Create persists a main event and its sub-events. The writes are not one
// transaction; if any of them fails the documents already written are
// removed before the error is returned.
func (s *Service) Create(ctx context.Context, organizerID primitive.ObjectID, in EventInput) (*models.EventView, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.users.FindUserByID(ctx, organizerID); err != nil {
		return nil, fmt.Errorf("organizer: %w", err)
	}

	cat, err := s.taxonomy.ResolveCategory(ctx, in.Category)
	if err != nil {
		return nil, err
	}
	tags, err := s.taxonomy.ResolveTags(ctx, in.Tags)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	main := models.Event{
		ID:          primitive.NewObjectID(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Photo:       in.Photo,
		IsOnline:    in.IsOnline,
		Location:    in.Location,
		Landmark:    in.Landmark,
		URL:         in.URL,
		StartDate:   in.StartDate.UTC(),
		EndDate:     in.EndDate.UTC(),
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		Duration:    in.Duration,
		IsFree:      in.IsFree,
		Price:       in.Price,
		Category:    cat.ID,
		Tags:        taxonomy.TagIDs(tags),
		Organizer:   organizerID,
		EventType:   models.EventTypeMain,
		Status:      models.StatusPublished,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if main.IsFree {
		main.Price = 0
	}
	main.Slug = makeSlug(main.Title, main.ID)
	main.SetCapacity(in.Capacity())

	if err := s.events.InsertEvent(ctx, &main); err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	written := []primitive.ObjectID{main.ID}
	fail := func(err error) (*models.EventView, error) {
		s.rollbackCreate(ctx, written)
		return nil, err
	}

	subIDs := make([]primitive.ObjectID, 0, len(in.SubEvents))
	for i := range in.SubEvents {
		sub, err := s.newSubEvent(ctx, &main, &in.SubEvents[i], now)
		if err != nil {
			return fail(err)
		}
		if err := s.events.InsertEvent(ctx, sub); err != nil {
			return fail(fmt.Errorf("insert sub-event %d: %w", i, err))
		}
		written = append(written, sub.ID)
		subIDs = append(subIDs, sub.ID)
	}
	if len(subIDs) > 0 {
		if err := s.events.SetSubEvents(ctx, main.ID, subIDs); err != nil {
			return fail(fmt.Errorf("link sub-events: %w", err))
		}
	}
	if err := s.taxonomy.Link(ctx, main.Tags, main.ID); err != nil {
		return fail(fmt.Errorf("link tags: %w", err))
	}

	s.log.Info("event created",
		zap.String("eventId", main.ID.Hex()),
		zap.String("organizer", organizerID.Hex()),
		zap.Int("subEvents", len(subIDs)))

	return s.Get(ctx, main.ID)
}

func (s *Service) newSubEvent(ctx context.Context, parent *models.Event, in *SubEventInput, now time.Time) (*models.Event, error) {
	categoryID := parent.Category
	if strings.TrimSpace(in.Category) != "" {
		cat, err := s.taxonomy.ResolveCategory(ctx, in.Category)
		if err != nil {
			return nil, err
		}
		categoryID = cat.ID
	}

	photo := in.Photo
	if photo == "" {
		photo = parent.Photo
	}

	parentID := parent.ID
	sub := &models.Event{
		ID:          primitive.NewObjectID(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Photo:       photo,
		IsOnline:    in.IsOnline,
		Location:    in.Location,
		Landmark:    in.Landmark,
		URL:         in.URL,
		StartDate:   in.StartDate.UTC(),
		EndDate:     in.EndDate.UTC(),
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		Duration:    in.Duration,
		IsFree:      parent.IsFree,
		Price:       parent.Price,
		Category:    categoryID,
		Tags:        []primitive.ObjectID{},
		Organizer:   parent.Organizer,
		ParentEvent: &parentID,
		EventType:   models.EventTypeSub,
		Status:      models.StatusPublished,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if sub.Location == "" && !sub.IsOnline {
		sub.Location = parent.Location
		sub.Landmark = parent.Landmark
	}
	sub.Slug = makeSlug(sub.Title, sub.ID)
	sub.SetCapacity(models.Untracked())
	return sub, nil
}

func (s *Service) rollbackCreate(ctx context.Context, ids []primitive.ObjectID) {
	ctx = context.WithoutCancel(ctx)
	if err := s.events.DeleteEventsByIDs(ctx, ids); err != nil {
		s.log.Error("rollback of partial event create failed",
			zap.Int("documents", len(ids)), zap.Error(err))
	}
	if err := s.taxonomy.Unlink(ctx, ids...); err != nil {
		s.log.Warn("rollback tag unlink failed", zap.Error(err))
	}
}
