package events

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"eventtts/config"
	"eventtts/models"
	"eventtts/mq"
	"eventtts/taxonomy"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func (s *Service) requireOrganizer(ctx context.Context, id, requesterID primitive.ObjectID) (*models.Event, error) {
	ev, err := s.events.FindEventByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ev.Organizer != requesterID {
		return nil, fmt.Errorf("%w: only the organizer can change event %s", models.ErrUnauthorized, id.Hex())
	}
	return ev, nil
}

// Update applies an organizer's edit. Commercial fields of a sub-event are
// ignored because they are read from the parent.
func (s *Service) Update(ctx context.Context, id, requesterID primitive.ObjectID, in UpdateInput) (*models.EventView, error) {
	ev, err := s.requireOrganizer(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var (
		nextCap   models.Capacity
		resizeCap bool
	)
	if !ev.IsSubEvent() {
		if nextCap, resizeCap, err = in.capacityChange(ev.Capacity()); err != nil {
			return nil, err
		}
	}

	u := models.EventUpdate{
		Title:       trimmed(in.Title),
		Description: in.Description,
		Photo:       in.Photo,
		IsOnline:    in.IsOnline,
		Location:    in.Location,
		Landmark:    in.Landmark,
		URL:         in.URL,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		Duration:    in.Duration,
	}
	if u.Title != nil && *u.Title != ev.Title {
		sl := makeSlug(*u.Title, ev.ID)
		u.Slug = &sl
	}
	if !ev.IsSubEvent() {
		u.IsFree = in.IsFree
		u.Price = in.Price
		if in.IsFree != nil && *in.IsFree {
			zero := 0.0
			u.Price = &zero
		}
	}

	if in.Category != nil {
		cat, err := s.taxonomy.ResolveCategory(ctx, *in.Category)
		if err != nil {
			return nil, err
		}
		u.Category = &cat.ID
	}

	var newTags []primitive.ObjectID
	retag := in.Tags != nil && !ev.IsSubEvent()
	if retag {
		tags, err := s.taxonomy.ResolveTags(ctx, *in.Tags)
		if err != nil {
			return nil, err
		}
		newTags = taxonomy.TagIDs(tags)
		u.Tags = &newTags
	}

	if !u.Empty() {
		if err := s.events.UpdateEventFields(ctx, id, u); err != nil {
			return nil, fmt.Errorf("update event: %w", err)
		}
	}

	if retag {
		if err := s.taxonomy.Unlink(ctx, id); err != nil {
			return nil, fmt.Errorf("unlink tags: %w", err)
		}
		if err := s.taxonomy.Link(ctx, newTags, id); err != nil {
			return nil, fmt.Errorf("link tags: %w", err)
		}
	}

	if resizeCap {
		if err := s.resize(ctx, ev, nextCap); err != nil {
			return nil, err
		}
	}

	s.invalidateFamily(ctx, ev)
	return s.Get(ctx, id)
}

// resize changes the pool of a main event and mirrors the result onto its
// children.
func (s *Service) resize(ctx context.Context, ev *models.Event, c models.Capacity) error {
	updated, err := s.events.ResizeCapacity(ctx, ev.ID, c)
	if err != nil {
		return fmt.Errorf("resize capacity: %w", err)
	}
	if len(ev.SubEvents) > 0 {
		if err := s.events.MirrorTickets(ctx, ev.ID, updated.TicketsLeft, updated.SoldOut); err != nil {
			s.log.Warn("mirror after resize failed", zap.String("eventId", ev.ID.Hex()), zap.Error(err))
		}
	}
	if s.live != nil {
		msg := mq.InventoryUpdate{
			EventIDs:    append([]primitive.ObjectID{ev.ID}, ev.SubEvents...),
			TicketsLeft: updated.TicketsLeft,
			SoldOut:     updated.SoldOut,
		}
		if err := s.live.Publish(ctx, msg); err != nil {
			s.log.Warn("publish inventory update failed", zap.Error(err))
		}
	}
	s.log.Info("capacity changed",
		zap.String("eventId", ev.ID.Hex()),
		zap.String("mode", string(c.Mode)),
		zap.Int("total", c.Total),
		zap.Int("ticketsLeft", updated.TicketsLeft))
	return nil
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	t := strings.TrimSpace(*p)
	return &t
}

// invalidateFamily drops the cached views of ev, its parent and its children.
func (s *Service) invalidateFamily(ctx context.Context, ev *models.Event) {
	ids := []primitive.ObjectID{ev.ID}
	if ev.IsSubEvent() {
		ids = append(ids, *ev.ParentEvent)
	} else {
		ids = append(ids, ev.SubEvents...)
	}
	s.Invalidate(ctx, ids...)
}

// Delete removes an event along with every reference to it. Children of a
// main event are deleted or promoted according to the sub-event policy.
func (s *Service) Delete(ctx context.Context, id, requesterID primitive.ObjectID) error {
	ev, err := s.requireOrganizer(ctx, id, requesterID)
	if err != nil {
		return err
	}

	doomed := []primitive.ObjectID{ev.ID}
	promote := false
	if !ev.IsSubEvent() {
		subs, err := s.events.FindSubEvents(ctx, ev.ID)
		if err != nil {
			return fmt.Errorf("find sub-events: %w", err)
		}
		if s.policy == config.PolicyPromote {
			promote = len(subs) > 0
		} else {
			for _, sub := range subs {
				doomed = append(doomed, sub.ID)
			}
		}
	}

	if promote {
		if err := s.events.PromoteSubEvents(ctx, *ev); err != nil {
			return fmt.Errorf("promote sub-events: %w", err)
		}
	}
	if ev.IsSubEvent() {
		if err := s.detachFromParent(ctx, ev); err != nil {
			return err
		}
	}
	if err := s.events.DeleteEventsByIDs(ctx, doomed[1:]); err != nil {
		return fmt.Errorf("delete sub-events: %w", err)
	}
	if err := s.events.DeleteEvent(ctx, ev.ID); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}

	// References go only once the documents are gone, so a failed delete
	// leaves the event whole.
	if err := s.taxonomy.Unlink(ctx, doomed...); err != nil {
		return fmt.Errorf("unlink tags: %w", err)
	}
	if err := s.users.PullLikedEvents(ctx, doomed); err != nil {
		return fmt.Errorf("pull likes: %w", err)
	}
	if err := s.orders.DeleteOrdersByEvents(ctx, doomed); err != nil {
		return fmt.Errorf("delete orders: %w", err)
	}

	s.invalidateFamily(ctx, ev)
	s.Invalidate(ctx, doomed...)
	s.log.Info("event deleted",
		zap.String("eventId", ev.ID.Hex()),
		zap.Int("removed", len(doomed)),
		zap.Bool("promoted", promote))
	return nil
}

func (s *Service) detachFromParent(ctx context.Context, sub *models.Event) error {
	parent, err := s.events.FindEventByID(ctx, *sub.ParentEvent)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	remaining := slices.DeleteFunc(slices.Clone(parent.SubEvents), func(id primitive.ObjectID) bool {
		return id == sub.ID
	})
	if err := s.events.SetSubEvents(ctx, parent.ID, remaining); err != nil {
		return fmt.Errorf("detach sub-event: %w", err)
	}
	return nil
}

// DeleteByOrganizer removes every event a user organizes. Used when the
// account itself is deleted.
func (s *Service) DeleteByOrganizer(ctx context.Context, organizerID primitive.ObjectID) (int, error) {
	ids, err := s.events.FindEventIDsByOrganizer(ctx, organizerID)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, id := range ids {
		err := s.Delete(ctx, id, organizerID)
		if errors.Is(err, models.ErrNotFound) {
			// already gone with its parent
			continue
		}
		if err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// CompletePastEvents marks published events that ended before now.
func (s *Service) CompletePastEvents(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.events.MarkCompleted(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("mark completed: %w", err)
	}
	return n, nil
}
