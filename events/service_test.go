package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"eventtts/config"
	"eventtts/memdb"
	"eventtts/models"
	"eventtts/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newTestService(t *testing.T, policy string) (*Service, *memdb.DB, *models.User) {
	t.Helper()
	d := memdb.New()
	svc := NewService(Options{
		Stores:         d.Stores(),
		SubEventPolicy: policy,
		Logger:         zap.NewNop(),
	})
	organizer, err := d.UpsertUser(context.Background(), &models.User{ClerkID: "user_org", Username: "org"})
	require.NoError(t, err)
	return svc, d, organizer
}

func sampleInput() EventInput {
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	return EventInput{
		Title:         "Spring Tech Fest",
		Description:   "Talks and demos",
		Photo:         "/uploads/fest.jpg",
		Location:      "Main Auditorium",
		StartDate:     start,
		EndDate:       start.Add(8 * time.Hour),
		Price:         150,
		TotalCapacity: 5,
		Category:      "Technology",
		Tags:          []string{"AI", "Robotics"},
	}
}

func withSubEvent(in EventInput) EventInput {
	in.SubEvents = []SubEventInput{{
		Title:     "Robotics Workshop",
		StartDate: in.StartDate.Add(time.Hour),
		EndDate:   in.StartDate.Add(3 * time.Hour),
	}}
	return in
}

func TestCreateMainWithSubEvents(t *testing.T) {
	svc, d, org := newTestService(t, config.PolicyCascade)
	ctx := context.Background()

	view, err := svc.Create(ctx, org.ID, withSubEvent(sampleInput()))
	require.NoError(t, err)

	assert.Equal(t, models.CapacityFinite, view.CapacityMode)
	assert.Equal(t, 5, view.TicketsLeft)
	assert.Equal(t, "Technology", view.Category.Name)
	assert.Len(t, view.Tags, 2)
	assert.Equal(t, "org", view.Organizer.Username)
	assert.NotEmpty(t, view.Slug)
	require.Len(t, view.SubEvents, 1)

	sub, err := d.FindEventByID(ctx, view.SubEvents[0].ID)
	require.NoError(t, err)
	assert.Equal(t, view.ID, *sub.ParentEvent)
	assert.Equal(t, models.EventTypeSub, sub.EventType)
	assert.Equal(t, 0, sub.TotalCapacity)
	assert.Equal(t, 0, sub.TicketsLeft)
	assert.Equal(t, "/uploads/fest.jpg", sub.Photo)
	assert.Equal(t, org.ID, sub.Organizer)
	assert.Equal(t, view.Event.Category, sub.Category)

	main, err := d.FindEventByID(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{sub.ID}, main.SubEvents)

	tags, err := d.ListTags(ctx)
	require.NoError(t, err)
	for _, tag := range tags {
		assert.Equal(t, []primitive.ObjectID{view.ID}, tag.Events)
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc, d, org := newTestService(t, config.PolicyCascade)
	in := sampleInput()
	in.Title = ""

	_, err := svc.Create(context.Background(), org.ID, in)
	assert.ErrorIs(t, err, models.ErrValidation)

	n, err := d.CountEvents(context.Background(), models.EventQuery{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

// flakyEvents fails every InsertEvent after the first okInserts.
type flakyEvents struct {
	repository.EventStore
	okInserts int
	inserts   int
}

func (f *flakyEvents) InsertEvent(ctx context.Context, e *models.Event) error {
	f.inserts++
	if f.inserts > f.okInserts {
		return errors.New("disk full")
	}
	return f.EventStore.InsertEvent(ctx, e)
}

func TestCreateFailureRollsBack(t *testing.T) {
	d := memdb.New()
	ctx := context.Background()
	stores := d.Stores()
	stores.Events = &flakyEvents{EventStore: d, okInserts: 1}
	svc := NewService(Options{Stores: stores, Logger: zap.NewNop()})

	org, err := d.UpsertUser(ctx, &models.User{ClerkID: "user_org"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, org.ID, withSubEvent(sampleInput()))
	require.Error(t, err)

	n, err := d.CountEvents(ctx, models.EventQuery{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGetSubEventOverlayIsIdempotent(t *testing.T) {
	svc, _, org := newTestService(t, config.PolicyCascade)
	ctx := context.Background()

	in := withSubEvent(sampleInput())
	in.SubEvents[0].Photo = "/uploads/workshop.jpg"
	main, err := svc.Create(ctx, org.ID, in)
	require.NoError(t, err)

	subID := main.SubEvents[0].ID
	first, err := svc.Get(ctx, subID)
	require.NoError(t, err)
	second, err := svc.Get(ctx, subID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, main.Photo, first.Photo)
	assert.Equal(t, main.Price, first.Price)
	assert.Equal(t, main.IsFree, first.IsFree)
	assert.Equal(t, main.TicketsLeft, first.TicketsLeft)
	assert.Equal(t, main.SoldOut, first.SoldOut)
	assert.Equal(t, "Robotics Workshop", first.Title)
}

func TestListSearchesMainEventsOnly(t *testing.T) {
	svc, _, org := newTestService(t, config.PolicyCascade)
	ctx := context.Background()

	_, err := svc.Create(ctx, org.ID, withSubEvent(sampleInput()))
	require.NoError(t, err)

	other := sampleInput()
	other.Title = "Classical Music Night"
	other.Location = "Open Air Theatre"
	other.Category = "Cultural"
	other.Tags = nil
	_, err = svc.Create(ctx, org.ID, other)
	require.NoError(t, err)

	page, err := svc.List(ctx, ListParams{Search: "workshop"})
	require.NoError(t, err)
	assert.Empty(t, page.Events)

	page, err = svc.List(ctx, ListParams{Search: "THEATRE"})
	require.NoError(t, err)
	require.Len(t, page.Events, 1)
	assert.Equal(t, "Classical Music Night", page.Events[0].Title)
	assert.Equal(t, 1, page.TotalPages)

	page, err = svc.List(ctx, ListParams{Category: "technology"})
	require.NoError(t, err)
	require.Len(t, page.Events, 1)
	assert.Equal(t, "Spring Tech Fest", page.Events[0].Title)

	page, err = svc.List(ctx, ListParams{Category: "Sports"})
	require.NoError(t, err)
	assert.Empty(t, page.Events)
	assert.Zero(t, page.TotalPages)

	page, err = svc.List(ctx, ListParams{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, page.Events, 1)
	assert.Equal(t, 2, page.TotalPages)
}

func TestRelatedExcludesSelf(t *testing.T) {
	svc, _, org := newTestService(t, config.PolicyCascade)
	ctx := context.Background()

	a, err := svc.Create(ctx, org.ID, sampleInput())
	require.NoError(t, err)

	b := sampleInput()
	b.Title = "AI Hack Night"
	b.Category = "Hackathon"
	b.Tags = []string{"ai"}
	_, err = svc.Create(ctx, org.ID, b)
	require.NoError(t, err)

	c := sampleInput()
	c.Title = "Poetry Slam"
	c.Category = "Literature"
	c.Tags = nil
	_, err = svc.Create(ctx, org.ID, c)
	require.NoError(t, err)

	related, err := svc.Related(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, "AI Hack Night", related[0].Title)
}

func TestUpdateByNonOrganizerIsUnauthorized(t *testing.T) {
	svc, d, org := newTestService(t, config.PolicyCascade)
	ctx := context.Background()

	view, err := svc.Create(ctx, org.ID, sampleInput())
	require.NoError(t, err)
	before, err := d.FindEventByID(ctx, view.ID)
	require.NoError(t, err)

	intruder, err := d.UpsertUser(ctx, &models.User{ClerkID: "user_x"})
	require.NoError(t, err)

	title := "Hijacked"
	_, err = svc.Update(ctx, view.ID, intruder.ID, UpdateInput{Title: &title})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	after, err := d.FindEventByID(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRejectedUpdateLeavesEventUnchanged(t *testing.T) {
	svc, d, org := newTestService(t, config.PolicyCascade)
	ctx := context.Background()

	view, err := svc.Create(ctx, org.ID, sampleInput())
	require.NoError(t, err)
	before, err := d.FindEventByID(ctx, view.ID)
	require.NoError(t, err)
	tagsBefore, err := d.ListTags(ctx)
	require.NoError(t, err)

	title := "Renamed Fest"
	zero := 0
	tags := []string{"Drones"}
	_, err = svc.Update(ctx, view.ID, org.ID, UpdateInput{Title: &title, TotalCapacity: &zero, Tags: &tags})
	assert.ErrorIs(t, err, models.ErrValidation)

	after, err := d.FindEventByID(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, "Spring Tech Fest", after.Title)

	tagsAfter, err := d.ListTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, tagsBefore, tagsAfter)
}

func TestDeleteByNonOrganizerIsUnauthorized(t *testing.T) {
	svc, d, org := newTestService(t, config.PolicyCascade)
	ctx := context.Background()

	view, err := svc.Create(ctx, org.ID, withSubEvent(sampleInput()))
	require.NoError(t, err)
	before, err := d.FindEventByID(ctx, view.ID)
	require.NoError(t, err)

	intruder, err := d.UpsertUser(ctx, &models.User{ClerkID: "user_x"})
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Delete(ctx, view.ID, intruder.ID), models.ErrUnauthorized)

	after, err := d.FindEventByID(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	_, err = d.FindEventByID(ctx, view.SubEvents[0].ID)
	assert.NoError(t, err)
}

func TestUpdateRetagsAndRebasesCapacity(t *testing.T) {
	svc, d, org := newTestService(t, config.PolicyCascade)
	ctx := context.Background()

	view, err := svc.Create(ctx, org.ID, withSubEvent(sampleInput()))
	require.NoError(t, err)
	_, err = d.DecrementTickets(ctx, view.ID, 2)
	require.NoError(t, err)

	total := 10
	tags := []string{"Drones"}
	updated, err := svc.Update(ctx, view.ID, org.ID, UpdateInput{TotalCapacity: &total, Tags: &tags})
	require.NoError(t, err)

	assert.Equal(t, 10, updated.TotalCapacity)
	assert.Equal(t, 8, updated.TicketsLeft)
	require.Len(t, updated.Tags, 1)
	assert.Equal(t, "Drones", updated.Tags[0].Name)
	require.Len(t, updated.SubEvents, 1)
	assert.Equal(t, 8, updated.SubEvents[0].TicketsLeft)

	all, err := d.ListTags(ctx)
	require.NoError(t, err)
	for _, tag := range all {
		if tag.Name == "Drones" {
			assert.Equal(t, []primitive.ObjectID{view.ID}, tag.Events)
		} else {
			assert.Empty(t, tag.Events)
		}
	}
}

func TestDeleteCascades(t *testing.T) {
	svc, d, org := newTestService(t, config.PolicyCascade)
	ctx := context.Background()

	view, err := svc.Create(ctx, org.ID, withSubEvent(sampleInput()))
	require.NoError(t, err)
	subID := view.SubEvents[0].ID

	fan, err := d.UpsertUser(ctx, &models.User{ClerkID: "user_fan"})
	require.NoError(t, err)
	_, err = d.ToggleLike(ctx, fan.ID, view.ID)
	require.NoError(t, err)
	_, err = d.ToggleLike(ctx, fan.ID, subID)
	require.NoError(t, err)
	require.NoError(t, d.InsertOrder(ctx, &models.Order{StripeID: "cs_main", Event: view.ID, LedgerEvent: view.ID, Buyer: fan.ID}))
	require.NoError(t, d.InsertOrder(ctx, &models.Order{StripeID: "cs_sub", Event: subID, LedgerEvent: view.ID, Buyer: fan.ID}))

	require.NoError(t, svc.Delete(ctx, view.ID, org.ID))

	_, err = d.FindEventByID(ctx, view.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = d.FindEventByID(ctx, subID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	tags, err := d.ListTags(ctx)
	require.NoError(t, err)
	for _, tag := range tags {
		assert.Empty(t, tag.Events)
	}

	u, err := d.FindUserByID(ctx, fan.ID)
	require.NoError(t, err)
	assert.Empty(t, u.LikedEvents)

	orders, err := d.FindOrdersByBuyer(ctx, fan.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

// stuckEvents refuses to delete the event itself.
type stuckEvents struct {
	repository.EventStore
}

func (stuckEvents) DeleteEvent(context.Context, primitive.ObjectID) error {
	return errors.New("primary stepped down")
}

func TestFailedDeleteKeepsReferences(t *testing.T) {
	d := memdb.New()
	ctx := context.Background()
	stores := d.Stores()
	stores.Events = stuckEvents{EventStore: d}
	svc := NewService(Options{Stores: stores, Logger: zap.NewNop()})

	org, err := d.UpsertUser(ctx, &models.User{ClerkID: "user_org"})
	require.NoError(t, err)
	view, err := svc.Create(ctx, org.ID, sampleInput())
	require.NoError(t, err)

	fan, err := d.UpsertUser(ctx, &models.User{ClerkID: "user_fan"})
	require.NoError(t, err)
	_, err = d.ToggleLike(ctx, fan.ID, view.ID)
	require.NoError(t, err)
	require.NoError(t, d.InsertOrder(ctx, &models.Order{StripeID: "cs_kept", Event: view.ID, LedgerEvent: view.ID, Buyer: fan.ID}))

	require.Error(t, svc.Delete(ctx, view.ID, org.ID))

	_, err = d.FindEventByID(ctx, view.ID)
	require.NoError(t, err)
	u, err := d.FindUserByID(ctx, fan.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{view.ID}, u.LikedEvents)
	orders, err := d.FindOrdersByBuyer(ctx, fan.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
	tags, err := d.ListTags(ctx)
	require.NoError(t, err)
	for _, tag := range tags {
		assert.Equal(t, []primitive.ObjectID{view.ID}, tag.Events)
	}
}

func TestDeletePromotesSubEvents(t *testing.T) {
	svc, d, org := newTestService(t, config.PolicyPromote)
	ctx := context.Background()

	view, err := svc.Create(ctx, org.ID, withSubEvent(sampleInput()))
	require.NoError(t, err)
	subID := view.SubEvents[0].ID

	require.NoError(t, svc.Delete(ctx, view.ID, org.ID))

	sub, err := d.FindEventByID(ctx, subID)
	require.NoError(t, err)
	assert.False(t, sub.IsSubEvent())
	assert.Equal(t, models.EventTypeMain, sub.EventType)
	assert.Equal(t, 150.0, sub.Price)
	assert.Equal(t, models.CapacityUntracked, sub.CapacityMode)
}

func TestDeleteSubEventDetachesFromParent(t *testing.T) {
	svc, d, org := newTestService(t, config.PolicyCascade)
	ctx := context.Background()

	view, err := svc.Create(ctx, org.ID, withSubEvent(sampleInput()))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, view.SubEvents[0].ID, org.ID))

	main, err := d.FindEventByID(ctx, view.ID)
	require.NoError(t, err)
	assert.Empty(t, main.SubEvents)
}

func TestCreateWithSameNewCategoryIsIdempotent(t *testing.T) {
	t.Run("sequential", func(t *testing.T) {
		svc, d, org := newTestService(t, config.PolicyCascade)
		ctx := context.Background()
		for i := 0; i < 2; i++ {
			in := sampleInput()
			in.Category = "Robotics Club"
			_, err := svc.Create(ctx, org.ID, in)
			require.NoError(t, err)
		}
		cats, err := d.ListCategories(ctx)
		require.NoError(t, err)
		assert.Len(t, cats, 1)
	})

	t.Run("concurrent", func(t *testing.T) {
		svc, d, org := newTestService(t, config.PolicyCascade)
		ctx := context.Background()
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				in := sampleInput()
				in.Category = "robotics club"
				_, err := svc.Create(ctx, org.ID, in)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		cats, err := d.ListCategories(ctx)
		require.NoError(t, err)
		assert.Len(t, cats, 1)
	})
}

func TestCompletePastEvents(t *testing.T) {
	svc, d, org := newTestService(t, config.PolicyCascade)
	ctx := context.Background()

	view, err := svc.Create(ctx, org.ID, sampleInput())
	require.NoError(t, err)

	n, err := svc.CompletePastEvents(ctx, view.EndDate.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ev, err := d.FindEventByID(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, ev.Status)
}

func TestLikedBy(t *testing.T) {
	svc, d, org := newTestService(t, config.PolicyCascade)
	ctx := context.Background()

	view, err := svc.Create(ctx, org.ID, sampleInput())
	require.NoError(t, err)

	liked, err := svc.LikedBy(ctx, org.ID, view.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	_, err = d.ToggleLike(ctx, org.ID, view.ID)
	require.NoError(t, err)
	liked, err = svc.LikedBy(ctx, org.ID, view.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	_, err = svc.LikedBy(ctx, primitive.NewObjectID(), view.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
