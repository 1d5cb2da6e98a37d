package memdb

import (
	"context"
	"errors"
	"sync"
	"testing"

	"eventtts/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDecrementTicketsNeverOversells(t *testing.T) {
	d := New()
	ctx := context.Background()
	e := &models.Event{Title: "Fest"}
	e.SetCapacity(models.Finite(5))
	require.NoError(t, d.InsertEvent(ctx, e))

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, short := 0, 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.DecrementTickets(ctx, e.ID, 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, models.ErrInsufficientInventory):
				short++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	assert.Equal(t, 15, short)
	got, err := d.FindEventByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.TicketsLeft)
	assert.True(t, got.SoldOut)
}

func TestResizeCapacityRebases(t *testing.T) {
	d := New()
	ctx := context.Background()
	e := &models.Event{}
	e.SetCapacity(models.Finite(10))
	require.NoError(t, d.InsertEvent(ctx, e))
	_, err := d.DecrementTickets(ctx, e.ID, 4)
	require.NoError(t, err)

	got, err := d.ResizeCapacity(ctx, e.ID, models.Finite(20))
	require.NoError(t, err)
	assert.Equal(t, 16, got.TicketsLeft)
	assert.Equal(t, 20, got.TotalCapacity)
}

func TestLowerMirroredTicketsNeverRaises(t *testing.T) {
	d := New()
	ctx := context.Background()
	parent := &models.Event{Title: "Fest"}
	parent.SetCapacity(models.Finite(10))
	require.NoError(t, d.InsertEvent(ctx, parent))
	pid := parent.ID
	sub := &models.Event{Title: "Keynote", ParentEvent: &pid, EventType: models.EventTypeSub}
	require.NoError(t, d.InsertEvent(ctx, sub))

	steps := []struct {
		left    int
		soldOut bool
		want    int
	}{
		{7, false, 7}, // first mirror onto a fresh child
		{3, false, 3},
		{5, false, 3}, // late mirror of an earlier order
		{0, true, 0},
		{2, false, 0},
	}
	for _, st := range steps {
		require.NoError(t, d.LowerMirroredTickets(ctx, pid, st.left, st.soldOut))
		got, err := d.FindEventByID(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, st.want, got.TicketsLeft)
		assert.Equal(t, st.want == 0, got.SoldOut)
	}

	// resize and release still move the mirror up
	require.NoError(t, d.MirrorTickets(ctx, pid, 4, false))
	got, err := d.FindEventByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.TicketsLeft)
}

func TestToggleLike(t *testing.T) {
	d := New()
	ctx := context.Background()
	u, err := d.UpsertUser(ctx, &models.User{ClerkID: "user_1"})
	require.NoError(t, err)
	ev := primitive.NewObjectID()

	liked, err := d.ToggleLike(ctx, u.ID, ev)
	require.NoError(t, err)
	assert.True(t, liked)

	liked, err = d.ToggleLike(ctx, u.ID, ev)
	require.NoError(t, err)
	assert.False(t, liked)
}

func TestInsertOrderRejectsDuplicatePaymentRef(t *testing.T) {
	d := New()
	ctx := context.Background()
	require.NoError(t, d.InsertOrder(ctx, &models.Order{StripeID: "cs_1"}))
	err := d.InsertOrder(ctx, &models.Order{StripeID: "cs_1"})
	assert.ErrorIs(t, err, models.ErrConflict)
}
