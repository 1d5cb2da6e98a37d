package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"eventtts/memdb"
	"eventtts/models"
	"eventtts/mq"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fixture struct {
	ledger *Ledger
	db     *memdb.DB
	live   *mq.Local
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	d := memdb.New()
	live := mq.NewLocal()
	return &fixture{
		ledger: NewLedger(d, d, nil, live, zap.NewNop()),
		db:     d,
		live:   live,
	}
}

func (f *fixture) event(t *testing.T, c models.Capacity, price float64) *models.Event {
	t.Helper()
	e := &models.Event{
		ID:        primitive.NewObjectID(),
		Title:     "Hackathon",
		Price:     price,
		IsFree:    price == 0,
		EventType: models.EventTypeMain,
		Status:    models.StatusPublished,
		CreatedAt: time.Now(),
	}
	e.SetCapacity(c)
	require.NoError(t, f.db.InsertEvent(context.Background(), e))
	return e
}

func (f *fixture) subEvent(t *testing.T, parent *models.Event) *models.Event {
	t.Helper()
	pid := parent.ID
	e := &models.Event{
		ID:          primitive.NewObjectID(),
		Title:       "Opening Keynote",
		ParentEvent: &pid,
		EventType:   models.EventTypeSub,
		Status:      models.StatusPublished,
		CreatedAt:   time.Now(),
	}
	e.SetCapacity(models.Untracked())
	ctx := context.Background()
	require.NoError(t, f.db.InsertEvent(ctx, e))
	require.NoError(t, f.db.SetSubEvents(ctx, parent.ID, []primitive.ObjectID{e.ID}))
	return e
}

func purchase(eventID primitive.ObjectID, qty int) Purchase {
	return Purchase{
		PaymentRef: "cs_" + primitive.NewObjectID().Hex(),
		EventID:    eventID,
		BuyerID:    primitive.NewObjectID(),
		Quantity:   qty,
	}
}

func TestConcurrentOrdersNeverOversell(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, models.Finite(10), 100)
	ctx := context.Background()

	var granted, refused atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.PlaceOrder(ctx, purchase(ev.ID, 1))
			switch {
			case err == nil:
				granted.Add(1)
			case errors.Is(err, models.ErrInsufficientInventory):
				refused.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 10, granted.Load())
	assert.EqualValues(t, 15, refused.Load())
	after, err := f.db.FindEventByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, after.TicketsLeft)
	assert.True(t, after.SoldOut)

	stats, err := f.db.StatsForEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.TotalTickets)
}

func TestFreeEventTwoBuyersExhaustPool(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, models.Finite(2), 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := purchase(ev.ID, 1)
			p.PaymentRef = fmt.Sprintf("free_%d", i)
			_, errs[i] = f.ledger.PlaceOrder(ctx, p)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	after, err := f.db.FindEventByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, after.TicketsLeft)
	assert.True(t, after.SoldOut)
}

func TestSubEventPurchaseChargesParentAndMirrors(t *testing.T) {
	f := newFixture(t)
	parent := f.event(t, models.Finite(5), 50)
	sub := f.subEvent(t, parent)
	ctx := context.Background()

	updates, cancel := f.live.Subscribe(ctx)
	defer cancel()

	p := purchase(parent.ID, 3)
	p.SubEventID = &sub.ID
	order, err := f.ledger.PlaceOrder(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, order.Event)
	assert.Equal(t, parent.ID, order.LedgerEvent)
	assert.Equal(t, models.OrderCompleted, order.Status)
	assert.NotEmpty(t, order.TicketCode)

	gotParent, err := f.db.FindEventByID(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, gotParent.TicketsLeft)
	assert.Contains(t, gotParent.Attendees, p.BuyerID)

	gotSub, err := f.db.FindEventByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, gotSub.TicketsLeft)
	assert.Contains(t, gotSub.Attendees, p.BuyerID)

	select {
	case u := <-updates:
		assert.Equal(t, 2, u.TicketsLeft)
		assert.ElementsMatch(t, []primitive.ObjectID{parent.ID, sub.ID}, u.EventIDs)
	case <-time.After(time.Second):
		t.Fatal("no inventory update published")
	}
}

func TestSubEventMustBelongToEvent(t *testing.T) {
	f := newFixture(t)
	parent := f.event(t, models.Finite(5), 50)
	other := f.event(t, models.Finite(5), 50)
	sub := f.subEvent(t, other)

	p := purchase(parent.ID, 1)
	p.SubEventID = &sub.ID
	_, err := f.ledger.PlaceOrder(context.Background(), p)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestInsufficientInventoryLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, models.Finite(10), 20)
	ctx := context.Background()

	_, err := f.ledger.PlaceOrder(ctx, purchase(ev.ID, 6))
	require.NoError(t, err)

	p := purchase(ev.ID, 10)
	_, err = f.ledger.PlaceOrder(ctx, p)
	require.ErrorIs(t, err, models.ErrInsufficientInventory)

	_, err = f.db.FindOrderByPaymentRef(ctx, p.PaymentRef)
	assert.ErrorIs(t, err, models.ErrNotFound)
	after, err := f.db.FindEventByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, after.TicketsLeft)
	assert.False(t, after.SoldOut)
}

func TestReplayedPaymentRefIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, models.Finite(5), 20)
	ctx := context.Background()

	p := purchase(ev.ID, 2)
	first, err := f.ledger.PlaceOrder(ctx, p)
	require.NoError(t, err)
	second, err := f.ledger.PlaceOrder(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	after, err := f.db.FindEventByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, after.TicketsLeft)
}

func TestUntrackedAndUnlimitedNeverDecrement(t *testing.T) {
	for _, c := range []models.Capacity{models.Untracked(), models.Unlimited()} {
		t.Run(string(c.Mode), func(t *testing.T) {
			f := newFixture(t)
			ev := f.event(t, c, 0)
			ctx := context.Background()

			_, err := f.ledger.PlaceOrder(ctx, purchase(ev.ID, 7))
			require.NoError(t, err)
			after, err := f.db.FindEventByID(ctx, ev.ID)
			require.NoError(t, err)
			assert.Equal(t, 0, after.TicketsLeft)
			assert.False(t, after.SoldOut)
		})
	}
}

type failingOrders struct {
	*memdb.DB
}

func (failingOrders) InsertOrder(context.Context, *models.Order) error {
	return errors.New("write concern timeout")
}

func TestFailedOrderInsertReleasesTickets(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, models.Finite(3), 20)
	ledger := NewLedger(f.db, failingOrders{f.db}, nil, nil, zap.NewNop())
	ctx := context.Background()

	_, err := ledger.PlaceOrder(ctx, purchase(ev.ID, 3))
	require.Error(t, err)

	after, err := f.db.FindEventByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, after.TicketsLeft)
	assert.False(t, after.SoldOut)
}

func TestRejectsBadQuantity(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, models.Finite(3), 20)
	_, err := f.ledger.PlaceOrder(context.Background(), purchase(ev.ID, 0))
	assert.ErrorIs(t, err, models.ErrValidation)
}
