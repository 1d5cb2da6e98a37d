// Package inventory owns the ticket pool of every main event. Purchases of
// a sub-event are charged to its parent; the sub-event only carries a mirror
// of the parent's count for readers.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventtts/models"
	"eventtts/mq"
	"eventtts/rdx"
	"eventtts/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Ledger struct {
	events repository.EventStore
	orders repository.OrderStore
	cache  rdx.Cache
	live   mq.Publisher
	log    *zap.Logger
}

func NewLedger(events repository.EventStore, orders repository.OrderStore, cache rdx.Cache, live mq.Publisher, log *zap.Logger) *Ledger {
	if cache == nil {
		cache = rdx.Noop{}
	}
	if log == nil {
		log = zap.L()
	}
	return &Ledger{events: events, orders: orders, cache: cache, live: live, log: log}
}

// Purchase is one confirmed request for tickets.
type Purchase struct {
	PaymentRef  string
	EventID     primitive.ObjectID
	SubEventID  *primitive.ObjectID
	BuyerID     primitive.ObjectID
	Quantity    int
	TotalAmount float64
}

// Unit resolves the purchased event and the event whose pool pays for it.
func (l *Ledger) Unit(ctx context.Context, eventID primitive.ObjectID, subEventID *primitive.ObjectID) (unit, owner *models.Event, err error) {
	unitID := eventID
	if subEventID != nil && !subEventID.IsZero() {
		unitID = *subEventID
	}
	unit, err = l.events.FindEventByID(ctx, unitID)
	if err != nil {
		return nil, nil, err
	}
	if subEventID != nil && !subEventID.IsZero() && unit.LedgerOwnerID() != eventID {
		return nil, nil, fmt.Errorf("%w: event %s is not a sub-event of %s",
			models.ErrValidation, unitID.Hex(), eventID.Hex())
	}
	if !unit.IsSubEvent() {
		return unit, unit, nil
	}
	owner, err = l.events.FindEventByID(ctx, *unit.ParentEvent)
	if err != nil {
		return nil, nil, fmt.Errorf("parent of %s: %w", unit.ID.Hex(), err)
	}
	return unit, owner, nil
}

// PlaceOrder takes p.Quantity tickets from the owning pool and records the
// order. Replaying a PaymentRef returns the stored order and takes nothing.
// When the order cannot be stored the tickets are handed back.
func (l *Ledger) PlaceOrder(ctx context.Context, p Purchase) (*models.Order, error) {
	if p.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", models.ErrValidation)
	}
	if p.PaymentRef == "" {
		return nil, fmt.Errorf("%w: payment reference is required", models.ErrValidation)
	}
	if existing, err := l.orders.FindOrderByPaymentRef(ctx, p.PaymentRef); err == nil {
		return existing, nil
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	unit, owner, err := l.Unit(ctx, p.EventID, p.SubEventID)
	if err != nil {
		return nil, err
	}

	tracked := owner.Capacity().Tracked()
	if tracked {
		after, err := l.events.DecrementTickets(ctx, owner.ID, p.Quantity)
		if err != nil {
			return nil, err
		}
		l.afterPoolChange(ctx, owner, after, true)
	}

	order := &models.Order{
		ID:           primitive.NewObjectID(),
		StripeID:     p.PaymentRef,
		TotalTickets: p.Quantity,
		TotalAmount:  p.TotalAmount,
		Event:        unit.ID,
		LedgerEvent:  owner.ID,
		Buyer:        p.BuyerID,
		Status:       models.OrderCompleted,
		TicketCode:   uuid.NewString(),
		CreatedAt:    time.Now().UTC(),
	}
	if err := l.orders.InsertOrder(ctx, order); err != nil {
		if tracked {
			l.release(ctx, owner, p.Quantity)
		}
		if errors.Is(err, models.ErrConflict) {
			// lost a race with a concurrent delivery of the same payment
			return l.orders.FindOrderByPaymentRef(ctx, p.PaymentRef)
		}
		return nil, fmt.Errorf("insert order: %w", err)
	}

	attended := []primitive.ObjectID{owner.ID}
	if unit.ID != owner.ID {
		attended = append(attended, unit.ID)
	}
	for _, id := range attended {
		if err := l.events.AddAttendee(ctx, id, p.BuyerID); err != nil {
			l.log.Warn("add attendee failed", zap.String("eventId", id.Hex()), zap.Error(err))
		}
	}

	l.log.Info("order placed",
		zap.String("orderId", order.ID.Hex()),
		zap.String("eventId", unit.ID.Hex()),
		zap.String("ledgerEvent", owner.ID.Hex()),
		zap.Int("quantity", p.Quantity))
	return order, nil
}

func (l *Ledger) release(ctx context.Context, owner *models.Event, qty int) {
	ctx = context.WithoutCancel(ctx)
	after, err := l.events.ReleaseTickets(ctx, owner.ID, qty)
	if err != nil {
		l.log.Error("release after failed order insert",
			zap.String("eventId", owner.ID.Hex()), zap.Int("quantity", qty), zap.Error(err))
		return
	}
	l.afterPoolChange(ctx, owner, after, false)
}

// afterPoolChange mirrors the owner's count onto its sub-events, drops the
// cached views and tells live clients. None of it is authoritative, so
// failures are logged only. After a decrement the mirror may only lower.
func (l *Ledger) afterPoolChange(ctx context.Context, owner, after *models.Event, decremented bool) {
	subs, err := l.events.FindSubEvents(ctx, owner.ID)
	if err != nil {
		l.log.Warn("find sub-events for mirror failed", zap.String("eventId", owner.ID.Hex()), zap.Error(err))
	}
	if len(subs) > 0 {
		mirror := l.events.MirrorTickets
		if decremented {
			mirror = l.events.LowerMirroredTickets
		}
		if err := mirror(ctx, owner.ID, after.TicketsLeft, after.SoldOut); err != nil {
			l.log.Warn("mirror tickets failed", zap.String("eventId", owner.ID.Hex()), zap.Error(err))
		}
	}

	ids := make([]primitive.ObjectID, 0, len(subs)+1)
	ids = append(ids, owner.ID)
	keys := []string{rdx.EventKey(owner.ID.Hex())}
	for _, s := range subs {
		ids = append(ids, s.ID)
		keys = append(keys, rdx.EventKey(s.ID.Hex()))
	}
	if err := l.cache.Del(ctx, keys...); err != nil {
		l.log.Warn("cache invalidation failed", zap.Error(err))
	}

	if l.live != nil {
		msg := mq.InventoryUpdate{EventIDs: ids, TicketsLeft: after.TicketsLeft, SoldOut: after.SoldOut}
		if err := l.live.Publish(ctx, msg); err != nil {
			l.log.Warn("publish inventory update failed", zap.Error(err))
		}
	}
}
