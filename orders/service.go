// Package orders turns checkout requests into payments and confirmed
// payments into orders. The ticket pool itself is owned by inventory.
package orders

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"eventtts/events"
	"eventtts/inventory"
	"eventtts/models"
	"eventtts/repository"
	"eventtts/stripe"
	"eventtts/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const defaultOrdersPerPage = 3

// Gateway is the payment provider's hosted checkout.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req stripe.SessionRequest) (*stripe.Session, error)
	ParseWebhook(payload []byte, signature string) (*stripe.CompletedPayment, error)
}

type Service struct {
	ledger    *inventory.Ledger
	events    *events.Service
	orders    repository.OrderStore
	gateway   Gateway
	serverURL string
	currency  string
	maxQty    int
	log       *zap.Logger
}

type Options struct {
	Ledger             *inventory.Ledger
	Events             *events.Service
	Orders             repository.OrderStore
	Gateway            Gateway
	ServerURL          string
	Currency           string
	MaxTicketsPerOrder int
	Logger             *zap.Logger
}

func NewService(opts Options) *Service {
	s := &Service{
		ledger:    opts.Ledger,
		events:    opts.Events,
		orders:    opts.Orders,
		gateway:   opts.Gateway,
		serverURL: opts.ServerURL,
		currency:  opts.Currency,
		maxQty:    opts.MaxTicketsPerOrder,
		log:       opts.Logger,
	}
	if s.currency == "" {
		s.currency = "inr"
	}
	if s.maxQty < 1 {
		s.maxQty = 10
	}
	if s.log == nil {
		s.log = zap.L()
	}
	return s
}

type CheckoutRequest struct {
	EventID    primitive.ObjectID
	SubEventID *primitive.ObjectID
	BuyerID    primitive.ObjectID
	Quantity   int
}

// CheckoutResult tells the client where to go next. OrderID is set only when
// the order was placed immediately.
type CheckoutResult struct {
	URL      string              `json:"url"`
	Quantity int                 `json:"quantity"`
	Amount   float64             `json:"amount"`
	OrderID  *primitive.ObjectID `json:"orderId,omitempty"`
}

// Checkout prices the request against the unit as buyers see it. Free units
// are ordered on the spot; paid units get a hosted checkout session and
// nothing is reserved until the payment is confirmed.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	unitID := req.EventID
	if req.SubEventID != nil {
		unitID = *req.SubEventID
	}
	unit, err := s.events.Get(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if req.SubEventID != nil && unit.LedgerOwnerID() != req.EventID {
		return nil, fmt.Errorf("%w: %s is not a sub-event of %s",
			models.ErrValidation, unitID.Hex(), req.EventID.Hex())
	}
	if unit.SoldOut {
		return nil, fmt.Errorf("event %s is sold out: %w", unitID.Hex(), models.ErrInsufficientInventory)
	}

	qty := s.clamp(&unit.Event, req.Quantity)
	amount := unit.Price * float64(qty)

	if unit.IsFree || unit.Price <= 0 {
		order, err := s.ledger.PlaceOrder(ctx, inventory.Purchase{
			PaymentRef: "free_" + uuid.NewString(),
			EventID:    req.EventID,
			SubEventID: req.SubEventID,
			BuyerID:    req.BuyerID,
			Quantity:   qty,
		})
		if err != nil {
			return nil, err
		}
		return &CheckoutResult{URL: s.serverURL + "/tickets", Quantity: qty, OrderID: &order.ID}, nil
	}

	if s.gateway == nil {
		return nil, fmt.Errorf("%w: payments are not configured", models.ErrUpstream)
	}
	meta := map[string]string{
		stripe.MetaUserID:       req.BuyerID.Hex(),
		stripe.MetaEventID:      req.EventID.Hex(),
		stripe.MetaTotalTickets: strconv.Itoa(qty),
	}
	if req.SubEventID != nil {
		meta[stripe.MetaSubEventID] = req.SubEventID.Hex()
	}
	session, err := s.gateway.CreateCheckoutSession(ctx, stripe.SessionRequest{
		Title:      unit.Title,
		UnitAmount: int64(math.Round(unit.Price * 100)),
		Quantity:   int64(qty),
		Currency:   s.currency,
		SuccessURL: s.serverURL + "/tickets",
		CancelURL:  s.serverURL + "/event/" + unitID.Hex(),
		Metadata:   meta,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}
	s.log.Info("checkout session created",
		zap.String("sessionId", session.ID),
		zap.String("eventId", unitID.Hex()),
		zap.Int("quantity", qty))
	return &CheckoutResult{URL: session.URL, Quantity: qty, Amount: amount}, nil
}

func (s *Service) clamp(unit *models.Event, qty int) int {
	upper := s.maxQty
	if n, bounded := unit.Available(); bounded {
		upper = n
	}
	if qty > upper {
		qty = upper
	}
	if qty < 1 {
		qty = 1
	}
	return qty
}

// CreateOrder records a confirmed purchase.
func (s *Service) CreateOrder(ctx context.Context, p inventory.Purchase) (*models.Order, error) {
	return s.ledger.PlaceOrder(ctx, p)
}

// ConfirmPayment handles a webhook delivery. Events other than a completed
// checkout return a nil order.
func (s *Service) ConfirmPayment(ctx context.Context, payload []byte, signature string) (*models.Order, error) {
	if s.gateway == nil {
		return nil, fmt.Errorf("%w: payments are not configured", models.ErrUpstream)
	}
	paid, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	if paid == nil {
		return nil, nil
	}
	p, err := purchaseFrom(paid)
	if err != nil {
		return nil, err
	}
	return s.CreateOrder(ctx, p)
}

func purchaseFrom(paid *stripe.CompletedPayment) (inventory.Purchase, error) {
	bad := func(field string) error {
		return fmt.Errorf("%w: session %s has bad %s metadata", models.ErrValidation, paid.SessionID, field)
	}
	buyer, ok := utils.ParseObjectID(paid.Metadata[stripe.MetaUserID])
	if !ok {
		return inventory.Purchase{}, bad(stripe.MetaUserID)
	}
	eventID, ok := utils.ParseObjectID(paid.Metadata[stripe.MetaEventID])
	if !ok {
		return inventory.Purchase{}, bad(stripe.MetaEventID)
	}
	qty, err := paid.Quantity()
	if err != nil || qty < 1 {
		return inventory.Purchase{}, bad(stripe.MetaTotalTickets)
	}
	p := inventory.Purchase{
		PaymentRef:  paid.SessionID,
		EventID:     eventID,
		BuyerID:     buyer,
		Quantity:    qty,
		TotalAmount: float64(paid.AmountTotal) / 100,
	}
	if raw := paid.Metadata[stripe.MetaSubEventID]; raw != "" {
		sub, ok := utils.ParseObjectID(raw)
		if !ok {
			return inventory.Purchase{}, bad(stripe.MetaSubEventID)
		}
		p.SubEventID = &sub
	}
	return p, nil
}

// OrdersByUser lists the buyer's orders newest first with their events.
func (s *Service) OrdersByUser(ctx context.Context, userID primitive.ObjectID, page, limit int) (*models.OrderPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultOrdersPerPage
	}
	skip := int64((page - 1) * limit)

	found, err := s.orders.FindOrdersByBuyer(ctx, userID, skip, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	total, err := s.orders.CountOrdersByBuyer(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	views, err := s.withEvents(ctx, found)
	if err != nil {
		return nil, err
	}
	return &models.OrderPage{Orders: views, TotalPages: utils.TotalPages(total, limit)}, nil
}

func (s *Service) withEvents(ctx context.Context, found []models.Order) ([]models.OrderView, error) {
	out := make([]models.OrderView, len(found))
	if len(found) == 0 {
		return out, nil
	}
	ids := make([]primitive.ObjectID, len(found))
	for i, o := range found {
		ids[i] = o.Event
	}
	evs, err := s.events.Views(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("populate order events: %w", err)
	}
	byID := make(map[primitive.ObjectID]*models.EventView, len(evs))
	for i := range evs {
		byID[evs[i].ID] = &evs[i]
	}
	for i, o := range found {
		out[i] = models.OrderView{Order: o, Event: byID[o.Event]}
	}
	return out, nil
}

// OrderForBuyer returns one order with its event, if it belongs to buyerID.
func (s *Service) OrderForBuyer(ctx context.Context, orderID, buyerID primitive.ObjectID) (*models.OrderView, error) {
	o, err := s.orders.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Buyer != buyerID {
		return nil, fmt.Errorf("order %s: %w", orderID.Hex(), models.ErrUnauthorized)
	}
	views, err := s.withEvents(ctx, []models.Order{*o})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// EventStatistics sums the orders of an event and every sub-event drawing
// from its pool. Only the organizer may read them.
func (s *Service) EventStatistics(ctx context.Context, eventID, requesterID primitive.ObjectID) (*models.EventStats, error) {
	ev, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.Event.Organizer != requesterID {
		return nil, fmt.Errorf("event %s: %w", eventID.Hex(), models.ErrUnauthorized)
	}
	return s.Stats(ctx, &ev.Event)
}

// Stats builds the statistics block for ev without an ownership check.
func (s *Service) Stats(ctx context.Context, ev *models.Event) (*models.EventStats, error) {
	sums, err := s.orders.StatsForEvent(ctx, ev.ID)
	if err != nil {
		return nil, fmt.Errorf("event stats: %w", err)
	}
	c := ev.Capacity()
	return &models.EventStats{
		EventID:       ev.ID,
		Title:         ev.Title,
		TotalOrders:   sums.TotalOrders,
		TicketsSold:   sums.TotalTickets,
		TotalRevenue:  sums.TotalRevenue,
		CapacityMode:  c.Mode,
		TotalCapacity: ev.TotalCapacity,
		TicketsLeft:   ev.TicketsLeft,
		SoldOut:       ev.SoldOut,
	}, nil
}

