// Package stripe wraps the hosted Checkout flow: creating a session for a
// ticket purchase and reading completed sessions back from webhooks.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	stripego "github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"github.com/stripe/stripe-go/v72/webhook"
)

const EventCheckoutCompleted = "checkout.session.completed"

// Metadata keys attached to every session.
const (
	MetaUserID       = "userId"
	MetaEventID      = "eventId"
	MetaSubEventID   = "subEventId"
	MetaTotalTickets = "totalTickets"
)

type SessionRequest struct {
	Title      string
	UnitAmount int64 // minor units
	Quantity   int64
	Currency   string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

type Session struct {
	ID  string
	URL string
}

// CompletedPayment is a paid checkout session as delivered by the webhook.
type CompletedPayment struct {
	SessionID   string
	AmountTotal int64
	Metadata    map[string]string
}

// Quantity reads the ticket count stored in the session metadata.
func (p *CompletedPayment) Quantity() (int, error) {
	return strconv.Atoi(p.Metadata[MetaTotalTickets])
}

type Client struct {
	api           *client.API
	webhookSecret string
}

func New(secretKey, webhookSecret string) *Client {
	return &Client{
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
	}
}

func (c *Client) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params := &stripego.CheckoutSessionParams{
		PaymentMethodTypes: stripego.StringSlice([]string{"card"}),
		Mode:               stripego.String(string(stripego.CheckoutSessionModePayment)),
		LineItems: []*stripego.CheckoutSessionLineItemParams{{
			PriceData: &stripego.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripego.String(req.Currency),
				UnitAmount: stripego.Int64(req.UnitAmount),
				ProductData: &stripego.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripego.String(req.Title),
				},
			},
			Quantity: stripego.Int64(req.Quantity),
		}},
		SuccessURL: stripego.String(req.SuccessURL),
		CancelURL:  stripego.String(req.CancelURL),
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &Session{ID: s.ID, URL: s.URL}, nil
}

// ParseWebhook verifies the Stripe-Signature header. It returns nil with no
// error for event types other than a completed checkout.
func (c *Client) ParseWebhook(payload []byte, signature string) (*CompletedPayment, error) {
	ev, err := webhook.ConstructEvent(payload, signature, c.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("verify webhook: %w", err)
	}
	if ev.Type != EventCheckoutCompleted {
		return nil, nil
	}
	var s stripego.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	return &CompletedPayment{
		SessionID:   s.ID,
		AmountTotal: s.AmountTotal,
		Metadata:    s.Metadata,
	}, nil
}
