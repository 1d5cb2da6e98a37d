package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const OrderCompleted = "completed"

// Order is one completed purchase. Event is what the buyer chose; LedgerEvent
// is the event whose pool was decremented (the parent for sub-events).
type Order struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	StripeID     string             `json:"stripeId" bson:"stripeId"`
	TotalTickets int                `json:"totalTickets" bson:"totalTickets"`
	TotalAmount  float64            `json:"totalAmount" bson:"totalAmount"`
	Event        primitive.ObjectID `json:"event" bson:"event"`
	LedgerEvent  primitive.ObjectID `json:"ledgerEvent" bson:"ledgerEvent"`
	Buyer        primitive.ObjectID `json:"buyer" bson:"buyer"`
	Status       string             `json:"status" bson:"status"`
	TicketCode   string             `json:"ticketCode" bson:"ticketCode"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
}

// OrderView is an order with its event populated for the buyer's ticket list.
type OrderView struct {
	Order
	Event *EventView `json:"event"`
}

type OrderPage struct {
	Orders     []OrderView `json:"data"`
	TotalPages int         `json:"totalPages"`
}

// OrderStats are totals over an event's orders.
type OrderStats struct {
	TotalOrders  int     `json:"totalOrders" bson:"totalOrders"`
	TotalTickets int     `json:"totalTickets" bson:"totalTickets"`
	TotalRevenue float64 `json:"totalRevenue" bson:"totalRevenue"`
}

// EventStats is the organizer-facing summary of an event.
type EventStats struct {
	EventID       primitive.ObjectID `json:"eventId"`
	Title         string             `json:"title"`
	TotalOrders   int                `json:"totalOrders"`
	TicketsSold   int                `json:"totalTicketsSold"`
	TotalRevenue  float64            `json:"totalRevenue"`
	CapacityMode  CapacityMode       `json:"capacityMode"`
	TotalCapacity int                `json:"totalCapacity"`
	TicketsLeft   int                `json:"ticketsLeft"`
	SoldOut       bool               `json:"soldOut"`
}
