package repository

import (
	"context"
	"time"

	"eventtts/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventStore persists events and owns the ticket ledger writes. Every
// ledger method is a single atomic operation on one document.
type EventStore interface {
	InsertEvent(ctx context.Context, e *models.Event) error
	FindEventByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error)
	FindEventsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Event, error)
	FindEvents(ctx context.Context, q models.EventQuery) ([]models.Event, error)
	CountEvents(ctx context.Context, q models.EventQuery) (int64, error)
	FindSubEvents(ctx context.Context, parentID primitive.ObjectID) ([]models.Event, error)
	SetSubEvents(ctx context.Context, parentID primitive.ObjectID, subIDs []primitive.ObjectID) error
	UpdateEventFields(ctx context.Context, id primitive.ObjectID, u models.EventUpdate) error
	ResizeCapacity(ctx context.Context, id primitive.ObjectID, c models.Capacity) (*models.Event, error)
	DeleteEvent(ctx context.Context, id primitive.ObjectID) error
	DeleteSubEvents(ctx context.Context, parentID primitive.ObjectID) ([]primitive.ObjectID, error)
	// PromoteSubEvents turns the children of parent into standalone main
	// events priced like parent, without a ticket pool.
	PromoteSubEvents(ctx context.Context, parent models.Event) error
	FindEventIDsByOrganizer(ctx context.Context, organizerID primitive.ObjectID) ([]primitive.ObjectID, error)
	DeleteEventsByIDs(ctx context.Context, ids []primitive.ObjectID) error

	// DecrementTickets takes qty from a finite pool only if at least qty
	// remain, and returns the event after the write.
	DecrementTickets(ctx context.Context, id primitive.ObjectID, qty int) (*models.Event, error)
	ReleaseTickets(ctx context.Context, id primitive.ObjectID, qty int) (*models.Event, error)
	MirrorTickets(ctx context.Context, parentID primitive.ObjectID, ticketsLeft int, soldOut bool) error
	// LowerMirroredTickets is MirrorTickets for the decrement path: it never
	// raises a child's count.
	LowerMirroredTickets(ctx context.Context, parentID primitive.ObjectID, ticketsLeft int, soldOut bool) error
	AddAttendee(ctx context.Context, eventID, userID primitive.ObjectID) error

	MarkCompleted(ctx context.Context, endedBefore time.Time) (int64, error)
}

// TaxonomyStore holds categories and tags, each unique by case-folded name.
type TaxonomyStore interface {
	UpsertCategory(ctx context.Context, name string) (*models.Category, error)
	UpsertTag(ctx context.Context, name string) (*models.Tag, error)
	FindCategoryByName(ctx context.Context, name string) (*models.Category, error)
	FindCategoriesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Category, error)
	FindTagsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Tag, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListTags(ctx context.Context) ([]models.Tag, error)
	AddTagEvent(ctx context.Context, tagIDs []primitive.ObjectID, eventID primitive.ObjectID) error
	PullTagEvents(ctx context.Context, eventIDs []primitive.ObjectID) error
}

type UserStore interface {
	UpsertUser(ctx context.Context, u *models.User) (*models.User, error)
	FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindUserByClerkID(ctx context.Context, clerkID string) (*models.User, error)
	FindUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	UpdateUserByClerkID(ctx context.Context, clerkID string, u models.UserUpdate) (*models.User, error)
	DeleteUserByClerkID(ctx context.Context, clerkID string) (*models.User, error)
	// ToggleLike flips eventID in the user's liked set and reports the new state.
	ToggleLike(ctx context.Context, userID, eventID primitive.ObjectID) (bool, error)
	PullLikedEvents(ctx context.Context, eventIDs []primitive.ObjectID) error
}

type OrderStore interface {
	// InsertOrder fails with models.ErrConflict when StripeID is taken.
	InsertOrder(ctx context.Context, o *models.Order) error
	FindOrderByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	FindOrderByPaymentRef(ctx context.Context, ref string) (*models.Order, error)
	FindOrdersByBuyer(ctx context.Context, buyerID primitive.ObjectID, skip, limit int64) ([]models.Order, error)
	CountOrdersByBuyer(ctx context.Context, buyerID primitive.ObjectID) (int64, error)
	FindOrdersByEvent(ctx context.Context, eventID primitive.ObjectID) ([]models.Order, error)
	// StatsForEvent sums orders placed on eventID or drawn from its pool.
	StatsForEvent(ctx context.Context, eventID primitive.ObjectID) (models.OrderStats, error)
	// DeleteOrdersByEvents removes orders placed on any of eventIDs.
	DeleteOrdersByEvents(ctx context.Context, eventIDs []primitive.ObjectID) error
	DeleteOrdersByBuyer(ctx context.Context, buyerID primitive.ObjectID) error
}

type ReportStore interface {
	InsertReport(ctx context.Context, r *models.Report) error
	FindReportByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error)
	FindReportsByEvent(ctx context.Context, eventID primitive.ObjectID) ([]models.Report, error)
}

// Stores bundles one implementation of each store.
type Stores struct {
	Events   EventStore
	Taxonomy TaxonomyStore
	Users    UserStore
	Orders   OrderStore
	Reports  ReportStore
}
