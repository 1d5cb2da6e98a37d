package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EventType string

const (
	EventTypeMain EventType = "main"
	EventTypeSub  EventType = "sub"
)

const (
	StatusPublished = "published"
	StatusCompleted = "completed"
)

// Event is the persisted shape shared by main events and sub-events.
// A sub-event is any event whose ParentEvent is set.
type Event struct {
	ID            primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	Title         string               `json:"title" bson:"title"`
	Description   string               `json:"description" bson:"description"`
	Photo         string               `json:"photo" bson:"photo"`
	Slug          string               `json:"slug,omitempty" bson:"slug,omitempty"`
	IsOnline      bool                 `json:"isOnline" bson:"isOnline"`
	Location      string               `json:"location,omitempty" bson:"location,omitempty"`
	Landmark      string               `json:"landmark,omitempty" bson:"landmark,omitempty"`
	URL           string               `json:"url,omitempty" bson:"url,omitempty"`
	StartDate     time.Time            `json:"startDate" bson:"startDate"`
	EndDate       time.Time            `json:"endDate" bson:"endDate"`
	StartTime     string               `json:"startTime,omitempty" bson:"startTime,omitempty"`
	EndTime       string               `json:"endTime,omitempty" bson:"endTime,omitempty"`
	Duration      int                  `json:"duration,omitempty" bson:"duration,omitempty"`
	IsFree        bool                 `json:"isFree" bson:"isFree"`
	Price         float64              `json:"price" bson:"price"`
	CapacityMode  CapacityMode         `json:"capacityMode" bson:"capacityMode,omitempty"`
	TotalCapacity int                  `json:"totalCapacity" bson:"totalCapacity"`
	TicketsLeft   int                  `json:"ticketsLeft" bson:"ticketsLeft"`
	SoldOut       bool                 `json:"soldOut" bson:"soldOut"`
	Category      primitive.ObjectID   `json:"category" bson:"category,omitempty"`
	Tags          []primitive.ObjectID `json:"tags" bson:"tags"`
	Organizer     primitive.ObjectID   `json:"organizer" bson:"organizer"`
	ParentEvent   *primitive.ObjectID  `json:"parentEvent,omitempty" bson:"parentEvent,omitempty"`
	SubEvents     []primitive.ObjectID `json:"subEvents,omitempty" bson:"subEvents,omitempty"`
	EventType     EventType            `json:"eventType" bson:"eventType"`
	Status        string               `json:"status" bson:"status"`
	Attendees     []primitive.ObjectID `json:"attendees,omitempty" bson:"attendees,omitempty"`
	CreatedAt     time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// IsSubEvent reports whether the event hangs off a parent.
func (e *Event) IsSubEvent() bool {
	return e.ParentEvent != nil && !e.ParentEvent.IsZero()
}

// LedgerOwnerID is the id of the event whose ticket pool pays for a purchase of e.
func (e *Event) LedgerOwnerID() primitive.ObjectID {
	if e.IsSubEvent() {
		return *e.ParentEvent
	}
	return e.ID
}

// Role is either MainRole or SubRole.
type Role interface {
	isRole()
}

// MainRole owns an independent ticket pool.
type MainRole struct {
	Capacity    Capacity
	SubEventIDs []primitive.ObjectID
}

// SubRole inherits every commercial field from ParentID.
type SubRole struct {
	ParentID primitive.ObjectID
}

func (MainRole) isRole() {}
func (SubRole) isRole()  {}

func (e *Event) Role() Role {
	if e.IsSubEvent() {
		return SubRole{ParentID: *e.ParentEvent}
	}
	return MainRole{Capacity: e.Capacity(), SubEventIDs: e.SubEvents}
}

// CategoryRef, TagRef and UserSummary are the populated forms of an event's references.
type CategoryRef struct {
	ID   primitive.ObjectID `json:"_id"`
	Name string             `json:"name"`
}

type TagRef struct {
	ID   primitive.ObjectID `json:"_id"`
	Name string             `json:"name"`
}

type UserSummary struct {
	ID        primitive.ObjectID `json:"_id"`
	Username  string             `json:"username,omitempty"`
	FirstName string             `json:"firstName,omitempty"`
	LastName  string             `json:"lastName,omitempty"`
	Email     string             `json:"email,omitempty"`
	Photo     string             `json:"photo,omitempty"`
}

// EventView is an event with its references populated. The populated fields
// shadow the raw id fields of the embedded Event in JSON output.
type EventView struct {
	Event
	Category  *CategoryRef `json:"category"`
	Tags      []TagRef     `json:"tags"`
	Organizer *UserSummary `json:"organizer"`
	SubEvents []EventView  `json:"subEvents,omitempty"`
}

// EventPage is one page of a listing.
type EventPage struct {
	Events     []EventView `json:"events"`
	TotalPages int         `json:"totalPages"`
}

// EventQuery is the store-neutral description of an event lookup.
type EventQuery struct {
	Search      string
	CategoryID  *primitive.ObjectID
	OrganizerID *primitive.ObjectID
	ExcludeID   *primitive.ObjectID
	Related     *RelatedFilter
	MainOnly    bool
	Skip        int64
	Limit       int64
}

// RelatedFilter matches events in CategoryID or carrying any of TagIDs.
type RelatedFilter struct {
	CategoryID primitive.ObjectID
	TagIDs     []primitive.ObjectID
}

// EventUpdate carries the scalar fields an organizer may change. Nil means unchanged.
type EventUpdate struct {
	Title       *string
	Description *string
	Photo       *string
	Slug        *string
	IsOnline    *bool
	Location    *string
	Landmark    *string
	URL         *string
	StartDate   *time.Time
	EndDate     *time.Time
	StartTime   *string
	EndTime     *string
	Duration    *int
	IsFree      *bool
	Price       *float64
	Category    *primitive.ObjectID
	Tags        *[]primitive.ObjectID
	Status      *string
}

// Empty reports whether the update sets nothing.
func (u EventUpdate) Empty() bool {
	return u == EventUpdate{}
}
