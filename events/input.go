package events

import (
	"fmt"
	"strings"
	"time"

	"eventtts/models"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// EventInput is the create payload. Category and Tags are names, not ids.
type EventInput struct {
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	Photo         string              `json:"photo"`
	IsOnline      bool                `json:"isOnline"`
	Location      string              `json:"location"`
	Landmark      string              `json:"landmark"`
	URL           string              `json:"url"`
	StartDate     time.Time           `json:"startDate"`
	EndDate       time.Time           `json:"endDate"`
	StartTime     string              `json:"startTime"`
	EndTime       string              `json:"endTime"`
	Duration      int                 `json:"duration"`
	IsFree        bool                `json:"isFree"`
	Price         float64             `json:"price"`
	CapacityMode  models.CapacityMode `json:"capacityMode"`
	TotalCapacity int                 `json:"totalCapacity"`
	Category      string              `json:"category"`
	Tags          []string            `json:"tags"`
	SubEvents     []SubEventInput     `json:"subEvents"`
}

// SubEventInput carries only schedule and description; the commercial
// fields always come from the parent.
type SubEventInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Photo       string    `json:"photo"`
	IsOnline    bool      `json:"isOnline"`
	Location    string    `json:"location"`
	Landmark    string    `json:"landmark"`
	URL         string    `json:"url"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	StartTime   string    `json:"startTime"`
	EndTime     string    `json:"endTime"`
	Duration    int       `json:"duration"`
	Category    string    `json:"category"`
}

var capacityModes = []interface{}{models.CapacityUntracked, models.CapacityFinite, models.CapacityUnlimited}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", models.ErrValidation, err)
}

func (in *EventInput) Validate() error {
	err := validation.ValidateStruct(in,
		validation.Field(&in.Title, validation.Required, validation.Length(3, 200)),
		validation.Field(&in.Description, validation.Length(0, 5000)),
		validation.Field(&in.URL, is.URL),
		validation.Field(&in.StartDate, validation.Required),
		validation.Field(&in.EndDate, validation.Required, validation.Min(in.StartDate)),
		validation.Field(&in.Price, validation.Min(0.0)),
		validation.Field(&in.Duration, validation.Min(0)),
		validation.Field(&in.TotalCapacity, validation.Min(0)),
		validation.Field(&in.CapacityMode, validation.In(capacityModes...)),
		validation.Field(&in.Category, validation.Required),
	)
	if err != nil {
		return invalid(err)
	}
	if in.CapacityMode == models.CapacityFinite && in.TotalCapacity < 1 {
		return invalid(fmt.Errorf("totalCapacity: must be at least 1 for finite capacity"))
	}
	if !in.IsOnline && strings.TrimSpace(in.Location) == "" {
		return invalid(fmt.Errorf("location: cannot be blank for an in-person event"))
	}
	for i := range in.SubEvents {
		if err := in.SubEvents[i].Validate(); err != nil {
			return fmt.Errorf("subEvents[%d]: %w", i, err)
		}
	}
	return nil
}

func (in *SubEventInput) Validate() error {
	err := validation.ValidateStruct(in,
		validation.Field(&in.Title, validation.Required, validation.Length(3, 200)),
		validation.Field(&in.URL, is.URL),
		validation.Field(&in.StartDate, validation.Required),
		validation.Field(&in.EndDate, validation.Required, validation.Min(in.StartDate)),
		validation.Field(&in.Duration, validation.Min(0)),
	)
	if err != nil {
		return invalid(err)
	}
	return nil
}

// Capacity reads the requested pool; an absent mode follows the legacy
// totalCapacity convention.
func (in *EventInput) Capacity() models.Capacity {
	return models.InferCapacity(in.CapacityMode, in.TotalCapacity)
}

// UpdateInput is the edit payload. Nil fields are left as they are.
type UpdateInput struct {
	Title         *string              `json:"title"`
	Description   *string              `json:"description"`
	Photo         *string              `json:"photo"`
	IsOnline      *bool                `json:"isOnline"`
	Location      *string              `json:"location"`
	Landmark      *string              `json:"landmark"`
	URL           *string              `json:"url"`
	StartDate     *time.Time           `json:"startDate"`
	EndDate       *time.Time           `json:"endDate"`
	StartTime     *string              `json:"startTime"`
	EndTime       *string              `json:"endTime"`
	Duration      *int                 `json:"duration"`
	IsFree        *bool                `json:"isFree"`
	Price         *float64             `json:"price"`
	CapacityMode  *models.CapacityMode `json:"capacityMode"`
	TotalCapacity *int                 `json:"totalCapacity"`
	Category      *string              `json:"category"`
	Tags          *[]string            `json:"tags"`
}

func (in *UpdateInput) Validate() error {
	err := validation.ValidateStruct(in,
		validation.Field(&in.Title, validation.NilOrNotEmpty, validation.Length(3, 200)),
		validation.Field(&in.URL, is.URL),
		validation.Field(&in.Price, validation.Min(0.0)),
		validation.Field(&in.Duration, validation.Min(0)),
		validation.Field(&in.TotalCapacity, validation.Min(0)),
		validation.Field(&in.CapacityMode, validation.In(capacityModes...)),
		validation.Field(&in.Category, validation.NilOrNotEmpty),
	)
	if err != nil {
		return invalid(err)
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return invalid(fmt.Errorf("endDate: must not be before startDate"))
	}
	return nil
}

// capacityChange returns the new pool when the edit touches capacity.
func (in *UpdateInput) capacityChange(current models.Capacity) (models.Capacity, bool, error) {
	if in.CapacityMode == nil && in.TotalCapacity == nil {
		return current, false, nil
	}
	next := current
	if in.CapacityMode != nil {
		next.Mode = *in.CapacityMode
	}
	if in.TotalCapacity != nil {
		next.Total = *in.TotalCapacity
		if in.CapacityMode == nil && !current.Tracked() && next.Total > 0 {
			next.Mode = models.CapacityFinite
		}
	}
	if next.Tracked() && next.Total < 1 {
		return current, false, invalid(fmt.Errorf("totalCapacity: must be at least 1 for finite capacity"))
	}
	return next, next != current, nil
}
