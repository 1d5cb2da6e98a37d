// Package reports writes post-event reports: the organizer's notes and the
// sales figures go to the language model, and the structured result is
// stored and rendered as a PDF.
package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eventtts/events"
	"eventtts/models"
	"eventtts/orders"
	"eventtts/repository"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Generator turns a prompt into a JSON document.
type Generator interface {
	GenerateJSON(ctx context.Context, prompt string, out any) error
	Model() string
}

type Service struct {
	reports repository.ReportStore
	events  *events.Service
	orders  *orders.Service
	gen     Generator
	now     func() time.Time
	log     *zap.Logger
}

func NewService(store repository.ReportStore, evs *events.Service, ords *orders.Service, gen Generator, log *zap.Logger) *Service {
	if log == nil {
		log = zap.L()
	}
	return &Service{reports: store, events: evs, orders: ords, gen: gen, now: time.Now, log: log}
}

func validateInput(in *models.ReportInput) error {
	err := validation.ValidateStruct(in,
		validation.Field(&in.PreparedBy, validation.Required, validation.Length(2, 120)),
		validation.Field(&in.EventPurpose, validation.Required, validation.Length(0, 2000)),
		validation.Field(&in.KeyHighlights, validation.Length(0, 4000)),
		validation.Field(&in.MajorOutcomes, validation.Length(0, 4000)),
		validation.Field(&in.Budget, validation.Min(0.0)),
		validation.Field(&in.ActualExpenditure, validation.Min(0.0)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	for i, p := range in.Photos {
		if err := is.URL.Validate(p); err != nil {
			return fmt.Errorf("%w: photos[%d]: %v", models.ErrValidation, i, err)
		}
	}
	return nil
}

type generated struct {
	Title    string                 `json:"title"`
	Sections []models.ReportSection `json:"sections"`
}

// Generate writes and stores a report for a finished event. Only the
// organizer may ask for one.
func (s *Service) Generate(ctx context.Context, eventID, authorID primitive.ObjectID, in models.ReportInput) (*models.Report, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	ev, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.Event.Organizer != authorID {
		return nil, fmt.Errorf("report for %s: %w", eventID.Hex(), models.ErrUnauthorized)
	}
	if ev.EndDate.After(s.now()) {
		return nil, fmt.Errorf("%w: event has not ended yet", models.ErrValidation)
	}
	if s.gen == nil {
		return nil, fmt.Errorf("%w: report generation is not configured", models.ErrUpstream)
	}

	stats, err := s.orders.Stats(ctx, &ev.Event)
	if err != nil {
		return nil, err
	}

	var out generated
	if err := s.gen.GenerateJSON(ctx, buildPrompt(ev, stats, &in), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}
	if strings.TrimSpace(out.Title) == "" || len(out.Sections) == 0 {
		return nil, fmt.Errorf("%w: generated report is empty", models.ErrUpstream)
	}

	r := &models.Report{
		ID:          primitive.NewObjectID(),
		Event:       ev.ID,
		Author:      authorID,
		Title:       out.Title,
		Input:       in,
		Stats:       *stats,
		Sections:    out.Sections,
		GeneratedBy: s.gen.Model(),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.reports.InsertReport(ctx, r); err != nil {
		return nil, fmt.Errorf("insert report: %w", err)
	}
	s.log.Info("report generated", zap.String("reportId", r.ID.Hex()), zap.String("eventId", ev.ID.Hex()))
	return r, nil
}

// Get returns a report to its author.
func (s *Service) Get(ctx context.Context, id, requesterID primitive.ObjectID) (*models.Report, error) {
	r, err := s.reports.FindReportByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Author != requesterID {
		return nil, fmt.Errorf("report %s: %w", id.Hex(), models.ErrUnauthorized)
	}
	return r, nil
}

// ForEvent lists an event's reports, newest first, for its organizer.
func (s *Service) ForEvent(ctx context.Context, eventID, requesterID primitive.ObjectID) ([]models.Report, error) {
	ev, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.Event.Organizer != requesterID {
		return nil, fmt.Errorf("reports for %s: %w", eventID.Hex(), models.ErrUnauthorized)
	}
	return s.reports.FindReportsByEvent(ctx, eventID)
}
